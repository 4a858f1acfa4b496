// Package lexicon holds the immutable language data shared by signal
// extraction, draft generation and the quality gates: stopwords, banned
// phrases, intent rules, action verbs and the per-scenario token
// dictionaries and gloss tables.
package lexicon

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/lernpack/pkg/lernpack/internalerr"
)

// DefaultIntent is assigned when no intent rule matches.
const DefaultIntent = "inform"

//go:embed default.yaml
var defaultYAML []byte

// File is the on-disk representation of a lexicon.
type File struct {
	Stopwords     []string                `yaml:"stopwords"`
	BannedPhrases []string                `yaml:"bannedPhrases"`
	Weekdays      []string                `yaml:"weekdays"`
	QuestionWords []string                `yaml:"questionWords"`
	Pronouns      []string                `yaml:"pronouns"`
	Intents       []IntentRuleFile        `yaml:"intents"`
	CommonVerbs   []string                `yaml:"commonVerbs"`
	GenericGloss  map[string]Gloss        `yaml:"genericGloss"`
	Scenarios     map[string]ScenarioFile `yaml:"scenarios"`
}

// IntentRuleFile maps an intent tag to regular expressions.
type IntentRuleFile struct {
	Intent   string   `yaml:"intent"`
	Patterns []string `yaml:"patterns"`
}

// ScenarioFile is the per-scenario block of a lexicon file.
type ScenarioFile struct {
	Tokens  []string          `yaml:"tokens"`
	Verbs   []string          `yaml:"verbs"`
	Intents []IntentRuleFile  `yaml:"intents"`
	Phrases map[string]string `yaml:"phrases"`
	Glosses []GlossEntry      `yaml:"glosses"`
}

// Gloss is an English rendering of a prompt.
type Gloss struct {
	Gloss   string `yaml:"gloss"`
	Natural string `yaml:"natural"`
}

// GlossEntry is a gloss selected by a case-insensitive substring match.
type GlossEntry struct {
	Match   string `yaml:"match"`
	Gloss   string `yaml:"gloss"`
	Natural string `yaml:"natural"`
}

type intentRule struct {
	intent   string
	patterns []*regexp.Regexp
}

type scenario struct {
	tokens  []string
	verbs   []string
	intents []intentRule
	phrases map[string]string
	glosses []GlossEntry
}

// Lexicon is read-only after construction and safe for concurrent use.
type Lexicon struct {
	stopwords     map[string]struct{}
	banned        []string
	weekdays      []string
	questionWords map[string]struct{}
	pronouns      map[string]struct{}
	intents       []intentRule
	commonVerbs   []string
	genericGloss  map[string]Gloss
	scenarios     map[string]scenario
}

var (
	defaultOnce sync.Once
	defaultLex  *Lexicon
	defaultErr  error
)

// Default returns the embedded German lexicon. It is parsed once.
func Default() (*Lexicon, error) {
	defaultOnce.Do(func() {
		defaultLex, defaultErr = Parse(defaultYAML)
	})
	return defaultLex, defaultErr
}

// Load reads a lexicon from a YAML file.
func Load(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	lex, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("lexicon %s: %w", path, err)
	}
	return lex, nil
}

// Parse builds a lexicon from YAML bytes, compiling every intent pattern.
func Parse(data []byte) (*Lexicon, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", internalerr.ErrInvalidConfig, err)
	}
	return New(f)
}

// New validates a lexicon file and builds the lookup structures.
func New(f File) (*Lexicon, error) {
	intents, err := compileRules(f.Intents)
	if err != nil {
		return nil, err
	}

	lex := &Lexicon{
		stopwords:     toSet(f.Stopwords),
		banned:        lowerAll(f.BannedPhrases),
		weekdays:      lowerAll(f.Weekdays),
		questionWords: toSet(f.QuestionWords),
		pronouns:      toSet(f.Pronouns),
		intents:       intents,
		commonVerbs:   lowerAll(f.CommonVerbs),
		genericGloss:  make(map[string]Gloss, len(f.GenericGloss)),
		scenarios:     make(map[string]scenario, len(f.Scenarios)),
	}
	for intent, g := range f.GenericGloss {
		lex.genericGloss[intent] = g
	}

	for name, sf := range f.Scenarios {
		rules, err := compileRules(sf.Intents)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: %w", name, err)
		}
		phrases := make(map[string]string, len(sf.Phrases))
		for tok, phrase := range sf.Phrases {
			phrases[strings.ToLower(tok)] = phrase
		}
		lex.scenarios[name] = scenario{
			tokens:  lowerAll(sf.Tokens),
			verbs:   lowerAll(sf.Verbs),
			intents: rules,
			phrases: phrases,
			glosses: append([]GlossEntry(nil), sf.Glosses...),
		}
	}

	return lex, nil
}

func compileRules(in []IntentRuleFile) ([]intentRule, error) {
	rules := make([]intentRule, 0, len(in))
	for _, r := range in {
		if strings.TrimSpace(r.Intent) == "" {
			return nil, fmt.Errorf("%w: intent rule without intent", internalerr.ErrInvalidConfig)
		}
		rule := intentRule{intent: r.Intent}
		for _, p := range r.Patterns {
			re, err := regexp.Compile(p)
			if err != nil {
				return nil, fmt.Errorf("%w: intent %s pattern %q: %v", internalerr.ErrInvalidConfig, r.Intent, p, err)
			}
			rule.patterns = append(rule.patterns, re)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// IsStopword reports whether a lowercased token is a stopword.
func (l *Lexicon) IsStopword(token string) bool {
	_, ok := l.stopwords[token]
	return ok
}

// Stopwords returns all stopwords in no particular order.
func (l *Lexicon) Stopwords() []string {
	out := make([]string, 0, len(l.stopwords))
	for s := range l.stopwords {
		out = append(out, s)
	}
	return out
}

// BannedPhrase returns the first banned phrase contained in text.
func (l *Lexicon) BannedPhrase(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, phrase := range l.banned {
		if strings.Contains(lower, phrase) {
			return phrase, true
		}
	}
	return "", false
}

// Weekdays returns the lowercased weekday names.
func (l *Lexicon) Weekdays() []string {
	return append([]string(nil), l.weekdays...)
}

// IsQuestionWord reports whether word (any case) is a question word.
func (l *Lexicon) IsQuestionWord(word string) bool {
	_, ok := l.questionWords[strings.ToLower(word)]
	return ok
}

// IsPronoun reports whether word (any case) is a personal pronoun.
func (l *Lexicon) IsPronoun(word string) bool {
	_, ok := l.pronouns[strings.ToLower(word)]
	return ok
}

// HasScenario reports whether the scenario has its own dictionary.
func (l *Lexicon) HasScenario(name string) bool {
	_, ok := l.scenarios[name]
	return ok
}

// ScenarioTokens returns the token dictionary of a scenario.
func (l *Lexicon) ScenarioTokens(name string) ([]string, bool) {
	sc, ok := l.scenarios[name]
	if !ok || len(sc.tokens) == 0 {
		return nil, false
	}
	return append([]string(nil), sc.tokens...), true
}

// TokenHits returns the scenario tokens found in text as case-insensitive
// substrings, in dictionary order.
func (l *Lexicon) TokenHits(text, scenarioName string) []string {
	sc, ok := l.scenarios[scenarioName]
	if !ok {
		return nil
	}
	return MatchTokens(text, sc.tokens)
}

// MatchTokens returns the lowercase tokens that occur in text as
// case-insensitive substrings, in the order given.
func MatchTokens(text string, tokens []string) []string {
	lower := strings.ToLower(text)
	var hits []string
	for _, tok := range tokens {
		if strings.Contains(lower, tok) {
			hits = append(hits, tok)
		}
	}
	return hits
}

// DetectIntents runs scenario rules first, then the common rules, and
// returns each matching intent once in rule order. Text that matches no
// rule is tagged DefaultIntent.
func (l *Lexicon) DetectIntents(text, scenarioName string) []string {
	var rules []intentRule
	if sc, ok := l.scenarios[scenarioName]; ok {
		rules = append(rules, sc.intents...)
	}
	rules = append(rules, l.intents...)

	seen := make(map[string]struct{})
	var out []string
	for _, r := range rules {
		if _, ok := seen[r.intent]; ok {
			continue
		}
		for _, re := range r.patterns {
			if re.MatchString(text) {
				seen[r.intent] = struct{}{}
				out = append(out, r.intent)
				break
			}
		}
	}
	if len(out) == 0 {
		return []string{DefaultIntent}
	}
	return out
}

// ActionVerbs returns the common verbs followed by the scenario verbs,
// without duplicates.
func (l *Lexicon) ActionVerbs(scenarioName string) []string {
	verbs := append([]string(nil), l.commonVerbs...)
	if sc, ok := l.scenarios[scenarioName]; ok {
		verbs = append(verbs, sc.verbs...)
	}
	return uniqueStrings(verbs)
}

// InjectionPhrase returns a phrase that carries token and can be placed in
// an object or modifier slot.
func (l *Lexicon) InjectionPhrase(scenarioName, token string) (string, bool) {
	sc, ok := l.scenarios[scenarioName]
	if !ok {
		return "", false
	}
	phrase, ok := sc.phrases[strings.ToLower(token)]
	return phrase, ok
}

// Gloss picks the scenario gloss whose match key occurs in text, falling
// back to the generic gloss of intent.
func (l *Lexicon) Gloss(text, scenarioName, intent string) Gloss {
	lower := strings.ToLower(text)
	if sc, ok := l.scenarios[scenarioName]; ok {
		for _, e := range sc.glosses {
			if e.Match != "" && strings.Contains(lower, strings.ToLower(e.Match)) {
				return Gloss{Gloss: e.Gloss, Natural: e.Natural}
			}
		}
	}
	if g, ok := l.genericGloss[intent]; ok {
		return g
	}
	return l.genericGloss[DefaultIntent]
}

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[strings.ToLower(strings.TrimSpace(w))] = struct{}{}
	}
	return set
}

func lowerAll(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			out = append(out, w)
		}
	}
	return out
}

func uniqueStrings(in []string) []string {
	set := make(map[string]struct{}, len(in))
	var out []string
	for _, val := range in {
		if val == "" {
			continue
		}
		if _, ok := set[val]; ok {
			continue
		}
		set[val] = struct{}{}
		out = append(out, val)
	}
	return out
}
