// Package quality evaluates finished draft packs against a fixed rule set.
// Rule failures are data, never errors.
package quality

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/cognicore/lernpack/pkg/lernpack/generate"
	"github.com/cognicore/lernpack/pkg/lernpack/lexicon"
	"github.com/cognicore/lernpack/pkg/lernpack/template"
)

// Rule names.
const (
	RulePromptCount         = "prompt_count"
	RuleScenarioTokens      = "scenario_tokens"
	RuleBannedPhrases       = "banned_phrases"
	RulePromptLength        = "prompt_length"
	RuleNaturalENRequired   = "natural_en_required"
	RuleMultiSlotVariation  = "multi_slot_variation"
	RuleRegisterConsistency = "register_consistency"
	RuleConcretenessMarkers = "concreteness_markers"
	RuleVerbVariation       = "verb_variation"
)

// Rules lists every rule in evaluation order.
var Rules = []string{
	RulePromptCount,
	RuleScenarioTokens,
	RuleBannedPhrases,
	RulePromptLength,
	RuleNaturalENRequired,
	RuleMultiSlotVariation,
	RuleRegisterConsistency,
	RuleConcretenessMarkers,
	RuleVerbVariation,
}

// MinScenarioTokens is how many scenario tokens every prompt must carry.
const MinScenarioTokens = 2

const (
	minConcretePrompts   = 2
	minDistinctVerbs     = 2
	naturalRequiredScene = "government_office"
)

var naturalRequiredLevels = map[string]struct{}{
	"A2": {}, "B1": {}, "B2": {}, "C1": {}, "C2": {},
}

// Issue is one failure or warning. PromptID is empty for pack-level rules.
type Issue struct {
	PromptID string `json:"promptId,omitempty"`
	PackID   string `json:"packId,omitempty"`
	Rule     string `json:"rule"`
	Reason   string `json:"reason"`
}

// Result is the outcome of one evaluation.
type Result struct {
	Passed   bool    `json:"passed"`
	Failures []Issue `json:"failures"`
	Warnings []Issue `json:"warnings"`
}

// Evaluator runs the gates. It only reads the lexicon and the pack.
type Evaluator struct {
	lex *lexicon.Lexicon
}

// NewEvaluator creates an evaluator backed by lex.
func NewEvaluator(lex *lexicon.Lexicon) *Evaluator {
	return &Evaluator{lex: lex}
}

// Run evaluates every rule over pack. An empty pack fails prompt_count
// and no other rule is evaluated.
func (e *Evaluator) Run(pack *generate.DraftPack) Result {
	res := Result{Failures: []Issue{}, Warnings: []Issue{}}
	fail := func(promptID, rule, reason string) {
		res.Failures = append(res.Failures, Issue{PromptID: promptID, PackID: pack.ID, Rule: rule, Reason: reason})
	}

	if len(pack.Prompts) == 0 {
		fail("", RulePromptCount, "pack has no prompts")
		return res
	}

	tokens, hasTokens := e.lex.ScenarioTokens(pack.Scenario)
	natural := naturalRequired(pack.Scenario, pack.Level)

	for _, p := range pack.Prompts {
		if hasTokens {
			if hits := lexicon.MatchTokens(p.Text, tokens); len(hits) < MinScenarioTokens {
				fail(p.ID, RuleScenarioTokens, fmt.Sprintf("found %d scenario tokens %v, need %d", len(hits), hits, MinScenarioTokens))
			}
		}
		if phrase, ok := e.lex.BannedPhrase(p.Text); ok {
			fail(p.ID, RuleBannedPhrases, fmt.Sprintf("contains banned phrase %q", phrase))
		}
		if n := utf8.RuneCountInString(p.Text); n < generate.MinPromptLen || n > generate.MaxPromptLen {
			fail(p.ID, RulePromptLength, fmt.Sprintf("length %d outside [%d,%d]", n, generate.MinPromptLen, generate.MaxPromptLen))
		}
		if natural && strings.TrimSpace(p.NaturalEN) == "" {
			fail(p.ID, RuleNaturalENRequired, "natural_en is missing")
		}
	}

	if rate := MultiSlotRate(pack.Prompts); rate < generate.MultiSlotFloor {
		fail("", RuleMultiSlotVariation, fmt.Sprintf("multi-slot rate %.2f below %.2f", rate, generate.MultiSlotFloor))
	}

	if pack.Register == template.RegisterFormal && !anyPrompt(pack.Prompts, lexicon.HasFormalAddress) {
		fail("", RuleRegisterConsistency, "formal pack never uses Sie or Ihnen")
	}

	if n := countPrompts(pack.Prompts, lexicon.HasConcretenessMarker); n < minConcretePrompts {
		fail("", RuleConcretenessMarkers, fmt.Sprintf("%d prompts with a number, price or time, need %d", n, minConcretePrompts))
	}

	if verbs := e.distinctVerbs(pack.Prompts); len(verbs) < minDistinctVerbs {
		res.Warnings = append(res.Warnings, Issue{
			PackID: pack.ID,
			Rule:   RuleVerbVariation,
			Reason: fmt.Sprintf("%d distinct verbs %v, expected at least %d", len(verbs), verbs, minDistinctVerbs),
		})
	}

	res.Passed = len(res.Failures) == 0
	return res
}

// MultiSlotRate is the share of prompts that changed two or more slots.
func MultiSlotRate(prompts []generate.DraftPrompt) float64 {
	if len(prompts) == 0 {
		return 0
	}
	multi := 0
	for _, p := range prompts {
		if len(p.SlotsChanged) >= 2 {
			multi++
		}
	}
	return float64(multi) / float64(len(prompts))
}

// distinctVerbs takes the word after the first pronoun of each prompt as
// its verb.
func (e *Evaluator) distinctVerbs(prompts []generate.DraftPrompt) []string {
	seen := make(map[string]struct{})
	var verbs []string
	for _, p := range prompts {
		words := lexicon.Words(p.Text)
		for i := 0; i+1 < len(words); i++ {
			if !e.lex.IsPronoun(words[i]) {
				continue
			}
			verb := strings.ToLower(words[i+1])
			if _, ok := seen[verb]; !ok {
				seen[verb] = struct{}{}
				verbs = append(verbs, verb)
			}
			break
		}
	}
	return verbs
}

func naturalRequired(scenario, level string) bool {
	if scenario == naturalRequiredScene {
		return true
	}
	_, ok := naturalRequiredLevels[strings.ToUpper(level)]
	return ok
}

func anyPrompt(prompts []generate.DraftPrompt, pred func(string) bool) bool {
	return countPrompts(prompts, pred) > 0
}

func countPrompts(prompts []generate.DraftPrompt, pred func(string) bool) int {
	n := 0
	for _, p := range prompts {
		if pred(p.Text) {
			n++
		}
	}
	return n
}
