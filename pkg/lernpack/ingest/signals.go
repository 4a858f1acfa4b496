package ingest

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cognicore/lernpack/pkg/lernpack/lexicon"
)

// MaxTopTokens bounds ExtractedSignal.TopTokens.
const MaxTopTokens = 15

var (
	datePattern    = regexp.MustCompile(`\b\d{1,2}\.\d{1,2}\.(?:\d{4}|\d{2})\b|\b\d{4}-\d{2}-\d{2}\b`)
	timePattern    = regexp.MustCompile(`\b(?:[01]?\d|2[0-3]):[0-5]\d\b|\b\d{1,2} ?Uhr\b`)
	moneyPattern   = regexp.MustCompile(`[€$£] ?\d+(?:[.,]\d{1,2})?|\b\d+(?:[.,]\d{1,2})? ?(?:€|EUR\b|Euro\b|USD\b|CHF\b)`)
	postalPattern  = regexp.MustCompile(`\b\d{5} \p{Lu}\p{Ll}+`)
	streetPattern  = regexp.MustCompile(`\p{Lu}[\p{Ll}-]*(?:straße|strasse|str\.|weg|platz|allee|gasse|ring)(?: \d+[a-z]?)?`)
	capitalPattern = regexp.MustCompile(`\p{Lu}[\p{Ll}ß]+(?: \p{Lu}[\p{Ll}ß]+)+`)
)

var entityOrder = map[string]int{
	EntityDate:        0,
	EntityTime:        1,
	EntityMoney:       2,
	EntityAddress:     3,
	EntityCapitalized: 4,
}

// verbSuffixes are the inflectional endings accepted after a verb stem.
var verbSuffixes = []string{"", "e", "st", "t", "et", "est", "en", "n", "te", "ten"}

// SignalExtractor derives planning signals from chunks.
type SignalExtractor struct {
	lex       *lexicon.Lexicon
	tokenizer *Tokenizer
}

// NewSignalExtractor creates an extractor whose tokenizer drops the
// lexicon stopwords.
func NewSignalExtractor(lex *lexicon.Lexicon) *SignalExtractor {
	return &SignalExtractor{
		lex:       lex,
		tokenizer: NewTokenizer(lex.Stopwords()),
	}
}

// ExtractAll extracts one signal per chunk, in chunk order.
func (e *SignalExtractor) ExtractAll(chunks []TextChunk, scenario string) []ExtractedSignal {
	signals := make([]ExtractedSignal, 0, len(chunks))
	for _, c := range chunks {
		signals = append(signals, e.Extract(c, scenario))
	}
	return signals
}

// Extract computes the signal of a single chunk.
func (e *SignalExtractor) Extract(chunk TextChunk, scenario string) ExtractedSignal {
	evidence := RankTokens(e.tokenizer.Tokenize(chunk.Text), MaxTopTokens)
	top := make([]string, len(evidence))
	for i, tc := range evidence {
		top[i] = tc.Token
	}

	return ExtractedSignal{
		ChunkID:          chunk.ChunkID,
		TopTokens:        top,
		DetectedIntents:  e.lex.DetectIntents(chunk.Text, scenario),
		Evidence:         evidence,
		Entities:         e.entities(chunk.Text),
		ActionVerbs:      e.actionVerbs(chunk.Text, scenario),
		QuestionPatterns: e.hasQuestionPattern(chunk.Text),
	}
}

// RankTokens counts tokens and orders them by frequency, breaking ties by
// first occurrence. At most limit entries are returned.
func RankTokens(tokens []string, limit int) []TokenCount {
	counts := make(map[string]int)
	first := make(map[string]int)
	for i, tok := range tokens {
		if _, ok := first[tok]; !ok {
			first[tok] = i
		}
		counts[tok]++
	}

	ranked := make([]TokenCount, 0, len(counts))
	for tok, n := range counts {
		ranked = append(ranked, TokenCount{Token: tok, Count: n})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return first[ranked[i].Token] < first[ranked[j].Token]
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

func (e *SignalExtractor) entities(text string) []Entity {
	var out []Entity
	add := func(typ string, re *regexp.Regexp) {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			out = append(out, Entity{Type: typ, Value: text[loc[0]:loc[1]], Position: loc[0]})
		}
	}

	add(EntityDate, datePattern)
	weekdays := e.lex.Weekdays()
	for _, w := range wordSpans(text) {
		for _, day := range weekdays {
			if strings.ToLower(w.word) == day {
				out = append(out, Entity{Type: EntityDate, Value: w.word, Position: w.start})
			}
		}
	}
	add(EntityTime, timePattern)
	add(EntityMoney, moneyPattern)
	add(EntityAddress, postalPattern)
	add(EntityAddress, streetPattern)

	for _, loc := range capitalPattern.FindAllStringIndex(text, -1) {
		start, end := loc[0], loc[1]
		if sentenceInitial(text, start) {
			sp := strings.IndexByte(text[start:end], ' ')
			start += sp + 1
			if !strings.Contains(text[start:end], " ") {
				continue
			}
		}
		out = append(out, Entity{Type: EntityCapitalized, Value: text[start:end], Position: start})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return entityOrder[out[i].Type] < entityOrder[out[j].Type]
	})
	return out
}

// sentenceInitial reports whether the word at pos opens a sentence, line
// or list item.
func sentenceInitial(text string, pos int) bool {
	i := pos
	for i > 0 && text[i-1] == ' ' {
		i--
	}
	if i == 0 {
		return true
	}
	prev, _ := utf8.DecodeLastRuneInString(text[:i])
	return strings.ContainsRune(".!?:\n#-*\"„“", prev)
}

func (e *SignalExtractor) actionVerbs(text, scenario string) []string {
	verbs := e.lex.ActionVerbs(scenario)
	seen := make(map[string]struct{})
	var out []string
	for _, w := range lexicon.Words(text) {
		word := strings.ToLower(w)
		for _, verb := range verbs {
			if _, ok := seen[verb]; ok {
				continue
			}
			if matchesVerb(word, verb) {
				seen[verb] = struct{}{}
				out = append(out, verb)
			}
		}
	}
	return out
}

// matchesVerb reports whether word is an inflected form of the infinitive
// verb built from its stem and a common German ending.
func matchesVerb(word, verb string) bool {
	stem := verbStem(verb)
	if utf8.RuneCountInString(stem) < 3 || !strings.HasPrefix(word, stem) {
		return false
	}
	suffix := word[len(stem):]
	for _, s := range verbSuffixes {
		if suffix == s {
			return true
		}
	}
	return false
}

func verbStem(verb string) string {
	switch {
	case strings.HasSuffix(verb, "en"):
		return strings.TrimSuffix(verb, "en")
	case strings.HasSuffix(verb, "n"):
		return strings.TrimSuffix(verb, "n")
	}
	return verb
}

func (e *SignalExtractor) hasQuestionPattern(text string) bool {
	if strings.Contains(text, "?") {
		return true
	}
	for _, w := range lexicon.Words(text) {
		if e.lex.IsQuestionWord(w) {
			return true
		}
	}
	return false
}

type wordSpan struct {
	word  string
	start int
}

func wordSpans(text string) []wordSpan {
	var out []wordSpan
	start := -1
	for i, r := range text {
		if isWordRune(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			out = append(out, wordSpan{word: text[start:i], start: start})
			start = -1
		}
	}
	if start >= 0 {
		out = append(out, wordSpan{word: text[start:], start: start})
	}
	return out
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsNumber(r) || r == '-'
}
