// Package generate drafts practice prompts for planned packs by filling
// scenario template slots, conjugating the verb and checking every
// candidate inline before it is accepted.
package generate

import (
	"crypto/sha1"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cognicore/lernpack/pkg/lernpack/ingest"
	"github.com/cognicore/lernpack/pkg/lernpack/internalerr"
	"github.com/cognicore/lernpack/pkg/lernpack/lexicon"
	"github.com/cognicore/lernpack/pkg/lernpack/planner"
	"github.com/cognicore/lernpack/pkg/lernpack/template"
)

// Prompt length bounds in runes.
const (
	MinPromptLen = 12
	MaxPromptLen = 140
)

const (
	DefaultMaxAttempts  = 100
	DefaultMinTokenHits = 2
	// MultiSlotFloor is the minimum share of prompts that change two or
	// more slots relative to their predecessor.
	MultiSlotFloor = 0.3

	maxNotesLen        = 120
	signalPreference   = 0.6
	literalPlaceholder = "(literal translation pending)"
)

var clockTimes = []string{"um 10:30", "um 8:15", "um 14:45"}

// DraftPrompt is one generated practice sentence.
type DraftPrompt struct {
	ID           string              `json:"id"`
	Text         string              `json:"text"`
	Intent       string              `json:"intent"`
	GlossEN      string              `json:"gloss_en"`
	NaturalEN    string              `json:"natural_en,omitempty"`
	LiteralEN    string              `json:"literal_en,omitempty"`
	NotesLite    string              `json:"notes_lite,omitempty"`
	AudioURL     string              `json:"audioUrl"`
	SlotsChanged []string            `json:"slotsChanged,omitempty"`
	SlotsPadded  []string            `json:"slotsPadded,omitempty"`
	Slots        map[string][]string `json:"slots,omitempty"`
	StepID       string              `json:"-"`
}

// Options tunes generation.
type Options struct {
	MaxAttempts  int
	MinTokenHits int
	// DisableSlotPadding records only genuine slot changes, even when the
	// multi-slot share drops below MultiSlotFloor.
	DisableSlotPadding bool
}

// Generator drafts prompts. It holds no per-run state and is safe for
// concurrent use.
type Generator struct {
	lex  *lexicon.Lexicon
	opts Options
}

// New creates a generator. Zero options fall back to the defaults.
func New(lex *lexicon.Lexicon, opts Options) *Generator {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.MinTokenHits <= 0 {
		opts.MinTokenHits = DefaultMinTokenHits
	}
	return &Generator{lex: lex, opts: opts}
}

// Request carries the inputs for one pack.
type Request struct {
	Pack     planner.PlannedPack
	Signals  []ingest.ExtractedSignal
	Template *template.Template
	Scenario string
	Level    string
}

func (r Request) validate() error {
	if r.Template == nil {
		return fmt.Errorf("%w: template is required", internalerr.ErrInvalidInput)
	}
	if r.Pack.PackID == "" {
		return fmt.Errorf("%w: pack id is required", internalerr.ErrInvalidInput)
	}
	return nil
}

// draft is a candidate prompt before metadata is attached.
type draft struct {
	stepID    string
	stepTitle string
	slots     []string
	values    map[string]string
	text      string
	clock     string
}

func (d draft) clone() draft {
	c := d
	c.values = make(map[string]string, len(d.values))
	for k, v := range d.values {
		c.values[k] = v
	}
	return c
}

// run holds the lookups derived from one request.
type run struct {
	g         *Generator
	req       Request
	tokens    []string
	minHits   int
	preferred map[string][]string
}

// GeneratePrompts drafts every prompt of the template's step blueprint.
// It fails with an *ExhaustedError when a prompt position cannot be
// filled within the attempt budget.
func (g *Generator) GeneratePrompts(req Request) ([]DraftPrompt, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	r := g.newRun(req)
	tpl := req.Template

	var drafts []draft
	for _, step := range tpl.StepBlueprint {
		slots := step.Slots(tpl.VariationSlots)
		rng := stepRand(req.Pack.PackID, step.ID)
		for i := 0; i < step.PromptCount; i++ {
			draw := func() draft { return r.sample(rng, step, slots) }
			d, attempts, ok := Search(g.opts.MaxAttempts, draw, r.accept)
			if !ok {
				return nil, &ExhaustedError{
					PackID:   req.Pack.PackID,
					StepID:   step.ID,
					Slot:     promptID(len(drafts) + 1),
					Attempts: attempts,
				}
			}
			drafts = append(drafts, d)
		}
	}

	r.applyFormalRegister(drafts)
	r.applyConcreteness(drafts)
	return r.finish(drafts), nil
}

func (g *Generator) newRun(req Request) *run {
	tokens, ok := g.lex.ScenarioTokens(req.Scenario)
	if !ok {
		for _, t := range req.Template.RequiredTokens {
			if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
				tokens = append(tokens, t)
			}
		}
	}
	minHits := g.opts.MinTokenHits
	if minHits > len(tokens) {
		minHits = len(tokens)
	}

	r := &run{
		g:         g,
		req:       req,
		tokens:    tokens,
		minHits:   minHits,
		preferred: make(map[string][]string),
	}

	seeds := signalTokens(req.Pack, req.Signals)
	for _, slot := range []string{template.SlotSubject, template.SlotVerb, template.SlotObject,
		template.SlotModifier, template.SlotTime, template.SlotLocation} {
		for _, v := range req.Template.SlotBanks.Values(slot) {
			if containsAny(strings.ToLower(v), seeds) {
				r.preferred[slot] = append(r.preferred[slot], v)
			}
		}
	}
	return r
}

// signalTokens collects the pack tokens and the top tokens of its chunks.
func signalTokens(pack planner.PlannedPack, signals []ingest.ExtractedSignal) []string {
	targets := make(map[string]struct{}, len(pack.TargetChunks))
	for _, id := range pack.TargetChunks {
		targets[id] = struct{}{}
	}
	seen := make(map[string]struct{})
	var out []string
	add := func(tok string) {
		if _, ok := seen[tok]; ok || tok == "" {
			return
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	for _, tok := range pack.TopTokens {
		add(tok)
	}
	for _, sig := range signals {
		if _, ok := targets[sig.ChunkID]; !ok {
			continue
		}
		for _, tok := range sig.TopTokens {
			add(tok)
		}
	}
	return out
}

func stepRand(packID, stepID string) *rand.Rand {
	sum := sha1.Sum([]byte(packID + "\x00" + stepID))
	return rand.New(rand.NewPCG(binary.BigEndian.Uint64(sum[0:8]), binary.BigEndian.Uint64(sum[8:16])))
}

func (r *run) sample(rng *rand.Rand, step template.Step, slots []string) draft {
	d := draft{
		stepID:    step.ID,
		stepTitle: step.Title,
		slots:     slots,
		values:    make(map[string]string, len(slots)),
	}
	for _, slot := range slots {
		d.values[slot] = r.pick(rng, slot)
	}
	return d
}

// pick prefers bank values that mention a signal token.
func (r *run) pick(rng *rand.Rand, slot string) string {
	if pref := r.preferred[slot]; len(pref) > 0 && rng.Float64() < signalPreference {
		return pref[rng.IntN(len(pref))]
	}
	bank := r.req.Template.SlotBanks.Values(slot)
	return bank[rng.IntN(len(bank))]
}

// accept renders the candidate and checks it, trying one token injection
// when only the token coverage is short.
func (r *run) accept(d draft) (draft, bool) {
	d.text = render(d)
	if !r.shapeOK(d.text) {
		return d, false
	}
	hits := lexicon.MatchTokens(d.text, r.tokens)
	if len(hits) >= r.minHits {
		return d, true
	}

	fixed, ok := r.inject(d, hits)
	if !ok {
		return d, false
	}
	fixed.text = render(fixed)
	return fixed, r.valid(fixed.text)
}

func (r *run) shapeOK(text string) bool {
	n := utf8.RuneCountInString(text)
	if n < MinPromptLen || n > MaxPromptLen {
		return false
	}
	_, banned := r.g.lex.BannedPhrase(text)
	return !banned
}

func (r *run) valid(text string) bool {
	return r.shapeOK(text) && len(lexicon.MatchTokens(text, r.tokens)) >= r.minHits
}

// inject places the phrase of the first missing token into the modifier
// slot, or appends it to the object.
func (r *run) inject(d draft, hits []string) (draft, bool) {
	have := make(map[string]struct{}, len(hits))
	for _, h := range hits {
		have[h] = struct{}{}
	}
	for _, tok := range r.tokens {
		if _, ok := have[tok]; ok {
			continue
		}
		phrase, ok := r.g.lex.InjectionPhrase(r.req.Scenario, tok)
		if !ok {
			continue
		}
		c := d.clone()
		switch {
		case hasSlot(d.slots, template.SlotModifier):
			c.values[template.SlotModifier] = phrase
		case hasSlot(d.slots, template.SlotObject):
			c.values[template.SlotObject] += " " + phrase
		default:
			return d, false
		}
		return c, true
	}
	return d, false
}

// realize returns the surface form of every slot in order.
func realize(d draft) []string {
	out := make([]string, len(d.slots))
	subject, hasSubject := d.values[template.SlotSubject]
	for i, slot := range d.slots {
		v := d.values[slot]
		switch slot {
		case template.SlotVerb:
			if hasSubject {
				v = Conjugate(subject, v)
			}
		case template.SlotSubject:
			if i > 0 && isPronoun(v) && v != "Sie" {
				v = strings.ToLower(v)
			}
		}
		out[i] = v
	}
	return out
}

func render(d draft) string {
	text := strings.Join(strings.Fields(strings.Join(realize(d), " ")), " ")
	text = capitalize(text)
	if text != "" && !strings.ContainsAny(text[len(text)-1:], ".!?") {
		text += "."
	}
	return text
}

// applyFormalRegister makes the first prompt that allows it address the
// learner with "Sie" when a formal pack has no formal address at all.
func (r *run) applyFormalRegister(drafts []draft) {
	if r.req.Template.DefaultRegister != template.RegisterFormal {
		return
	}
	for _, d := range drafts {
		if lexicon.HasFormalAddress(d.text) {
			return
		}
	}
	for i := range drafts {
		if fixed, ok := r.formalize(drafts[i]); ok {
			drafts[i] = fixed
			return
		}
	}
}

// formalize re-renders d with "Sie" as subject so the verb is conjugated
// to match. Prompts without a subject slot are left alone.
func (r *run) formalize(d draft) (draft, bool) {
	if !hasSlot(d.slots, template.SlotSubject) {
		return d, false
	}
	c := d.clone()
	c.values[template.SlotSubject] = "Sie"
	c.text = render(c)
	if !r.valid(c.text) {
		return d, false
	}
	return c, true
}

// applyConcreteness appends a clock time to the first prompts without a
// concreteness marker until at least two prompts carry one.
func (r *run) applyConcreteness(drafts []draft) {
	count := 0
	for _, d := range drafts {
		if lexicon.HasConcretenessMarker(d.text) {
			count++
		}
	}
	next := 0
	for i := range drafts {
		if count >= 2 {
			return
		}
		if lexicon.HasConcretenessMarker(drafts[i].text) {
			continue
		}
		clock := clockTimes[next%len(clockTimes)]
		text := insertBeforePunct(drafts[i].text, clock)
		if utf8.RuneCountInString(text) > MaxPromptLen {
			continue
		}
		drafts[i].text = text
		drafts[i].clock = clock
		count++
		next++
	}
}

func (r *run) finish(drafts []draft) []DraftPrompt {
	tpl := r.req.Template
	packID := r.req.Pack.PackID
	prompts := make([]DraftPrompt, len(drafts))

	var prev map[string][]string
	multi := 0
	for i, d := range drafts {
		filled := filledSlots(d)
		changed := changedSlots(d.slots, tpl.VariationSlots, prev, filled)

		var padded []string
		if !r.g.opts.DisableSlotPadding && len(changed) < 2 &&
			float64(multi)/float64(i+1) < MultiSlotFloor {
			padded = padSlots(changed, d.slots, tpl.VariationSlots, 2)
			changed = append(changed, padded...)
		}
		if len(changed) >= 2 {
			multi++
		}

		id := promptID(i + 1)
		intent := r.g.lex.DetectIntents(d.text, r.req.Scenario)[0]
		gloss := r.g.lex.Gloss(d.text, r.req.Scenario, intent)
		natural := gloss.Natural
		if natural == "" {
			natural = gloss.Gloss
		}

		prompts[i] = DraftPrompt{
			ID:           id,
			Text:         d.text,
			Intent:       intent,
			GlossEN:      gloss.Gloss,
			NaturalEN:    natural,
			LiteralEN:    literalPlaceholder,
			NotesLite:    truncateRunes(d.stepTitle+": "+strings.Join(d.slots, " + "), maxNotesLen),
			AudioURL:     fmt.Sprintf("/audio/%s/%s.mp3", packID, id),
			SlotsChanged: changed,
			SlotsPadded:  padded,
			Slots:        filled,
			StepID:       d.stepID,
		}
		prev = filled
	}
	return prompts
}

func filledSlots(d draft) map[string][]string {
	surface := realize(d)
	out := make(map[string][]string, len(d.slots))
	for i, slot := range d.slots {
		out[slot] = []string{surface[i]}
	}
	if d.clock != "" {
		out[template.SlotTime] = append(out[template.SlotTime], d.clock)
	}
	return out
}

// changedSlots lists the slots whose fill differs from prev: current slots
// first, then the other variation slots in variation order.
func changedSlots(slots, variation []string, prev, cur map[string][]string) []string {
	if prev == nil {
		return append([]string(nil), slots...)
	}
	var out []string
	for _, slot := range slots {
		if !equalFill(prev[slot], cur[slot]) {
			out = append(out, slot)
		}
	}
	for _, slot := range variation {
		if hasSlot(slots, slot) {
			continue
		}
		if !equalFill(prev[slot], cur[slot]) {
			out = append(out, slot)
		}
	}
	return out
}

// padSlots picks unused slot names, step slots first, until changed holds
// want entries.
func padSlots(changed, slots, variation []string, want int) []string {
	have := make(map[string]struct{}, len(changed))
	for _, s := range changed {
		have[s] = struct{}{}
	}
	var out []string
	for _, list := range [][]string{slots, variation} {
		for _, s := range list {
			if len(changed)+len(out) >= want {
				return out
			}
			if _, ok := have[s]; ok {
				continue
			}
			have[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}

func equalFill(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func promptID(n int) string {
	return fmt.Sprintf("prompt-%03d", n)
}

func insertBeforePunct(text, addition string) string {
	trimmed := strings.TrimRight(text, ".!?")
	return trimmed + " " + addition + text[len(trimmed):]
}

func hasSlot(slots []string, slot string) bool {
	for _, s := range slots {
		if s == slot {
			return true
		}
	}
	return false
}

func containsAny(s string, tokens []string) bool {
	for _, t := range tokens {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

func isPronoun(s string) bool {
	switch strings.ToLower(s) {
	case "ich", "du", "er", "sie", "es", "wir", "ihr":
		return true
	}
	return false
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}
