// Package planner groups extracted signals into a bounded set of packs with
// stable identifiers and limited topical overlap.
package planner

import (
	"crypto/sha1"
	"encoding/hex"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cognicore/lernpack/pkg/lernpack/ingest"
	"github.com/cognicore/lernpack/pkg/lernpack/lexicon"
)

const (
	maxPackTokens = 15
	idTokens      = 5
	packHashLen   = 8
)

// PlannedPack is the blueprint of one draft pack.
type PlannedPack struct {
	PackID           string   `json:"packId"`
	Title            string   `json:"title"`
	PrimaryStructure string   `json:"primaryStructure"`
	VariationSlots   []string `json:"variationSlots"`
	Register         string   `json:"register"`
	Tags             []string `json:"tags"`
	TargetChunks     []string `json:"targetChunks"`
	TopTokens        []string `json:"topTokens"`
	IntentCategory   string   `json:"intentCategory"`
}

// Defaults carries the template-level attributes copied into every pack.
type Defaults struct {
	Register         string
	PrimaryStructure string
	VariationSlots   []string
}

// Options bounds the plan.
type Options struct {
	MinPacks         int
	MaxPacks         int
	OverlapThreshold float64
	// GroupSimilarity is the Jaccard similarity above which leftover
	// signals are clustered into an extra pack.
	GroupSimilarity float64
	Defaults        Defaults
}

// DefaultOptions returns the standard bounds.
func DefaultOptions() Options {
	return Options{
		MinPacks:         6,
		MaxPacks:         12,
		OverlapThreshold: 0.45,
		GroupSimilarity:  0.3,
		Defaults: Defaults{
			Register:         "neutral",
			PrimaryStructure: "subject_verb_object",
			VariationSlots:   []string{"subject", "verb", "object"},
		},
	}
}

// Planner turns signals into PlannedPacks.
type Planner struct {
	opts Options
}

// New creates a planner. Zero-valued options fall back to DefaultOptions.
func New(opts Options) *Planner {
	def := DefaultOptions()
	if opts.MinPacks <= 0 {
		opts.MinPacks = def.MinPacks
	}
	if opts.MaxPacks <= 0 {
		opts.MaxPacks = def.MaxPacks
	}
	if opts.MinPacks > opts.MaxPacks {
		opts.MinPacks = opts.MaxPacks
	}
	if opts.OverlapThreshold <= 0 {
		opts.OverlapThreshold = def.OverlapThreshold
	}
	if opts.GroupSimilarity <= 0 {
		opts.GroupSimilarity = def.GroupSimilarity
	}
	if opts.Defaults.Register == "" {
		opts.Defaults.Register = def.Defaults.Register
	}
	if opts.Defaults.PrimaryStructure == "" {
		opts.Defaults.PrimaryStructure = def.Defaults.PrimaryStructure
	}
	if len(opts.Defaults.VariationSlots) == 0 {
		opts.Defaults.VariationSlots = def.Defaults.VariationSlots
	}
	return &Planner{opts: opts}
}

// Options returns the effective options.
func (p *Planner) Options() Options {
	return p.opts
}

// group is a working set of signals that becomes one pack.
type group struct {
	intent  string
	members []ingest.ExtractedSignal
	tags    []string
	tokens  []string
	// split marks groups carved out of another group to fill a deficit.
	split bool
}

// Plan groups signals by primary intent, fills a pack deficit from
// similar leftover signals, merges overlapping packs above the cap and
// finally drops packs too similar to an earlier one. The result depends
// only on the inputs and their order.
func (p *Planner) Plan(signals []ingest.ExtractedSignal, scenario, level string) []PlannedPack {
	if len(signals) == 0 {
		return nil
	}

	groups := groupByIntent(signals, scenario, level)
	if len(groups) < p.opts.MinPacks {
		groups = p.fillDeficit(groups, scenario, level)
	}
	for _, g := range groups {
		g.tokens = aggregateTokens(g.members)
	}
	for len(groups) > p.opts.MaxPacks {
		merged, ok := p.mergeClosest(groups)
		if !ok {
			break
		}
		groups = merged
	}

	packs := make([]PlannedPack, 0, len(groups))
	for _, g := range groups {
		packs = append(packs, p.build(g, scenario, level))
	}
	return p.filterOverlap(packs)
}

func groupByIntent(signals []ingest.ExtractedSignal, scenario, level string) []*group {
	var groups []*group
	index := make(map[string]*group)
	for _, sig := range signals {
		intent := sig.PrimaryIntent()
		if intent == "" {
			intent = lexicon.DefaultIntent
		}
		g, ok := index[intent]
		if !ok {
			g = &group{intent: intent, tags: baseTags(scenario, level, intent)}
			index[intent] = g
			groups = append(groups, g)
		}
		g.members = append(g.members, sig)
	}
	return groups
}

// fillDeficit clusters the non-anchor members of multi-signal groups and
// moves each cluster into a new group until the deficit is covered.
func (p *Planner) fillDeficit(groups []*group, scenario, level string) []*group {
	deficit := p.opts.MinPacks - len(groups)

	type candidate struct {
		sig    ingest.ExtractedSignal
		source *group
		tokens []string
	}
	var cands []candidate
	for _, g := range groups {
		if len(g.members) < 2 {
			continue
		}
		for _, sig := range g.members[1:] {
			cands = append(cands, candidate{sig: sig, source: g, tokens: signalTokens(sig)})
		}
	}

	used := make([]bool, len(cands))
	moved := make(map[string]struct{})
	var extra []*group
	for i := 0; i < len(cands) && len(extra) < deficit; i++ {
		if used[i] {
			continue
		}
		used[i] = true
		seed := cands[i]
		intent := seed.source.intent
		ng := &group{intent: intent, tags: baseTags(scenario, level, intent), split: true}
		ng.members = append(ng.members, seed.sig)
		moved[seed.sig.ChunkID] = struct{}{}
		for j := i + 1; j < len(cands); j++ {
			if used[j] {
				continue
			}
			if Jaccard(seed.tokens, cands[j].tokens) > p.opts.GroupSimilarity {
				used[j] = true
				ng.members = append(ng.members, cands[j].sig)
				moved[cands[j].sig.ChunkID] = struct{}{}
			}
		}
		extra = append(extra, ng)
	}

	for _, g := range groups {
		if len(g.members) < 2 {
			continue
		}
		kept := g.members[:1:1]
		for _, sig := range g.members[1:] {
			if _, ok := moved[sig.ChunkID]; !ok {
				kept = append(kept, sig)
			}
		}
		g.members = kept
	}
	return append(groups, extra...)
}

// mergeClosest merges the most similar pair of groups if their similarity
// exceeds the overlap threshold.
func (p *Planner) mergeClosest(groups []*group) ([]*group, bool) {
	bestI, bestJ := -1, -1
	best := 0.0
	for i := 0; i < len(groups); i++ {
		for j := i + 1; j < len(groups); j++ {
			if sim := Jaccard(groups[i].tokens, groups[j].tokens); sim > best {
				best, bestI, bestJ = sim, i, j
			}
		}
	}
	if bestI < 0 || best <= p.opts.OverlapThreshold {
		return groups, false
	}

	into, from := groups[bestI], groups[bestJ]
	into.members = append(into.members, from.members...)
	into.tags = union(into.tags, from.tags)
	into.tokens = aggregateTokens(into.members)

	out := make([]*group, 0, len(groups)-1)
	out = append(out, groups[:bestJ]...)
	return append(out, groups[bestJ+1:]...), true
}

func (p *Planner) build(g *group, scenario, level string) PlannedPack {
	slug := topicSlug(g.intent, g.tokens)
	if g.split && g.intent != lexicon.DefaultIntent && len(g.tokens) > 0 {
		slug += "_" + g.tokens[0]
	}
	return PlannedPack{
		PackID:           PackID(scenario, slug, level, g.tokens),
		Title:            humanize(scenario) + ": " + humanize(slug),
		PrimaryStructure: p.opts.Defaults.PrimaryStructure,
		VariationSlots:   append([]string(nil), p.opts.Defaults.VariationSlots...),
		Register:         p.opts.Defaults.Register,
		Tags:             append([]string(nil), g.tags...),
		TargetChunks:     chunkIDs(g.members),
		TopTokens:        append([]string(nil), g.tokens...),
		IntentCategory:   g.intent,
	}
}

// filterOverlap keeps packs in order, dropping any pack whose token set is
// at least OverlapThreshold similar to an accepted pack, then caps the
// result at MaxPacks.
func (p *Planner) filterOverlap(packs []PlannedPack) []PlannedPack {
	var accepted []PlannedPack
	ids := make(map[string]struct{})
	for _, pack := range packs {
		if _, dup := ids[pack.PackID]; dup {
			continue
		}
		keep := true
		for _, a := range accepted {
			if Jaccard(a.TopTokens, pack.TopTokens) >= p.opts.OverlapThreshold {
				keep = false
				break
			}
		}
		if !keep {
			continue
		}
		ids[pack.PackID] = struct{}{}
		accepted = append(accepted, pack)
	}
	if len(accepted) > p.opts.MaxPacks {
		accepted = accepted[:p.opts.MaxPacks]
	}
	return accepted
}

// PackID derives the stable pack identifier from scenario, topic slug,
// level and the first five tokens.
func PackID(scenario, slug, level string, tokens []string) string {
	top := tokens
	if len(top) > idTokens {
		top = top[:idTokens]
	}
	key := strings.Join([]string{scenario, slug, level, strings.Join(top, "_")}, "_")
	sum := sha1.Sum([]byte(key))
	return scenario + "_" + slug + "_" + strings.ToLower(level) + "_" + hex.EncodeToString(sum[:])[:packHashLen]
}

// Jaccard returns |a ∩ b| / |a ∪ b| over the distinct elements of a and b.
// Two empty sets have similarity 0.
func Jaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	setA := make(map[string]struct{}, len(a))
	for _, t := range a {
		setA[t] = struct{}{}
	}
	union := len(setA)
	inter := 0
	seenB := make(map[string]struct{}, len(b))
	for _, t := range b {
		if _, ok := seenB[t]; ok {
			continue
		}
		seenB[t] = struct{}{}
		if _, ok := setA[t]; ok {
			inter++
		} else {
			union++
		}
	}
	return float64(inter) / float64(union)
}

// aggregateTokens sums evidence counts over members and returns the top
// tokens, count descending and then alphabetical.
func aggregateTokens(members []ingest.ExtractedSignal) []string {
	counts := make(map[string]int)
	for _, sig := range members {
		if len(sig.Evidence) == 0 {
			for _, tok := range sig.TopTokens {
				counts[tok]++
			}
			continue
		}
		for _, ev := range sig.Evidence {
			counts[ev.Token] += ev.Count
		}
	}

	tokens := make([]string, 0, len(counts))
	for tok := range counts {
		tokens = append(tokens, tok)
	}
	sort.Slice(tokens, func(i, j int) bool {
		if counts[tokens[i]] != counts[tokens[j]] {
			return counts[tokens[i]] > counts[tokens[j]]
		}
		return tokens[i] < tokens[j]
	})
	if len(tokens) > maxPackTokens {
		tokens = tokens[:maxPackTokens]
	}
	return tokens
}

func signalTokens(sig ingest.ExtractedSignal) []string {
	if len(sig.TopTokens) > 0 {
		return sig.TopTokens
	}
	out := make([]string, len(sig.Evidence))
	for i, ev := range sig.Evidence {
		out[i] = ev.Token
	}
	return out
}

func topicSlug(intent string, tokens []string) string {
	if intent != lexicon.DefaultIntent {
		return intent
	}
	if len(tokens) == 0 {
		return intent
	}
	n := 2
	if len(tokens) < n {
		n = len(tokens)
	}
	return strings.Join(tokens[:n], "_")
}

func baseTags(scenario, level, intent string) []string {
	return union(nil, []string{scenario, strings.ToLower(level), intent})
}

func chunkIDs(members []ingest.ExtractedSignal) []string {
	ids := make([]string, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.ChunkID)
	}
	return union(nil, ids)
}

// union appends the elements of b missing from a, keeping order.
func union(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, v := range list {
			if v == "" {
				continue
			}
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}

func humanize(s string) string {
	words := strings.FieldsFunc(s, func(r rune) bool { return r == '_' || r == '-' })
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}
