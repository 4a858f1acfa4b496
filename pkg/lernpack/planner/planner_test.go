package planner

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/lernpack/pkg/lernpack/ingest"
	"github.com/cognicore/lernpack/pkg/lernpack/lexicon"
)

func signal(id, intent string, tokens ...string) ingest.ExtractedSignal {
	ev := make([]ingest.TokenCount, len(tokens))
	for i, tok := range tokens {
		ev[i] = ingest.TokenCount{Token: tok, Count: 1}
	}
	return ingest.ExtractedSignal{
		ChunkID:         id,
		TopTokens:       tokens,
		DetectedIntents: []string{intent},
		Evidence:        ev,
	}
}

func assertBelowOverlap(t *testing.T, packs []PlannedPack, threshold float64) {
	t.Helper()
	for i := range packs {
		for j := i + 1; j < len(packs); j++ {
			assert.Less(t, Jaccard(packs[i].TopTokens, packs[j].TopTokens), threshold,
				"%s vs %s", packs[i].PackID, packs[j].PackID)
		}
	}
}

func TestPlanScenarioSentence(t *testing.T) {
	lex, err := lexicon.Default()
	require.NoError(t, err)
	ex := ingest.NewSignalExtractor(lex)
	chunks := ingest.Segment("Ich brauche einen Termin beim Bürgeramt. Das Formular ist wichtig.", 0)
	signals := ex.ExtractAll(chunks, "government_office")

	packs := New(DefaultOptions()).Plan(signals, "government_office", "A2")
	require.Len(t, packs, 1)

	p := packs[0]
	assert.Equal(t, "request", p.IntentCategory)
	assert.True(t, strings.HasPrefix(p.PackID, "government_office_request_a2_"))
	assert.Len(t, strings.TrimPrefix(p.PackID, "government_office_request_a2_"), 8)
	assert.Equal(t, "Government Office: Request", p.Title)
	assert.Equal(t, []string{chunks[0].ChunkID}, p.TargetChunks)
	assert.Equal(t, []string{"brauche", "bürgeramt", "formular", "termin", "wichtig"}, p.TopTokens)
	assert.Equal(t, []string{"government_office", "a2", "request"}, p.Tags)
}

func TestPlanIsDeterministic(t *testing.T) {
	signals := []ingest.ExtractedSignal{
		signal("c1", "request", "termin", "formular"),
		signal("c2", "ask", "wo", "amt", "schalter"),
		signal("c3", "request", "termin", "pass"),
		signal("c4", "inform", "wetter", "sonne"),
		signal("c5", "schedule", "montag", "uhr"),
	}
	p := New(DefaultOptions())

	first := p.Plan(signals, "government_office", "B1")
	second := p.Plan(signals, "government_office", "B1")
	require.NotEmpty(t, first)
	assert.Equal(t, first, second)
}

func TestPlanGroupsByPrimaryIntentInOrder(t *testing.T) {
	signals := []ingest.ExtractedSignal{
		signal("c1", "request", "termin", "formular"),
		signal("c2", "ask", "schalter", "nummer"),
		signal("c3", "request", "termin", "pass"),
	}
	packs := New(Options{MinPacks: 1}).Plan(signals, "government_office", "A1")
	require.Len(t, packs, 2)
	assert.Equal(t, "request", packs[0].IntentCategory)
	assert.Equal(t, []string{"c1", "c3"}, packs[0].TargetChunks)
	assert.Equal(t, []string{"termin", "formular", "pass"}, packs[0].TopTokens)
	assert.Equal(t, "ask", packs[1].IntentCategory)
}

func TestPlanInformSlugUsesTopTokens(t *testing.T) {
	signals := []ingest.ExtractedSignal{
		{ChunkID: "c1", DetectedIntents: []string{"inform"}, Evidence: []ingest.TokenCount{{Token: "wetter", Count: 3}, {Token: "sonne", Count: 1}, {Token: "regen", Count: 2}}},
	}
	packs := New(DefaultOptions()).Plan(signals, "work", "A1")
	require.Len(t, packs, 1)
	assert.True(t, strings.HasPrefix(packs[0].PackID, "work_wetter_regen_a1_"), packs[0].PackID)
	assert.Equal(t, "Work: Wetter Regen", packs[0].Title)
}

func TestPlanFillsDeficitFromSimilarLeftovers(t *testing.T) {
	signals := []ingest.ExtractedSignal{
		signal("c1", "request", "termin", "formular"),
		signal("c2", "request", "pass", "ausweis", "foto"),
		signal("c3", "request", "pass", "ausweis", "gebühr"),
		signal("c4", "request", "wohnung", "miete", "vertrag"),
	}
	packs := New(Options{MinPacks: 3, MaxPacks: 12}).Plan(signals, "government_office", "A2")
	require.Len(t, packs, 3)

	assert.Equal(t, []string{"c1"}, packs[0].TargetChunks)
	assert.Equal(t, []string{"c2", "c3"}, packs[1].TargetChunks)
	assert.Equal(t, []string{"c4"}, packs[2].TargetChunks)
	assert.True(t, strings.HasPrefix(packs[1].PackID, "government_office_request_ausweis_a2_"), packs[1].PackID)
	assertBelowOverlap(t, packs, 0.45)
}

func TestPlanMergesAboveCap(t *testing.T) {
	signals := []ingest.ExtractedSignal{
		signal("c1", "request", "termin", "formular", "amt"),
		signal("c2", "schedule", "termin", "formular", "amt", "montag"),
		signal("c3", "ask", "wetter", "sonne"),
	}
	packs := New(Options{MinPacks: 1, MaxPacks: 2}).Plan(signals, "government_office", "A2")
	require.Len(t, packs, 2)
	assert.Equal(t, []string{"c1", "c2"}, packs[0].TargetChunks)
	assert.Equal(t, []string{"government_office", "a2", "request", "schedule"}, packs[0].Tags)
	assert.Equal(t, "ask", packs[1].IntentCategory)
}

func TestPlanDropsOverlappingAndCaps(t *testing.T) {
	signals := []ingest.ExtractedSignal{
		signal("c1", "request", "termin", "formular", "amt"),
		signal("c2", "schedule", "termin", "formular", "amt"),
	}
	packs := New(Options{MinPacks: 1, MaxPacks: 12}).Plan(signals, "government_office", "A2")
	require.Len(t, packs, 1)
	assert.Equal(t, "request", packs[0].IntentCategory)

	var many []ingest.ExtractedSignal
	for i := 0; i < 20; i++ {
		many = append(many, signal(fmt.Sprintf("c%d", i), fmt.Sprintf("intent%d", i), fmt.Sprintf("tok%d", i), fmt.Sprintf("word%d", i)))
	}
	packs = New(Options{MinPacks: 1, MaxPacks: 4}).Plan(many, "work", "B2")
	assert.Len(t, packs, 4)
	assertBelowOverlap(t, packs, 0.45)
}

func TestPlanEmpty(t *testing.T) {
	assert.Empty(t, New(DefaultOptions()).Plan(nil, "work", "A1"))
}

func TestJaccard(t *testing.T) {
	assert.Equal(t, 0.0, Jaccard(nil, nil))
	assert.Equal(t, 1.0, Jaccard([]string{"a", "b"}, []string{"b", "a", "a"}))
	assert.InDelta(t, 1.0/3.0, Jaccard([]string{"a", "b"}, []string{"b", "c"}), 1e-9)
}
