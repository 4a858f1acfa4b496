package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/lernpack/pkg/lernpack/generate"
	"github.com/cognicore/lernpack/pkg/lernpack/ingest"
	"github.com/cognicore/lernpack/pkg/lernpack/lexicon"
	"github.com/cognicore/lernpack/pkg/lernpack/planner"
	"github.com/cognicore/lernpack/pkg/lernpack/template"
)

func newEvaluator(t *testing.T) *Evaluator {
	t.Helper()
	lex, err := lexicon.Default()
	require.NoError(t, err)
	return NewEvaluator(lex)
}

func prompt(id, text string, changed ...string) generate.DraftPrompt {
	return generate.DraftPrompt{ID: id, Text: text, NaturalEN: "Natural.", SlotsChanged: changed}
}

// goodPack passes every rule.
func goodPack() *generate.DraftPack {
	return &generate.DraftPack{
		ID:       "government_office_request_a2_1a2b3c4d",
		Level:    "A2",
		Scenario: "government_office",
		Register: "formal",
		Prompts: []generate.DraftPrompt{
			prompt("prompt-001", "Sie brauchen einen Termin im Bürgeramt um 10:30.", "subject", "verb"),
			prompt("prompt-002", "Ich habe das Formular im Bürgeramt um 8:15."),
			prompt("prompt-003", "Wir holen den Pass beim Standesamt.", "subject", "verb", "object"),
			prompt("prompt-004", "Ich bringe den Antrag zur Behörde."),
		},
	}
}

func rulesOf(issues []Issue) []string {
	out := make([]string, len(issues))
	for i, is := range issues {
		out[i] = is.Rule
	}
	return out
}

func TestRunPassesGoodPack(t *testing.T) {
	res := newEvaluator(t).Run(goodPack())
	assert.True(t, res.Passed, "%+v", res.Failures)
	assert.Empty(t, res.Failures)
	assert.Empty(t, res.Warnings)
}

func TestRunFlagsBannedPhrase(t *testing.T) {
	pack := goodPack()
	pack.Prompts[1].Text = "In today's lesson: Termin im Bürgeramt."

	res := newEvaluator(t).Run(pack)
	assert.False(t, res.Passed)
	require.Contains(t, res.Failures, Issue{
		PromptID: "prompt-002",
		PackID:   pack.ID,
		Rule:     RuleBannedPhrases,
		Reason:   `contains banned phrase "in today's lesson"`,
	})
}

func TestRunIsIdempotent(t *testing.T) {
	e := newEvaluator(t)
	pack := goodPack()
	pack.Prompts[0].Text = "Kurz."

	first := e.Run(pack)
	second := e.Run(pack)
	assert.Equal(t, first, second)
	assert.False(t, first.Passed)
}

func TestRunEmptyPackShortCircuits(t *testing.T) {
	res := newEvaluator(t).Run(&generate.DraftPack{ID: "p", Scenario: "government_office", Register: "formal"})
	assert.False(t, res.Passed)
	assert.Equal(t, []string{RulePromptCount}, rulesOf(res.Failures))
	assert.Empty(t, res.Warnings)
}

func TestRunPromptRules(t *testing.T) {
	pack := goodPack()
	pack.Prompts[2].Text = "Wir holen den Pass."
	pack.Prompts[3].NaturalEN = ""
	pack.Prompts[3].Text = "Ich bringe den Antrag zur Behörde und danach noch sehr viele weitere Unterlagen, Formulare, Bescheinigungen und Nachweise aus dem Amt, bevor der Termin beginnt."

	res := newEvaluator(t).Run(pack)
	assert.False(t, res.Passed)
	assert.Contains(t, res.Failures, Issue{
		PromptID: "prompt-003", PackID: pack.ID, Rule: RuleScenarioTokens,
		Reason: "found 1 scenario tokens [pass], need 2",
	})
	assert.Equal(t, []string{RuleScenarioTokens, RulePromptLength, RuleNaturalENRequired}, rulesOf(res.Failures))
}

func TestRunNaturalRequiredByLevel(t *testing.T) {
	e := newEvaluator(t)
	pack := &generate.DraftPack{
		ID: "work_coordinate_a1_00000000", Level: "A1", Scenario: "work", Register: "neutral",
		Prompts: []generate.DraftPrompt{
			{ID: "prompt-001", Text: "Ich plane das Projekt im Büro um 9:00.", SlotsChanged: []string{"subject", "verb"}},
			{ID: "prompt-002", Text: "Wir erledigen den Bericht im Büro bis 17 Uhr."},
		},
	}
	assert.NotContains(t, rulesOf(e.Run(pack).Failures), RuleNaturalENRequired)

	pack.Level = "B1"
	assert.Contains(t, rulesOf(e.Run(pack).Failures), RuleNaturalENRequired)
}

func TestRunPackLevelRules(t *testing.T) {
	pack := goodPack()
	for i := range pack.Prompts {
		pack.Prompts[i].SlotsChanged = nil
	}
	pack.Prompts[0].Text = "Ich brauche einen Termin im Bürgeramt."
	pack.Prompts[1].Text = "Ich habe das Formular im Bürgeramt."

	res := newEvaluator(t).Run(pack)
	assert.Equal(t,
		[]string{RuleMultiSlotVariation, RuleRegisterConsistency, RuleConcretenessMarkers},
		rulesOf(res.Failures))
	for _, f := range res.Failures {
		assert.Empty(t, f.PromptID)
		assert.Equal(t, pack.ID, f.PackID)
	}
}

func TestRunVerbVariationIsWarning(t *testing.T) {
	pack := goodPack()
	pack.Prompts[0].Text = "Sie brauchen einen Termin im Bürgeramt um 10:30."
	pack.Prompts[1].Text = "Sie brauchen das Formular im Bürgeramt um 8:15."
	pack.Prompts[2].Text = "Sie brauchen den Pass beim Standesamt."
	pack.Prompts[3].Text = "Sie brauchen den Antrag zur Behörde."

	res := newEvaluator(t).Run(pack)
	assert.True(t, res.Passed)
	assert.Equal(t, []string{RuleVerbVariation}, rulesOf(res.Warnings))
}

func TestGeneratedScenarioPackPassesGates(t *testing.T) {
	lex, err := lexicon.Default()
	require.NoError(t, err)
	tpl, err := template.Builtin("government_office")
	require.NoError(t, err)

	text := "Ich brauche einen Termin beim Bürgeramt. Das Formular ist wichtig."
	signals := ingest.NewSignalExtractor(lex).ExtractAll(ingest.Segment(text, 0), "government_office")
	opts := planner.DefaultOptions()
	opts.Defaults = planner.Defaults{Register: tpl.DefaultRegister, PrimaryStructure: tpl.PrimaryStructure, VariationSlots: tpl.VariationSlots}
	packs := planner.New(opts).Plan(signals, "government_office", "A2")
	require.NotEmpty(t, packs)

	pack, err := generate.New(lex, generate.Options{}).GeneratePack(generate.PackRequest{
		Request: generate.Request{Pack: packs[0], Signals: signals, Template: tpl, Scenario: "government_office", Level: "A2"},
		Source:  "text",
	})
	require.NoError(t, err)

	res := NewEvaluator(lex).Run(pack)
	assert.True(t, res.Passed, "%+v", res.Failures)
	assert.NotContains(t, rulesOf(res.Failures), RuleRegisterConsistency)
}
