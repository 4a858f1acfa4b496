package lexicon

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/lernpack/pkg/lernpack/internalerr"
)

func TestDefaultLexiconLoads(t *testing.T) {
	lex, err := Default()
	require.NoError(t, err)

	tokens, ok := lex.ScenarioTokens("government_office")
	require.True(t, ok)
	assert.Contains(t, tokens, "termin")
	assert.Contains(t, tokens, "formular")
	assert.True(t, lex.IsStopword("einen"))
	assert.False(t, lex.IsStopword("termin"))
}

func TestDetectIntentsOrderAndFallback(t *testing.T) {
	lex, err := Default()
	require.NoError(t, err)

	intents := lex.DetectIntents("Ich brauche einen Termin beim Bürgeramt. Das Formular ist wichtig.", "government_office")
	assert.Equal(t, []string{"request", "schedule", "submit_documents"}, intents)

	assert.Equal(t, []string{DefaultIntent}, lex.DetectIntents("Das Wetter ist schön.", "government_office"))
}

func TestDetectIntentsScenarioRulesComeFirst(t *testing.T) {
	lex, err := Default()
	require.NoError(t, err)

	intents := lex.DetectIntents("Ich habe seit gestern Fieber.", "doctor")
	require.NotEmpty(t, intents)
	assert.Equal(t, "describe_symptoms", intents[0])
}

func TestBannedPhraseCaseInsensitive(t *testing.T) {
	lex, err := Default()
	require.NoError(t, err)

	phrase, ok := lex.BannedPhrase("In Today's Lesson we order coffee.")
	assert.True(t, ok)
	assert.Equal(t, "in today's lesson", phrase)

	_, ok = lex.BannedPhrase("Ich brauche einen Termin.")
	assert.False(t, ok)
}

func TestTokenHitsSubstring(t *testing.T) {
	lex, err := Default()
	require.NoError(t, err)

	hits := lex.TokenHits("Ich hole meinen Reisepass im Bürgeramt ab.", "government_office")
	assert.Equal(t, []string{"pass", "amt"}, hits)
	assert.Nil(t, lex.TokenHits("anything", "unknown_scenario"))
}

func TestGlossLookupAndFallback(t *testing.T) {
	lex, err := Default()
	require.NoError(t, err)

	g := lex.Gloss("Ich brauche einen Termin.", "government_office", "request")
	assert.Equal(t, "I'd like to book an appointment.", g.Natural)

	g = lex.Gloss("Ich warte hier.", "government_office", "inform")
	assert.NotEmpty(t, g.Natural)
}

func TestActionVerbsUnion(t *testing.T) {
	lex, err := Default()
	require.NoError(t, err)

	verbs := lex.ActionVerbs("government_office")
	assert.Contains(t, verbs, "brauchen")
	assert.Contains(t, verbs, "beantragen")
}

func TestMarkers(t *testing.T) {
	assert.True(t, HasConcretenessMarker("Der Termin ist um 10:30."))
	assert.True(t, HasConcretenessMarker("Das kostet €."))
	assert.True(t, HasConcretenessMarker("Zimmer 4"))
	assert.False(t, HasConcretenessMarker("Ich brauche einen Termin."))

	assert.True(t, HasFormalAddress("Können Sie mir helfen?"))
	assert.True(t, HasFormalAddress("Ich gebe Ihnen das Formular."))
	assert.False(t, HasFormalAddress("Siebzehn Formulare liegen hier."))
}

func TestParseRejectsBadPattern(t *testing.T) {
	_, err := Parse([]byte("intents:\n  - intent: ask\n    patterns: ['(']\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, internalerr.ErrInvalidConfig))

	_, err = Parse([]byte("stopwords: [unterminated"))
	assert.True(t, errors.Is(err, internalerr.ErrInvalidConfig))
}
