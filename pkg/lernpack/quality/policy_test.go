package quality

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/lernpack/pkg/lernpack/internalerr"
)

func TestParseStage(t *testing.T) {
	s, err := ParseStage("post-approval")
	require.NoError(t, err)
	assert.Equal(t, StagePostApproval, s)

	_, err = ParseStage("approved")
	assert.True(t, errors.Is(err, internalerr.ErrInvalidInput))
}

func TestPolicyDecide(t *testing.T) {
	failed := Result{
		Failures: []Issue{{PackID: "p", Rule: RuleConcretenessMarkers, Reason: "x"}},
	}
	warned := Result{Passed: true, Warnings: []Issue{{PackID: "p", Rule: RuleVerbVariation}}}

	d := Policy{}.Decide(StagePreApproval, failed)
	assert.True(t, d.Blocked)
	assert.Empty(t, d.Advisory)

	d = Policy{}.Decide(StagePostApproval, failed)
	assert.False(t, d.Blocked)
	assert.False(t, d.Passed)
	assert.Equal(t, failed.Failures, d.Advisory)

	assert.False(t, Policy{}.Decide(StagePreApproval, warned).Blocked)
	assert.True(t, Policy{StrictWarnings: true}.Decide(StagePreApproval, warned).Blocked)
	assert.False(t, Policy{StrictWarnings: true}.Decide(StagePostApproval, warned).Blocked)
}
