package quality

import (
	"fmt"

	"github.com/cognicore/lernpack/pkg/lernpack/internalerr"
)

// Stage is the review state a pack is gated at.
type Stage string

const (
	// StagePreApproval gates drafts before promotion: failures block.
	StagePreApproval Stage = "pre-approval"
	// StagePostApproval re-checks approved content: failures are advisory.
	StagePostApproval Stage = "post-approval"
)

// ParseStage converts a flag value into a Stage.
func ParseStage(s string) (Stage, error) {
	switch Stage(s) {
	case StagePreApproval, StagePostApproval:
		return Stage(s), nil
	}
	return "", fmt.Errorf("%w: unknown gate stage %q", internalerr.ErrInvalidInput, s)
}

// Policy turns a gate result into a promotion decision.
type Policy struct {
	// StrictWarnings makes warnings block at the pre-approval stage too.
	StrictWarnings bool
}

// Decision is the outcome of applying a Policy.
type Decision struct {
	Stage   Stage `json:"stage"`
	Passed  bool  `json:"passed"`
	Blocked bool  `json:"blocked"`
	// Advisory holds the failures that were reported without blocking.
	Advisory []Issue `json:"advisory,omitempty"`
}

// Decide applies the policy to res at stage.
func (p Policy) Decide(stage Stage, res Result) Decision {
	d := Decision{Stage: stage, Passed: res.Passed}
	switch stage {
	case StagePreApproval:
		d.Blocked = !res.Passed || (p.StrictWarnings && len(res.Warnings) > 0)
	default:
		d.Advisory = append([]Issue(nil), res.Failures...)
	}
	return d
}
