package generate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cognicore/lernpack/pkg/lernpack/internalerr"
)

func TestSearchReturnsFirstAccepted(t *testing.T) {
	n := 0
	draw := func() int { n++; return n }
	check := func(v int) (int, bool) { return v * 10, v == 3 }

	got, attempts, ok := Search(10, draw, check)
	assert.True(t, ok)
	assert.Equal(t, 30, got)
	assert.Equal(t, 3, attempts)
}

func TestSearchExhausts(t *testing.T) {
	calls := 0
	got, attempts, ok := Search(5, func() string { calls++; return "x" }, func(s string) (string, bool) { return s, false })
	assert.False(t, ok)
	assert.Equal(t, "", got)
	assert.Equal(t, 5, attempts)
	assert.Equal(t, 5, calls)
}

func TestExhaustedErrorUnwraps(t *testing.T) {
	var err error = &ExhaustedError{PackID: "p", StepID: "s", Slot: "prompt-001", Attempts: 100}
	assert.True(t, errors.Is(err, internalerr.ErrGenerationExhausted))
	assert.Contains(t, err.Error(), "after 100 attempts")
}
