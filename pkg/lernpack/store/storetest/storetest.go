// Package storetest holds the behaviour every store.Store implementation
// must share.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/lernpack/pkg/lernpack/internalerr"
	"github.com/cognicore/lernpack/pkg/lernpack/store"
)

// Opener returns a fresh, empty store.
type Opener func(t *testing.T) store.Store

var base = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func pack(id, ws, scenario string, passed bool, age time.Duration, tokens ...string) store.PackRecord {
	p := store.PackRecord{
		ID:        id,
		RunID:     "run-" + id,
		Workspace: ws,
		Scenario:  scenario,
		Level:     "A2",
		Title:     "Pack " + id,
		Path:      "/tmp/" + id + ".json",
		Prompts:   12,
		Passed:    passed,
		Tokens:    tokens,
		CreatedAt: base.Add(-age),
	}
	if !passed {
		p.Failures = []string{"token_coverage", "token_coverage", "multi_slot_rate"}
	}
	return p
}

// Run exercises the full Store contract.
func Run(t *testing.T, open Opener) {
	t.Run("UpsertAndGet", func(t *testing.T) { testUpsertAndGet(t, open(t)) })
	t.Run("WorkspacesKeepOwnPacks", func(t *testing.T) { testWorkspacesKeepOwnPacks(t, open(t)) })
	t.Run("ListPacks", func(t *testing.T) { testListPacks(t, open(t)) })
	t.Run("PacksByTokens", func(t *testing.T) { testPacksByTokens(t, open(t)) })
	t.Run("Runs", func(t *testing.T) { testRuns(t, open(t)) })
}

func testUpsertAndGet(t *testing.T, st store.Store) {
	ctx := context.Background()
	defer st.Close()

	_, ok, err := st.GetPack(ctx, "berlin", "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	p := pack("doctor_request_a2_aaaa0001", "berlin", "doctor", false, 0, "termin", "praxis", "termin")
	require.NoError(t, st.UpsertPack(ctx, p))

	got, ok, err := st.GetPack(ctx, "berlin", p.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Pack doctor_request_a2_aaaa0001", got.Title)
	assert.False(t, got.Passed)
	assert.Equal(t, []string{"token_coverage", "multi_slot_rate"}, got.Failures)
	assert.Equal(t, []string{"termin", "praxis"}, got.Tokens)
	assert.True(t, got.CreatedAt.Equal(p.CreatedAt))

	p.Passed = true
	p.Failures = nil
	p.Tokens = []string{"rezept"}
	require.NoError(t, st.UpsertPack(ctx, p))

	got, ok, err = st.GetPack(ctx, "berlin", p.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.Passed)
	assert.Empty(t, got.Failures)
	assert.Equal(t, []string{"rezept"}, got.Tokens)

	err = st.UpsertPack(ctx, store.PackRecord{})
	assert.True(t, errors.Is(err, internalerr.ErrInvalidInput))
	err = st.UpsertPack(ctx, store.PackRecord{ID: "no_workspace"})
	assert.True(t, errors.Is(err, internalerr.ErrInvalidInput))
}

func testWorkspacesKeepOwnPacks(t *testing.T, st store.Store) {
	ctx := context.Background()
	defer st.Close()

	const id = "government_office_request_a2_1f2e3d4c"
	berlin := pack(id, "berlin", "government_office", true, time.Hour, "termin", "formular")
	hamburg := pack(id, "hamburg", "government_office", false, 0, "termin")
	hamburg.Path = "/tmp/hamburg/" + id + ".json"
	require.NoError(t, st.UpsertPack(ctx, berlin))
	require.NoError(t, st.UpsertPack(ctx, hamburg))

	got, ok, err := st.GetPack(ctx, "berlin", id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.Passed)
	assert.Equal(t, berlin.Path, got.Path)
	assert.Equal(t, []string{"termin", "formular"}, got.Tokens)

	got, ok, err = st.GetPack(ctx, "hamburg", id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, got.Passed)
	assert.Equal(t, []string{"termin"}, got.Tokens)

	for _, ws := range []string{"berlin", "hamburg"} {
		packs, err := st.ListPacks(ctx, store.PackFilter{Workspace: ws})
		require.NoError(t, err)
		require.Len(t, packs, 1, ws)
		assert.Equal(t, ws, packs[0].Workspace)
	}

	packs, err := st.PacksByTokens(ctx, []string{"formular"}, 0)
	require.NoError(t, err)
	require.Len(t, packs, 1)
	assert.Equal(t, "berlin", packs[0].Workspace)

	packs, err = st.PacksByTokens(ctx, []string{"termin"}, 0)
	require.NoError(t, err)
	assert.Len(t, packs, 2)
}

func testListPacks(t *testing.T, st store.Store) {
	ctx := context.Background()
	defer st.Close()

	for _, p := range []store.PackRecord{
		pack("a", "berlin", "doctor", true, 3*time.Hour),
		pack("b", "berlin", "doctor", false, 2*time.Hour),
		pack("c", "berlin", "shopping", true, time.Hour),
		pack("d", "hamburg", "doctor", true, 0),
	} {
		require.NoError(t, st.UpsertPack(ctx, p))
	}

	ids := func(f store.PackFilter) []string {
		packs, err := st.ListPacks(ctx, f)
		require.NoError(t, err)
		var out []string
		for _, p := range packs {
			out = append(out, p.ID)
		}
		return out
	}

	assert.Equal(t, []string{"d", "c", "b", "a"}, ids(store.PackFilter{}))
	assert.Equal(t, []string{"c", "b", "a"}, ids(store.PackFilter{Workspace: "berlin"}))
	assert.Equal(t, []string{"b", "a"}, ids(store.PackFilter{Workspace: "berlin", Scenario: "doctor"}))
	assert.Equal(t, []string{"a"}, ids(store.PackFilter{Workspace: "berlin", Scenario: "doctor", PassedOnly: true}))
	assert.Equal(t, []string{"d", "c"}, ids(store.PackFilter{Limit: 2}))
}

func testPacksByTokens(t *testing.T, st store.Store) {
	ctx := context.Background()
	defer st.Close()

	require.NoError(t, st.UpsertPack(ctx, pack("old", "berlin", "doctor", true, time.Hour, "termin", "praxis")))
	require.NoError(t, st.UpsertPack(ctx, pack("new", "berlin", "government_office", true, 0, "termin", "formular")))
	require.NoError(t, st.UpsertPack(ctx, pack("other", "berlin", "shopping", true, 0, "kasse")))

	packs, err := st.PacksByTokens(ctx, []string{"termin", "", "termin"}, 0)
	require.NoError(t, err)
	require.Len(t, packs, 2)
	assert.Equal(t, "new", packs[0].ID)
	assert.Equal(t, "old", packs[1].ID)

	packs, err = st.PacksByTokens(ctx, []string{"praxis", "kasse"}, 1)
	require.NoError(t, err)
	require.Len(t, packs, 1)
	assert.Equal(t, "other", packs[0].ID)

	packs, err = st.PacksByTokens(ctx, nil, 10)
	require.NoError(t, err)
	assert.Empty(t, packs)
}

func testRuns(t *testing.T, st store.Store) {
	ctx := context.Background()
	defer st.Close()

	first := store.RunRecord{
		ID:             "01J0000000000000000000000A",
		Workspace:      "berlin",
		Scenario:       "doctor",
		Level:          "A2",
		Source:         "text",
		Packs:          6,
		PacksPassed:    5,
		Prompts:        72,
		PromptsPassed:  60,
		ReportJSON:     "/reports/a.json",
		ReportMarkdown: "/reports/a.md",
		CreatedAt:      base,
	}
	second := first
	second.ID = "01J0000000000000000000000B"
	second.CreatedAt = base.Add(time.Minute)
	elsewhere := first
	elsewhere.ID = "01J0000000000000000000000C"
	elsewhere.Workspace = "hamburg"

	for _, r := range []store.RunRecord{first, second, elsewhere} {
		require.NoError(t, st.RecordRun(ctx, r))
	}
	err := st.RecordRun(ctx, first)
	assert.True(t, errors.Is(err, internalerr.ErrDuplicate))

	runs, err := st.ListRuns(ctx, "berlin", 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.ID, runs[0].ID)
	assert.Equal(t, first.ID, runs[1].ID)
	assert.Equal(t, 60, runs[1].PromptsPassed)
	assert.Equal(t, "/reports/a.md", runs[1].ReportMarkdown)
	assert.True(t, runs[1].CreatedAt.Equal(base))

	runs, err = st.ListRuns(ctx, "", 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, second.ID, runs[0].ID)
}
