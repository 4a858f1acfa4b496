package memstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/lernpack/pkg/lernpack/store"
	"github.com/cognicore/lernpack/pkg/lernpack/store/storetest"
)

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return New() })
}

func TestReturnedRecordsAreCopies(t *testing.T) {
	ctx := context.Background()
	st := New()
	require.NoError(t, st.UpsertPack(ctx, store.PackRecord{Workspace: "berlin", ID: "p", Tokens: []string{"termin"}}))

	got, _, err := st.GetPack(ctx, "berlin", "p")
	require.NoError(t, err)
	got.Tokens[0] = "changed"

	again, _, err := st.GetPack(ctx, "berlin", "p")
	require.NoError(t, err)
	assert.Equal(t, []string{"termin"}, again.Tokens)
}
