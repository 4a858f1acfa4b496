package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/cognicore/lernpack/pkg/lernpack/store"
	"github.com/cognicore/lernpack/pkg/lernpack/store/storetest"
)

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		st, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "index.db"))
		if err != nil {
			t.Fatalf("OpenSQLite: %v", err)
		}
		return st
	})
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "index.db")

	st, err := OpenSQLite(ctx, dbPath)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	rec := store.PackRecord{
		ID:        "work_request_b1_0badc0de",
		RunID:     "run",
		Workspace: "berlin",
		Scenario:  "work",
		Level:     "B1",
		Tokens:    []string{"meeting"},
		CreatedAt: time.Now(),
	}
	if err := st.UpsertPack(ctx, rec); err != nil {
		t.Fatalf("UpsertPack: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	st, err = OpenSQLite(ctx, dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer st.Close()

	got, ok, err := st.GetPack(ctx, rec.Workspace, rec.ID)
	if err != nil {
		t.Fatalf("GetPack: %v", err)
	}
	if !ok {
		t.Fatal("pack should survive reopen")
	}
	if got.Level != "B1" || len(got.Tokens) != 1 || got.Tokens[0] != "meeting" {
		t.Errorf("unexpected record after reopen: %+v", got)
	}
}
