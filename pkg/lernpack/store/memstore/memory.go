package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/cognicore/lernpack/pkg/lernpack/internalerr"
	"github.com/cognicore/lernpack/pkg/lernpack/store"
)

// Store is an in-memory implementation of store.Store for tests and
// one-shot CLI runs without an index file.
type Store struct {
	mu    sync.RWMutex
	packs map[packKey]store.PackRecord
	runs  map[string]store.RunRecord
}

type packKey struct {
	workspace string
	id        string
}

// New creates an empty store.
func New() *Store {
	return &Store{
		packs: make(map[packKey]store.PackRecord),
		runs:  make(map[string]store.RunRecord),
	}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// UpsertPack inserts or replaces a pack, keyed by workspace and ID.
func (s *Store) UpsertPack(ctx context.Context, p store.PackRecord) error {
	if p.ID == "" || p.Workspace == "" {
		return fmt.Errorf("%w: pack needs workspace and id", internalerr.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p.Failures = uniqueStrings(p.Failures)
	p.Tokens = uniqueStrings(p.Tokens)
	s.packs[packKey{p.Workspace, p.ID}] = copyPack(p)
	return nil
}

// GetPack returns the pack of a workspace by ID.
func (s *Store) GetPack(ctx context.Context, workspace, id string) (store.PackRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.packs[packKey{workspace, id}]
	if !ok {
		return store.PackRecord{}, false, nil
	}
	return copyPack(p), true, nil
}

// ListPacks returns matching packs, newest first.
func (s *Store) ListPacks(ctx context.Context, f store.PackFilter) ([]store.PackRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []store.PackRecord
	for _, p := range s.packs {
		if f.Match(p) {
			out = append(out, copyPack(p))
		}
	}
	return limitPacks(out, f.Limit), nil
}

// PacksByTokens returns packs carrying any of tokens, newest first.
func (s *Store) PacksByTokens(ctx context.Context, tokens []string, limit int) ([]store.PackRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	want := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		if tok != "" {
			want[tok] = struct{}{}
		}
	}
	if len(want) == 0 {
		return nil, nil
	}

	var out []store.PackRecord
	for _, p := range s.packs {
		for _, tok := range p.Tokens {
			if _, ok := want[tok]; ok {
				out = append(out, copyPack(p))
				break
			}
		}
	}
	return limitPacks(out, limit), nil
}

// RecordRun stores a run. Run IDs are write-once.
func (s *Store) RecordRun(ctx context.Context, r store.RunRecord) error {
	if r.ID == "" {
		return fmt.Errorf("%w: run without id", internalerr.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[r.ID]; ok {
		return fmt.Errorf("%w: run %s", internalerr.ErrDuplicate, r.ID)
	}
	s.runs[r.ID] = r
	return nil
}

// ListRuns returns the runs of a workspace (all when empty), newest first.
func (s *Store) ListRuns(ctx context.Context, workspace string, limit int) ([]store.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []store.RunRecord
	for _, r := range s.runs {
		if workspace == "" || r.Workspace == workspace {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit <= 0 {
		limit = store.DefaultLimit
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func limitPacks(packs []store.PackRecord, limit int) []store.PackRecord {
	sort.Slice(packs, func(i, j int) bool {
		if !packs[i].CreatedAt.Equal(packs[j].CreatedAt) {
			return packs[i].CreatedAt.After(packs[j].CreatedAt)
		}
		if packs[i].ID != packs[j].ID {
			return packs[i].ID < packs[j].ID
		}
		return packs[i].Workspace < packs[j].Workspace
	})
	if limit <= 0 {
		limit = store.DefaultLimit
	}
	if len(packs) > limit {
		packs = packs[:limit]
	}
	return packs
}

func copyPack(p store.PackRecord) store.PackRecord {
	p.Failures = append([]string(nil), p.Failures...)
	p.Tokens = append([]string(nil), p.Tokens...)
	return p
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	var out []string
	for _, v := range in {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
