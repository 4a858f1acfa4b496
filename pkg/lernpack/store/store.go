// Package store indexes generated packs and ingestion runs so workspaces
// can be queried without walking the drafts tree.
package store

import (
	"context"
	"time"
)

// Store persists pack and run records. Packs are keyed by workspace and
// id: the same content ingested into two workspaces yields two records.
type Store interface {
	Close() error

	UpsertPack(ctx context.Context, p PackRecord) error
	GetPack(ctx context.Context, workspace, id string) (PackRecord, bool, error)
	ListPacks(ctx context.Context, f PackFilter) ([]PackRecord, error)
	PacksByTokens(ctx context.Context, tokens []string, limit int) ([]PackRecord, error)

	RecordRun(ctx context.Context, r RunRecord) error
	ListRuns(ctx context.Context, workspace string, limit int) ([]RunRecord, error)
}

// PackRecord is the index entry of one draft pack.
type PackRecord struct {
	ID        string
	RunID     string
	Workspace string
	Scenario  string
	Level     string
	Title     string
	Path      string
	Prompts   int
	Passed    bool
	// Failures holds the rule names that failed, each once.
	Failures  []string
	Tokens    []string
	CreatedAt time.Time
}

// PackFilter narrows ListPacks. Empty fields match everything.
type PackFilter struct {
	Workspace  string
	Scenario   string
	PassedOnly bool
	Limit      int
}

// Match reports whether p satisfies the filter, ignoring Limit.
func (f PackFilter) Match(p PackRecord) bool {
	if f.Workspace != "" && p.Workspace != f.Workspace {
		return false
	}
	if f.Scenario != "" && p.Scenario != f.Scenario {
		return false
	}
	return !f.PassedOnly || p.Passed
}

// RunRecord summarizes one ingestion run.
type RunRecord struct {
	ID             string
	Workspace      string
	Scenario       string
	Level          string
	Source         string
	Packs          int
	PacksPassed    int
	Prompts        int
	PromptsPassed  int
	ReportJSON     string
	ReportMarkdown string
	CreatedAt      time.Time
}

// DefaultLimit applies when a list call passes a non-positive limit.
const DefaultLimit = 50
