// Package report aggregates the quality results of one ingestion run into
// an immutable JSON and Markdown report pair.
package report

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/lernpack/pkg/lernpack/generate"
	"github.com/cognicore/lernpack/pkg/lernpack/quality"
)

// PackResult pairs a draft pack with its gate result.
type PackResult struct {
	Pack   *generate.DraftPack
	Result quality.Result
}

// Input describes one finished run.
type Input struct {
	Workspace   string
	Scenario    string
	Level       string
	Source      string
	Packs       []PackResult
	GeneratedAt time.Time
}

// Summary holds the run-level counts. PassRate is computed over prompts.
type Summary struct {
	Packs         int     `json:"packs"`
	PacksPassed   int     `json:"packsPassed"`
	Prompts       int     `json:"prompts"`
	PromptsPassed int     `json:"promptsPassed"`
	PassRate      float64 `json:"passRate"`
	Failures      int     `json:"failures"`
	Warnings      int     `json:"warnings"`
}

// PackEntry is the per-pack section of the report.
type PackEntry struct {
	PackID   string          `json:"packId"`
	Title    string          `json:"title"`
	Prompts  int             `json:"prompts"`
	Passed   bool            `json:"passed"`
	Failures []quality.Issue `json:"failures"`
	Warnings []quality.Issue `json:"warnings"`
}

// IngestReport is the aggregate of one run.
type IngestReport struct {
	RunID            string          `json:"runId"`
	Workspace        string          `json:"workspace"`
	Scenario         string          `json:"scenario"`
	Level            string          `json:"level"`
	Source           string          `json:"source"`
	GeneratedAt      time.Time       `json:"generatedAt"`
	Summary          Summary         `json:"summary"`
	Packs            []PackEntry     `json:"packs"`
	Failures         []quality.Issue `json:"failures"`
	Warnings         []quality.Issue `json:"warnings"`
	RecommendedEdits []string        `json:"recommendedEdits"`
}

// Generator builds reports with monotonic ULID run ids.
type Generator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewGenerator creates a report generator.
func NewGenerator() *Generator {
	return &Generator{
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// Generate aggregates in into a report. A prompt counts as passed when no
// failure names it and its pack has no pack-level failure.
func (g *Generator) Generate(in Input) *IngestReport {
	r := &IngestReport{
		RunID:       g.newRunID(in.GeneratedAt),
		Workspace:   in.Workspace,
		Scenario:    in.Scenario,
		Level:       in.Level,
		Source:      in.Source,
		GeneratedAt: in.GeneratedAt.UTC(),
		Packs:       make([]PackEntry, 0, len(in.Packs)),
		Failures:    []quality.Issue{},
		Warnings:    []quality.Issue{},
	}

	for _, pr := range in.Packs {
		entry := PackEntry{
			PackID:   pr.Pack.ID,
			Title:    pr.Pack.Title,
			Prompts:  len(pr.Pack.Prompts),
			Passed:   pr.Result.Passed,
			Failures: nonNil(pr.Result.Failures),
			Warnings: nonNil(pr.Result.Warnings),
		}
		r.Packs = append(r.Packs, entry)
		r.Failures = append(r.Failures, entry.Failures...)
		r.Warnings = append(r.Warnings, entry.Warnings...)

		r.Summary.Packs++
		if entry.Passed {
			r.Summary.PacksPassed++
		}
		r.Summary.Prompts += entry.Prompts
		r.Summary.PromptsPassed += passedPrompts(pr)
	}

	r.Summary.Failures = len(r.Failures)
	r.Summary.Warnings = len(r.Warnings)
	if r.Summary.Prompts > 0 {
		r.Summary.PassRate = float64(r.Summary.PromptsPassed) / float64(r.Summary.Prompts)
	}
	r.RecommendedEdits = RecommendedEdits(r.Failures, r.Warnings)
	return r
}

func (g *Generator) newRunID(at time.Time) string {
	if at.IsZero() {
		at = time.Now()
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(at), g.entropy).String()
}

func passedPrompts(pr PackResult) int {
	failed := make(map[string]struct{})
	for _, f := range pr.Result.Failures {
		if f.PromptID == "" {
			return 0
		}
		failed[f.PromptID] = struct{}{}
	}
	n := 0
	for _, p := range pr.Pack.Prompts {
		if _, ok := failed[p.ID]; !ok {
			n++
		}
	}
	return n
}

func nonNil(issues []quality.Issue) []quality.Issue {
	if issues == nil {
		return []quality.Issue{}
	}
	return issues
}
