// Package lernpack turns raw reference text into reviewable practice
// packs: it segments the text, extracts signals, plans packs, drafts
// prompts from a scenario template, runs the quality gates and reports.
package lernpack

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cognicore/lernpack/pkg/lernpack/drafts"
	"github.com/cognicore/lernpack/pkg/lernpack/generate"
	"github.com/cognicore/lernpack/pkg/lernpack/ingest"
	"github.com/cognicore/lernpack/pkg/lernpack/internalerr"
	"github.com/cognicore/lernpack/pkg/lernpack/lexicon"
	"github.com/cognicore/lernpack/pkg/lernpack/planner"
	"github.com/cognicore/lernpack/pkg/lernpack/quality"
	"github.com/cognicore/lernpack/pkg/lernpack/report"
	"github.com/cognicore/lernpack/pkg/lernpack/store"
	"github.com/cognicore/lernpack/pkg/lernpack/store/memstore"
	"github.com/cognicore/lernpack/pkg/lernpack/template"
)

// Run outcomes passed to Recorder.RunFinished.
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
)

var levels = map[string]struct{}{
	"A1": {}, "A2": {}, "B1": {}, "B2": {}, "C1": {}, "C2": {},
}

// Recorder receives run metrics.
type Recorder interface {
	RunFinished(outcome string)
	PromptsGenerated(scenario string, n int)
	GateFailure(rule string)
	PackGated(passed bool)
}

// Engine is the ingestion facade.
type Engine struct {
	lex        *lexicon.Lexicon
	templates  *template.Registry
	store      store.Store
	drafts     *drafts.Writer
	reportsDir string
	pipeline   *ingest.Pipeline
	plannerOpt planner.Options
	generator  *generate.Generator
	evaluator  *quality.Evaluator
	reports    *report.Generator
	log        *zap.Logger
	metrics    Recorder
	now        func() time.Time
}

// Options configures an Engine. Only Lexicon is required.
type Options struct {
	Lexicon *lexicon.Lexicon
	// Templates defaults to the built-in registry.
	Templates *template.Registry
	// Store defaults to an in-memory index.
	Store store.Store
	// Drafts and ReportsDir are optional; nothing is written when unset.
	Drafts     *drafts.Writer
	ReportsDir string
	Logger     *zap.Logger
	Metrics    Recorder
	Clock      func() time.Time

	MaxChunkChars int
	Planner       planner.Options
	Generator     generate.Options
}

// New creates an Engine with the given dependencies.
func New(opts Options) (*Engine, error) {
	if opts.Lexicon == nil {
		return nil, fmt.Errorf("%w: lexicon is required", internalerr.ErrInvalidConfig)
	}
	if n := opts.Generator.MinTokenHits; n != 0 && n < quality.MinScenarioTokens {
		return nil, fmt.Errorf("%w: generator needs at least %d scenario tokens per prompt, got %d",
			internalerr.ErrInvalidConfig, quality.MinScenarioTokens, n)
	}
	if opts.Templates == nil {
		reg, err := template.Builtins()
		if err != nil {
			return nil, err
		}
		opts.Templates = reg
	}
	if opts.Store == nil {
		opts.Store = memstore.New()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = nopRecorder{}
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	return &Engine{
		lex:        opts.Lexicon,
		templates:  opts.Templates,
		store:      opts.Store,
		drafts:     opts.Drafts,
		reportsDir: opts.ReportsDir,
		pipeline:   ingest.NewPipeline(ingest.NewSignalExtractor(opts.Lexicon), opts.MaxChunkChars),
		plannerOpt: opts.Planner,
		generator:  generate.New(opts.Lexicon, opts.Generator),
		evaluator:  quality.NewEvaluator(opts.Lexicon),
		reports:    report.NewGenerator(),
		log:        opts.Logger,
		metrics:    opts.Metrics,
		now:        opts.Clock,
	}, nil
}

// Close shuts down the index store.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Store returns the pack index.
func (e *Engine) Store() store.Store {
	return e.store
}

// RunRequest describes one ingestion.
type RunRequest struct {
	Workspace string
	Scenario  string
	Level     string
	Source    ingest.Source
}

// RunResult is what one ingestion produced.
type RunResult struct {
	Report      *report.IngestReport
	ReportPaths report.Paths
	Packs       []report.PackResult
	// DraftPaths is parallel to Packs; entries are empty when no draft
	// writer is configured.
	DraftPaths []string
	Chunks     int
}

func (r RunRequest) validate() (RunRequest, error) {
	r.Level = strings.ToUpper(strings.TrimSpace(r.Level))
	var problems []string
	if strings.TrimSpace(r.Workspace) == "" {
		problems = append(problems, "workspace is required")
	}
	if strings.TrimSpace(r.Scenario) == "" {
		problems = append(problems, "scenario is required")
	}
	if _, ok := levels[r.Level]; !ok {
		problems = append(problems, fmt.Sprintf("level %q is not a CEFR level", r.Level))
	}
	if len(problems) > 0 {
		return r, fmt.Errorf("%w: %s", internalerr.ErrInvalidInput, strings.Join(problems, "; "))
	}
	return r, nil
}

// Run ingests one source. Gate failures are part of the result; only
// configuration, generation exhaustion and I/O problems are errors.
func (e *Engine) Run(ctx context.Context, req RunRequest) (RunResult, error) {
	res, err := e.run(ctx, req)
	if err != nil {
		e.metrics.RunFinished(OutcomeFailed)
		e.log.Error("ingest run failed",
			zap.String("workspace", req.Workspace),
			zap.String("scenario", req.Scenario),
			zap.Error(err))
		return RunResult{}, err
	}
	e.metrics.RunFinished(OutcomeSuccess)
	return res, nil
}

func (e *Engine) run(ctx context.Context, req RunRequest) (RunResult, error) {
	req, err := req.validate()
	if err != nil {
		return RunResult{}, err
	}
	tpl, err := e.templates.Get(req.Scenario)
	if err != nil {
		return RunResult{}, err
	}

	log := e.log.With(
		zap.String("workspace", req.Workspace),
		zap.String("scenario", req.Scenario),
		zap.String("level", req.Level))
	log.Info("ingest run started", zap.String("source", req.Source.Label()))

	doc, err := e.pipeline.Process(req.Source, req.Scenario)
	if err != nil {
		return RunResult{}, fmt.Errorf("ingest %s: %w", req.Source.Label(), err)
	}

	popts := e.plannerOpt
	popts.Defaults = planner.Defaults{
		Register:         tpl.DefaultRegister,
		PrimaryStructure: tpl.PrimaryStructure,
		VariationSlots:   tpl.VariationSlots,
	}
	plans := planner.New(popts).Plan(doc.Signals, req.Scenario, req.Level)
	log.Debug("packs planned", zap.Int("chunks", len(doc.Chunks)), zap.Int("packs", len(plans)))

	now := e.now()
	out := RunResult{Chunks: len(doc.Chunks)}
	for _, plan := range plans {
		if err := ctx.Err(); err != nil {
			return RunResult{}, err
		}

		pack, err := e.generator.GeneratePack(generate.PackRequest{
			Request: generate.Request{
				Pack:     plan,
				Signals:  doc.Signals,
				Template: tpl,
				Scenario: req.Scenario,
				Level:    req.Level,
			},
			Source:      req.Source.Label(),
			GeneratedAt: now,
		})
		if err != nil {
			return RunResult{}, err
		}
		e.metrics.PromptsGenerated(req.Scenario, len(pack.Prompts))

		result := e.evaluator.Run(pack)
		e.metrics.PackGated(result.Passed)
		for _, f := range result.Failures {
			e.metrics.GateFailure(f.Rule)
		}
		log.Info("pack gated",
			zap.String("pack", pack.ID),
			zap.Int("prompts", len(pack.Prompts)),
			zap.Bool("passed", result.Passed),
			zap.Int("failures", len(result.Failures)),
			zap.Int("warnings", len(result.Warnings)))

		out.Packs = append(out.Packs, report.PackResult{Pack: pack, Result: result})
	}

	out.Report = e.reports.Generate(report.Input{
		Workspace:   req.Workspace,
		Scenario:    req.Scenario,
		Level:       req.Level,
		Source:      req.Source.Label(),
		Packs:       out.Packs,
		GeneratedAt: now,
	})

	if err := e.persist(ctx, req, plans, &out, log); err != nil {
		return RunResult{}, err
	}

	s := out.Report.Summary
	log.Info("ingest run finished",
		zap.String("run", out.Report.RunID),
		zap.Int("packs", s.Packs),
		zap.Int("packs_passed", s.PacksPassed),
		zap.Float64("pass_rate", s.PassRate),
		zap.String("report", out.ReportPaths.JSON))
	return out, nil
}

// persist writes drafts and the report pair, then indexes the run. Files
// created by this run are removed again when a later step fails.
func (e *Engine) persist(ctx context.Context, req RunRequest, plans []planner.PlannedPack, out *RunResult, log *zap.Logger) (err error) {
	var created []string
	defer func() {
		if err == nil {
			return
		}
		for _, path := range created {
			if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
				log.Warn("remove file of failed run", zap.String("path", path), zap.Error(rmErr))
			}
		}
	}()

	out.DraftPaths = make([]string, 0, len(out.Packs))
	for _, pr := range out.Packs {
		path, fresh, err := e.writeDraft(req.Workspace, pr.Pack, log)
		if err != nil {
			return err
		}
		if fresh {
			created = append(created, path)
		}
		out.DraftPaths = append(out.DraftPaths, path)
	}

	if e.reportsDir != "" {
		if out.ReportPaths, err = report.Write(e.reportsDir, out.Report); err != nil {
			return err
		}
		created = append(created, out.ReportPaths.JSON, out.ReportPaths.Markdown)
	}

	if err := e.index(ctx, req, plans, *out); err != nil {
		return fmt.Errorf("index run %s: %w", out.Report.RunID, err)
	}
	return nil
}

// writeDraft stores the pack once and reports whether the file is new.
// Pack ids are content derived, so an existing file for the id already
// holds this pack and is kept.
func (e *Engine) writeDraft(workspace string, pack *generate.DraftPack, log *zap.Logger) (string, bool, error) {
	if e.drafts == nil {
		return "", false, nil
	}
	path, err := e.drafts.Write(workspace, pack)
	if errors.Is(err, internalerr.ErrDuplicate) {
		path = e.drafts.Path(workspace, pack.Scenario, pack.ID)
		log.Info("draft already exists, keeping it", zap.String("pack", pack.ID), zap.String("path", path))
		return path, false, nil
	}
	if err != nil {
		return "", false, err
	}
	return path, true, nil
}

func (e *Engine) index(ctx context.Context, req RunRequest, plans []planner.PlannedPack, out RunResult) error {
	rep := out.Report
	for i, pr := range out.Packs {
		rec := store.PackRecord{
			ID:        pr.Pack.ID,
			RunID:     rep.RunID,
			Workspace: req.Workspace,
			Scenario:  req.Scenario,
			Level:     req.Level,
			Title:     pr.Pack.Title,
			Path:      out.DraftPaths[i],
			Prompts:   len(pr.Pack.Prompts),
			Passed:    pr.Result.Passed,
			Failures:  failedRules(pr.Result),
			Tokens:    plans[i].TopTokens,
			CreatedAt: rep.GeneratedAt,
		}
		if err := e.store.UpsertPack(ctx, rec); err != nil {
			return err
		}
	}

	return e.store.RecordRun(ctx, store.RunRecord{
		ID:             rep.RunID,
		Workspace:      req.Workspace,
		Scenario:       req.Scenario,
		Level:          req.Level,
		Source:         rep.Source,
		Packs:          rep.Summary.Packs,
		PacksPassed:    rep.Summary.PacksPassed,
		Prompts:        rep.Summary.Prompts,
		PromptsPassed:  rep.Summary.PromptsPassed,
		ReportJSON:     out.ReportPaths.JSON,
		ReportMarkdown: out.ReportPaths.Markdown,
		CreatedAt:      rep.GeneratedAt,
	})
}

func failedRules(res quality.Result) []string {
	seen := make(map[string]struct{})
	var rules []string
	for _, f := range res.Failures {
		if _, ok := seen[f.Rule]; ok {
			continue
		}
		seen[f.Rule] = struct{}{}
		rules = append(rules, f.Rule)
	}
	return rules
}

type nopRecorder struct{}

func (nopRecorder) RunFinished(string)           {}
func (nopRecorder) PromptsGenerated(string, int) {}
func (nopRecorder) GateFailure(string)           {}
func (nopRecorder) PackGated(bool)               {}
