// Command lernpack drafts language practice packs from reference text and
// gates them for review.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cognicore/lernpack/internal/config"
	"github.com/cognicore/lernpack/internal/logging"
	"github.com/cognicore/lernpack/internal/metrics"
	"github.com/cognicore/lernpack/pkg/lernpack"
	lpconfig "github.com/cognicore/lernpack/pkg/lernpack/config"
	"github.com/cognicore/lernpack/pkg/lernpack/drafts"
	"github.com/cognicore/lernpack/pkg/lernpack/generate"
	"github.com/cognicore/lernpack/pkg/lernpack/planner"
	"github.com/cognicore/lernpack/pkg/lernpack/store"
	"github.com/cognicore/lernpack/pkg/lernpack/store/memstore"
	"github.com/cognicore/lernpack/pkg/lernpack/store/sqlite"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// app carries what every subcommand needs once flags are parsed.
type app struct {
	configPath string

	cfg     *config.Config
	log     *zap.Logger
	metrics *metrics.Metrics
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "lernpack",
		Short: "Draft and gate language practice packs",
		Long: `lernpack turns reference text (plain text, HTML or a URL) into draft
practice packs for one scenario and level, runs the quality gates over them
and writes an ingest report next to the drafts.

Settings come from the embedded defaults, an optional YAML file (--config)
and LERNPACK_* environment variables.`,
		Version:           version,
		SilenceUsage:      true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return a.setup() },
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML settings file")

	root.AddCommand(newIngestCmd(a))
	root.AddCommand(newGateCmd(a))
	root.AddCommand(newTemplatesCmd(a))
	root.AddCommand(newRunsCmd(a))
	root.AddCommand(newPacksCmd(a))
	return root
}

func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	logger, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = logger
	a.metrics = metrics.New(nil)
	return nil
}

func (a *app) components() (*lpconfig.Components, error) {
	loader := lpconfig.Loader{
		LexiconPath:  a.cfg.LexiconPath,
		TemplatesDir: a.cfg.TemplatesDir,
	}
	comp, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("load content config: %w", err)
	}
	return comp, nil
}

// openStore opens the sqlite index, or an in-memory one when no index
// path is configured.
func (a *app) openStore(ctx context.Context) (store.Store, error) {
	if a.cfg.IndexPath == "" {
		return memstore.New(), nil
	}
	st, err := sqlite.OpenSQLite(ctx, a.cfg.IndexPath)
	if err != nil {
		return nil, fmt.Errorf("open index %s: %w", a.cfg.IndexPath, err)
	}
	return st, nil
}

func (a *app) openEngine(ctx context.Context) (*lernpack.Engine, error) {
	comp, err := a.components()
	if err != nil {
		return nil, err
	}
	st, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}

	c := a.cfg
	engine, err := lernpack.New(lernpack.Options{
		Lexicon:       comp.Lexicon,
		Templates:     comp.Templates,
		Store:         st,
		Drafts:        drafts.NewWriter(c.ContentRoot),
		ReportsDir:    c.ReportsDir,
		Logger:        a.log,
		Metrics:       a.metrics,
		MaxChunkChars: c.Segmenter.MaxChunkChars,
		Planner: planner.Options{
			MinPacks:         c.Planner.MinPacks,
			MaxPacks:         c.Planner.MaxPacks,
			OverlapThreshold: c.Planner.OverlapThreshold,
			GroupSimilarity:  c.Planner.GroupSimilarity,
		},
		Generator: generate.Options{
			MaxAttempts:        c.Generator.MaxAttempts,
			MinTokenHits:       c.Generator.MinTokenHits,
			DisableSlotPadding: !c.Generator.PadSlotChanges,
		},
	})
	if err != nil {
		st.Close()
		return nil, err
	}
	return engine, nil
}

// writeMetrics flushes the counters to the configured textfile.
func (a *app) writeMetrics() {
	if a.cfg.MetricsFile == "" {
		return
	}
	if err := a.metrics.WriteFile(a.cfg.MetricsFile); err != nil {
		a.log.Warn("write metrics", zap.String("path", a.cfg.MetricsFile), zap.Error(err))
	}
}
