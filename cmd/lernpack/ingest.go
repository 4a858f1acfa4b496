package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cognicore/lernpack/pkg/lernpack"
	"github.com/cognicore/lernpack/pkg/lernpack/ingest"
	"github.com/cognicore/lernpack/pkg/lernpack/internalerr"
)

const (
	fetchTimeout = 30 * time.Second
	maxFetchSize = 5 << 20
)

type ingestFlags struct {
	workspace string
	scenario  string
	level     string
	text      string
	file      string
	url       string
}

func newIngestCmd(a *app) *cobra.Command {
	f := &ingestFlags{}
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Draft packs from reference text",
		Long: `Segment the input, plan packs, draft prompts from the scenario template,
run the quality gates, write every draft pack and the ingest report.

Gate failures do not fail the command; they are listed in the report.

Examples:
  lernpack ingest --workspace berlin --scenario government_office --level A2 \
    --input-text "Ich brauche einen Termin beim Bürgeramt."

  lernpack ingest --workspace berlin --scenario doctor --level B1 --input-file praxis.html`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd, a, f)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.workspace, "workspace", "", "content workspace (required)")
	fl.StringVar(&f.scenario, "scenario", "", "scenario id, see 'lernpack templates' (required)")
	fl.StringVar(&f.level, "level", "", "CEFR level A1..C2 (required)")
	fl.StringVar(&f.text, "input-text", "", "inline reference text")
	fl.StringVar(&f.file, "input-file", "", "reference text or HTML file")
	fl.StringVar(&f.url, "input-url", "", "reference web page")
	_ = cmd.MarkFlagRequired("workspace")
	_ = cmd.MarkFlagRequired("scenario")
	_ = cmd.MarkFlagRequired("level")
	cmd.MarkFlagsMutuallyExclusive("input-text", "input-file", "input-url")
	cmd.MarkFlagsOneRequired("input-text", "input-file", "input-url")
	return cmd
}

func runIngest(cmd *cobra.Command, a *app, f *ingestFlags) error {
	ctx := cmd.Context()
	defer a.writeMetrics()

	src, err := readSource(ctx, f)
	if err != nil {
		return err
	}

	engine, err := a.openEngine(ctx)
	if err != nil {
		return err
	}
	defer engine.Close()

	res, err := engine.Run(ctx, lernpack.RunRequest{
		Workspace: f.workspace,
		Scenario:  f.scenario,
		Level:     f.level,
		Source:    src,
	})
	if err != nil {
		return err
	}

	s := res.Report.Summary
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run %s: %d packs, %d passed, prompt pass rate %.0f%%\n",
		res.Report.RunID, s.Packs, s.PacksPassed, s.PassRate*100)
	for i, pr := range res.Packs {
		status := "PASS"
		if !pr.Result.Passed {
			status = "FAIL"
		}
		fmt.Fprintf(out, "  %s %s %s\n", status, pr.Pack.ID, res.DraftPaths[i])
	}
	fmt.Fprintf(out, "report: %s\n", res.ReportPaths.Markdown)
	return nil
}

func readSource(ctx context.Context, f *ingestFlags) (ingest.Source, error) {
	switch {
	case f.text != "":
		return ingest.Source{Kind: ingest.SourceText, Body: f.text}, nil
	case f.file != "":
		if strings.EqualFold(filepath.Ext(f.file), ".pdf") {
			return ingest.Source{}, fmt.Errorf("%w: pdf input is not supported, extract the text first", internalerr.ErrInvalidInput)
		}
		data, err := os.ReadFile(f.file)
		if err != nil {
			return ingest.Source{}, fmt.Errorf("read input file: %w", err)
		}
		return ingest.Source{Kind: ingest.SourceFile, Location: f.file, Body: string(data)}, nil
	case f.url != "":
		body, err := fetch(ctx, f.url)
		if err != nil {
			return ingest.Source{}, err
		}
		return ingest.Source{Kind: ingest.SourceURL, Location: f.url, Body: body}, nil
	}
	return ingest.Source{}, fmt.Errorf("%w: one of --input-text, --input-file or --input-url is required", internalerr.ErrInvalidInput)
}

func fetch(ctx context.Context, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: input url: %v", internalerr.ErrInvalidInput, err)
	}
	req.Header.Set("User-Agent", "lernpack/"+version)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchSize))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", url, err)
	}
	return string(data), nil
}
