package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cognicore/lernpack/pkg/lernpack/internalerr"
)

const timestampLayout = "20060102T150405Z"

// Paths are the files written for one report.
type Paths struct {
	JSON     string
	Markdown string
}

// BaseName returns the file stem ingest-report.<workspace>.<scenario>.<timestamp>.
// The timestamp carries the run id as a suffix so runs started within the
// same second still get their own pair.
func BaseName(r *IngestReport) string {
	stamp := r.GeneratedAt.UTC().Format(timestampLayout)
	if r.RunID != "" {
		stamp += "-" + r.RunID
	}
	return fmt.Sprintf("ingest-report.%s.%s.%s", r.Workspace, r.Scenario, stamp)
}

// Write stores the report as a JSON and Markdown pair in dir. Existing
// reports are never overwritten: a name collision yields ErrReportExists
// and leaves the earlier pair untouched.
func Write(dir string, r *IngestReport) (Paths, error) {
	for _, part := range []string{r.Workspace, r.Scenario} {
		if part == "" || strings.ContainsAny(part, `/\`) || part == "." || part == ".." {
			return Paths{}, fmt.Errorf("%w: report name part %q", internalerr.ErrInvalidInput, part)
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Paths{}, fmt.Errorf("create report dir: %w", err)
	}

	base := filepath.Join(dir, BaseName(r))
	paths := Paths{JSON: base + ".json", Markdown: base + ".md"}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return Paths{}, fmt.Errorf("encode report: %w", err)
	}
	if err := writeExclusive(paths.JSON, append(data, '\n')); err != nil {
		return Paths{}, err
	}
	if err := writeExclusive(paths.Markdown, []byte(Markdown(r))); err != nil {
		_ = os.Remove(paths.JSON)
		return Paths{}, err
	}
	return paths, nil
}

func writeExclusive(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%w: %s", internalerr.ErrReportExists, path)
		}
		return fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}
