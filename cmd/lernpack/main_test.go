package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/lernpack/pkg/lernpack/drafts"
	"github.com/cognicore/lernpack/pkg/lernpack/internalerr"
)

const scenarioText = "Ich brauche einen Termin beim Bürgeramt. Das Formular ist wichtig."

func execute(args ...string) (string, error) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// workspaceEnv points every path setting into a fresh temp dir.
func workspaceEnv(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	t.Setenv("LERNPACK_CONTENT_ROOT", root)
	t.Setenv("LERNPACK_REPORTS_DIR", filepath.Join(root, "reports"))
	t.Setenv("LERNPACK_INDEX_PATH", filepath.Join(root, "index.db"))
	t.Setenv("LERNPACK_METRICS_FILE", filepath.Join(root, "lernpack.prom"))
	t.Setenv("LERNPACK_LOG_LEVEL", "error")
	return root
}

func ingestScenario(t *testing.T, root string) []string {
	t.Helper()
	out, err := execute("ingest", "--workspace", "berlin", "--scenario", "government_office",
		"--level", "A2", "--input-text", scenarioText)
	require.NoError(t, err, out)
	assert.Contains(t, out, "PASS government_office_request_a2_")

	files, err := drafts.NewWriter(root).List("berlin", "government_office")
	require.NoError(t, err)
	require.NotEmpty(t, files)
	return files
}

func TestTemplatesCommand(t *testing.T) {
	workspaceEnv(t)
	out, err := execute("templates")
	require.NoError(t, err)
	assert.Contains(t, out, "government_office")
	assert.Contains(t, out, "formal")
	assert.Contains(t, out, "shopping")
}

func TestIngestWritesDraftsReportIndexAndMetrics(t *testing.T) {
	root := workspaceEnv(t)
	files := ingestScenario(t, root)

	reports, err := filepath.Glob(filepath.Join(root, "reports", "ingest-report.berlin.government_office.*.md"))
	require.NoError(t, err)
	assert.Len(t, reports, 1)

	prom, err := os.ReadFile(filepath.Join(root, "lernpack.prom"))
	require.NoError(t, err)
	assert.Contains(t, string(prom), `lernpack_runs_total{outcome="success"} 1`)

	out, err := execute("runs", "--workspace", "berlin")
	require.NoError(t, err)
	assert.Contains(t, out, "government_office")
	assert.Contains(t, out, reports[0])

	out, err = execute("packs", "--token", "termin")
	require.NoError(t, err)
	assert.Contains(t, out, files[0])

	out, err = execute(append([]string{"gate"}, files...)...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "PASS government_office_request_a2_")
}

func TestPacksStayPerWorkspace(t *testing.T) {
	root := workspaceEnv(t)
	berlin := ingestScenario(t, root)

	out, err := execute("ingest", "--workspace", "hamburg", "--scenario", "government_office",
		"--level", "A2", "--input-text", scenarioText)
	require.NoError(t, err, out)

	out, err = execute("packs", "--workspace", "berlin")
	require.NoError(t, err)
	for _, f := range berlin {
		assert.Contains(t, out, f)
	}

	hamburg, err := drafts.NewWriter(root).List("hamburg", "government_office")
	require.NoError(t, err)
	require.Len(t, hamburg, len(berlin))
	out, err = execute("packs", "--workspace", "hamburg")
	require.NoError(t, err)
	assert.Contains(t, out, hamburg[0])
	assert.NotContains(t, out, berlin[0])
}

func TestGateStages(t *testing.T) {
	root := workspaceEnv(t)
	files := ingestScenario(t, root)

	pack, err := drafts.Read(files[0])
	require.NoError(t, err)
	pack.Prompts[0].Text = "In today's lesson we learn about the office."
	data, err := json.Marshal(pack)
	require.NoError(t, err)
	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, data, 0o644))

	out, err := execute("gate", "--stage", "pre-approval", bad)
	assert.True(t, errors.Is(err, errBlocked))
	assert.Contains(t, out, "BLOCKED")
	assert.Contains(t, out, "banned_phrases")

	out, err = execute("gate", "--stage", "post-approval", bad)
	require.NoError(t, err)
	assert.Contains(t, out, "ADVISORY")

	_, err = execute("gate", "--stage", "someday", bad)
	assert.True(t, errors.Is(err, internalerr.ErrInvalidInput))
}

func TestIngestFromURL(t *testing.T) {
	workspaceEnv(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><head><title>x</title></head><body>
<h2>Anmeldung</h2><p>` + scenarioText + `</p></body></html>`))
	}))
	defer srv.Close()

	out, err := execute("ingest", "--workspace", "hamburg", "--scenario", "government_office",
		"--level", "B1", "--input-url", srv.URL+"/anmeldung")
	require.NoError(t, err, out)
	assert.Contains(t, out, "run ")
}

func TestIngestInputErrors(t *testing.T) {
	workspaceEnv(t)

	_, err := execute("ingest", "--workspace", "berlin", "--scenario", "doctor", "--level", "A2")
	assert.Error(t, err)

	_, err = execute("ingest", "--workspace", "berlin", "--scenario", "doctor", "--level", "A2",
		"--input-file", "brief.pdf")
	assert.True(t, errors.Is(err, internalerr.ErrInvalidInput))

	_, err = execute("ingest", "--workspace", "berlin", "--scenario", "zoo", "--level", "A2",
		"--input-text", scenarioText)
	assert.True(t, errors.Is(err, internalerr.ErrTemplateNotFound))
}

func TestIndexCommandsNeedIndexPath(t *testing.T) {
	workspaceEnv(t)
	t.Setenv("LERNPACK_INDEX_PATH", "")

	_, err := execute("runs")
	assert.True(t, errors.Is(err, internalerr.ErrInvalidConfig))
}
