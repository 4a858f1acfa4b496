package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/lernpack/pkg/lernpack"
)

var _ lernpack.Recorder = (*Metrics)(nil)

func TestCounters(t *testing.T) {
	m := New(nil)

	m.RunFinished("success")
	m.RunFinished("success")
	m.RunFinished("failed")
	m.PromptsGenerated("doctor", 12)
	m.PromptsGenerated("doctor", 10)
	m.GateFailure("prompt_length")
	m.PackGated(true)
	m.PackGated(false)
	m.PackGated(true)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("failed")))
	assert.Equal(t, 22.0, testutil.ToFloat64(m.PromptsTotal.WithLabelValues("doctor")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GateFailuresTotal.WithLabelValues("prompt_length")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.PacksTotal.WithLabelValues("passed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PacksTotal.WithLabelValues("failed")))
}

func TestSeparateRegistries(t *testing.T) {
	a := New(nil)
	b := New(nil)
	a.RunFinished("success")
	assert.Equal(t, 0.0, testutil.ToFloat64(b.RunsTotal.WithLabelValues("success")))
}

func TestWriteFile(t *testing.T) {
	m := New(nil)
	m.RunFinished("success")

	path := filepath.Join(t.TempDir(), "lernpack.prom")
	require.NoError(t, m.WriteFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `lernpack_runs_total{outcome="success"} 1`))
}
