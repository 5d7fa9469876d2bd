package report

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/randforest/metrics"
)

func TestLogReporter(t *testing.T) {
	var buf bytes.Buffer
	r := NewLogReporter(slog.New(slog.NewTextHandler(&buf, nil)), 50)

	require.NoError(t, r.DisplayEpoch(3, 0.25, 0, false))
	assert.Contains(t, buf.String(), "epoch=3")
	assert.Contains(t, buf.String(), "total=50")
	assert.Contains(t, buf.String(), "score=0.25")
}

func TestMetricsReporter(t *testing.T) {
	m := metrics.NewMetrics("report-test")
	r := NewMetricsReporter(m, "job-a")

	require.NoError(t, r.DisplayEpoch(1, 0.1, 0, false))
	require.NoError(t, r.DisplayEpoch(2, 0.2, 0, false))

	assert.Equal(t, 2.0, testutil.ToFloat64(r.completed))
	count, err := testutil.GatherAndCount(m.Registry(), "forest_tree_score")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMultiJoinsErrors(t *testing.T) {
	var calls int
	ok := ReporterFunc(func(int, float64, float64, bool) error { calls++; return nil })
	bad := ReporterFunc(func(int, float64, float64, bool) error { calls++; return ErrInterrupted })

	err := Multi{ok, bad, ok}.DisplayEpoch(1, 0, 0, false)
	assert.True(t, errors.Is(err, ErrInterrupted))
	assert.Equal(t, 3, calls)
}

func TestTrialLogAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trials.log")
	l := NewTrialLog(path)
	l.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	require.NoError(t, l.WriteMarker("Random Forest"))
	require.NoError(t, l.WriteReport("Summary\n", "accuracy 0.93"))
	require.NoError(t, l.WriteReport("", "second"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.HasPrefix(text, JobStartMarker+"\nRandom Forest job at 2024-05-01T12:00:00Z.\n\n"))
	assert.Contains(t, text, TrialSectionMarker+"\nSummary\naccuracy 0.93\n")
	assert.Equal(t, 2, strings.Count(text, TrialSectionMarker))
}
