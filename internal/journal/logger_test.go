package journal

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(t *testing.T, start time.Time) (*Logger, *time.Time) {
	t.Helper()
	l, err := NewLogger(filepath.Join(t.TempDir(), "journal"))
	require.NoError(t, err)

	clock := start
	l.now = func() time.Time { return clock }
	return l, &clock
}

func TestLoggerAppendsAndReads(t *testing.T) {
	l, clock := newTestLogger(t, time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC))

	require.NoError(t, l.Log("validate", StatusOK, map[string]interface{}{"fixtures": 3}, nil))
	require.NoError(t, l.LogError("replay", errors.New("2 unreceived"), nil))

	*clock = clock.Add(24 * time.Hour)
	started := clock.Add(-1500 * time.Millisecond)
	require.NoError(t, l.LogRun("query", started, map[string]interface{}{"entity": "Contact"}, nil))

	last, err := l.Last(2)
	require.NoError(t, err)
	require.Len(t, last, 2)
	assert.Equal(t, "replay", last[0].Action)
	assert.Equal(t, "query", last[1].Action)
	assert.Equal(t, int64(1500), last[1].Duration)

	all, err := l.Last(0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	errs, err := l.Errors()
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, "2 unreceived", errs[0].Error)

	queries, err := l.ByAction("query")
	require.NoError(t, err)
	require.Len(t, queries, 1)
	assert.Equal(t, "Contact", queries[0].Details["entity"])

	files, err := filepath.Glob(filepath.Join(l.journalDir, "*.log"))
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestLoggerIndexResetsDaily(t *testing.T) {
	l, clock := newTestLogger(t, time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC))

	require.NoError(t, l.Log("replay", StatusOK, nil, nil))
	require.NoError(t, l.Log("replay", StatusOK, nil, nil))
	require.NoError(t, l.Log("validate", StatusOK, nil, nil))

	index, err := l.Index()
	require.NoError(t, err)
	assert.Equal(t, "2026-05-01", index.Date)
	assert.Equal(t, 3, index.Entries)
	assert.Equal(t, map[string]int{"replay": 2, "validate": 1}, index.ByAction)

	*clock = clock.Add(24 * time.Hour)
	require.NoError(t, l.Log("query", StatusOK, nil, nil))

	index, err = l.Index()
	require.NoError(t, err)
	assert.Equal(t, "2026-05-02", index.Date)
	assert.Equal(t, map[string]int{"query": 1}, index.ByAction)
}

func TestLoggerEmptyAndCorrupt(t *testing.T) {
	l, _ := newTestLogger(t, time.Now())

	last, err := l.Last(5)
	require.NoError(t, err)
	assert.Empty(t, last)

	require.NoError(t, os.WriteFile(filepath.Join(l.journalDir, "2026-01-01.log"), []byte("not json\n"), 0o644))
	_, err = l.Errors()
	assert.ErrorContains(t, err, "2026-01-01.log:1")
}

func TestEntryString(t *testing.T) {
	e := &Entry{
		Timestamp: time.Date(2026, 2, 12, 10, 15, 0, 0, time.UTC),
		Action:    "replay",
		Status:    StatusError,
		Details:   map[string]interface{}{"misses": 1, "hits": 4},
		Duration:  12,
		Error:     "boom",
	}
	assert.Equal(t, `2026-02-12T10:15:00Z [replay] status=error hits=4 misses=1 duration_ms=12 error="boom"`, e.String())
}
