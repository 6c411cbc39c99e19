package history

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doughall/dailyclean/console/internal/form"
	"github.com/doughall/dailyclean/console/internal/window"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "history.db"), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestAppendAndRecent(t *testing.T) {
	j := openTestJournal(t)

	for i, op := range []string{"load", "save", "save"} {
		e := &Entry{Operation: op, At: time.Unix(int64(i), 0).UTC(), CronStart: "0 7 * * *"}
		require.NoError(t, j.Append(e))
		assert.Equal(t, uint64(i+1), e.ID)
	}

	count, err := j.Count()
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	recent, err := j.Recent(2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, uint64(3), recent[0].ID, "newest first")
	assert.Equal(t, uint64(2), recent[1].ID)

	all, err := j.Recent(10)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestObserve(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()
	at := time.Date(2026, time.March, 4, 10, 0, 0, 0, time.UTC)

	j.Observe(ctx, form.Event{
		Operation: form.OperationLoad,
		Pair:      window.CronPair{CronStart: "0 7 * * 1-5", CronStop: "0 17 * * *"},
		At:        at,
		Duration:  15 * time.Millisecond,
	})
	j.Observe(ctx, form.Event{
		Operation: form.OperationSave,
		Pair:      window.CronPair{CronStart: "0 2 * * *", CronStop: "0 18 * * *"},
		At:        at.Add(time.Minute),
	})
	j.Observe(ctx, form.Event{
		Operation: form.OperationSave,
		Pair:      window.CronPair{CronStart: "0 3 * * *", CronStop: "0 18 * * *"},
		Err:       errors.New("POST http://x: unexpected status 500"),
		At:        at.Add(2 * time.Minute),
	})

	recent, err := j.Recent(10)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.False(t, recent[0].OK())
	assert.Equal(t, "load", recent[2].Operation)
	assert.Equal(t, int64(15), recent[2].DurationMs)
	assert.True(t, recent[2].At.Equal(at))

	last, err := j.LastSaved()
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, "0 2 * * *", last.CronStart, "failed saves are skipped")
}

func TestLastSavedEmpty(t *testing.T) {
	j := openTestJournal(t)
	last, err := j.LastSaved()
	require.NoError(t, err)
	assert.Nil(t, last)
}

func TestReopenKeepsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	j, err := Open(path, logger)
	require.NoError(t, err)
	require.NoError(t, j.Append(&Entry{Operation: "save", CronStart: "0 1 * * *", CronStop: "0 2 * * *"}))
	require.NoError(t, j.Shutdown(context.Background()))

	j, err = Open(path, logger)
	require.NoError(t, err)
	defer j.Close()

	count, err := j.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
