package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doughall/dailyclean/console/internal/client"
	"github.com/doughall/dailyclean/console/internal/config"
	"github.com/doughall/dailyclean/console/internal/form"
	"github.com/doughall/dailyclean/console/internal/history"
	"github.com/doughall/dailyclean/console/internal/mockserver"
	"github.com/doughall/dailyclean/console/internal/window"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestController(t *testing.T, opts ...form.Option) (*form.Controller, *mockserver.Server) {
	t.Helper()
	server := mockserver.New(mockserver.Options{}, testLogger())
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)

	fetcher := client.NewHTTPFetcher(client.Options{RetryMax: -1, Timeout: 2 * time.Second}, testLogger())
	c := form.NewController(fetcher, ts.URL+"/timeranges", testLogger(), opts...)
	t.Cleanup(func() { _ = c.Shutdown(context.Background()) })
	return c, server
}

func TestApplySavesWindow(t *testing.T) {
	c, server := newTestController(t)
	var out bytes.Buffer

	err := apply(context.Background(), c, applyRequest{Start: "2", End: "18", Days: "all"}, &out)
	require.NoError(t, err)

	assert.Equal(t, window.CronPair{CronStart: "0 2 * * *", CronStop: "0 18 * * *"}, server.Pair())
	assert.Contains(t, out.String(), "Current: 7:00 to 17:00, Working days (Monday to Friday)")
	assert.Contains(t, out.String(), "Success: Save done succesfully.")
	assert.Contains(t, out.String(), "Saved:   2:00 to 18:00, All days")
}

func TestApplyPartialUpdate(t *testing.T) {
	c, server := newTestController(t)

	err := apply(context.Background(), c, applyRequest{End: "20"}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, window.CronPair{CronStart: "0 7 * * 1-5", CronStop: "0 20 * * *"}, server.Pair())
}

func TestApplyErrors(t *testing.T) {
	t.Run("nothing to apply", func(t *testing.T) {
		c, _ := newTestController(t)
		assert.ErrorIs(t, apply(context.Background(), c, applyRequest{}, io.Discard), ErrNothingToApply)
	})

	t.Run("unchanged", func(t *testing.T) {
		c, server := newTestController(t)
		err := apply(context.Background(), c, applyRequest{Start: "7", Days: "working"}, io.Discard)
		assert.ErrorIs(t, err, ErrUnchanged)
		_, posts := server.Requests()
		assert.Zero(t, posts)
	})

	t.Run("end before start", func(t *testing.T) {
		c, _ := newTestController(t)
		err := apply(context.Background(), c, applyRequest{Start: "18", End: "6"}, io.Discard)
		assert.EqualError(t, err, window.MessageEndDateShouldBeAfterStartDate)
	})

	t.Run("unknown days", func(t *testing.T) {
		c, _ := newTestController(t)
		err := apply(context.Background(), c, applyRequest{Days: "weekends"}, io.Discard)
		assert.ErrorIs(t, err, window.ErrUnknownDaySet)
	})

	t.Run("load failure", func(t *testing.T) {
		c, server := newTestController(t)
		server.FailNext(http.StatusBadGateway)
		err := apply(context.Background(), c, applyRequest{Start: "3"}, io.Discard)
		var transportErr *form.TransportError
		require.ErrorAs(t, err, &transportErr)
		assert.Equal(t, http.StatusBadGateway, transportErr.Status)
	})

	t.Run("save failure", func(t *testing.T) {
		c, server := newTestController(t)
		require.NoError(t, c.Mount(context.Background()))
		require.NoError(t, c.Wait(context.Background()))
		server.FailNext(http.StatusInternalServerError)

		c.SetStartHour("4")
		require.True(t, c.Submit(context.Background()))
		require.NoError(t, c.Wait(context.Background()))
		assert.Equal(t, form.StatusError, c.State().Status)
	})
}

func TestApplyJournalsRequests(t *testing.T) {
	journal, err := history.Open(filepath.Join(t.TempDir(), "history.db"), testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = journal.Close() })

	c, _ := newTestController(t, form.WithObserver(journal))
	require.NoError(t, apply(context.Background(), c, applyRequest{Start: "6"}, io.Discard))

	var out bytes.Buffer
	require.NoError(t, printHistory(journal, 10, &out))
	assert.Contains(t, out.String(), "load")
	assert.Contains(t, out.String(), "save")
	assert.Contains(t, out.String(), "0 6 * * 1-5")

	count, err := journal.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestPrintHistoryEmpty(t *testing.T) {
	journal, err := history.Open(filepath.Join(t.TempDir(), "history.db"), testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = journal.Close() })

	var out bytes.Buffer
	require.NoError(t, printHistory(journal, 5, &out))
	assert.Equal(t, "No history yet.\n", out.String())
}

func TestWriteTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "console.yaml")
	require.NoError(t, writeTemplate(path, "http://localhost:9090"))
	assert.Error(t, writeTemplate(path, "http://localhost:9090"), "existing file is kept")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9090/timeranges", cfg.ConfigurationURL())
}
