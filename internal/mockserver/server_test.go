package mockserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doughall/dailyclean/console/internal/client"
	"github.com/doughall/dailyclean/console/internal/form"
	"github.com/doughall/dailyclean/console/internal/window"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startServer(t *testing.T, opts Options) (*Server, *httptest.Server) {
	t.Helper()
	s := New(opts, testLogger())
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func do(t *testing.T, method, url, body string, header http.Header) (int, string) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, r)
	require.NoError(t, err)
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(data)
}

func TestGetConfiguration(t *testing.T) {
	_, ts := startServer(t, Options{})

	status, body := do(t, http.MethodGet, ts.URL+"/timeranges", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"cron_start":"0 7 * * 1-5","cron_stop":"0 17 * * *"}`, body)

	status, _ = do(t, http.MethodGet, ts.URL+"/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestPostConfiguration(t *testing.T) {
	s, ts := startServer(t, Options{Path: "api/timeranges"})

	status, _ := do(t, http.MethodPost, ts.URL+"/api/timeranges", `{"cron_start":"0 2 * * *","cron_stop":"0 18 * * *"}`, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, window.CronPair{CronStart: "0 2 * * *", CronStop: "0 18 * * *"}, s.Pair())

	_, body := do(t, http.MethodGet, ts.URL+"/api/timeranges", "", nil)
	assert.JSONEq(t, `{"cron_start":"0 2 * * *","cron_stop":"0 18 * * *"}`, body)

	gets, posts := s.Requests()
	assert.Equal(t, 1, gets)
	assert.Equal(t, 1, posts)
}

func TestPostRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `cron_start=0 2 * * *`},
		{"unknown field", `{"cron_start":"0 2 * * *","cron_stop":"0 18 * * *","extra":1}`},
		{"bad day field", `{"cron_start":"0 2 * * 0,6","cron_stop":"0 18 * * *"}`},
		{"missing stop", `{"cron_start":"0 2 * * *"}`},
		{"four fields", `{"cron_start":"0 2 * *","cron_stop":"0 18 * * *"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, ts := startServer(t, Options{})
			status, body := do(t, http.MethodPost, ts.URL+"/timeranges", tt.body, nil)
			assert.Equal(t, http.StatusBadRequest, status)

			var resp errorResponse
			require.NoError(t, json.Unmarshal([]byte(body), &resp))
			assert.NotEmpty(t, resp.Message)
			assert.Equal(t, DefaultPair, s.Pair(), "stored pair unchanged")
		})
	}
}

func TestFailNext(t *testing.T) {
	s, ts := startServer(t, Options{})
	s.FailNext(http.StatusInternalServerError)
	s.FailNext(http.StatusServiceUnavailable)

	status, _ := do(t, http.MethodGet, ts.URL+"/timeranges", "", nil)
	assert.Equal(t, http.StatusInternalServerError, status)
	status, _ = do(t, http.MethodGet, ts.URL+"/timeranges", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	status, _ = do(t, http.MethodGet, ts.URL+"/timeranges", "", nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestTokenAuth(t *testing.T) {
	_, ts := startServer(t, Options{Token: "s3cret"})

	status, _ := do(t, http.MethodGet, ts.URL+"/timeranges", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = do(t, http.MethodGet, ts.URL+"/timeranges", "", http.Header{"Authorization": {"Bearer s3cret"}})
	assert.Equal(t, http.StatusOK, status)
}

func TestStartAndShutdown(t *testing.T) {
	s := New(Options{}, testLogger())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Start("127.0.0.1:0") }()

	// Give the listener a moment before stopping it.
	time.Sleep(50 * time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))

	select {
	case err := <-errCh:
		assert.True(t, errors.Is(err, http.ErrServerClosed))
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after Shutdown")
	}
}

// The console's controller and HTTP fetcher driven against the mock API.
func TestControllerRoundTrip(t *testing.T) {
	s, ts := startServer(t, Options{Token: "tok"})
	fetcher := client.NewHTTPFetcher(client.Options{RetryMax: -1, Token: "tok", Timeout: 2 * time.Second}, testLogger())
	c := form.NewController(fetcher, ts.URL+"/timeranges", testLogger())
	ctx := context.Background()

	require.NoError(t, c.Mount(ctx))
	require.NoError(t, c.Wait(ctx))

	st := c.State()
	require.Equal(t, form.StatusIdle, st.Status)
	assert.Equal(t, window.Fields{StartHour: 7, EndHour: 17, Days: window.WorkingDays}, st.Fields)

	c.SetStartHour("2")
	c.SetEndHour("18")
	c.SelectDays(window.AllDays)
	require.True(t, c.Submit(ctx))
	require.NoError(t, c.Wait(ctx))

	st = c.State()
	assert.Equal(t, form.StatusSuccess, st.Status)
	assert.Equal(t, "SuccessSave done succesfully.", st.Alert.Text())
	assert.Equal(t, window.CronPair{CronStart: "0 2 * * *", CronStop: "0 18 * * *"}, s.Pair())

	// A rejected save keeps the form's snapshot and reports the status.
	s.FailNext(http.StatusInternalServerError)
	c.SelectDays(window.WorkingDays)
	require.True(t, c.Submit(ctx))
	require.NoError(t, c.Wait(ctx))

	st = c.State()
	assert.Equal(t, form.StatusError, st.Status)
	var transportErr *form.TransportError
	require.ErrorAs(t, st.Err, &transportErr)
	assert.Equal(t, http.StatusInternalServerError, transportErr.Status)
	assert.Equal(t, window.CronPair{CronStart: "0 2 * * *", CronStop: "0 18 * * *"}, s.Pair())

	require.NoError(t, c.Shutdown(ctx))
}
