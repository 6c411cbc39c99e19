// Package mockserver emulates the DailyClean API's active-window resource
// for local development and tests. It serves the same JSON document the
// real backend does:
//
//	GET  /timeranges  -> {"cron_start":"0 7 * * 1-5","cron_stop":"0 17 * * *"}
//	POST /timeranges  <- same shape, 200 on success, 400 when malformed
//
// Failures can be scripted with FailNext to exercise the console's error
// handling.
package mockserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/doughall/dailyclean/console/internal/window"
)

// DefaultPair is served until the first successful POST.
var DefaultPair = window.CronPair{CronStart: "0 7 * * 1-5", CronStop: "0 17 * * *"}

// Options configures a Server.
type Options struct {
	// Path of the configuration resource. Default: "/timeranges".
	Path string
	// Initial is the pair served before any POST. Default: DefaultPair.
	Initial *window.CronPair
	// Token, when set, must be presented as a Bearer Authorization header.
	Token string
	// Latency delays every configuration response.
	Latency time.Duration
}

// errorResponse is the body of non-2xx responses.
type errorResponse struct {
	Message string `json:"message"`
}

// Server is the mock DailyClean API.
type Server struct {
	echo    *echo.Echo
	path    string
	token   string
	latency time.Duration
	logger  *slog.Logger

	mu       sync.Mutex
	pair     window.CronPair
	failures []int
	gets     int
	posts    int
}

// New creates a server with routes registered. It does not listen until
// Start is called; Handler can be mounted on an httptest server instead.
func New(opts Options, logger *slog.Logger) *Server {
	if opts.Path == "" {
		opts.Path = "/timeranges"
	}
	if !strings.HasPrefix(opts.Path, "/") {
		opts.Path = "/" + opts.Path
	}
	pair := DefaultPair
	if opts.Initial != nil {
		pair = *opts.Initial
	}

	s := &Server{
		path:    opts.Path,
		token:   opts.Token,
		latency: opts.Latency,
		logger:  logger.With(slog.String("component", "mockserver")),
		pair:    pair,
	}
	s.echo = s.setupCore()
	s.setupRoutes()
	return s
}

// setupCore initializes the Echo instance with common middleware
func (s *Server) setupCore() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("64K"))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			s.logger.Info("request",
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
			)
			return nil
		},
	}))
	return e
}

func (s *Server) setupRoutes() {
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	api := s.echo.Group(s.path)
	if s.token != "" {
		api.Use(s.tokenAuthMiddleware)
	}
	api.Use(s.scriptedFailureMiddleware)
	api.GET("", s.getConfiguration)
	api.POST("", s.postConfiguration)
}

// tokenAuthMiddleware checks the bearer token
func (s *Server) tokenAuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if c.Request().Header.Get(echo.HeaderAuthorization) == "Bearer "+s.token {
			return next(c)
		}
		return c.JSON(http.StatusUnauthorized, errorResponse{Message: "invalid token"})
	}
}

// scriptedFailureMiddleware answers with the next queued FailNext status.
func (s *Server) scriptedFailureMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		s.mu.Lock()
		s.count(c.Request().Method)
		var status int
		if len(s.failures) > 0 {
			status, s.failures = s.failures[0], s.failures[1:]
		}
		s.mu.Unlock()

		if status != 0 {
			return c.JSON(status, errorResponse{Message: "scripted failure"})
		}
		if s.latency > 0 {
			select {
			case <-time.After(s.latency):
			case <-c.Request().Context().Done():
				return c.Request().Context().Err()
			}
		}
		return next(c)
	}
}

// count tallies requests. Caller must hold s.mu.
func (s *Server) count(method string) {
	switch method {
	case http.MethodGet:
		s.gets++
	case http.MethodPost:
		s.posts++
	}
}

func (s *Server) getConfiguration(c echo.Context) error {
	return c.JSON(http.StatusOK, s.Pair())
}

func (s *Server) postConfiguration(c echo.Context) error {
	var pair window.CronPair
	dec := json.NewDecoder(c.Request().Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&pair); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Message: "invalid JSON: " + err.Error()})
	}

	if _, err := window.Decode(pair); err != nil {
		var decodeErr *window.DecodeError
		if errors.As(err, &decodeErr) {
			return c.JSON(http.StatusBadRequest, errorResponse{Message: decodeErr.Error()})
		}
		return c.JSON(http.StatusBadRequest, errorResponse{Message: err.Error()})
	}

	s.SetPair(pair)
	s.logger.Info("configuration updated",
		slog.String("cron_start", pair.CronStart),
		slog.String("cron_stop", pair.CronStop),
	)
	return c.JSON(http.StatusOK, pair)
}

// Handler returns the HTTP handler serving the API.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on addr. It returns http.ErrServerClosed after Shutdown.
func (s *Server) Start(addr string) error {
	s.logger.Info("mock API listening",
		slog.String("addr", addr),
		slog.String("path", s.path),
	)
	return s.echo.Start(addr)
}

// Shutdown stops the server gracefully. It implements shutdown.Shutdowner.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Pair returns the stored configuration.
func (s *Server) Pair() window.CronPair {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pair
}

// SetPair replaces the stored configuration.
func (s *Server) SetPair(pair window.CronPair) {
	s.mu.Lock()
	s.pair = pair
	s.mu.Unlock()
}

// FailNext makes the next configuration request answer with status.
// Calls queue up: FailNext(500); FailNext(503) fails the next two requests.
func (s *Server) FailNext(status int) {
	s.mu.Lock()
	s.failures = append(s.failures, status)
	s.mu.Unlock()
}

// Requests returns how many GET and POST configuration requests were
// received, scripted failures included.
func (s *Server) Requests() (gets, posts int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gets, s.posts
}
