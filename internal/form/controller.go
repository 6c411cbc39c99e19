package form

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/doughall/dailyclean/console/internal/client"
	"github.com/doughall/dailyclean/console/internal/window"
)

// Fetcher is the injected transport. It is the only I/O boundary of the form.
type Fetcher interface {
	Fetch(ctx context.Context, url string, req client.Request) (*client.Response, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, url string, req client.Request) (*client.Response, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, url string, req client.Request) (*client.Response, error) {
	return f(ctx, url, req)
}

// Operation names the request an Event reports on.
type Operation string

const (
	OperationLoad Operation = "load"
	OperationSave Operation = "save"
)

// Event describes a settled request.
type Event struct {
	Operation Operation
	Pair      window.CronPair
	Err       error
	At        time.Time
	Duration  time.Duration
}

// Observer is notified after every settled request, once the form state
// has been updated.
type Observer interface {
	Observe(ctx context.Context, ev Event)
}

// TransportError reports a rejected fetch or a non-2xx status.
type TransportError struct {
	Method string
	URL    string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
	}
	return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.URL, e.Status)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Controller errors.
var (
	ErrAlreadyMounted = errors.New("form already mounted")
	ErrClosed         = errors.New("form closed")
)

// Option configures a Controller.
type Option func(*Controller)

// WithObserver registers an observer for settled requests.
func WithObserver(o Observer) Option {
	return func(c *Controller) {
		c.observers = append(c.observers, o)
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// Controller owns the form State and performs the requests it calls for.
// All methods are safe for concurrent use; requests run on their own
// goroutine and never block the caller.
type Controller struct {
	fetcher   Fetcher
	url       string
	logger    *slog.Logger
	observers []Observer
	now       func() time.Time

	mu      sync.Mutex
	state   State
	mounted bool
	closed  bool
	// inflight is closed when the current request has settled and its
	// observers have run. nil when idle.
	inflight chan struct{}
	updates  chan State
}

// NewController creates a form bound to the configuration resource at url.
func NewController(fetcher Fetcher, url string, logger *slog.Logger, opts ...Option) *Controller {
	c := &Controller{
		fetcher: fetcher,
		url:     url,
		logger:  logger.With(slog.String("component", "form")),
		now:     time.Now,
		state:   Initial(),
		updates: make(chan State, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Mount issues the initial read. It may be called once.
func (c *Controller) Mount(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.mounted {
		return ErrAlreadyMounted
	}
	c.mounted = true
	c.state = Initial()
	c.publishLocked()

	done := make(chan struct{})
	c.inflight = done
	go c.load(ctx, done)
	return nil
}

// SetStartHour applies raw start hour input.
func (c *Controller) SetStartHour(value string) {
	c.Edit(Edit{Field: FieldStartHour, Value: value})
}

// SetEndHour applies raw end hour input.
func (c *Controller) SetEndHour(value string) {
	c.Edit(Edit{Field: FieldEndHour, Value: value})
}

// SelectDays applies a day toggle.
func (c *Controller) SelectDays(days window.DaySet) {
	c.Edit(Edit{Field: FieldDays, Days: days})
}

// Edit applies an operator change.
func (c *Controller) Edit(e Edit) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.state = c.state.Edit(e)
	c.publishLocked()
}

// DismissAlert clears the transient notice.
func (c *Controller) DismissAlert() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.state.Alert.Kind == AlertNone {
		return
	}
	c.state = c.state.DismissAlert()
	c.publishLocked()
}

// Submit saves the current fields. It returns false, without sending
// anything, unless the form is Dirty.
func (c *Controller) Submit(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	next, pair, ok := c.state.BeginSubmit()
	if !ok {
		c.logger.Debug("submit ignored",
			slog.String("status", c.state.Status.String()),
		)
		return false
	}
	c.state = next
	c.publishLocked()

	done := make(chan struct{})
	c.inflight = done
	go c.save(ctx, pair, done)
	return true
}

// State returns the current form state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// View projects the current state for rendering.
func (c *Controller) View() View {
	return Project(c.State(), c.now())
}

// Updates delivers the latest state after every transition. Intermediate
// states may be skipped when the reader is slow. The channel is closed by
// Shutdown.
func (c *Controller) Updates() <-chan State {
	return c.updates
}

// Wait blocks until no request is in flight.
func (c *Controller) Wait(ctx context.Context) error {
	c.mu.Lock()
	done := c.inflight
	c.mu.Unlock()

	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown unmounts the form: further events are ignored, the updates
// channel is closed and the in-flight request, if any, is awaited.
func (c *Controller) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.updates)
	}
	c.mu.Unlock()

	if err := c.Wait(ctx); err != nil {
		c.logger.Warn("form shutdown timed out with a request in flight")
		return err
	}
	return nil
}

// publishLocked replaces any unread state with the current one.
// Caller must hold c.mu.
func (c *Controller) publishLocked() {
	if c.closed {
		return
	}
	select {
	case <-c.updates:
	default:
	}
	c.updates <- c.state
}

func (c *Controller) load(ctx context.Context, done chan struct{}) {
	start := c.now()
	pair, fields, err := c.read(ctx)

	c.mu.Lock()
	if err != nil {
		c.state = c.state.LoadFailed(err)
	} else {
		c.state = c.state.Loaded(fields)
	}
	c.publishLocked()
	c.mu.Unlock()

	if err != nil {
		c.logger.Error("failed to load configuration",
			slog.String("url", c.url),
			slog.String("error", err.Error()),
		)
	} else {
		c.logger.Info("configuration loaded",
			slog.String("cron_start", pair.CronStart),
			slog.String("cron_stop", pair.CronStop),
		)
	}

	c.settle(ctx, Event{Operation: OperationLoad, Pair: pair, Err: err, At: start, Duration: c.now().Sub(start)}, done)
}

func (c *Controller) read(ctx context.Context) (window.CronPair, window.Fields, error) {
	resp, err := c.fetcher.Fetch(ctx, c.url, client.Request{Method: http.MethodGet})
	if err != nil {
		return window.CronPair{}, window.Fields{}, &TransportError{Method: http.MethodGet, URL: c.url, Err: err}
	}
	if !resp.OK() {
		return window.CronPair{}, window.Fields{}, &TransportError{Method: http.MethodGet, URL: c.url, Status: resp.Status}
	}

	var pair window.CronPair
	if err := resp.JSON(&pair); err != nil {
		return window.CronPair{}, window.Fields{}, &window.DecodeError{Field: "body", Reason: "invalid configuration document", Err: err}
	}
	fields, err := window.Decode(pair)
	if err != nil {
		return pair, window.Fields{}, err
	}
	return pair, fields, nil
}

func (c *Controller) save(ctx context.Context, pair window.CronPair, done chan struct{}) {
	start := c.now()
	err := c.write(ctx, pair)

	c.mu.Lock()
	if err != nil {
		c.state = c.state.SubmitFailed(err)
	} else {
		c.state = c.state.SubmitSucceeded()
	}
	c.publishLocked()
	c.mu.Unlock()

	if err != nil {
		c.logger.Error("failed to save configuration",
			slog.String("url", c.url),
			slog.String("error", err.Error()),
		)
	} else {
		c.logger.Info("configuration saved",
			slog.String("cron_start", pair.CronStart),
			slog.String("cron_stop", pair.CronStop),
		)
	}

	c.settle(ctx, Event{Operation: OperationSave, Pair: pair, Err: err, At: start, Duration: c.now().Sub(start)}, done)
}

func (c *Controller) write(ctx context.Context, pair window.CronPair) error {
	body, err := json.Marshal(pair)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}
	resp, err := c.fetcher.Fetch(ctx, c.url, client.Request{Method: http.MethodPost, Body: string(body)})
	if err != nil {
		return &TransportError{Method: http.MethodPost, URL: c.url, Err: err}
	}
	if !resp.OK() {
		return &TransportError{Method: http.MethodPost, URL: c.url, Status: resp.Status}
	}
	return nil
}

// settle notifies observers and marks the request finished.
func (c *Controller) settle(ctx context.Context, ev Event, done chan struct{}) {
	observeCtx := context.WithoutCancel(ctx)
	for _, o := range c.observers {
		o.Observe(observeCtx, ev)
	}

	c.mu.Lock()
	if c.inflight == done {
		c.inflight = nil
	}
	c.mu.Unlock()
	close(done)
}
