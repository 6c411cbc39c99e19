// Package notify announces saved active windows on NATS so that other
// DailyClean components (dashboards, audit consumers) learn about changes
// made from the console without polling the API.
//
// Features:
//   - Optional NKey authentication (public-key cryptography)
//   - Automatic reconnection
//   - One core NATS message per successful save
//
// Usage:
//
//	p := notify.NewPublisher(cfg, logger)
//	if err := p.Connect(ctx); err != nil { ... }
//	defer p.Close()
//	controller := form.NewController(fetcher, url, logger, form.WithObserver(p))
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nkeys"

	"github.com/doughall/dailyclean/console/internal/form"
)

// DefaultSubject is used when Config.Subject is empty.
const DefaultSubject = "dailyclean.timeranges.updated"

// ErrNotConnected is returned when publishing without a live connection.
var ErrNotConnected = errors.New("nats not connected")

// Config holds NATS connection configuration.
type Config struct {
	Servers  string // Comma-separated list of NATS server URLs
	NKeySeed string // Optional NKey seed for authentication (starts with SU)
	Subject  string // Subject for window updates
	Source   string // Identifies this console in published messages
}

// Enabled reports whether a server list is configured.
func (c Config) Enabled() bool {
	return c.Servers != ""
}

// conn is the part of *nats.Conn the publisher uses.
type conn interface {
	Publish(subject string, data []byte) error
	IsConnected() bool
	Drain() error
}

// Publisher publishes window updates to NATS.
type Publisher struct {
	config Config
	logger *slog.Logger

	mu sync.RWMutex
	nc conn
}

// NewPublisher creates a publisher. Call Connect before use.
func NewPublisher(cfg Config, logger *slog.Logger) *Publisher {
	if cfg.Subject == "" {
		cfg.Subject = DefaultSubject
	}
	return &Publisher{
		config: cfg,
		logger: logger.With(slog.String("component", "notify")),
	}
}

// Connect establishes a connection to the NATS servers.
func (p *Publisher) Connect(ctx context.Context) error {
	opts := []nats.Option{
		nats.Name("dailyclean-console"),
		nats.Timeout(5 * time.Second),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				p.logger.Warn("NATS disconnected", slog.String("error", err.Error()))
			} else {
				p.logger.Info("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			p.logger.Info("NATS reconnected", slog.String("server", nc.ConnectedUrl()))
		}),
	}

	if p.config.NKeySeed != "" {
		kp, err := nkeys.FromSeed([]byte(p.config.NKeySeed))
		if err != nil {
			return fmt.Errorf("invalid nkey seed: %w", err)
		}
		pubKey, err := kp.PublicKey()
		if err != nil {
			return fmt.Errorf("failed to get public key: %w", err)
		}
		opts = append(opts, nats.Nkey(pubKey, func(nonce []byte) ([]byte, error) {
			return kp.Sign(nonce)
		}))
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	nc, err := nats.Connect(p.config.Servers, opts...)
	if err != nil {
		return fmt.Errorf("nats connect: %w", err)
	}

	p.mu.Lock()
	p.nc = nc
	p.mu.Unlock()

	p.logger.Info("NATS connected",
		slog.String("server", nc.ConnectedUrl()),
		slog.String("subject", p.config.Subject),
	)
	return nil
}

// IsConnected returns whether the NATS connection is active.
func (p *Publisher) IsConnected() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.nc != nil && p.nc.IsConnected()
}

// PublishWindowUpdated announces a saved window.
func (p *Publisher) PublishWindowUpdated(msg WindowUpdatedMessage, at time.Time) error {
	p.mu.RLock()
	nc := p.nc
	p.mu.RUnlock()

	if nc == nil || !nc.IsConnected() {
		return ErrNotConnected
	}

	if msg.Source == "" {
		msg.Source = p.config.Source
	}
	data, err := buildEnvelope(TypeWindowUpdated, msg, at)
	if err != nil {
		return err
	}
	if err := nc.Publish(p.config.Subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", p.config.Subject, err)
	}
	return nil
}

// Observe publishes successful saves. It implements form.Observer.
func (p *Publisher) Observe(_ context.Context, ev form.Event) {
	if ev.Operation != form.OperationSave || ev.Err != nil {
		return
	}

	err := p.PublishWindowUpdated(WindowUpdatedMessage{
		CronStart: ev.Pair.CronStart,
		CronStop:  ev.Pair.CronStop,
	}, ev.At)
	if err != nil {
		p.logger.Warn("failed to publish window update",
			slog.String("error", err.Error()),
		)
		return
	}
	p.logger.Debug("window update published",
		slog.String("subject", p.config.Subject),
	)
}

// Close drains and closes the connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.nc == nil {
		return nil
	}
	err := p.nc.Drain()
	p.nc = nil
	return err
}

// Shutdown implements shutdown.Shutdowner.
func (p *Publisher) Shutdown(_ context.Context) error {
	return p.Close()
}

func buildEnvelope(msgType string, payload any, at time.Time) ([]byte, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	env := Envelope{
		ID:        uuid.NewString(),
		Type:      msgType,
		Payload:   payloadBytes,
		Timestamp: at.UTC().Format(time.RFC3339),
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}
	return data, nil
}
