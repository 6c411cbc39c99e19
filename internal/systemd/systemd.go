// Package systemd lets the mock API run as a Type=notify systemd service,
// which is how the integration environment starts it next to the console.
//
// This package wraps the coreos/go-systemd library to provide:
// - sd_notify READY/STOPPING/STATUS notifications
// - Watchdog pinging for WatchdogSec health monitoring
// - Graceful degradation when systemd is not available (e.g., development)
package systemd

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
)

// Notifier sends sd_notify messages. All methods are no-ops when the
// process was not started by systemd.
type Notifier struct {
	logger *slog.Logger
	// notify is daemon.SdNotify; replaced in tests.
	notify func(unsetEnvironment bool, state string) (bool, error)
	// watchdogInterval is daemon.SdWatchdogEnabled; replaced in tests.
	watchdogInterval func(unsetEnvironment bool) (time.Duration, error)
}

// NewNotifier creates a notifier.
func NewNotifier(logger *slog.Logger) *Notifier {
	return &Notifier{
		logger:           logger.With(slog.String("component", "systemd")),
		notify:           daemon.SdNotify,
		watchdogInterval: daemon.SdWatchdogEnabled,
	}
}

// Ready sends READY=1 along with a human-readable status line.
// Returns true if the notification was sent.
func (n *Notifier) Ready(status string) bool {
	return n.send("ready", daemon.SdNotifyReady+"\nSTATUS="+status)
}

// Stopping sends STOPPING=1. systemd then waits for the process to exit
// rather than killing it.
func (n *Notifier) Stopping() bool {
	return n.send("stopping", daemon.SdNotifyStopping)
}

// Status updates the status line shown by systemctl status.
func (n *Notifier) Status(status string) bool {
	return n.send("status", "STATUS="+status)
}

func (n *Notifier) send(name, state string) bool {
	sent, err := n.notify(false, state)
	if err != nil {
		n.logger.Warn("failed to send systemd notification",
			slog.String("notification", name),
			slog.String("error", err.Error()),
		)
		return false
	}
	if !sent {
		n.logger.Debug("systemd notification not available (not running under systemd)")
	}
	return sent
}

// HealthCheckFunc returns true if the service is healthy.
// Used by StartWatchdog to decide whether to send watchdog pings.
type HealthCheckFunc func() bool

// StartWatchdog starts a goroutine that pings the systemd watchdog every
// half WatchdogSec while healthCheck reports healthy. It returns false
// without starting anything when the watchdog is not enabled.
// The goroutine exits when ctx is cancelled.
func (n *Notifier) StartWatchdog(ctx context.Context, healthCheck HealthCheckFunc) bool {
	interval, err := n.watchdogInterval(false)
	if err != nil {
		n.logger.Debug("watchdog not enabled", slog.String("error", err.Error()))
		return false
	}
	if interval == 0 {
		return false
	}

	pingInterval := interval / 2
	n.logger.Info("starting systemd watchdog",
		slog.Duration("watchdog_interval", interval),
		slog.Duration("ping_interval", pingInterval),
	)

	go n.watchdogLoop(ctx, pingInterval, healthCheck)
	return true
}

func (n *Notifier) watchdogLoop(ctx context.Context, interval time.Duration, healthCheck HealthCheckFunc) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !healthCheck() {
				n.logger.Warn("health check failed, skipping watchdog ping")
				continue
			}
			n.send("watchdog", daemon.SdNotifyWatchdog)
		}
	}
}

// IsRunningUnderSystemd returns true if the process was started by systemd.
// Detected by checking for the NOTIFY_SOCKET environment variable.
func IsRunningUnderSystemd() bool {
	return os.Getenv("NOTIFY_SOCKET") != ""
}
