// DailyClean mock API - Entry Point
//
// Serves the active-window resource of the DailyClean API from memory so the
// console can be developed and demonstrated without a Kubernetes cluster.
//
// Lifecycle:
//  1. Parse flags and setup the JSON logger (stdout)
//  2. Start the echo server
//  3. Notify systemd that the service is ready (Type=notify), start watchdog
//  4. Wait for shutdown signal (SIGTERM/SIGINT)
//  5. Notify systemd that service is stopping, then drain connections
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/doughall/dailyclean/console/internal/logging"
	"github.com/doughall/dailyclean/console/internal/mockserver"
	"github.com/doughall/dailyclean/console/internal/shutdown"
	"github.com/doughall/dailyclean/console/internal/systemd"
	"github.com/doughall/dailyclean/console/internal/version"
	"github.com/doughall/dailyclean/console/internal/window"
)

const shutdownTimeout = 10 * time.Second

func main() {
	addr := flag.String("addr", "127.0.0.1:8080", "listen address")
	path := flag.String("path", "/timeranges", "path of the configuration resource")
	token := flag.String("token", "", "require this bearer token")
	cronStart := flag.String("cron-start", mockserver.DefaultPair.CronStart, "initial start expression")
	cronStop := flag.String("cron-stop", mockserver.DefaultPair.CronStop, "initial stop expression")
	latency := flag.Duration("latency", 0, "delay added to every configuration response")
	logLevel := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Info("dailyclean-mock"))
		os.Exit(0)
	}

	logger := logging.SetupLogger(*logLevel, os.Stdout)

	initial := window.CronPair{CronStart: *cronStart, CronStop: *cronStop}
	if _, err := window.Decode(initial); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: invalid initial configuration: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	server := mockserver.New(mockserver.Options{
		Path:    *path,
		Initial: &initial,
		Token:   *token,
		Latency: *latency,
	}, logger)

	coordinator := shutdown.NewCoordinator(logger)
	coordinator.Register("http", server)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Start(*addr)
	}()

	notifier := systemd.NewNotifier(logger)
	notifier.Ready("serving " + *path + " on " + *addr)
	notifier.StartWatchdog(ctx, func() bool {
		return healthy(ctx, *addr)
	})

	logger.Info("mock API started",
		slog.String("version", version.Version),
		slog.String("cron_start", initial.CronStart),
		slog.String("cron_stop", initial.CronStop),
		slog.Bool("systemd", systemd.IsRunningUnderSystemd()),
	)

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, starting graceful shutdown")
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	notifier.Stopping()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := coordinator.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

// healthy probes the server's own health endpoint.
func healthy(ctx context.Context, addr string) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+addr+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
