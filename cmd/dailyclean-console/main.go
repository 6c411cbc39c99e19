// DailyClean console - Entry Point
//
// Terminal front end for the DailyClean active window: the daily hours and
// days during which the cluster's workloads are kept running.
//
// Configuration is loaded from ~/.config/dailyclean/console.yaml (or the path
// given by -config), with DAILYCLEAN_* environment overrides.
//
// Modes:
//   - default: interactive form (bubbletea)
//   - -apply -start H -end H -days all|working: non-interactive save
//   - -history N: print the N most recent loads and saves
//   - -init-config: write a configuration template and exit
//
// Lifecycle:
//  1. Load configuration, open the log file (the terminal belongs to the form)
//  2. Open the history journal, connect the NATS notifier if configured
//  3. Build the HTTP fetcher and the form controller
//  4. Run the selected mode
//  5. Coordinated shutdown with timeout
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/doughall/dailyclean/console/internal/client"
	"github.com/doughall/dailyclean/console/internal/config"
	"github.com/doughall/dailyclean/console/internal/form"
	"github.com/doughall/dailyclean/console/internal/history"
	"github.com/doughall/dailyclean/console/internal/logging"
	"github.com/doughall/dailyclean/console/internal/notify"
	"github.com/doughall/dailyclean/console/internal/shutdown"
	"github.com/doughall/dailyclean/console/internal/tui"
	"github.com/doughall/dailyclean/console/internal/version"
)

// How long to wait for an in-flight save and the journal on exit
const shutdownTimeout = 15 * time.Second

func main() {
	configPath := flag.String("config", config.DefaultConfigPath(), "path to configuration file")
	showVersion := flag.Bool("version", false, "print version information and exit")
	initConfig := flag.Bool("init-config", false, "write a configuration template to -config and exit")
	serverURL := flag.String("server", "http://localhost:8080", "server URL written by -init-config")
	historyLimit := flag.Int("history", 0, "print the N most recent requests and exit")
	applyMode := flag.Bool("apply", false, "save -start, -end and -days without the interactive form")
	start := flag.String("start", "", "start hour (0-23) for -apply")
	end := flag.String("end", "", "end hour (0-23) for -apply")
	days := flag.String("days", "", "days for -apply: all or working")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Info("dailyclean-console"))
		os.Exit(0)
	}

	if *initConfig {
		if err := writeTemplate(*configPath, *serverURL); err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("configuration written to %s\n", *configPath)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: failed to load configuration from %s: %v\n", *configPath, err)
		os.Exit(1)
	}

	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: failed to create data directory: %v\n", err)
		os.Exit(1)
	}
	logFile, err := logging.OpenFile(cfg.LogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}

	logger := logging.SetupLogger(cfg.LogLevel, logFile)
	logger.Info("console starting",
		slog.String("version", version.Version),
		slog.String("commit", version.Commit),
		slog.String("config_path", *configPath),
		slog.String("url", cfg.ConfigurationURL()),
		slog.Bool("nats", cfg.NATSEnabled()),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)

	code := run(ctx, cfg, logger, mode{
		historyLimit: *historyLimit,
		apply:        *applyMode,
		request:      applyRequest{Start: *start, End: *end, Days: *days},
	})

	stop()
	logger.Info("console stopped", slog.Int("exit_code", code))
	logFile.Close()
	os.Exit(code)
}

// mode selects what run does once the components are wired.
type mode struct {
	historyLimit int
	apply        bool
	request      applyRequest
}

// run wires the components, runs the selected mode and shuts everything
// down. It returns the process exit code.
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, m mode) int {
	coordinator := shutdown.NewCoordinator(logger)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := coordinator.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", slog.String("error", err.Error()))
		}
	}()

	journal, err := history.Open(cfg.HistoryPath(), logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		return 1
	}
	coordinator.Register("history", journal)

	if m.historyLimit > 0 {
		if err := printHistory(journal, m.historyLimit, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
			return 1
		}
		return 0
	}

	opts := []form.Option{form.WithObserver(journal)}

	if cfg.NATSEnabled() {
		publisher := notify.NewPublisher(notify.Config{
			Servers:  cfg.NATSServers,
			NKeySeed: cfg.NATSNKeySeed,
			Subject:  cfg.NATSSubject,
			Source:   hostname(),
		}, logger)
		if err := publisher.Connect(ctx); err != nil {
			logger.Warn("NATS connection failed, window updates will not be announced",
				slog.String("error", err.Error()),
			)
		} else {
			coordinator.Register("notify", publisher)
			opts = append(opts, form.WithObserver(publisher))
		}
	}

	fetcher := client.NewHTTPFetcher(client.Options{
		Timeout:   cfg.Timeout(),
		RetryMax:  cfg.RetryMax,
		Token:     cfg.APIToken,
		UserAgent: version.UserAgent(),
	}, logger)

	controller := form.NewController(fetcher, cfg.ConfigurationURL(), logger, opts...)
	coordinator.Register("form", controller)

	if m.apply {
		if err := apply(ctx, controller, m.request, os.Stdout); err != nil {
			if errors.Is(err, ErrUnchanged) {
				fmt.Println(err)
				return 0
			}
			fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
			return 1
		}
		return 0
	}

	model := tui.NewModel(ctx, controller, tui.WithAlertDelay(cfg.AlertDuration()))
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		logger.Error("terminal UI failed", slog.String("error", err.Error()))
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		return 1
	}
	return 0
}

// writeTemplate saves a default configuration, refusing to overwrite.
func writeTemplate(path, serverURL string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	return config.Save(path, config.Default(serverURL))
}

func hostname() string {
	name, err := os.Hostname()
	if err != nil {
		return "dailyclean-console"
	}
	return name
}
