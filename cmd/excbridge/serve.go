package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/mattjoyce/excbridge/internal/api"
	"github.com/mattjoyce/excbridge/internal/auth"
	"github.com/mattjoyce/excbridge/internal/config"
	"github.com/mattjoyce/excbridge/internal/doctor"
	"github.com/mattjoyce/excbridge/internal/events"
	"github.com/mattjoyce/excbridge/internal/lock"
	"github.com/mattjoyce/excbridge/internal/log"
	"github.com/mattjoyce/excbridge/internal/service"
	"github.com/mattjoyce/excbridge/internal/transport"
)

const shutdownTimeout = 10 * time.Second

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	cfg, err := config.Load(resolveConfigFlag(*configPath))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := serve(ctx, cfg); err != nil {
		log.Error("excbridge failed", "error", err)
		return 1
	}
	return 0
}

// serve runs the bridge described by cfg until ctx is cancelled or a
// component fails.
func serve(ctx context.Context, cfg *config.Config) error {
	log.Setup(cfg.Service.LogLevel)
	logger := log.WithComponent("main")
	logger.Info("excbridge starting",
		"version", version,
		"config", cfg.SourcePath,
		"fingerprint", cfg.Fingerprint,
	)

	report := doctor.New(cfg).Validate()
	for _, w := range report.Warnings {
		logger.Warn("config warning", "category", w.Category, "field", w.Field, "message", w.Message)
	}
	if !report.Valid {
		first := report.Errors[0]
		return fmt.Errorf("config check failed: %s: %s (run 'excbridge config check' for the full report)", first.Field, first.Message)
	}

	lockPath := lock.PathFor(cfg.Socket.Path)
	pidLock, err := lock.AcquirePIDLock(lockPath)
	if err != nil {
		return fmt.Errorf("acquire instance lock %s: %w", lockPath, err)
	}
	defer func() { _ = pidLock.Release() }()
	logger.Info("acquired instance lock", "path", lockPath)

	hub := events.NewHub(cfg.Events.Buffer)
	sinks := events.Fanout{hub}

	var journal api.JournalReader
	if cfg.Events.JournalPath != "" {
		j, err := events.OpenJournal(ctx, cfg.Events.JournalPath, cfg.Events.Buffer)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer func() { _ = j.Close() }()
		sinks = append(sinks, j)
		journal = j
		logger.Info("event journal enabled", "path", cfg.Events.JournalPath)
	}

	var forwarder *events.Forwarder
	if cfg.Events.ForwardURL != "" {
		forwarder, err = events.NewForwarder(events.ForwarderOptions{
			URL:         cfg.Events.ForwardURL,
			Timeout:     cfg.Events.ForwardTimeout,
			Buffer:      cfg.Events.Buffer,
			Secret:      cfg.Events.ForwardSecret,
			MaxFailures: cfg.Events.BreakerFailures,
			ResetAfter:  cfg.Events.BreakerReset,
			Logger:      log.WithComponent("forwarder"),
		})
		if err != nil {
			return fmt.Errorf("create forwarder: %w", err)
		}
		defer func() { _ = forwarder.Close() }()
		sinks = append(sinks, forwarder)
		logger.Info("event forwarding enabled", "url", cfg.Events.ForwardURL, "signed", cfg.Events.ForwardSecret != "")
	}

	front, err := service.New(service.Options{
		AppName:     cfg.EXC.Name,
		Recipe:      cfg.EXC.Recipe,
		AWM:         cfg.EXC.AWM,
		CPS:         cfg.EXC.CPS,
		MaxCycles:   cfg.EXC.MaxCycles,
		Disabled:    !cfg.EXC.Enabled,
		MailboxSize: cfg.Socket.MailboxSize,
		Sink:        sinks,
	})
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := front.Start(runCtx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	defer func() {
		shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
		defer done()
		if err := front.Shutdown(shutdownCtx); err != nil {
			logger.Error("service shutdown incomplete", "error", err)
		}
	}()

	endpoint, err := front.Bind()
	if err != nil {
		return fmt.Errorf("bind socket endpoint: %w", err)
	}
	defer front.Unbind()

	errCh := make(chan error, 2)

	// Socket and API goroutines are joined before the endpoint is unbound,
	// so the socket file is gone by the time serve returns.
	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
	}()

	socket := transport.NewServer(cfg.Socket.Path, endpoint).WithReplyTimeout(cfg.Socket.ReplyTimeout)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := socket.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("socket: %w", err)
		}
	}()

	if cfg.API.Enabled {
		tokens := make([]auth.TokenConfig, 0, len(cfg.API.Tokens))
		for _, t := range cfg.API.Tokens {
			tokens = append(tokens, auth.TokenConfig{Token: t.Token, Scopes: t.Scopes})
		}
		apiServer, err := api.New(api.Config{
			Listen:       cfg.API.Listen,
			Tokens:       tokens,
			Fingerprint:  cfg.Fingerprint,
			CommandRate:  cfg.API.RateLimit.PerSecond,
			CommandBurst: cfg.API.RateLimit.Burst,
		}, front, hub, journal, log.WithComponent("api"))
		if err != nil {
			return fmt.Errorf("create api server: %w", err)
		}
		if forwarder != nil {
			apiServer.WithForwarder(forwarder)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := apiServer.Start(runCtx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("api: %w", err)
			}
		}()
		logger.Info("API server enabled", "listen", cfg.API.Listen)
	}

	logger.Info("excbridge running (press Ctrl+C to stop)", "socket", cfg.Socket.Path)

	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	case err := <-errCh:
		logger.Error("component failed", "error", err)
		return err
	}

	logger.Info("excbridge stopped")
	return nil
}

func printServeHelp() {
	fmt.Println("Usage: excbridge serve [flags]")
	fmt.Println()
	fmt.Println("Runs the execution context, the control socket and, when enabled, the")
	fmt.Println("admin API. Stops on SIGINT or SIGTERM.")
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  --config <path>   Config file or directory (env EXCBRIDGE_CONFIG, default config.yaml)")
}
