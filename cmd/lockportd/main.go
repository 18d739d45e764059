// lockportd is the LockPort monitoring daemon. It watches for removable
// storage arrivals, disables each new device, and gates re-enabling behind
// the shared PIN.

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

	"github.com/Lintshiwe/LockPort/internal/config"
	"github.com/Lintshiwe/LockPort/internal/prompt"
	"github.com/Lintshiwe/LockPort/internal/service"
	"github.com/Lintshiwe/LockPort/internal/statusapi"
	"github.com/Lintshiwe/LockPort/internal/usbmon"
	"github.com/Lintshiwe/LockPort/internal/version"
	"github.com/Lintshiwe/LockPort/pkg/audit"
	"github.com/Lintshiwe/LockPort/pkg/locker"
	"github.com/Lintshiwe/LockPort/pkg/pincache"
	"github.com/Lintshiwe/LockPort/pkg/pinstore"
	"github.com/Lintshiwe/LockPort/pkg/registry"
	"github.com/Lintshiwe/LockPort/pkg/store"
	"github.com/Lintshiwe/LockPort/pkg/timeutil"
)

var configPath = flag.String("config", "", "Path to lockport.yaml (optional)")

func main() {
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "lockportd:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	log := newLogger(cfg.LogLevel)
	log.Info("lockportd starting", "version", version.String())

	db, err := store.Open(cfg.ResolveStorePath())
	if err != nil {
		return fmt.Errorf("open state database: %w", err)
	}
	defer db.Close()

	reg := registry.New()
	if err := reg.Load(db); err != nil {
		// Best-effort: a corrupt device table starts the registry empty.
		log.Warn("failed to load device registry, starting empty", "error", err)
	}

	pins, err := pinstore.New(pinstore.NewSQLitePersister(db), pinstore.Policy{
		AttemptLimit:    cfg.AttemptLimit,
		LockoutDuration: cfg.LockoutDuration(),
		Iterations:      cfg.PinIterations,
	}, timeutil.SystemClock{})
	if err != nil {
		return fmt.Errorf("init credential store: %w", err)
	}

	cache, err := pincache.New(nil)
	if err != nil {
		return fmt.Errorf("init pin cache: %w", err)
	}

	primary, fallback := locker.DefaultMechanisms()
	orchestrator := locker.New(primary, fallback, reg, log,
		locker.WithTimeout(cfg.LockTimeout()))

	source, err := usbmon.NewPlatformSource()
	if err != nil {
		return err
	}
	monitor := usbmon.New(source, log, usbmon.WithPollInterval(cfg.PollInterval()))

	prompter := &prompt.TerminalPrompter{
		In:      os.Stdin,
		Out:     os.Stdout,
		Timeout: cfg.PromptTimeout(),
	}

	backends := []audit.EventEmitter{audit.SlogEmitter{Logger: log}}
	if cfg.SyslogSocket != "" {
		syslogEmitter, err := audit.NewSyslogEmitter(audit.SyslogConfig{SocketPath: cfg.SyslogSocket})
		if err != nil {
			// Slog-only audit is acceptable when the syslog daemon is down.
			log.Warn("syslog audit unavailable", "socket", cfg.SyslogSocket, "error", err)
		} else {
			defer syslogEmitter.Close()
			backends = append(backends, syslogEmitter)
		}
	}
	rec := audit.NewRecorder(log, backends...)
	rec.Record(audit.NewServiceStart(version.String()))

	svc := service.New(reg, pins, cache, orchestrator, prompter, rec, log,
		service.WithCacheTTL(cfg.CacheTTL()),
		service.WithRecentUnlockGrace(cfg.RecentUnlockGrace()),
		service.WithDurableStore(db))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.StatusAddr != "" {
		api := statusapi.NewServer(reg, pins, version.String(), log)
		if err := api.Start(cfg.StatusAddr); err != nil {
			// The engine still protects devices without the status API.
			log.Warn("status api unavailable", "error", err)
		} else {
			defer func() {
				shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
				defer stop()
				if err := api.Stop(shutdownCtx); err != nil {
					log.Warn("status api shutdown failed", "error", err)
				}
			}()
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info("received signal, shutting down", "signal", sig.String())
		cancel()
	}()

	monitorDone := make(chan error, 1)
	go func() { monitorDone <- monitor.Run(ctx) }()

	err = svc.Run(ctx, monitor.Events())
	cancel()
	<-monitorDone

	reason := "signal"
	switch {
	case errors.Is(err, service.ErrExitRequested):
		reason = "operator exit"
	case err != nil && !errors.Is(err, context.Canceled):
		rec.Record(audit.NewServiceStop(err.Error()))
		return err
	}

	rec.Record(audit.NewServiceStop(reason))
	log.Info("lockportd stopped", "reason", reason)
	return nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
