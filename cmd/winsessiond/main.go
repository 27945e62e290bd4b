// Package main is the entry point for the winsessiond window session daemon.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/diamondburned/gotk4-adwaita/pkg/adw"
	"github.com/diamondburned/gotk4/pkg/glib/v2"

	"github.com/jmylchreest/winsession/internal/audio"
	"github.com/jmylchreest/winsession/internal/bus"
	"github.com/jmylchreest/winsession/internal/config"
	"github.com/jmylchreest/winsession/internal/daemon"
	"github.com/jmylchreest/winsession/internal/dbus"
	"github.com/jmylchreest/winsession/internal/display"
	"github.com/jmylchreest/winsession/internal/logging"
	"github.com/jmylchreest/winsession/internal/store"
)

const appID = "io.github.jmylchreest.winsessiond"

var (
	// Build-time variables
	version = "dev"
)

func main() {
	configPath := flag.String("config", "", "Path to the config file (default $XDG_CONFIG_HOME/winsession/winsession.toml)")
	workspace := flag.String("workspace", "", "Workspace to restore, overriding the config")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("winsessiond version", version)
		os.Exit(0)
	}

	cfg, err := config.LoadDaemonConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *workspace != "" {
		cfg.Session.Workspace = *workspace
	}

	logger, logCloser, err := logging.Setup(logging.OptionsFromConfig(cfg))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logCloser.Close() }()
	slog.SetDefault(logger)

	os.Exit(run(cfg, *configPath, logger))
}

// run owns the GTK application. Session startup and teardown block on
// windows being built, so they run off the main loop.
func run(cfg *config.DaemonConfig, configPath string, logger *slog.Logger) int {
	logger.Info("starting winsessiond", "version", version, "workspace", cfg.Workspace())

	app := adw.NewApplication(appID, 0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// started and stopping are only touched on the GTK loop. The
	// components are written during activation and read by teardown,
	// which is only ever launched from the loop or from goroutines that
	// activation starts.
	var (
		once          sync.Once
		started       bool
		stopping      bool
		sessionBus    bus.Bus
		layout        *store.LayoutStore
		beeper        *audio.Beeper
		session       *daemon.Session
		configWatcher *daemon.ConfigWatcher
	)

	// teardown stops everything in reverse start order and quits the app.
	teardown := func(reason string) {
		once.Do(func() {
			logger.Info("shutting down", "reason", reason)
			cancel()
			if configWatcher != nil {
				configWatcher.Stop()
			}
			if session != nil {
				session.Shutdown()
			}
			if layout != nil {
				if err := layout.Close(); err != nil {
					logger.Error("failed to save layout", "error", err)
				}
			}
			if sessionBus != nil {
				_ = sessionBus.Close()
			}
			if beeper != nil {
				beeper.Close()
			}
			glib.IdleAdd(func() {
				if started {
					app.Release()
				}
				app.Quit()
			})
		})
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			// Hop onto the loop so an activation in progress finishes first.
			glib.IdleAdd(func() {
				stopping = true
				go teardown(sig.String())
			})
		case <-ctx.Done():
		}
	}()

	app.ConnectActivate(func() {
		if stopping {
			return
		}
		if started {
			logger.Warn("application already running")
			return
		}
		started = true
		app.Hold()

		stylesheet := display.NewStylesheet(cfg.StylesheetPath(), logger)
		if err := stylesheet.Apply(); err != nil {
			logger.Error("failed to apply stylesheet", "error", err)
			go teardown("no display")
			return
		}
		go stylesheet.Watch(ctx, time.Second)

		runtime := display.NewRuntime(&app.Application, logger)
		runtime.SetLayerShell(cfg.Display.LayerShell)

		var err error
		sessionBus, err = openBus(cfg, logger)
		if err != nil {
			logger.Error("failed to open bus", "error", err)
			go teardown("bus unavailable")
			return
		}

		layoutPath := cfg.LayoutPath()
		if layoutPath == "" {
			if layoutPath, err = store.DefaultLayoutPath(); err != nil {
				logger.Error("failed to get layout path", "error", err)
				go teardown("no layout path")
				return
			}
		}
		layout = store.NewLayoutStore(store.NewJSONPersistence(layoutPath), cfg.Store.Debounce.Duration(), logger)
		layout.SetFlushCallback(func(err error) {
			if err != nil {
				logger.Warn("failed to write layout", "path", layoutPath, "error", err)
			}
		})

		beeper = audio.NewBeeper(cfg.Attention, logger)
		go beeper.Preload()

		session, err = daemon.NewSession(daemon.Options{
			Config:   cfg,
			Runtime:  runtime,
			Layout:   layout,
			Bus:      sessionBus,
			Beeper:   beeper,
			LockView: runtime,
			Logger:   logger,
		})
		if err != nil {
			logger.Error("failed to create session", "error", err)
			go teardown("session setup failed")
			return
		}
		runtime.SetBlockedClickCallback(session.RequestShake)

		configWatcher, err = daemon.NewConfigWatcher(configPath, logger)
		if err != nil {
			logger.Warn("failed to create config watcher", "error", err)
		} else {
			configWatcher.SetReloadCallback(func(newConfig *config.DaemonConfig, change daemon.ConfigChange) {
				session.Reconfigure(newConfig, change)
				if change.LayerShell {
					glib.IdleAdd(func() {
						runtime.SetLayerShell(newConfig.Display.LayerShell)
					})
				}
			})
			configWatcher.SetErrorCallback(func(err error) {
				logger.Warn("ignoring invalid config", "error", err)
			})
			if err := configWatcher.Start(ctx, cfg); err != nil {
				logger.Warn("failed to start config watcher", "error", err)
			}
		}

		go func() {
			if err := session.Start(ctx); err != nil {
				logger.Error("failed to start session", "error", err)
				teardown("session start failed")
				return
			}
			logger.Info("winsessiond ready", "windows", len(runtime.Labels()))

			select {
			case <-session.Done():
				teardown("main window closed")
			case <-ctx.Done():
			}
		}()
	})

	app.ConnectShutdown(func() {
		logger.Info("application shutting down")
	})

	status := app.Run(os.Args[:1])
	cancel()

	if status != 0 {
		logger.Error("application exited with error", "status", status)
		return status
	}
	logger.Info("winsessiond stopped")
	return 0
}

// openBus returns the configured cross-process transport. On D-Bus the
// daemon claims the well-known name, so a second daemon fails here.
func openBus(cfg *config.DaemonConfig, logger *slog.Logger) (bus.Bus, error) {
	if cfg.Bus.Kind == string(config.BusKindMemory) {
		return bus.NewMemoryBus(cfg.Bus.Queue, logger), nil
	}

	b, err := dbus.Connect(cfg.Bus.Queue, logger)
	if err != nil {
		return nil, err
	}
	if err := b.Claim(); err != nil {
		_ = b.Close()
		return nil, err
	}
	return b, nil
}
