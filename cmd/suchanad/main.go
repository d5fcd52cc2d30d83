// Package main is the entry point for the suchanad notification daemon.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/diamondburned/gotk4-adwaita/pkg/adw"

	"github.com/jmylchreest/suchana/internal/config"
	"github.com/jmylchreest/suchana/internal/daemon"
	"github.com/jmylchreest/suchana/internal/display"
	"github.com/jmylchreest/suchana/internal/gtkshell"
)

const (
	appID   = "io.github.jmylchreest.suchanad"
	appName = "suchanad"
)

var (
	// Build-time variables
	version = "dev"
)

// shutdownTimeout bounds how long teardown may wait for the event loop.
const shutdownTimeout = 5 * time.Second

func main() {
	headless := flag.Bool("headless", false, "Run without a compositor (popups are tracked in memory only)")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	configPath := flag.String("config", "", "Path to the config file (default $XDG_CONFIG_HOME/suchana/suchanad.toml)")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(appName, "version", version)
		os.Exit(0)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	path := *configPath
	if path == "" {
		path = config.DaemonConfigPath()
	}
	cfg, err := config.LoadDaemonConfigFrom(path)
	if err != nil {
		logger.Error("failed to load config", "path", path, "error", err)
		os.Exit(1)
	}

	logger.Info("starting suchanad", "version", version, "headless", *headless)
	if *headless {
		os.Exit(runHeadless(cfg, path, logger))
	}
	os.Exit(runGTK(cfg, path, logger))
}

// runHeadless runs the daemon on a channel loop with in-memory popups.
func runHeadless(cfg *config.DaemonConfig, configPath string, logger *slog.Logger) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loop := daemon.NewChanLoop(logger)
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		loop.Run(context.Background())
	}()

	a, err := newApp(loop, display.NewHeadless(logger), cfg, configPath, logger)
	if err != nil {
		logger.Error("failed to initialise daemon", "error", err)
		loop.Stop()
		return 1
	}
	if err := a.start(ctx); err != nil {
		logger.Error("failed to start daemon", "error", err)
		loop.Stop()
		return 1
	}

	status := 0
	if err := a.supervise(ctx); err != nil {
		status = 1
	} else {
		logger.Info("received signal, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := daemon.Call(shutdownCtx, loop, a.shutdown); err != nil {
		logger.Warn("shutdown did not complete", "error", err)
	}
	loop.Stop()
	<-loopDone

	logger.Info("suchanad stopped")
	return status
}

// runGTK runs the daemon on the GTK main loop with layer-shell popups.
func runGTK(cfg *config.DaemonConfig, configPath string, logger *slog.Logger) int {
	gtkApp := adw.NewApplication(appID, 0)
	loop := gtkshell.NewLoop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		a       *app
		running atomic.Bool
		failed  atomic.Bool
	)

	quit := func() {
		loop.Post(func() {
			if a != nil {
				a.shutdown()
			}
			loop.Stop()
			gtkApp.Quit()
		})
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
			quit()
		case <-ctx.Done():
		}
	}()

	gtkApp.ConnectActivate(func() {
		if running.Load() {
			logger.Warn("application already running")
			return
		}
		running.Store(true)

		windowing, err := gtkshell.NewWindowing(&gtkApp.Application, logger)
		if err != nil {
			logger.Error("failed to initialise windowing", "error", err)
			failed.Store(true)
			gtkApp.Quit()
			return
		}

		a, err = newApp(loop, windowing, cfg, configPath, logger)
		if err != nil {
			logger.Error("failed to initialise daemon", "error", err)
			failed.Store(true)
			gtkApp.Quit()
			return
		}

		// start blocks on the loop, so it cannot run inside this callback.
		gtkApp.Hold()
		go func() {
			if err := a.start(ctx); err != nil {
				logger.Error("failed to start daemon", "error", err)
				failed.Store(true)
				quit()
				return
			}
			if err := a.supervise(ctx); err != nil {
				failed.Store(true)
				quit()
			}
		}()
	})

	gtkApp.ConnectShutdown(func() {
		logger.Info("application shutting down")
		if a != nil {
			a.shutdown()
		}
		running.Store(false)
	})

	status := gtkApp.Run(os.Args[:1])
	cancel()

	if status == 0 && failed.Load() {
		status = 1
	}
	if status != 0 {
		logger.Error("application exited with error", "status", status)
		return status
	}

	logger.Info("suchanad stopped")
	return 0
}
