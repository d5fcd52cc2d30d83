package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	godbus "github.com/godbus/dbus/v5"

	"github.com/jmylchreest/suchana/internal/audio"
	"github.com/jmylchreest/suchana/internal/config"
	"github.com/jmylchreest/suchana/internal/daemon"
	"github.com/jmylchreest/suchana/internal/dbus"
	"github.com/jmylchreest/suchana/internal/display"
	"github.com/jmylchreest/suchana/internal/model"
	"github.com/jmylchreest/suchana/internal/render"
	"github.com/jmylchreest/suchana/internal/shm"
	"github.com/jmylchreest/suchana/internal/theme"
)

// app holds the daemon's components. Fields touched after start belong to
// the event loop.
type app struct {
	logger     *slog.Logger
	loop       daemon.Loop
	configPath string
	cfg        *config.DaemonConfig

	themes   *theme.Loader
	renderer *render.Renderer
	reg      *daemon.Registry
	server   *dbus.NotificationServer
	conn     *godbus.Conn

	audio         *audio.Manager
	notifier      *daemon.InternalNotifier
	configWatcher *daemon.ConfigWatcher
	stopTick      func()

	shutdownOnce sync.Once
}

func renderOptions(cfg *config.DaemonConfig) render.Options {
	return render.Options{
		FontSize: cfg.Render.FontSize,
		Padding:  cfg.Render.Padding,
		ShowBody: cfg.Render.ShowBody,
	}
}

// newApp builds the registry and its collaborators on top of windowing.
func newApp(loop daemon.Loop, windowing display.Windowing, cfg *config.DaemonConfig, configPath string, logger *slog.Logger) (*app, error) {
	a := &app{
		logger:     logger,
		loop:       loop,
		configPath: configPath,
		cfg:        cfg,
	}

	a.themes = theme.NewLoader("", logger)
	a.themes.LoadTheme(cfg.Theme.Name)

	renderer, err := render.New(renderOptions(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}
	a.renderer = renderer

	painter := display.PainterFunc(func(dst *image.RGBA, n *model.Notification) {
		a.renderer.Paint(dst, n, a.themes.Palette().Resolve(n))
	})
	stage := display.NewStage(windowing, shm.DefaultAllocator(logger), painter,
		cfg.Display.Width, cfg.Display.Height, logger)
	stage.SetGeometry(cfg.Display.Width, cfg.Display.Height, cfg.Display.Monitor)

	a.reg = daemon.NewRegistry(cfg, stage, nil, logger)
	a.server = dbus.NewNotificationServer(daemon.NewService(loop, a.reg), logger)
	a.reg.SetSignaller(a.server)

	a.audio = audio.NewManager(cfg, logger)
	a.reg.SetSoundPlayer(a.audio)

	a.notifier = daemon.NewInternalNotifier(logger)
	a.notifier.SetNotifyHandler(func(n *model.Notification) {
		a.loop.Post(func() {
			if _, err := a.reg.Notify(n, 0); err != nil {
				a.logger.Warn("failed to show internal notification", "error", err)
			}
		})
	})
	a.audio.SetErrorCallback(a.notifier.NotifyAudioError)

	return a, nil
}

// start connects to the session bus, claims the notification name and
// starts the background watchers. It must not run on the event loop.
func (a *app) start(ctx context.Context) error {
	conn, err := godbus.ConnectSessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}
	if err := a.server.Start(conn); err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to start D-Bus server: %w", err)
	}
	a.conn = conn

	if err := daemon.Call(ctx, a.loop, func() {
		a.stopTick = a.startTick(a.cfg.Loop.TickInterval.Duration())
	}); err != nil {
		return err
	}

	if err := a.audio.Start(ctx); err != nil {
		a.logger.Warn("failed to start audio manager", "error", err)
	}

	a.configWatcher = daemon.NewConfigWatcher(a.configPath, a.themes.Dir(), a.logger)
	a.configWatcher.SetReloadCallback(func(newConfig *config.DaemonConfig) {
		a.loop.Post(func() { a.applyConfig(newConfig) })
	})
	a.configWatcher.SetErrorCallback(a.notifier.NotifyConfigError)
	a.configWatcher.SetThemeCallback(func() {
		a.loop.Post(a.reloadTheme)
	})
	if err := a.configWatcher.Start(ctx, a.cfg); err != nil {
		a.logger.Warn("failed to start config watcher", "error", err)
	}

	a.logger.Info("suchanad ready", "dbus_interface", dbus.DBusInterface)
	return nil
}

// transportLost returns a channel closed when the bus connection ends.
func (a *app) transportLost() <-chan struct{} {
	return a.conn.Context().Done()
}

func (a *app) startTick(interval time.Duration) func() {
	return a.loop.Every(interval, func() {
		a.reg.Tick(time.Now())
	})
}

// applyConfig runs on the loop.
func (a *app) applyConfig(newConfig *config.DaemonConfig) {
	old := a.cfg
	a.cfg = newConfig

	if err := a.renderer.SetOptions(renderOptions(newConfig)); err != nil {
		a.logger.Warn("failed to apply render settings", "error", err)
	}
	if newConfig.Theme.Name != old.Theme.Name {
		a.themes.LoadTheme(newConfig.Theme.Name)
		a.notifier.NotifyThemeReloaded(newConfig.Theme.Name)
	}

	a.reg.UpdateConfig(newConfig)
	a.reg.Redraw()

	if newConfig.Loop.TickInterval != old.Loop.TickInterval {
		a.stopTick()
		a.stopTick = a.startTick(newConfig.Loop.TickInterval.Duration())
	}

	a.audio.UpdateConfig(newConfig)
	a.notifier.NotifyConfigReloaded()
}

// reloadTheme runs on the loop.
func (a *app) reloadTheme() {
	if a.themes.Reload() {
		a.reg.Redraw()
		a.notifier.NotifyThemeReloaded(a.themes.Current().Name)
	}
}

// shutdown runs on the loop. Popups are destroyed and their closures
// signalled before the bus name is released.
func (a *app) shutdown() {
	a.shutdownOnce.Do(func() {
		if a.stopTick != nil {
			a.stopTick()
		}
		if a.configWatcher != nil {
			a.configWatcher.Stop()
		}
		a.notifier.SetEnabled(false)

		a.reg.Shutdown()

		if err := a.server.Stop(); err != nil {
			a.logger.Warn("failed to stop D-Bus server", "error", err)
		}
		a.audio.Stop()
		if a.conn != nil {
			_ = a.conn.Close()
		}
		if n := shm.LiveSegments(); n != 0 {
			a.logger.Warn("shared memory segments still live at exit", "count", n)
		}
	})
}

// supervise waits for ctx or a lost bus connection and reports which.
func (a *app) supervise(ctx context.Context) error {
	err := daemon.Supervise(ctx, a.transportLost())
	if errors.Is(err, daemon.ErrTransportLost) {
		a.logger.Error("session bus connection lost, shutting down")
	}
	return err
}
