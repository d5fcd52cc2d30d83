package daemon

import (
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/jmylchreest/suchana/internal/model"
)

// NotificationLevel indicates the urgency/severity of an internal notification.
type NotificationLevel int

const (
	// NotificationLevelInfo is for informational messages (low urgency).
	NotificationLevelInfo NotificationLevel = iota
	// NotificationLevelWarning is for warning messages (normal urgency).
	NotificationLevelWarning
	// NotificationLevelError is for error messages (critical urgency).
	NotificationLevelError
)

// InternalNotifier shows notifications about suchanad's own events.
// Each key is rate limited so a flapping condition cannot flood the screen.
type InternalNotifier struct {
	mu     sync.Mutex
	logger *slog.Logger

	// Handler for creating notifications
	notifyHandler func(n *model.Notification)

	limiters    map[string]*rate.Sometimes
	minInterval time.Duration

	enabled bool
}

// NewInternalNotifier creates a new InternalNotifier.
func NewInternalNotifier(logger *slog.Logger) *InternalNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &InternalNotifier{
		logger:      logger,
		limiters:    make(map[string]*rate.Sometimes),
		minInterval: 5 * time.Second, // Don't repeat same notification within 5 seconds
		enabled:     true,
	}
}

// SetNotifyHandler sets the function to call when creating a notification.
func (n *InternalNotifier) SetNotifyHandler(handler func(n *model.Notification)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notifyHandler = handler
}

// SetEnabled enables or disables internal notifications.
func (n *InternalNotifier) SetEnabled(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = enabled
}

// SetMinInterval sets the minimum interval between notifications with the
// same key. Existing limiters are reset.
func (n *InternalNotifier) SetMinInterval(interval time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.minInterval = interval
	n.limiters = make(map[string]*rate.Sometimes)
}

// Notify sends an internal notification unless one with the same key was
// sent within the minimum interval.
func (n *InternalNotifier) Notify(key, summary, body string, level NotificationLevel) {
	n.mu.Lock()
	if !n.enabled {
		n.mu.Unlock()
		return
	}
	handler := n.notifyHandler
	if handler == nil {
		n.mu.Unlock()
		n.logger.Debug("internal notification skipped: no handler", "summary", summary)
		return
	}
	limiter, ok := n.limiters[key]
	if !ok {
		limiter = &rate.Sometimes{First: 1, Interval: n.minInterval}
		if n.minInterval <= 0 {
			limiter = &rate.Sometimes{Every: 1}
		}
		n.limiters[key] = limiter
	}
	n.mu.Unlock()

	sent := false
	limiter.Do(func() {
		sent = true
		n.logger.Debug("sending internal notification", "key", key, "summary", summary, "level", level)
		handler(internalNotification(summary, body, level))
	})
	if !sent {
		n.logger.Debug("internal notification rate-limited", "key", key, "summary", summary)
	}
}

func internalNotification(summary, body string, level NotificationLevel) *model.Notification {
	urgency := byte(model.UrgencyNormal)
	icon := "dialog-warning"
	switch level {
	case NotificationLevelInfo:
		urgency = model.UrgencyLow
		icon = "dialog-information"
	case NotificationLevelError:
		urgency = model.UrgencyCritical
		icon = "dialog-error"
	}

	return &model.Notification{
		AppName: "suchanad",
		AppIcon: icon,
		Summary: summary,
		Body:    body,
		Hints: model.Hints{
			"urgency":        urgency,
			"category":       "device",
			"transient":      true,
			"desktop-entry":  "suchanad",
			"suppress-sound": true,
		},
		ExpireTimeout: 5000,
	}
}

// NotifyConfigReloaded sends a notification about config being reloaded.
func (n *InternalNotifier) NotifyConfigReloaded() {
	n.Notify(
		"config-reload",
		"Configuration Reloaded",
		"suchanad configuration has been successfully reloaded.",
		NotificationLevelInfo,
	)
}

// NotifyConfigError sends a notification about config validation error.
func (n *InternalNotifier) NotifyConfigError(err error) {
	n.Notify(
		"config-error",
		"Configuration Error",
		"Failed to reload configuration: "+err.Error(),
		NotificationLevelWarning,
	)
}

// NotifyThemeReloaded sends a notification about theme being reloaded.
func (n *InternalNotifier) NotifyThemeReloaded(themeName string) {
	n.Notify(
		"theme-reload",
		"Theme Reloaded",
		"Theme '"+themeName+"' has been reloaded.",
		NotificationLevelInfo,
	)
}

// NotifyAudioError sends a notification about audio playback error.
func (n *InternalNotifier) NotifyAudioError(err error) {
	n.Notify(
		"audio-error",
		"Audio Error",
		"Failed to play notification sound: "+err.Error(),
		NotificationLevelWarning,
	)
}
