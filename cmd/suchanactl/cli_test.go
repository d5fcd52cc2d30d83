package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/suchana/internal/dbus"
	"github.com/jmylchreest/suchana/internal/model"
)

func TestParseUrgency(t *testing.T) {
	tests := []struct {
		input    string
		expected int
		wantErr  bool
	}{
		{"low", model.UrgencyLow, false},
		{"Normal", model.UrgencyNormal, false},
		{"CRITICAL", model.UrgencyCritical, false},
		{"2", model.UrgencyCritical, false},
		{"3", 0, true},
		{"urgent", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			level, err := parseUrgency(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, level)
		})
	}
}

func TestParseHint(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantName  string
		wantValue any
		wantErr   bool
	}{
		{"plain string", "category=im", "category", "im", false},
		{"untyped true", "transient=true", "transient", true, false},
		{"typed int", "value=int:75", "value", int32(75), false},
		{"typed uint", "value=uint:75", "value", uint32(75), false},
		{"typed byte", "urgency=byte:2", "urgency", byte(2), false},
		{"typed bool", "resident=bool:false", "resident", false, false},
		{"typed string", "x-id=string:42", "x-id", "42", false},
		{"colon without type", "image-path=file:///tmp/a.png", "image-path", "file:///tmp/a.png", false},
		{"bad int", "value=int:lots", "", nil, true},
		{"byte overflow", "urgency=byte:300", "", nil, true},
		{"missing value", "category", "", nil, true},
		{"missing name", "=im", "", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, value, err := parseHint(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, name)
			assert.Equal(t, tt.wantValue, value)
		})
	}
}

func TestBuildNotification(t *testing.T) {
	saved := sendOpts
	t.Cleanup(func() { sendOpts = saved })

	sendOpts.appName = "builder"
	sendOpts.icon = "dialog-information"
	sendOpts.urgency = "critical"
	sendOpts.category = "transfer"
	sendOpts.expire = 0
	sendOpts.actions = []string{"default=Open", "retry=Try again"}
	sendOpts.hints = []string{"value=int:40", "urgency=byte:0"}

	n, err := buildNotification([]string{"Upload", "40% done"})
	require.NoError(t, err)

	assert.Equal(t, "builder", n.AppName)
	assert.Equal(t, "dialog-information", n.AppIcon)
	assert.Equal(t, "Upload", n.Summary)
	assert.Equal(t, "40% done", n.Body)
	assert.Equal(t, int32(0), n.ExpireTimeout)
	assert.Equal(t, []model.Action{
		{Key: "default", Label: "Open"},
		{Key: "retry", Label: "Try again"},
	}, n.Actions)
	// --urgency wins over a raw urgency hint.
	assert.Equal(t, model.UrgencyCritical, n.Urgency())
	assert.Equal(t, "transfer", n.Hints.Category())
	assert.Equal(t, 40, n.Hints.Progress())
}

func TestBuildNotification_InvalidAction(t *testing.T) {
	saved := sendOpts
	t.Cleanup(func() { sendOpts = saved })

	sendOpts.actions = []string{"no-label"}
	_, err := buildNotification([]string{"Summary"})
	assert.Error(t, err)
}

func testReport() serverReport {
	return serverReport{
		ServerInfo:   dbus.DefaultServerInfo(),
		Capabilities: []string{"actions", "body"},
	}
}

func TestWriteReport(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeReport(&buf, testReport(), "json"))

		var decoded map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
		assert.Equal(t, "suchana", decoded["name"])
		assert.Equal(t, "1.2", decoded["spec_version"])
		assert.Equal(t, []any{"actions", "body"}, decoded["capabilities"])
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeReport(&buf, testReport(), "yaml"))

		var decoded map[string]any
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
		assert.Equal(t, "suchana", decoded["vendor"])
		assert.Equal(t, "1.0", decoded["version"])
	})

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeReport(&buf, testReport(), "text"))
		assert.Contains(t, buf.String(), "suchana")
		assert.Contains(t, buf.String(), "actions, body")
	})

	t.Run("unknown", func(t *testing.T) {
		var buf bytes.Buffer
		assert.Error(t, writeReport(&buf, testReport(), "xml"))
	})
}

func TestWriteEvent(t *testing.T) {
	at := time.Date(2026, 3, 1, 14, 5, 9, 0, time.UTC)

	tests := []struct {
		name     string
		ev       dbus.Event
		expected string
	}{
		{
			name: "notify",
			ev: dbus.Event{
				Kind: dbus.EventNotify,
				Notification: &model.Notification{
					AppName: "Mail",
					Summary: "New message",
				},
			},
			expected: "14:05:09 notify  app=\"Mail\" summary=\"New message\" urgency=normal replaces=0\n",
		},
		{
			name: "notify with category",
			ev: dbus.Event{
				Kind: dbus.EventNotify,
				ID:   4,
				Notification: &model.Notification{
					AppName: "Mail",
					Summary: "Again",
					Hints:   model.Hints{"category": "email.arrived", "urgency": byte(2)},
				},
			},
			expected: "14:05:09 notify  app=\"Mail\" summary=\"Again\" urgency=critical replaces=4 category=email.arrived\n",
		},
		{
			name:     "closed",
			ev:       dbus.Event{Kind: dbus.EventClosed, ID: 3, Reason: model.CloseReasonClosed},
			expected: "14:05:09 closed  id=3 reason=closed\n",
		},
		{
			name:     "action",
			ev:       dbus.Event{Kind: dbus.EventAction, ID: 5, ActionKey: "default"},
			expected: "14:05:09 action  id=5 key=default\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, writeEvent(&buf, tt.ev, at, false))
			assert.Equal(t, tt.expected, buf.String())
		})
	}
}

func TestWriteEvent_JSONNotify(t *testing.T) {
	var buf bytes.Buffer
	ev := dbus.Event{Kind: dbus.EventNotify, Notification: &model.Notification{
		AppName: "Mail",
		Summary: "New message",
		Hints:   model.Hints{"category": "email.arrived", "desktop-entry": "thunderbird"},
	}}
	require.NoError(t, writeEvent(&buf, ev, time.Unix(0, 0).UTC(), true))

	var line monitorLine
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "email.arrived", line.Category)
	assert.Equal(t, "thunderbird", line.Desktop)
	assert.Equal(t, "normal", line.Urgency)
}

func TestWriteEvent_JSON(t *testing.T) {
	var buf bytes.Buffer
	ev := dbus.Event{Kind: dbus.EventClosed, ID: 9, Sender: ":1.3", Reason: model.CloseReasonExpired}
	require.NoError(t, writeEvent(&buf, ev, time.Unix(0, 0).UTC(), true))

	var line monitorLine
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "closed", line.Kind)
	assert.Equal(t, uint32(9), line.ID)
	assert.Equal(t, "expired", line.Reason)
	assert.Equal(t, ":1.3", line.Sender)
}

// fakeBus delivers a close for the new notification before Notify returns.
type fakeBus struct {
	events     chan dbus.Event
	subscribed bool
	notifyErr  error
	closeWith  model.CloseReason
}

func (f *fakeBus) Subscribe(ctx context.Context) (<-chan dbus.Event, error) {
	f.subscribed = true
	f.events = make(chan dbus.Event, 4)
	return f.events, nil
}

func (f *fakeBus) Notify(ctx context.Context, n *model.Notification, replacesID uint32) (uint32, error) {
	if f.notifyErr != nil {
		return 0, f.notifyErr
	}
	if f.subscribed {
		f.events <- dbus.Event{Kind: dbus.EventClosed, ID: 6, Reason: model.CloseReasonDismissed}
		f.events <- dbus.Event{Kind: dbus.EventAction, ID: 7, ActionKey: "default"}
		f.events <- dbus.Event{Kind: dbus.EventClosed, ID: 7, Reason: f.closeWith}
	}
	return 7, nil
}

func TestNotifyAndWait_CloseImmediatelyAfterNotify(t *testing.T) {
	bus := &fakeBus{closeWith: model.CloseReasonExpired}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var gotID uint32
	var actions []string
	reason, err := notifyAndWait(ctx, bus, &model.Notification{Summary: "short"}, 0,
		func(id uint32) { gotID = id },
		func(key string) { actions = append(actions, key) },
	)
	require.NoError(t, err)
	assert.Equal(t, uint32(7), gotID)
	assert.Equal(t, model.CloseReasonExpired, reason)
	assert.Equal(t, []string{"default"}, actions)
}

func TestNotifyAndWait_NotifyError(t *testing.T) {
	bus := &fakeBus{notifyErr: errors.New("no server")}
	_, err := notifyAndWait(context.Background(), bus, &model.Notification{Summary: "x"}, 0, nil, nil)
	assert.EqualError(t, err, "no server")
}
