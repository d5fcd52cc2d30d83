package dbus

import (
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"

	"github.com/jmylchreest/suchana/internal/model"
)

func TestDecodeHints(t *testing.T) {
	tests := []struct {
		name     string
		hints    map[string]dbus.Variant
		expected model.Hints
	}{
		{
			name:     "nil",
			hints:    nil,
			expected: model.Hints{},
		},
		{
			name: "plain values",
			hints: map[string]dbus.Variant{
				"urgency":  dbus.MakeVariant(byte(2)),
				"category": dbus.MakeVariant("email.arrived"),
				"resident": dbus.MakeVariant(true),
			},
			expected: model.Hints{
				"urgency":  byte(2),
				"category": "email.arrived",
				"resident": true,
			},
		},
		{
			name: "nested variant is unwrapped",
			hints: map[string]dbus.Variant{
				"value": dbus.MakeVariant(dbus.MakeVariant(int32(40))),
			},
			expected: model.Hints{"value": int32(40)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DecodeHints(tt.hints))
		})
	}
}

func TestDecodeHintsAccessors(t *testing.T) {
	hints := DecodeHints(map[string]dbus.Variant{
		"urgency":        dbus.MakeVariant(byte(0)),
		"suppress-sound": dbus.MakeVariant(true),
		"sound-file":     dbus.MakeVariant("/usr/share/sounds/bell.wav"),
		"value":          dbus.MakeVariant(uint32(75)),
	})

	assert.Equal(t, model.UrgencyLow, hints.Urgency())
	assert.True(t, hints.SuppressSound())
	assert.Equal(t, "/usr/share/sounds/bell.wav", hints.SoundFile())
	assert.Equal(t, 75, hints.Progress())
}

func TestEncodeHints(t *testing.T) {
	encoded := EncodeHints(model.Hints{
		"urgency":  byte(1),
		"category": "im",
	})

	assert.Len(t, encoded, 2)
	assert.Equal(t, byte(1), encoded["urgency"].Value())
	assert.Equal(t, "im", encoded["category"].Value())
	assert.Equal(t, model.Hints{"urgency": byte(1), "category": "im"}, DecodeHints(encoded))
}

func TestFlattenActions(t *testing.T) {
	tests := []struct {
		name     string
		actions  []model.Action
		expected []string
	}{
		{
			name:     "empty",
			actions:  nil,
			expected: []string{},
		},
		{
			name: "pairs in order",
			actions: []model.Action{
				{Key: "default", Label: "Open"},
				{Key: "reply", Label: "Reply"},
			},
			expected: []string{"default", "Open", "reply", "Reply"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flat := FlattenActions(tt.actions)
			assert.Equal(t, tt.expected, flat)
			assert.Equal(t, len(tt.actions), len(model.ParseActions(flat)))
		})
	}
}

func TestDefaultServerInfo(t *testing.T) {
	info := DefaultServerInfo()
	assert.Equal(t, ServerInfo{
		Name:        "suchana",
		Vendor:      "suchana",
		Version:     "1.0",
		SpecVersion: "1.2",
	}, info)
}

func TestServerCapabilities(t *testing.T) {
	assert.Contains(t, ServerCapabilities, "actions")
	assert.Contains(t, ServerCapabilities, "body")
	assert.Contains(t, ServerCapabilities, "sound")
	for _, unsupported := range []string{"icon-static", "icon-multi", "persistence", "body-markup"} {
		assert.NotContains(t, ServerCapabilities, unsupported)
	}
}
