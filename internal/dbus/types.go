package dbus

import (
	"github.com/godbus/dbus/v5"

	"github.com/jmylchreest/suchana/internal/model"
)

const (
	// DBusInterface is the notification interface name.
	DBusInterface = "org.freedesktop.Notifications"
	// DBusPath is the notification object path.
	DBusPath = "/org/freedesktop/Notifications"
	// DBusBusName is the bus name to claim.
	DBusBusName = "org.freedesktop.Notifications"
)

// Error names returned to bus clients.
const (
	ErrorInvalidArgs = "org.freedesktop.DBus.Error.InvalidArgs"
	ErrorFailed      = "org.freedesktop.DBus.Error.Failed"
)

// ServerCapabilities lists the capabilities advertised by suchanad.
// Icons are not drawn, so no icon capability is listed.
var ServerCapabilities = []string{
	"actions", // Support notification actions
	"body",    // Support body text
	"sound",   // Play sounds
}

// ServerInfo contains information about the notification server.
type ServerInfo struct {
	Name        string `json:"name" yaml:"name"`
	Vendor      string `json:"vendor" yaml:"vendor"`
	Version     string `json:"version" yaml:"version"`
	SpecVersion string `json:"spec_version" yaml:"spec_version"`
}

// DefaultServerInfo returns the server information reported by suchanad.
func DefaultServerInfo() ServerInfo {
	return ServerInfo{
		Name:        "suchana",
		Vendor:      "suchana",
		Version:     "1.0",
		SpecVersion: "1.2",
	}
}

// DecodeHints unwraps the variant values of a hint dictionary.
func DecodeHints(hints map[string]dbus.Variant) model.Hints {
	if len(hints) == 0 {
		return model.Hints{}
	}
	out := make(model.Hints, len(hints))
	for k, v := range hints {
		out[k] = unwrap(v.Value())
	}
	return out
}

func unwrap(v any) any {
	for {
		inner, ok := v.(dbus.Variant)
		if !ok {
			return v
		}
		v = inner.Value()
	}
}

// EncodeHints wraps hint values as variants for sending.
func EncodeHints(hints model.Hints) map[string]dbus.Variant {
	out := make(map[string]dbus.Variant, len(hints))
	for k, v := range hints {
		out[k] = dbus.MakeVariant(v)
	}
	return out
}

// FlattenActions converts actions to the flat key, label bus array.
func FlattenActions(actions []model.Action) []string {
	flat := make([]string, 0, len(actions)*2)
	for _, a := range actions {
		flat = append(flat, a.Key, a.Label)
	}
	return flat
}
