package dbus

import (
	"errors"

	"github.com/jmylchreest/suchana/internal/model"
)

// ErrProtocolViolation is returned for requests the server does not understand.
var ErrProtocolViolation = errors.New("protocol violation")

// Request is a decoded method call. The set of implementations is closed.
type Request interface {
	request()
}

// NotifyRequest is a decoded Notify call.
type NotifyRequest struct {
	Notification *model.Notification
	ReplacesID   uint32
}

// CloseRequest is a decoded CloseNotification call.
type CloseRequest struct {
	ID uint32
}

// ServerInfoRequest is a GetServerInformation call.
type ServerInfoRequest struct{}

// CapabilitiesRequest is a GetCapabilities call.
type CapabilitiesRequest struct{}

func (NotifyRequest) request()       {}
func (CloseRequest) request()        {}
func (ServerInfoRequest) request()   {}
func (CapabilitiesRequest) request() {}

// Reply is the result of handling a request. Only the field matching the
// request kind is set.
type Reply struct {
	ID           uint32
	Info         ServerInfo
	Capabilities []string
}
