// Package model defines the core data structures for suchana.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Urgency levels matching freedesktop spec.
const (
	UrgencyLow      = 0
	UrgencyNormal   = 1
	UrgencyCritical = 2
)

// UrgencyNames maps urgency levels to human-readable names.
var UrgencyNames = map[int]string{
	UrgencyLow:      "low",
	UrgencyNormal:   "normal",
	UrgencyCritical: "critical",
}

// CloseReason represents the reason for closing a notification.
// These values are defined by the freedesktop.org notification specification.
type CloseReason uint32

const (
	// CloseReasonExpired indicates the notification expired (timeout reached).
	CloseReasonExpired CloseReason = 1
	// CloseReasonDismissed indicates the user dismissed the notification.
	CloseReasonDismissed CloseReason = 2
	// CloseReasonClosed indicates the notification was closed via CloseNotification.
	CloseReasonClosed CloseReason = 3
	// CloseReasonUndefined is reserved/undefined by freedesktop.org.
	CloseReasonUndefined CloseReason = 4
)

// String returns the string representation of the close reason.
func (r CloseReason) String() string {
	switch r {
	case CloseReasonExpired:
		return "expired"
	case CloseReasonDismissed:
		return "dismissed"
	case CloseReasonClosed:
		return "closed"
	case CloseReasonUndefined:
		return "undefined"
	default:
		return "unknown"
	}
}

// ErrInvalidArgument is returned for malformed or oversized Notify fields.
var ErrInvalidArgument = errors.New("invalid argument")

// Limits bounds the size of the free-text fields of a notification.
// A zero limit disables the check for that field.
type Limits struct {
	MaxAppName int
	MaxSummary int
	MaxBody    int
}

// Action represents a notification action with key and label.
type Action struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// ParseActions converts the flat bus action array (key, label, key, label...)
// to structured form. A trailing unpaired element is ignored.
func ParseActions(flat []string) []Action {
	actions := make([]Action, 0, len(flat)/2)
	for i := 0; i+1 < len(flat); i += 2 {
		actions = append(actions, Action{
			Key:   flat[i],
			Label: flat[i+1],
		})
	}
	return actions
}

// Notification represents a single active notification.
type Notification struct {
	ID            uint32
	AppName       string
	AppIcon       string
	Summary       string
	Body          string
	Actions       []Action
	Hints         Hints
	ExpireTimeout int32 // -1 = server default, 0 = never expire
	CreatedAt     time.Time
}

// Validate checks the free-text fields against the given limits.
func (n *Notification) Validate(limits Limits) error {
	if err := checkLength("app_name", n.AppName, limits.MaxAppName); err != nil {
		return err
	}
	if err := checkLength("summary", n.Summary, limits.MaxSummary); err != nil {
		return err
	}
	return checkLength("body", n.Body, limits.MaxBody)
}

func checkLength(field, value string, limit int) error {
	if limit <= 0 {
		return nil
	}
	if count := utf8.RuneCountInString(value); count > limit {
		return fmt.Errorf("%w: %s is %d characters, limit is %d", ErrInvalidArgument, field, count, limit)
	}
	return nil
}

// Urgency returns the urgency hint, defaulting to normal.
func (n *Notification) Urgency() int {
	return n.Hints.Urgency()
}

// UrgencyName returns the human-readable urgency.
func (n *Notification) UrgencyName() string {
	return UrgencyNames[n.Urgency()]
}

// DefaultAction returns the key invoked by a "do-action" click: "default" when
// offered, otherwise the first action. ok is false when there are no actions.
func (n *Notification) DefaultAction() (key string, ok bool) {
	if len(n.Actions) == 0 {
		return "", false
	}
	for _, a := range n.Actions {
		if a.Key == "default" {
			return a.Key, true
		}
	}
	return n.Actions[0].Key, true
}

// BodyFirstLine returns the first non-empty line of the body with
// whitespace collapsed.
func (n *Notification) BodyFirstLine() string {
	for _, line := range strings.Split(n.Body, "\n") {
		if collapsed := strings.Join(strings.Fields(line), " "); collapsed != "" {
			return collapsed
		}
	}
	return ""
}

// Clone creates a deep copy of the notification.
func (n *Notification) Clone() *Notification {
	clone := *n
	if n.Actions != nil {
		clone.Actions = make([]Action, len(n.Actions))
		copy(clone.Actions, n.Actions)
	}
	if n.Hints != nil {
		clone.Hints = make(Hints, len(n.Hints))
		for k, v := range n.Hints {
			clone.Hints[k] = v
		}
	}
	return &clone
}
