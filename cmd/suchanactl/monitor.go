package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/suchana/internal/dbus"
)

var monitorOpts struct {
	json bool
}

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Print notification traffic on the session bus",
	Long: `Passively watch Notify calls and NotificationClosed / ActionInvoked
signals on the session bus until interrupted. Nothing is claimed on the bus,
so this works alongside any notification server.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)

	monitorCmd.Flags().BoolVar(&monitorOpts.json, "json", false,
		"Print one JSON object per event")
}

// monitorLine is the JSON form of an observed event.
type monitorLine struct {
	Time      time.Time `json:"time"`
	Kind      string    `json:"kind"`
	ID        uint32    `json:"id"`
	Sender    string    `json:"sender,omitempty"`
	AppName   string    `json:"app_name,omitempty"`
	Summary   string    `json:"summary,omitempty"`
	Body      string    `json:"body,omitempty"`
	Urgency   string    `json:"urgency,omitempty"`
	Category  string    `json:"category,omitempty"`
	Desktop   string    `json:"desktop_entry,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	ActionKey string    `json:"action_key,omitempty"`
}

func runMonitor(cmd *cobra.Command, args []string) error {
	events := make(chan dbus.Event, 64)

	monitor := dbus.NewMonitor(logger)
	monitor.SetEventHandler(func(ev dbus.Event) {
		select {
		case events <- ev:
		default:
			logger.Warn("dropping event, output too slow", "kind", ev.Kind.String())
		}
	})
	if err := monitor.Start(); err != nil {
		return err
	}
	defer func() { _ = monitor.Stop() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	for {
		select {
		case <-sigCh:
			return nil
		case ev := <-events:
			if err := writeEvent(os.Stdout, ev, time.Now(), monitorOpts.json); err != nil {
				return err
			}
		}
	}
}

func toMonitorLine(ev dbus.Event, at time.Time) monitorLine {
	line := monitorLine{
		Time:   at,
		Kind:   ev.Kind.String(),
		ID:     ev.ID,
		Sender: ev.Sender,
	}
	switch ev.Kind {
	case dbus.EventNotify:
		if n := ev.Notification; n != nil {
			line.AppName = n.AppName
			line.Summary = n.Summary
			line.Body = n.Body
			line.Urgency = n.UrgencyName()
			line.Category = n.Hints.Category()
			line.Desktop = n.Hints.DesktopEntry()
		}
	case dbus.EventClosed:
		line.Reason = ev.Reason.String()
	case dbus.EventAction:
		line.ActionKey = ev.ActionKey
	}
	return line
}

func writeEvent(w io.Writer, ev dbus.Event, at time.Time, asJSON bool) error {
	line := toMonitorLine(ev, at)
	if asJSON {
		return json.NewEncoder(w).Encode(line)
	}

	stamp := at.Format("15:04:05")
	var err error
	switch ev.Kind {
	case dbus.EventNotify:
		extra := ""
		if line.Category != "" {
			extra = " category=" + line.Category
		}
		_, err = fmt.Fprintf(w, "%s notify  app=%q summary=%q urgency=%s replaces=%d%s\n",
			stamp, line.AppName, line.Summary, line.Urgency, line.ID, extra)
	case dbus.EventClosed:
		_, err = fmt.Fprintf(w, "%s closed  id=%d reason=%s\n", stamp, line.ID, line.Reason)
	case dbus.EventAction:
		_, err = fmt.Fprintf(w, "%s action  id=%d key=%s\n", stamp, line.ID, line.ActionKey)
	}
	return err
}
