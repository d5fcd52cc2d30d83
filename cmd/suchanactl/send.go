package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/suchana/internal/dbus"
	"github.com/jmylchreest/suchana/internal/model"
)

var sendOpts struct {
	appName    string
	icon       string
	urgency    string
	category   string
	expire     int32
	replacesID uint32
	actions    []string
	hints      []string
	wait       bool
	printID    bool
}

var sendCmd = &cobra.Command{
	Use:   "send <summary> [body]",
	Short: "Send a notification",
	Long: `Send a notification to the notification server.

Examples:
  # Simple notification
  suchanactl send "Build finished"

  # Critical, never expires, with a default action
  suchanactl send -u critical -t 0 -A default=Open "Disk full" "/home is at 99%"

  # Replace an existing notification and wait until it closes
  suchanactl send -r 4 --wait "Download" "75% complete" -H value=int:75`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().StringVarP(&sendOpts.appName, "app-name", "a", "suchanactl",
		"Application name")
	sendCmd.Flags().StringVarP(&sendOpts.icon, "icon", "i", "",
		"Icon name or path")
	sendCmd.Flags().StringVarP(&sendOpts.urgency, "urgency", "u", "",
		"Urgency level (low, normal, critical)")
	sendCmd.Flags().StringVarP(&sendOpts.category, "category", "c", "",
		"Notification category")
	sendCmd.Flags().Int32VarP(&sendOpts.expire, "expire-time", "t", -1,
		"Expiry in milliseconds (-1 server default, 0 never)")
	sendCmd.Flags().Uint32VarP(&sendOpts.replacesID, "replace-id", "r", 0,
		"Id of the notification to replace")
	sendCmd.Flags().StringArrayVarP(&sendOpts.actions, "action", "A", nil,
		"Action as key=label (repeatable)")
	sendCmd.Flags().StringArrayVarP(&sendOpts.hints, "hint", "H", nil,
		"Hint as name=value or name=type:value; types: string, int, uint, byte, bool (repeatable)")
	sendCmd.Flags().BoolVarP(&sendOpts.wait, "wait", "w", false,
		"Wait until the notification is closed and print actions invoked")
	sendCmd.Flags().BoolVarP(&sendOpts.printID, "print-id", "p", false,
		"Print the notification id")
}

func runSend(cmd *cobra.Command, args []string) error {
	n, err := buildNotification(args)
	if err != nil {
		return err
	}

	client, err := connect()
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	if !sendOpts.wait {
		ctx, cancel := context.WithTimeout(context.Background(), globalOpts.timeout)
		defer cancel()

		id, err := client.Notify(ctx, n, sendOpts.replacesID)
		if err != nil {
			return err
		}
		if sendOpts.printID {
			fmt.Println(id)
		}
		return nil
	}

	waitCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sent := time.Now()
	reason, err := notifyAndWait(waitCtx, client, n, sendOpts.replacesID,
		func(id uint32) { fmt.Println(id) },
		func(key string) { fmt.Printf("action %s\n", key) },
	)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "closed %s after %s\n", reason, strings.TrimSpace(humanize.RelTime(sent, time.Now(), "", "")))
	return nil
}

// notifySubscriber is the part of the bus client send --wait needs.
type notifySubscriber interface {
	Subscribe(ctx context.Context) (<-chan dbus.Event, error)
	Notify(ctx context.Context, n *model.Notification, replacesID uint32) (uint32, error)
}

// notifyAndWait sends n and blocks until it is closed. The subscription is
// made before Notify so a close that follows immediately is not missed.
// The Notify call itself is bounded by the global timeout.
func notifyAndWait(ctx context.Context, c notifySubscriber, n *model.Notification, replacesID uint32,
	onID func(id uint32), onAction func(key string)) (model.CloseReason, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events, err := c.Subscribe(ctx)
	if err != nil {
		return 0, err
	}

	notifyCtx, cancelNotify := context.WithTimeout(ctx, globalOpts.timeout)
	id, err := c.Notify(notifyCtx, n, replacesID)
	cancelNotify()
	if err != nil {
		return 0, err
	}
	if onID != nil {
		onID(id)
	}

	return dbus.AwaitClose(ctx, events, id, onAction)
}

// buildNotification assembles a notification from the send flags.
func buildNotification(args []string) (*model.Notification, error) {
	n := &model.Notification{
		AppName:       sendOpts.appName,
		AppIcon:       sendOpts.icon,
		Summary:       args[0],
		ExpireTimeout: sendOpts.expire,
		Hints:         model.Hints{},
	}
	if len(args) > 1 {
		n.Body = args[1]
	}

	for _, raw := range sendOpts.actions {
		key, label, ok := strings.Cut(raw, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid action %q, expected key=label", raw)
		}
		n.Actions = append(n.Actions, model.Action{Key: key, Label: label})
	}

	for _, raw := range sendOpts.hints {
		name, value, err := parseHint(raw)
		if err != nil {
			return nil, err
		}
		n.Hints[name] = value
	}

	if sendOpts.urgency != "" {
		level, err := parseUrgency(sendOpts.urgency)
		if err != nil {
			return nil, err
		}
		n.Hints["urgency"] = byte(level)
	}
	if sendOpts.category != "" {
		n.Hints["category"] = sendOpts.category
	}
	return n, nil
}

// parseUrgency accepts an urgency name or number.
func parseUrgency(s string) (int, error) {
	for level, name := range model.UrgencyNames {
		if strings.EqualFold(s, name) {
			return level, nil
		}
	}
	if level, err := strconv.Atoi(s); err == nil && level >= model.UrgencyLow && level <= model.UrgencyCritical {
		return level, nil
	}
	return 0, fmt.Errorf("invalid urgency %q, expected low, normal or critical", s)
}

// parseHint parses name=value or name=type:value. Untyped values are
// strings, except true and false.
func parseHint(raw string) (string, any, error) {
	name, value, ok := strings.Cut(raw, "=")
	if !ok || name == "" {
		return "", nil, fmt.Errorf("invalid hint %q, expected name=value", raw)
	}

	typ, typed, hasType := strings.Cut(value, ":")
	if !hasType {
		switch value {
		case "true":
			return name, true, nil
		case "false":
			return name, false, nil
		default:
			return name, value, nil
		}
	}

	var (
		v   any
		err error
	)
	switch typ {
	case "string":
		v = typed
	case "int":
		var i int64
		i, err = strconv.ParseInt(typed, 10, 32)
		v = int32(i)
	case "uint":
		var u uint64
		u, err = strconv.ParseUint(typed, 10, 32)
		v = uint32(u)
	case "byte":
		var u uint64
		u, err = strconv.ParseUint(typed, 10, 8)
		v = byte(u)
	case "bool":
		var b bool
		b, err = strconv.ParseBool(typed)
		v = b
	default:
		// Not a type prefix, e.g. a URL or a colour with a colon.
		return name, value, nil
	}
	if err != nil {
		return "", nil, fmt.Errorf("invalid %s value in hint %q: %w", typ, raw, err)
	}
	return name, v, nil
}
