package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var closeCmd = &cobra.Command{
	Use:   "close <id>...",
	Short: "Close notifications by id",
	Long: `Ask the notification server to close one or more notifications.

Closing an id that is not active is not an error.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runClose,
}

func init() {
	rootCmd.AddCommand(closeCmd)
}

func runClose(cmd *cobra.Command, args []string) error {
	ids := make([]uint32, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseUint(arg, 10, 32)
		if err != nil || id == 0 {
			return fmt.Errorf("invalid notification id %q", arg)
		}
		ids = append(ids, uint32(id))
	}

	client, err := connect()
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), globalOpts.timeout)
	defer cancel()

	for _, id := range ids {
		if err := client.CloseNotification(ctx, id); err != nil {
			return err
		}
		logger.Debug("closed notification", "id", id)
	}
	return nil
}
