package main

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func sendCmd() *cobra.Command {
	var (
		timeout  time.Duration
		fromFile string
		receipt  string
	)

	cmd := &cobra.Command{
		Use:   "send <destination> [body]",
		Short: "Publish a message to a destination",
		Long: `Publish one message and disconnect.

The body comes from the second argument, from --file, or from stdin
when neither is given.

Examples:
  stompctl send /queue/orders "order 42"
  stompctl send /queue/orders --file order.json
  cat order.json | stompctl send /queue/orders`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := resolveBody(args, fromFile)
			if err != nil {
				return err
			}
			return runSend(args[0], body, timeout, receipt)
		},
	}

	cmd.Flags().DurationVarP(&timeout, "timeout", "t", 10*time.Second, "Overall deadline for the operation")
	cmd.Flags().StringVarP(&fromFile, "file", "f", "", "Read the body from a file")
	cmd.Flags().StringVarP(&receipt, "receipt", "r", "stompctl-send", "Receipt id for the disconnect")

	return cmd
}

func resolveBody(args []string, fromFile string) ([]byte, error) {
	if len(args) == 2 {
		return []byte(args[1]), nil
	}
	if fromFile != "" {
		return os.ReadFile(fromFile)
	}
	return io.ReadAll(os.Stdin)
}

func runSend(destination string, body []byte, timeout time.Duration, receipt string) error {
	logger := newLogger()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	c, err := dial(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.SendTo(ctx, destination, body); err != nil {
		return err
	}
	// The receipt round-trip proves the broker processed the SEND before
	// we tear the connection down.
	if err := c.Disconnect(ctx, receipt); err != nil {
		return err
	}

	logger.Info().
		Str("destination", destination).
		Int("bytes", len(body)).
		Msg("sent")
	return nil
}
