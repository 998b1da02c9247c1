package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"stomp-client/message"
	"stomp-client/transport"
)

func listenCmd() *cobra.Command {
	var (
		subscriptionID string
		ack            bool
		count          int
	)

	cmd := &cobra.Command{
		Use:   "listen <destination>",
		Short: "Subscribe to a destination and print deliveries",
		Long: `Subscribe and stream message bodies to stdout until interrupted.

With --ack each delivery is acknowledged individually; without it
the broker considers everything delivered on receipt.

Examples:
  stompctl listen /topic/prices
  stompctl listen /queue/orders --ack --count 10`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runListen(args[0], subscriptionID, ack, count)
		},
	}

	cmd.Flags().StringVarP(&subscriptionID, "id", "i", "stompctl-0", "Subscription id")
	cmd.Flags().BoolVarP(&ack, "ack", "a", false, "Acknowledge each delivery")
	cmd.Flags().IntVarP(&count, "count", "n", 0, "Stop after N messages (0 = forever)")

	return cmd
}

func runListen(destination, subscriptionID string, ack bool, count int) error {
	logger := newLogger()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	c, err := dial(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.Subscribe(ctx, destination, subscriptionID); err != nil {
		return err
	}
	logger.Info().Str("destination", destination).Msg("listening")

	received := 0
	for count == 0 || received < count {
		in, err := c.Receive(ctx)
		if err != nil {
			if errors.Is(err, transport.ErrClosed) || ctx.Err() != nil {
				break
			}
			return err
		}

		switch m := in.Content.(type) {
		case *message.Message:
			fmt.Printf("%s\n", m.Body)
			received++
			if ack {
				if err := c.Ack(ctx, m.MessageID); err != nil {
					return err
				}
			}
		case *message.Error:
			logger.Error().Bytes("body", m.Body).Msg("broker error")
		default:
			logger.Debug().Str("command", string(in.Command())).Msg("ignoring frame")
		}
	}

	logger.Info().Int("received", received).Msg("done")
	return nil
}
