package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/togetherapp/relay/internal/broker"
	"github.com/togetherapp/relay/internal/config"
)

// emitCmd publishes a raw payload to a broker channel. Mostly an operational
// tool: probing a live socket, draining a consumer with the shutdown
// sentinel, or replaying a captured payload.
var emitCmd = &cobra.Command{
	Use:     "emit",
	Short:   "Publish a raw payload to a broker channel",
	GroupID: "tools",
	Long: `Publishes a payload to a recipient channel (--user) or the shared
push queue (--queue). The payload comes from --payload or stdin;
--kill sends the shutdown sentinel instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetString("user")
		queue, _ := cmd.Flags().GetBool("queue")
		kill, _ := cmd.Flags().GetBool("kill")
		payload, _ := cmd.Flags().GetString("payload")

		var channel string
		switch {
		case user != "" && queue:
			return fmt.Errorf("--user and --queue are mutually exclusive")
		case user != "":
			channel = broker.UserChannel(user)
		case queue:
			channel = broker.QueueChannel
		default:
			return fmt.Errorf("target required: --user <phone> or --queue")
		}

		if kill {
			payload = broker.Sentinel
		} else if payload == "" {
			raw, err := io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("reading payload from stdin: %w", err)
			}
			payload = strings.TrimSpace(string(raw))
			if payload == "" {
				return fmt.Errorf("empty payload (use --payload, stdin, or --kill)")
			}
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		pub, err := broker.NewNATSPublisher(cfg.NATSURL)
		if err != nil {
			return fmt.Errorf("connecting publisher: %w", err)
		}
		defer pub.Close()

		if err := pub.Publish(context.Background(), channel, payload); err != nil {
			return fmt.Errorf("publishing to %s: %w", channel, err)
		}
		printOK("published %d bytes to %s", len(payload), channel)
		return nil
	},
}

func init() {
	emitCmd.Flags().String("user", "", "recipient phone number (targets their channel)")
	emitCmd.Flags().Bool("queue", false, "target the shared push queue channel")
	emitCmd.Flags().Bool("kill", false, "send the shutdown sentinel")
	emitCmd.Flags().String("payload", "", "payload to publish (default: read stdin)")
}
