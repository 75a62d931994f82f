package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/togetherapp/relay/internal/broker"
	"github.com/togetherapp/relay/internal/compose"
	"github.com/togetherapp/relay/internal/config"
	"github.com/togetherapp/relay/internal/locale"
	"github.com/togetherapp/relay/internal/model"
	"github.com/togetherapp/relay/internal/store"
	"github.com/togetherapp/relay/internal/store/postgres"
)

var actionKinds = map[string]compose.ActionKind{
	"message":      compose.MessageSent,
	"added":        compose.UserAdded,
	"bulk-added":   compose.UsersAdded,
	"removed":      compose.UserRemoved,
	"bulk-removed": compose.UsersRemoved,
	"revoked":      compose.RequesterRevoked,
	"title":        compose.TitleChanged,
	"date":         compose.DateChanged,
	"location":     compose.LocationChanged,
	"pic":          compose.ImageChanged,
}

// notifyCmd composes an action into an event record and fans it out to the
// given recipients' channels.
var notifyCmd = &cobra.Command{
	Use:     "notify",
	Short:   "Compose an action and fan it out to recipients",
	GroupID: "tools",
	Long: `Builds the event record for an action, persists it when a database is
configured, and publishes the payload to each recipient's channel.

Examples:
  relay notify --act message --event ev1 --actor +1777 --text "hello" --to +1555
  relay notify --act added --event ev1 --actor +1777 --target +1555 --to +1555,+1666
  relay notify --act bulk-added --event ev1 --actor +1777 --qty 3 --to +1555`,
	RunE: func(cmd *cobra.Command, args []string) error {
		actName, _ := cmd.Flags().GetString("act")
		eventID, _ := cmd.Flags().GetString("event")
		eventType, _ := cmd.Flags().GetString("type")
		actorPhone, _ := cmd.Flags().GetString("actor")
		actorName, _ := cmd.Flags().GetString("actor-name")
		targetPhone, _ := cmd.Flags().GetString("target")
		targetName, _ := cmd.Flags().GetString("target-name")
		text, _ := cmd.Flags().GetString("text")
		qty, _ := cmd.Flags().GetInt("qty")
		recipients, _ := cmd.Flags().GetStringSlice("to")

		kind, ok := actionKinds[actName]
		if !ok {
			return fmt.Errorf("unknown action %q", actName)
		}
		if actorPhone == "" {
			return fmt.Errorf("--actor is required")
		}
		if len(recipients) == 0 {
			return fmt.Errorf("--to is required")
		}

		a := compose.Action{
			Kind:      kind,
			Actor:     memberFromFlags(actorPhone, actorName),
			EventID:   eventID,
			EventType: eventType,
			Qty:       qty,
			Text:      text,
		}
		if targetPhone != "" {
			target := memberFromFlags(targetPhone, targetName)
			a.Target = &target
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		var table *locale.Table
		if cfg.LocaleFile != "" {
			table, err = locale.Load(cfg.LocaleFile)
			if err != nil {
				return fmt.Errorf("loading locale table: %w", err)
			}
		}

		var saver store.Saver = store.NoopSaver{}
		if cfg.DatabaseURL != "" {
			pg, err := postgres.New(cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("connecting store: %w", err)
			}
			defer pg.Close()
			saver = pg
		} else {
			logger.Info("RELAY_DATABASE_URL not set, record will not be persisted")
		}

		pub, err := broker.NewNATSPublisher(cfg.NATSURL)
		if err != nil {
			return fmt.Errorf("connecting publisher: %w", err)
		}
		defer pub.Close()

		comp := compose.New(saver, pub, table, logger)
		rec, err := comp.Notify(context.Background(), a, recipients)
		if err != nil {
			return err
		}
		printOK("record %s published to %d recipient(s)", rec.ID, len(recipients))
		return nil
	},
}

// memberFromFlags splits "First Last" around the first space; a bare name
// becomes the first name.
func memberFromFlags(phone, name string) model.Member {
	first, last, _ := strings.Cut(name, " ")
	return model.Member{Phone: phone, FirstName: first, LastName: last}
}

func init() {
	notifyCmd.Flags().String("act", "message", "action kind (message, added, bulk-added, removed, bulk-removed, revoked, title, date, location, pic)")
	notifyCmd.Flags().String("event", "", "event identifier")
	notifyCmd.Flags().String("type", model.EventTypeEvent, "event type (chat or event)")
	notifyCmd.Flags().String("actor", "", "actor phone number")
	notifyCmd.Flags().String("actor-name", "", `actor display name ("First Last")`)
	notifyCmd.Flags().String("target", "", "affected member phone number")
	notifyCmd.Flags().String("target-name", "", `affected member display name ("First Last")`)
	notifyCmd.Flags().String("text", "", "free text for the message action")
	notifyCmd.Flags().Int("qty", 0, "affected member count for bulk actions")
	notifyCmd.Flags().StringSlice("to", nil, "recipient phone numbers")
}
