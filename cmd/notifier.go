/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cortexa-ai/apiserver/config"
	"github.com/cortexa-ai/apiserver/internal/mailer"
	"github.com/cortexa-ai/apiserver/internal/notify"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// notifierCmd represents the notifier command. It consumes queued email
// notifications from the configured broker and delivers them over SMTP.
var notifierCmd = &cobra.Command{
	Use:   "notifier",
	Short: "Runs the email notification consumer",
	Long: `Runs the email notification consumer. Usage:

	cortexa notifier

Requires NOTIFY_BROKER to be set to "rabbitmq" or "pubsub".
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		log := zerolog.New(os.Stdout).With().Timestamp().Str("component", "notifier").Logger()

		if cfg.Broker.Driver == "" {
			return fmt.Errorf("NOTIFY_BROKER is required for the notifier command")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		backend, err := notify.NewBackend(ctx, cfg.Broker)
		if err != nil {
			return fmt.Errorf("init notification backend: %w", err)
		}
		defer func() {
			_ = backend.Close()
		}()

		sender := mailer.NewSender(cfg.SMTP, log)
		worker := notify.NewWorker(backend, cfg.Broker.Channel, sender, log)

		log.Info().Str("driver", cfg.Broker.Driver).Str("channel", cfg.Broker.Channel).Msg("notifier started")
		return worker.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(notifierCmd)
}
