package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/togetherapp/relay/internal/broker"
	"github.com/togetherapp/relay/internal/config"
	"github.com/togetherapp/relay/internal/directory"
	"github.com/togetherapp/relay/internal/gateway"
	"github.com/togetherapp/relay/internal/push"
	"github.com/togetherapp/relay/internal/worker"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Run the connection gateway and the push dispatcher",
	GroupID: "workers",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWorkers(true, true)
	},
}

var gatewayCmd = &cobra.Command{
	Use:     "gateway",
	Short:   "Run only the connection gateway",
	GroupID: "workers",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWorkers(true, false)
	},
}

var dispatchCmd = &cobra.Command{
	Use:     "dispatch",
	Short:   "Run only the push dispatcher",
	GroupID: "workers",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWorkers(false, true)
	},
}

func runWorkers(withGateway, withDispatcher bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	dir, err := buildDirectory(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner := worker.NewRunner(cfg.LockDir, logger)

	if withGateway {
		sub, err := broker.NewNATSSubscriber(cfg.NATSURL)
		if err != nil {
			return fmt.Errorf("connecting gateway subscriber: %w", err)
		}
		defer sub.Close()

		gw := gateway.New(cfg.WSAddr, dir, sub, cfg.HeartbeatInterval, logger)
		if err := runner.Start(ctx, gw); err != nil {
			return err
		}
		logger.Info("gateway listening", "addr", cfg.WSAddr, "heartbeat", cfg.HeartbeatInterval)
	}

	if withDispatcher {
		if cfg.APNSCert == "" {
			if !withGateway {
				return fmt.Errorf("RELAY_APNS_CERT is required for the dispatcher")
			}
			// Never consume the queue channel without a delivery path:
			// payloads would be acknowledged and lost.
			logger.Error("dispatcher disabled (RELAY_APNS_CERT not set)")
		} else {
			apns, err := push.NewAPNSGateway(cfg.APNSCert, cfg.APNSTopic, cfg.APNSSandbox, logger)
			if err != nil {
				return fmt.Errorf("creating push gateway: %w", err)
			}
			defer apns.Close()

			sub, err := broker.NewNATSSubscriber(cfg.NATSURL)
			if err != nil {
				return fmt.Errorf("connecting dispatcher subscriber: %w", err)
			}
			defer sub.Close()

			disp := push.NewDispatcher(sub, dir, apns, logger)
			if err := runner.Start(ctx, disp); err != nil {
				return err
			}
			logger.Info("dispatcher consuming", "channel", broker.QueueChannel, "sandbox", cfg.APNSSandbox)
		}
	}

	err = runner.Wait()
	logger.Info("shutdown complete")
	return err
}

// buildDirectory loads the member roster when one is configured, otherwise
// starts empty so connections can only be registered programmatically.
func buildDirectory(cfg *config.Config, logger *slog.Logger) (directory.Directory, error) {
	if cfg.DirectoryFile == "" {
		logger.Info("directory roster not configured, starting empty")
		return directory.NewInMemory(), nil
	}
	dir, err := directory.LoadRoster(cfg.DirectoryFile)
	if err != nil {
		return nil, fmt.Errorf("loading roster: %w", err)
	}
	logger.Info("directory roster loaded", "path", cfg.DirectoryFile)
	return dir, nil
}
