/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gostore-shop/apiserver/config"
	"github.com/gostore-shop/apiserver/internal/logging"
	"github.com/gostore-shop/apiserver/internal/mq"
	"github.com/gostore-shop/apiserver/internal/services"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// workerCmd represents the worker command. It consumes the background
// tasks submitted after review mutations.
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume background tasks from the configured queue",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()

		logger, err := logging.New()
		if err != nil {
			return err
		}
		defer logger.Sync()

		queue, err := newWorkerQueue(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer queue.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger.Info("worker started", zap.String("channel", cfg.Tasks.Channel))
		err = queue.Subscribe(ctx, cfg.Tasks.Channel, func(ctx context.Context, msg mq.Message) error {
			var task services.Task
			if err := json.Unmarshal(msg.Data, &task); err != nil {
				logger.Warn("discarding malformed task", zap.String("message_id", msg.ID), zap.Error(err))
				return nil
			}

			logger.Info("task received",
				zap.String("kind", task.Kind),
				zap.Int("review_id", task.ReviewID),
				zap.Int("product_id", task.ProductID),
			)
			return nil
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func newWorkerQueue(ctx context.Context, cfg config.Config) (*mq.MQ, error) {
	switch cfg.Tasks.Backend {
	case "rabbitmq":
		client, err := mq.NewRabbitMQClient(cfg.RabbitMQ)
		if err != nil {
			return nil, fmt.Errorf("connect rabbitmq: %w", err)
		}
		return mq.New(client), nil
	case "pubsub":
		client, err := mq.NewPubSubClient(ctx, cfg.PubSub)
		if err != nil {
			return nil, fmt.Errorf("connect pubsub: %w", err)
		}
		return mq.New(client), nil
	default:
		return nil, fmt.Errorf("TASKS_BACKEND must be rabbitmq or pubsub, got %q", cfg.Tasks.Backend)
	}
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
