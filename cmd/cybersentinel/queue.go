package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"cybersentinel/internal/bootstrap"
	"cybersentinel/internal/input/redis"
	"cybersentinel/internal/logger"
	"cybersentinel/internal/pipeline"
	"cybersentinel/internal/workflow"
)

func newEnqueueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enqueue <action>",
		Short: "Queue a workflow action on the Redis command list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			action, err := workflow.ParseAction(args[0])
			if err != nil {
				return err
			}
			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			rc := cfg.CyberSentinel.Commands.Redis
			queue, err := redis.NewQueue(redis.Config{
				Addr:     rc.Addr,
				Password: rc.Password,
				DB:       rc.DB,
				Key:      rc.Key,
			})
			if err != nil {
				return err
			}
			defer queue.Close()

			command := pipeline.NewCommand(action)
			payload, err := json.Marshal(command)
			if err != nil {
				return err
			}
			depth, err := queue.Push(cmd.Context(), payload)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "queued %s id=%s key=%s depth=%d\n", action, command.ID, rc.Key, depth)
			return nil
		},
	}
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed <dataset.json|->",
		Short: "Store a dataset under the bootstrap Redis key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			raw, err := readDataset(args[0])
			if err != nil {
				return err
			}
			rc := cfg.CyberSentinel.Bootstrap.Redis
			src := bootstrap.NewRedisSource(bootstrap.RedisConfig{
				Addr:     rc.Addr,
				Password: rc.Password,
				DB:       rc.DB,
				Key:      rc.Key,
				Timeout:  rc.Timeout,
			})
			defer src.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), rc.Timeout)
			defer cancel()
			if err := src.Store(ctx, raw); err != nil {
				return err
			}
			logger.Infof("Dataset stored under %s", rc.Key)
			fmt.Fprintf(cmd.OutOrStdout(), "stored %d bytes key=%s\n", len(raw), rc.Key)
			return nil
		},
	}
}
