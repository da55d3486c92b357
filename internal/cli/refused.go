package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	redisclient "github.com/vietddude/argmine/internal/infra/redis"
	"github.com/vietddude/argmine/internal/infra/storage"
)

var (
	refusedTopic string
	refusedClear bool
)

var refusedCmd = &cobra.Command{
	Use:   "refused",
	Short: "List or clear urls the service refused to crawl for a topic",
	RunE:  runRefused,
}

func init() {
	refusedCmd.Flags().StringVar(&refusedTopic, "topic", "", "topic (required)")
	refusedCmd.Flags().BoolVar(&refusedClear, "clear", false, "forget every refused url of the topic")
	_ = refusedCmd.MarkFlagRequired("topic")

	rootCmd.AddCommand(refusedCmd)
}

func runRefused(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Redis.URL == "" {
		return fmt.Errorf("refused needs redis.url: %w", storage.ErrNotConfigured)
	}

	client, err := redisclient.NewClient(cfg.Redis)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	ctx := context.Background()
	registry := redisclient.NewRefusedRegistry(client)
	if refusedClear {
		if err := registry.Clear(ctx, refusedTopic); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Cleared refused urls for %q\n", refusedTopic)
		return nil
	}

	urls, err := registry.List(ctx, refusedTopic)
	if err != nil {
		return err
	}
	for _, u := range urls {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), u)
	}
	return nil
}
