package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vietddude/argmine/internal/infra/storage"
	"github.com/vietddude/argmine/internal/infra/storage/postgres"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show stored documents, sentences and missing urls per topic",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Database.URL == "" {
		return fmt.Errorf("status needs database.url: %w", storage.ErrNotConfigured)
	}

	ctx := context.Background()
	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		_ = db.Close()
	}()

	stats, err := postgres.NewResultRepo(db).Stats(ctx)
	if err != nil {
		return err
	}
	return writeStats(os.Stdout, stats)
}

func writeStats(out io.Writer, stats []storage.TopicStats) error {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "TOPIC\tDOCUMENTS\tSENTENCES\tARGUMENTS\tMISSING")
	for _, s := range stats {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\n", s.Topic, s.Documents, s.Sentences, s.Arguments, s.Missing)
	}
	return w.Flush()
}
