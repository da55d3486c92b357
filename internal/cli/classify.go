package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/argmine/internal/control"
	"github.com/vietddude/argmine/internal/core/config"
	"github.com/vietddude/argmine/internal/core/domain"
	"github.com/vietddude/argmine/internal/infra/gateway"
)

var classifyFlags struct {
	topic         string
	input         string
	column        string
	startRow      int
	endRow        int
	ndocs         int
	batchSize     int
	strategy      string
	outDir        string
	prefix        string
	allSentences  bool
	relevance     string
	skipProcessed bool
	retryFailed   bool
}

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify the sentences of a list of URLs for a topic",
	Example: `  argmine classify --topic "climate change" --input gdelt.csv --ndocs 500
  argmine classify --topic "climate change" --retry-failed`,
	RunE: runClassify,
}

func init() {
	f := classifyCmd.Flags()
	f.StringVar(&classifyFlags.topic, "topic", "", "topic to classify against (required)")
	f.StringVar(&classifyFlags.input, "input", "", "url list: .csv with a url column or one url per line")
	f.StringVar(&classifyFlags.column, "column", "", "url column of a csv input")
	f.IntVar(&classifyFlags.startRow, "start-row", 0, "first row of the input to process")
	f.IntVar(&classifyFlags.endRow, "end-row", 0, "row after the last one to process")
	f.IntVar(&classifyFlags.ndocs, "ndocs", 0, "number of rows to process when --end-row is not set")
	f.IntVar(&classifyFlags.batchSize, "batch-size", 0, "urls per output batch")
	f.StringVar(&classifyFlags.strategy, "strategy", "", "batch strategy: serial, pool or chunked")
	f.StringVar(&classifyFlags.outDir, "out-dir", "", "output directory")
	f.StringVar(&classifyFlags.prefix, "prefix", "", "output file prefix")
	f.BoolVar(&classifyFlags.allSentences, "all-sentences", false, "keep non-argument sentences")
	f.StringVar(&classifyFlags.relevance, "topic-relevance", "", "match_string, n_gram_overlap or word2vec")
	f.BoolVar(&classifyFlags.skipProcessed, "skip-processed", false, "skip urls already stored for the topic")
	f.BoolVar(&classifyFlags.retryFailed, "retry-failed", false, "retry queued failed urls instead of reading input")
	_ = classifyCmd.MarkFlagRequired("topic")

	rootCmd.AddCommand(classifyCmd)
}

// applyClassifyFlags overrides config values with flags that were set.
func applyClassifyFlags(cmd *cobra.Command, cfg *config.AppConfig) error {
	f := cmd.Flags()
	if f.Changed("input") {
		cfg.Input.Path = classifyFlags.input
	}
	if f.Changed("column") {
		cfg.Input.Column = classifyFlags.column
	}
	if f.Changed("start-row") {
		cfg.Input.StartRow = classifyFlags.startRow
	}
	if f.Changed("end-row") {
		cfg.Input.EndRow = classifyFlags.endRow
	}
	if f.Changed("ndocs") {
		cfg.Input.NDocs = classifyFlags.ndocs
	}
	if f.Changed("batch-size") {
		cfg.Input.BatchSize = classifyFlags.batchSize
	}
	if f.Changed("strategy") {
		cfg.Batch.Strategy = classifyFlags.strategy
	}
	if f.Changed("out-dir") {
		cfg.Output.Dir = classifyFlags.outDir
	}
	if f.Changed("prefix") {
		cfg.Output.Prefix = classifyFlags.prefix
	}
	if f.Changed("all-sentences") {
		cfg.Classify.OnlyArguments = !classifyFlags.allSentences
	}
	if f.Changed("topic-relevance") {
		relevance, err := domain.ParseTopicRelevance(classifyFlags.relevance)
		if err != nil {
			return err
		}
		cfg.Classify.TopicRelevance = relevance
	}
	return cfg.Validate()
}

func runClassify(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := applyClassifyFlags(cmd, cfg); err != nil {
		return err
	}
	if _, err := (gateway.EnvCredentials{}).Credentials(); err != nil {
		return fmt.Errorf("%w: set %s and %s", err, gateway.EnvUserID, gateway.EnvAPIKey)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("Received signal, finishing current batch...", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	runner, err := control.NewRunner(ctx, cfg, gateway.EnvCredentials{})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := runner.Close(shutdownCtx); err != nil {
			slog.Warn("Error during shutdown", "error", err)
		}
	}()
	runner.Start(ctx)

	var summary *control.Summary
	if classifyFlags.retryFailed {
		summary, err = runner.RetryFailed(ctx, classifyFlags.topic)
	} else {
		urls, offset, total, lerr := control.LoadURLs(cfg.Input)
		if lerr != nil {
			return lerr
		}
		summary, err = runner.Classify(ctx, control.Request{
			Topic:         classifyFlags.topic,
			URLs:          urls,
			Offset:        offset,
			Total:         total,
			SkipProcessed: classifyFlags.skipProcessed,
		})
	}

	if summary != nil {
		printSummary(cmd, summary)
	}
	if errors.Is(err, context.Canceled) {
		slog.Warn("Run interrupted, partial results written")
		return nil
	}
	return err
}

func printSummary(cmd *cobra.Command, s *control.Summary) {
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "run %s: %d batches in %s\n", s.RunID, s.Batches, s.Duration.Round(time.Millisecond))
	_, _ = fmt.Fprintf(out, "  success %d, refused %d, failed %d, skipped %d, already processed %d, duplicates %d\n",
		s.Counts[domain.OutcomeSuccess],
		s.Counts[domain.OutcomeRefused],
		s.Counts[domain.OutcomeFailure],
		s.Counts[domain.OutcomeSkipped],
		s.AlreadyProcessed,
		s.Duplicates,
	)
	_, _ = fmt.Fprintf(out, "  %d documents, %d sentences, %d missing urls\n", s.Documents, s.Sentences, s.Missing)
	for _, f := range s.Files {
		_, _ = fmt.Fprintf(out, "  wrote %s\n", f)
	}
}
