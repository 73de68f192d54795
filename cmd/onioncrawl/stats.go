package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/onioncrawl/internal/config"
	"github.com/nao1215/onioncrawl/internal/report"
)

// defaultTopDomains is the number of domains listed by stats.
const defaultTopDomains = 10

// NewStatsCmd creates the stats command.
func NewStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print statistics of the stored crawl",
		Long: `Stats prints the number of stored pages, successes, errors and links of
the configured store, together with the domains holding the most pages.

Examples:
  # Statistics of ./data/crawled_pages.jsonl
  onioncrawl stats

  # Statistics of the SQLite store as JSON
  onioncrawl stats -s sqlite --json`,
		Args: cobra.NoArgs,
		RunE: runStatsCmd,
	}

	addConfigFlags(cmd)
	cmd.Flags().IntP("top", "t", defaultTopDomains, "Number of domains to list (0 hides the list)")
	cmd.Flags().BoolP("json", "j", false, "Print statistics as JSON")

	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	top, err := cmd.Flags().GetInt("top")
	if err != nil {
		return err
	}
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	summary, err := summarizeStore(cmd, cfg)
	if err != nil {
		return err
	}

	var w report.Writer
	if asJSON {
		w = report.NewJSONWriter(cmd.OutOrStdout(), report.WithPrettyPrint())
	} else {
		w = report.NewSimpleWriter(cmd.OutOrStdout(),
			report.WithTopDomains(top),
			report.WithVerbose(getVerboseFlag(cmd)),
		)
	}
	if _, err := w.Write(summary); err != nil {
		return fmt.Errorf("failed to write statistics: %w", err)
	}
	return nil
}

// summarizeStore reads every record of the configured store.
func summarizeStore(cmd *cobra.Command, cfg *config.Config) (*report.Summary, error) {
	ctx := cmd.Context()
	logger, err := newLogger(cmd.ErrOrStderr(), cfg.LogLevel, false)
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}

	store, storeCfg, err := openExistingStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	stats, err := store.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read statistics: %w", err)
	}
	records, err := store.Records(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}
	return report.Summarize(storeSource(storeCfg), records, stats), nil
}
