package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/onioncrawl/internal/report"
)

// NewReportCmd creates the report command.
func NewReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Write a Markdown summary of the stored crawl",
		Long: `Report renders the stored crawl as GitHub-flavored Markdown: statistics,
a chart of successes and failures, the domains and pages visited and the
pages that could not be fetched.

Examples:
  # Print the report
  onioncrawl report

  # Write it to a file
  onioncrawl report -o report.md

  # Every page, as JSON
  onioncrawl report --json -o report.json`,
		Args: cobra.NoArgs,
		RunE: runReportCmd,
	}

	addConfigFlags(cmd)
	cmd.Flags().StringP("output", "o", "",
		"Write the report to this file instead of stdout (creates directories if needed)")
	cmd.Flags().Int("max-rows", 200,
		"Maximum rows of the page table (-1 for all)")
	cmd.Flags().BoolP("json", "j", false,
		"Write JSON including every page instead of Markdown")

	return cmd
}

func runReportCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	maxRows, err := cmd.Flags().GetInt("max-rows")
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

	var buf bytes.Buffer
	var w report.Writer
	if asJSON {
		w = report.NewJSONWriter(&buf, report.WithPrettyPrint(), report.WithPages(true))
	} else {
		w = report.NewMarkdownWriter(&buf, report.WithMaxPageRows(maxRows))
	}
	if _, err := w.Write(summary); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}

	if outputPath == "" {
		_, err := buf.WriteTo(cmd.OutOrStdout())
		return err
	}

	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(outputPath, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write report file: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Report written to %s\n", outputPath)
	return nil
}
