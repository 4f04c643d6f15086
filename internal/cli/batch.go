package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ppiankov/yojana/internal/render"
	"github.com/ppiankov/yojana/internal/worker"
	"github.com/spf13/cobra"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <profiles.yaml>",
	Short: "Recommend schemes for many profiles in parallel",
	Long: `Batch resolves every profile in a YAML file concurrently:
- Read profiles from the input file (a list, or a "profiles:" mapping)
- Check each profile's steps; incomplete profiles are reported and skipped
- Resolve complete profiles with a configurable worker count
- Write one JSON result per profile plus a summary.json

The minimum loading time does not apply to batch runs.

Example:
  yojana batch profiles.yaml
  yojana batch profiles.yaml --concurrency 8 --output-dir ./results`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent workers (default from config)")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./yojana-results", "output directory for results")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)
	defer func() { _ = log.Sync() }()

	if concurrency <= 0 {
		concurrency = cfg.Concurrency.Workers
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	stderr := cmd.ErrOrStderr()
	res := newResolver(cfg, log)

	fmt.Fprintf(stderr, "\n")
	fmt.Fprintf(stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(stderr, "  Yojana Batch Recommendations\n")
	fmt.Fprintf(stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(stderr, "\n")
	fmt.Fprintf(stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(stderr, "  Workers:      %d\n", concurrency)
	fmt.Fprintf(stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(stderr, "  Timeout:      %v\n", batchTimeout)
	if res.Enabled() {
		fmt.Fprintf(stderr, "  Provider:     %s/%s\n", res.ProviderName(), cfg.LLM.Model)
	} else {
		fmt.Fprintf(stderr, "  Provider:     none (built-in catalog)\n")
	}
	fmt.Fprintf(stderr, "\n")

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	processor := worker.NewBatchProcessor(res, concurrency)

	results, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	for _, r := range results {
		label := r.Profile.Name
		if label == "" {
			label = fmt.Sprintf("profile #%d", r.Index+1)
		}

		if r.Error != nil {
			fmt.Fprintf(stderr, "✗ %s: %v\n", label, r.Error)
			continue
		}

		path := filepath.Join(outputDir, resultFilename(r.Index, r.Profile.Name))
		out := &render.Result{
			Profile: r.Profile,
			Schemes: r.Outcome.Schemes,
			Source:  string(r.Outcome.Source),
			Reason:  string(r.Outcome.Reason),
		}
		if err := render.ToFile(path, out, render.JSON); err != nil {
			fmt.Fprintf(stderr, "✗ %s: %v\n", label, err)
			continue
		}

		source := out.Source
		if out.Reason != "" {
			source += "/" + out.Reason
		}
		fmt.Fprintf(stderr, "✓ %s: %d schemes (%s)\n", label, len(out.Schemes), source)
	}

	summary := worker.Summarize(results)
	if err := writeSummary(filepath.Join(outputDir, "summary.json"), summary); err != nil {
		return err
	}

	fmt.Fprintf(stderr, "\n")
	fmt.Fprintf(stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(stderr, "  Batch Complete\n")
	fmt.Fprintf(stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(stderr, "\n")
	fmt.Fprintf(stderr, "  Total:      %d profiles\n", summary.Total)
	fmt.Fprintf(stderr, "  AI:         %d\n", summary.AI)
	fmt.Fprintf(stderr, "  Fallback:   %d\n", summary.Fallback)
	fmt.Fprintf(stderr, "  Invalid:    %d\n", summary.Invalid)
	fmt.Fprintf(stderr, "  Output:     %s\n", outputDir)
	fmt.Fprintf(stderr, "\n")

	return nil
}

func writeSummary(path string, s worker.Summary) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}

var filenameReplacer = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	":", "_",
	"*", "_",
	"?", "_",
	"\"", "_",
	"<", "_",
	">", "_",
	"|", "_",
	" ", "-",
)

// resultFilename builds a stable, filesystem-safe name for one batch result
func resultFilename(index int, name string) string {
	slug := strings.ToLower(filenameReplacer.Replace(strings.TrimSpace(name)))
	if len(slug) > 60 {
		slug = slug[:60]
	}
	if slug == "" || slug == "." || slug == ".." {
		slug = "profile"
	}
	return fmt.Sprintf("%03d-%s.json", index+1, slug)
}
