package cmd

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/qrscan/internal/batch"
	"github.com/MeKo-Tech/qrscan/internal/config"
)

// batchCmd represents the batch command for parallel image processing.
var batchCmd = &cobra.Command{
	Use:   "batch [files or directories...]",
	Short: "Scan many images in parallel",
	Long: `Scan multiple image files in parallel. Directories are expanded to the
supported images they contain.

Supported formats: JPEG, PNG, GIF, BMP, TIFF, WebP

Examples:
  qrscan batch *.jpg *.png
  qrscan batch images/ --recursive --workers 8
  qrscan batch scans/ --format csv --output codes.csv
  qrscan batch images/ --progress --overlay-dir overlays/`,
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE:         runBatchCommand,
}

// configToBatchConfig maps centralized configuration to batch.Config.
// Flags that were set explicitly override config file values.
func configToBatchConfig(cfg *config.Config, cmd *cobra.Command) *batch.Config {
	batchConfig := &batch.Config{}

	batchConfig.Format = cfg.Output.Format
	if cmd.Flags().Changed("format") {
		batchConfig.Format, _ = cmd.Flags().GetString("format")
	}

	batchConfig.OutputFile = cfg.Output.File
	if cmd.Flags().Changed("output") {
		batchConfig.OutputFile, _ = cmd.Flags().GetString("output")
	}

	batchConfig.OverlayDir = cfg.Output.OverlayDir
	if cmd.Flags().Changed("overlay-dir") {
		batchConfig.OverlayDir, _ = cmd.Flags().GetString("overlay-dir")
	}

	batchConfig.Workers = cfg.Batch.Workers
	if cmd.Flags().Changed("workers") {
		batchConfig.Workers, _ = cmd.Flags().GetInt("workers")
	}

	batchConfig.Recursive = cfg.Batch.Recursive
	if cmd.Flags().Changed("recursive") {
		batchConfig.Recursive, _ = cmd.Flags().GetBool("recursive")
	}

	batchConfig.ContinueOnError = cfg.Batch.ContinueOnError
	if cmd.Flags().Changed("continue-on-error") {
		batchConfig.ContinueOnError, _ = cmd.Flags().GetBool("continue-on-error")
	}

	batchConfig.MaxDimension, _ = cmd.Flags().GetInt("max-dimension")
	batchConfig.IncludePatterns, _ = cmd.Flags().GetStringSlice("include")
	batchConfig.ExcludePatterns, _ = cmd.Flags().GetStringSlice("exclude")
	batchConfig.ShowProgress, _ = cmd.Flags().GetBool("progress")
	batchConfig.Quiet, _ = cmd.Flags().GetBool("quiet")
	batchConfig.ShowStats, _ = cmd.Flags().GetBool("stats")
	batchConfig.ProgressInterval, _ = cmd.Flags().GetDuration("progress-interval")

	if batchConfig.Workers <= 0 {
		batchConfig.Workers = runtime.NumCPU()
	}
	return batchConfig
}

func runBatchCommand(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	batchConfig := configToBatchConfig(cfg, cmd)

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	pool, err := a.pool(ctx, batchConfig.Workers)
	if err != nil {
		return fmt.Errorf("failed to create scanner pool: %w", err)
	}
	defer pool.Close()

	result, err := batch.ProcessBatch(ctx, pool, args, batchConfig)
	if err != nil {
		return err
	}

	if err := result.SaveResults(cmd.OutOrStdout(), batchConfig.Format, batchConfig.OutputFile, batchConfig.Quiet); err != nil {
		return err
	}
	if batchConfig.ShowStats && !batchConfig.Quiet {
		result.PrintStats(cmd.ErrOrStderr())
	}
	return nil
}

func init() {
	rootCmd.AddCommand(batchCmd)
	batchCmd.Flags().StringP("format", "f", "text", "output format (text, json, yaml, csv)")
	batchCmd.Flags().StringP("output", "o", "", "output file (default: stdout)")
	batchCmd.Flags().String("overlay-dir", "", "write annotated images to this directory")
	batchCmd.Flags().IntP("workers", "w", runtime.NumCPU(), "number of parallel scanners")
	batchCmd.Flags().BoolP("recursive", "r", false, "descend into subdirectories")
	batchCmd.Flags().Bool("continue-on-error", false, "keep going when an image fails")
	batchCmd.Flags().Int("max-dimension", 0, "scale images larger than this down before scanning (0 keeps size)")
	batchCmd.Flags().StringSlice("include", nil, "only files matching these glob patterns")
	batchCmd.Flags().StringSlice("exclude", nil, "skip files matching these glob patterns")
	batchCmd.Flags().Bool("progress", false, "show a progress bar")
	batchCmd.Flags().BoolP("quiet", "q", false, "suppress progress and status output")
	batchCmd.Flags().Bool("stats", false, "print processing statistics")
	batchCmd.Flags().Duration("progress-interval", 100*time.Millisecond, "progress refresh interval")
}
