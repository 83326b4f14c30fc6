// Package batch scans many image files in parallel.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/MeKo-Tech/qrscan/internal/scan"
)

// ProcessBatch scans the images named by imagePaths (files or directories)
// with the Runners of pool.
func ProcessBatch(ctx context.Context, pool *scan.Pool, imagePaths []string, config *Config) (*Result, error) {
	files, err := Discovery{
		Recursive: config.Recursive,
		Include:   config.IncludePatterns,
		Exclude:   config.ExcludePatterns,
	}.Find(imagePaths)
	if err != nil {
		return nil, fmt.Errorf("failed to discover image files: %w", err)
	}
	if len(files) == 0 {
		return nil, errors.New("no image files found")
	}

	var progress scan.ProgressCallback = scan.NewLogProgressCallback(nil, slog.LevelDebug, 0)
	if config.ShowProgress && !config.Quiet {
		progress = scan.NewConsoleProgressCallback(progressWriter(), "Scanning: ").
			WithUpdateInterval(config.ProgressInterval)
	}

	start := time.Now()
	results, err := pool.ScanParallel(ctx, jobs(files, config.MaxDimension), scan.ParallelConfig{
		Overlay:          config.OverlayDir != "",
		ProgressCallback: progress,
	})
	duration := time.Since(start)

	if results == nil {
		return nil, fmt.Errorf("batch processing failed: %w", err)
	}
	if err != nil && !config.ContinueOnError {
		return nil, fmt.Errorf("batch processing failed: %w", err)
	}

	if config.OverlayDir != "" {
		if err := saveOverlays(config.OverlayDir, files, results); err != nil {
			return nil, err
		}
	}

	return &Result{
		Results:     results,
		ImagePaths:  files,
		Duration:    duration,
		WorkerCount: pool.Size(),
	}, nil
}

func progressWriter() io.Writer { return os.Stderr }
