package batch

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/MeKo-Tech/qrscan/internal/scan"
)

// Config holds all configuration for batch processing.
type Config struct {
	Format     string
	OutputFile string
	OverlayDir string

	// MaxDimension scales larger images down before scanning. 0 keeps the
	// original size.
	MaxDimension int

	Workers         int
	ContinueOnError bool

	Recursive       bool
	IncludePatterns []string
	ExcludePatterns []string

	ShowProgress     bool
	Quiet            bool
	ShowStats        bool
	ProgressInterval time.Duration
}

// Result holds the result of batch processing.
type Result struct {
	Results     []scan.JobResult
	ImagePaths  []string
	Duration    time.Duration
	WorkerCount int
}

// Files converts the results to formatter input.
func (r *Result) Files() []FileResult {
	out := make([]FileResult, len(r.Results))
	for i, res := range r.Results {
		out[i] = FileResult{File: r.ImagePaths[i], Detections: res.Report.Detections}
		if res.Err != nil {
			out[i].Error = res.Err.Error()
		}
	}
	return out
}

// FormatResults formats the batch results in the given format.
func (r *Result) FormatResults(format string) (string, error) {
	return Format(r.Files(), format)
}

// SaveResults writes the formatted results to outputFile, or to w when no
// file is given.
func (r *Result) SaveResults(w io.Writer, format, outputFile string, quiet bool) error {
	output, err := r.FormatResults(format)
	if err != nil {
		return fmt.Errorf("failed to format results: %w", err)
	}

	if outputFile == "" {
		_, err := fmt.Fprint(w, output)
		return err
	}
	if err := os.WriteFile(outputFile, []byte(output), 0o600); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	if !quiet {
		_, _ = fmt.Fprintf(w, "Results written to %s\n", outputFile)
	}
	return nil
}

// Stats summarizes the run.
func (r *Result) Stats() scan.Stats {
	return scan.CalculateStats(r.Results, r.Duration, r.WorkerCount)
}

// PrintStats prints processing statistics.
func (r *Result) PrintStats(w io.Writer) {
	stats := r.Stats()
	_, _ = fmt.Fprintf(w, "\nProcessing Statistics:\n")
	_, _ = fmt.Fprintf(w, "  Total images: %d\n", stats.TotalImages)
	_, _ = fmt.Fprintf(w, "  Processed: %d\n", stats.ProcessedImages)
	_, _ = fmt.Fprintf(w, "  Failed: %d\n", stats.FailedImages)
	_, _ = fmt.Fprintf(w, "  Detections: %d\n", stats.Detections)
	_, _ = fmt.Fprintf(w, "  Workers: %d\n", stats.WorkerCount)
	_, _ = fmt.Fprintf(w, "  Duration: %v\n", stats.TotalDuration.Round(time.Millisecond))
	_, _ = fmt.Fprintf(w, "  Avg per image: %v\n", stats.AveragePerImage.Round(time.Millisecond))
	_, _ = fmt.Fprintf(w, "  Throughput: %.1f images/sec\n", stats.ThroughputPerSec)
}
