package cmd

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/qrscan/internal/batch"
	"github.com/MeKo-Tech/qrscan/internal/media"
	"github.com/MeKo-Tech/qrscan/internal/scan"
	"github.com/MeKo-Tech/qrscan/internal/utils"
)

// imageCmd represents the image command.
var imageCmd = &cobra.Command{
	Use:   "image [files or URLs...]",
	Short: "Scan still images for QR codes and barcodes",
	Long: `Scan one or more still images. Inputs may be local files, http(s) URLs,
or "-" to read an image from standard input.

Transparent images are flattened onto white before scanning.

Examples:
  qrscan image code.png
  qrscan image https://example.org/ticket.png --format json
  cat shot.png | qrscan image -
  qrscan image *.png --overlay-dir overlays/`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImage,
}

func runImage(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	format := cfg.Output.Format
	if cmd.Flags().Changed("format") {
		format, _ = cmd.Flags().GetString("format")
	}
	outputFile := cfg.Output.File
	if cmd.Flags().Changed("output") {
		outputFile, _ = cmd.Flags().GetString("output")
	}
	overlayDir := cfg.Output.OverlayDir
	if cmd.Flags().Changed("overlay-dir") {
		overlayDir, _ = cmd.Flags().GetString("overlay-dir")
	}
	noHistory, _ := cmd.Flags().GetBool("no-history")

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()
	if noHistory {
		a.history = nil
	}

	runner, err := a.runner(ctx)
	if err != nil {
		return err
	}
	defer runner.Close()

	stop := runner.Notifier().Subscribe(func(n scan.Notice) {
		if n.Message != scan.DefaultMessage {
			_, _ = fmt.Fprintln(cmd.ErrOrStderr(), n.Message)
		}
	})
	defer stop()

	fetcher := media.NewFetcher(time.Duration(cfg.Media.FetchTimeoutSec) * time.Second)
	maxBytes := int64(cfg.Media.MaxImageMB) << 20
	fetcher.MaxBytes = maxBytes

	results := make([]batch.FileResult, 0, len(args))
	var failed int
	for _, in := range args {
		res := batch.FileResult{File: in}
		img, err := loadInput(ctx, cmd, fetcher, in, maxBytes)
		if err != nil {
			failed++
			res.Error = err.Error()
			var ae *media.AcquisitionError
			if errors.As(err, &ae) && ae.Message != "" {
				runner.Notifier().Notify(ae.Message, true)
			}
			results = append(results, res)
			continue
		}

		var rep scan.Report
		if overlayDir != "" {
			rep, err = runner.ScanImageOverlay(ctx, img)
		} else {
			rep, err = runner.ScanImage(ctx, img)
		}
		res.Detections = rep.Detections
		if err != nil {
			failed++
			res.Error = err.Error()
		}
		if rep.Overlay != nil {
			if err := saveOverlay(overlayDir, in, rep.Overlay); err != nil {
				return err
			}
		}
		results = append(results, res)
	}

	out, err := batch.Format(results, format)
	if err != nil {
		return err
	}
	if err := writeOutput(cmd, out, outputFile); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d inputs failed", failed, len(args))
	}
	return nil
}

func loadInput(ctx context.Context, cmd *cobra.Command, fetcher *media.Fetcher, in string, maxBytes int64) (image.Image, error) {
	switch {
	case in == "-":
		return media.Decode(cmd.InOrStdin(), maxBytes)
	case strings.HasPrefix(in, "http://"), strings.HasPrefix(in, "https://"):
		return fetcher.Fetch(ctx, in)
	default:
		return media.LoadFile(in)
	}
}

func saveOverlay(dir, input string, img image.Image) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create overlay dir: %w", err)
	}
	base := "stdin"
	if input != "-" {
		base = strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	}
	return utils.SaveImage(filepath.Join(dir, base+"_overlay.png"), img)
}

func writeOutput(cmd *cobra.Command, out, outputFile string) error {
	if outputFile == "" {
		_, err := fmt.Fprint(cmd.OutOrStdout(), out)
		return err
	}
	if err := os.WriteFile(outputFile, []byte(out), 0o600); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(imageCmd)
	imageCmd.Flags().StringP("format", "f", "text", "output format (text, json, yaml, csv)")
	imageCmd.Flags().StringP("output", "o", "", "output file (default: stdout)")
	imageCmd.Flags().String("overlay-dir", "", "write annotated images to this directory")
	imageCmd.Flags().Bool("no-history", false, "do not record detections in the history")
}
