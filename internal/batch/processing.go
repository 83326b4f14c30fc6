package batch

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/qrscan/internal/media"
	"github.com/MeKo-Tech/qrscan/internal/scan"
	"github.com/MeKo-Tech/qrscan/internal/utils"
)

// loader returns the job loader for path.
func loader(path string, maxDimension int) func(context.Context) (image.Image, error) {
	return func(context.Context) (image.Image, error) {
		img, err := media.LoadFile(path)
		if err != nil {
			return nil, err
		}
		cons := utils.DefaultImageConstraints()
		if err := utils.ValidateImageConstraints(img, cons); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if maxDimension > 0 {
			cons.MaxWidth, cons.MaxHeight = maxDimension, maxDimension
			img = utils.FitImage(img, cons)
		}
		return img, nil
	}
}

func jobs(paths []string, maxDimension int) []scan.Job {
	out := make([]scan.Job, len(paths))
	for i, p := range paths {
		out[i] = scan.Job{Name: p, Load: loader(p, maxDimension)}
	}
	return out
}

// saveOverlays writes the annotated frame of every successful result to dir
// as <base>_overlay.png.
func saveOverlays(dir string, paths []string, results []scan.JobResult) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create overlay dir: %w", err)
	}
	for i, r := range results {
		if r.Err != nil || r.Report.Overlay == nil {
			continue
		}
		base := strings.TrimSuffix(filepath.Base(paths[i]), filepath.Ext(paths[i]))
		out := filepath.Join(dir, base+OverlaySuffix+".png")
		if err := utils.SaveImage(out, r.Report.Overlay); err != nil {
			return err
		}
		slog.Debug("Overlay saved", "file", out)
	}
	return nil
}
