package batch

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/MeKo-Tech/qrscan/internal/utils"
)

// OverlaySuffix marks annotated images written by a previous run. They are
// never picked up from a directory walk.
const OverlaySuffix = "_overlay"

// Discovery expands command line inputs into image files.
type Discovery struct {
	Recursive bool
	// Include keeps only base names matching one of these globs. Empty
	// keeps everything.
	Include []string
	// Exclude drops base names matching one of these globs.
	Exclude []string
}

// Find returns the sorted, de-duplicated image files named by args.
// Directories contribute their supported images; files named explicitly
// are kept whatever their extension, so the decoder can report them.
func (d Discovery) Find(args []string) ([]string, error) {
	var out []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", arg, err)
		}
		if !info.IsDir() {
			if d.keep(arg) {
				out = append(out, arg)
			}
			continue
		}
		files, err := d.walk(arg)
		if err != nil {
			return nil, err
		}
		out = append(out, files...)
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

func (d Discovery) walk(root string) ([]string, error) {
	var files []string
	var skipped int
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			if path != root && !d.Recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if !utils.IsSupportedImage(path) || isOverlay(path) || !d.keep(path) {
			skipped++
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	slog.Debug("Discovered images", "dir", root, "images", len(files), "skipped", skipped)
	return files, nil
}

func (d Discovery) keep(path string) bool {
	base := filepath.Base(path)
	if matchAny(base, d.Exclude) {
		return false
	}
	return len(d.Include) == 0 || matchAny(base, d.Include)
}

func isOverlay(path string) bool {
	base := filepath.Base(path)
	return strings.HasSuffix(strings.TrimSuffix(base, filepath.Ext(base)), OverlaySuffix)
}

func matchAny(base string, patterns []string) bool {
	for _, p := range patterns {
		if ok, _ := filepath.Match(p, base); ok {
			return true
		}
	}
	return false
}
