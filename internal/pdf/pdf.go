// Package pdf extracts the embedded images of PDF pages so they can be
// scanned like still images.
package pdf

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/MeKo-Tech/qrscan/internal/media"
	"github.com/MeKo-Tech/qrscan/internal/utils"
)

// PageImage is one image embedded in a page.
type PageImage struct {
	Page  int
	Index int
	Image image.Image
}

// ExtractImages extracts the images of the selected pages, ordered by page
// and then by position within the page. conf may be nil.
func ExtractImages(filename, pageRange string, conf *model.Configuration) ([]PageImage, error) {
	pageNumbers, err := parsePageRange(pageRange)
	if err != nil {
		return nil, fmt.Errorf("invalid page range %q: %w", pageRange, err)
	}

	tempDir, err := os.MkdirTemp("", "qrscan-pdf-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(tempDir) }()

	var pageStrings []string
	for _, n := range pageNumbers {
		pageStrings = append(pageStrings, strconv.Itoa(n))
	}

	if err := api.ExtractImagesFile(filename, tempDir, pageStrings, conf); err != nil {
		return nil, fmt.Errorf("failed to extract images from PDF: %w", err)
	}
	return collectExtractedImages(tempDir)
}

// PageCount returns the number of pages in filename.
func PageCount(filename string, conf *model.Configuration) (int, error) {
	f, err := os.Open(filename) //nolint:gosec // G304: user-selected input
	if err != nil {
		return 0, err
	}
	defer func() { _ = f.Close() }()
	return api.PageCount(f, conf)
}

// collectExtractedImages loads the files pdfcpu wrote into dir. Names that do
// not follow the page_<n>_... pattern and undecodable files are skipped.
func collectExtractedImages(dir string) ([]PageImage, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	type named struct {
		page int
		name string
	}
	var files []named
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		page, err := parsePageFromFilename(e.Name())
		if err != nil {
			continue
		}
		files = append(files, named{page: page, name: e.Name()})
	}
	sort.Slice(files, func(i, j int) bool {
		if files[i].page != files[j].page {
			return files[i].page < files[j].page
		}
		return files[i].name < files[j].name
	})

	var out []PageImage
	perPage := map[int]int{}
	for _, f := range files {
		img, _, err := utils.LoadImage(filepath.Join(dir, f.name))
		if err != nil {
			continue
		}
		out = append(out, PageImage{Page: f.page, Index: perPage[f.page], Image: media.Flatten(img)})
		perPage[f.page]++
	}
	return out, nil
}

// parsePageFromFilename extracts the page number from names like
// page_3_image_1.png or <base>_3_Im0.png.
func parsePageFromFilename(filename string) (int, error) {
	stem := strings.TrimSuffix(filename, filepath.Ext(filename))
	parts := strings.Split(stem, "_")
	if len(parts) < 2 {
		return 0, errors.New("invalid filename format")
	}
	if parts[0] == "page" {
		n, err := strconv.Atoi(parts[1])
		if err != nil || n <= 0 {
			return 0, errors.New("invalid page number")
		}
		return n, nil
	}
	// pdfcpu names extracted images <file>_<page>_<object>.
	for i := len(parts) - 2; i >= 1; i-- {
		if n, err := strconv.Atoi(parts[i]); err == nil && n > 0 {
			return n, nil
		}
	}
	return 0, errors.New("not a page file")
}

// parsePageRange parses selections like "1-5" or "1,3,5-7". The result is
// sorted and free of duplicates. An empty selection means every page.
func parsePageRange(sel string) ([]int, error) {
	if strings.TrimSpace(sel) == "" {
		return nil, nil
	}
	var pages []int
	for _, tok := range strings.Split(sel, ",") {
		lo, hi, isRange := strings.Cut(strings.TrimSpace(tok), "-")
		first, err := pageNumber(lo)
		if err != nil {
			return nil, err
		}
		last := first
		if isRange {
			if last, err = pageNumber(hi); err != nil {
				return nil, err
			}
			if first > last {
				return nil, fmt.Errorf("start page %d greater than end page %d", first, last)
			}
		}
		for p := first; p <= last; p++ {
			pages = append(pages, p)
		}
	}
	slices.Sort(pages)
	return slices.Compact(pages), nil
}

func pageNumber(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid page number %q", s)
	}
	return n, nil
}
