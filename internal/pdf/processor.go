package pdf

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/MeKo-Tech/qrscan/internal/common"
	"github.com/MeKo-Tech/qrscan/internal/scan"
)

// Processor scans the images embedded in PDF files.
type Processor struct {
	pool *scan.Pool

	extract   func(filename, pageRange string, conf *model.Configuration) ([]PageImage, error)
	pageCount func(filename string, conf *model.Configuration) (int, error)
}

// NewProcessor scans with the Runners of pool.
func NewProcessor(pool *scan.Pool) *Processor {
	return &Processor{pool: pool, extract: ExtractImages, pageCount: PageCount}
}

// ProcessFile scans every image on the selected pages. pageRange is "" for
// all pages; creds may be nil.
func (p *Processor) ProcessFile(ctx context.Context, filename, pageRange string, creds *Credentials) (*DocumentResult, error) {
	timer := common.NewNamedTimer("pdf")
	conf := Configuration(creds)

	total, err := p.pageCount(filename, conf)
	if err != nil {
		if IsPasswordError(err) {
			return nil, fmt.Errorf("%s: %w: %w", filename, ErrPassword, err)
		}
		return nil, fmt.Errorf("%s: %w", filename, err)
	}

	images, err := p.extract(filename, pageRange, conf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	timer.Lap("extract")

	jobs := make([]scan.Job, len(images))
	for i, pi := range images {
		jobs[i] = scan.Job{Name: fmt.Sprintf("%s#p%d.%d", filename, pi.Page, pi.Index), Image: pi.Image}
	}

	doc := &DocumentResult{Filename: filename, TotalPages: total}
	if len(jobs) > 0 {
		results, err := p.pool.ScanParallel(ctx, jobs, scan.ParallelConfig{})
		if results == nil && err != nil {
			return nil, err
		}
		doc.Pages = groupPages(images, results)
	}
	timer.Lap("scan")

	doc.Processing = ProcessingInfo{
		ExtractionTimeMs: timer.Get("extract").Milliseconds(),
		ScanTimeMs:       timer.Get("scan").Milliseconds(),
		TotalTimeMs:      timer.Total().Milliseconds(),
	}
	slog.Debug("PDF scanned", append([]any{"file", filename, "pages", total, "images", len(images),
		"detections", len(doc.Detections())}, timer.LogAttrs()...)...)
	return doc, nil
}

func groupPages(images []PageImage, results []scan.JobResult) []PageResult {
	var pages []PageResult
	for i, pi := range images {
		if len(pages) == 0 || pages[len(pages)-1].PageNumber != pi.Page {
			pages = append(pages, PageResult{PageNumber: pi.Page})
		}
		b := pi.Image.Bounds()
		ir := ImageResult{ImageIndex: pi.Index, Width: b.Dx(), Height: b.Dy()}
		if r := results[i]; r.Err != nil {
			ir.Error = r.Err.Error()
		} else {
			ir.Detections = r.Report.Detections
		}
		pages[len(pages)-1].Images = append(pages[len(pages)-1].Images, ir)
	}
	return pages
}
