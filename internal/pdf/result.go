package pdf

import "github.com/MeKo-Tech/qrscan/internal/detect"

// DocumentResult holds the detections of every scanned image in a PDF.
type DocumentResult struct {
	Filename   string         `json:"filename"`
	TotalPages int            `json:"total_pages"`
	Pages      []PageResult   `json:"pages"`
	Processing ProcessingInfo `json:"processing"`
}

// PageResult groups the images of one page.
type PageResult struct {
	PageNumber int           `json:"page_number"`
	Images     []ImageResult `json:"images"`
}

// ImageResult is the scan outcome of one embedded image.
type ImageResult struct {
	ImageIndex int                `json:"image_index"`
	Width      int                `json:"width"`
	Height     int                `json:"height"`
	Detections []detect.Detection `json:"detections"`
	Error      string             `json:"error,omitempty"`
}

// ProcessingInfo contains timing information.
type ProcessingInfo struct {
	ExtractionTimeMs int64 `json:"extraction_time_ms"`
	ScanTimeMs       int64 `json:"scan_time_ms"`
	TotalTimeMs      int64 `json:"total_time_ms"`
}

// Detections returns every detection in page order.
func (d *DocumentResult) Detections() []detect.Detection {
	var out []detect.Detection
	for _, p := range d.Pages {
		for _, img := range p.Images {
			out = append(out, img.Detections...)
		}
	}
	return out
}
