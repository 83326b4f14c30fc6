package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/MeKo-Tech/qrscan/internal/batch"
	"github.com/MeKo-Tech/qrscan/internal/detect"
	"github.com/MeKo-Tech/qrscan/internal/media"
	"github.com/MeKo-Tech/qrscan/internal/scan"
	"github.com/MeKo-Tech/qrscan/internal/utils"
)

const formatJSON = "json"

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:  "healthy",
		Version: versionString(),
		Time:    time.Now().Format(time.RFC3339),
	}
	if s.pool != nil {
		resp.Workers = s.pool.Size()
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// scanImageHandler scans an uploaded image ("image" form field).
func (s *Server) scanImageHandler(w http.ResponseWriter, r *http.Request) {
	maxBytes := s.maxUploadMB << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		s.writeErrorResponse(w, "Invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		s.writeErrorResponse(w, "Missing image file", http.StatusBadRequest)
		return
	}
	defer func() { _ = file.Close() }()
	uploadSizeBytes.Observe(float64(header.Size))

	img, err := media.Decode(file, maxBytes)
	if err != nil {
		scanFailed("image")
		s.writeErrorResponse(w, "Failed to decode image: "+err.Error(), http.StatusBadRequest)
		return
	}
	s.scanAndRespond(w, r, "image", img, s.wantOverlay(r.FormValue("overlay")))
}

// scanURLHandler downloads and scans the image at the posted URL.
func (s *Server) scanURLHandler(w http.ResponseWriter, r *http.Request) {
	var req URLRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		s.writeErrorResponse(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.URL == "" {
		s.writeErrorResponse(w, "Missing url", http.StatusBadRequest)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()
	img, err := s.fetcher.Fetch(ctx, req.URL)
	if err != nil {
		scanFailed("url")
		var ae *media.AcquisitionError
		if errors.As(err, &ae) {
			slog.Warn("Image fetch failed", "url", req.URL, "error", ae.Err)
			s.writeErrorResponse(w, ae.Message, http.StatusBadGateway)
			return
		}
		s.writeErrorResponse(w, err.Error(), http.StatusBadGateway)
		return
	}
	s.scanAndRespond(w, r, "url", img, s.wantOverlay(r.URL.Query().Get("overlay")) || (req.Overlay && s.overlayEnabled))
}

func (s *Server) wantOverlay(v string) bool {
	ok, _ := strconv.ParseBool(v)
	return ok && s.overlayEnabled
}

func (s *Server) scanAndRespond(w http.ResponseWriter, r *http.Request, kind string, img image.Image, overlay bool) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	start := time.Now()
	var rep scan.Report
	err := s.pool.Do(ctx, func(run *scan.Runner) error {
		var err error
		if overlay {
			rep, err = run.ScanImageOverlay(ctx, img)
		} else {
			rep, err = run.ScanImage(ctx, img)
		}
		return err
	})
	scanFinished(kind, start, rep.Detections, err)
	if err != nil {
		s.writeErrorResponse(w, "Scan failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	format := r.URL.Query().Get("format")
	if format != "" && format != formatJSON {
		out, err := batch.Format([]batch.FileResult{{File: kind, Detections: rep.Detections}}, format)
		if err != nil {
			s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", contentType(format))
		_, _ = w.Write([]byte(out))
		return
	}

	b := img.Bounds()
	res := &ScanResult{Count: rep.Count, Detections: rep.Detections, Width: b.Dx(), Height: b.Dy()}
	if res.Detections == nil {
		res.Detections = []detect.Detection{}
	}
	res.Processing.TotalTimeMs = time.Since(start).Milliseconds()
	if rep.Overlay != nil {
		png, err := utils.EncodePNG(rep.Overlay)
		if err != nil {
			slog.Error("Failed to encode overlay", "error", err)
		} else {
			res.Overlay = base64.StdEncoding.EncodeToString(png)
		}
	}
	s.writeJSON(w, http.StatusOK, ScanResponse{Success: true, Result: res})
}

func contentType(format string) string {
	switch format {
	case "csv":
		return "text/csv; charset=utf-8"
	case "yaml":
		return "application/yaml"
	default:
		return "text/plain; charset=utf-8"
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func (s *Server) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	s.writeJSON(w, statusCode, ScanResponse{Success: false, Error: message})
}
