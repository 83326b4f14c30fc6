package server

import (
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/MeKo-Tech/qrscan/internal/pdf"
)

// scanPDFHandler scans the images embedded in an uploaded PDF ("pdf" form
// field). Optional fields: pages, password, owner_password.
func (s *Server) scanPDFHandler(w http.ResponseWriter, r *http.Request) {
	if s.pdf == nil {
		s.writeErrorResponse(w, "PDF scanning is not available", http.StatusServiceUnavailable)
		return
	}
	maxBytes := s.maxUploadMB << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		s.writeErrorResponse(w, "Invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("pdf")
	if err != nil {
		s.writeErrorResponse(w, "Missing pdf file", http.StatusBadRequest)
		return
	}
	defer func() { _ = file.Close() }()
	uploadSizeBytes.Observe(float64(header.Size))

	tmp, err := os.CreateTemp("", "qrscan-*.pdf")
	if err != nil {
		s.writeErrorResponse(w, "Failed to store upload", http.StatusInternalServerError)
		return
	}
	defer func() {
		_ = tmp.Close()
		if err := os.Remove(tmp.Name()); err != nil {
			slog.Warn("Failed to remove temp file", "file", tmp.Name(), "error", err)
		}
	}()
	if _, err := io.Copy(tmp, file); err != nil {
		s.writeErrorResponse(w, "Failed to store upload", http.StatusInternalServerError)
		return
	}

	var creds *pdf.Credentials
	if pw, owner := r.FormValue("password"), r.FormValue("owner_password"); pw != "" || owner != "" {
		creds = &pdf.Credentials{UserPassword: pw, OwnerPassword: owner}
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()
	start := time.Now()
	res, err := s.pdf.ProcessFile(ctx, tmp.Name(), r.FormValue("pages"), creds)
	if err != nil {
		scanFinished("pdf", start, nil, err)
		status := http.StatusUnprocessableEntity
		if pdf.IsPasswordError(err) {
			status = http.StatusUnauthorized
		}
		s.writeErrorResponse(w, "PDF scan failed: "+err.Error(), status)
		return
	}
	scanFinished("pdf", start, res.Detections(), nil)
	res.Filename = header.Filename
	s.writeJSON(w, http.StatusOK, res)
}
