package server

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/qrscan/internal/dedup"
	"github.com/MeKo-Tech/qrscan/internal/detect"
	"github.com/MeKo-Tech/qrscan/internal/history"
	"github.com/MeKo-Tech/qrscan/internal/prefs"
	"github.com/MeKo-Tech/qrscan/internal/scan"
	"github.com/MeKo-Tech/qrscan/internal/testutil"
	"github.com/MeKo-Tech/qrscan/internal/utils"
)

func newTestServer(t *testing.T, cfg Config) (*Server, *history.Store) {
	t.Helper()
	h := history.New(prefs.NewMemory(), history.DefaultOptions())
	factory := func(opts scan.Options) scan.Factory {
		return func() (*scan.Runner, error) {
			s := detect.NewScanner(context.Background(), detect.ScannerConfig{Loader: detect.ZXingLoader(0)})
			return scan.NewRunner(s, h, scan.NewNotifier(scan.DefaultRevert), opts), nil
		}
	}
	pool, err := scan.NewPool(1, factory(scan.DefaultOptions()))
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	streamOpts := scan.DefaultOptions()
	streamOpts.Dedup = dedup.PerSession
	cfg.OverlayEnabled = true
	s := NewServer(cfg, Deps{Pool: pool, History: h, Sessions: factory(streamOpts)})
	t.Cleanup(func() { _ = s.Close() })
	return s, h
}

func qrPNG(t *testing.T, content string) []byte {
	t.Helper()
	data, err := utils.EncodePNG(testutil.QRImage(t, content))
	require.NoError(t, err)
	return data
}

func createMultipartFormRequest(t *testing.T, url, field, filename string, data []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, url, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}
