package media

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"net/http"
	"time"

	"github.com/MeKo-Tech/qrscan/internal/utils"
)

// DefaultMaxBytes caps downloaded and piped images.
const DefaultMaxBytes = 32 << 20

// Flatten composites img onto white so transparent symbols keep their
// contrast after luma conversion.
func Flatten(img image.Image) image.Image {
	return utils.FlattenOnto(img, color.White)
}

// LoadFile reads an image file and flattens it.
func LoadFile(path string) (image.Image, error) {
	img, _, err := utils.LoadImage(path)
	if err != nil {
		return nil, acquisition(path, err)
	}
	return Flatten(img), nil
}

// Decode reads at most maxBytes from r and flattens the decoded image.
func Decode(r io.Reader, maxBytes int64) (image.Image, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	lr := &io.LimitedReader{R: r, N: maxBytes + 1}
	img, _, err := utils.DecodeImage(lr)
	if lr.N <= 0 {
		return nil, acquisition("input", fmt.Errorf("image exceeds %d bytes", maxBytes))
	}
	if err != nil {
		return nil, acquisition("input", err)
	}
	return Flatten(img), nil
}

// Fetcher downloads images over HTTP.
type Fetcher struct {
	Client   *http.Client
	MaxBytes int64
}

// NewFetcher returns a fetcher with the given request timeout.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Fetcher{Client: &http.Client{Timeout: timeout}, MaxBytes: DefaultMaxBytes}
}

// Fetch downloads and decodes the image at url. Failures carry the
// LoadFailedMessage status text.
func (f *Fetcher) Fetch(ctx context.Context, url string) (image.Image, error) {
	fail := func(err error) error {
		return &AcquisitionError{Source: url, Message: LoadFailedMessage, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fail(err)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fail(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fail(fmt.Errorf("unexpected status %s", resp.Status))
	}
	img, err := Decode(resp.Body, f.MaxBytes)
	if err != nil {
		var ae *AcquisitionError
		if errors.As(err, &ae) {
			err = ae.Err
		}
		return nil, fail(err)
	}
	return img, nil
}
