// Package media acquires still images and frame sequences for scanning.
package media

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupported = errors.New("unsupported media source")
	ErrClosed      = errors.New("media source closed")
	ErrNoFrames    = errors.New("media source has no frames")
	ErrNoDevice    = errors.New("no video input available")
)

// LoadFailedMessage is shown when an image cannot be fetched from a URL.
const LoadFailedMessage = "Loading failed. Use right-click context menu over the toolbar button to allow cross-origin access"

// AcquisitionError reports that a media source could not be opened. Message
// is suitable for a status line.
type AcquisitionError struct {
	Source  string
	Message string
	Err     error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("acquire %s: %v", e.Source, e.Err)
}

func (e *AcquisitionError) Unwrap() error { return e.Err }

func acquisition(source string, err error) error {
	return &AcquisitionError{Source: source, Message: err.Error(), Err: err}
}
