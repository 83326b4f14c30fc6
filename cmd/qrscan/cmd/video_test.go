package cmd

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/qrscan/internal/testutil"
)

func TestVideoFrameDirectoryStopsOnDetect(t *testing.T) {
	dir := isolate(t)
	frames := filepath.Join(dir, "frames")
	require.NoError(t, os.MkdirAll(frames, 0o750))
	testutil.SaveImage(t, testutil.Blank(200, 200, color.White), filepath.Join(frames, "000.png"))
	testutil.WriteQR(t, frames, "001.png", "from video")

	out, stderr, err := execute(t, "video", frames, "--interval", "10ms", "--timeout", "20s")
	require.NoError(t, err)
	assert.Equal(t, "Type: QR Code\nfrom video\n", out)
	assert.Contains(t, stderr, "Preparing...")

	out, _, err = execute(t, "prefs", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "camera: "+frames+"\n")
}

func TestVideoWithoutDevice(t *testing.T) {
	isolate(t)
	_, stderr, err := execute(t, "video")
	require.Error(t, err)
	assert.Contains(t, stderr, "Requested device not found")
}

func TestVideoListEmpty(t *testing.T) {
	isolate(t)
	out, _, err := execute(t, "video", "--list")
	require.NoError(t, err)
	assert.Empty(t, out)
}
