package cmd

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateThenScan(t *testing.T) {
	tests := []struct {
		name      string
		symbology string
		content   string
		symbol    string
	}{
		{"qr", "qr", "https://example.org", "QR Code"},
		{"ean13", "ean13", "4006381333931", "EAN-13"},
		{"code128", "code128", "QRSCAN-128", "Code 128"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := isolate(t)
			file := filepath.Join(dir, tt.name+".png")

			out, _, err := execute(t, "generate", tt.content, "--symbology", tt.symbology, "-o", file, "--width", "400")
			require.NoError(t, err)
			assert.Contains(t, out, "Wrote "+file)
			assert.FileExists(t, file)

			out, _, err = execute(t, "image", file, "--no-history")
			require.NoError(t, err)
			assert.Contains(t, out, "Type: "+tt.symbol+"\n"+tt.content+"\n")
		})
	}
}

func TestGenerateUnknownSymbology(t *testing.T) {
	dir := isolate(t)
	_, _, err := execute(t, "generate", "x", "--symbology", "morse", "-o", filepath.Join(dir, "x.png"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown symbology")
}
