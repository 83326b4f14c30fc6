package testutil

import (
	"encoding/json"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/qrscan/internal/barcode"
)

// Fixture pairs an input image with the codes it should decode to.
type Fixture struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputFile   string         `json:"input_file"`
	Expected    []ExpectedCode `json:"expected"`
}

// ExpectedCode is one symbol a fixture image must yield.
type ExpectedCode struct {
	Symbol string `json:"symbol"`
	Data   string `json:"data"`
}

// LoadFixture reads testdata/fixtures/<name>.json.
func LoadFixture(t *testing.T, dir, name string) Fixture {
	t.Helper()

	data, err := os.ReadFile(filepath.Join(dir, name+".json")) //nolint:gosec // test fixture path
	require.NoError(t, err)

	var f Fixture
	require.NoError(t, json.Unmarshal(data, &f))
	return f
}

// SaveFixture writes f to dir/<f.Name>.json.
func SaveFixture(t *testing.T, dir string, f Fixture) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o750))

	data, err := json.MarshalIndent(f, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, f.Name+".json"), data, 0o600))
}

// CreateSampleFixtures generates the standard code images and their
// fixtures under root and returns them.
func CreateSampleFixtures(t *testing.T, root string) []Fixture {
	t.Helper()

	qr := QRImage(t, "https://example.org/qrscan")
	ean := EAN13Image(t, "4006381333931")
	pair := Place(560, 240, []image.Image{QRImage(t, "left"), QRImage(t, "right")},
		[]image.Point{{X: 10, Y: 20}, {X: 330, Y: 20}})

	items := []struct {
		fixture Fixture
		img     image.Image
	}{
		{Fixture{
			Name: "qr_url", Description: "Single QR code carrying a URL", InputFile: "codes/qr_url.png",
			Expected: []ExpectedCode{{Symbol: "QR Code", Data: "https://example.org/qrscan"}},
		}, qr},
		{Fixture{
			Name: "ean13", Description: "EAN-13 retail barcode", InputFile: "codes/ean13.png",
			Expected: []ExpectedCode{{Symbol: "EAN-13", Data: "4006381333931"}},
		}, ean},
		{Fixture{
			Name: "qr_pair", Description: "Two QR codes side by side", InputFile: "codes/qr_pair.png",
			Expected: []ExpectedCode{{Symbol: "QR Code", Data: "left"}, {Symbol: "QR Code", Data: "right"}},
		}, pair},
		{Fixture{
			Name: "qr_transparent", Description: "QR code on a transparent background", InputFile: "codes/qr_transparent.png",
			Expected: []ExpectedCode{{Symbol: "QR Code", Data: "https://example.org/qrscan"}},
		}, WithAlpha(qr)},
	}

	out := make([]Fixture, 0, len(items))
	for _, it := range items {
		SaveImage(t, it.img, filepath.Join(root, it.fixture.InputFile))
		SaveFixture(t, filepath.Join(root, "fixtures"), it.fixture)
		out = append(out, it.fixture)
	}
	return out
}

// Formats lists the symbologies the fixtures cover.
func Formats() []barcode.Format {
	return []barcode.Format{barcode.FormatQR, barcode.FormatEAN13}
}
