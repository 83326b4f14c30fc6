package barcode

import (
	"context"
	"image"
	"image/draw"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"qr_code", FormatQR},
		{"QR", FormatQR},
		{"ean-13", FormatEAN13},
		{"ean13", FormatEAN13},
		{"code_128", FormatCode128},
		{"Interleaved 2 of 5", FormatITF},
		{"datamatrix", FormatDataMatrix},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseFormat("maxicode")
	assert.Error(t, err)
}

func TestFormatMatrix(t *testing.T) {
	assert.True(t, FormatQR.Matrix())
	assert.True(t, FormatDataMatrix.Matrix())
	assert.False(t, FormatEAN13.Matrix())
	assert.Equal(t, "unknown", FormatUnknown.String())
}

func TestRectFromPoints(t *testing.T) {
	assert.True(t, rectFromPoints(nil).Empty())
	r := rectFromPoints([]Point{{X: 10, Y: 20}, {X: 4, Y: 30}, {X: 12, Y: 25}})
	assert.Equal(t, image.Rect(4, 20, 13, 31), r)
}

func TestDecode_QR(t *testing.T) {
	img, err := Encode(FormatQR, "https://example.com/qr", 200, 200, 4)
	require.NoError(t, err)

	results, err := NewBackend().Decode(context.Background(), img, Options{Formats: []Format{FormatQR}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, FormatQR, results[0].Type)
	assert.Equal(t, "https://example.com/qr", results[0].Value)
	assert.NotEmpty(t, results[0].Points)
	assert.False(t, results[0].BBox.Empty())
}

func TestDecode_EAN13(t *testing.T) {
	img, err := Encode(FormatEAN13, "5901234123457", 300, 120, 10)
	require.NoError(t, err)

	results, err := NewBackend().Decode(context.Background(), img, Options{TryHarder: true})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, FormatEAN13, results[0].Type)
	assert.Equal(t, "5901234123457", results[0].Value)
}

func TestDecode_ROIOffsetsPoints(t *testing.T) {
	code, err := Encode(FormatQR, "offset", 120, 120, 2)
	require.NoError(t, err)

	canvas := image.NewRGBA(image.Rect(0, 0, 400, 300))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)
	at := image.Rect(250, 150, 370, 270)
	draw.Draw(canvas, at, code, image.Point{}, draw.Src)

	results, err := NewBackend().Decode(context.Background(), canvas, Options{
		Formats: []Format{FormatQR},
		ROI:     image.Rect(200, 100, 400, 300),
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	for _, p := range results[0].Points {
		assert.True(t, image.Pt(p.X, p.Y).In(at), "point %v outside %v", p, at)
	}
}

func TestDecode_BlankImage(t *testing.T) {
	blank := image.NewGray(image.Rect(0, 0, 64, 64))
	results, err := NewBackend().Decode(context.Background(), blank, Options{})
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = NewBackend().Decode(context.Background(), image.NewGray(image.Rectangle{}), Options{})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestDecode_CanceledContext(t *testing.T) {
	img, err := Encode(FormatQR, "x", 100, 100, 2)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewBackend().Decode(ctx, img, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHostDetector(t *testing.T) {
	d := NewHostDetector([]Format{FormatQR, FormatEAN13}, false)
	names, err := d.SupportedFormats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"ean_13", "qr_code"}, names)

	img, err := Encode(FormatQR, "host", 160, 160, 4)
	require.NoError(t, err)
	found, err := d.Detect(context.Background(), img)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "qr_code", found[0].Format)
	assert.Equal(t, "host", found[0].RawValue)
	require.Len(t, found[0].CornerPoints, 4)
	assert.Equal(t, found[0].BoundingBox.Min.X, found[0].CornerPoints[0].X)
}
