package engine

import (
	"context"
	"image"
	"image/draw"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/qrscan/internal/barcode"
)

func grayOf(t *testing.T, img image.Image) *image.Gray {
	t.Helper()
	g := image.NewGray(img.Bounds())
	draw.Draw(g, g.Bounds(), img, img.Bounds().Min, draw.Src)
	return g
}

func newTestEngine(opts ...ZXingOption) (*ZXing, *Heap) {
	heap := NewHeap(64*1024, 0)
	opts = append([]ZXingOption{WithClock(func() time.Time { return time.UnixMilli(1234) })}, opts...)
	return NewZXing(heap, barcode.NewBackend(), opts...), heap
}

func scanGray(t *testing.T, z *ZXing, g *image.Gray) (img uint32, set uint32, n int) {
	t.Helper()
	w, h := g.Bounds().Dx(), g.Bounds().Dy()
	buf, err := z.Malloc(w * h)
	require.NoError(t, err)
	copy(z.Memory()[buf:], g.Pix)

	scanner, err := z.ImageScannerCreate()
	require.NoError(t, err)
	img, err = z.ImageCreate(w, h, FourCCY800, buf, w*h, 1)
	require.NoError(t, err)
	n, err = z.ImageScannerScan(context.Background(), scanner, img)
	require.NoError(t, err)
	set, err = z.ImageGetSymbols(img)
	require.NoError(t, err)
	return img, set, n
}

func TestZXing_ScanQR(t *testing.T) {
	z, _ := newTestEngine()
	code, err := barcode.Encode(barcode.FormatQR, "engine-qr", 160, 160, 4)
	require.NoError(t, err)

	_, set, n := scanGray(t, z, grayOf(t, code))
	require.Equal(t, 1, n)
	require.NotZero(t, set)

	var syms []Symbol
	require.NoError(t, WalkSymbols(z.Memory(), set, func(s Symbol) error {
		syms = append(syms, s)
		return nil
	}))
	require.Len(t, syms, 1)
	s := syms[0]
	assert.Equal(t, TypeQRCode, s.Type)
	assert.Equal(t, "engine-qr", string(s.Data))
	assert.Equal(t, uint32(1234), s.Time)
	assert.Equal(t, int32(1), s.Quality)
	require.Len(t, s.Points, 4)
	// Matrix symbols start at the top-left corner.
	for _, p := range s.Points[1:] {
		assert.LessOrEqual(t, s.Points[0].X, p.X)
		assert.LessOrEqual(t, s.Points[0].Y, p.Y)
	}
}

func TestZXing_LinearPointsStartAtTrailingEdge(t *testing.T) {
	z, _ := newTestEngine(WithDecodeOptions(barcode.Options{TryHarder: true}))
	code, err := barcode.Encode(barcode.FormatEAN13, "4006381333931", 300, 100, 10)
	require.NoError(t, err)

	_, set, n := scanGray(t, z, grayOf(t, code))
	require.GreaterOrEqual(t, n, 1)

	head, err := SymbolSetHead(z.Memory(), set)
	require.NoError(t, err)
	s, err := ReadSymbol(z.Memory(), head)
	require.NoError(t, err)
	assert.Equal(t, TypeEAN13, s.Type)
	require.Len(t, s.Points, 4)
	assert.Greater(t, s.Points[0].X, s.Points[1].X)
}

func TestZXing_ISBN(t *testing.T) {
	z, _ := newTestEngine(WithISBN(true), WithDecodeOptions(barcode.Options{TryHarder: true}))
	code, err := barcode.Encode(barcode.FormatEAN13, "9780201379624", 300, 100, 10)
	require.NoError(t, err)

	_, set, n := scanGray(t, z, grayOf(t, code))
	require.GreaterOrEqual(t, n, 1)
	head, err := SymbolSetHead(z.Memory(), set)
	require.NoError(t, err)
	s, err := ReadSymbol(z.Memory(), head)
	require.NoError(t, err)
	assert.Equal(t, TypeISBN13, s.Type)
}

func TestZXing_EmptyImage(t *testing.T) {
	z, heap := newTestEngine()
	img, set, n := scanGray(t, z, image.NewGray(image.Rect(0, 0, 40, 40)))
	assert.Zero(t, n)
	assert.Zero(t, set)

	require.NoError(t, z.ImageDestroy(img))
	// buffer + scanner remain
	assert.Equal(t, 2, heap.Live())
}

func TestZXing_DestroyReleasesSymbols(t *testing.T) {
	z, heap := newTestEngine()
	code, err := barcode.Encode(barcode.FormatQR, "release", 120, 120, 4)
	require.NoError(t, err)

	img, _, n := scanGray(t, z, grayOf(t, code))
	require.Equal(t, 1, n)
	require.NoError(t, z.ImageDestroy(img))
	assert.Equal(t, 2, heap.Live())

	assert.ErrorIs(t, z.ImageDestroy(img), ErrBadHandle)
	_, err = z.ImageGetSymbols(img)
	assert.ErrorIs(t, err, ErrBadHandle)
}

func TestZXing_CreateValidation(t *testing.T) {
	z, _ := newTestEngine()
	buf, err := z.Malloc(16)
	require.NoError(t, err)

	_, err = z.ImageCreate(4, 4, 0x32424752, buf, 16, 1)
	assert.ErrorIs(t, err, ErrBadFormat)

	_, err = z.ImageCreate(5, 4, FourCCY800, buf, 16, 1)
	assert.ErrorIs(t, err, ErrShortImage)

	_, err = z.ImageCreate(4, 4, FourCCY800, uint32(len(z.Memory())), 16, 1)
	assert.ErrorIs(t, err, ErrOutOfBounds)

	_, err = z.ImageScannerScan(context.Background(), 999, 0)
	assert.ErrorIs(t, err, ErrBadHandle)
}

type panicBackend struct{}

func (panicBackend) Decode(context.Context, image.Image, barcode.Options) ([]barcode.Result, error) {
	panic("boom")
}

func TestZXing_DecoderPanicBecomesError(t *testing.T) {
	z := NewZXing(NewHeap(4096, 0), panicBackend{})
	buf, err := z.Malloc(16)
	require.NoError(t, err)
	scanner, err := z.ImageScannerCreate()
	require.NoError(t, err)
	img, err := z.ImageCreate(4, 4, FourCCY800, buf, 16, 1)
	require.NoError(t, err)

	_, err = z.ImageScannerScan(context.Background(), scanner, img)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}
