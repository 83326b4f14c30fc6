package engine

import (
	"context"
	"fmt"
	"image"
	"strings"
	"sync"
	"time"

	"github.com/MeKo-Tech/qrscan/internal/barcode"
)

// Symbology codes written to the type word of symbol records.
const (
	TypeNone       uint32 = 0
	TypeEAN8       uint32 = 8
	TypeUPCE       uint32 = 9
	TypeISBN10     uint32 = 10
	TypeUPCA       uint32 = 12
	TypeEAN13      uint32 = 13
	TypeISBN13     uint32 = 14
	TypeI25        uint32 = 25
	TypeCodabar    uint32 = 38
	TypeCode39     uint32 = 39
	TypePDF417     uint32 = 57
	TypeQRCode     uint32 = 64
	TypeCode93     uint32 = 93
	TypeCode128    uint32 = 128
	TypeDataMatrix uint32 = 200
)

// TypeCode returns the symbology code for a decoder format.
func TypeCode(f barcode.Format) uint32 {
	switch f {
	case barcode.FormatEAN8:
		return TypeEAN8
	case barcode.FormatUPCE:
		return TypeUPCE
	case barcode.FormatUPCA:
		return TypeUPCA
	case barcode.FormatEAN13:
		return TypeEAN13
	case barcode.FormatITF:
		return TypeI25
	case barcode.FormatCodabar:
		return TypeCodabar
	case barcode.FormatCode39:
		return TypeCode39
	case barcode.FormatPDF417:
		return TypePDF417
	case barcode.FormatQR:
		return TypeQRCode
	case barcode.FormatCode93:
		return TypeCode93
	case barcode.FormatCode128:
		return TypeCode128
	case barcode.FormatDataMatrix:
		return TypeDataMatrix
	default:
		return TypeNone
	}
}

const (
	scannerRecordSize = 16
	imageRecordSize   = 32
)

type imageRecord struct {
	width, height int
	data          uint32
	length        int
	set           uint32
	owned         []uint32 // symbol set, records, data and point arrays of the last scan
}

// ZXing implements Engine in Go, decoding with the gozxing backend.
type ZXing struct {
	heap    *Heap
	backend barcode.Backend
	opts    barcode.Options
	isbn    bool
	now     func() time.Time

	mu       sync.Mutex
	scanners map[uint32]struct{}
	images   map[uint32]*imageRecord
}

// ZXingOption configures a ZXing engine.
type ZXingOption func(*ZXing)

// WithDecodeOptions sets the backend options used by every scan.
func WithDecodeOptions(o barcode.Options) ZXingOption {
	return func(z *ZXing) { z.opts = o }
}

// WithISBN reports EAN-13 symbols in the 978/979 range as ISBN-13.
func WithISBN(enabled bool) ZXingOption {
	return func(z *ZXing) { z.isbn = enabled }
}

// WithClock overrides the time source used for symbol timestamps.
func WithClock(now func() time.Time) ZXingOption {
	return func(z *ZXing) { z.now = now }
}

// NewZXing creates an engine on heap.
func NewZXing(heap *Heap, backend barcode.Backend, opts ...ZXingOption) *ZXing {
	z := &ZXing{
		heap:     heap,
		backend:  backend,
		opts:     barcode.Options{Multi: true},
		now:      time.Now,
		scanners: make(map[uint32]struct{}),
		images:   make(map[uint32]*imageRecord),
	}
	for _, o := range opts {
		o(z)
	}
	return z
}

func (z *ZXing) Malloc(size int) (uint32, error) { return z.heap.Alloc(size) }

func (z *ZXing) Free(ptr uint32) error { return z.heap.Free(ptr) }

func (z *ZXing) Memory() []byte { return z.heap.Bytes() }

func (z *ZXing) ImageScannerCreate() (uint32, error) {
	p, err := z.heap.Alloc(scannerRecordSize)
	if err != nil {
		return 0, err
	}
	z.mu.Lock()
	z.scanners[p] = struct{}{}
	z.mu.Unlock()
	return p, nil
}

func (z *ZXing) ImageCreate(width, height int, format, data uint32, length, sequence int) (uint32, error) {
	if format != FourCCY800 {
		return 0, fmt.Errorf("fourcc 0x%08x: %w", format, ErrBadFormat)
	}
	if width < 0 || height < 0 || length < width*height {
		return 0, fmt.Errorf("%dx%d image with %d bytes: %w", width, height, length, ErrShortImage)
	}
	if uint64(data)+uint64(length) > uint64(len(z.heap.Bytes())) {
		return 0, fmt.Errorf("image data 0x%x+%d: %w", data, length, ErrOutOfBounds)
	}

	p, err := z.heap.Alloc(imageRecordSize)
	if err != nil {
		return 0, err
	}
	for i, v := range []uint32{format, uint32(width), uint32(height), data, uint32(length), uint32(sequence)} {
		if err := z.heap.PutWord(p+uint32(i*4), v); err != nil {
			_ = z.heap.Free(p)
			return 0, err
		}
	}

	z.mu.Lock()
	z.images[p] = &imageRecord{width: width, height: height, data: data, length: length}
	z.mu.Unlock()
	return p, nil
}

func (z *ZXing) ImageDestroy(img uint32) error {
	z.mu.Lock()
	rec, ok := z.images[img]
	delete(z.images, img)
	z.mu.Unlock()
	if !ok {
		return fmt.Errorf("image 0x%x: %w", img, ErrBadHandle)
	}
	z.release(rec)
	return z.heap.Free(img)
}

func (z *ZXing) ImageGetSymbols(img uint32) (uint32, error) {
	z.mu.Lock()
	defer z.mu.Unlock()
	rec, ok := z.images[img]
	if !ok {
		return 0, fmt.Errorf("image 0x%x: %w", img, ErrBadHandle)
	}
	return rec.set, nil
}

func (z *ZXing) ImageScannerScan(ctx context.Context, scanner, img uint32) (int, error) {
	z.mu.Lock()
	defer z.mu.Unlock()

	if _, ok := z.scanners[scanner]; !ok {
		return 0, fmt.Errorf("scanner 0x%x: %w", scanner, ErrBadHandle)
	}
	rec, ok := z.images[img]
	if !ok {
		return 0, fmt.Errorf("image 0x%x: %w", img, ErrBadHandle)
	}
	z.release(rec)
	if rec.width == 0 || rec.height == 0 {
		return 0, nil
	}

	gray := image.NewGray(image.Rect(0, 0, rec.width, rec.height))
	mem := z.heap.Bytes()
	copy(gray.Pix, mem[rec.data:rec.data+uint32(rec.width*rec.height)])

	results, err := z.decode(ctx, gray)
	if err != nil {
		return 0, err
	}
	if len(results) == 0 {
		return 0, nil
	}

	if err := z.writeSymbols(rec, results); err != nil {
		z.release(rec)
		return 0, err
	}
	return len(results), nil
}

func (z *ZXing) decode(ctx context.Context, gray *image.Gray) (results []barcode.Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("decoder panic: %v", p)
		}
	}()
	return z.backend.Decode(ctx, gray, z.opts)
}

// writeSymbols lays out a symbol set and its records in the heap.
func (z *ZXing) writeSymbols(rec *imageRecord, results []barcode.Result) error {
	alloc := func(n int) (uint32, error) {
		p, err := z.heap.Alloc(n)
		if err == nil {
			rec.owned = append(rec.owned, p)
		}
		return p, err
	}

	set, err := alloc(SymbolSetSize)
	if err != nil {
		return err
	}
	stamp := uint32(z.now().UnixMilli())

	var head, prev uint32
	for _, r := range results {
		sym, err := alloc(SymbolSize)
		if err != nil {
			return err
		}

		payload := []byte(r.Value)
		data, err := alloc(len(payload) + 1)
		if err != nil {
			return err
		}
		if err := z.heap.Write(data, payload); err != nil {
			return err
		}

		pts := symbolPoints(r)
		raw := make([]byte, 0, len(pts)*8)
		for _, p := range pts {
			raw = appendWord(raw, uint32(p.X))
			raw = appendWord(raw, uint32(p.Y))
		}
		ptsAddr, err := alloc(len(raw))
		if err != nil {
			return err
		}
		if err := z.heap.Write(ptsAddr, raw); err != nil {
			return err
		}

		words := map[int]uint32{
			wordType:       z.typeCode(r),
			wordDataLen:    uint32(len(payload)),
			wordData:       data,
			wordPointCount: uint32(len(pts)),
			wordPoints:     ptsAddr,
			wordTime:       stamp,
			wordCacheCount: 0,
			wordQuality:    1,
		}
		for off, v := range words {
			if err := z.heap.PutWord(sym+uint32(off*4), v); err != nil {
				return err
			}
		}

		if prev == 0 {
			head = sym
		} else if err := z.heap.PutWord(prev+wordNext*4, sym); err != nil {
			return err
		}
		prev = sym
	}

	for off, v := range map[int]uint32{0: 1, setCount: uint32(len(results)), wordSetHead: head, setTail: prev} {
		if err := z.heap.PutWord(set+uint32(off*4), v); err != nil {
			return err
		}
	}
	rec.set = set
	return nil
}

func (z *ZXing) typeCode(r barcode.Result) uint32 {
	code := TypeCode(r.Type)
	if z.isbn && code == TypeEAN13 && (strings.HasPrefix(r.Value, "978") || strings.HasPrefix(r.Value, "979")) {
		return TypeISBN13
	}
	return code
}

// symbolPoints expands a decoder result into a location polygon. Matrix
// symbols start at the top-left corner; linear symbols start at the
// trailing edge of the scan line.
func symbolPoints(r barcode.Result) []Point {
	b := r.BBox
	if b.Empty() {
		return nil
	}
	x0, y0 := int32(b.Min.X), int32(b.Min.Y)
	x1, y1 := int32(b.Max.X-1), int32(b.Max.Y-1)
	if r.Type.Matrix() {
		return []Point{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}}
	}
	return []Point{{x1, y0}, {x0, y0}, {x0, y1}, {x1, y1}}
}

func appendWord(b []byte, v uint32) []byte {
	return append(b, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

func (z *ZXing) release(rec *imageRecord) {
	for _, p := range rec.owned {
		_ = z.heap.Free(p)
	}
	rec.owned = nil
	rec.set = 0
}
