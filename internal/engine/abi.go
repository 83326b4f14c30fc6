package engine

import (
	"context"
	"errors"
)

// FourCCY800 identifies single-plane 8-bit greyscale images ("Y800").
const FourCCY800 uint32 = 0x30303859

// Symbol record layout, in 32-bit word offsets from the record address.
const (
	wordType       = 0
	wordDataLen    = 4
	wordData       = 5
	wordPointCount = 7
	wordPoints     = 8
	wordOrient     = 9
	wordNext       = 11
	wordTime       = 13
	wordCacheCount = 14
	wordQuality    = 15

	// SymbolSize is the byte size of one symbol record.
	SymbolSize = 64

	// wordSetHead is the offset of the first symbol pointer in a symbol set.
	wordSetHead = 2
	setCount    = 1
	setTail     = 3
	// SymbolSetSize is the byte size of a symbol set record.
	SymbolSetSize = 16
)

var (
	ErrOutOfMemory   = errors.New("engine heap exhausted")
	ErrDoubleFree    = errors.New("engine pointer freed twice or never allocated")
	ErrOutOfBounds   = errors.New("engine memory access out of bounds")
	ErrCyclicList    = errors.New("engine symbol list does not terminate")
	ErrBadHandle     = errors.New("unknown engine handle")
	ErrBadFormat     = errors.New("unsupported image format")
	ErrShortImage    = errors.New("image buffer shorter than width*height")
)

// Engine is the exported function surface of the scanning engine. All
// pointers are addresses into the slice returned by Memory. Memory may be
// replaced when the heap grows, so callers re-fetch it after every call that
// can allocate.
type Engine interface {
	Malloc(size int) (uint32, error)
	Free(ptr uint32) error

	ImageScannerCreate() (uint32, error)
	// ImageCreate wraps an existing data buffer; destroying the image does
	// not release that buffer.
	ImageCreate(width, height int, format, data uint32, length, sequence int) (uint32, error)
	ImageDestroy(image uint32) error
	// ImageScannerScan decodes image and returns the number of symbols found.
	ImageScannerScan(ctx context.Context, scanner, image uint32) (int, error)
	// ImageGetSymbols returns the address of the symbol set of the last scan.
	ImageGetSymbols(image uint32) (uint32, error)

	Memory() []byte
}
