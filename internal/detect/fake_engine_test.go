package detect

import (
	"context"
	"errors"

	"github.com/MeKo-Tech/qrscan/internal/engine"
)

type fakeSymbol struct {
	code uint32
	data string
	pts  []int32
}

// fakeEngine counts ABI calls and serves a scripted symbol list.
type fakeEngine struct {
	heap *engine.Heap

	mallocs, frees, creates, destroys, scans, scannerCreates int

	mallocErr error
	scanErr   error
	scanPanic bool
	cyclic    bool
	symbols   []fakeSymbol

	images map[uint32]uint32 // image -> symbol set
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{heap: engine.NewHeap(64*1024, 0), images: map[uint32]uint32{}}
}

func (f *fakeEngine) Malloc(size int) (uint32, error) {
	f.mallocs++
	if f.mallocErr != nil {
		return 0, f.mallocErr
	}
	return f.heap.Alloc(size)
}

func (f *fakeEngine) Free(p uint32) error {
	f.frees++
	return f.heap.Free(p)
}

func (f *fakeEngine) ImageScannerCreate() (uint32, error) {
	f.scannerCreates++
	return f.heap.Alloc(16)
}

func (f *fakeEngine) ImageCreate(_, _ int, format, _ uint32, _, _ int) (uint32, error) {
	f.creates++
	if format != engine.FourCCY800 {
		return 0, errors.New("bad format")
	}
	p, err := f.heap.Alloc(32)
	if err == nil {
		f.images[p] = 0
	}
	return p, err
}

func (f *fakeEngine) ImageDestroy(img uint32) error {
	f.destroys++
	delete(f.images, img)
	return f.heap.Free(img)
}

func (f *fakeEngine) ImageScannerScan(_ context.Context, _, img uint32) (int, error) {
	f.scans++
	if f.scanPanic {
		panic("engine trap")
	}
	if f.scanErr != nil {
		return 0, f.scanErr
	}
	if len(f.symbols) == 0 {
		return 0, nil
	}
	set := f.writeSymbols()
	f.images[img] = set
	return len(f.symbols), nil
}

func (f *fakeEngine) ImageGetSymbols(img uint32) (uint32, error) {
	return f.images[img], nil
}

func (f *fakeEngine) Memory() []byte { return f.heap.Bytes() }

// writeSymbols lays the scripted list out with the engine record layout.
// The records are deliberately leaked into the fake heap.
func (f *fakeEngine) writeSymbols() uint32 {
	put := func(p uint32, word int, v uint32) { _ = f.heap.PutWord(p+uint32(word*4), v) }

	var first, prev uint32
	for _, s := range f.symbols {
		rec, _ := f.heap.Alloc(engine.SymbolSize)
		data, _ := f.heap.Alloc(len(s.data) + 1)
		_ = f.heap.Write(data, []byte(s.data))
		pts, _ := f.heap.Alloc(len(s.pts) * 4)
		for i, v := range s.pts {
			put(pts, i, uint32(v))
		}
		put(rec, 0, s.code)
		put(rec, 4, uint32(len(s.data)))
		put(rec, 5, data)
		put(rec, 7, uint32(len(s.pts)/2))
		put(rec, 8, pts)
		put(rec, 15, 1)
		if prev == 0 {
			first = rec
		} else {
			put(prev, 11, rec)
		}
		prev = rec
	}
	if f.cyclic {
		put(prev, 11, first)
	}
	set, _ := f.heap.Alloc(engine.SymbolSetSize)
	put(set, 2, first)
	return set
}

func fakeLoader(f *fakeEngine) Loader {
	return func(context.Context) (engine.Engine, error) { return f, nil }
}
