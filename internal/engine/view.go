package engine

import (
	"encoding/binary"
	"fmt"
)

// maxSymbols bounds a symbol list walk.
const maxSymbols = 4096

// Point is a symbol location point in image coordinates.
type Point struct {
	X, Y int32
}

// Symbol is a decoded copy of one engine symbol record.
type Symbol struct {
	Addr       uint32
	Type       uint32
	Data       []byte
	Points     []Point
	Orient     int32
	Next       uint32
	Time       uint32
	CacheCount int32
	Quality    int32
}

// word reads the 32-bit little-endian word at byte address p.
func word(mem []byte, p uint32) (uint32, error) {
	if uint64(p)+4 > uint64(len(mem)) {
		return 0, fmt.Errorf("read word at 0x%x: %w", p, ErrOutOfBounds)
	}
	return binary.LittleEndian.Uint32(mem[p:]), nil
}

func span32(mem []byte, p, n uint32) ([]byte, error) {
	if uint64(p)+uint64(n) > uint64(len(mem)) {
		return nil, fmt.Errorf("read %d bytes at 0x%x: %w", n, p, ErrOutOfBounds)
	}
	return mem[p : p+n], nil
}

// ReadSymbol decodes the symbol record at addr. Data and Points are copies.
func ReadSymbol(mem []byte, addr uint32) (Symbol, error) {
	rec, err := span32(mem, addr, SymbolSize)
	if err != nil {
		return Symbol{}, err
	}
	w := func(i int) uint32 { return binary.LittleEndian.Uint32(rec[i*4:]) }

	s := Symbol{
		Addr:       addr,
		Type:       w(wordType),
		Orient:     int32(w(wordOrient)),
		Next:       w(wordNext),
		Time:       w(wordTime),
		CacheCount: int32(w(wordCacheCount)),
		Quality:    int32(w(wordQuality)),
	}

	if n := w(wordDataLen); n > 0 {
		data, err := span32(mem, w(wordData), n)
		if err != nil {
			return Symbol{}, fmt.Errorf("symbol 0x%x data: %w", addr, err)
		}
		s.Data = append([]byte(nil), data...)
	}

	if n := w(wordPointCount); n > 0 {
		if n > 1<<20 {
			return Symbol{}, fmt.Errorf("symbol 0x%x: %d points: %w", addr, n, ErrOutOfBounds)
		}
		raw, err := span32(mem, w(wordPoints), n*8)
		if err != nil {
			return Symbol{}, fmt.Errorf("symbol 0x%x points: %w", addr, err)
		}
		s.Points = make([]Point, n)
		for i := range s.Points {
			s.Points[i] = Point{
				X: int32(binary.LittleEndian.Uint32(raw[i*8:])),
				Y: int32(binary.LittleEndian.Uint32(raw[i*8+4:])),
			}
		}
	}
	return s, nil
}

// SymbolSetHead returns the first symbol address of the set at addr.
func SymbolSetHead(mem []byte, set uint32) (uint32, error) {
	if set == 0 {
		return 0, nil
	}
	return word(mem, set+wordSetHead*4)
}

// WalkSymbols visits every symbol of the set in list order. It stops with
// ErrCyclicList when a node repeats or the list exceeds maxSymbols.
func WalkSymbols(mem []byte, set uint32, visit func(Symbol) error) error {
	p, err := SymbolSetHead(mem, set)
	if err != nil {
		return err
	}
	seen := make(map[uint32]struct{})
	for p != 0 {
		if _, dup := seen[p]; dup || len(seen) >= maxSymbols {
			return fmt.Errorf("symbol 0x%x: %w", p, ErrCyclicList)
		}
		seen[p] = struct{}{}

		s, err := ReadSymbol(mem, p)
		if err != nil {
			return err
		}
		if err := visit(s); err != nil {
			return err
		}
		p = s.Next
	}
	return nil
}
