package engine

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// layout builds symbol records by hand in a flat memory image.
type layout struct {
	mem []byte
	top uint32
}

func newLayout() *layout { return &layout{mem: make([]byte, 4096), top: 16} }

func (l *layout) alloc(n int) uint32 {
	p := l.top
	l.top += alignUp(uint32(n))
	return p
}

func (l *layout) put(p uint32, word int, v uint32) {
	binary.LittleEndian.PutUint32(l.mem[p+uint32(word*4):], v)
}

func (l *layout) symbol(code uint32, data string, pts ...int32) uint32 {
	s := l.alloc(SymbolSize)
	d := l.alloc(len(data) + 1)
	copy(l.mem[d:], data)
	pp := l.alloc(len(pts) * 4)
	for i, v := range pts {
		binary.LittleEndian.PutUint32(l.mem[pp+uint32(i*4):], uint32(v))
	}
	l.put(s, wordType, code)
	l.put(s, wordDataLen, uint32(len(data)))
	l.put(s, wordData, d)
	l.put(s, wordPointCount, uint32(len(pts)/2))
	l.put(s, wordPoints, pp)
	l.put(s, wordTime, 77)
	l.put(s, wordCacheCount, 0xffffffff)
	l.put(s, wordQuality, 3)
	return s
}

func (l *layout) set(head uint32) uint32 {
	s := l.alloc(SymbolSetSize)
	l.put(s, wordSetHead, head)
	return s
}

func TestReadSymbol(t *testing.T) {
	l := newLayout()
	s := l.symbol(64, "hello", 10, 20, 30, 20, 30, 40, -5, 40)

	sym, err := ReadSymbol(l.mem, s)
	require.NoError(t, err)
	assert.Equal(t, uint32(64), sym.Type)
	assert.Equal(t, []byte("hello"), sym.Data)
	assert.Equal(t, []Point{{10, 20}, {30, 20}, {30, 40}, {-5, 40}}, sym.Points)
	assert.Equal(t, uint32(77), sym.Time)
	assert.Equal(t, int32(-1), sym.CacheCount)
	assert.Equal(t, int32(3), sym.Quality)
	assert.Zero(t, sym.Next)
}

func TestWalkSymbols_ListOrder(t *testing.T) {
	l := newLayout()
	a := l.symbol(64, "first", 0, 0)
	b := l.symbol(13, "second", 1, 1)
	c := l.symbol(128, "third", 2, 2)
	l.put(a, wordNext, b)
	l.put(b, wordNext, c)
	set := l.set(a)

	var got []string
	require.NoError(t, WalkSymbols(l.mem, set, func(s Symbol) error {
		got = append(got, string(s.Data))
		return nil
	}))
	assert.Equal(t, []string{"first", "second", "third"}, got)
}

func TestWalkSymbols_EmptyAndNullSet(t *testing.T) {
	l := newLayout()
	calls := 0
	visit := func(Symbol) error { calls++; return nil }
	require.NoError(t, WalkSymbols(l.mem, 0, visit))
	require.NoError(t, WalkSymbols(l.mem, l.set(0), visit))
	assert.Zero(t, calls)
}

func TestWalkSymbols_Cycle(t *testing.T) {
	l := newLayout()
	a := l.symbol(64, "a", 0, 0)
	b := l.symbol(64, "b", 0, 0)
	l.put(a, wordNext, b)
	l.put(b, wordNext, a)

	err := WalkSymbols(l.mem, l.set(a), func(Symbol) error { return nil })
	assert.ErrorIs(t, err, ErrCyclicList)
}

func TestWalkSymbols_OutOfBounds(t *testing.T) {
	l := newLayout()
	a := l.symbol(64, "a", 0, 0)
	l.put(a, wordNext, uint32(len(l.mem)-8))
	err := WalkSymbols(l.mem, l.set(a), func(Symbol) error { return nil })
	assert.ErrorIs(t, err, ErrOutOfBounds)

	bad := l.symbol(64, "b", 0, 0)
	l.put(bad, wordData, uint32(len(l.mem)))
	_, err = ReadSymbol(l.mem, bad)
	assert.ErrorIs(t, err, ErrOutOfBounds)

	_, err = SymbolSetHead(l.mem, uint32(len(l.mem)))
	assert.ErrorIs(t, err, ErrOutOfBounds)
}
