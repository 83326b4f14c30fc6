package engine

import (
	"encoding/binary"
	"fmt"
	"sort"
	"sync"
)

const (
	heapAlign = 8
	// heapBase keeps address 0 free so it can act as the null pointer.
	heapBase = 16
)

type span struct {
	off, size uint32
}

// Heap is a growable linear memory with first-fit allocation.
type Heap struct {
	mu    sync.Mutex
	mem   []byte
	live  map[uint32]uint32 // address -> reserved size
	free  []span            // sorted by offset, coalesced
	top   uint32
	limit int
}

// NewHeap creates a heap with initial bytes of memory. A positive limit caps
// the total memory size; allocations beyond it fail with ErrOutOfMemory.
func NewHeap(initial, limit int) *Heap {
	if initial < heapBase {
		initial = 64 * 1024
	}
	return &Heap{
		mem:   make([]byte, initial),
		live:  make(map[uint32]uint32),
		top:   heapBase,
		limit: limit,
	}
}

func alignUp(n uint32) uint32 {
	return (n + heapAlign - 1) &^ (heapAlign - 1)
}

// Alloc reserves n bytes and returns their address. Zero-sized requests
// still receive a unique address.
func (h *Heap) Alloc(n int) (uint32, error) {
	if n < 0 {
		return 0, fmt.Errorf("alloc %d bytes: negative size", n)
	}
	size := alignUp(uint32(max(n, 1)))

	h.mu.Lock()
	defer h.mu.Unlock()

	for i, s := range h.free {
		if s.size < size {
			continue
		}
		if s.size == size {
			h.free = append(h.free[:i], h.free[i+1:]...)
		} else {
			h.free[i] = span{off: s.off + size, size: s.size - size}
		}
		h.live[s.off] = size
		clear(h.mem[s.off : s.off+size])
		return s.off, nil
	}

	end := uint64(h.top) + uint64(size)
	if end > uint64(len(h.mem)) {
		if err := h.grow(end); err != nil {
			return 0, fmt.Errorf("alloc %d bytes: %w", n, err)
		}
	}
	p := h.top
	h.top = uint32(end)
	h.live[p] = size
	clear(h.mem[p:h.top])
	return p, nil
}

func (h *Heap) grow(need uint64) error {
	if need > 1<<32-1 {
		return ErrOutOfMemory
	}
	next := uint64(len(h.mem))
	for next < need {
		next *= 2
	}
	if h.limit > 0 && next > uint64(h.limit) {
		if need > uint64(h.limit) {
			return ErrOutOfMemory
		}
		next = uint64(h.limit)
	}
	mem := make([]byte, next)
	copy(mem, h.mem)
	h.mem = mem
	return nil
}

// Free releases an address returned by Alloc. Freeing null is a no-op.
func (h *Heap) Free(p uint32) error {
	if p == 0 {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	size, ok := h.live[p]
	if !ok {
		return fmt.Errorf("free 0x%x: %w", p, ErrDoubleFree)
	}
	delete(h.live, p)

	i := sort.Search(len(h.free), func(i int) bool { return h.free[i].off > p })
	h.free = append(h.free, span{})
	copy(h.free[i+1:], h.free[i:])
	h.free[i] = span{off: p, size: size}
	h.coalesce(i)
	return nil
}

func (h *Heap) coalesce(i int) {
	if i+1 < len(h.free) && h.free[i].off+h.free[i].size == h.free[i+1].off {
		h.free[i].size += h.free[i+1].size
		h.free = append(h.free[:i+1], h.free[i+2:]...)
	}
	if i > 0 && h.free[i-1].off+h.free[i-1].size == h.free[i].off {
		h.free[i-1].size += h.free[i].size
		h.free = append(h.free[:i], h.free[i+1:]...)
	}
	// Return a trailing free span to the bump region.
	if last := h.free[len(h.free)-1]; last.off+last.size == h.top {
		h.top = last.off
		h.free = h.free[:len(h.free)-1]
	}
}

// Bytes returns the current memory. The slice is replaced on growth.
func (h *Heap) Bytes() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.mem
}

// Live reports the number of outstanding allocations.
func (h *Heap) Live() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.live)
}

// Write copies b to address p.
func (h *Heap) Write(p uint32, b []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if uint64(p)+uint64(len(b)) > uint64(len(h.mem)) {
		return fmt.Errorf("write %d bytes at 0x%x: %w", len(b), p, ErrOutOfBounds)
	}
	copy(h.mem[p:], b)
	return nil
}

// PutWord stores a little-endian 32-bit word at address p.
func (h *Heap) PutWord(p uint32, v uint32) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if uint64(p)+4 > uint64(len(h.mem)) {
		return fmt.Errorf("store word at 0x%x: %w", p, ErrOutOfBounds)
	}
	binary.LittleEndian.PutUint32(h.mem[p:], v)
	return nil
}
