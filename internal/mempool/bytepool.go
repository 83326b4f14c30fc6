// Package mempool keeps sized pools of byte buffers for the per-frame RGBA
// samples, which would otherwise be allocated at every poll tick.
package mempool

import (
	"sync"
)

const classStep = 64 * 1024

var bytePools sync.Map // key: size class (int), value: *sync.Pool

// sizeClass rounds n up to the next multiple of classStep.
func sizeClass(n int) int {
	if n <= classStep {
		return classStep
	}
	r := (n + classStep - 1) / classStep
	return r * classStep
}

func poolFor(cls int) *sync.Pool {
	pAny, _ := bytePools.LoadOrStore(cls, &sync.Pool{New: func() any {
		b := make([]byte, cls)
		return &b
	}})
	return pAny.(*sync.Pool)
}

// GetBytes retrieves a buffer of length n. Contents are not zeroed.
// The caller must return it via PutBytes when done.
func GetBytes(n int) []byte {
	if n <= 0 {
		return []byte{}
	}
	cls := sizeClass(n)
	bp, ok := poolFor(cls).Get().(*[]byte)
	if !ok || cap(*bp) < cls {
		buf := make([]byte, cls)
		return buf[:n]
	}
	return (*bp)[:n]
}

// PutBytes returns a buffer to the pool. It is safe to pass a nil slice.
func PutBytes(buf []byte) {
	if cap(buf) < classStep {
		return
	}
	// Only exact class capacities are pooled; anything else is left to the GC.
	cls := cap(buf)
	if cls%classStep != 0 {
		return
	}
	b := buf[:cls]
	poolFor(cls).Put(&b)
}
