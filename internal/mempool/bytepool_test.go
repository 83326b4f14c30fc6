package mempool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSizeClass(t *testing.T) {
	tests := []struct {
		name     string
		input    int
		expected int
	}{
		{"small size gets minimum", 1, classStep},
		{"exactly one step", classStep, classStep},
		{"just over one step", classStep + 1, 2 * classStep},
		{"vga frame", 640 * 480 * 4, 19 * classStep},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, sizeClass(tt.input))
		})
	}
}

func TestGetBytes(t *testing.T) {
	buf := GetBytes(1000)
	assert.Len(t, buf, 1000)
	assert.GreaterOrEqual(t, cap(buf), classStep)
	PutBytes(buf)

	assert.Empty(t, GetBytes(0))
	assert.Empty(t, GetBytes(-3))
}

func TestPutBytes_IgnoresForeignBuffers(t *testing.T) {
	assert.NotPanics(t, func() {
		PutBytes(nil)
		PutBytes(make([]byte, 10))
		PutBytes(make([]byte, classStep+5))
	})
}

func TestConcurrentUse(t *testing.T) {
	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := range 50 {
				b := GetBytes((n + 1) * (j + 1) * 100)
				b[0] = byte(n)
				PutBytes(b)
			}
		}(i)
	}
	wg.Wait()
}
