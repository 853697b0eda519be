package mempool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSizeClass(t *testing.T) {
	tests := []struct {
		name     string
		input    int
		expected int
	}{
		{"small size gets minimum", 1, 1024},
		{"exactly 1024", 1024, 1024},
		{"just over 1024", 1025, 2048},
		{"exact multiple of 1024", 2048, 2048},
		{"odd number", 1500, 2048},
		{"large size", 10000, 10240},
		{"zero size", 0, 1024},
		{"negative size", -1, 1024},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, sizeClass(tt.input))
		})
	}
}

func TestGetBytes_BasicFunctionality(t *testing.T) {
	tests := []struct {
		name        string
		requestSize int
	}{
		{"small buffer", 100},
		{"exactly 1024", 1024},
		{"frame sized", 640 * 480},
		{"zero size", 0},
		{"negative size", -5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := GetBytes(tt.requestSize)
			assert.Len(t, buf, max(tt.requestSize, 0))
			assert.GreaterOrEqual(t, cap(buf), tt.requestSize)
			PutBytes(buf)
		})
	}
}

func TestBuffersComeBackZeroed(t *testing.T) {
	const size = 3000

	b := GetBytes(size)
	for i := range b {
		b[i] = 0xFF
	}
	PutBytes(b)
	assert.Equal(t, make([]byte, size), GetBytes(size))

	u := GetUint16(size)
	for i := range u {
		u[i] = 0xFFFF
	}
	PutUint16(u)
	assert.Equal(t, make([]uint16, size), GetUint16(size))
}

func TestPutIgnoresForeignBuffers(t *testing.T) {
	PutBytes(nil)
	PutUint16(nil)
	// Capacity 1500 is not a size class; it must not be handed out for a
	// 2048 request.
	PutBytes(make([]byte, 1500))
	buf := GetBytes(2048)
	require.Len(t, buf, 2048)
	assert.Equal(t, 2048, cap(buf))
}

func TestConcurrentAccess(t *testing.T) {
	const numGoroutines = 50
	const numIterations = 100
	const bufferSize = 1500

	var wg sync.WaitGroup
	for range numGoroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range numIterations {
				buf := GetBytes(bufferSize)
				labels := GetUint16(bufferSize)
				assert.Len(t, buf, bufferSize)
				assert.Len(t, labels, bufferSize)
				for k := range buf {
					buf[k] = byte(k)
					labels[k] = uint16(k)
				}
				PutBytes(buf)
				PutUint16(labels)
			}
		}()
	}
	wg.Wait()
}
