// Package mempool keeps size-classed pools of image-sized buffers so
// repeated scans of similar frames do not reallocate.
package mempool

import (
	"sync"
)

var (
	bytePools   sync.Map // key: size class (int), value: *sync.Pool
	uint16Pools sync.Map // key: size class (int), value: *sync.Pool
)

// sizeClass rounds n up to the next multiple of 1024, minimum 1024.
func sizeClass(n int) int {
	if n <= 1024 {
		return 1024
	}
	const step = 1024
	r := (n + step - 1) / step
	return r * step
}

func poolFor[T any](pools *sync.Map, cls int) *sync.Pool {
	pAny, _ := pools.LoadOrStore(cls, &sync.Pool{New: func() any { return make([]T, cls) }})
	p, _ := pAny.(*sync.Pool)
	return p
}

func get[T any](pools *sync.Map, n int) []T {
	n = max(n, 0)
	cls := sizeClass(n)
	p := poolFor[T](pools, cls)
	if p == nil {
		return make([]T, cls)[:n]
	}
	buf, ok := p.Get().([]T)
	if !ok || cap(buf) < cls {
		buf = make([]T, cls)
	}
	buf = buf[:n]
	clear(buf)
	return buf
}

func put[T any](pools *sync.Map, buf []T) {
	if cap(buf) == 0 {
		return
	}
	// Buffers smaller than their class would be handed out short; drop them.
	cls := sizeClass(cap(buf))
	if cls != cap(buf) {
		return
	}
	if p := poolFor[T](pools, cls); p != nil {
		p.Put(buf[:cap(buf)]) //nolint:staticcheck // slices are the pooled unit
	}
}

// GetBytes returns a zeroed []byte of length n. Return it with PutBytes.
func GetBytes(n int) []byte { return get[byte](&bytePools, n) }

// PutBytes returns a buffer obtained from GetBytes. Nil is ignored.
func PutBytes(buf []byte) { put(&bytePools, buf) }

// GetUint16 returns a zeroed []uint16 of length n. Return it with PutUint16.
func GetUint16(n int) []uint16 { return get[uint16](&uint16Pools, n) }

// PutUint16 returns a buffer obtained from GetUint16. Nil is ignored.
func PutUint16(buf []uint16) { put(&uint16Pools, buf) }
