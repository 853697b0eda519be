package common

import (
	"fmt"
	"runtime"
	"time"
)

// MemoryStats is the subset of runtime.MemStats reported alongside
// measurements.
type MemoryStats struct {
	Alloc      uint64 `json:"alloc"`
	TotalAlloc uint64 `json:"total_alloc"`
	Sys        uint64 `json:"sys"`
	Mallocs    uint64 `json:"mallocs"`
	HeapInuse  uint64 `json:"heap_inuse"`
	NumGC      uint32 `json:"num_gc"`
}

// ReadMemoryStats samples the runtime allocator.
func ReadMemoryStats() MemoryStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return MemoryStats{
		Alloc:      m.Alloc,
		TotalAlloc: m.TotalAlloc,
		Sys:        m.Sys,
		Mallocs:    m.Mallocs,
		HeapInuse:  m.HeapInuse,
		NumGC:      m.NumGC,
	}
}

func (m MemoryStats) String() string {
	return fmt.Sprintf("alloc %d KB, sys %d KB, gc %d", m.Alloc/1024, m.Sys/1024, m.NumGC)
}

// Measurement is the outcome of running one operation repeatedly.
type Measurement struct {
	Name       string        `json:"name"`
	Iterations int           `json:"iterations"`
	Total      time.Duration `json:"total_ns"`
	Min        time.Duration `json:"min_ns"`
	Max        time.Duration `json:"max_ns"`
	// Allocated is the number of bytes allocated across all iterations.
	Allocated uint64 `json:"allocated_bytes"`
	Err       error  `json:"-"`
}

// Average returns the mean duration per completed iteration.
func (m Measurement) Average() time.Duration {
	if m.Iterations == 0 {
		return 0
	}
	return m.Total / time.Duration(m.Iterations)
}

func (m Measurement) String() string {
	if m.Err != nil {
		return fmt.Sprintf("%s: failed after %d iterations: %v", m.Name, m.Iterations, m.Err)
	}
	return fmt.Sprintf("%s: %d iterations, avg %v, min %v, max %v, %d KB allocated",
		m.Name, m.Iterations, m.Average(), m.Min, m.Max, m.Allocated/1024)
}

// Measure runs fn n times and stops at the first error.
func Measure(name string, n int, fn func() error) Measurement {
	res := Measurement{Name: name}
	before := ReadMemoryStats()
	for range max(n, 1) {
		t := NewTimer()
		err := fn()
		d := t.Stop()
		if err != nil {
			res.Err = err
			break
		}
		if res.Iterations == 0 || d < res.Min {
			res.Min = d
		}
		res.Max = max(res.Max, d)
		res.Total += d
		res.Iterations++
	}
	res.Allocated = ReadMemoryStats().TotalAlloc - before.TotalAlloc
	return res
}
