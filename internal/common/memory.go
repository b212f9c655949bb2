package common

import (
	"fmt"
	"runtime"
)

// MemoryStats is a snapshot of the heap counters reported after a scan.
type MemoryStats struct {
	HeapAlloc  uint64
	TotalAlloc uint64
	Sys        uint64
	NumGC      uint32
}

// GetMemoryStats reads the current runtime memory statistics.
func GetMemoryStats() MemoryStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return MemoryStats{
		HeapAlloc:  m.HeapAlloc,
		TotalAlloc: m.TotalAlloc,
		Sys:        m.Sys,
		NumGC:      m.NumGC,
	}
}

// AllocatedSince is the number of bytes allocated between before and m.
func (m MemoryStats) AllocatedSince(before MemoryStats) uint64 {
	if m.TotalAlloc < before.TotalAlloc {
		return 0
	}
	return m.TotalAlloc - before.TotalAlloc
}

func (m MemoryStats) String() string {
	return fmt.Sprintf("heap: %d KB, total: %d KB, sys: %d KB, gc: %d",
		m.HeapAlloc/1024, m.TotalAlloc/1024, m.Sys/1024, m.NumGC)
}
