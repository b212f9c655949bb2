package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetMemoryStats(t *testing.T) {
	stats := GetMemoryStats()
	assert.Positive(t, stats.HeapAlloc)
	assert.Positive(t, stats.TotalAlloc)
	assert.Positive(t, stats.Sys)
	assert.Contains(t, stats.String(), "heap:")
	assert.Contains(t, stats.String(), "KB")
}

func TestMemoryStats_AllocatedSince(t *testing.T) {
	before := MemoryStats{TotalAlloc: 1000}
	after := MemoryStats{TotalAlloc: 4096}
	assert.EqualValues(t, 3096, after.AllocatedSince(before))
	assert.Zero(t, before.AllocatedSince(after))
}

func BenchmarkMemoryStatsRetrieval(b *testing.B) {
	for range b.N {
		GetMemoryStats()
	}
}
