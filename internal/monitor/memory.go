// Package monitor samples heap usage between dataset batches.
package monitor

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
	"time"
)

const bytesPerMB = 1024 * 1024

// MemoryMonitor tracks memory usage and releases memory when a threshold is crossed
type MemoryMonitor struct {
	mu            sync.RWMutex
	stats         MemoryStats
	gcThresholdMB int64
	peakAllocMB   float64
	forcedGCs     int
	lastGC        time.Time
}

// MemoryStats represents memory usage statistics
type MemoryStats struct {
	AllocMB        float64   `json:"alloc_mb"`
	TotalAllocMB   float64   `json:"total_alloc_mb"`
	SysMB          float64   `json:"sys_mb"`
	NumGC          uint32    `json:"num_gc"`
	LastUpdated    time.Time `json:"last_updated"`
	GoroutineCount int       `json:"goroutine_count"`
}

// NewMemoryMonitor creates a monitor. A threshold of zero or less disables forced collection.
func NewMemoryMonitor(gcThresholdMB int64) *MemoryMonitor {
	return &MemoryMonitor{gcThresholdMB: gcThresholdMB}
}

// Sample refreshes and returns the statistics
func (m *MemoryMonitor) Sample() MemoryStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.updateStats()

	return m.stats
}

// Checkpoint samples memory and forces a collection when allocation is above
// the threshold. It reports whether a collection ran.
func (m *MemoryMonitor) Checkpoint() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.updateStats()

	if m.gcThresholdMB <= 0 || m.stats.AllocMB <= float64(m.gcThresholdMB) {
		return false
	}

	runtime.GC()
	debug.FreeOSMemory()

	m.forcedGCs++
	m.lastGC = time.Now()
	m.updateStats()

	return true
}

// GetStats returns the last sampled statistics
func (m *MemoryMonitor) GetStats() MemoryStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.stats
}

// PeakAllocMB is the highest allocation seen by any sample
func (m *MemoryMonitor) PeakAllocMB() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.peakAllocMB
}

// ForcedGCs is the number of collections Checkpoint triggered
func (m *MemoryMonitor) ForcedGCs() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.forcedGCs
}

// GetMemoryPressure returns a value from 0-1 indicating memory pressure
func (m *MemoryMonitor) GetMemoryPressure() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.stats.SysMB == 0 {
		return 0
	}

	return min(m.stats.AllocMB/m.stats.SysMB, 1.0)
}

// GetFormattedStats returns human-readable memory statistics
func (m *MemoryMonitor) GetFormattedStats() string {
	stats := m.GetStats()

	return fmt.Sprintf("alloc=%.2fMB peak=%.2fMB sys=%.2fMB gc=%d forced=%d goroutines=%d",
		stats.AllocMB,
		m.PeakAllocMB(),
		stats.SysMB,
		stats.NumGC,
		m.ForcedGCs(),
		stats.GoroutineCount,
	)
}

// updateStats must be called with the write lock held
func (m *MemoryMonitor) updateStats() {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	m.stats = MemoryStats{
		AllocMB:        float64(memStats.Alloc) / bytesPerMB,
		TotalAllocMB:   float64(memStats.TotalAlloc) / bytesPerMB,
		SysMB:          float64(memStats.Sys) / bytesPerMB,
		NumGC:          memStats.NumGC,
		LastUpdated:    time.Now(),
		GoroutineCount: runtime.NumGoroutine(),
	}

	m.peakAllocMB = max(m.peakAllocMB, m.stats.AllocMB)
}
