package main

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/duynguyendang/relpat/pkg/kg"
)

// StatsCollector tracks memory usage during a run
type StatsCollector struct {
	peakRAM  uint64
	stopChan chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex
}

// NewStatsCollector creates a new stats collector
func NewStatsCollector() *StatsCollector {
	return &StatsCollector{
		stopChan: make(chan struct{}),
	}
}

// Start begins monitoring memory usage
func (sc *StatsCollector) Start() {
	sc.wg.Add(1)
	go func() {
		defer sc.wg.Done()
		ticker := time.NewTicker(200 * time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				var m runtime.MemStats
				runtime.ReadMemStats(&m)

				sc.mu.Lock()
				if m.Alloc > sc.peakRAM {
					sc.peakRAM = m.Alloc
				}
				sc.mu.Unlock()
			case <-sc.stopChan:
				return
			}
		}
	}()
}

// Stop stops monitoring memory usage
func (sc *StatsCollector) Stop() {
	close(sc.stopChan)
	sc.wg.Wait()
}

// GetPeakRAM returns the peak RAM usage in bytes
func (sc *StatsCollector) GetPeakRAM() uint64 {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.peakRAM
}

// Stats holds the metrics of one benchmark run
type Stats struct {
	Entities     int
	Relations    int
	Triples      int
	PeakRAMBytes uint64

	GenerateDuration time.Duration
	ClassifyDuration time.Duration
	CachedDuration   time.Duration

	Matches []kg.PatternMatch
	// Recovered lists the planted patterns found in the result.
	Recovered map[string]bool
}

// generateReport writes a markdown report with the run results
func generateReport(path string, stats *Stats) error {
	var planted strings.Builder
	for _, name := range []string{"symmetry", "inversion", "composition"} {
		mark := "missing"
		if stats.Recovered[name] {
			mark = "recovered"
		}
		fmt.Fprintf(&planted, "* **%s:** %s\n", name, mark)
	}

	content := fmt.Sprintf(`# Relational Pattern Benchmark Report

**Date:** %s
**Hardware:** %s / %s / %d Cores

## 1. Graph
* **Entities:** %d
* **Relations:** %d
* **Triples:** %d

## 2. Timing
* **Generation:** %s
* **Classification:** %s
* **Cached reload:** %s
* **Peak RAM Usage:** %.2f MB

## 3. Planted patterns
%s
## 4. Result
* **Pattern matches:** %d
`,
		time.Now().Format("2006-01-02 15:04:05"),
		runtime.GOOS,
		runtime.GOARCH,
		runtime.NumCPU(),
		stats.Entities,
		stats.Relations,
		stats.Triples,
		stats.GenerateDuration.Round(time.Millisecond),
		stats.ClassifyDuration.Round(time.Millisecond),
		stats.CachedDuration.Round(time.Microsecond),
		float64(stats.PeakRAMBytes)/(1024*1024),
		planted.String(),
		len(stats.Matches),
	)

	return os.WriteFile(path, []byte(content), 0644)
}
