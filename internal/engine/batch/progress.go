package batch

import (
	"sync"
	"time"
)

// percentMultiplier is used to convert a ratio to percentage (0-100).
const percentMultiplier = 100

// Progress tracks a sequential run. It is safe to read from a callback
// running on another goroutine.
type Progress struct {
	TotalItems     int
	ProcessedItems int
	FailedItems    int
	CurrentIndex   int
	CurrentLabel   string
	Running        bool
	StartTime      time.Time
	LastUpdateTime time.Time

	mu sync.RWMutex
}

// NewProgress creates a new progress tracker.
func NewProgress(totalItems int, now time.Time) *Progress {
	return &Progress{
		TotalItems:     totalItems,
		StartTime:      now,
		LastUpdateTime: now,
	}
}

// Start marks item index as in progress.
func (p *Progress) Start(index int, label string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.CurrentIndex = index
	p.CurrentLabel = label
	p.Running = true
}

// Finish marks the current item as done.
func (p *Progress) Finish(ok bool, now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.ProcessedItems++
	if !ok {
		p.FailedItems++
	}
	p.Running = false
	p.LastUpdateTime = now
}

// Snapshot returns a copy of the current progress state.
func (p *Progress) Snapshot(now time.Time) ProgressSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var pct float64
	if p.TotalItems > 0 {
		pct = float64(p.ProcessedItems) / float64(p.TotalItems) * percentMultiplier
	}

	return ProgressSnapshot{
		TotalItems:      p.TotalItems,
		ProcessedItems:  p.ProcessedItems,
		FailedItems:     p.FailedItems,
		CurrentIndex:    p.CurrentIndex,
		CurrentLabel:    p.CurrentLabel,
		Running:         p.Running,
		PercentComplete: pct,
		ElapsedTime:     now.Sub(p.StartTime),
	}
}

// ProgressSnapshot is an immutable snapshot of progress state.
type ProgressSnapshot struct {
	TotalItems      int
	ProcessedItems  int
	FailedItems     int
	CurrentIndex    int
	CurrentLabel    string
	Running         bool
	PercentComplete float64
	ElapsedTime     time.Duration
}

// Position returns the 1-based position of the current item.
func (s ProgressSnapshot) Position() int {
	return s.CurrentIndex + 1
}

// IsComplete reports whether every item has been processed.
func (s ProgressSnapshot) IsComplete() bool {
	return s.ProcessedItems >= s.TotalItems
}
