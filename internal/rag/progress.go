package rag

import "sync"

// progressTracker keeps the last reported ingestion percentage per
// partition, for frontends that poll job state while processing runs.
// Unknown partitions read as 0.
type progressTracker struct {
	mu       sync.Mutex
	percents map[string]int
}

func newProgressTracker() *progressTracker {
	return &progressTracker{percents: make(map[string]int)}
}

func (t *progressTracker) set(partition string, percent int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.percents[partition] = percent
}

func (t *progressTracker) get(partition string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.percents[partition]
}
