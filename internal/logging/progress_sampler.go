package logging

import (
	"strings"
	"sync"
)

// ProgressSampler thins out repetitive progress notifications. A notification
// is emitted when its percent crosses into a new bucket for its name, or when
// the task it reports on changes.
type ProgressSampler struct {
	bucketSize float64

	mu    sync.Mutex
	state map[string]progressState
}

type progressState struct {
	task   string
	bucket int
}

// NewProgressSampler constructs a sampler with the given bucket width in
// percent (default 10).
func NewProgressSampler(bucketSize float64) *ProgressSampler {
	if bucketSize <= 0 {
		bucketSize = 10
	}
	return &ProgressSampler{bucketSize: bucketSize, state: make(map[string]progressState)}
}

// ShouldEmit reports whether the progress update for name should be shown.
// A negative percent means unknown and only task changes are emitted.
func (s *ProgressSampler) ShouldEmit(name, task string, percent float64) bool {
	if s == nil {
		return true
	}
	task = strings.TrimSpace(task)

	s.mu.Lock()
	defer s.mu.Unlock()

	st, seen := s.state[name]
	if !seen {
		st = progressState{bucket: -1}
	}
	emit := false
	if !seen || task != st.task {
		st.task = task
		st.bucket = -1
		emit = true
	}
	if percent >= 0 {
		if percent > 100 {
			percent = 100
		}
		bucket := int(percent / s.bucketSize)
		if bucket > st.bucket {
			st.bucket = bucket
			emit = true
		}
	}
	s.state[name] = st
	return emit
}

// Reset forgets all progress, for example after a reconnect.
func (s *ProgressSampler) Reset() {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.state = make(map[string]progressState)
	s.mu.Unlock()
}
