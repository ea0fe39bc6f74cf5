package usecase

import (
	"fmt"
	"sync"
	"time"
)

const logRingSize = 100

// logRing keeps the newest human-readable log lines, newest first.
type logRing struct {
	mu    sync.Mutex
	lines []string
}

func (r *logRing) Add(format string, args ...interface{}) {
	line := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), fmt.Sprintf(format, args...))
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append([]string{line}, r.lines...)
	if len(r.lines) > logRingSize {
		r.lines = r.lines[:logRingSize]
	}
}

func (r *logRing) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.lines))
	copy(out, r.lines)
	return out
}
