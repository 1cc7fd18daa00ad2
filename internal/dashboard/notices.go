package dashboard

import (
	"strconv"
	"sync"
	"time"

	"github.com/jetsetgo/printdesk/internal/render"
)

// Notice levels
const (
	LevelInfo    = "info"
	LevelSuccess = "success"
	LevelError   = "error"
)

// NoticeBuffer is a thread-safe ring buffer of transient messages
type NoticeBuffer struct {
	mu      sync.RWMutex
	entries []render.Notice
	cap     int
	ttl     time.Duration
	seq     int
}

// NewNoticeBuffer creates a buffer keeping at most capacity notices, each
// visible for ttl
func NewNoticeBuffer(capacity int, ttl time.Duration) *NoticeBuffer {
	return &NoticeBuffer{
		entries: make([]render.Notice, 0, capacity),
		cap:     capacity,
		ttl:     ttl,
	}
}

// Add records a notice and returns it
func (nb *NoticeBuffer) Add(level, text string, now time.Time) render.Notice {
	nb.mu.Lock()
	defer nb.mu.Unlock()

	nb.seq++
	n := render.Notice{
		ID:      "n" + strconv.Itoa(nb.seq),
		Level:   level,
		Text:    text,
		Expires: now.Add(nb.ttl),
	}

	if len(nb.entries) >= nb.cap {
		copy(nb.entries, nb.entries[1:])
		nb.entries[len(nb.entries)-1] = n
	} else {
		nb.entries = append(nb.entries, n)
	}
	return n
}

// Active returns the notices not yet expired at now, newest first
func (nb *NoticeBuffer) Active(now time.Time) []render.Notice {
	nb.mu.RLock()
	defer nb.mu.RUnlock()

	result := make([]render.Notice, 0, len(nb.entries))
	for i := len(nb.entries) - 1; i >= 0; i-- {
		if nb.entries[i].Expires.After(now) {
			result = append(result, nb.entries[i])
		}
	}
	return result
}

// Prune drops expired notices and reports when the next one expires
func (nb *NoticeBuffer) Prune(now time.Time) (next time.Time, ok bool) {
	nb.mu.Lock()
	defer nb.mu.Unlock()

	kept := nb.entries[:0]
	for _, n := range nb.entries {
		if !n.Expires.After(now) {
			continue
		}
		kept = append(kept, n)
		if !ok || n.Expires.Before(next) {
			next, ok = n.Expires, true
		}
	}
	nb.entries = kept
	return next, ok
}

// Dismiss removes a notice by id
func (nb *NoticeBuffer) Dismiss(id string) bool {
	nb.mu.Lock()
	defer nb.mu.Unlock()

	for i := range nb.entries {
		if nb.entries[i].ID == id {
			nb.entries = append(nb.entries[:i], nb.entries[i+1:]...)
			return true
		}
	}
	return false
}
