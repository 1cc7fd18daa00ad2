package web

import (
	"io"
	"strconv"
	"strings"
	"sync"
	"time"
)

// LogEntry represents a single log entry
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
}

// LogBuffer is a thread-safe ring buffer for log entries
type LogBuffer struct {
	mu      sync.RWMutex
	entries []LogEntry
	cap     int
	now     func() time.Time
}

// NewLogBuffer creates a new log buffer with the given capacity
func NewLogBuffer(capacity int) *LogBuffer {
	return &LogBuffer{
		entries: make([]LogEntry, 0, capacity),
		cap:     capacity,
		now:     time.Now,
	}
}

// Add adds a log entry to the buffer
func (lb *LogBuffer) Add(level, message string) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	entry := LogEntry{
		Timestamp: lb.now(),
		Level:     level,
		Message:   message,
	}

	if len(lb.entries) >= lb.cap {
		// Shift everything left by 1, drop oldest
		copy(lb.entries, lb.entries[1:])
		lb.entries[len(lb.entries)-1] = entry
	} else {
		lb.entries = append(lb.entries, entry)
	}
}

// Entries returns all entries, optionally filtered by level
func (lb *LogBuffer) Entries(levels []string) []LogEntry {
	lb.mu.RLock()
	defer lb.mu.RUnlock()

	if len(levels) == 0 {
		result := make([]LogEntry, len(lb.entries))
		copy(result, lb.entries)
		return result
	}

	levelSet := make(map[string]bool)
	for _, l := range levels {
		levelSet[strings.ToLower(l)] = true
	}

	result := make([]LogEntry, 0)
	for _, e := range lb.entries {
		if levelSet[e.Level] {
			result = append(result, e)
		}
	}
	return result
}

// Clear removes all entries
func (lb *LogBuffer) Clear() {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	lb.entries = lb.entries[:0]
}

// Writer returns an io.Writer that records slog text output in the buffer.
// Tee it next to the terminal output with io.MultiWriter.
func (lb *LogBuffer) Writer() io.Writer {
	return &logWriter{buf: lb}
}

// logWriter adapts LogBuffer to io.Writer for a slog text handler
type logWriter struct {
	buf *LogBuffer
}

func (lw *logWriter) Write(p []byte) (n int, err error) {
	for _, line := range strings.Split(string(p), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		level, msg := parseRecord(line)
		lw.buf.Add(level, msg)
	}
	return len(p), nil
}

// parseRecord pulls the level and the message (with its attributes) out of
// a slog text record such as `time=... level=WARN msg="x y" err=z`
func parseRecord(line string) (level, msg string) {
	level = "info"
	if i := strings.Index(line, "level="); i >= 0 {
		rest := line[i+len("level="):]
		if j := strings.IndexByte(rest, ' '); j >= 0 {
			rest = rest[:j]
		}
		level = strings.ToLower(rest)
	}

	i := strings.Index(line, "msg=")
	if i < 0 {
		return level, line
	}
	msg = line[i+len("msg="):]
	if strings.HasPrefix(msg, `"`) {
		if quoted, err := strconv.QuotedPrefix(msg); err == nil {
			if unq, err := strconv.Unquote(quoted); err == nil {
				msg = unq + msg[len(quoted):]
			}
		}
	}
	return level, msg
}
