package device

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
)

// parseLogLevel splits an ffmpeg "-loglevel level+..." line into its level
// and message. Lines look like "[warning] msg" or
// "[v4l2 @ 0x55d1] [error] msg"; the component prefix is kept. Untagged
// lines return an empty level.
func parseLogLevel(line string) (level, msg string) {
	if len(line) < 3 || line[0] != '[' {
		return "", line
	}
	end := strings.Index(line, "] ")
	if end == -1 {
		return "", line
	}
	if tag := line[1:end]; isLogLevel(tag) {
		return tag, line[end+2:]
	}

	component, rest := line[:end+2], line[end+2:]
	if len(rest) > 2 && rest[0] == '[' {
		if next := strings.Index(rest, "] "); next != -1 && isLogLevel(rest[1:next]) {
			return rest[1:next], component + rest[next+2:]
		}
	}
	return "", line
}

func isLogLevel(s string) bool {
	switch s {
	case "quiet", "panic", "fatal", "error", "warning", "info", "verbose", "debug", "trace":
		return true
	}
	return false
}

func slogLevel(ffmpegLevel string) slog.Level {
	switch ffmpegLevel {
	case "panic", "fatal", "error":
		return slog.LevelError
	case "warning":
		return slog.LevelWarn
	case "info":
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

// logWriter turns ffmpeg stderr into log records, one per line. Untagged
// lines are warnings until the first frame arrives, since that is where
// ffmpeg reports input errors, and info afterwards.
type logWriter struct {
	logger  *slog.Logger
	started atomic.Bool

	mu   sync.Mutex
	buf  []byte
	last string
}

func (w *logWriter) markStarted() {
	if w != nil {
		w.started.Store(true)
	}
}

// detail formats the last stderr line for an error message.
func (w *logWriter) detail() string {
	if w == nil {
		return ""
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.last == "" {
		return ""
	}
	return ": " + w.last
}

func (w *logWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexAny(w.buf, "\r\n")
		if i < 0 {
			break
		}
		w.emit(string(w.buf[:i]))
		w.buf = w.buf[i+1:]
	}
	return len(p), nil
}

func (w *logWriter) emit(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	w.last = line
	level, msg := parseLogLevel(line)
	lvl := slogLevel(level)
	if level == "" {
		lvl = slog.LevelInfo
		if !w.started.Load() {
			lvl = slog.LevelWarn
		}
	}
	w.logger.Log(context.Background(), lvl, msg)
}
