// Package logging wraps log/slog with a process-wide adjustable level and
// a scoped suppression helper for code paths that would otherwise spam the
// log, such as repeated finite-difference probe evaluations.
package logging

import (
	"log/slog"
	"os"
	"sync"
)

var (
	mu    sync.Mutex
	level slog.LevelVar
	log   = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: &level}))
)

// L returns the package logger.
func L() *slog.Logger {
	return log
}

// SetLevel sets the minimum level of the package logger.
func SetLevel(l slog.Level) {
	level.Set(l)
}

// Suppress raises the log level above Error for the duration of fn and
// restores the previous level on return, including when fn panics.
func Suppress(fn func()) {
	mu.Lock()
	prev := level.Level()
	level.Set(slog.LevelError + 1)
	mu.Unlock()

	defer func() {
		mu.Lock()
		level.Set(prev)
		mu.Unlock()
	}()

	fn()
}
