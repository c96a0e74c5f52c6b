// Package logging configures the standard logger for the haptic binaries.
package logging

import (
	"io"
	"log"
	"os"
	"sync/atomic"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options selects where log output goes.
type Options struct {
	File       string // empty logs to stderr only
	Debug      bool
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

var debug atomic.Bool

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Setup installs the log flags and output. The returned closer flushes the
// rotating file, if any.
func Setup(opts Options) io.Closer {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	debug.Store(opts.Debug)

	if opts.File == "" {
		log.SetOutput(os.Stderr)
		return nopCloser{}
	}

	rotating := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
	}
	log.SetOutput(io.MultiWriter(os.Stderr, rotating))
	log.Printf("logging: writing to %s (max %d MB, %d backups)", opts.File, opts.MaxSizeMB, opts.MaxBackups)
	return rotating
}

// SetDebug toggles Debugf output.
func SetDebug(on bool) { debug.Store(on) }

// DebugEnabled reports whether Debugf prints.
func DebugEnabled() bool { return debug.Load() }

// Debugf logs only when debug output is enabled.
func Debugf(format string, args ...any) {
	if debug.Load() {
		log.Printf(format, args...)
	}
}
