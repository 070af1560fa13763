package log

import (
	"io"
	"os"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// FileLogger appends CBOR-encoded events to a journal file. It is safe for
// concurrent use.
//
// Write failures never reach the caller of Log; the node keeps running
// without its journal. Err reports the first failure.
type FileLogger struct {
	mu      sync.Mutex
	w       io.WriteCloser
	closed  bool
	written int
	err     error
}

// NewFileLogger opens path for appending, creating it with mode 0644.
func NewFileLogger(path string) (*FileLogger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	return &FileLogger{w: f}, nil
}

// RotationConfig bounds the size of a rotating journal.
type RotationConfig struct {
	// MaxSizeMB is the size in megabytes at which the file is rotated.
	MaxSizeMB int

	// MaxBackups is the number of rotated files to keep (0 keeps all).
	MaxBackups int

	// MaxAgeDays is the age in days after which rotated files are removed.
	MaxAgeDays int

	// Compress gzips rotated files.
	Compress bool
}

// NewRotatingFileLogger returns a FileLogger whose file is rotated once it
// exceeds cfg.MaxSizeMB. The file is opened on the first event.
//
// Each event is a single write, so rotation never splits a record and
// every rotated file can be read with NewReader on its own.
func NewRotatingFileLogger(path string, cfg RotationConfig) *FileLogger {
	return &FileLogger{w: &lumberjack.Logger{
		Filename:   path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}}
}

// Log appends event. Events logged after Close are dropped.
func (l *FileLogger) Log(event Event) {
	data, err := EncodeEvent(event)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	if err == nil {
		_, err = l.w.Write(data)
	}
	if err != nil {
		if l.err == nil {
			l.err = err
		}
		return
	}
	l.written++
}

// Written returns the number of events stored.
func (l *FileLogger) Written() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.written
}

// Err returns the first encode or write error, if any.
func (l *FileLogger) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Close closes the file. Further calls return nil.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	return l.w.Close()
}

var _ Logger = (*FileLogger)(nil)
