package logger

import (
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const maxRecentEntries = 500

// LogEntry is one buffered log line served by the logs API.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Caller    string    `json:"caller,omitempty"`
}

var (
	mu     sync.RWMutex
	log    = zap.NewNop()
	recent []LogEntry

	broadcastCallback func(LogEntry)
)

// Init (re)builds the global logger. debug enables Debug level and development encoding.
func Init(debug bool) {
	level := zapcore.InfoLevel
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	if debug {
		level = zapcore.DebugLevel
		encCfg = zap.NewDevelopmentEncoderConfig()
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.Lock(os.Stdout),
		level,
	)

	l := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1), zap.Hooks(record))

	mu.Lock()
	log = l
	mu.Unlock()
}

// SetBroadcastCallback registers a function receiving every buffered entry.
func SetBroadcastCallback(cb func(LogEntry)) {
	mu.Lock()
	broadcastCallback = cb
	mu.Unlock()
}

// Recent returns up to limit of the newest buffered entries, oldest first.
func Recent(limit int) []LogEntry {
	mu.RLock()
	defer mu.RUnlock()

	if limit <= 0 || limit > len(recent) {
		limit = len(recent)
	}
	out := make([]LogEntry, limit)
	copy(out, recent[len(recent)-limit:])
	return out
}

// Clear drops all buffered entries.
func Clear() {
	mu.Lock()
	recent = nil
	mu.Unlock()
}

func record(e zapcore.Entry) error {
	entry := LogEntry{
		Timestamp: e.Time,
		Level:     e.Level.String(),
		Message:   e.Message,
	}
	if e.Caller.Defined {
		entry.Caller = e.Caller.TrimmedPath()
	}

	mu.Lock()
	recent = append(recent, entry)
	if len(recent) > maxRecentEntries {
		recent = recent[len(recent)-maxRecentEntries:]
	}
	cb := broadcastCallback
	mu.Unlock()

	if cb != nil {
		cb(entry)
	}
	return nil
}

func current() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

func Debug(msg string, fields ...zap.Field) { current().Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field)  { current().Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { current().Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { current().Error(msg, fields...) }
func Fatal(msg string, fields ...zap.Field) { current().Fatal(msg, fields...) }

// Sync flushes buffered output.
func Sync() {
	_ = current().Sync()
}
