// Package logging provides structured logging with file and console output.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Entry is one log line kept in the in-memory history.
type Entry struct {
	Time      time.Time `json:"time"`
	Level     string    `json:"level"`
	Component string    `json:"component"`
	Message   string    `json:"message"`
}

// Config holds logger configuration
type Config struct {
	Dir        string // Directory for log files; empty disables the file
	Level      string // Minimum level: trace, debug, info, warn, error
	MaxHistory int    // Entries kept in memory
	Console    bool   // Also write human readable lines to Out
	Out        io.Writer
}

// DefaultConfig logs to ~/.cortexface/logs and stdout at info level.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Dir:        filepath.Join(home, ".cortexface", "logs"),
		Level:      "info",
		MaxHistory: 500,
		Console:    true,
		Out:        os.Stdout,
	}
}

// Logger wraps zerolog with a daily log file and a bounded history that every
// component logger feeds.
type Logger struct {
	zlog    zerolog.Logger
	file    *os.File
	logPath string

	mu      sync.RWMutex
	history []Entry
	maxHist int
}

// New creates a Logger from cfg. A nil cfg uses DefaultConfig.
func New(cfg *Config) (*Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	l := &Logger{maxHist: cfg.MaxHistory}

	var writers []io.Writer
	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		l.logPath = filepath.Join(cfg.Dir, fmt.Sprintf("cortexface_%s.log", time.Now().Format("2006-01-02")))
		l.file, err = os.OpenFile(l.logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		writers = append(writers, l.file)
	}
	if cfg.Console {
		out := cfg.Out
		if out == nil {
			out = os.Stdout
		}
		writers = append(writers, zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"})
	}

	var w io.Writer = io.Discard
	if len(writers) > 0 {
		w = zerolog.MultiLevelWriter(writers...)
	}

	zerolog.SetGlobalLevel(level)
	l.zlog = zerolog.New(w).With().Timestamp().Str("app", "cortexface").Logger()

	log := l.Component("logging")
	log.Debug().
		Str("file", l.logPath).
		Str("level", level.String()).
		Msg("Logger initialized")
	return l, nil
}

// Nop returns a Logger that discards everything.
func Nop() *Logger {
	return &Logger{zlog: zerolog.Nop()}
}

// Component returns a zerolog.Logger tagged with name whose lines are also
// recorded in the history.
func (l *Logger) Component(name string) zerolog.Logger {
	return l.zlog.With().Str("component", name).Logger().Hook(historyHook{l: l, component: name})
}

// SetLevel changes the minimum level at runtime.
func (l *Logger) SetLevel(level string) error {
	lv, err := parseLevel(level)
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(lv)
	return nil
}

// History returns up to limit of the most recent entries, oldest first.
// A non-positive limit returns everything kept.
func (l *Logger) History(limit int) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if limit <= 0 || limit > len(l.history) {
		limit = len(l.history)
	}
	out := make([]Entry, limit)
	copy(out, l.history[len(l.history)-limit:])
	return out
}

// Path returns the current log file path, empty when file output is off.
func (l *Logger) Path() string {
	return l.logPath
}

// Close closes the log file
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	log := l.Component("logging")
	log.Debug().Msg("Logger shutting down")
	return l.file.Close()
}

func (l *Logger) record(e Entry) {
	if l.maxHist <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.history = append(l.history, e)
	if len(l.history) > l.maxHist {
		l.history = l.history[len(l.history)-l.maxHist:]
	}
}

type historyHook struct {
	l         *Logger
	component string
}

func (h historyHook) Run(_ *zerolog.Event, level zerolog.Level, msg string) {
	h.l.record(Entry{
		Time:      time.Now(),
		Level:     level.String(),
		Component: h.component,
		Message:   msg,
	})
}

func parseLevel(s string) (zerolog.Level, error) {
	if s == "" {
		return zerolog.InfoLevel, nil
	}
	lv, err := zerolog.ParseLevel(s)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("log level %q: %w", s, err)
	}
	return lv, nil
}
