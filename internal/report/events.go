// Package report writes a JSONL audit trail of the statements a sparkify
// command executed against the warehouse.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// EventType represents the type of event
type EventType string

const (
	EventDrop   EventType = "drop"
	EventCreate EventType = "create"
	EventInsert EventType = "insert"
	EventLookup EventType = "lookup"
	EventCheck  EventType = "check"
)

// EventLevel represents the severity level
type EventLevel string

const (
	LevelDebug   EventLevel = "debug"
	LevelInfo    EventLevel = "info"
	LevelWarning EventLevel = "warning"
	LevelError   EventLevel = "error"
)

var levelPriority = map[EventLevel]int{
	LevelDebug:   0,
	LevelInfo:    1,
	LevelWarning: 2,
	LevelError:   3,
}

// Event represents a single audited statement
type Event struct {
	Timestamp time.Time         `json:"ts"`
	Level     EventLevel        `json:"level"`
	Event     EventType         `json:"event"`
	Dialect   string            `json:"dialect,omitempty"`
	Table     string            `json:"table,omitempty"`
	Statement string            `json:"statement,omitempty"`
	Rows      int64             `json:"rows,omitempty"`
	Duration  int64             `json:"duration_ms,omitempty"` // in milliseconds
	Error     string            `json:"error,omitempty"`
	Extra     map[string]string `json:"extra,omitempty"`
}

// EventLogger writes events to a JSONL file
type EventLogger struct {
	file     *os.File
	encoder  *json.Encoder
	mu       sync.Mutex
	path     string
	minLevel EventLevel
}

// NewEventLogger creates a new event logger with a minimum log level
// minLevel determines which events are written (e.g., LevelInfo skips LevelDebug)
func NewEventLogger(outputDir string, minLevel EventLevel) (*EventLogger, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	timestamp := time.Now().Format("20060102-150405")
	filename := fmt.Sprintf("events-%s.jsonl", timestamp)
	path := filepath.Join(outputDir, filename)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create event log: %w", err)
	}

	return &EventLogger{
		file:     file,
		encoder:  json.NewEncoder(file),
		path:     path,
		minLevel: minLevel,
	}, nil
}

// Log writes an event to the JSONL file
func (l *EventLogger) Log(event *Event) error {
	if l == nil || l.file == nil {
		return nil
	}

	if levelPriority[event.Level] < levelPriority[l.minLevel] {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if err := l.encoder.Encode(event); err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	return nil
}

// LogStatement records one executed DDL statement. A failed statement is
// logged at error level with the driver's message.
func (l *EventLogger) LogStatement(event EventType, dialect, table, statement string, duration time.Duration, err error) error {
	level := LevelInfo
	errMsg := ""
	if err != nil {
		level = LevelError
		errMsg = err.Error()
	}

	return l.Log(&Event{
		Level:     level,
		Event:     event,
		Dialect:   dialect,
		Table:     table,
		Statement: statement,
		Duration:  duration.Milliseconds(),
		Error:     errMsg,
	})
}

// LogInsert records a row insert; rows is 0 when a dimension insert hit an
// existing key
func (l *EventLogger) LogInsert(dialect, table string, rows int64, err error) error {
	level := LevelDebug
	errMsg := ""
	if err != nil {
		level = LevelError
		errMsg = err.Error()
	}

	return l.Log(&Event{
		Level:   level,
		Event:   EventInsert,
		Dialect: dialect,
		Table:   table,
		Rows:    rows,
		Error:   errMsg,
	})
}

// LogLookup records a song lookup and whether it matched
func (l *EventLogger) LogLookup(dialect, title, artist string, duration float64, found bool) error {
	return l.Log(&Event{
		Level:   LevelInfo,
		Event:   EventLookup,
		Dialect: dialect,
		Table:   "songs",
		Extra: map[string]string{
			"title":    title,
			"artist":   artist,
			"duration": strconv.FormatFloat(duration, 'f', -1, 64),
			"found":    strconv.FormatBool(found),
		},
	})
}

// LogError records a failed operation that is not a batch statement or
// insert, such as a lookup or a row count
func (l *EventLogger) LogError(event EventType, dialect, table string, err error) error {
	return l.Log(&Event{
		Level:   LevelError,
		Event:   event,
		Dialect: dialect,
		Table:   table,
		Error:   err.Error(),
	})
}

// LogSchemaCheck records tables found missing when a command needed the
// full schema
func (l *EventLogger) LogSchemaCheck(dialect string, missing []string) error {
	return l.Log(&Event{
		Level:   LevelWarning,
		Event:   EventCheck,
		Dialect: dialect,
		Extra: map[string]string{
			"missing": strings.Join(missing, ","),
		},
	})
}

// Close closes the event log file
func (l *EventLogger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.file.Close()
}

// Path returns the path to the event log file
func (l *EventLogger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// NullLogger returns a no-op event logger
func NullLogger() *EventLogger {
	return nil
}
