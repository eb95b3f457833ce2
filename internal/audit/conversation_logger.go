// Package audit records generated problems and grades as NDJSON for operators.
package audit

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

// Event types.
const (
	EventProblemGenerated = "problem_generated"
	EventSubmissionGraded = "submission_graded"
)

// ConversationLogEvent is one NDJSON line.
type ConversationLogEvent struct {
	Timestamp  string `json:"ts"`
	UserID     int64  `json:"user_id"`
	EventID    string `json:"event_id,omitempty"`
	EventType  string `json:"event_type"`
	Topic      string `json:"topic,omitempty"`
	Mission    string `json:"mission,omitempty"`
	Submission string `json:"submission,omitempty"`
	Feedback   string `json:"feedback,omitempty"`
	Score      *int   `json:"score,omitempty"`
	Parsed     *bool  `json:"parsed,omitempty"`
	XP         *int   `json:"xp,omitempty"`
	Rank       string `json:"rank,omitempty"`
}

// ConversationLogger accepts events without blocking the caller.
type ConversationLogger interface {
	Log(event ConversationLogEvent)
	Close() error
}

// ConversationLogConfig controls NDJSON conversation logging.
type ConversationLogConfig struct {
	Enabled   bool
	Dir       string
	QueueSize int
}

// NewConversationLogger returns a file-backed logger, or a no-op logger when
// logging is disabled.
func NewConversationLogger(cfg ConversationLogConfig, logger *slog.Logger) (ConversationLogger, error) {
	if !cfg.Enabled {
		return NoopLogger{}, nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Dir == "" {
		return nil, fmt.Errorf("conversation log dir cannot be empty")
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1000
	}
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("create conversation log dir: %w", err)
	}

	l := &fileLogger{
		dir:    cfg.Dir,
		queue:  make(chan ConversationLogEvent, cfg.QueueSize),
		done:   make(chan struct{}),
		logger: logger,
	}
	go l.run()
	return l, nil
}

// NoopLogger discards every event.
type NoopLogger struct{}

// Log discards event.
func (NoopLogger) Log(ConversationLogEvent) {}

// Close does nothing.
func (NoopLogger) Close() error { return nil }

type fileLogger struct {
	dir    string
	queue  chan ConversationLogEvent
	done   chan struct{}
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
}

func (l *fileLogger) Log(event ConversationLogEvent) {
	if event.Timestamp == "" {
		event.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return
	}
	select {
	case l.queue <- event:
	default:
		l.logger.Warn("Conversation log queue full, dropping event",
			"user_id", event.UserID,
			"event_type", event.EventType,
		)
	}
}

func (l *fileLogger) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	close(l.queue)
	l.mu.Unlock()

	<-l.done
	return nil
}

func (l *fileLogger) run() {
	defer close(l.done)
	for event := range l.queue {
		if err := l.write(event); err != nil {
			l.logger.Warn("Failed to write conversation log event", "error", err, "user_id", event.UserID)
		}
	}
}

func (l *fileLogger) write(event ConversationLogEvent) error {
	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	path := filepath.Join(l.dir, strconv.FormatInt(event.UserID, 10)+".ndjson")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		_ = f.Close()
		return fmt.Errorf("append log line: %w", err)
	}
	return f.Close()
}
