package audit

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Package audit keeps an append-only trail of engine operations: which
// model version was trained or scored, for which tenant, and how it ended.
// The trail is separate from the application log so it can be retained and
// shipped on its own rotation schedule.

// Trail records audit events.
type Trail interface {
	Record(event *Event) error
	Sync() error
	Close() error
}

// Config configures the trail's log file and rotation.
type Config struct {
	Path       string // empty disables the trail
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// fileTrail buffers events and flushes them to a rotating JSON log.
type fileTrail struct {
	log *zap.Logger

	mu          sync.Mutex
	buffer      []*Event
	flushTicker *time.Ticker
	stopCh      chan struct{}
	stopped     bool
}

// flushThreshold forces a flush when the buffer fills between ticks.
const flushThreshold = 100

// NewTrail opens the audit trail. An empty path returns a no-op trail.
func NewTrail(cfg Config) (Trail, error) {
	if cfg.Path == "" {
		return nopTrail{}, nil
	}

	rotator := &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		MessageKey:     "event",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
	}
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(rotator),
		zapcore.InfoLevel,
	)

	t := &fileTrail{
		log:         zap.New(core),
		buffer:      make([]*Event, 0, flushThreshold),
		flushTicker: time.NewTicker(1 * time.Second),
		stopCh:      make(chan struct{}),
	}
	go t.autoFlush()
	return t, nil
}

// Record buffers the event; it is written at the next flush.
func (t *fileTrail) Record(event *Event) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.buffer = append(t.buffer, event)
	if len(t.buffer) >= flushThreshold {
		return t.flushLocked()
	}
	return nil
}

func (t *fileTrail) flushLocked() error {
	if len(t.buffer) == 0 {
		return nil
	}
	for _, event := range t.buffer {
		payload, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("marshal audit event %s: %w", event.EventType, err)
		}
		t.log.Info(string(payload),
			zap.String("event_type", string(event.EventType)),
			zap.String("result", string(event.Result)))
	}
	t.buffer = t.buffer[:0]
	return nil
}

func (t *fileTrail) autoFlush() {
	for {
		select {
		case <-t.flushTicker.C:
			t.mu.Lock()
			_ = t.flushLocked()
			t.mu.Unlock()
		case <-t.stopCh:
			return
		}
	}
}

// Sync flushes buffered events to disk.
func (t *fileTrail) Sync() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.flushLocked(); err != nil {
		return err
	}
	return t.log.Sync()
}

// Close flushes and stops the background flusher.
func (t *fileTrail) Close() error {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return nil
	}
	t.stopped = true
	t.mu.Unlock()

	close(t.stopCh)
	t.flushTicker.Stop()
	return t.Sync()
}

// nopTrail discards everything; used when auditing is not configured.
type nopTrail struct{}

func (nopTrail) Record(*Event) error { return nil }
func (nopTrail) Sync() error         { return nil }
func (nopTrail) Close() error        { return nil }
