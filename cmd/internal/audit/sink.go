// Package audit delivers audit entries to the append-only audit log in the background.
package audit

import (
	"context"
	"encoding/json"
	"runtime/debug"
	"slotwise/cmd/internal/domain/entity"
	"sync"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/labstack/gommon/log"
	"gorm.io/datatypes"
)

type Appender interface {
	Append(ctx context.Context, entry *entity.AuditLog) error
}

type Options struct {
	Buffer       int
	Attempts     uint
	Delay        time.Duration
	WriteTimeout time.Duration
}

func (o *Options) withDefaults() {
	if o.Buffer <= 0 {
		o.Buffer = 256
	}
	if o.Attempts == 0 {
		o.Attempts = 3
	}
	if o.Delay <= 0 {
		o.Delay = 100 * time.Millisecond
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 5 * time.Second
	}
}

// Sink queues entries and writes them from a single worker goroutine.
// Record never blocks: when the queue is full or the sink is closed the entry is dropped and logged.
type Sink struct {
	repo Appender
	opts Options

	mu     sync.RWMutex
	closed bool
	queue  chan *entity.AuditLog
	done   chan struct{}
}

func NewSink(repo Appender, opts Options) *Sink {
	opts.withDefaults()
	s := &Sink{
		repo:  repo,
		opts:  opts,
		queue: make(chan *entity.AuditLog, opts.Buffer),
		done:  make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *Sink) Record(action string, subjectID int, payload any) {
	var raw datatypes.JSON
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			log.Errorf("failed to encode audit payload for %s (subject %d): %v", action, subjectID, err)
			return
		}
		raw = data
	}
	entry := &entity.AuditLog{Action: action, SubjectID: subjectID, Payload: raw}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		log.Warnf("audit sink closed, dropping %s for subject %d", action, subjectID)
		return
	}
	select {
	case s.queue <- entry:
	default:
		log.Warnf("audit queue full, dropping %s for subject %d", action, subjectID)
	}
}

// Close stops accepting entries and waits for queued ones to be written, or for ctx to end.
func (s *Sink) Close(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Sink) run() {
	defer close(s.done)
	for entry := range s.queue {
		s.write(entry)
	}
}

func (s *Sink) write(entry *entity.AuditLog) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("audit writer panic for %s: %v, stack: %s", entry.Action, r, debug.Stack())
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), s.opts.WriteTimeout)
	defer cancel()

	err := retry.Do(
		func() error {
			entry.ID = 0
			return s.repo.Append(ctx, entry)
		},
		retry.Context(ctx),
		retry.Attempts(s.opts.Attempts),
		retry.Delay(s.opts.Delay),
		retry.DelayType(retry.BackOffDelay),
		retry.OnRetry(func(n uint, err error) {
			log.Debugf("retrying audit write %s (attempt %d): %v", entry.Action, n+1, err)
		}),
	)
	if err != nil {
		log.Errorf("failed to write audit entry %s for subject %d: %v", entry.Action, entry.SubjectID, err)
	}
}
