// Package scheduler runs a task once on start and then on a fixed interval.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

type Logger interface {
	Error(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Info(format string, v ...interface{})
	Debug(format string, v ...interface{})
}

type Task func(ctx context.Context) error

// ErrSkipped may be returned by a Task that chose not to run; it is logged at
// debug level only.
var ErrSkipped = errors.New("skipped")

type Scheduler struct {
	name     string
	interval time.Duration
	task     Task
	clock    clockwork.Clock
	logger   Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func New(name string, interval time.Duration, task Task, clock clockwork.Clock, logger Logger) *Scheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Scheduler{
		name:     name,
		interval: interval,
		task:     task,
		clock:    clock,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

func (s *Scheduler) Init() error {
	if s.interval <= 0 {
		return fmt.Errorf("scheduler %s: interval must be positive, got %s", s.name, s.interval)
	}
	if s.task == nil {
		return fmt.Errorf("scheduler %s: no task", s.name)
	}
	return nil
}

// Run blocks until ctx is done or Stop is called.
func (s *Scheduler) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	defer close(s.done)
	defer cancel()

	s.logger.Info("Scheduler %s started, interval %s", s.name, s.interval)

	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	s.fire(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler %s stopped", s.name)
			return
		case <-ticker.Chan():
			s.fire(ctx)
		}
	}
}

func (s *Scheduler) fire(ctx context.Context) {
	err := s.task(ctx)
	switch {
	case err == nil:
	case errors.Is(err, ErrSkipped):
		s.logger.Debug("Scheduler %s: run skipped", s.name)
	case ctx.Err() != nil:
		s.logger.Debug("Scheduler %s: run cancelled: %v", s.name, err)
	default:
		s.logger.Error("Scheduler %s: run failed: %v", s.name, err)
	}
}

// Stop cancels the loop and waits for an in-flight run to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-s.done
}
