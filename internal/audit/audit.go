// Package audit delivers human-readable audit events to operator channels.
// Delivery is fire-and-forget: a failing channel is reported to the process
// log and never surfaces to the caller.
package audit

import (
	"context"
	"strings"
	"sync"
	"time"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelWarn    Level = "warn"
	LevelError   Level = "error"
	LevelSuccess Level = "success"
	LevelAction  Level = "action"
)

// Sink is the contract the application layer logs audit events through.
type Sink interface {
	Log(title, message string, level Level)
}

type Entry struct {
	Title   string
	Message string
	Level   Level
	At      time.Time
}

// Target is one delivery channel (webhook, chat, ...).
type Target interface {
	Name() string
	Send(ctx context.Context, e Entry) error
}

type Logger interface {
	Error(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Info(format string, v ...interface{})
	Debug(format string, v ...interface{})
}

const (
	defaultQueueSize   = 256
	defaultSendTimeout = 10 * time.Second
)

// Dispatcher queues entries and fans them out to every target from a single
// worker goroutine.
type Dispatcher struct {
	targets     []Target
	logger      Logger
	queue       chan Entry
	sendTimeout time.Duration
	now         func() time.Time

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func NewDispatcher(logger Logger, targets ...Target) *Dispatcher {
	return &Dispatcher{
		targets:     targets,
		logger:      logger,
		queue:       make(chan Entry, defaultQueueSize),
		sendTimeout: defaultSendTimeout,
		now:         time.Now,
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Log never blocks. When the queue is full the entry only reaches the process log.
func (d *Dispatcher) Log(title, message string, level Level) {
	d.logger.Info("[%s] %s: %s", strings.ToUpper(string(level)), title, message)

	e := Entry{Title: title, Message: message, Level: level, At: d.now()}
	select {
	case d.queue <- e:
	default:
		d.logger.Warn("audit queue full, dropped %q", title)
	}
}

func (d *Dispatcher) Init() error {
	return nil
}

// Run delivers queued entries until ctx is cancelled or Stop is called, then
// drains what is left.
func (d *Dispatcher) Run(ctx context.Context) {
	defer close(d.done)
	for {
		select {
		case e := <-d.queue:
			d.deliver(ctx, e)
		case <-ctx.Done():
			d.drain(context.Background())
			return
		case <-d.stop:
			d.drain(context.Background())
			return
		}
	}
}

func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() { close(d.stop) })
}

// wait blocks until Run has returned.
func (d *Dispatcher) wait() {
	<-d.done
}

func (d *Dispatcher) drain(ctx context.Context) {
	for {
		select {
		case e := <-d.queue:
			d.deliver(ctx, e)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, e Entry) {
	for _, t := range d.targets {
		sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
		if err := t.Send(sendCtx, e); err != nil {
			d.logger.Error("failed to send audit entry to %s: %v", t.Name(), err)
		}
		cancel()
	}
}

// Nop discards every entry.
type Nop struct{}

func (Nop) Log(string, string, Level) {}
