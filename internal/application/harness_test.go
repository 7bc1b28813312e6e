package application_test

import (
	"sync"
	"time"

	"crystaltides/internal/application"
	"crystaltides/internal/audit"
	"crystaltides/internal/metrics"
	"crystaltides/internal/repository"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
)

type nopLogger struct{}

func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Debug(string, ...interface{}) {}

type recordingSink struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (r *recordingSink) Log(title, message string, level audit.Level) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, audit.Entry{Title: title, Message: message, Level: level})
}

func (r *recordingSink) Entries() []audit.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]audit.Entry(nil), r.entries...)
}

func (r *recordingSink) Titles() []string {
	var out []string
	for _, e := range r.Entries() {
		out = append(out, e.Title)
	}
	return out
}

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type harness struct {
	clock *clockwork.FakeClock
	repos *repository.Repository
	sink  *recordingSink
	codes *application.LinkCodeServiceImpl
	links *application.LinkServiceImpl
}

func newHarness() *harness {
	h := &harness{
		clock: clockwork.NewFakeClockAt(epoch),
		repos: repository.NewMemoryRepository(),
		sink:  &recordingSink{},
	}
	m := metrics.New(prometheus.NewRegistry())
	h.codes = application.NewLinkCodeServiceImpl(h.repos.LinkCode, application.LinkCodeConfig{}, h.clock, m, nopLogger{})
	h.links = application.NewLinkServiceImpl(h.codes, h.repos.Identity, h.clock, h.sink, m, nopLogger{})
	return h
}
