package service

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"
)

// ErrServiceExited is returned by Run when a service's Run returns before
// shutdown was requested.
var ErrServiceExited = errors.New("service exited unexpectedly")

type Logger interface {
	Error(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Info(format string, v ...interface{})
	Debug(format string, v ...interface{})
}

type (
	Service interface {
		Init() error
		Run(ctx context.Context)
		Stop()
	}
	Services interface {
		AddService(service ...Service)
		Run(ctx context.Context) error
	}
	Manager struct {
		log      Logger
		services []Service
	}
)

func NewManager(log Logger) Services {
	return &Manager{log: log}
}

func (s *Manager) AddService(service ...Service) {
	s.services = append(s.services, service...)
}

// Run initializes every service in order, runs them until ctx is done,
// SIGINT/SIGTERM arrives or one of them returns on its own, then stops them
// in reverse order and waits for their Run calls to return.
func (s *Manager) Run(ctx context.Context) error {
	ctx, stopSignals := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	s.log.Info("going to start services")
	for count, service := range s.services {
		if err := service.Init(); err != nil {
			for i := count - 1; i >= 0; i-- {
				s.services[i].Stop()
			}
			return fmt.Errorf("init service %d: %w", count, err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for count, service := range s.services {
		count, service := count, service
		g.Go(func() error {
			service.Run(gctx)
			if gctx.Err() != nil {
				return nil
			}
			s.log.Error("service %d (%T) exited before shutdown", count, service)
			return fmt.Errorf("%w: service %d (%T)", ErrServiceExited, count, service)
		})
	}

	<-gctx.Done()
	s.stop()
	return g.Wait()
}

func (s *Manager) stop() {
	s.log.Info("going to stop")
	for i := len(s.services) - 1; i >= 0; i-- {
		s.services[i].Stop()
	}
}
