// internal/gateway/service.go
package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/meridianledger/meridian-go/pkg/service"
)

// Service wraps the gateway Server as a managed service. The listen
// goroutine reports failure through status, so status access is guarded.
type Service struct {
	server *Server

	mu     sync.RWMutex
	status service.Status
}

// NewService creates a new gateway service wrapper.
func NewService(server *Server) *Service {
	return &Service{
		server: server,
		status: service.StatusStopped,
	}
}

// Name returns the service name.
func (s *Service) Name() string {
	return "gateway"
}

// Start initializes and starts the service.
func (s *Service) Start(ctx context.Context) error {
	s.setStatus(service.StatusStarting)

	go func() {
		if err := s.server.Start(); err != nil {
			s.setStatus(service.StatusError)
		}
	}()

	s.setStatus(service.StatusRunning)
	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop(ctx context.Context) error {
	s.setStatus(service.StatusStopping)

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		s.setStatus(service.StatusError)
		return err
	}

	s.setStatus(service.StatusStopped)
	return nil
}

// Status returns the current service status.
func (s *Service) Status() service.Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Health performs a health check.
func (s *Service) Health() error {
	if s.Status() != service.StatusRunning {
		return fmt.Errorf("service not running")
	}
	return nil
}

func (s *Service) setStatus(status service.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

// Dependencies returns a list of services this service depends on.
func (s *Service) Dependencies() []string {
	return []string{"submission-pipeline"}
}
