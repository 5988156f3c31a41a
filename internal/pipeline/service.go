// internal/pipeline/service.go
package pipeline

import (
	"context"
	"fmt"

	"github.com/meridianledger/meridian-go/pkg/service"
)

// Service wraps the Pipeline as a managed service.
type Service struct {
	pipeline *Pipeline
	status   service.Status
}

// NewService creates a new pipeline service wrapper.
func NewService(pipeline *Pipeline) *Service {
	return &Service{
		pipeline: pipeline,
		status:   service.StatusStopped,
	}
}

// Name returns the service name.
func (s *Service) Name() string {
	return "submission-pipeline"
}

// Start initializes and starts the service.
func (s *Service) Start(ctx context.Context) error {
	s.status = service.StatusStarting

	go s.pipeline.Start()

	s.status = service.StatusRunning
	return nil
}

// Stop gracefully shuts down the service. The pipeline itself stops via
// context cancellation, handled by the daemon main.
func (s *Service) Stop(ctx context.Context) error {
	s.status = service.StatusStopping
	s.status = service.StatusStopped
	return nil
}

// Status returns the current service status.
func (s *Service) Status() service.Status {
	return s.status
}

// Health performs a health check.
func (s *Service) Health() error {
	if s.status != service.StatusRunning {
		return fmt.Errorf("service not running")
	}
	return s.pipeline.journal.Ping(context.Background())
}

// Dependencies returns a list of services this service depends on.
func (s *Service) Dependencies() []string {
	return []string{}
}
