package feeds

import (
	"context"
	"fmt"
	"sync"

	"newsmint/logger"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler periodically imports a fixed set of feeds
type Scheduler struct {
	importer *Importer
	cron     *cron.Cron
	feeds    []string
	address  string
	count    int
	log      *zap.Logger

	mu      sync.Mutex
	running bool
}

// NewScheduler creates a scheduler importing feeds on behalf of address
func NewScheduler(importer *Importer, feeds []string, address string, count int, log *zap.Logger) *Scheduler {
	return &Scheduler{
		importer: importer,
		cron:     cron.New(),
		feeds:    feeds,
		address:  address,
		count:    count,
		log:      logger.OrNop(log),
	}
}

// Start registers the job with a standard five-field cron schedule and starts the scheduler
func (s *Scheduler) Start(ctx context.Context, schedule string) error {
	_, err := s.cron.AddFunc(schedule, func() { s.RunOnce(ctx) })
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}
	s.cron.Start()
	s.log.Info("feed import scheduled", zap.String("schedule", schedule), zap.Strings("feeds", s.feeds))
	return nil
}

// RunOnce imports every configured feed. A run still in progress makes it a no-op.
func (s *Scheduler) RunOnce(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.log.Info("feed import skipped: previous run still busy")
		return
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	for _, feed := range s.feeds {
		if ctx.Err() != nil {
			return
		}
		if _, err := s.importer.Import(ctx, feed, s.address, s.count); err != nil {
			s.log.Error("scheduled feed import failed", zap.String("feed", feed), zap.Error(err))
		}
	}
}

// Stop stops the scheduler and waits for a running import to finish
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
