package services

import (
	"context"
	"log"
	"time"
)

// QualificationSweeper periodically emits qualifications a failed notification
// write left behind, and resets monthly revenue when a new month starts.
type QualificationSweeper struct {
	engine   *QualificationService
	interval time.Duration
	now      func() time.Time
}

func NewQualificationSweeper(engine *QualificationService, interval time.Duration) *QualificationSweeper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &QualificationSweeper{engine: engine, interval: interval, now: time.Now}
}

// Tick runs one sweep pass. It reports how many qualifications were emitted.
func (s *QualificationSweeper) Tick(ctx context.Context) int {
	month := s.now().UTC().Format("2006-01")
	reset, n, err := s.engine.StartRevenueMonth(ctx, month)
	if err != nil {
		log.Printf("Failed to start revenue month %s: %v", month, err)
	} else if reset {
		log.Printf("Monthly revenue reset for %d marketers (%s)", n, month)
	}

	emitted, err := s.engine.SweepQualifications(ctx)
	if err != nil {
		log.Printf("Qualification sweep error: %v", err)
	}
	if emitted > 0 {
		log.Printf("Qualification sweep emitted %d missing notifications", emitted)
	}
	return emitted
}

// Run blocks until ctx is cancelled.
func (s *QualificationSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}
