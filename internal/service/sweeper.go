package service

import (
	"context"
	"errors"
	"log"
	"time"
)

const defaultSweepInterval = 30 * time.Second

// Reofferer is the slice of the orchestrator the sweeper depends on.
type Reofferer interface {
	Reoffer(ctx context.Context, jobID string) (*AssignResult, error)
}

// Ensure AssignmentService implements Reofferer.
var _ Reofferer = (*AssignmentService)(nil)

// ExpirySweeper periodically marks overdue SENT offers EXPIRED and
// triggers replacement rounds for their jobs. Without it a job whose
// offers nobody ever touched would stall forever; expiry checking at the
// point of courier action alone is not enough.
type ExpirySweeper struct {
	offers   *OfferService
	reoffer  Reofferer
	interval time.Duration
}

// NewExpirySweeper creates a new ExpirySweeper. interval <= 0 uses the
// 30 second default.
func NewExpirySweeper(offers *OfferService, reoffer Reofferer, interval time.Duration) *ExpirySweeper {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &ExpirySweeper{
		offers:   offers,
		reoffer:  reoffer,
		interval: interval,
	}
}

// Run sweeps on the configured interval until the context is cancelled.
func (s *ExpirySweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce runs a single sweep pass.
func (s *ExpirySweeper) SweepOnce(ctx context.Context) {
	expired, err := s.offers.SweepExpired(ctx)
	if err != nil {
		log.Printf("[SWEEP] expiry sweep failed: %v", err)
		return
	}

	// Several offers may belong to one job; reoffer once per job.
	jobs := make(map[string]bool, len(expired))
	for _, offer := range expired {
		jobs[offer.JobID] = true
	}

	for jobID := range jobs {
		if _, err := s.reoffer.Reoffer(ctx, jobID); err != nil {
			if errors.Is(err, ErrAssignmentInProgress) {
				continue // Another round already owns the job.
			}
			log.Printf("[SWEEP] reoffer failed for job %s: %v", jobID, err)
		}
	}
}
