package tests

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"dispatch/internal/domain"
	"dispatch/internal/service"
)

func sentOffer(id, jobID, courierID string, expiresAt time.Time) *domain.Offer {
	return &domain.Offer{
		ID:        id,
		JobID:     jobID,
		CourierID: courierID,
		Earnings: domain.Earnings{
			Total: decimal.RequireFromString("20.30"),
		},
		Status:    domain.OfferStatusSent,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
}

func TestOfferDecline_ResolvesOffer(t *testing.T) {
	offerRepo := NewMockOfferRepository()
	offerRepo.AddOffer(sentOffer("offer-1", "job-1", "courier-1", time.Now().Add(5*time.Minute)))

	svc := service.NewOfferService(offerRepo, 5*time.Minute)

	declined, err := svc.Decline(context.Background(), "offer-1", "courier-1", "too far", "TOO_FAR")
	if err != nil {
		t.Fatalf("failed to decline offer: %v", err)
	}

	if declined.Status != domain.OfferStatusDeclined {
		t.Errorf("expected status DECLINED, got %s", declined.Status)
	}
	if declined.DeclineReason != "too far" || declined.DeclineCode != "TOO_FAR" {
		t.Errorf("expected decline reason to be stored, got %q/%q", declined.DeclineReason, declined.DeclineCode)
	}
	if declined.ResolvedAt.IsZero() {
		t.Error("expected ResolvedAt to be stamped")
	}

	stored := offerRepo.GetOffer("offer-1")
	if stored.Status != domain.OfferStatusDeclined {
		t.Errorf("expected persisted status DECLINED, got %s", stored.Status)
	}
}

func TestOfferDecline_WrongCourier(t *testing.T) {
	offerRepo := NewMockOfferRepository()
	offerRepo.AddOffer(sentOffer("offer-1", "job-1", "courier-1", time.Now().Add(5*time.Minute)))

	svc := service.NewOfferService(offerRepo, 5*time.Minute)

	_, err := svc.Decline(context.Background(), "offer-1", "courier-other", "", "")
	if !errors.Is(err, service.ErrOfferNotOwned) {
		t.Fatalf("expected ErrOfferNotOwned, got %v", err)
	}

	if offerRepo.GetOffer("offer-1").Status != domain.OfferStatusSent {
		t.Error("offer must remain SENT after a foreign decline attempt")
	}
}

func TestOfferDecline_AlreadyResolved(t *testing.T) {
	offerRepo := NewMockOfferRepository()
	offer := sentOffer("offer-1", "job-1", "courier-1", time.Now().Add(5*time.Minute))
	offer.Status = domain.OfferStatusCancelled
	offerRepo.AddOffer(offer)

	svc := service.NewOfferService(offerRepo, 5*time.Minute)

	_, err := svc.Decline(context.Background(), "offer-1", "courier-1", "", "")
	if !errors.Is(err, service.ErrOfferAlreadyResolved) {
		t.Fatalf("expected ErrOfferAlreadyResolved, got %v", err)
	}
}

func TestOfferDecline_ExpiredOfferIsLazilyExpired(t *testing.T) {
	offerRepo := NewMockOfferRepository()
	offerRepo.AddOffer(sentOffer("offer-1", "job-1", "courier-1", time.Now().Add(-time.Minute)))

	svc := service.NewOfferService(offerRepo, 5*time.Minute)

	_, err := svc.Decline(context.Background(), "offer-1", "courier-1", "", "")
	if !errors.Is(err, service.ErrOfferExpired) {
		t.Fatalf("expected ErrOfferExpired, got %v", err)
	}

	// The courier action observed the expiry; the transition is persisted.
	if got := offerRepo.GetOffer("offer-1").Status; got != domain.OfferStatusExpired {
		t.Errorf("expected persisted status EXPIRED, got %s", got)
	}
}

func TestOfferSweep_ExpiresOverdueOffers(t *testing.T) {
	offerRepo := NewMockOfferRepository()
	offerRepo.AddOffer(sentOffer("offer-old", "job-1", "courier-1", time.Now().Add(-time.Minute)))
	offerRepo.AddOffer(sentOffer("offer-live", "job-1", "courier-2", time.Now().Add(5*time.Minute)))

	svc := service.NewOfferService(offerRepo, 5*time.Minute)

	expired, err := svc.SweepExpired(context.Background())
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}

	if len(expired) != 1 || expired[0].ID != "offer-old" {
		t.Fatalf("expected only offer-old to expire, got %d offers", len(expired))
	}
	if offerRepo.GetOffer("offer-old").Status != domain.OfferStatusExpired {
		t.Error("expected offer-old to be persisted EXPIRED")
	}
	if offerRepo.GetOffer("offer-live").Status != domain.OfferStatusSent {
		t.Error("expected offer-live to remain SENT")
	}
}

// recordingReofferer records sweep-triggered replacement rounds.
type recordingReofferer struct {
	mu     sync.Mutex
	jobIDs []string
	err    error
}

func (r *recordingReofferer) Reoffer(ctx context.Context, jobID string) (*service.AssignResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobIDs = append(r.jobIDs, jobID)
	return nil, r.err
}

func TestExpirySweeper_ReoffersOncePerJob(t *testing.T) {
	offerRepo := NewMockOfferRepository()
	// Two expired offers for the same job, one for another.
	offerRepo.AddOffer(sentOffer("offer-1", "job-a", "courier-1", time.Now().Add(-time.Minute)))
	offerRepo.AddOffer(sentOffer("offer-2", "job-a", "courier-2", time.Now().Add(-time.Minute)))
	offerRepo.AddOffer(sentOffer("offer-3", "job-b", "courier-3", time.Now().Add(-time.Minute)))

	offerSvc := service.NewOfferService(offerRepo, 5*time.Minute)
	reoffer := &recordingReofferer{}
	sweeper := service.NewExpirySweeper(offerSvc, reoffer, time.Second)

	sweeper.SweepOnce(context.Background())

	if len(reoffer.jobIDs) != 2 {
		t.Fatalf("expected one reoffer per job, got %d calls", len(reoffer.jobIDs))
	}
	seen := map[string]bool{}
	for _, id := range reoffer.jobIDs {
		seen[id] = true
	}
	if !seen["job-a"] || !seen["job-b"] {
		t.Errorf("expected reoffers for job-a and job-b, got %v", reoffer.jobIDs)
	}
}

func TestExpirySweeper_ToleratesBusyJobs(t *testing.T) {
	offerRepo := NewMockOfferRepository()
	offerRepo.AddOffer(sentOffer("offer-1", "job-a", "courier-1", time.Now().Add(-time.Minute)))

	offerSvc := service.NewOfferService(offerRepo, 5*time.Minute)
	reoffer := &recordingReofferer{err: service.ErrAssignmentInProgress}
	sweeper := service.NewExpirySweeper(offerSvc, reoffer, time.Second)

	// Must not panic or loop; the racing round owns the job.
	sweeper.SweepOnce(context.Background())

	if offerRepo.GetOffer("offer-1").Status != domain.OfferStatusExpired {
		t.Error("expected the offer to be expired even when reoffer is skipped")
	}
}
