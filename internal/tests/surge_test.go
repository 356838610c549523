package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/service"
)

// stubLocator returns a fixed candidate set; surge only counts them.
type stubLocator struct {
	candidates []service.Candidate
	err        error
}

func (s *stubLocator) FindCandidates(ctx context.Context, lat, lng, radiusKm float64, limit int) ([]service.Candidate, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.candidates, nil
}

func openJobAt(id string, lat, lng float64) *domain.Job {
	return &domain.Job{
		ID:        id,
		PickupLat: lat,
		PickupLng: lng,
		Status:    domain.JobStatusUnassigned,
		CreatedAt: time.Now(),
	}
}

func TestSurge_NoDemandNoSurge(t *testing.T) {
	jobRepo := NewMockJobRepository()
	locator := &stubLocator{candidates: []service.Candidate{{CourierID: "courier-1"}}}

	svc := service.NewSurgeService(locator, jobRepo, service.DefaultSurgeConfig())

	got := svc.GetMultiplier(context.Background(), 19.0760, 72.8777)
	if got != 1.0 {
		t.Errorf("expected 1.0 with no open jobs, got %f", got)
	}
}

func TestSurge_DemandWithoutSupply(t *testing.T) {
	jobRepo := NewMockJobRepository()
	jobRepo.AddJob(openJobAt("job-1", 19.0760, 72.8777))
	locator := &stubLocator{candidates: []service.Candidate{}}

	svc := service.NewSurgeService(locator, jobRepo, service.DefaultSurgeConfig())

	got := svc.GetMultiplier(context.Background(), 19.0760, 72.8777)
	if got != 2.0 {
		t.Errorf("expected the no-supply multiplier 2.0, got %f", got)
	}
}

func TestSurge_DemandOverSupplyRatio(t *testing.T) {
	jobRepo := NewMockJobRepository()
	jobRepo.AddJob(openJobAt("job-1", 19.0760, 72.8777))
	jobRepo.AddJob(openJobAt("job-2", 19.0770, 72.8780))
	locator := &stubLocator{candidates: []service.Candidate{{CourierID: "courier-1"}}}

	svc := service.NewSurgeService(locator, jobRepo, service.DefaultSurgeConfig())

	// 2 jobs / 1 courier: 1.0 + 0.5 * 2 = 2.0
	got := svc.GetMultiplier(context.Background(), 19.0760, 72.8777)
	if got != 2.0 {
		t.Errorf("expected 2.0 for ratio 2, got %f", got)
	}
}

func TestSurge_BalancedAreaStaysLow(t *testing.T) {
	jobRepo := NewMockJobRepository()
	jobRepo.AddJob(openJobAt("job-1", 19.0760, 72.8777))
	locator := &stubLocator{candidates: []service.Candidate{
		{CourierID: "courier-1"}, {CourierID: "courier-2"},
	}}

	svc := service.NewSurgeService(locator, jobRepo, service.DefaultSurgeConfig())

	// 1 job / 2 couriers: 1.0 + 0.5 * 0.5 = 1.25
	got := svc.GetMultiplier(context.Background(), 19.0760, 72.8777)
	if got != 1.25 {
		t.Errorf("expected 1.25, got %f", got)
	}
}

func TestSurge_CapsAtMaxMultiplier(t *testing.T) {
	jobRepo := NewMockJobRepository()
	for i := 0; i < 10; i++ {
		jobRepo.AddJob(openJobAt("job-"+string(rune('a'+i)), 19.0760, 72.8777))
	}
	locator := &stubLocator{candidates: []service.Candidate{{CourierID: "courier-1"}}}

	svc := service.NewSurgeService(locator, jobRepo, service.DefaultSurgeConfig())

	got := svc.GetMultiplier(context.Background(), 19.0760, 72.8777)
	if got != 3.0 {
		t.Errorf("expected cap of 3.0, got %f", got)
	}
}

func TestSurge_IgnoresDistantJobs(t *testing.T) {
	jobRepo := NewMockJobRepository()
	// Roughly 55 km north of the pickup, far outside the surge radius.
	jobRepo.AddJob(openJobAt("job-far", 19.5760, 72.8777))
	locator := &stubLocator{candidates: []service.Candidate{}}

	svc := service.NewSurgeService(locator, jobRepo, service.DefaultSurgeConfig())

	got := svc.GetMultiplier(context.Background(), 19.0760, 72.8777)
	if got != 1.0 {
		t.Errorf("expected 1.0 when demand is out of area, got %f", got)
	}
}

func TestSurge_FailsOpenOnStoreError(t *testing.T) {
	jobRepo := NewMockJobRepository()
	jobRepo.GetError = errors.New("database down")
	locator := &stubLocator{candidates: []service.Candidate{}}

	svc := service.NewSurgeService(locator, jobRepo, service.DefaultSurgeConfig())

	got := svc.GetMultiplier(context.Background(), 19.0760, 72.8777)
	if got != 1.0 {
		t.Errorf("expected fail-open multiplier 1.0, got %f", got)
	}
}

func TestSurge_FailsOpenOnLocatorError(t *testing.T) {
	jobRepo := NewMockJobRepository()
	jobRepo.AddJob(openJobAt("job-1", 19.0760, 72.8777))
	locator := &stubLocator{err: errors.New("redis down")}

	svc := service.NewSurgeService(locator, jobRepo, service.DefaultSurgeConfig())

	got := svc.GetMultiplier(context.Background(), 19.0760, 72.8777)
	if got != 1.0 {
		t.Errorf("expected fail-open multiplier 1.0, got %f", got)
	}
}
