package tests

import (
	"context"
	"math"
	"testing"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/service"
)

const (
	pickupLat = 19.0760
	pickupLng = 72.8777

	// One degree of latitude is ~111.19 km; offsets below place couriers
	// at known straight-line distances from the pickup.
	degPerKm = 1.0 / 111.194
)

type locatorFixture struct {
	locationStore *MockLocationStore
	courierRepo   *MockCourierRepository
	jobRepo       *MockJobRepository
	locator       *service.LocatorService
}

func newLocatorFixture() *locatorFixture {
	f := &locatorFixture{
		locationStore: NewMockLocationStore(),
		courierRepo:   NewMockCourierRepository(),
		jobRepo:       NewMockJobRepository(),
	}
	f.locator = service.NewLocatorService(f.locationStore, nil, f.courierRepo, f.jobRepo, 10*time.Minute)
	return f
}

// addCourier registers an active courier at a given distance north of the
// pickup with a fresh location sample.
func (f *locatorFixture) addCourier(id string, distanceKm float64, seen time.Time) {
	f.courierRepo.AddCourier(&domain.Courier{
		ID:         id,
		Name:       "Courier " + id,
		ShiftState: domain.ShiftStateActive,
	})
	f.locationStore.SetPosition(id, pickupLat+distanceKm*degPerKm, pickupLng, seen)
}

func TestCourierLocator_OrdersByDistanceWithinRadius(t *testing.T) {
	f := newLocatorFixture()
	now := time.Now()

	f.addCourier("courier-far", 6.0, now)
	f.addCourier("courier-near", 1.2, now)
	f.addCourier("courier-mid", 3.4, now)

	candidates, err := f.locator.FindCandidates(context.Background(), pickupLat, pickupLng, 5.0, 0)
	if err != nil {
		t.Fatalf("failed to find candidates: %v", err)
	}

	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates inside 5 km, got %d", len(candidates))
	}
	if candidates[0].CourierID != "courier-near" || candidates[1].CourierID != "courier-mid" {
		t.Errorf("expected [courier-near, courier-mid], got [%s, %s]",
			candidates[0].CourierID, candidates[1].CourierID)
	}
	if math.Abs(candidates[0].DistanceKm-1.2) > 0.05 {
		t.Errorf("expected ~1.2 km for first candidate, got %f", candidates[0].DistanceKm)
	}
	if math.Abs(candidates[1].DistanceKm-3.4) > 0.05 {
		t.Errorf("expected ~3.4 km for second candidate, got %f", candidates[1].DistanceKm)
	}
}

func TestCourierLocator_FiltersStaleSamples(t *testing.T) {
	f := newLocatorFixture()
	now := time.Now()

	f.addCourier("courier-fresh", 1.0, now.Add(-2*time.Minute))
	f.addCourier("courier-stale", 0.5, now.Add(-15*time.Minute))

	candidates, err := f.locator.FindCandidates(context.Background(), pickupLat, pickupLng, 5.0, 0)
	if err != nil {
		t.Fatalf("failed to find candidates: %v", err)
	}

	if len(candidates) != 1 {
		t.Fatalf("expected only the fresh courier, got %d candidates", len(candidates))
	}
	if candidates[0].CourierID != "courier-fresh" {
		t.Errorf("expected courier-fresh, got %s", candidates[0].CourierID)
	}
}

func TestCourierLocator_FiltersOffShiftCouriers(t *testing.T) {
	f := newLocatorFixture()
	now := time.Now()

	f.addCourier("courier-active", 2.0, now)
	f.addCourier("courier-paused", 1.0, now)
	f.addCourier("courier-ended", 0.5, now)
	f.courierRepo.GetCourier("courier-paused").ShiftState = domain.ShiftStatePaused
	f.courierRepo.GetCourier("courier-ended").ShiftState = domain.ShiftStateEnded

	candidates, err := f.locator.FindCandidates(context.Background(), pickupLat, pickupLng, 5.0, 0)
	if err != nil {
		t.Fatalf("failed to find candidates: %v", err)
	}

	if len(candidates) != 1 {
		t.Fatalf("expected only the active courier, got %d candidates", len(candidates))
	}
	if candidates[0].CourierID != "courier-active" {
		t.Errorf("expected courier-active, got %s", candidates[0].CourierID)
	}
}

func TestCourierLocator_FiltersBusyCouriers(t *testing.T) {
	f := newLocatorFixture()
	now := time.Now()

	f.addCourier("courier-free", 2.0, now)
	f.addCourier("courier-busy", 1.0, now)
	f.jobRepo.AddJob(&domain.Job{
		ID:                "job-active",
		Status:            domain.JobStatusAssigned,
		AssignedCourierID: "courier-busy",
		CreatedAt:         now,
	})

	candidates, err := f.locator.FindCandidates(context.Background(), pickupLat, pickupLng, 5.0, 0)
	if err != nil {
		t.Fatalf("failed to find candidates: %v", err)
	}

	if len(candidates) != 1 {
		t.Fatalf("expected only the free courier, got %d candidates", len(candidates))
	}
	if candidates[0].CourierID != "courier-free" {
		t.Errorf("expected courier-free, got %s", candidates[0].CourierID)
	}
}

func TestCourierLocator_TieBreakOnCourierID(t *testing.T) {
	f := newLocatorFixture()
	now := time.Now()

	// Same position: ordering must still be deterministic.
	f.addCourier("courier-b", 2.0, now)
	f.addCourier("courier-a", 2.0, now)

	candidates, err := f.locator.FindCandidates(context.Background(), pickupLat, pickupLng, 5.0, 0)
	if err != nil {
		t.Fatalf("failed to find candidates: %v", err)
	}

	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(candidates))
	}
	if candidates[0].CourierID != "courier-a" || candidates[1].CourierID != "courier-b" {
		t.Errorf("expected ID tie-break [courier-a, courier-b], got [%s, %s]",
			candidates[0].CourierID, candidates[1].CourierID)
	}
}

func TestCourierLocator_LimitCapsResults(t *testing.T) {
	f := newLocatorFixture()
	now := time.Now()

	f.addCourier("courier-1", 1.0, now)
	f.addCourier("courier-2", 2.0, now)
	f.addCourier("courier-3", 3.0, now)

	candidates, err := f.locator.FindCandidates(context.Background(), pickupLat, pickupLng, 5.0, 2)
	if err != nil {
		t.Fatalf("failed to find candidates: %v", err)
	}

	if len(candidates) != 2 {
		t.Fatalf("expected the cap of 2 candidates, got %d", len(candidates))
	}
	if candidates[0].CourierID != "courier-1" || candidates[1].CourierID != "courier-2" {
		t.Errorf("expected the two nearest couriers, got [%s, %s]",
			candidates[0].CourierID, candidates[1].CourierID)
	}
}

func TestCourierLocator_EmptyAreaIsNotAnError(t *testing.T) {
	f := newLocatorFixture()

	candidates, err := f.locator.FindCandidates(context.Background(), pickupLat, pickupLng, 5.0, 0)
	if err != nil {
		t.Fatalf("expected no error for an empty area, got %v", err)
	}
	if len(candidates) != 0 {
		t.Errorf("expected no candidates, got %d", len(candidates))
	}
}

func TestCourierLocator_SkipsUnknownCouriers(t *testing.T) {
	f := newLocatorFixture()
	now := time.Now()

	// Position in the geo index but no courier record behind it.
	f.locationStore.SetPosition("courier-ghost", pickupLat, pickupLng, now)
	f.addCourier("courier-real", 1.0, now)

	candidates, err := f.locator.FindCandidates(context.Background(), pickupLat, pickupLng, 5.0, 0)
	if err != nil {
		t.Fatalf("failed to find candidates: %v", err)
	}

	if len(candidates) != 1 || candidates[0].CourierID != "courier-real" {
		t.Errorf("expected only courier-real, got %d candidates", len(candidates))
	}
}
