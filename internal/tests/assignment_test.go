package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"dispatch/internal/domain"
	"dispatch/internal/service"
)

type dispatchFixture struct {
	jobRepo        *MockJobRepository
	offerRepo      *MockOfferRepository
	courierRepo    *MockCourierRepository
	ruleRepo       *MockRuleRepository
	locationStore  *MockLocationStore
	lockStore      *MockLockStore
	notifier       *MockNotifier
	assignmentRepo *MockAssignmentRepository
	assignment     *service.AssignmentService
}

func newDispatchFixture() *dispatchFixture {
	f := &dispatchFixture{
		jobRepo:       NewMockJobRepository(),
		offerRepo:     NewMockOfferRepository(),
		courierRepo:   NewMockCourierRepository(),
		ruleRepo:      NewMockRuleRepository(),
		locationStore: NewMockLocationStore(),
		lockStore:     NewMockLockStore(),
		notifier:      NewMockNotifier(),
	}
	f.assignmentRepo = NewMockAssignmentRepository(f.jobRepo, f.offerRepo)

	locator := service.NewLocatorService(f.locationStore, nil, f.courierRepo, f.jobRepo, 10*time.Minute)
	earnings := newEarningsService()
	offers := service.NewOfferService(f.offerRepo, 5*time.Minute)
	autoAccept := service.NewAutoAcceptService(f.ruleRepo)
	acceptance := service.NewAcceptanceService(f.assignmentRepo, f.lockStore, f.notifier)

	f.assignment = service.NewAssignmentService(
		locator,
		nil, // surge off: rounds price at 1.0
		earnings,
		offers,
		autoAccept,
		acceptance,
		f.jobRepo,
		f.offerRepo,
		f.lockStore,
		f.notifier,
		service.AssignConfig{
			InitialRadiusKm:           5,
			MaxRadiusKm:               20,
			MaxCandidates:             10,
			MaxEscalationSteps:        5,
			MaxOffersBeforeEscalation: 5,
		},
	)
	return f
}

// addJob seeds an unassigned job at the shared pickup point with a drop
// roughly 2 km east.
func (f *dispatchFixture) addJob(id string) {
	f.jobRepo.AddJob(&domain.Job{
		ID:        id,
		PickupLat: pickupLat,
		PickupLng: pickupLng,
		DropLat:   pickupLat,
		DropLng:   pickupLng + 2*degPerKm,
		BaseFee:   decimal.RequireFromString("5.00"),
		Tip:       decimal.RequireFromString("1.50"),
		Status:    domain.JobStatusUnassigned,
		CreatedAt: time.Now(),
	})
}

// addCourier registers an active courier at a given distance north of the
// pickup with a fresh location sample.
func (f *dispatchFixture) addCourier(id string, distanceKm float64) {
	f.courierRepo.AddCourier(&domain.Courier{
		ID:         id,
		Name:       "Courier " + id,
		ShiftState: domain.ShiftStateActive,
	})
	f.locationStore.SetPosition(id, pickupLat+distanceKm*degPerKm, pickupLng, time.Now())
}

func TestAssignment_CreatesOffersForNearbyCouriers(t *testing.T) {
	f := newDispatchFixture()
	f.addJob("job-1")
	f.addCourier("courier-near", 1.2)
	f.addCourier("courier-mid", 3.4)

	result, err := f.assignment.Assign(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("assignment failed: %v", err)
	}

	if result.Assigned {
		t.Error("expected no immediate assignment without auto-accept rules")
	}
	if result.OffersCreated != 2 {
		t.Errorf("expected 2 offers, got %d", result.OffersCreated)
	}
	if result.RadiusKm != 5 {
		t.Errorf("expected offers in the initial 5 km radius, got %f", result.RadiusKm)
	}
	if f.jobRepo.GetJob("job-1").Status != domain.JobStatusOffered {
		t.Errorf("expected job status OFFERED, got %s", f.jobRepo.GetJob("job-1").Status)
	}
	if got := len(f.notifier.CallsOfType("OFFER_DISPATCHED")); got != 2 {
		t.Errorf("expected 2 dispatch notifications, got %d", got)
	}

	offers := f.offerRepo.OffersForJob("job-1")
	if len(offers) != 2 {
		t.Fatalf("expected 2 persisted offers, got %d", len(offers))
	}
	for _, offer := range offers {
		if offer.Status != domain.OfferStatusSent {
			t.Errorf("expected offer %s to be SENT, got %s", offer.ID, offer.Status)
		}
		if offer.SurgeActive {
			t.Errorf("expected no surge on offer %s", offer.ID)
		}
		if offer.ExpiresAt.Before(offer.CreatedAt) {
			t.Errorf("offer %s expires before creation", offer.ID)
		}
	}
}

func TestAssignment_EscalatesByDoublingRadius(t *testing.T) {
	f := newDispatchFixture()
	f.addJob("job-1")
	f.addCourier("courier-outer", 8) // outside 5 km, inside 10 km

	result, err := f.assignment.Assign(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("assignment failed: %v", err)
	}

	if result.OffersCreated != 1 {
		t.Errorf("expected 1 offer after widening, got %d", result.OffersCreated)
	}
	if result.RadiusKm != 10 {
		t.Errorf("expected the doubled 10 km radius, got %f", result.RadiusKm)
	}

	radii := f.locationStore.QueriedRadii
	if len(radii) != 2 || radii[0] != 5 || radii[1] != 10 {
		t.Errorf("expected strictly widening queries [5 10], got %v", radii)
	}
}

func TestAssignment_ManualWhenNoCouriersAnywhere(t *testing.T) {
	f := newDispatchFixture()
	f.addJob("job-1")

	result, err := f.assignment.Assign(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("assignment failed: %v", err)
	}

	if !result.ManualRequired {
		t.Fatal("expected manual assignment after exhausting escalation")
	}
	if result.RadiusKm != 20 {
		t.Errorf("expected the 20 km ceiling as the last attempted radius, got %f", result.RadiusKm)
	}
	if f.jobRepo.GetJob("job-1").Status != domain.JobStatusManualRequired {
		t.Errorf("expected job status MANUAL_REQUIRED, got %s", f.jobRepo.GetJob("job-1").Status)
	}

	radii := f.locationStore.QueriedRadii
	if len(radii) != 3 || radii[0] != 5 || radii[1] != 10 || radii[2] != 20 {
		t.Errorf("expected widening queries [5 10 20] bounded by the ceiling, got %v", radii)
	}
	if got := len(f.notifier.CallsOfType("MANUAL_ASSIGNMENT_REQUIRED")); got != 1 {
		t.Errorf("expected exactly one operations signal, got %d", got)
	}
}

func TestAssignment_ManualJobRejectsFurtherRounds(t *testing.T) {
	f := newDispatchFixture()
	f.addJob("job-1")

	if _, err := f.assignment.Assign(context.Background(), "job-1"); err != nil {
		t.Fatalf("assignment failed: %v", err)
	}

	// MANUAL_REQUIRED is terminal for automatic matching.
	_, err := f.assignment.Assign(context.Background(), "job-1")
	if !errors.Is(err, service.ErrJobNotOpen) {
		t.Fatalf("expected ErrJobNotOpen for a manual job, got %v", err)
	}
	if got := len(f.notifier.CallsOfType("MANUAL_ASSIGNMENT_REQUIRED")); got != 1 {
		t.Errorf("expected the operations signal exactly once, got %d", got)
	}
}

func TestAssignment_AutoAcceptCommitsImmediately(t *testing.T) {
	f := newDispatchFixture()
	f.addJob("job-1")
	f.addCourier("courier-1", 1.2)
	_ = f.ruleRepo.ReplaceForCourier(context.Background(), "courier-1", []*domain.AutoAcceptRule{
		{
			ID:            "rule-1",
			CourierID:     "courier-1",
			MaxDistanceKm: 5,
			MinEarnings:   decimal.RequireFromString("5.00"),
			Enabled:       true,
		},
	})

	result, err := f.assignment.Assign(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("assignment failed: %v", err)
	}

	if !result.Assigned || !result.AutoAccepted {
		t.Fatalf("expected an auto-accepted assignment, got %+v", result)
	}
	if result.CourierID != "courier-1" {
		t.Errorf("expected courier-1, got %s", result.CourierID)
	}

	job := f.jobRepo.GetJob("job-1")
	if job.Status != domain.JobStatusAssigned || job.AssignedCourierID != "courier-1" {
		t.Errorf("expected job assigned to courier-1, got status=%s courier=%s",
			job.Status, job.AssignedCourierID)
	}
	if got := len(f.notifier.CallsOfType("JOB_ASSIGNED")); got != 1 {
		t.Errorf("expected one JOB_ASSIGNED notification, got %d", got)
	}
}

func TestAssignment_OfferLimitConvertsToManual(t *testing.T) {
	f := newDispatchFixture()
	f.addJob("job-1")
	job := f.jobRepo.GetJob("job-1")
	job.Status = domain.JobStatusOffered

	// Five couriers already turned the job down.
	for i := 0; i < 5; i++ {
		offer := sentOffer("offer-"+string(rune('a'+i)), "job-1", "courier-"+string(rune('a'+i)), time.Now().Add(5*time.Minute))
		offer.Status = domain.OfferStatusDeclined
		f.offerRepo.AddOffer(offer)
	}

	result, err := f.assignment.Assign(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("assignment failed: %v", err)
	}

	if !result.ManualRequired {
		t.Fatal("expected manual assignment at the resolved-offer limit")
	}
	if f.jobRepo.GetJob("job-1").Status != domain.JobStatusManualRequired {
		t.Error("expected job status MANUAL_REQUIRED")
	}
}

func TestAssignment_JobLockContention(t *testing.T) {
	f := newDispatchFixture()
	f.addJob("job-1")
	f.lockStore.HoldJobLock("job-1")

	_, err := f.assignment.Assign(context.Background(), "job-1")
	if !errors.Is(err, service.ErrAssignmentInProgress) {
		t.Fatalf("expected ErrAssignmentInProgress, got %v", err)
	}
}

func TestAssignment_SkipsCouriersAlreadyOffered(t *testing.T) {
	f := newDispatchFixture()
	f.addJob("job-1")
	f.addCourier("courier-declined", 1.0)
	f.addCourier("courier-new", 2.0)

	declined := sentOffer("offer-old", "job-1", "courier-declined", time.Now().Add(5*time.Minute))
	declined.Status = domain.OfferStatusDeclined
	f.offerRepo.AddOffer(declined)

	result, err := f.assignment.Assign(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("assignment failed: %v", err)
	}

	if result.OffersCreated != 1 {
		t.Fatalf("expected one new offer, got %d", result.OffersCreated)
	}
	for _, offer := range f.offerRepo.OffersForJob("job-1") {
		if offer.CourierID == "courier-declined" && offer.Status == domain.OfferStatusSent {
			t.Error("a courier who declined must not be re-offered the same job")
		}
	}
}

func TestReoffer_WaitsOnOutstandingOffers(t *testing.T) {
	f := newDispatchFixture()
	f.addJob("job-1")
	job := f.jobRepo.GetJob("job-1")
	job.Status = domain.JobStatusOffered
	f.offerRepo.AddOffer(sentOffer("offer-live", "job-1", "courier-1", time.Now().Add(5*time.Minute)))

	result, err := f.assignment.Reoffer(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("reoffer failed: %v", err)
	}
	if result != nil {
		t.Errorf("expected a no-op while offers are outstanding, got %+v", result)
	}
	if count := len(f.offerRepo.OffersForJob("job-1")); count != 1 {
		t.Errorf("expected no new offers, got %d total", count)
	}
}

func TestReoffer_RunsReplacementRound(t *testing.T) {
	f := newDispatchFixture()
	f.addJob("job-1")
	job := f.jobRepo.GetJob("job-1")
	job.Status = domain.JobStatusOffered
	f.addCourier("courier-declined", 1.0)
	f.addCourier("courier-new", 2.0)

	declined := sentOffer("offer-old", "job-1", "courier-declined", time.Now().Add(5*time.Minute))
	declined.Status = domain.OfferStatusDeclined
	f.offerRepo.AddOffer(declined)

	result, err := f.assignment.Reoffer(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("reoffer failed: %v", err)
	}
	if result == nil || result.OffersCreated != 1 {
		t.Fatalf("expected a replacement offer, got %+v", result)
	}

	replacement := false
	for _, offer := range f.offerRepo.OffersForJob("job-1") {
		if offer.CourierID == "courier-new" && offer.Status == domain.OfferStatusSent {
			replacement = true
		}
	}
	if !replacement {
		t.Error("expected the replacement offer to target the unoffered courier")
	}
}

func TestReoffer_AssignedJobIsIgnored(t *testing.T) {
	f := newDispatchFixture()
	f.addJob("job-1")
	job := f.jobRepo.GetJob("job-1")
	job.Status = domain.JobStatusAssigned
	job.AssignedCourierID = "courier-1"

	result, err := f.assignment.Reoffer(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("reoffer failed: %v", err)
	}
	if result != nil {
		t.Errorf("expected no action on an assigned job, got %+v", result)
	}
}
