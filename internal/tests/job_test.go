package tests

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"dispatch/internal/domain"
	"dispatch/internal/service"
)

func newJobService(f *dispatchFixture) *service.JobService {
	return service.NewJobService(f.jobRepo, f.offerRepo, f.assignment)
}

func TestCreateJob_DispatchesSynchronously(t *testing.T) {
	f := newDispatchFixture()
	f.addCourier("courier-1", 1.2)
	jobs := newJobService(f)

	resp, err := jobs.CreateJob(context.Background(), service.CreateJobRequest{
		PickupLat: pickupLat,
		PickupLng: pickupLng,
		DropLat:   pickupLat,
		DropLng:   pickupLng + 2*degPerKm,
		BaseFee:   decimal.RequireFromString("5.00"),
		Tip:       decimal.RequireFromString("1.50"),
	})
	if err != nil {
		t.Fatalf("failed to create job: %v", err)
	}

	if resp.Job.ID == "" {
		t.Error("expected a generated job ID")
	}
	if resp.Job.Status != domain.JobStatusOffered {
		t.Errorf("expected job status OFFERED after dispatch, got %s", resp.Job.Status)
	}
	if resp.Result == nil || resp.Result.OffersCreated != 1 {
		t.Fatalf("expected one offer from the first round, got %+v", resp.Result)
	}
}

func TestCreateJob_KeepsUpstreamID(t *testing.T) {
	f := newDispatchFixture()
	jobs := newJobService(f)

	resp, err := jobs.CreateJob(context.Background(), service.CreateJobRequest{
		JobID:     "upstream-42",
		PickupLat: pickupLat,
		PickupLng: pickupLng,
		DropLat:   pickupLat,
		DropLng:   pickupLng + 2*degPerKm,
		BaseFee:   decimal.RequireFromString("5.00"),
		Tip:       decimal.Zero,
	})
	if err != nil {
		t.Fatalf("failed to create job: %v", err)
	}
	if resp.Job.ID != "upstream-42" {
		t.Errorf("expected the upstream ID to survive, got %s", resp.Job.ID)
	}
}

func TestCreateJob_NoCouriersGoesManual(t *testing.T) {
	f := newDispatchFixture()
	jobs := newJobService(f)

	resp, err := jobs.CreateJob(context.Background(), service.CreateJobRequest{
		PickupLat: pickupLat,
		PickupLng: pickupLng,
		DropLat:   pickupLat,
		DropLng:   pickupLng + 2*degPerKm,
		BaseFee:   decimal.RequireFromString("5.00"),
		Tip:       decimal.Zero,
	})
	if err != nil {
		t.Fatalf("job creation must survive an empty market: %v", err)
	}

	if resp.Result == nil || !resp.Result.ManualRequired {
		t.Fatalf("expected manual fallback, got %+v", resp.Result)
	}
	if resp.Job.Status != domain.JobStatusManualRequired {
		t.Errorf("expected job status MANUAL_REQUIRED, got %s", resp.Job.Status)
	}
}

func TestCreateJob_RejectsInvalidCoordinates(t *testing.T) {
	f := newDispatchFixture()
	jobs := newJobService(f)

	_, err := jobs.CreateJob(context.Background(), service.CreateJobRequest{
		PickupLat: 120.0,
		PickupLng: pickupLng,
		DropLat:   pickupLat,
		DropLng:   pickupLng,
		BaseFee:   decimal.RequireFromString("5.00"),
	})
	if !errors.Is(err, service.ErrInvalidCoordinates) {
		t.Fatalf("expected ErrInvalidCoordinates, got %v", err)
	}
}

func TestCreateJob_RejectsNegativeFees(t *testing.T) {
	f := newDispatchFixture()
	jobs := newJobService(f)

	_, err := jobs.CreateJob(context.Background(), service.CreateJobRequest{
		PickupLat: pickupLat,
		PickupLng: pickupLng,
		DropLat:   pickupLat,
		DropLng:   pickupLng + degPerKm,
		BaseFee:   decimal.RequireFromString("-1.00"),
	})
	if !errors.Is(err, service.ErrInvalidFee) {
		t.Fatalf("expected ErrInvalidFee, got %v", err)
	}
}

func TestGetJob_IncludesOfferHistory(t *testing.T) {
	f := newDispatchFixture()
	f.addCourier("courier-1", 1.2)
	f.addCourier("courier-2", 3.4)
	jobs := newJobService(f)

	resp, err := jobs.CreateJob(context.Background(), service.CreateJobRequest{
		PickupLat: pickupLat,
		PickupLng: pickupLng,
		DropLat:   pickupLat,
		DropLng:   pickupLng + 2*degPerKm,
		BaseFee:   decimal.RequireFromString("5.00"),
		Tip:       decimal.Zero,
	})
	if err != nil {
		t.Fatalf("failed to create job: %v", err)
	}

	job, offers, err := jobs.GetJob(context.Background(), resp.Job.ID)
	if err != nil {
		t.Fatalf("failed to get job: %v", err)
	}
	if job.ID != resp.Job.ID {
		t.Errorf("expected job %s, got %s", resp.Job.ID, job.ID)
	}
	if len(offers) != 2 {
		t.Errorf("expected the full offer history, got %d offers", len(offers))
	}
}
