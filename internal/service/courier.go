package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"dispatch/internal/domain"
	"dispatch/internal/redis"
	"dispatch/internal/repository"
)

// CourierService handles courier-side ingestion: location samples, shift
// state changes and auto-accept rule sets.
type CourierService struct {
	locationStore redis.LocationStoreInterface
	cacheStore    *redis.CacheStore
	courierRepo   repository.CourierRepository
	locationRepo  repository.LocationRepository
	ruleRepo      repository.AutoAcceptRuleRepository
	now           func() time.Time
}

// NewCourierService creates a new CourierService.
func NewCourierService(
	locationStore redis.LocationStoreInterface,
	cacheStore *redis.CacheStore,
	courierRepo repository.CourierRepository,
	locationRepo repository.LocationRepository,
	ruleRepo repository.AutoAcceptRuleRepository,
) *CourierService {
	return &CourierService{
		locationStore: locationStore,
		cacheStore:    cacheStore,
		courierRepo:   courierRepo,
		locationRepo:  locationRepo,
		ruleRepo:      ruleRepo,
		now:           time.Now,
	}
}

// Register creates a courier account. Phone numbers are unique; a courier
// starts off shift and appears to the locator only after going active and
// reporting a location.
func (s *CourierService) Register(ctx context.Context, name, phone string) (*domain.Courier, error) {
	if name == "" {
		return nil, ErrInvalidCourierName
	}
	if phone == "" {
		return nil, ErrInvalidCourierID
	}

	existing, err := s.courierRepo.GetByPhone(ctx, phone)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, ErrCourierExists
	}

	courier := &domain.Courier{
		ID:         uuid.New().String(),
		Name:       name,
		Phone:      phone,
		ShiftState: domain.ShiftStateEnded,
	}

	if err := s.courierRepo.Create(ctx, courier); err != nil {
		return nil, err
	}

	return courier, nil
}

// GetAll lists every registered courier.
func (s *CourierService) GetAll(ctx context.Context) ([]*domain.Courier, error) {
	return s.courierRepo.GetAll(ctx)
}

// RecordLocationRequest contains the parameters of a location update.
type RecordLocationRequest struct {
	CourierID string
	Lat       float64
	Lng       float64
	SpeedKmh  float64
	Heading   float64
}

// RecordLocation stores a courier's position in the live geo index and
// appends the sample to the audit log. Location writes are high-frequency
// and best-effort: the audit append is fire-and-forget so a slow database
// never backs up the stream.
func (s *CourierService) RecordLocation(ctx context.Context, req RecordLocationRequest) error {
	if req.CourierID == "" {
		return ErrInvalidCourierID
	}

	if !isValidLatitude(req.Lat) || !isValidLongitude(req.Lng) {
		return ErrInvalidCoordinates
	}

	now := s.now()

	if err := s.locationStore.UpdateLocation(ctx, req.CourierID, req.Lat, req.Lng, now); err != nil {
		return err
	}

	sample := &domain.CourierLocation{
		CourierID:  req.CourierID,
		Lat:        req.Lat,
		Lng:        req.Lng,
		SpeedKmh:   req.SpeedKmh,
		Heading:    req.Heading,
		RecordedAt: now,
	}
	go func() {
		_ = s.locationRepo.Append(context.Background(), sample)
	}()

	if s.cacheStore != nil {
		_ = s.cacheStore.AddAvailableCourier(ctx, req.CourierID)
	}

	return nil
}

// SetShiftState updates a courier's shift state. Ending a shift removes
// the courier from the live geo index so the locator never sees them.
func (s *CourierService) SetShiftState(ctx context.Context, courierID string, state domain.ShiftState) error {
	if courierID == "" {
		return ErrInvalidCourierID
	}

	switch state {
	case domain.ShiftStateActive, domain.ShiftStatePaused, domain.ShiftStateEnded:
	default:
		return ErrInvalidShiftState
	}

	if err := s.courierRepo.UpdateShiftState(ctx, courierID, state); err != nil {
		return err
	}

	if state == domain.ShiftStateEnded {
		if err := s.locationStore.RemoveLocation(ctx, courierID); err != nil {
			return err
		}
	}

	if s.cacheStore != nil {
		_ = s.cacheStore.InvalidateCourier(ctx, courierID)
		if state != domain.ShiftStateActive {
			_ = s.cacheStore.RemoveAvailableCourier(ctx, courierID)
		}
	}

	return nil
}

// ReplaceAutoAcceptRules replaces the courier's standing auto-accept
// preferences. Rules without an ID are assigned one.
func (s *CourierService) ReplaceAutoAcceptRules(ctx context.Context, courierID string, rules []*domain.AutoAcceptRule) error {
	if courierID == "" {
		return ErrInvalidCourierID
	}

	for _, rule := range rules {
		if rule.ID == "" {
			rule.ID = uuid.New().String()
		}
		rule.CourierID = courierID
	}

	return s.ruleRepo.ReplaceForCourier(ctx, courierID, rules)
}
