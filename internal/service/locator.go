package service

import (
	"context"
	"sort"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/redis"
	"dispatch/internal/repository"
)

const defaultFreshnessWindow = 10 * time.Minute

// Candidate is a courier eligible for an offer, with their distance from
// the pickup point.
type Candidate struct {
	CourierID  string
	Lat        float64
	Lng        float64
	DistanceKm float64
}

// LocatorService finds eligible couriers near a pickup point.
type LocatorService struct {
	locationStore   redis.LocationStoreInterface
	cacheStore      *redis.CacheStore
	courierRepo     repository.CourierRepository
	jobRepo         repository.JobRepository
	freshnessWindow time.Duration
	now             func() time.Time
}

// NewLocatorService creates a new LocatorService. freshnessWindow <= 0
// uses the default of 10 minutes.
func NewLocatorService(
	locationStore redis.LocationStoreInterface,
	cacheStore *redis.CacheStore,
	courierRepo repository.CourierRepository,
	jobRepo repository.JobRepository,
	freshnessWindow time.Duration,
) *LocatorService {
	if freshnessWindow <= 0 {
		freshnessWindow = defaultFreshnessWindow
	}
	return &LocatorService{
		locationStore:   locationStore,
		cacheStore:      cacheStore,
		courierRepo:     courierRepo,
		jobRepo:         jobRepo,
		freshnessWindow: freshnessWindow,
		now:             time.Now,
	}
}

// FindCandidates returns eligible couriers within radiusKm of the pickup
// point, sorted ascending by distance with ties broken by courier ID.
// Eligibility requires a location sample inside the freshness window, an
// active shift, and no currently assigned job. An empty result is not an
// error; the orchestrator treats it as an escalation trigger. limit <= 0
// means no cap.
func (s *LocatorService) FindCandidates(ctx context.Context, lat, lng, radiusKm float64, limit int) ([]Candidate, error) {
	positions, err := s.locationStore.FindNearbyCouriers(ctx, lat, lng, radiusKm)
	if err != nil {
		return nil, err
	}

	if len(positions) == 0 {
		return []Candidate{}, nil
	}

	courierIDs := make([]string, len(positions))
	for i, pos := range positions {
		courierIDs[i] = pos.CourierID
	}

	lastSeen, err := s.locationStore.LastSeen(ctx, courierIDs)
	if err != nil {
		return nil, err
	}

	cutoff := s.now().Add(-s.freshnessWindow)

	// Batch fetch courier shift state from cache; fall back to the
	// repository for misses.
	cached, missing := s.getCouriersBatch(ctx, courierIDs)
	fetched := make(map[string]*domain.Courier, len(missing))
	for _, id := range missing {
		courier, err := s.courierRepo.GetByID(ctx, id)
		if err != nil {
			if err == repository.ErrNotFound {
				continue
			}
			return nil, err
		}
		fetched[id] = courier
		s.cacheCourierAsync(courier)
	}

	candidates := make([]Candidate, 0, len(positions))
	for _, pos := range positions {
		seen, ok := lastSeen[pos.CourierID]
		if !ok || seen.Before(cutoff) {
			continue
		}

		var state domain.ShiftState
		if c, ok := cached[pos.CourierID]; ok {
			state = domain.ShiftState(c.ShiftState)
		} else if c, ok := fetched[pos.CourierID]; ok {
			state = c.ShiftState
		} else {
			continue
		}
		if state != domain.ShiftStateActive {
			continue
		}

		active, err := s.jobRepo.GetActiveByCourierID(ctx, pos.CourierID)
		if err != nil {
			return nil, err
		}
		if active != nil {
			continue
		}

		candidates = append(candidates, Candidate{
			CourierID:  pos.CourierID,
			Lat:        pos.Lat,
			Lng:        pos.Lng,
			DistanceKm: haversineKm(lat, lng, pos.Lat, pos.Lng),
		})
	}

	// The geo index pre-sorts by distance, but ordering is recomputed
	// here so results are deterministic: strict ascending distance with
	// courier ID as the tie-break.
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].DistanceKm != candidates[j].DistanceKm {
			return candidates[i].DistanceKm < candidates[j].DistanceKm
		}
		return candidates[i].CourierID < candidates[j].CourierID
	})

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	return candidates, nil
}

func (s *LocatorService) getCouriersBatch(ctx context.Context, courierIDs []string) (map[string]*redis.CachedCourier, []string) {
	if s.cacheStore == nil {
		return make(map[string]*redis.CachedCourier), courierIDs
	}
	cached, missing, err := s.cacheStore.GetCouriersBatch(ctx, courierIDs)
	if err != nil {
		return make(map[string]*redis.CachedCourier), courierIDs
	}
	return cached, missing
}

// cacheCourierAsync caches a courier snapshot (fire and forget).
func (s *LocatorService) cacheCourierAsync(courier *domain.Courier) {
	if s.cacheStore == nil {
		return
	}
	go func() {
		cached := &redis.CachedCourier{
			ID:         courier.ID,
			Name:       courier.Name,
			Phone:      courier.Phone,
			ShiftState: string(courier.ShiftState),
		}
		_ = s.cacheStore.SetCourier(context.Background(), cached)
	}()
}
