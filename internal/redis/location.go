package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	courierLocationKey = "couriers:locations"
	courierLastSeenKey = "couriers:last_seen"
)

// CourierPosition represents a courier's live position.
type CourierPosition struct {
	CourierID  string
	Lat        float64
	Lng        float64
	DistanceKm float64
}

// LocationStore handles live courier positions in Redis. The geo index
// holds only the latest position per courier; a companion hash records
// when each position was last written so the locator can enforce the
// freshness window.
type LocationStore struct {
	client *redis.Client
}

// NewLocationStore creates a new LocationStore.
func NewLocationStore(client *redis.Client) *LocationStore {
	return &LocationStore{client: client}
}

// UpdateLocation stores a courier's position using GEOADD and stamps the
// last-seen hash in the same pipeline.
func (s *LocationStore) UpdateLocation(ctx context.Context, courierID string, lat, lng float64, at time.Time) error {
	pipe := s.client.Pipeline()
	pipe.GeoAdd(ctx, courierLocationKey, &redis.GeoLocation{
		Name:      courierID,
		Longitude: lng,
		Latitude:  lat,
	})
	pipe.HSet(ctx, courierLastSeenKey, courierID, at.UnixMilli())
	_, err := pipe.Exec(ctx)
	return err
}

// FindNearbyCouriers returns courier positions within the given radius in
// kilometers, sorted ascending by distance.
func (s *LocationStore) FindNearbyCouriers(ctx context.Context, lat, lng, radiusKm float64) ([]CourierPosition, error) {
	results, err := s.client.GeoRadius(ctx, courierLocationKey, lng, lat, &redis.GeoRadiusQuery{
		Radius:    radiusKm,
		Unit:      "km",
		WithCoord: true,
		WithDist:  true,
		Sort:      "ASC",
	}).Result()
	if err != nil {
		return nil, err
	}

	positions := make([]CourierPosition, 0, len(results))
	for _, r := range results {
		positions = append(positions, CourierPosition{
			CourierID:  r.Name,
			Lat:        r.Latitude,
			Lng:        r.Longitude,
			DistanceKm: r.Dist,
		})
	}

	return positions, nil
}

// LastSeen returns the last position write time for each courier. Couriers
// with no recorded position are absent from the result map.
func (s *LocationStore) LastSeen(ctx context.Context, courierIDs []string) (map[string]time.Time, error) {
	if len(courierIDs) == 0 {
		return map[string]time.Time{}, nil
	}

	values, err := s.client.HMGet(ctx, courierLastSeenKey, courierIDs...).Result()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]time.Time, len(courierIDs))
	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			continue
		}
		millis, err := strconv.ParseInt(str, 10, 64)
		if err != nil {
			continue
		}
		seen[courierIDs[i]] = time.UnixMilli(millis)
	}

	return seen, nil
}

// RemoveLocation removes a courier from the geo index and last-seen hash.
func (s *LocationStore) RemoveLocation(ctx context.Context, courierID string) error {
	pipe := s.client.Pipeline()
	pipe.ZRem(ctx, courierLocationKey, courierID)
	pipe.HDel(ctx, courierLastSeenKey, courierID)
	_, err := pipe.Exec(ctx)
	return err
}
