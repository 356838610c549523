package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheStore handles entity caching in Redis.
type CacheStore struct {
	client *redis.Client
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client) *CacheStore {
	return &CacheStore{client: client}
}

// CourierCacheTTL is short because shift state changes frequently during
// a dispatch round.
const CourierCacheTTL = 30 * time.Second

const courierCachePrefix = "cache:courier:"

// CachedCourier represents a cached courier entity.
type CachedCourier struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	ShiftState string `json:"shift_state"`
}

// GetCourier retrieves a courier from cache.
func (s *CacheStore) GetCourier(ctx context.Context, courierID string) (*CachedCourier, error) {
	key := courierCachePrefix + courierID
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Cache miss
		}
		return nil, err
	}

	var courier CachedCourier
	if err := json.Unmarshal(data, &courier); err != nil {
		return nil, err
	}
	return &courier, nil
}

// SetCourier stores a courier in cache.
func (s *CacheStore) SetCourier(ctx context.Context, courier *CachedCourier) error {
	key := courierCachePrefix + courier.ID
	data, err := json.Marshal(courier)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, CourierCacheTTL).Err()
}

// InvalidateCourier removes a courier from cache.
func (s *CacheStore) InvalidateCourier(ctx context.Context, courierID string) error {
	key := courierCachePrefix + courierID
	return s.client.Del(ctx, key).Err()
}

// GetCouriersBatch retrieves multiple couriers from cache using a pipeline.
// Returns a map of courierID -> CachedCourier, and a slice of missing IDs.
func (s *CacheStore) GetCouriersBatch(ctx context.Context, courierIDs []string) (map[string]*CachedCourier, []string, error) {
	if len(courierIDs) == 0 {
		return make(map[string]*CachedCourier), nil, nil
	}

	pipe := s.client.Pipeline()
	cmds := make(map[string]*redis.StringCmd, len(courierIDs))

	for _, id := range courierIDs {
		key := courierCachePrefix + id
		cmds[id] = pipe.Get(ctx, key)
	}

	_, err := pipe.Exec(ctx)
	if err != nil && err != redis.Nil {
		// Pipeline returns redis.Nil when some keys are missing; each
		// command is inspected individually below.
	}

	result := make(map[string]*CachedCourier)
	var missing []string

	for id, cmd := range cmds {
		data, err := cmd.Bytes()
		if err != nil {
			missing = append(missing, id)
			continue
		}

		var courier CachedCourier
		if err := json.Unmarshal(data, &courier); err != nil {
			missing = append(missing, id)
			continue
		}
		result[id] = &courier
	}

	return result, missing, nil
}

// AddAvailableCourier adds a courier to the availability set for fast
// supply lookups.
func (s *CacheStore) AddAvailableCourier(ctx context.Context, courierID string) error {
	return s.client.SAdd(ctx, "available_couriers", courierID).Err()
}

// RemoveAvailableCourier removes a courier from the availability set.
func (s *CacheStore) RemoveAvailableCourier(ctx context.Context, courierID string) error {
	return s.client.SRem(ctx, "available_couriers", courierID).Err()
}

// IsCourierAvailable checks if a courier is in the availability set.
func (s *CacheStore) IsCourierAvailable(ctx context.Context, courierID string) (bool, error) {
	return s.client.SIsMember(ctx, "available_couriers", courierID).Result()
}
