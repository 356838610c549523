package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LockStore handles distributed locking in Redis.
type LockStore struct {
	client *redis.Client
}

// NewLockStore creates a new LockStore.
func NewLockStore(client *redis.Client) *LockStore {
	return &LockStore{client: client}
}

// AcquireCourierLock attempts to acquire a lock for the given courier.
// Returns true if the lock was acquired, false if already held.
func (s *LockStore) AcquireCourierLock(ctx context.Context, courierID string, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("lock:courier:%s", courierID)

	ok, err := s.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

// ReleaseCourierLock releases the lock for the given courier.
func (s *LockStore) ReleaseCourierLock(ctx context.Context, courierID string) error {
	key := fmt.Sprintf("lock:courier:%s", courierID)

	return s.client.Del(ctx, key).Err()
}

// AcquireJobLock attempts to acquire a lock for assignment rounds on the
// given job, preventing the orchestrator and the sweep from running
// overlapping rounds.
func (s *LockStore) AcquireJobLock(ctx context.Context, jobID string, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("lock:job:%s", jobID)

	ok, err := s.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

// ReleaseJobLock releases the assignment lock for the given job.
func (s *LockStore) ReleaseJobLock(ctx context.Context, jobID string) error {
	key := fmt.Sprintf("lock:job:%s", jobID)

	return s.client.Del(ctx, key).Err()
}
