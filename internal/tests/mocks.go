package tests

import (
	"context"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/redis"
	"dispatch/internal/repository"
)

// ──────────────────────────────────────────────
// MOCK JOB REPOSITORY
// ──────────────────────────────────────────────

// MockJobRepository is a mock implementation of JobRepository.
type MockJobRepository struct {
	mu   sync.RWMutex
	jobs map[string]*domain.Job

	// Counters for verification
	CreateCallCount int32
	UpdateCallCount int32

	// Error injection
	CreateError error
	UpdateError error
	GetError    error
}

// NewMockJobRepository creates a new mock job repository.
func NewMockJobRepository() *MockJobRepository {
	return &MockJobRepository{
		jobs: make(map[string]*domain.Job),
	}
}

// AddJob adds a job to the mock repository.
func (m *MockJobRepository) AddJob(job *domain.Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = job
}

func (m *MockJobRepository) Create(ctx context.Context, job *domain.Job) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = job
	return nil
}

func (m *MockJobRepository) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	// Return a copy to avoid mutation issues.
	copy := *job
	return &copy, nil
}

func (m *MockJobRepository) GetOpenSince(ctx context.Context, since time.Time) ([]*domain.Job, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Job, 0)
	for _, j := range m.jobs {
		if j.Status.Open() && j.CreatedAt.After(since) {
			copy := *j
			result = append(result, &copy)
		}
	}
	return result, nil
}

func (m *MockJobRepository) GetActiveByCourierID(ctx context.Context, courierID string) (*domain.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, j := range m.jobs {
		if j.Status == domain.JobStatusAssigned && j.AssignedCourierID == courierID {
			copy := *j
			return &copy, nil
		}
	}
	return nil, nil
}

func (m *MockJobRepository) Update(ctx context.Context, job *domain.Job) error {
	atomic.AddInt32(&m.UpdateCallCount, 1)
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[job.ID]; !ok {
		return repository.ErrNotFound
	}
	copy := *job
	m.jobs[job.ID] = &copy
	return nil
}

// GetJob returns the stored job for test assertions.
func (m *MockJobRepository) GetJob(id string) *domain.Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.jobs[id]
}

// ──────────────────────────────────────────────
// MOCK OFFER REPOSITORY
// ──────────────────────────────────────────────

// MockOfferRepository is a mock implementation of OfferRepository. Status
// transitions are compare-and-swap under the mutex, matching the SQL
// conditional UPDATE semantics of the real store.
type MockOfferRepository struct {
	mu     sync.RWMutex
	offers map[string]*domain.Offer

	// Counters for verification
	CreateCallCount     int32
	TransitionCallCount int32

	// Error injection
	CreateError     error
	TransitionError error
}

// NewMockOfferRepository creates a new mock offer repository.
func NewMockOfferRepository() *MockOfferRepository {
	return &MockOfferRepository{
		offers: make(map[string]*domain.Offer),
	}
}

// AddOffer adds an offer to the mock repository.
func (m *MockOfferRepository) AddOffer(offer *domain.Offer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.offers[offer.ID] = offer
}

func (m *MockOfferRepository) Create(ctx context.Context, offer *domain.Offer) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *offer
	m.offers[offer.ID] = &copy
	return nil
}

func (m *MockOfferRepository) GetByID(ctx context.Context, id string) (*domain.Offer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	offer, ok := m.offers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *offer
	return &copy, nil
}

func (m *MockOfferRepository) GetByJobID(ctx context.Context, jobID string) ([]*domain.Offer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Offer, 0)
	for _, o := range m.offers {
		if o.JobID == jobID {
			copy := *o
			result = append(result, &copy)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (m *MockOfferRepository) GetExpired(ctx context.Context, now time.Time) ([]*domain.Offer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Offer, 0)
	for _, o := range m.offers {
		if o.Status == domain.OfferStatusSent && o.ExpiresAt.Before(now) {
			copy := *o
			result = append(result, &copy)
		}
	}
	return result, nil
}

func (m *MockOfferRepository) Update(ctx context.Context, offer *domain.Offer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.offers[offer.ID]; !ok {
		return repository.ErrNotFound
	}
	copy := *offer
	m.offers[offer.ID] = &copy
	return nil
}

func (m *MockOfferRepository) TransitionStatus(ctx context.Context, id string, from, to domain.OfferStatus, resolvedAt time.Time) error {
	atomic.AddInt32(&m.TransitionCallCount, 1)
	if m.TransitionError != nil {
		return m.TransitionError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	offer, ok := m.offers[id]
	if !ok || offer.Status != from {
		return repository.ErrNotFound
	}
	offer.Status = to
	if to.Terminal() {
		offer.ResolvedAt = resolvedAt
	}
	return nil
}

// GetOffer returns the stored offer for test assertions.
func (m *MockOfferRepository) GetOffer(id string) *domain.Offer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	offer, ok := m.offers[id]
	if !ok {
		return nil
	}
	copy := *offer
	return &copy
}

// OffersForJob returns the stored offers for a job for test assertions.
func (m *MockOfferRepository) OffersForJob(jobID string) []*domain.Offer {
	offers, _ := m.GetByJobID(context.Background(), jobID)
	return offers
}

// ──────────────────────────────────────────────
// MOCK COURIER REPOSITORY
// ──────────────────────────────────────────────

// MockCourierRepository is a mock implementation of CourierRepository.
type MockCourierRepository struct {
	mu       sync.RWMutex
	couriers map[string]*domain.Courier

	// Counters for verification
	CreateCallCount           int32
	UpdateShiftStateCallCount int32

	// Error injection
	CreateError           error
	UpdateShiftStateError error
}

// NewMockCourierRepository creates a new mock courier repository.
func NewMockCourierRepository() *MockCourierRepository {
	return &MockCourierRepository{
		couriers: make(map[string]*domain.Courier),
	}
}

// AddCourier adds a courier to the mock repository.
func (m *MockCourierRepository) AddCourier(courier *domain.Courier) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.couriers[courier.ID] = courier
}

func (m *MockCourierRepository) Create(ctx context.Context, courier *domain.Courier) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.couriers[courier.ID] = courier
	return nil
}

func (m *MockCourierRepository) GetByID(ctx context.Context, id string) (*domain.Courier, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	courier, ok := m.couriers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *courier
	return &copy, nil
}

func (m *MockCourierRepository) GetByPhone(ctx context.Context, phone string) (*domain.Courier, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.couriers {
		if c.Phone == phone {
			copy := *c
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockCourierRepository) GetAll(ctx context.Context) ([]*domain.Courier, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Courier, 0, len(m.couriers))
	for _, c := range m.couriers {
		copy := *c
		result = append(result, &copy)
	}
	return result, nil
}

func (m *MockCourierRepository) UpdateShiftState(ctx context.Context, id string, state domain.ShiftState) error {
	atomic.AddInt32(&m.UpdateShiftStateCallCount, 1)
	if m.UpdateShiftStateError != nil {
		return m.UpdateShiftStateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	courier, ok := m.couriers[id]
	if !ok {
		return repository.ErrNotFound
	}
	courier.ShiftState = state
	return nil
}

// GetCourier returns the stored courier for test assertions.
func (m *MockCourierRepository) GetCourier(id string) *domain.Courier {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.couriers[id]
}

// ──────────────────────────────────────────────
// MOCK AUTO-ACCEPT RULE REPOSITORY
// ──────────────────────────────────────────────

// MockRuleRepository is a mock implementation of AutoAcceptRuleRepository.
type MockRuleRepository struct {
	mu    sync.RWMutex
	rules map[string][]*domain.AutoAcceptRule

	// Error injection
	GetError error
}

// NewMockRuleRepository creates a new mock rule repository.
func NewMockRuleRepository() *MockRuleRepository {
	return &MockRuleRepository{
		rules: make(map[string][]*domain.AutoAcceptRule),
	}
}

func (m *MockRuleRepository) ReplaceForCourier(ctx context.Context, courierID string, rules []*domain.AutoAcceptRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules[courierID] = rules
	return nil
}

func (m *MockRuleRepository) GetEnabledByCourierID(ctx context.Context, courierID string) ([]*domain.AutoAcceptRule, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.AutoAcceptRule, 0)
	for _, r := range m.rules[courierID] {
		if r.Enabled {
			copy := *r
			result = append(result, &copy)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Priority > result[j].Priority
	})
	return result, nil
}

// ──────────────────────────────────────────────
// MOCK LOCATION REPOSITORY
// ──────────────────────────────────────────────

// MockLocationRepository is a mock implementation of LocationRepository.
type MockLocationRepository struct {
	mu      sync.RWMutex
	samples map[string][]*domain.CourierLocation

	// Counters for verification
	AppendCallCount int32
}

// NewMockLocationRepository creates a new mock location repository.
func NewMockLocationRepository() *MockLocationRepository {
	return &MockLocationRepository{
		samples: make(map[string][]*domain.CourierLocation),
	}
}

func (m *MockLocationRepository) Append(ctx context.Context, sample *domain.CourierLocation) error {
	atomic.AddInt32(&m.AppendCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.samples[sample.CourierID] = append(m.samples[sample.CourierID], sample)
	return nil
}

func (m *MockLocationRepository) GetLatestByCourierID(ctx context.Context, courierID string) (*domain.CourierLocation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := m.samples[courierID]
	if len(list) == 0 {
		return nil, repository.ErrNotFound
	}
	copy := *list[len(list)-1]
	return &copy, nil
}

// ──────────────────────────────────────────────
// MOCK LOCATION STORE (Redis geo index)
// ──────────────────────────────────────────────

type storedPosition struct {
	lat  float64
	lng  float64
	seen time.Time
}

// MockLocationStore is a mock implementation of LocationStoreInterface.
// Radius queries use the same haversine math as the real geo index.
type MockLocationStore struct {
	mu        sync.RWMutex
	positions map[string]storedPosition

	// QueriedRadii records the radius of every FindNearbyCouriers call.
	QueriedRadii []float64

	// Error injection
	FindError error
}

// NewMockLocationStore creates a new mock location store.
func NewMockLocationStore() *MockLocationStore {
	return &MockLocationStore{
		positions: make(map[string]storedPosition),
	}
}

// SetPosition seeds a courier position with a last-seen timestamp.
func (m *MockLocationStore) SetPosition(courierID string, lat, lng float64, seen time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions[courierID] = storedPosition{lat: lat, lng: lng, seen: seen}
}

func (m *MockLocationStore) UpdateLocation(ctx context.Context, courierID string, lat, lng float64, at time.Time) error {
	m.SetPosition(courierID, lat, lng, at)
	return nil
}

func (m *MockLocationStore) FindNearbyCouriers(ctx context.Context, lat, lng, radiusKm float64) ([]redis.CourierPosition, error) {
	if m.FindError != nil {
		return nil, m.FindError
	}
	m.mu.Lock()
	m.QueriedRadii = append(m.QueriedRadii, radiusKm)
	m.mu.Unlock()
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]redis.CourierPosition, 0)
	for id, pos := range m.positions {
		d := haversineKm(lat, lng, pos.lat, pos.lng)
		if d <= radiusKm {
			result = append(result, redis.CourierPosition{
				CourierID:  id,
				Lat:        pos.lat,
				Lng:        pos.lng,
				DistanceKm: d,
			})
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].DistanceKm < result[j].DistanceKm
	})
	return result, nil
}

func (m *MockLocationStore) LastSeen(ctx context.Context, courierIDs []string) (map[string]time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make(map[string]time.Time, len(courierIDs))
	for _, id := range courierIDs {
		if pos, ok := m.positions[id]; ok {
			result[id] = pos.seen
		}
	}
	return result, nil
}

func (m *MockLocationStore) RemoveLocation(ctx context.Context, courierID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.positions, courierID)
	return nil
}

// HasPosition reports whether a courier is in the index, for assertions.
func (m *MockLocationStore) HasPosition(courierID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.positions[courierID]
	return ok
}

func haversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	const earthRadiusKm = 6371.0
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// ──────────────────────────────────────────────
// MOCK LOCK STORE
// ──────────────────────────────────────────────

// MockLockStore is a mock implementation of LockStoreInterface with
// set-if-absent semantics.
type MockLockStore struct {
	mu    sync.Mutex
	locks map[string]bool

	// Error injection
	AcquireError error
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{
		locks: make(map[string]bool),
	}
}

func (m *MockLockStore) acquire(key string) (bool, error) {
	if m.AcquireError != nil {
		return false, m.AcquireError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[key] {
		return false, nil
	}
	m.locks[key] = true
	return true, nil
}

func (m *MockLockStore) release(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, key)
	return nil
}

func (m *MockLockStore) AcquireCourierLock(ctx context.Context, courierID string, ttl time.Duration) (bool, error) {
	return m.acquire("courier:" + courierID)
}

func (m *MockLockStore) ReleaseCourierLock(ctx context.Context, courierID string) error {
	return m.release("courier:" + courierID)
}

func (m *MockLockStore) AcquireJobLock(ctx context.Context, jobID string, ttl time.Duration) (bool, error) {
	return m.acquire("job:" + jobID)
}

func (m *MockLockStore) ReleaseJobLock(ctx context.Context, jobID string) error {
	return m.release("job:" + jobID)
}

// HoldJobLock takes the job lock directly, for contention tests.
func (m *MockLockStore) HoldJobLock(jobID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locks["job:"+jobID] = true
}

// ──────────────────────────────────────────────
// MOCK ASSIGNMENT REPOSITORY
// ──────────────────────────────────────────────

// MockAssignmentRepository commits acceptances against shared mock job
// and offer repositories. The whole commit holds one mutex, mirroring
// the row-lock serialization the SQL implementation gets from the
// database.
type MockAssignmentRepository struct {
	mu     sync.Mutex
	Jobs   *MockJobRepository
	Offers *MockOfferRepository

	// Counters for verification
	CommitCallCount int32

	// Error injection
	CommitError error
}

// NewMockAssignmentRepository creates a new mock assignment repository
// over the given job and offer repositories.
func NewMockAssignmentRepository(jobs *MockJobRepository, offers *MockOfferRepository) *MockAssignmentRepository {
	return &MockAssignmentRepository{Jobs: jobs, Offers: offers}
}

func (m *MockAssignmentRepository) CommitAcceptance(ctx context.Context, offerID, courierID string, now time.Time) (*repository.AcceptOutcome, error) {
	atomic.AddInt32(&m.CommitCallCount, 1)
	if m.CommitError != nil {
		return nil, m.CommitError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	offer, err := m.Offers.GetByID(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if offer.CourierID != courierID {
		return nil, repository.ErrNotFound
	}
	if offer.Status.Terminal() {
		return nil, repository.ErrOfferResolved
	}
	if offer.IsExpired(now) {
		_ = m.Offers.TransitionStatus(ctx, offerID, domain.OfferStatusSent, domain.OfferStatusExpired, now)
		return nil, repository.ErrOfferExpired
	}

	job, err := m.Jobs.GetByID(ctx, offer.JobID)
	if err != nil {
		return nil, err
	}
	if job.Status == domain.JobStatusAssigned {
		return nil, repository.ErrOfferResolved
	}
	if active, _ := m.Jobs.GetActiveByCourierID(ctx, courierID); active != nil {
		return nil, repository.ErrCourierEngaged
	}

	if err := m.Offers.TransitionStatus(ctx, offerID, domain.OfferStatusSent, domain.OfferStatusAccepted, now); err != nil {
		return nil, repository.ErrOfferResolved
	}

	siblings, _ := m.Offers.GetByJobID(ctx, job.ID)
	cancelled := make([]string, 0)
	for _, sibling := range siblings {
		if sibling.ID == offerID || sibling.Status.Terminal() {
			continue
		}
		if err := m.Offers.TransitionStatus(ctx, sibling.ID, sibling.Status, domain.OfferStatusCancelled, now); err == nil {
			cancelled = append(cancelled, sibling.ID)
		}
	}

	job.Status = domain.JobStatusAssigned
	job.AssignedCourierID = courierID
	job.AssignedAt = now
	if err := m.Jobs.Update(ctx, job); err != nil {
		return nil, err
	}

	accepted, _ := m.Offers.GetByID(ctx, offerID)
	return &repository.AcceptOutcome{
		Offer:             accepted,
		Job:               job,
		CancelledOfferIDs: cancelled,
	}, nil
}

// ──────────────────────────────────────────────
// MOCK NOTIFIER
// ──────────────────────────────────────────────

// NotifierCall records one outbound notification for assertions.
type NotifierCall struct {
	Type    string
	OfferID string
	JobID   string
	Reason  string
}

// MockNotifier is a mock implementation of Notifier that records calls.
type MockNotifier struct {
	mu    sync.Mutex
	Calls []NotifierCall
}

// NewMockNotifier creates a new mock notifier.
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (m *MockNotifier) record(call NotifierCall) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, call)
}

func (m *MockNotifier) OfferDispatched(ctx context.Context, offer *domain.Offer) error {
	m.record(NotifierCall{Type: "OFFER_DISPATCHED", OfferID: offer.ID, JobID: offer.JobID})
	return nil
}

func (m *MockNotifier) JobAssigned(ctx context.Context, job *domain.Job) error {
	m.record(NotifierCall{Type: "JOB_ASSIGNED", JobID: job.ID})
	return nil
}

func (m *MockNotifier) OfferCancelled(ctx context.Context, offer *domain.Offer) error {
	m.record(NotifierCall{Type: "OFFER_CANCELLED", OfferID: offer.ID, JobID: offer.JobID})
	return nil
}

func (m *MockNotifier) ManualAssignmentRequired(ctx context.Context, job *domain.Job, reason string, attemptedRadiusKm float64) error {
	m.record(NotifierCall{Type: "MANUAL_ASSIGNMENT_REQUIRED", JobID: job.ID, Reason: reason})
	return nil
}

// CallsOfType returns the recorded calls of one type.
func (m *MockNotifier) CallsOfType(t string) []NotifierCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]NotifierCall, 0)
	for _, c := range m.Calls {
		if c.Type == t {
			result = append(result, c)
		}
	}
	return result
}
