package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Greeshmanth1/daw/internal/models"
)

var (
	// ErrNotFound means the ride id does not exist.
	ErrNotFound = errors.New("ride not found")
	// ErrConflict means a conditional update's status precondition failed:
	// the ride exists but has already moved to a different status.
	ErrConflict = errors.New("ride status conflict")
)

// Update carries the fields a conditional transition may set. Status is
// always written; the pointers are applied only when non-nil.
type Update struct {
	Status        models.RideStatus
	Fare          *float64
	PaymentStatus *models.PaymentStatus
	StartTime     *time.Time
	EndTime       *time.Time
	Drop          *models.Coord
}

// RideStore is the durable ride ledger. ConditionalUpdate is the sole
// serialization point for lifecycle races: it must check the expected status
// and apply the update as one atomic operation.
type RideStore interface {
	Insert(ctx context.Context, r *models.Ride) error
	GetByID(ctx context.Context, id string) (*models.Ride, error)
	ConditionalUpdate(ctx context.Context, id string, expected models.RideStatus, upd Update) (*models.Ride, error)
}

// MemoryStore keeps rides in a mutex-guarded map. Used for local runs and
// tests when PG_DSN is not configured.
type MemoryStore struct {
	mu    sync.RWMutex
	rides map[string]models.Ride
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rides: make(map[string]models.Ride)}
}

func (m *MemoryStore) Insert(ctx context.Context, r *models.Ride) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rides[r.ID] = *r
	return nil
}

func (m *MemoryStore) GetByID(ctx context.Context, id string) (*models.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rides[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (m *MemoryStore) ConditionalUpdate(ctx context.Context, id string, expected models.RideStatus, upd Update) (*models.Ride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rides[id]
	if !ok {
		return nil, ErrNotFound
	}
	if r.Status != expected {
		return nil, ErrConflict
	}
	applyUpdate(&r, upd)
	m.rides[id] = r
	return &r, nil
}

func applyUpdate(r *models.Ride, upd Update) {
	r.Status = upd.Status
	if upd.Fare != nil {
		r.Fare = *upd.Fare
	}
	if upd.PaymentStatus != nil {
		r.PaymentStatus = *upd.PaymentStatus
	}
	if upd.StartTime != nil {
		r.StartTime = upd.StartTime
	}
	if upd.EndTime != nil {
		r.EndTime = upd.EndTime
	}
	if upd.Drop != nil {
		r.Drop = upd.Drop
	}
}
