package match

import (
	"context"
	"errors"
	"testing"

	"github.com/Greeshmanth1/daw/internal/geo"
	"github.com/Greeshmanth1/daw/internal/models"
	"github.com/Greeshmanth1/daw/internal/store"
)

type fakeGeo struct{ cands []geo.Candidate }

func (f *fakeGeo) NearestAvailable(lat, lon, radiusKm float64, limit int) []geo.Candidate {
	return f.cands
}

type countingStore struct {
	store.RideStore
	inserts int
}

func (c *countingStore) Insert(ctx context.Context, r *models.Ride) error {
	c.inserts++
	return c.RideStore.Insert(ctx, r)
}

func TestRequestRideMatchesNearest(t *testing.T) {
	g := &fakeGeo{cands: []geo.Candidate{
		{DriverID: "near", DistanceKm: 0.4},
		{DriverID: "far", DistanceKm: 2.1},
	}}
	mem := store.NewMemoryStore()
	e := &Engine{Geo: g, Store: mem, RadiusKm: 5, Limit: 2}

	r, err := e.RequestRide(context.Background(), "rider1", models.Coord{Lat: 12.9716, Lon: 77.5946}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.DriverID != "near" {
		t.Fatalf("expected nearest driver, got %s", r.DriverID)
	}
	if r.Status != models.StatusRequested {
		t.Fatalf("expected REQUESTED, got %s", r.Status)
	}
	if r.PaymentStatus != models.PaymentPending {
		t.Fatalf("expected PENDING payment, got %s", r.PaymentStatus)
	}

	stored, err := mem.GetByID(context.Background(), r.ID)
	if err != nil {
		t.Fatalf("ride not persisted: %v", err)
	}
	if stored.DriverID != "near" {
		t.Fatalf("persisted ride has wrong driver: %s", stored.DriverID)
	}
}

func TestRequestRideNoDrivers(t *testing.T) {
	cs := &countingStore{RideStore: store.NewMemoryStore()}
	e := &Engine{Geo: &fakeGeo{}, Store: cs, RadiusKm: 5, Limit: 1}

	_, err := e.RequestRide(context.Background(), "rider1", models.Coord{Lat: 0, Lon: 0}, nil)
	if !errors.Is(err, ErrNoDriversAvailable) {
		t.Fatalf("expected ErrNoDriversAvailable, got %v", err)
	}
	if cs.inserts != 0 {
		t.Fatalf("no ride record may be created on a failed match, got %d inserts", cs.inserts)
	}
}

func TestNewIDUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := NewID()
		if len(id) != 16 {
			t.Fatalf("unexpected id length: %q", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}
