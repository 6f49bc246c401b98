package match

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/Greeshmanth1/daw/internal/geo"
	"github.com/Greeshmanth1/daw/internal/models"
	"github.com/Greeshmanth1/daw/internal/observability"
	"github.com/Greeshmanth1/daw/internal/store"
)

// ErrNoDriversAvailable means zero candidates were inside the search radius.
// The engine never retries on its own; backoff is a caller policy.
var ErrNoDriversAvailable = errors.New("no drivers available within radius")

type Geo interface {
	NearestAvailable(lat, lon, radiusKm float64, limit int) []geo.Candidate
}

// Engine pairs a ride request with the nearest available driver and records
// the ride in REQUESTED state.
type Engine struct {
	Geo      Geo
	Store    store.RideStore
	RadiusKm float64
	Limit    int
}

// RequestRide picks the closest driver within RadiusKm. The driver is not
// reserved here: a concurrent request can propose the same driver, and the
// accept transition's compare-and-swap decides which assignment wins.
// The geo read and the store write are two separate steps; the driver may
// move between them.
func (e *Engine) RequestRide(ctx context.Context, riderID string, pickup models.Coord, drop *models.Coord) (*models.Ride, error) {
	limit := e.Limit
	if limit <= 0 {
		limit = 1
	}
	cands := e.Geo.NearestAvailable(pickup.Lat, pickup.Lon, e.RadiusKm, limit)
	if len(cands) == 0 {
		observability.NoDriversTotal.Inc()
		return nil, ErrNoDriversAvailable
	}

	r := &models.Ride{
		ID:            NewID(),
		RiderID:       riderID,
		DriverID:      cands[0].DriverID,
		Pickup:        pickup,
		Drop:          drop,
		Status:        models.StatusRequested,
		PaymentStatus: models.PaymentPending,
		CreatedAt:     time.Now().UTC(),
	}
	if err := e.Store.Insert(ctx, r); err != nil {
		return nil, fmt.Errorf("insert ride: %w", err)
	}
	observability.MatchesTotal.Inc()
	return r, nil
}

// NewID returns a random 16-hex-char ride id.
func NewID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
