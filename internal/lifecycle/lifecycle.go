package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Greeshmanth1/daw/internal/fare"
	"github.com/Greeshmanth1/daw/internal/models"
	"github.com/Greeshmanth1/daw/internal/observability"
	"github.com/Greeshmanth1/daw/internal/payments"
	"github.com/Greeshmanth1/daw/internal/store"
)

// Service drives the ride state machine:
//
//	REQUESTED -> ACCEPTED -> IN_PROGRESS <-> PAUSED
//	                         IN_PROGRESS -> COMPLETED
//
// Every transition goes through the store's conditional update, so two
// actors racing on the same ride cannot both win; the loser gets
// store.ErrConflict.
type Service struct {
	Store store.RideStore
	Fare  fare.Calculator
	// Oracle is called on Pay, outside any lock or store operation.
	Oracle payments.Oracle
}

// Accept moves REQUESTED -> ACCEPTED. Of any number of concurrent accepts,
// exactly one succeeds.
func (s *Service) Accept(ctx context.Context, rideID string) (*models.Ride, error) {
	r, err := s.Store.ConditionalUpdate(ctx, rideID, models.StatusRequested, store.Update{
		Status: models.StatusAccepted,
	})
	return counted("accept", r, err)
}

// Start moves ACCEPTED -> IN_PROGRESS and stamps the start time.
func (s *Service) Start(ctx context.Context, rideID string) (*models.Ride, error) {
	now := time.Now().UTC()
	r, err := s.Store.ConditionalUpdate(ctx, rideID, models.StatusAccepted, store.Update{
		Status:    models.StatusInProgress,
		StartTime: &now,
	})
	return counted("start", r, err)
}

// Pause moves IN_PROGRESS -> PAUSED. The guard is deliberate: a ride that
// has not started, or has already completed, cannot be paused.
func (s *Service) Pause(ctx context.Context, rideID string) (*models.Ride, error) {
	r, err := s.Store.ConditionalUpdate(ctx, rideID, models.StatusInProgress, store.Update{
		Status: models.StatusPaused,
	})
	return counted("pause", r, err)
}

// Resume moves PAUSED -> IN_PROGRESS.
func (s *Service) Resume(ctx context.Context, rideID string) (*models.Ride, error) {
	r, err := s.Store.ConditionalUpdate(ctx, rideID, models.StatusPaused, store.Update{
		Status: models.StatusInProgress,
	})
	return counted("resume", r, err)
}

// End moves IN_PROGRESS -> COMPLETED, computing the fare exactly once.
// Ending an already-completed ride is an idempotent no-op that returns the
// stored fare and leaves end_time untouched. A PAUSED ride must be resumed
// before it can end. The drop point is the ride's stored drop if present,
// else the provided one; with no drop known the fare collapses to the base
// tariff.
func (s *Service) End(ctx context.Context, rideID string, drop *models.Coord) (*models.Ride, error) {
	r, err := s.Store.GetByID(ctx, rideID)
	if err != nil {
		return counted("end", nil, err)
	}
	if r.Status == models.StatusCompleted {
		return counted("end", r, nil)
	}

	dropAt := r.Pickup
	var setDrop *models.Coord
	switch {
	case r.Drop != nil:
		dropAt = *r.Drop
	case drop != nil:
		dropAt = *drop
		setDrop = drop
	}
	amount := s.Fare.Fare(r.Pickup, dropAt)
	now := time.Now().UTC()

	updated, err := s.Store.ConditionalUpdate(ctx, rideID, models.StatusInProgress, store.Update{
		Status:  models.StatusCompleted,
		Fare:    &amount,
		EndTime: &now,
		Drop:    setDrop,
	})
	if errors.Is(err, store.ErrConflict) {
		// a concurrent end may have won the race; that still counts as done
		if cur, getErr := s.Store.GetByID(ctx, rideID); getErr == nil && cur.Status == models.StatusCompleted {
			return counted("end", cur, nil)
		}
	}
	return counted("end", updated, err)
}

// Pay resolves payment for a COMPLETED ride. The oracle outcome, Paid or
// Failed, is stored on the ride; the lifecycle status does not change and a
// failed charge is state, not an error.
func (s *Service) Pay(ctx context.Context, rideID string) (*models.Ride, error) {
	r, err := s.Store.GetByID(ctx, rideID)
	if err != nil {
		return counted("pay", nil, err)
	}
	if r.Status != models.StatusCompleted {
		return counted("pay", nil, fmt.Errorf("ride %s not completed: %w", rideID, store.ErrConflict))
	}

	outcome, err := s.Oracle.Charge(ctx, rideID, r.Fare)
	if err != nil {
		return counted("pay", nil, fmt.Errorf("charge ride %s: %w", rideID, err))
	}
	ps := models.PaymentPaid
	if outcome == payments.Failed {
		ps = models.PaymentFailed
	}
	updated, err := s.Store.ConditionalUpdate(ctx, rideID, models.StatusCompleted, store.Update{
		Status:        models.StatusCompleted,
		PaymentStatus: &ps,
	})
	return counted("pay", updated, err)
}

func counted(action string, r *models.Ride, err error) (*models.Ride, error) {
	outcome := "ok"
	switch {
	case errors.Is(err, store.ErrConflict):
		outcome = "conflict"
	case errors.Is(err, store.ErrNotFound):
		outcome = "not_found"
	case err != nil:
		outcome = "error"
	}
	observability.TransitionsTotal.WithLabelValues(action, outcome).Inc()
	return r, err
}
