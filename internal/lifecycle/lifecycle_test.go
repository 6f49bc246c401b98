package lifecycle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Greeshmanth1/daw/internal/fare"
	"github.com/Greeshmanth1/daw/internal/models"
	"github.com/Greeshmanth1/daw/internal/payments"
	"github.com/Greeshmanth1/daw/internal/store"
)

type fixedOracle struct{ outcome payments.Outcome }

func (f fixedOracle) Charge(ctx context.Context, rideID string, amount float64) (payments.Outcome, error) {
	return f.outcome, nil
}

func newService(t *testing.T, outcome payments.Outcome) (*Service, *store.MemoryStore) {
	t.Helper()
	mem := store.NewMemoryStore()
	svc := &Service{
		Store:  mem,
		Fare:   fare.Calculator{Base: 50, PerKm: 12},
		Oracle: fixedOracle{outcome: outcome},
	}
	return svc, mem
}

func seed(t *testing.T, mem *store.MemoryStore, status models.RideStatus) string {
	t.Helper()
	r := &models.Ride{
		ID:            "ride1",
		RiderID:       "rider1",
		DriverID:      "driver1",
		Pickup:        models.Coord{Lat: 12.9716, Lon: 77.5946},
		Status:        status,
		PaymentStatus: models.PaymentPending,
		CreatedAt:     time.Now(),
	}
	if err := mem.Insert(context.Background(), r); err != nil {
		t.Fatalf("insert: %v", err)
	}
	return r.ID
}

func TestFullLifecycleScenario(t *testing.T) {
	svc, mem := newService(t, payments.Paid)
	id := seed(t, mem, models.StatusRequested)
	ctx := context.Background()

	r, err := svc.Accept(ctx, id)
	if err != nil || r.Status != models.StatusAccepted {
		t.Fatalf("accept: %v %+v", err, r)
	}
	r, err = svc.Start(ctx, id)
	if err != nil || r.Status != models.StatusInProgress {
		t.Fatalf("start: %v %+v", err, r)
	}
	if r.StartTime == nil {
		t.Fatal("start time not stamped")
	}

	drop := &models.Coord{Lat: 13.0, Lon: 77.6}
	r, err = svc.End(ctx, id, drop)
	if err != nil || r.Status != models.StatusCompleted {
		t.Fatalf("end: %v %+v", err, r)
	}
	if r.Fare <= 50 {
		t.Fatalf("expected fare above base for a 3km trip, got %f", r.Fare)
	}
	firstFare, firstEnd := r.Fare, r.EndTime

	// idempotent re-end: same fare, end time untouched
	r, err = svc.End(ctx, id, &models.Coord{Lat: 20, Lon: 20})
	if err != nil {
		t.Fatalf("second end: %v", err)
	}
	if r.Fare != firstFare {
		t.Fatalf("fare recomputed on second end: %f vs %f", r.Fare, firstFare)
	}
	if !r.EndTime.Equal(*firstEnd) {
		t.Fatalf("end time mutated on second end")
	}

	r, err = svc.Pay(ctx, id)
	if err != nil {
		t.Fatalf("pay: %v", err)
	}
	if r.PaymentStatus != models.PaymentPaid {
		t.Fatalf("expected PAID, got %s", r.PaymentStatus)
	}
	if r.Status != models.StatusCompleted {
		t.Fatalf("pay must not change lifecycle status, got %s", r.Status)
	}
}

func TestConcurrentAcceptSingleWinner(t *testing.T) {
	svc, mem := newService(t, payments.Paid)
	id := seed(t, mem, models.StatusRequested)

	const attempts = 8
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Accept(context.Background(), id)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	wins := 0
	for err := range errs {
		if err == nil {
			wins++
			continue
		}
		if !errors.Is(err, store.ErrConflict) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one accept to win, got %d", wins)
	}
}

func TestConcurrentEndStableFare(t *testing.T) {
	svc, mem := newService(t, payments.Paid)
	id := seed(t, mem, models.StatusInProgress)
	drop := &models.Coord{Lat: 13.0, Lon: 77.6}

	const attempts = 6
	var wg sync.WaitGroup
	fares := make(chan float64, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := svc.End(context.Background(), id, drop)
			if err != nil {
				fares <- -1
				return
			}
			fares <- r.Fare
		}()
	}
	wg.Wait()
	close(fares)

	var first float64 = -2
	for f := range fares {
		if f < 0 {
			t.Fatalf("concurrent end must not error, got sentinel %f", f)
		}
		if first == -2 {
			first = f
			continue
		}
		if f != first {
			t.Fatalf("fare not stable across concurrent ends: %f vs %f", f, first)
		}
	}
}

func TestPauseGuard(t *testing.T) {
	svc, mem := newService(t, payments.Paid)
	id := seed(t, mem, models.StatusRequested)
	ctx := context.Background()

	if _, err := svc.Pause(ctx, id); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("pause before start must conflict, got %v", err)
	}

	if _, err := svc.Accept(ctx, id); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := svc.Start(ctx, id); err != nil {
		t.Fatalf("start: %v", err)
	}
	r, err := svc.Pause(ctx, id)
	if err != nil || r.Status != models.StatusPaused {
		t.Fatalf("pause: %v %+v", err, r)
	}

	// a paused ride cannot end until resumed
	if _, err := svc.End(ctx, id, nil); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("end of paused ride must conflict, got %v", err)
	}
	r, err = svc.Resume(ctx, id)
	if err != nil || r.Status != models.StatusInProgress {
		t.Fatalf("resume: %v %+v", err, r)
	}
	if _, err := svc.End(ctx, id, nil); err != nil {
		t.Fatalf("end after resume: %v", err)
	}
}

func TestEndWithoutDropUsesBaseFare(t *testing.T) {
	svc, mem := newService(t, payments.Paid)
	id := seed(t, mem, models.StatusInProgress)

	r, err := svc.End(context.Background(), id, nil)
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	if r.Fare != 50 {
		t.Fatalf("expected base fare with no drop point, got %f", r.Fare)
	}
}

func TestPayRequiresCompleted(t *testing.T) {
	svc, mem := newService(t, payments.Paid)
	id := seed(t, mem, models.StatusInProgress)
	if _, err := svc.Pay(context.Background(), id); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("pay before completion must conflict, got %v", err)
	}
}

func TestPayFailedOutcome(t *testing.T) {
	svc, mem := newService(t, payments.Failed)
	id := seed(t, mem, models.StatusInProgress)
	ctx := context.Background()
	if _, err := svc.End(ctx, id, nil); err != nil {
		t.Fatalf("end: %v", err)
	}
	r, err := svc.Pay(ctx, id)
	if err != nil {
		t.Fatalf("a failed charge is state, not an error: %v", err)
	}
	if r.PaymentStatus != models.PaymentFailed {
		t.Fatalf("expected FAILED, got %s", r.PaymentStatus)
	}
}

func TestTransitionsOnMissingRide(t *testing.T) {
	svc, _ := newService(t, payments.Paid)
	ctx := context.Background()
	for name, op := range map[string]func() error{
		"accept": func() error { _, err := svc.Accept(ctx, "missing"); return err },
		"start":  func() error { _, err := svc.Start(ctx, "missing"); return err },
		"pause":  func() error { _, err := svc.Pause(ctx, "missing"); return err },
		"end":    func() error { _, err := svc.End(ctx, "missing", nil); return err },
		"pay":    func() error { _, err := svc.Pay(ctx, "missing"); return err },
	} {
		if err := op(); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("%s on missing ride: expected ErrNotFound, got %v", name, err)
		}
	}
}

func TestSkippingStatesRejected(t *testing.T) {
	svc, mem := newService(t, payments.Paid)
	id := seed(t, mem, models.StatusRequested)
	ctx := context.Background()

	if _, err := svc.Start(ctx, id); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("start before accept must conflict, got %v", err)
	}
	if _, err := svc.End(ctx, id, nil); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("end before start must conflict, got %v", err)
	}
}
