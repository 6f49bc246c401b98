package payments

import (
	"context"
	"math/rand"
	"sync"
)

// Outcome is one of the two terminal results of a charge. There is no
// partial state: a charge either lands as Paid or as Failed.
type Outcome string

const (
	Paid   Outcome = "PAID"
	Failed Outcome = "FAILED"
)

// Oracle is the payment collaborator. Implementations must return one of the
// two terminal outcomes; an error is reserved for transport-level failures
// where no outcome is known.
type Oracle interface {
	Charge(ctx context.Context, rideID string, amount float64) (Outcome, error)
}

// RandomOracle simulates a gateway that succeeds with a fixed probability.
// Used for local runs and tests.
type RandomOracle struct {
	successRate float64
	mu          sync.Mutex
	rng         *rand.Rand
}

func NewRandomOracle(successRate float64, seed int64) *RandomOracle {
	return &RandomOracle{successRate: successRate, rng: rand.New(rand.NewSource(seed))}
}

func (o *RandomOracle) Charge(ctx context.Context, rideID string, amount float64) (Outcome, error) {
	o.mu.Lock()
	v := o.rng.Float64()
	o.mu.Unlock()
	if v < o.successRate {
		return Paid, nil
	}
	return Failed, nil
}
