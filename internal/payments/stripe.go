package payments

import (
	"context"
	"errors"
	"math"
	"os"

	stripe "github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
)

// StripeOracle charges fares through Stripe PaymentIntents. A declined card
// is a terminal Failed outcome; anything else bubbles up as an error.
type StripeOracle struct {
	Currency string
}

// NewStripeOracle initializes the stripe client with the STRIPE_API_KEY env var.
func NewStripeOracle(currency string) *StripeOracle {
	stripe.Key = os.Getenv("STRIPE_API_KEY")
	if currency == "" {
		currency = "inr"
	}
	return &StripeOracle{Currency: currency}
}

func (s *StripeOracle) Charge(ctx context.Context, rideID string, amount float64) (Outcome, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(int64(math.Round(amount * 100))),
		Currency: stripe.String(s.Currency),
		Confirm:  stripe.Bool(true),
	}
	params.Context = ctx
	params.AddMetadata("ride_id", rideID)
	if _, err := paymentintent.New(params); err != nil {
		var se *stripe.Error
		if errors.As(err, &se) && se.Type == stripe.ErrorTypeCard {
			return Failed, nil
		}
		return Failed, err
	}
	return Paid, nil
}
