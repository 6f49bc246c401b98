package models

import "time"

type Coord struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"long"`
}

// RideStatus is the lifecycle axis of a ride. Statuses only move through
// conditional updates in the store, never unconditional writes.
type RideStatus string

const (
	StatusRequested  RideStatus = "REQUESTED"
	StatusAccepted   RideStatus = "ACCEPTED"
	StatusInProgress RideStatus = "IN_PROGRESS"
	StatusPaused     RideStatus = "PAUSED"
	StatusCompleted  RideStatus = "COMPLETED"
)

// PaymentStatus is orthogonal to RideStatus; it only leaves PENDING once the
// ride is COMPLETED.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentPaid    PaymentStatus = "PAID"
	PaymentFailed  PaymentStatus = "FAILED"
)

type Ride struct {
	ID            string        `json:"id"`
	RiderID       string        `json:"rider_id"`
	DriverID      string        `json:"driver_id,omitempty"`
	Pickup        Coord         `json:"pickup"`
	Drop          *Coord        `json:"drop,omitempty"`
	Status        RideStatus    `json:"status"`
	Fare          float64       `json:"fare"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	CreatedAt     time.Time     `json:"created_at"`
	StartTime     *time.Time    `json:"start_time,omitempty"`
	EndTime       *time.Time    `json:"end_time,omitempty"`
}

// DriverPosition is the last reported location of a driver. Overwritten on
// every report; no history kept.
type DriverPosition struct {
	DriverID string    `json:"id"`
	Lat      float64   `json:"lat"`
	Lon      float64   `json:"long"`
	Online   bool      `json:"online"`
	Updated  time.Time `json:"updated"`
}

type RideRequest struct {
	RiderID    string   `json:"rider_id"`
	PickupLat  float64  `json:"pickup_lat"`
	PickupLong float64  `json:"pickup_long"`
	DropLat    *float64 `json:"drop_lat,omitempty"`
	DropLong   *float64 `json:"drop_long,omitempty"`
}
