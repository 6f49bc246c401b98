package events

import "encoding/json"

// Event is the closed set of payloads carried by the bus. The two variants
// below are the only implementations; Marshal switches over them so a new
// variant cannot be added without the compiler flagging the gap.
type Event interface {
	Kind() string
	isEvent()
}

// DriverMoved announces a fresh driver position.
type DriverMoved struct {
	DriverID string  `json:"id"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"long"`
}

func (DriverMoved) Kind() string { return "DRIVER_MOVED" }
func (DriverMoved) isEvent()     {}

// RideUpdate announces a ride lifecycle change.
type RideUpdate struct {
	RideID   string   `json:"ride_id"`
	Status   string   `json:"status"`
	DriverID string   `json:"driver_id,omitempty"`
	Fare     *float64 `json:"fare,omitempty"`
	Detail   string   `json:"detail,omitempty"`
}

func (RideUpdate) Kind() string { return "RIDE_UPDATE" }
func (RideUpdate) isEvent()     {}

// Marshal serializes an event as a flat JSON object with a "type"
// discriminator, the shape clients expect on the wire.
func Marshal(e Event) ([]byte, error) {
	switch v := e.(type) {
	case DriverMoved:
		return json.Marshal(struct {
			Type string `json:"type"`
			DriverMoved
		}{Type: v.Kind(), DriverMoved: v})
	case RideUpdate:
		return json.Marshal(struct {
			Type string `json:"type"`
			RideUpdate
		}{Type: v.Kind(), RideUpdate: v})
	default:
		return json.Marshal(struct {
			Type string `json:"type"`
		}{Type: e.Kind()})
	}
}
