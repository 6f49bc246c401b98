package httpapi

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/Greeshmanth1/daw/internal/events"
	"github.com/Greeshmanth1/daw/internal/match"
	"github.com/Greeshmanth1/daw/internal/models"
	"github.com/Greeshmanth1/daw/internal/observability"
	"github.com/Greeshmanth1/daw/internal/store"
)

func (s *Server) handleDriverLocation(w http.ResponseWriter, r *http.Request) {
	driverID := mux.Vars(r)["driver_id"]
	var loc struct {
		Lat  float64 `json:"lat"`
		Long float64 `json:"long"`
	}
	if err := json.NewDecoder(r.Body).Decode(&loc); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	pos := models.DriverPosition{DriverID: driverID, Lat: loc.Lat, Lon: loc.Long, Online: true}
	if s.Kafka != nil {
		if err := s.Kafka.PublishLocation(pos); err != nil {
			s.logger.Warn("kafka publish failed", "driver_id", driverID, "error", err)
		}
	}
	s.Geo.Upsert(pos)
	observability.LocationUpdatesTotal.Inc()

	s.Bus.Publish(events.DriverMoved{DriverID: driverID, Lat: loc.Lat, Lon: loc.Long})
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRideRequest(w http.ResponseWriter, r *http.Request) {
	var req models.RideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var drop *models.Coord
	if req.DropLat != nil && req.DropLong != nil {
		drop = &models.Coord{Lat: *req.DropLat, Lon: *req.DropLong}
	}
	ride, err := s.Matcher.RequestRide(r.Context(), req.RiderID,
		models.Coord{Lat: req.PickupLat, Lon: req.PickupLong}, drop)
	if err != nil {
		if errors.Is(err, match.ErrNoDriversAvailable) {
			writeError(w, http.StatusNotFound, "no drivers found nearby")
			return
		}
		s.logger.Error("ride request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.publishRideUpdate(ride, "driver matched")
	writeJSON(w, http.StatusCreated, ride)
}

func (s *Server) handleGetRide(w http.ResponseWriter, r *http.Request) {
	ride, err := s.Store.GetByID(r.Context(), mux.Vars(r)["ride_id"])
	if err != nil {
		s.writeTransitionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ride)
}

// transitionHandler maps a lifecycle action to its service call; every
// successful transition is broadcast as a RIDE_UPDATE.
func (s *Server) transitionHandler(action string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rideID := mux.Vars(r)["ride_id"]
		var ride *models.Ride
		var err error
		switch action {
		case "accept":
			ride, err = s.Rides.Accept(r.Context(), rideID)
		case "start":
			ride, err = s.Rides.Start(r.Context(), rideID)
		case "pause":
			ride, err = s.Rides.Pause(r.Context(), rideID)
		case "resume":
			ride, err = s.Rides.Resume(r.Context(), rideID)
		case "pay":
			ride, err = s.Rides.Pay(r.Context(), rideID)
		}
		if err != nil {
			s.writeTransitionError(w, err)
			return
		}
		s.publishRideUpdate(ride, "ride "+action)
		writeJSON(w, http.StatusOK, ride)
	}
}

func (s *Server) handleEndRide(w http.ResponseWriter, r *http.Request) {
	rideID := mux.Vars(r)["ride_id"]
	var body struct {
		DropLat  *float64 `json:"drop_lat"`
		DropLong *float64 `json:"drop_long"`
	}
	// body is optional; the stored drop point is used when absent
	_ = json.NewDecoder(r.Body).Decode(&body)
	var drop *models.Coord
	if body.DropLat != nil && body.DropLong != nil {
		drop = &models.Coord{Lat: *body.DropLat, Lon: *body.DropLong}
	}

	ride, err := s.Rides.End(r.Context(), rideID, drop)
	if err != nil {
		s.writeTransitionError(w, err)
		return
	}
	s.publishRideUpdate(ride, "trip ended")
	writeJSON(w, http.StatusOK, ride)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.Hub.Attach(conn)
}

func (s *Server) publishRideUpdate(ride *models.Ride, detail string) {
	var fare *float64
	if ride.Status == models.StatusCompleted {
		f := ride.Fare
		fare = &f
	}
	s.Bus.Publish(events.RideUpdate{
		RideID:   ride.ID,
		Status:   string(ride.Status),
		DriverID: ride.DriverID,
		Fare:     fare,
		Detail:   detail,
	})
}

func (s *Server) writeTransitionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "ride not found")
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, "ride already in a different state")
	default:
		s.logger.Error("transition failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func newID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
