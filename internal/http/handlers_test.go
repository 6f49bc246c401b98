package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Greeshmanth1/daw/internal/config"
	"github.com/Greeshmanth1/daw/internal/logging"
	"github.com/Greeshmanth1/daw/internal/models"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.ServerConfig{
		MatchRadiusKm:      5000,
		MatchLimit:         1,
		FareBase:           50,
		FarePerKm:          12,
		PaymentSuccessRate: 1.0,
		LogLevel:           "error",
	}
	s, err := NewServer(cfg, logging.New(cfg.LogLevel))
	if err != nil {
		t.Fatalf("server wiring: %v", err)
	}
	return s
}

func doJSON(t *testing.T, s *Server, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	var out map[string]any
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &out)
	}
	return w, out
}

func TestRideScenarioEndToEnd(t *testing.T) {
	s := testServer(t)

	w, _ := doJSON(t, s, "POST", "/v1/drivers/7/location", map[string]float64{"lat": 12.9716, "long": 77.5946})
	if w.Code != http.StatusOK {
		t.Fatalf("location update: %d %s", w.Code, w.Body.String())
	}

	w, ride := doJSON(t, s, "POST", "/v1/rides", models.RideRequest{
		RiderID: "42", PickupLat: 12.9716, PickupLong: 77.5946,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("ride request: %d %s", w.Code, w.Body.String())
	}
	if ride["status"] != string(models.StatusRequested) || ride["driver_id"] != "7" {
		t.Fatalf("unexpected ride: %+v", ride)
	}
	id := ride["id"].(string)

	for _, step := range []struct {
		action string
		status models.RideStatus
	}{
		{"accept", models.StatusAccepted},
		{"start", models.StatusInProgress},
	} {
		w, body := doJSON(t, s, "POST", fmt.Sprintf("/v1/rides/%s/%s", id, step.action), nil)
		if w.Code != http.StatusOK || body["status"] != string(step.status) {
			t.Fatalf("%s: %d %s", step.action, w.Code, w.Body.String())
		}
	}

	w, done := doJSON(t, s, "POST", "/v1/rides/"+id+"/end", map[string]float64{"drop_lat": 13.0, "drop_long": 77.6})
	if w.Code != http.StatusOK || done["status"] != string(models.StatusCompleted) {
		t.Fatalf("end: %d %s", w.Code, w.Body.String())
	}
	firstFare := done["fare"].(float64)
	if firstFare <= 50 {
		t.Fatalf("expected fare above base, got %v", firstFare)
	}

	// idempotent second end
	w, again := doJSON(t, s, "POST", "/v1/rides/"+id+"/end", nil)
	if w.Code != http.StatusOK || again["fare"].(float64) != firstFare {
		t.Fatalf("second end changed fare: %s", w.Body.String())
	}

	w, paid := doJSON(t, s, "POST", "/v1/rides/"+id+"/pay", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("pay: %d %s", w.Code, w.Body.String())
	}
	ps := paid["payment_status"]
	if ps != string(models.PaymentPaid) && ps != string(models.PaymentFailed) {
		t.Fatalf("payment must land on one of two outcomes, got %v", ps)
	}
	if paid["status"] != string(models.StatusCompleted) {
		t.Fatalf("pay must not change lifecycle status: %v", paid["status"])
	}

	w, got := doJSON(t, s, "GET", "/v1/rides/"+id, nil)
	if w.Code != http.StatusOK || got["id"] != id {
		t.Fatalf("fetch: %d %s", w.Code, w.Body.String())
	}
}

func TestRideRequestNoDrivers(t *testing.T) {
	s := testServer(t)
	w, _ := doJSON(t, s, "POST", "/v1/rides", models.RideRequest{RiderID: "42", PickupLat: 0, PickupLong: 0})
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestDoubleAcceptConflicts(t *testing.T) {
	s := testServer(t)
	doJSON(t, s, "POST", "/v1/drivers/7/location", map[string]float64{"lat": 1, "long": 1})
	_, ride := doJSON(t, s, "POST", "/v1/rides", models.RideRequest{RiderID: "42", PickupLat: 1, PickupLong: 1})
	id := ride["id"].(string)

	if w, _ := doJSON(t, s, "POST", "/v1/rides/"+id+"/accept", nil); w.Code != http.StatusOK {
		t.Fatalf("first accept: %d", w.Code)
	}
	if w, _ := doJSON(t, s, "POST", "/v1/rides/"+id+"/accept", nil); w.Code != http.StatusConflict {
		t.Fatalf("second accept must conflict, got %d", w.Code)
	}
}

func TestUnknownRideIs404(t *testing.T) {
	s := testServer(t)
	for _, path := range []string{"/v1/rides/nope", "/v1/rides/nope/accept", "/v1/rides/nope/end"} {
		method := "POST"
		if !strings.Contains(path, "/accept") && !strings.Contains(path, "/end") {
			method = "GET"
		}
		if w, _ := doJSON(t, s, method, path, nil); w.Code != http.StatusNotFound {
			t.Fatalf("%s %s: expected 404, got %d", method, path, w.Code)
		}
	}
}

func TestWebSocketReceivesEvents(t *testing.T) {
	s := testServer(t)
	ts := httptest.NewServer(s)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("ws dial: %v", err)
	}
	defer conn.Close()

	// give the hub a moment to register the subscription
	time.Sleep(50 * time.Millisecond)

	doJSON(t, s, "POST", "/v1/drivers/9/location", map[string]float64{"lat": 12.9, "long": 77.5})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ws read: %v", err)
	}
	var msg map[string]any
	if err := json.Unmarshal(raw, &msg); err != nil {
		t.Fatalf("ws payload: %v", err)
	}
	if msg["type"] != "DRIVER_MOVED" || msg["id"] != "9" {
		t.Fatalf("unexpected ws event: %v", msg)
	}
}
