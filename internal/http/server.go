package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Greeshmanth1/daw/internal/config"
	"github.com/Greeshmanth1/daw/internal/events"
	"github.com/Greeshmanth1/daw/internal/fare"
	"github.com/Greeshmanth1/daw/internal/geo"
	"github.com/Greeshmanth1/daw/internal/ingest"
	"github.com/Greeshmanth1/daw/internal/lifecycle"
	"github.com/Greeshmanth1/daw/internal/match"
	"github.com/Greeshmanth1/daw/internal/payments"
	"github.com/Greeshmanth1/daw/internal/store"
	"github.com/Greeshmanth1/daw/internal/ws"
)

// Server is the boundary glue: it maps the request surface 1:1 onto the core
// operations and publishes the resulting events.
type Server struct {
	Geo     geo.Index
	Store   store.RideStore
	Matcher *match.Engine
	Rides   *lifecycle.Service
	Bus     *events.Bus
	Hub     *ws.Hub
	Kafka   *ingest.KafkaProducer

	logger *slog.Logger
	mux    *mux.Router
}

// NewServer wires the core components from configuration. Redis and
// Postgres back the geo index and ride ledger when configured; otherwise the
// in-memory fallbacks serve local runs.
func NewServer(cfg config.ServerConfig, logger *slog.Logger) (*Server, error) {
	var index geo.Index
	if cfg.RedisAddr != "" {
		index = geo.NewRedisIndex(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisGeoKey)
	} else {
		index = geo.NewMemoryIndex()
	}

	var rideStore store.RideStore
	if cfg.PGDSN != "" {
		ps, err := store.NewPostgresStore(cfg.PGDSN)
		if err != nil {
			return nil, err
		}
		rideStore = ps
	} else {
		rideStore = store.NewMemoryStore()
	}

	var kp *ingest.KafkaProducer
	if len(cfg.KafkaBrokers) > 0 {
		kp = ingest.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	}

	bus := events.NewBus()
	s := &Server{
		Geo:   index,
		Store: rideStore,
		Matcher: &match.Engine{
			Geo:      index,
			Store:    rideStore,
			RadiusKm: cfg.MatchRadiusKm,
			Limit:    cfg.MatchLimit,
		},
		Rides: &lifecycle.Service{
			Store:  rideStore,
			Fare:   fare.Calculator{Base: cfg.FareBase, PerKm: cfg.FarePerKm},
			Oracle: payments.NewRandomOracle(cfg.PaymentSuccessRate, time.Now().UnixNano()),
		},
		Bus:    bus,
		Hub:    ws.NewHub(bus, logger),
		Kafka:  kp,
		logger: logger,
		mux:    mux.NewRouter(),
	}
	s.registerMiddleware()
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.mux.HandleFunc("/v1/drivers/{driver_id}/location", s.handleDriverLocation).Methods("POST")
	s.mux.HandleFunc("/v1/rides", s.handleRideRequest).Methods("POST")
	s.mux.HandleFunc("/v1/rides/{ride_id}", s.handleGetRide).Methods("GET")
	s.mux.HandleFunc("/v1/rides/{ride_id}/accept", s.transitionHandler("accept")).Methods("POST")
	s.mux.HandleFunc("/v1/rides/{ride_id}/start", s.transitionHandler("start")).Methods("POST")
	s.mux.HandleFunc("/v1/rides/{ride_id}/pause", s.transitionHandler("pause")).Methods("POST")
	s.mux.HandleFunc("/v1/rides/{ride_id}/resume", s.transitionHandler("resume")).Methods("POST")
	s.mux.HandleFunc("/v1/rides/{ride_id}/end", s.handleEndRide).Methods("POST")
	s.mux.HandleFunc("/v1/rides/{ride_id}/pay", s.transitionHandler("pay")).Methods("POST")
	s.mux.HandleFunc("/ws", s.handleWS)
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods("GET")
	s.mux.Handle("/metrics", promhttp.Handler())
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }
