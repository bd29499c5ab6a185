package httpapi

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/accessible-dispatch/internal/config"
	"github.com/example/accessible-dispatch/internal/dispatch"
	"github.com/example/accessible-dispatch/internal/geo"
	"github.com/example/accessible-dispatch/internal/ingest"
	"github.com/example/accessible-dispatch/internal/logging"
	"github.com/example/accessible-dispatch/internal/models"
	"github.com/example/accessible-dispatch/internal/notify"
	"github.com/example/accessible-dispatch/internal/predictor"
	"github.com/example/accessible-dispatch/internal/priority"
	"github.com/example/accessible-dispatch/internal/profiles"
	"github.com/example/accessible-dispatch/internal/scoring"
	"github.com/example/accessible-dispatch/internal/storage"
)

type Server struct {
	Coordinator *dispatch.Coordinator
	Kafka       *ingest.KafkaProducer
	WSReg       *notify.Registry

	logger *slog.Logger
	mux    *mux.Router
}

// NewServer wires the coordinator and its collaborators from config,
// falling back to in-process defaults for anything not configured.
func NewServer(cfg config.ServerConfig) (*Server, error) {
	logger := logging.NewLogger(cfg.LogLevel)

	tables := geo.DefaultTables()
	if cfg.TablesPath != "" {
		t, err := geo.LoadTables(cfg.TablesPath)
		if err != nil {
			return nil, err
		}
		tables = t
	}
	est := geo.NewEstimator(tables)

	var pred predictor.Predictor
	if cfg.PredictorURL != "" {
		pred = predictor.NewHTTPPredictor(cfg.PredictorURL, cfg.PredictorTimeout)
	}

	var feed priority.Feed
	if cfg.PriorityFeedURL != "" {
		feed = priority.NewHTTPFeed(cfg.PriorityFeedURL, cfg.PriorityTimeout)
	} else {
		feed = priority.NewSimulator(time.Now().UnixNano())
	}

	var store profiles.Store = profiles.NopStore{}
	var stats profiles.FleetStats = profiles.DefaultStats()
	if cfg.RedisAddr != "" {
		store = profiles.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword)
		stats = profiles.NewRedisStats(cfg.RedisAddr, cfg.RedisPassword)
	}

	var history storage.DispatchStore
	if cfg.PGDSN != "" {
		if ps, err := storage.NewPostgresStore(cfg.PGDSN); err == nil {
			history = ps
		} else {
			logger.Warn("postgres unavailable, using in-memory dispatch history", "error", err)
		}
	}
	if history == nil {
		history = storage.NewMemoryStore()
	}

	var kp *ingest.KafkaProducer
	if len(cfg.KafkaBrokers) > 0 {
		kp = ingest.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	}

	wsreg := notify.NewRegistry(logger)

	engine := scoring.NewEngine(est, pred, store, stats, logger)
	engine.PredictTimeout = cfg.PredictorTimeout

	coord := dispatch.NewCoordinator(engine, est, feed, stats, history, logger)
	coord.Profiles = store
	coord.Notifier = wsreg
	coord.FeedTimeout = cfg.PriorityTimeout

	s := &Server{Coordinator: coord, Kafka: kp, WSReg: wsreg, logger: logger, mux: mux.NewRouter()}
	s.registerMiddleware()
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/v1/dispatch", s.handleDispatch).Methods("POST")
	s.mux.HandleFunc("/api/v1/dispatch/batch", s.handleBatchOptimize).Methods("POST")
	s.mux.HandleFunc("/api/v1/status", s.handleSystemStatus).Methods("GET")
	s.mux.HandleFunc("/api/v1/profiles/{user_id}", s.handleUpdateProfile).Methods("POST")
	s.mux.HandleFunc("/internal/driver/status", s.handleDriverStatus).Methods("POST")
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) }).Methods("GET")
	s.mux.Handle("/metrics", promhttp.Handler())
	s.mux.HandleFunc("/ws/{driver_id}", s.handleWS)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

// dispatchPayload mirrors the wire shape of the upstream call service.
type dispatchPayload struct {
	RequestID   string    `json:"request_id"`
	RequestTime time.Time `json:"request_time"`
	CallRequest struct {
		UserID             string `json:"user_id"`
		PickupLocation     string `json:"pickup_location"`
		Destination        string `json:"destination"`
		Wheelchair         bool   `json:"wheelchair"`
		DestinationType    string `json:"destination_type"`
		MedicalAppointment bool   `json:"medical_appointment"`
	} `json:"call_request"`
	AvailableDrivers []models.Driver `json:"available_drivers"`
	Weather          string          `json:"weather"`
	VehicleCount     int             `json:"num_vehicles"`
	UserCount        int             `json:"num_users"`
}

func (p dispatchPayload) toRequest(now time.Time) models.RideRequest {
	req := models.RideRequest{
		ID:                 p.RequestID,
		RequestTime:        p.RequestTime,
		UserID:             p.CallRequest.UserID,
		PickupLocation:     p.CallRequest.PickupLocation,
		Destination:        p.CallRequest.Destination,
		Wheelchair:         p.CallRequest.Wheelchair,
		DestinationType:    p.CallRequest.DestinationType,
		MedicalAppointment: p.CallRequest.MedicalAppointment,
		Weather:            p.Weather,
		VehicleCount:       p.VehicleCount,
		UserCount:          p.UserCount,
	}
	if req.ID == "" {
		req.ID = newID()
	}
	if req.RequestTime.IsZero() {
		req.RequestTime = now
	}
	if req.DestinationType == "" {
		req.DestinationType = models.DestGeneral
	}
	if req.Weather == "" {
		req.Weather = "clear"
	}
	return req
}

func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	var p dispatchPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	req := p.toRequest(time.Now())

	res, err := s.Coordinator.Dispatch(r.Context(), req, p.AvailableDrivers)
	if err != nil {
		s.writeDispatchError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) writeDispatchError(w http.ResponseWriter, err error) {
	var unknown geo.ErrUnknownLocation
	switch {
	case errors.Is(err, dispatch.ErrNoAvailableDriver):
		http.Error(w, "no vehicle available for dispatch", http.StatusNotFound)
	case errors.As(err, &unknown):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		s.logger.Error("dispatch failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func (s *Server) handleBatchOptimize(w http.ResponseWriter, r *http.Request) {
	var payloads []dispatchPayload
	if err := json.NewDecoder(r.Body).Decode(&payloads); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	now := time.Now()
	requests := make([]models.RideRequest, 0, len(payloads))
	seen := make(map[string]bool)
	driverIDs := make([]string, 0)
	for _, p := range payloads {
		requests = append(requests, p.toRequest(now))
		for _, d := range p.AvailableDrivers {
			if !seen[d.ID] {
				seen[d.ID] = true
				driverIDs = append(driverIDs, d.ID)
			}
		}
	}
	assignments := s.Coordinator.BatchOptimize(requests, driverIDs)
	writeJSON(w, http.StatusOK, map[string]any{"assignments": assignments})
}

func (s *Server) handleSystemStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Coordinator.SystemStatus(r.Context()))
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]
	var fields map[string]any
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.Coordinator.UpdateProfile(r.Context(), userID, fields); err != nil {
		s.logger.Error("profile update failed", "user_id", userID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "updated", "user_id": userID})
}

func (s *Server) handleDriverStatus(w http.ResponseWriter, r *http.Request) {
	var d models.Driver
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if d.ID == "" {
		http.Error(w, "driver_id required", http.StatusBadRequest)
		return
	}
	if d.Status == "" {
		d.Status = models.StatusAvailable
	}
	d.Updated = time.Now()

	// publish to kafka if configured; the consumer keeps the registry
	if s.Kafka != nil {
		if err := s.Kafka.PublishDriverStatus(d); err != nil {
			s.logger.Warn("driver status publish failed", "driver_id", d.ID, "error", err)
		}
	}
	s.Coordinator.UpdateDriver(d)
	w.WriteHeader(http.StatusNoContent)
}

var upgrader = websocket.Upgrader{}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["driver_id"]
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, "upgrade failed", http.StatusBadRequest)
		return
	}
	s.WSReg.Add(id, conn)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func newID() string { b := make([]byte, 8); _, _ = rand.Read(b); return hex.EncodeToString(b) }
