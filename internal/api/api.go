package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"adjust-consumer/internal/analytics"
	"adjust-consumer/internal/config"
	"adjust-consumer/internal/database"
	"adjust-consumer/internal/logger"
	"adjust-consumer/internal/models"
)

// Analytics is the host-side entry point the API forwards to
type Analytics interface {
	Track(event analytics.Event, params map[string]analytics.ParameterValue)
	Set(property analytics.UserProperty, value *string)
	SetUserID(userID *string)
	ActiveConsumers() []string
}

// DeliveryStore records and looks up forwarded messages
type DeliveryStore interface {
	RecordDelivery(ctx context.Context, d models.Delivery) (bool, error)
	GetDelivery(ctx context.Context, messageID string) (*models.Delivery, error)
}

// DLQReader lists dead-lettered messages
type DLQReader interface {
	GetCount(ctx context.Context) (int64, error)
	GetEntries(ctx context.Context, start, stop int64) ([]models.DLQEntry, error)
}

// Server represents the API server
type Server struct {
	router     *mux.Router
	analytics  Analytics
	deliveries DeliveryStore
	dlq        DLQReader
	cfg        *config.APIConfig
	server     *http.Server
}

// New creates a new API server. deliveries and dlq may be nil, which disables their routes.
func New(cfg *config.APIConfig, a Analytics, deliveries DeliveryStore, dlq DLQReader) *Server {
	s := &Server{
		router:     mux.NewRouter(),
		analytics:  a,
		deliveries: deliveries,
		dlq:        dlq,
		cfg:        cfg,
	}

	s.setupRoutes()
	return s
}

type eventRequest struct {
	Name   string                     `json:"name"`
	Params map[string]json.RawMessage `json:"params"`
}

type valueRequest struct {
	Value *string `json:"value"`
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.healthCheck).Methods("GET")

	s.router.HandleFunc("/events", s.trackEvent).Methods("POST")
	s.router.HandleFunc("/user-properties/{key}", s.setUserProperty).Methods("PUT")
	s.router.HandleFunc("/user-id", s.setUserID).Methods("PUT")

	if s.deliveries != nil {
		s.router.HandleFunc("/deliveries/{id}", s.getDelivery).Methods("GET")
	}
	if s.dlq != nil {
		s.router.HandleFunc("/dlq", s.listDLQ).Methods("GET")
	}

	s.router.Handle("/metrics", promhttp.Handler())
}

// Handler returns the router
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the API server
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         ":" + s.cfg.Port,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Log.Infof("Starting API server on port %s", s.cfg.Port)
	return s.server.ListenAndServe()
}

// Stop gracefully stops the API server
func (s *Server) Stop(ctx context.Context) error {
	logger.Log.Info("Shutting down API server...")
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"consumers": s.analytics.ActiveConsumers(),
		"time":      time.Now().Format(time.RFC3339),
	})
}

// trackEvent handles POST /events. With a delivery store the event is recorded
// first and its messageId can be looked up under /deliveries/{id}.
func (s *Server) trackEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	params, err := analytics.DecodeParams(req.Params)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	messageID := uuid.New().String()
	resp := map[string]string{"status": "accepted"}

	if s.deliveries != nil {
		consumers := s.analytics.ActiveConsumers()
		sort.Strings(consumers)

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		_, err := s.deliveries.RecordDelivery(ctx, models.Delivery{
			MessageID:   messageID,
			Kind:        models.EventMessage,
			Name:        req.Name,
			Consumers:   strings.Join(consumers, ","),
			ForwardedAt: time.Now(),
		})
		if err != nil {
			logger.WithMessageID(messageID).Errorf("Failed to record delivery: %v", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		resp["messageId"] = messageID
	}

	s.analytics.Track(analytics.Event(req.Name), params)

	logger.WithMessageID(messageID).WithFields(logrus.Fields{
		"event":  req.Name,
		"params": len(params),
	}).Info("Event accepted")

	writeJSON(w, http.StatusAccepted, resp)
}

// setUserProperty handles PUT /user-properties/{key}
func (s *Server) setUserProperty(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]

	var req valueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	s.analytics.Set(analytics.UserProperty(key), req.Value)
	w.WriteHeader(http.StatusNoContent)
}

// setUserID handles PUT /user-id. The identifier cannot be read back.
func (s *Server) setUserID(w http.ResponseWriter, r *http.Request) {
	var req valueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	s.analytics.SetUserID(req.Value)
	w.WriteHeader(http.StatusNoContent)
}

// getDelivery handles GET /deliveries/{id}
func (s *Server) getDelivery(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	delivery, err := s.deliveries.GetDelivery(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		logger.Log.Errorf("Failed to get delivery: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, delivery)
}

// listDLQ handles GET /dlq?limit=N, returning the newest entries
func (s *Server) listDLQ(w http.ResponseWriter, r *http.Request) {
	limit := int64(20)
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 || n > 100 {
			http.Error(w, "limit must be between 1 and 100", http.StatusBadRequest)
			return
		}
		limit = n
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	count, err := s.dlq.GetCount(ctx)
	if err != nil {
		logger.Log.Errorf("Failed to count DLQ: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	entries, err := s.dlq.GetEntries(ctx, -limit, -1)
	if err != nil {
		logger.Log.Errorf("Failed to list DLQ: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":   count,
		"entries": entries,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Errorf("Failed to encode response: %v", err)
	}
}
