package persistence

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

// Server is the persistence-service REST surface (spec.md §6), grounded on
// the teacher's gorilla/mux + rs/cors server shape (pkg/api/server.go).
type Server struct {
	store  *Store
	router *mux.Router
	logger *zap.SugaredLogger
}

// NewServer wires a Server to store.
func NewServer(store *Store, logger *zap.SugaredLogger) *Server {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	s := &Server{store: store, router: mux.NewRouter(), logger: logger}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/orders", s.handlePostOrders).Methods("POST")
	s.router.HandleFunc("/orders", s.handleGetOrders).Methods("GET")
	s.router.HandleFunc("/trades", s.handlePostTrades).Methods("POST")
	s.router.HandleFunc("/trades", s.handleGetTrades).Methods("GET")
	s.router.HandleFunc("/measurements", s.handlePostMeasurements).Methods("POST")
	s.router.HandleFunc("/measurements", s.handleGetMeasurements).Methods("GET")
	s.router.HandleFunc("/forecasts", s.handlePostForecasts).Methods("POST")
	s.router.HandleFunc("/forecasts", s.handleGetForecasts).Methods("GET")
	s.router.HandleFunc("/market", s.handlePostMarket).Methods("POST")
	s.router.HandleFunc("/market", s.handleGetMarket).Methods("GET")
	s.router.HandleFunc("/community-market", s.handleGetCommunityMarket).Methods("GET")
	s.router.HandleFunc("/health_check", s.handleHealthCheck).Methods("GET")
}

// Handler returns the CORS-wrapped router, ready to pass to http.Serve or
// http.ListenAndServe.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: false,
	})
	return c.Handler(s.router)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func parseUint(q string) uint64 {
	v, _ := strconv.ParseUint(q, 10, 64)
	return v
}

func (s *Server) handlePostOrders(w http.ResponseWriter, r *http.Request) {
	var orders []WireOrder
	if err := json.NewDecoder(r.Body).Decode(&orders); err != nil {
		s.logger.Warnw("decode_orders_failed", "err", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, s.store.InsertOrders(orders))
}

func (s *Server) handleGetOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	orders := s.store.Orders(q.Get("market_id"), parseUint(q.Get("start_time")), parseUint(q.Get("end_time")))
	writeJSON(w, http.StatusOK, orders)
}

func (s *Server) handlePostTrades(w http.ResponseWriter, r *http.Request) {
	var trades []WireTrade
	if err := json.NewDecoder(r.Body).Decode(&trades); err != nil {
		s.logger.Warnw("decode_trades_failed", "err", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, s.store.InsertTrades(trades))
}

func (s *Server) handleGetTrades(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	trades := s.store.Trades(q.Get("market_id"), parseUint(q.Get("start_time")), parseUint(q.Get("end_time")))
	writeJSON(w, http.StatusOK, trades)
}

func (s *Server) handlePostMeasurements(w http.ResponseWriter, r *http.Request) {
	var readings []Reading
	if err := json.NewDecoder(r.Body).Decode(&readings); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, s.store.InsertMeasurements(readings))
}

func (s *Server) handleGetMeasurements(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, s.store.Measurements(q.Get("area_uuid"), parseUint(q.Get("start_time")), parseUint(q.Get("end_time"))))
}

func (s *Server) handlePostForecasts(w http.ResponseWriter, r *http.Request) {
	var readings []Reading
	if err := json.NewDecoder(r.Body).Decode(&readings); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, s.store.InsertForecasts(readings))
}

func (s *Server) handleGetForecasts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, s.store.Forecasts(q.Get("area_uuid"), parseUint(q.Get("start_time")), parseUint(q.Get("end_time"))))
}

func (s *Server) handlePostMarket(w http.ResponseWriter, r *http.Request) {
	var topo Topology
	if err := json.NewDecoder(r.Body).Decode(&topo); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	marketID, _ := topo["market_id"].(string)
	s.store.PutMarket(marketID, topo)
	writeJSON(w, http.StatusOK, topo)
}

func (s *Server) handleGetMarket(w http.ResponseWriter, r *http.Request) {
	marketID := r.URL.Query().Get("market_id")
	topo, ok := s.store.Market(marketID)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "market not found"})
		return
	}
	writeJSON(w, http.StatusOK, topo)
}

func (s *Server) handleGetCommunityMarket(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	topo, ok := s.store.CommunityMarket(q.Get("community_uuid"), q.Get("time_slot"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "community market not found"})
		return
	}
	writeJSON(w, http.StatusOK, topo)
}

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// ListenAndServe starts the HTTP server on addr.
func (s *Server) ListenAndServe(addr string) error {
	s.logger.Infow("persistence_server_starting", "addr", addr)
	return http.ListenAndServe(addr, s.Handler())
}
