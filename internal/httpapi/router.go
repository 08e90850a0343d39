// Package httpapi serves the read-only inventory API.
package httpapi

import (
	"net/http"
	"os"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"lotwatch/internal/observability"
	"lotwatch/internal/storage"
)

// Server exposes the stored latest state and version histories over HTTP.
type Server struct {
	vehicleStore   storage.VehicleHistoryStore
	equipmentStore storage.EquipmentHistoryStore
	scoreStore     storage.ScoreHistoryStore
}

// NewServer creates an API server over the three history stores.
func NewServer(
	vehicleStore storage.VehicleHistoryStore,
	equipmentStore storage.EquipmentHistoryStore,
	scoreStore storage.ScoreHistoryStore,
) *Server {
	return &Server{
		vehicleStore:   vehicleStore,
		equipmentStore: equipmentStore,
		scoreStore:     scoreStore,
	}
}

// Router builds the HTTP route table with request logging.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/v1/vehicles", s.listVehicles).Methods("GET")
	r.HandleFunc("/api/v1/vehicles/{id:[0-9]+}/history", s.vehicleHistory).Methods("GET")
	r.HandleFunc("/api/v1/vehicles/{id:[0-9]+}/equipment", s.vehicleEquipment).Methods("GET")
	r.HandleFunc("/healthz", s.healthz).Methods("GET")
	r.Handle("/metrics", observability.Handler()).Methods("GET")

	return handlers.LoggingHandler(os.Stdout, r)
}
