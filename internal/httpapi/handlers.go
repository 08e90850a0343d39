package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"lotwatch/internal/domain"
)

const dateLayout = "2006-01-02"

// vehicleDTO is one vehicle version as rendered on the wire.
type vehicleDTO struct {
	VehicleID        int64      `json:"vehicle_id"`
	ModelName        string     `json:"model_name"`
	Price            string     `json:"price"`
	Kilometers       int        `json:"kilometers"`
	RegistrationDate *string    `json:"registration_date,omitempty"`
	PowerKW          *int       `json:"power_kw,omitempty"`
	PowerPS          *int       `json:"power_ps,omitempty"`
	BatteryRangeKM   *int       `json:"battery_range_km,omitempty"`
	Link             string     `json:"link,omitempty"`
	FirstSeen        string     `json:"first_seen"`
	LastSeen         string     `json:"last_seen"`
	ValidFrom        string     `json:"valid_from"`
	ValidTo          *string    `json:"valid_to,omitempty"`
	IsLatest         bool       `json:"is_latest"`
	Status           string     `json:"status"`
	Scores           *scoresDTO `json:"scores,omitempty"`
}

type scoresDTO struct {
	ValueEfficiency  *float64 `json:"value_efficiency,omitempty"`
	AgeUsage         *float64 `json:"age_usage,omitempty"`
	PerformanceRange *float64 `json:"performance_range,omitempty"`
	Equipment        *float64 `json:"equipment,omitempty"`
	Composite        *float64 `json:"composite,omitempty"`
}

type equipmentDTO struct {
	Category  string  `json:"category"`
	Name      string  `json:"name"`
	ValidFrom string  `json:"valid_from"`
	ValidTo   *string `json:"valid_to,omitempty"`
	IsLatest  bool    `json:"is_latest"`
}

// listVehicles renders the latest view: every vehicle's current version with
// its current score bundle.
func (s *Server) listVehicles(w http.ResponseWriter, r *http.Request) {
	vehicles, err := s.vehicleStore.GetLatest(r.Context())
	if err != nil {
		serverError(w, "list vehicles", err)
		return
	}
	scores, err := s.scoreStore.GetLatest(r.Context())
	if err != nil {
		serverError(w, "list scores", err)
		return
	}

	scoresByID := make(map[int64]domain.ScoreBundle, len(scores))
	for _, rec := range scores {
		scoresByID[rec.VehicleID] = rec.Scores
	}

	out := make([]vehicleDTO, 0, len(vehicles))
	for _, v := range vehicles {
		dto := vehicleToDTO(v)
		if bundle, ok := scoresByID[v.VehicleID]; ok {
			dto.Scores = bundleToDTO(bundle)
		}
		out = append(out, dto)
	}
	writeJSON(w, out)
}

// vehicleHistory renders the full attribute and score version chains.
func (s *Server) vehicleHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := vehicleID(w, r)
	if !ok {
		return
	}

	chain, err := s.vehicleStore.GetByVehicleID(r.Context(), id)
	if err != nil {
		serverError(w, "vehicle history", err)
		return
	}
	if len(chain) == 0 {
		http.Error(w, "vehicle not found", http.StatusNotFound)
		return
	}
	scores, err := s.scoreStore.GetByVehicleID(r.Context(), id)
	if err != nil {
		serverError(w, "score history", err)
		return
	}

	versions := make([]vehicleDTO, 0, len(chain))
	for _, v := range chain {
		versions = append(versions, vehicleToDTO(v))
	}

	type scoreVersionDTO struct {
		Scores    scoresDTO `json:"scores"`
		ValidFrom string    `json:"valid_from"`
		ValidTo   *string   `json:"valid_to,omitempty"`
		IsLatest  bool      `json:"is_latest"`
	}
	scoreVersions := make([]scoreVersionDTO, 0, len(scores))
	for _, rec := range scores {
		scoreVersions = append(scoreVersions, scoreVersionDTO{
			Scores:    *bundleToDTO(rec.Scores),
			ValidFrom: rec.ValidFrom.Format(dateLayout),
			ValidTo:   datePtr(rec.ValidTo),
			IsLatest:  rec.IsLatest,
		})
	}

	writeJSON(w, map[string]any{
		"vehicle_id": id,
		"versions":   versions,
		"scores":     scoreVersions,
	})
}

// vehicleEquipment renders the equipment set, either current or, with
// ?as_of=YYYY-MM-DD, reconstructed for a past date.
func (s *Server) vehicleEquipment(w http.ResponseWriter, r *http.Request) {
	id, ok := vehicleID(w, r)
	if !ok {
		return
	}

	var records []*domain.EquipmentRecord
	var err error
	if asOf := r.URL.Query().Get("as_of"); asOf != "" {
		t, parseErr := time.Parse(dateLayout, asOf)
		if parseErr != nil {
			http.Error(w, "as_of: want YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		records, err = s.equipmentStore.GetAsOf(r.Context(), id, t)
	} else {
		records, err = s.equipmentStore.GetByVehicleID(r.Context(), id)
	}
	if err != nil {
		serverError(w, "vehicle equipment", err)
		return
	}

	out := make([]equipmentDTO, 0, len(records))
	for _, rec := range records {
		out = append(out, equipmentDTO{
			Category:  rec.Category,
			Name:      rec.Name,
			ValidFrom: rec.ValidFrom.Format(dateLayout),
			ValidTo:   datePtr(rec.ValidTo),
			IsLatest:  rec.IsLatest,
		})
	}
	writeJSON(w, out)
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func vehicleID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid vehicle id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func vehicleToDTO(v *domain.VehicleRecord) vehicleDTO {
	dto := vehicleDTO{
		VehicleID:      v.VehicleID,
		ModelName:      v.ModelName,
		Price:          v.Price.StringFixed(2),
		Kilometers:     v.Kilometers,
		PowerKW:        v.PowerKW,
		PowerPS:        v.PowerPS,
		BatteryRangeKM: v.BatteryRangeKM,
		Link:           v.Link,
		FirstSeen:      v.FirstSeen.Format(dateLayout),
		LastSeen:       v.LastSeen.Format(dateLayout),
		ValidFrom:      v.ValidFrom.Format(dateLayout),
		ValidTo:        datePtr(v.ValidTo),
		IsLatest:       v.IsLatest,
		Status:         string(v.Status),
	}
	if v.RegistrationDate != nil {
		reg := v.RegistrationDate.Format(dateLayout)
		dto.RegistrationDate = &reg
	}
	return dto
}

func bundleToDTO(b domain.ScoreBundle) *scoresDTO {
	return &scoresDTO{
		ValueEfficiency:  b.ValueEfficiency,
		AgeUsage:         b.AgeUsage,
		PerformanceRange: b.PerformanceRange,
		Equipment:        b.Equipment,
		Composite:        b.Composite,
	}
}

func datePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(dateLayout)
	return &s
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "err", err)
	}
}

func serverError(w http.ResponseWriter, what string, err error) {
	slog.Error(what, "err", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}
