package plants

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/GreenHydrogen/H2-Backend/internal/db"
	"github.com/GreenHydrogen/H2-Backend/internal/geo"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Count   *int   `json:"count,omitempty"`
	Total   *int64 `json:"total,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[plants] encode response: %v", err)
	}
}

func fail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{Success: false, Error: msg})
}

// ListQuery is the parsed filter for ListHandler.
type ListQuery struct {
	Status string
	State  string
	Limit  int
	Page   int
}

func (q ListQuery) Offset() int { return (q.Page - 1) * q.Limit }

func parseListQuery(r *http.Request) ListQuery {
	v := r.URL.Query()
	q := ListQuery{Limit: defaultLimit, Page: 1}
	if s := strings.TrimSpace(v.Get("status")); s != "" && s != "all" {
		q.Status = s
	}
	q.State = strings.TrimSpace(v.Get("state"))
	if n, err := strconv.Atoi(v.Get("limit")); err == nil && n > 0 {
		q.Limit = min(n, maxLimit)
	}
	if n, err := strconv.Atoi(v.Get("page")); err == nil && n > 0 {
		q.Page = n
	}
	return q
}

func active() *gorm.DB {
	return db.DB.Model(&Plant{}).Where("is_active = ?", true)
}

func summaries(ps []Plant) []Summary {
	out := make([]Summary, len(ps))
	for i, p := range ps {
		out[i] = p.Summary()
	}
	return out
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern matches s anywhere in a LIKE operand, with s taken
// literally.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

func ListHandler(w http.ResponseWriter, r *http.Request) {
	q := parseListQuery(r)

	tx := active()
	if q.Status != "" {
		tx = tx.Where("status = ?", q.Status)
	}
	if q.State != "" {
		tx = tx.Where("state ILIKE ?", containsPattern(q.State))
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		fail(w, http.StatusInternalServerError, "Failed to count plants")
		return
	}

	var ps []Plant
	err := tx.Order("priority DESC").Order("created_at DESC").
		Limit(q.Limit).Offset(q.Offset()).Find(&ps).Error
	if err != nil {
		fail(w, http.StatusInternalServerError, "Failed to fetch plants")
		return
	}

	n := len(ps)
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: summaries(ps), Count: &n, Total: &total})
}

func StatisticsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := LoadStatistics(r.Context())
	if err != nil {
		log.Printf("[plants] statistics: %v", err)
		fail(w, http.StatusInternalServerError, "Failed to compute statistics")
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: stats})
}

func plantID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		fail(w, http.StatusBadRequest, "Invalid plant ID")
		return "", false
	}
	return id.String(), true
}

func findPlant(w http.ResponseWriter, id string, activeOnly bool) (*Plant, bool) {
	tx := db.DB.Model(&Plant{})
	if activeOnly {
		tx = active()
	}
	var p Plant
	err := tx.Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		fail(w, http.StatusNotFound, "Plant not found")
		return nil, false
	}
	if err != nil {
		fail(w, http.StatusInternalServerError, "Failed to fetch plant")
		return nil, false
	}
	return &p, true
}

func GetHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := plantID(w, r)
	if !ok {
		return
	}
	p, ok := findPlant(w, id, true)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: p})
}

func ByStateHandler(w http.ResponseWriter, r *http.Request) {
	state := strings.TrimSpace(chi.URLParam(r, "state"))
	var ps []Plant
	if err := active().Where("LOWER(state) = LOWER(?)", state).Order("priority DESC").Find(&ps).Error; err != nil {
		fail(w, http.StatusInternalServerError, "Failed to fetch plants")
		return
	}
	n := len(ps)
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: summaries(ps), Count: &n})
}

func ByStatusHandler(w http.ResponseWriter, r *http.Request) {
	status := chi.URLParam(r, "status")
	var ps []Plant
	if err := active().Where("status = ?", status).Order("priority DESC").Find(&ps).Error; err != nil {
		fail(w, http.StatusInternalServerError, "Failed to fetch plants")
		return
	}
	n := len(ps)
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: summaries(ps), Count: &n})
}

type withinRequest struct {
	Coordinates [][2]float64 `json:"coordinates"`
}

// WithinHandler lists active plants inside a drawn polygon, so the map can
// show existing capacity next to the recommended sites.
func WithinHandler(w http.ResponseWriter, r *http.Request) {
	var req withinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	poly := geo.FromTuples(req.Coordinates)
	if res := geo.ValidateForAnalysis(poly); !res.Valid {
		fail(w, http.StatusBadRequest, res.Reason)
		return
	}

	var ps []Plant
	tx := active()
	if lo, hi, ok := bounds(poly); ok {
		tx = tx.Where("latitude BETWEEN ? AND ? AND longitude BETWEEN ? AND ?", lo.Lat, hi.Lat, lo.Lng, hi.Lng)
	}
	if err := tx.Find(&ps).Error; err != nil {
		fail(w, http.StatusInternalServerError, "Failed to fetch plants")
		return
	}

	inside := FilterWithin(ps, poly)
	n := len(inside)
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: summaries(inside), Count: &n})
}

func bounds(p geo.Polygon) (lo, hi geo.Vertex, ok bool) {
	if len(p) == 0 {
		return lo, hi, false
	}
	lo, hi = p[0], p[0]
	for _, v := range p[1:] {
		lo.Lat, lo.Lng = min(lo.Lat, v.Lat), min(lo.Lng, v.Lng)
		hi.Lat, hi.Lng = max(hi.Lat, v.Lat), max(hi.Lng, v.Lng)
	}
	return lo, hi, true
}

// FilterWithin keeps the plants whose location falls inside poly.
func FilterWithin(ps []Plant, poly geo.Polygon) []Plant {
	out := make([]Plant, 0, len(ps))
	for _, p := range ps {
		if poly.Contains(geo.Vertex{Lat: p.Latitude, Lng: p.Longitude}) {
			out = append(out, p)
		}
	}
	return out
}

func CreateHandler(w http.ResponseWriter, r *http.Request) {
	var p Plant
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		fail(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	p.ID = uuid.NewString()
	p.IsActive = true
	p.Normalize()
	if err := p.Validate(); err != nil {
		fail(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := db.DB.Create(&p).Error; err != nil {
		log.Printf("[plants] create %q: %v", p.Name, err)
		fail(w, http.StatusInternalServerError, "Failed to create plant")
		return
	}
	writeJSON(w, http.StatusCreated, envelope{Success: true, Data: p, Message: "Plant created successfully"})
}

func UpdateHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := plantID(w, r)
	if !ok {
		return
	}
	p, ok := findPlant(w, id, false)
	if !ok {
		return
	}

	// Decode over the stored row so omitted fields keep their values.
	if err := json.NewDecoder(r.Body).Decode(p); err != nil {
		fail(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	p.ID = id
	p.UpdatedAt = time.Now()
	p.Normalize()
	if err := p.Validate(); err != nil {
		fail(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := db.DB.Save(p).Error; err != nil {
		fail(w, http.StatusInternalServerError, "Failed to update plant")
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: p, Message: "Plant updated successfully"})
}

// DeleteHandler deactivates a plant. Rows are never removed.
func DeleteHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := plantID(w, r)
	if !ok {
		return
	}
	res := db.DB.Model(&Plant{}).Where("id = ?", id).
		Updates(map[string]any{"is_active": false, "updated_at": time.Now()})
	if res.Error != nil {
		fail(w, http.StatusInternalServerError, "Failed to deactivate plant")
		return
	}
	if res.RowsAffected == 0 {
		fail(w, http.StatusNotFound, "Plant not found")
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "Plant deactivated successfully"})
}
