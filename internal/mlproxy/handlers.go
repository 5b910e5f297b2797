package mlproxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/GreenHydrogen/H2-Backend/internal/geo"
	"github.com/GreenHydrogen/H2-Backend/internal/metrics"
)

const (
	// DefaultPolygonName is used when the client does not name its polygon.
	DefaultPolygonName = "User Selected Polygon"

	msgTooFewCoordinates = "Invalid coordinates. At least 3 points are required to form a polygon."
	msgProcessingFailed  = "ML processing failed"

	healthBudget = 5 * time.Second
)

// Service serves the /ml routes on top of a Recommender.
type Service struct {
	ML      Recommender
	Now     func() time.Time
	started time.Time
}

func NewService(ml Recommender) *Service {
	return &Service{ML: ml, Now: time.Now, started: time.Now()}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Predict validates the polygon, forwards it to the ML service and returns
// the normalized recommendations.
func (s *Service) Predict(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req PredictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var raw []json.RawMessage
	if len(req.Coordinates) > 0 {
		_ = json.Unmarshal(req.Coordinates, &raw)
	}
	if len(raw) < geo.MinVertices {
		metrics.ValidationRejects.WithLabelValues("too_few_points").Inc()
		writeStatusJSON(w, http.StatusBadRequest, countErrorBody{
			Error:     msgTooFewCoordinates,
			Received:  len(raw),
			Minimum:   geo.MinVertices,
			Timestamp: timestamp(s.now()),
		})
		return
	}

	poly, invalid := geo.DecodeVertices(raw)
	if len(invalid) > 0 || !geo.ValidateForAnalysis(poly).Valid {
		metrics.ValidationRejects.WithLabelValues("invalid_format").Inc()
		body := formatErrorBody{
			Error:        geo.MsgInvalidFormat,
			InvalidCount: len(invalid),
			Timestamp:    timestamp(s.now()),
		}
		if len(invalid) > 0 {
			body.Sample = invalid[0].Raw
		}
		writeStatusJSON(w, http.StatusBadRequest, body)
		return
	}
	validated := time.Now()

	name := polygonName(req.PolygonName)
	pointCount := reconcilePointCount(req.PointCount, len(poly))
	log.Printf("[mlproxy] predict polygon=%q points=%d area=%.3f", name, len(poly), req.Area)

	result, err := s.ML.Recommend(r.Context(), poly.Tuples())
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Printf("[mlproxy] client went away: %v", err)
		}
		code, retryable, msg := StatusFor(err)
		writeStatusJSON(w, code, ErrorBody{
			Error:     msgProcessingFailed,
			Message:   msg,
			Retryable: retryable,
			Timestamp: timestamp(s.now()),
		})
		return
	}

	resp := buildResponse(result, poly, name, pointCount)
	resp.Timestamp = timestamp(s.now())

	addServerTiming(w,
		[2]string{"validate", millis(validated.Sub(start))},
		[2]string{"ml", millis(time.Since(validated))},
	)
	writeJSON(w, resp)
}

// reconcilePointCount trusts the decoded coordinates over the count the
// client claims.
func reconcilePointCount(claimed, decoded int) int {
	if claimed != decoded && claimed > 0 {
		log.Printf("[mlproxy] pointCount %d does not match %d coordinates", claimed, decoded)
	}
	return decoded
}

func polygonName(name string) string {
	name = strings.TrimSpace(norm.NFC.String(name))
	if name == "" {
		return DefaultPolygonName
	}
	return name
}

func buildResponse(result *UpstreamResult, poly geo.Polygon, name string, pointCount int) PredictResponse {
	sites := normalizeSites(result.RecommendedSites)

	total := len(sites)
	if result.TotalSitesFound != nil {
		total = *result.TotalSitesFound
	}

	analysis := PolygonAnalysis{
		Status:     "sites_found",
		AreaKm2:    geo.AreaKm2(poly),
		PointCount: len(poly),
	}
	if len(sites) == 0 {
		analysis.Status = "no_sites_found"
	}
	if pa := result.PolygonAnalysis; pa != nil {
		if pa.Status != "" {
			analysis.Status = pa.Status
		}
		if pa.AreaKm2 != nil {
			analysis.AreaKm2 = *pa.AreaKm2
		}
		if pa.PointCount != nil {
			analysis.PointCount = *pa.PointCount
		}
	}
	analysis.Status = StatusLabel(analysis.Status)

	return PredictResponse{
		Success:          true,
		RecommendedSites: sites,
		TotalSitesFound:  total,
		PolygonAnalysis:  analysis,
		Message:          fmt.Sprintf("Successfully processed polygon \"%s\" with %d points", name, pointCount),
		MLMessage:        result.Message,
		InputShape:       len(poly),
	}
}

type validateRequest struct {
	Mode        string            `json:"mode"`
	Coordinates []json.RawMessage `json:"coordinates"`
}

type validateResponse struct {
	Valid        bool    `json:"valid"`
	Message      string  `json:"message"`
	Closed       bool    `json:"closed"`
	PointCount   int     `json:"pointCount"`
	InvalidCount int     `json:"invalidCount"`
	AreaKm2      float64 `json:"area_km2"`
}

// Validate runs the shared polygon rules without calling the ML service.
// Mode "analysis" (default) or "storage".
func (s *Service) Validate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	poly, invalid := geo.DecodeVertices(req.Coordinates)

	var res geo.Result
	switch req.Mode {
	case "", "analysis":
		res = geo.ValidateForAnalysis(poly)
	case "storage":
		res = geo.ValidateForStorage(poly)
	default:
		http.Error(w, "mode must be analysis or storage", http.StatusBadRequest)
		return
	}
	if len(invalid) > 0 && len(req.Coordinates) >= geo.MinVertices {
		res = geo.Result{Valid: false, Reason: geo.MsgInvalidFormat}
	}

	writeJSON(w, validateResponse{
		Valid:        res.Valid,
		Message:      res.Reason,
		Closed:       poly.Closed(),
		PointCount:   len(req.Coordinates),
		InvalidCount: len(invalid),
		AreaKm2:      geo.AreaKm2(poly),
	})
}

func (s *Service) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status":      "active",
		"model":       "hydrogen-site-recommender",
		"lastUpdated": timestamp(s.now()),
		"endpoints":   []string{"/predict", "/validate", "/status", "/info", "/health"},
		"description": "ML model for hydrogen site recommendation based on geographic polygons",
		"inputRequirements": map[string]string{
			"points":           "At least 3 coordinate pairs (unlimited)",
			"format":           "Array of {lat, lng} objects",
			"coordinateSystem": "WGS84 (decimal degrees)",
		},
		"system": map[string]string{
			"mlBackend": fmt.Sprintf("Using HTTP API (%s)", s.ML.BaseURL()),
		},
	})
}

func (s *Service) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"name":        "Hydrogen Site Recommender ML Model",
		"version":     "1.0.0",
		"description": "ML model for recommending optimal hydrogen production sites based on geographic areas",
		"features": []string{
			"Site filtering by geographic polygon",
			"ML-based site scoring and ranking",
			"Hydrogen production capacity optimization",
			"Renewable energy proximity analysis",
			"Demand and infrastructure assessment",
			"Flexible polygon input (3+ points)",
		},
		"outputFormat": map[string]string{
			"recommendedSites": "Array of top recommended sites",
			"scores":           "ML prediction scores for each site",
			"metadata":         "Analysis information and statistics",
		},
	})
}

// Health probes {ML_BACKEND_URL}/health and answers 503 when the service
// cannot be reached or reports a failure.
func (s *Service) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthBudget)
	defer cancel()

	body := map[string]any{
		"service":   "ML Model Service",
		"timestamp": timestamp(s.now()),
		"uptime":    time.Since(s.started).Seconds(),
	}

	resp, err := s.ML.Health(ctx)
	if err != nil {
		backend := map[string]any{"url": s.ML.BaseURL(), "status": "error", "error": err.Error()}
		var ue *UpstreamError
		if errors.As(err, &ue) && errors.Is(ue.Kind, ErrUpstreamStatus) {
			backend["status"] = "disconnected"
			backend["error"] = fmt.Sprintf("HTTP %d", ue.Status)
		}
		body["status"] = "unhealthy"
		body["ml_backend"] = backend
		writeStatusJSON(w, http.StatusServiceUnavailable, body)
		return
	}

	body["status"] = "healthy"
	body["ml_backend"] = map[string]any{
		"url":      s.ML.BaseURL(),
		"status":   "connected",
		"response": resp,
	}
	writeJSON(w, body)
}
