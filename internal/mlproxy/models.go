package mlproxy

import (
	"encoding/json"
	"strconv"
)

// PredictRequest is the body of POST /api/ml/predict. Coordinates stay raw
// so that malformed vertices are reported instead of failing the decode.
type PredictRequest struct {
	Coordinates json.RawMessage `json:"coordinates"`
	PolygonName string          `json:"polygonName"`
	Area        float64         `json:"area"`
	PointCount  int             `json:"pointCount"`
	MLInput     json.RawMessage `json:"mlInput,omitempty"`
}

// Site is one candidate location returned by the ML service. Fields the
// service adds beyond the known ones are kept in Extra and written back.
type Site struct {
	SiteID              string  `json:"site_id"`
	Lat                 float64 `json:"lat"`
	Lon                 float64 `json:"lon"`
	Capacity            float64 `json:"capacity"`
	DistanceToRenewable float64 `json:"distance_to_renewable"`
	DemandIndex         float64 `json:"demand_index"`
	WaterAvailability   float64 `json:"water_availability"`
	LandCost            float64 `json:"land_cost"`
	PredictedScore      float64 `json:"predicted_score"`
	ScoreComment        string  `json:"score_comment"`

	Extra map[string]json.RawMessage `json:"-"`
}

var siteKnownKeys = []string{
	"site_id", "lat", "lon", "capacity", "distance_to_renewable", "demand_index",
	"water_availability", "land_cost", "predicted_score", "score_comment",
}

type siteAlias Site

// UnmarshalJSON accepts site_id as a string or a number and keeps unknown
// fields.
func (s *Site) UnmarshalJSON(b []byte) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}

	rawID := m["site_id"]
	delete(m, "site_id")
	known, err := json.Marshal(m)
	if err != nil {
		return err
	}

	var a siteAlias
	if err := json.Unmarshal(known, &a); err != nil {
		return err
	}
	*s = Site(a)

	if len(rawID) > 0 {
		var str string
		if err := json.Unmarshal(rawID, &str); err == nil {
			s.SiteID = str
		} else if n, err := strconv.ParseFloat(string(rawID), 64); err == nil {
			s.SiteID = strconv.FormatFloat(n, 'f', -1, 64)
		}
	}

	for _, k := range siteKnownKeys {
		delete(m, k)
	}
	if len(m) > 0 {
		s.Extra = m
	}
	return nil
}

func (s Site) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal(siteAlias(s))
	if err != nil || len(s.Extra) == 0 {
		return known, err
	}

	var m map[string]json.RawMessage
	if err := json.Unmarshal(known, &m); err != nil {
		return nil, err
	}
	for k, v := range s.Extra {
		if _, taken := m[k]; !taken {
			m[k] = v
		}
	}
	return json.Marshal(m)
}

type PolygonAnalysis struct {
	Status     string  `json:"status"`
	AreaKm2    float64 `json:"area_km2"`
	PointCount int     `json:"point_count"`
}

// PredictResponse is the normalized body returned to the map client.
type PredictResponse struct {
	Success          bool            `json:"success"`
	RecommendedSites []Site          `json:"recommended_sites"`
	TotalSitesFound  int             `json:"total_sites_found"`
	PolygonAnalysis  PolygonAnalysis `json:"polygon_analysis"`
	Message          string          `json:"message"`
	MLMessage        string          `json:"ml_message,omitempty"`
	InputShape       int             `json:"inputShape"`
	Timestamp        string          `json:"timestamp"`
}

// UpstreamResult is the body of POST {ML_BACKEND_URL}/recommend_sites.
type UpstreamResult struct {
	RecommendedSites []Site `json:"recommended_sites"`
	TotalSitesFound  *int   `json:"total_sites_found"`
	Message          string `json:"message"`
	PolygonAnalysis  *struct {
		Status     string   `json:"status"`
		AreaKm2    *float64 `json:"area_km2"`
		PointCount *int     `json:"point_count"`
	} `json:"polygon_analysis"`
}

type recommendRequest struct {
	PolygonPoints [][2]float64 `json:"polygon_points"`
}

// ErrorBody is returned for every failed ML call.
type ErrorBody struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
	Timestamp string `json:"timestamp"`
}

type countErrorBody struct {
	Error     string `json:"error"`
	Received  int    `json:"received"`
	Minimum   int    `json:"minimum"`
	Timestamp string `json:"timestamp"`
}

type formatErrorBody struct {
	Error        string          `json:"error"`
	InvalidCount int             `json:"invalidCount"`
	Sample       json.RawMessage `json:"sample"`
	Timestamp    string          `json:"timestamp"`
}
