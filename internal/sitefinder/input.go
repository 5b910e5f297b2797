package sitefinder

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/GreenHydrogen/H2-Backend/internal/geo"
)

var ErrEmptyInput = errors.New("no vertices in input")

// ParseInput reads a polygon from a JSON array of {lat, lng} objects, a JSON
// array of [lat, lng] pairs, or a GeoJSON polygon.
func ParseInput(data []byte) (geo.Polygon, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrEmptyInput
	}
	if data[0] == '{' {
		return geo.ParseGeoJSON(data)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode vertices: %w", err)
	}
	if len(raw) == 0 {
		return nil, ErrEmptyInput
	}

	if first := bytes.TrimSpace(raw[0]); len(first) > 0 && first[0] == '[' {
		var ts [][2]float64
		if err := json.Unmarshal(data, &ts); err != nil {
			return nil, fmt.Errorf("decode [lat, lng] pairs: %w", err)
		}
		return geo.FromTuples(ts), nil
	}

	p, invalid := geo.DecodeVertices(raw)
	if len(invalid) > 0 {
		return nil, fmt.Errorf("%s %d invalid, first at index %d: %s",
			geo.MsgInvalidFormat, len(invalid), invalid[0].Index, invalid[0].Raw)
	}
	return p, nil
}
