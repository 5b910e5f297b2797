package geo_test

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/GreenHydrogen/H2-Backend/internal/geo"
)

var square = geo.Polygon{
	{Lat: 20.5, Lng: 77.5},
	{Lat: 21.5, Lng: 77.5},
	{Lat: 21.5, Lng: 78.5},
	{Lat: 20.5, Lng: 78.5},
}

func TestValidateForAnalysis(t *testing.T) {
	tests := []struct {
		name   string
		poly   geo.Polygon
		valid  bool
		reason string
	}{
		{"empty", nil, false, geo.MsgTooFewPoints},
		{"two points", square[:2], false, geo.MsgTooFewPoints},
		{"open square", square, true, geo.MsgValid},
		{"lat out of range", geo.Polygon{{91, 0}, {0, 0}, {1, 1}}, false, geo.MsgInvalidFormat},
		{"lng out of range", geo.Polygon{{0, -180.5}, {0, 0}, {1, 1}}, false, geo.MsgInvalidFormat},
		{"nan", geo.Polygon{{math.NaN(), 0}, {0, 0}, {1, 1}}, false, geo.MsgInvalidFormat},
		{"inf", geo.Polygon{{0, math.Inf(1)}, {0, 0}, {1, 1}}, false, geo.MsgInvalidFormat},
		{"range bounds inclusive", geo.Polygon{{-90, -180}, {90, 180}, {0, 0}}, true, geo.MsgValid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := geo.ValidateForAnalysis(tt.poly)
			if got.Valid != tt.valid || got.Reason != tt.reason {
				t.Errorf("got %+v, want valid=%v reason=%q", got, tt.valid, tt.reason)
			}
		})
	}
}

func TestValidateForStorage(t *testing.T) {
	if r := geo.ValidateForStorage(square); r.Valid || r.Reason != geo.MsgNotClosed {
		t.Errorf("open square: got %+v", r)
	}

	closed := square.Close()
	if r := geo.ValidateForStorage(closed); !r.Valid {
		t.Errorf("closed square should be storable, got %+v", r)
	}

	dup := geo.Polygon{square[0], square[1], {Lat: 21.50005, Lng: 77.50005}, square[3], square[0]}
	if r := geo.ValidateForStorage(dup); r.Valid || r.Reason != geo.MsgDuplicatePoint {
		t.Errorf("duplicate: got %+v", r)
	}

	// A closed triangle still needs three distinct vertices.
	tooSmall := geo.Polygon{square[0], square[1], square[0]}
	if r := geo.ValidateForStorage(tooSmall); r.Valid {
		t.Errorf("two distinct vertices should not be storable, got %+v", r)
	}
}

func TestDecodeVertices(t *testing.T) {
	raw := []json.RawMessage{
		json.RawMessage(`{"lat": 20.5, "lng": 77.5}`),
		json.RawMessage(`{"lat": "20.5", "lng": 77.5}`),
		json.RawMessage(`null`),
		json.RawMessage(`{"lat": 95, "lng": 77.5}`),
		json.RawMessage(`[20.5, 77.5]`),
		json.RawMessage(`{"lat": 21.5}`),
		json.RawMessage(`{"lat": -10, "lng": 179.9}`),
	}

	vs, invalid := geo.DecodeVertices(raw)
	if len(vs) != 2 {
		t.Fatalf("expected 2 valid vertices, got %d", len(vs))
	}
	if len(invalid) != 5 {
		t.Fatalf("expected 5 invalid vertices, got %d", len(invalid))
	}
	if invalid[0].Index != 1 || string(invalid[0].Raw) != `{"lat": "20.5", "lng": 77.5}` {
		t.Errorf("unexpected first invalid: %+v", invalid[0])
	}
	if vs[1] != (geo.Vertex{Lat: -10, Lng: 179.9}) {
		t.Errorf("valid vertices lost order: %+v", vs)
	}
}

func TestHasDuplicatesIgnoresClosingVertex(t *testing.T) {
	if geo.HasDuplicates(square.Close()) {
		t.Error("closing vertex must not count as a duplicate")
	}
}
