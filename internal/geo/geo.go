package geo

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

const (
	// MinVertices is the smallest vertex count that forms a polygon.
	MinVertices = 3

	// Tolerance is the per-axis distance, in degrees, under which two
	// vertices are considered the same point.
	Tolerance = 1e-4
)

// Vertex is a single map point in WGS84 decimal degrees.
type Vertex struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether both axes are finite and inside their ranges.
func (v Vertex) Valid() bool {
	if math.IsNaN(v.Lat) || math.IsNaN(v.Lng) || math.IsInf(v.Lat, 0) || math.IsInf(v.Lng, 0) {
		return false
	}
	return v.Lat >= -90 && v.Lat <= 90 && v.Lng >= -180 && v.Lng <= 180
}

// Near reports whether o lies within Tolerance of v on both axes.
func (v Vertex) Near(o Vertex) bool {
	return math.Abs(v.Lat-o.Lat) < Tolerance && math.Abs(v.Lng-o.Lng) < Tolerance
}

// Polygon is an ordered vertex list; edges follow list order.
type Polygon []Vertex

// Closed reports whether the last vertex repeats the first one after at
// least MinVertices distinct points.
func (p Polygon) Closed() bool {
	if len(p) <= MinVertices {
		return false
	}
	return p[0].Near(p[len(p)-1])
}

// Close returns p with its first vertex appended, unless p is already
// closed or too short to close.
func (p Polygon) Close() Polygon {
	if len(p) < MinVertices || p.Closed() {
		return p
	}
	out := make(Polygon, 0, len(p)+1)
	out = append(out, p...)
	return append(out, p[0])
}

// Open returns p without its closing vertex.
func (p Polygon) Open() Polygon {
	if p.Closed() {
		return p[:len(p)-1]
	}
	return p
}

// Tuples converts p to the [[lat, lng], ...] layout the ML service expects.
func (p Polygon) Tuples() [][2]float64 {
	out := make([][2]float64, len(p))
	for i, v := range p {
		out[i] = [2]float64{v.Lat, v.Lng}
	}
	return out
}

// FromTuples is the inverse of Polygon.Tuples.
func FromTuples(ts [][2]float64) Polygon {
	out := make(Polygon, len(ts))
	for i, t := range ts {
		out[i] = Vertex{Lat: t[0], Lng: t[1]}
	}
	return out
}

// Ring returns p as a closed orb ring. orb points are (lng, lat).
func (p Polygon) Ring() orb.Ring {
	open := p.Open()
	ring := make(orb.Ring, 0, len(open)+1)
	for _, v := range open {
		ring = append(ring, orb.Point{v.Lng, v.Lat})
	}
	if len(ring) > 0 {
		ring = append(ring, ring[0])
	}
	return ring
}

// AreaKm2 returns the spherical area enclosed by p in square kilometres.
func AreaKm2(p Polygon) float64 {
	if len(p.Open()) < MinVertices {
		return 0
	}
	return math.Abs(orbgeo.Area(orb.Polygon{p.Ring()})) / 1e6
}

// Contains reports whether v lies inside p, treating coordinates as planar.
// Good enough at the scale of a drawn region.
func (p Polygon) Contains(v Vertex) bool {
	if len(p.Open()) < MinVertices {
		return false
	}
	return planar.RingContains(p.Ring(), orb.Point{v.Lng, v.Lat})
}

// GeoJSON encodes p as a GeoJSON Feature with the given properties.
func (p Polygon) GeoJSON(props map[string]interface{}) ([]byte, error) {
	f := geojson.NewFeature(orb.Polygon{p.Ring()})
	for k, v := range props {
		f.Properties[k] = v
	}
	return json.Marshal(f)
}

var ErrNoPolygon = errors.New("geojson does not contain a polygon")

// ParseGeoJSON reads the outer ring of a Polygon from a GeoJSON Feature,
// FeatureCollection (first feature) or bare Geometry.
func ParseGeoJSON(data []byte) (Polygon, error) {
	var g orb.Geometry

	if fc, err := geojson.UnmarshalFeatureCollection(data); err == nil && len(fc.Features) > 0 {
		g = fc.Features[0].Geometry
	} else if f, err := geojson.UnmarshalFeature(data); err == nil && f.Geometry != nil {
		g = f.Geometry
	} else if geom, err := geojson.UnmarshalGeometry(data); err == nil {
		g = geom.Geometry()
	} else {
		return nil, fmt.Errorf("decode geojson: %w", err)
	}

	poly, ok := g.(orb.Polygon)
	if !ok || len(poly) == 0 {
		return nil, ErrNoPolygon
	}

	out := make(Polygon, 0, len(poly[0]))
	for _, pt := range poly[0] {
		out = append(out, Vertex{Lat: pt.Lat(), Lng: pt.Lon()})
	}
	return out, nil
}
