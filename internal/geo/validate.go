package geo

import "encoding/json"

// Messages shown to users; the map client and the API share them.
const (
	MsgTooFewPoints   = "At least 3 points are needed to form a polygon"
	MsgInvalidFormat  = "Invalid coordinate format detected."
	MsgDuplicatePoint = "Duplicate points detected. Please ensure all points are unique."
	MsgNotClosed      = `Polygon is not closed. Use "Close Polygon" button to complete the shape.`
	MsgValid          = "Polygon is valid!"
)

// Result is the outcome of a polygon check.
type Result struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"message"`
}

func fail(reason string) Result { return Result{Valid: false, Reason: reason} }

// InvalidVertex describes one rejected input element.
type InvalidVertex struct {
	Index int
	Raw   json.RawMessage
}

// DecodeVertices parses raw JSON elements as {lat, lng} objects. Elements
// that are not objects, lack a numeric lat or lng, or fall out of range
// are returned in invalid; the valid ones keep their input order.
func DecodeVertices(raw []json.RawMessage) (Polygon, []InvalidVertex) {
	var (
		out     = make(Polygon, 0, len(raw))
		invalid []InvalidVertex
	)
	for i, r := range raw {
		var c struct {
			Lat *float64 `json:"lat"`
			Lng *float64 `json:"lng"`
		}
		if err := json.Unmarshal(r, &c); err != nil || c.Lat == nil || c.Lng == nil {
			invalid = append(invalid, InvalidVertex{Index: i, Raw: r})
			continue
		}
		v := Vertex{Lat: *c.Lat, Lng: *c.Lng}
		if !v.Valid() {
			invalid = append(invalid, InvalidVertex{Index: i, Raw: r})
			continue
		}
		out = append(out, v)
	}
	return out, invalid
}

// CheckVertices returns the indexes of vertices that are not finite or
// out of range.
func CheckVertices(p Polygon) []int {
	var bad []int
	for i, v := range p {
		if !v.Valid() {
			bad = append(bad, i)
		}
	}
	return bad
}

// ValidateForAnalysis applies the rules every analysis request must pass:
// at least MinVertices vertices, all of them valid. Closure is not needed.
func ValidateForAnalysis(p Polygon) Result {
	if len(p) < MinVertices {
		return fail(MsgTooFewPoints)
	}
	if len(CheckVertices(p)) > 0 {
		return fail(MsgInvalidFormat)
	}
	return Result{Valid: true, Reason: MsgValid}
}

// ValidateForStorage adds the rules for saving a drawn polygon: no two
// distinct vertices within Tolerance, and the ring must be closed.
func ValidateForStorage(p Polygon) Result {
	if r := ValidateForAnalysis(p.Open()); !r.Valid {
		return r
	}
	if HasDuplicates(p) {
		return fail(MsgDuplicatePoint)
	}
	if !p.Closed() {
		return fail(MsgNotClosed)
	}
	return Result{Valid: true, Reason: MsgValid}
}

// HasDuplicates reports whether any two vertices of the open ring are
// within Tolerance of each other. The closing vertex is not a duplicate.
func HasDuplicates(p Polygon) bool {
	open := p.Open()
	for i := 0; i < len(open); i++ {
		for j := i + 1; j < len(open); j++ {
			if open[i].Near(open[j]) {
				return true
			}
		}
	}
	return false
}
