package drawing

import (
	"errors"
	"fmt"
	"sync"

	"github.com/GreenHydrogen/H2-Backend/internal/geo"
)

// State is the drawing stage of a Collector.
type State int

const (
	Empty      State = iota // no vertices
	Drawing                 // 1 or 2 vertices
	Analyzable              // 3 or more vertices, ring open
	Closed                  // ring closed, not yet stored
	Submitted               // stored, read only
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case Drawing:
		return "drawing"
	case Analyzable:
		return "analyzable"
	case Closed:
		return "closed"
	case Submitted:
		return "submitted"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

var (
	ErrSubmitted      = errors.New("polygon already submitted")
	ErrClosed         = errors.New("polygon is closed; undo the closing point to keep drawing")
	ErrInvalidVertex  = errors.New("vertex out of range")
	ErrNoSuchVertex   = errors.New("no vertex at that index")
	ErrTooFewVertices = errors.New(geo.MsgTooFewPoints)
	ErrInvalidPolygon = errors.New("polygon cannot be stored")
)

// Invalidator is the part of a result cache the collector drives.
type Invalidator interface {
	Purge()
	RetainOnly(key string)
}

// Collector accumulates map clicks into a polygon. It is safe for use from
// several goroutines, since debounced analysis reads it from a timer.
type Collector struct {
	mu        sync.Mutex
	vertices  geo.Polygon
	submitted bool
	cache     Invalidator
}

// NewCollector returns an empty collector. cache may be nil.
func NewCollector(cache Invalidator) *Collector {
	return &Collector{cache: cache}
}

func (c *Collector) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state()
}

func (c *Collector) state() State {
	switch {
	case c.submitted:
		return Submitted
	case c.vertices.Closed():
		return Closed
	case len(c.vertices) >= geo.MinVertices:
		return Analyzable
	case len(c.vertices) > 0:
		return Drawing
	}
	return Empty
}

// Vertices returns a copy of the current vertex list.
func (c *Collector) Vertices() geo.Polygon {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append(geo.Polygon(nil), c.vertices...)
}

// Add appends a vertex. crossed is true when this vertex brought the
// polygon to the minimum size, which is when analysis starts.
func (c *Collector) Add(v geo.Vertex) (crossed bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state() {
	case Submitted:
		return false, ErrSubmitted
	case Closed:
		return false, ErrClosed
	}
	if !v.Valid() {
		return false, fmt.Errorf("%w: %+v", ErrInvalidVertex, v)
	}
	c.vertices = append(c.vertices, v)
	return len(c.vertices) == geo.MinVertices, nil
}

// Move drags vertex i to v. Moving either end of a closed ring moves both
// so the ring stays closed.
func (c *Collector) Move(i int, v geo.Vertex) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.submitted {
		return ErrSubmitted
	}
	if i < 0 || i >= len(c.vertices) {
		return fmt.Errorf("%w: %d", ErrNoSuchVertex, i)
	}
	if !v.Valid() {
		return fmt.Errorf("%w: %+v", ErrInvalidVertex, v)
	}

	last := len(c.vertices) - 1
	if c.vertices.Closed() && (i == 0 || i == last) {
		c.vertices[0], c.vertices[last] = v, v
		return nil
	}
	c.vertices[i] = v
	return nil
}

// Undo removes the most recent vertex. Undoing the closing vertex reopens
// the ring. It reports whether anything was removed.
func (c *Collector) Undo() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.submitted {
		return false, ErrSubmitted
	}
	if len(c.vertices) == 0 {
		return false, nil
	}
	c.vertices = c.vertices[:len(c.vertices)-1]
	return true, nil
}

// Close completes the ring by repeating the first vertex.
func (c *Collector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.submitted {
		return ErrSubmitted
	}
	if len(c.vertices) < geo.MinVertices {
		return ErrTooFewVertices
	}
	c.vertices = c.vertices.Close()
	return nil
}

// Submit stores the polygon if it passes the storage rules. Cached results
// for any other polygon are dropped.
func (c *Collector) Submit() (geo.Polygon, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.submitted {
		return nil, ErrSubmitted
	}
	if res := geo.ValidateForStorage(c.vertices); !res.Valid {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPolygon, res.Reason)
	}
	c.submitted = true
	if c.cache != nil {
		c.cache.RetainOnly(Fingerprint(c.vertices))
	}
	return append(geo.Polygon(nil), c.vertices...), nil
}

// Clear discards every vertex and all cached results.
func (c *Collector) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.vertices = nil
	c.submitted = false
	if c.cache != nil {
		c.cache.Purge()
	}
}
