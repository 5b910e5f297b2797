package sitefinder

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/GreenHydrogen/H2-Backend/internal/drawing"
	"github.com/GreenHydrogen/H2-Backend/internal/geo"
	"github.com/GreenHydrogen/H2-Backend/internal/mlproxy"
)

// ErrClientValidation means the polygon failed the local checks and the
// backend was never called.
var ErrClientValidation = errors.New("polygon rejected before analysis")

// ErrSuperseded means the drawing changed while the backend was answering,
// so the answer was dropped.
var ErrSuperseded = errors.New("polygon changed during analysis")

// Outcome is the result of one analysis run.
type Outcome struct {
	Response *mlproxy.PredictResponse
	Cached   bool
	Err      error
}

// Session drives one drawing: vertices go into the collector, analysis is
// debounced once the polygon is analyzable, and results are memoized per
// polygon until the drawing changes hands.
type Session struct {
	Name string

	collector *drawing.Collector
	cache     *drawing.ResultCache[*mlproxy.PredictResponse]
	debounce  *drawing.Debouncer
	predictor Predictor
	timeout   time.Duration

	// Results holds the outcome of the latest debounced analysis.
	Results chan Outcome

	// mu guards gen, which every edit of the drawing bumps. Results are
	// only cached or published for the generation that asked for them.
	mu  sync.Mutex
	gen uint64
}

type SessionOptions struct {
	Debounce  time.Duration
	CacheSize int
	CacheTTL  time.Duration
	Timeout   time.Duration
}

func NewSession(name string, predictor Predictor, opts SessionOptions) *Session {
	cache := drawing.NewResultCache[*mlproxy.PredictResponse](opts.CacheSize, opts.CacheTTL)
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &Session{
		Name:      name,
		collector: drawing.NewCollector(cache),
		cache:     cache,
		debounce:  drawing.NewDebouncer(opts.Debounce),
		predictor: predictor,
		timeout:   timeout,
		Results:   make(chan Outcome, 1),
	}
}

func (s *Session) Collector() *drawing.Collector { return s.collector }

// Add places a vertex and schedules analysis when the polygon is analyzable.
func (s *Session) Add(v geo.Vertex) error {
	if _, err := s.collector.Add(v); err != nil {
		return err
	}
	s.schedule()
	return nil
}

// Move drags a vertex and reschedules analysis.
func (s *Session) Move(i int, v geo.Vertex) error {
	if err := s.collector.Move(i, v); err != nil {
		return err
	}
	s.schedule()
	return nil
}

func (s *Session) Undo() error {
	removed, err := s.collector.Undo()
	if err != nil || !removed {
		return err
	}
	s.schedule()
	return nil
}

// Load feeds every vertex of p, closing the ring if p arrives closed.
func (s *Session) Load(p geo.Polygon) error {
	closed := p.Closed()
	for i, v := range p.Open() {
		if err := s.Add(v); err != nil {
			return fmt.Errorf("vertex %d: %w", i, err)
		}
	}
	if closed {
		return s.collector.Close()
	}
	return nil
}

// Clear drops the drawing, any pending or in-flight analysis, any unread
// outcome and all cached results.
func (s *Session) Clear() {
	s.debounce.Cancel()
	s.mu.Lock()
	s.gen++
	select {
	case <-s.Results:
	default:
	}
	s.mu.Unlock()
	s.collector.Clear()
}

func (s *Session) generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

func (s *Session) schedule() {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	switch s.collector.State() {
	case drawing.Analyzable, drawing.Closed:
	default:
		s.debounce.Cancel()
		return
	}
	s.debounce.Trigger(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		resp, cached, err := s.analyze(ctx, gen)
		if errors.Is(err, ErrSuperseded) {
			return
		}
		s.publish(gen, Outcome{Response: resp, Cached: cached, Err: err})
	})
}

// publish replaces any unread outcome with out, unless the drawing has
// moved past gen.
func (s *Session) publish(gen uint64, out Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return
	}
	select {
	case <-s.Results:
	default:
	}
	s.Results <- out
}

// Analyze runs the current polygon through the local checks, the cache and
// the backend, in that order. Any error purges the cache.
func (s *Session) Analyze(ctx context.Context) (*mlproxy.PredictResponse, bool, error) {
	return s.analyze(ctx, s.generation())
}

func (s *Session) analyze(ctx context.Context, gen uint64) (*mlproxy.PredictResponse, bool, error) {
	p := s.collector.Vertices().Open()
	if res := geo.ValidateForAnalysis(p); !res.Valid {
		s.cache.Purge()
		return nil, false, fmt.Errorf("%w: %s", ErrClientValidation, res.Reason)
	}

	key := drawing.Fingerprint(p)
	if resp, ok := s.cache.Get(key); ok {
		return resp, true, nil
	}

	resp, err := s.predictor.Predict(ctx, s.Name, p)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return nil, false, ErrSuperseded
	}
	if err != nil {
		s.cache.Purge()
		return nil, false, err
	}
	s.cache.Put(key, resp)
	return resp, false, nil
}

// Submit stores the closed polygon. Results for other polygons are dropped.
func (s *Session) Submit() (geo.Polygon, error) {
	s.debounce.Cancel()
	p, err := s.collector.Submit()
	if err != nil {
		return nil, err
	}
	log.Printf("[sitefinder] stored polygon %q with %d vertices", s.Name, len(p.Open()))
	return p, nil
}
