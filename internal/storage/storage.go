package storage

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eugenenazirov/atlas-packer/internal/packing"
)

// Default registry limits, applied when Limits leaves a field unset.
const (
	DefaultMaxCanvases = 64
	DefaultMaxArea     = 1 << 24
)

var (
	// ErrNotFound indicates the requested canvas id is not in the store.
	ErrNotFound = errors.New("canvas not found")
	// ErrTooManyCanvases indicates the store reached its canvas limit.
	ErrTooManyCanvases = errors.New("canvas limit reached")
	// ErrCanvasTooLarge indicates the requested canvas exceeds the area limit.
	ErrCanvasTooLarge = errors.New("canvas area exceeds the configured maximum")
)

// Limits cap what a store will create.
type Limits struct {
	MaxCanvases int
	MaxArea     int
}

func (l Limits) normalized() Limits {
	if l.MaxCanvases <= 0 {
		l.MaxCanvases = DefaultMaxCanvases
	}
	if l.MaxArea <= 0 {
		l.MaxArea = DefaultMaxArea
	}
	return l
}

// Canvas wraps a packing engine with the identity and locking the HTTP
// layer needs. The engine itself is not safe for concurrent use, so every
// access goes through the canvas mutex.
type Canvas struct {
	id        string
	createdAt time.Time

	mu      sync.RWMutex
	packing *packing.Packing
	lastID  int
}

func newCanvas(height, width, contactDepth int) (*Canvas, error) {
	var opts []packing.Option
	if contactDepth > 0 {
		opts = append(opts, packing.WithContactDepth(contactDepth))
	}
	p, err := packing.New(height, width, opts...)
	if err != nil {
		return nil, err
	}
	return &Canvas{
		id:        uuid.New().String(),
		createdAt: time.Now().UTC(),
		packing:   p,
	}, nil
}

// ID returns the canvas identifier.
func (c *Canvas) ID() string { return c.id }

// CreatedAt returns the canvas creation time in UTC.
func (c *Canvas) CreatedAt() time.Time { return c.createdAt }

// Height returns the canvas height in cells.
func (c *Canvas) Height() int { return c.packing.Height() }

// Width returns the canvas width in cells.
func (c *Canvas) Width() int { return c.packing.Width() }

// ContactDepth returns the scoring depth of the underlying engine.
func (c *Canvas) ContactDepth() int { return c.packing.ContactDepth() }

// Stats is a point-in-time summary of a canvas.
type Stats struct {
	Placed       int
	OccupiedArea int
	FillRatio    float64
}

// Stats returns the current placement summary.
func (c *Canvas) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Stats{
		Placed:       c.packing.Len(),
		OccupiedArea: c.packing.OccupiedArea(),
		FillRatio:    c.packing.Used(),
	}
}

// Rects returns the placed rectangles ordered by id.
func (c *Canvas) Rects() []packing.Rect {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rects := make([]packing.Rect, 0, c.packing.Len())
	for _, r := range c.packing.Rects() {
		rects = append(rects, r)
	}
	sort.Slice(rects, func(i, j int) bool { return rects[i].ID < rects[j].ID })
	return rects
}

// View runs fn with read access to the underlying engine. The engine must
// not be retained or mutated; renderers use this to walk a consistent state.
func (c *Canvas) View(fn func(p *packing.Packing)) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fn(c.packing)
}

// TryPlace places a rectangle with the given id at an exact position.
func (c *Canvas) TryPlace(id, y, x, height, width int) (packing.Rect, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ok, err := c.packing.TryPlace(id, y, x, height, width)
	if err != nil || !ok {
		return packing.Rect{}, false, err
	}
	r, _ := c.packing.Rect(id)
	return r, true, nil
}

// TryPlaceNext places a rectangle at an exact position under the next free id.
func (c *Canvas) TryPlaceNext(y, x, height, width int) (packing.Rect, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.freeIDLocked()
	ok, err := c.packing.TryPlace(id, y, x, height, width)
	if err != nil || !ok {
		return packing.Rect{}, false, err
	}
	c.lastID = id
	r, _ := c.packing.Rect(id)
	return r, true, nil
}

// PlaceBest asks the engine to pick the position for a rectangle with the
// given id.
func (c *Canvas) PlaceBest(id, height, width int) (packing.Rect, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.placeBestLocked(id, height, width)
}

// PlaceNext asks the engine to pick the position under the next free id.
func (c *Canvas) PlaceNext(height, width int) (packing.Rect, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.freeIDLocked()
	r, ok, err := c.placeBestLocked(id, height, width)
	if ok {
		c.lastID = id
	}
	return r, ok, err
}

func (c *Canvas) placeBestLocked(id, height, width int) (packing.Rect, bool, error) {
	ok, err := c.packing.PlaceBest(id, height, width)
	if err != nil || !ok {
		return packing.Rect{}, false, err
	}
	r, _ := c.packing.Rect(id)
	return r, true, nil
}

// freeIDLocked returns the smallest unused id after the last auto-assigned
// one, skipping ids claimed by explicit placements.
func (c *Canvas) freeIDLocked() int {
	id := c.lastID + 1
	for {
		if _, taken := c.packing.Rect(id); !taken {
			return id
		}
		id++
	}
}

// FillResult reports the outcome of a bulk fill.
type FillResult struct {
	Placed    int
	Attempts  int
	Elapsed   time.Duration
	FillRatio float64
}

// Fill repeatedly places rectangles sized by next until the engine rejects
// one or maxPlacements successes are reached. A non-positive maxPlacements
// runs until the first rejection. Elapsed covers engine time only.
func (c *Canvas) Fill(next func() (height, width int), maxPlacements int) (FillResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var res FillResult
	for maxPlacements <= 0 || res.Placed < maxPlacements {
		height, width := next()
		res.Attempts++

		id := c.freeIDLocked()
		start := time.Now()
		ok, err := c.packing.PlaceBest(id, height, width)
		res.Elapsed += time.Since(start)
		if err != nil {
			res.FillRatio = c.packing.Used()
			return res, err
		}
		if !ok {
			break
		}
		c.lastID = id
		res.Placed++
	}
	res.FillRatio = c.packing.Used()
	return res, nil
}

// Store manages named canvases.
type Store interface {
	Create(height, width, contactDepth int) (*Canvas, error)
	Get(id string) (*Canvas, error)
	List() []*Canvas
	Delete(id string) error
}

// MemoryStore keeps canvases in-memory and guards the registry with a
// RWMutex. Placement locking is per canvas, so slow fills on one canvas do
// not block access to others.
type MemoryStore struct {
	mu       sync.RWMutex
	canvases map[string]*Canvas
	limits   Limits
}

// NewMemoryStore initialises an empty registry with the given limits.
// Unset limit fields fall back to the defaults.
func NewMemoryStore(limits Limits) *MemoryStore {
	return &MemoryStore{
		canvases: make(map[string]*Canvas),
		limits:   limits.normalized(),
	}
}

// Create validates the requested dimensions against the store limits and
// registers a new canvas.
func (s *MemoryStore) Create(height, width, contactDepth int) (*Canvas, error) {
	if height > s.limits.MaxArea || width > s.limits.MaxArea ||
		(height > 0 && width > 0 && height*width > s.limits.MaxArea) {
		return nil, ErrCanvasTooLarge
	}

	canvas, err := newCanvas(height, width, contactDepth)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.canvases) >= s.limits.MaxCanvases {
		return nil, ErrTooManyCanvases
	}
	s.canvases[canvas.ID()] = canvas
	return canvas, nil
}

// Get returns the canvas with the given id.
func (s *MemoryStore) Get(id string) (*Canvas, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	canvas, ok := s.canvases[id]
	if !ok {
		return nil, ErrNotFound
	}
	return canvas, nil
}

// List returns all canvases ordered by creation time, oldest first.
func (s *MemoryStore) List() []*Canvas {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Canvas, 0, len(s.canvases))
	for _, canvas := range s.canvases {
		out = append(out, canvas)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt().Equal(out[j].CreatedAt()) {
			return out[i].ID() < out[j].ID()
		}
		return out[i].CreatedAt().Before(out[j].CreatedAt())
	})
	return out
}

// Delete removes the canvas with the given id.
func (s *MemoryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.canvases[id]; !ok {
		return ErrNotFound
	}
	delete(s.canvases, id)
	return nil
}
