// Package bench drives the packing engine with generated rectangle sizes
// and measures placement throughput.
package bench

import (
	"time"

	"github.com/eugenenazirov/atlas-packer/internal/generator"
	"github.com/eugenenazirov/atlas-packer/internal/packing"
)

// DefaultCanvasSize is the canvas side length used when Options leaves the
// dimensions unset.
const DefaultCanvasSize = 320

// Options configure a benchmark run.
type Options struct {
	CanvasHeight int
	CanvasWidth  int
	// ContactDepth overrides the engine's scoring depth when positive.
	ContactDepth int
	// Sizes describes the rectangle size distribution to draw from.
	Sizes generator.Config
	Seed  int64
	// MaxPlacements stops the run after this many successful placements.
	// Zero runs until the engine rejects a rectangle.
	MaxPlacements int
}

// Result summarizes a benchmark run.
type Result struct {
	// Placed counts rectangles accepted by the engine.
	Placed int
	// Attempts counts PlaceBest calls, including the final rejected one.
	Attempts int
	// Elapsed is the time spent inside PlaceBest only, excluding size
	// generation and bookkeeping.
	Elapsed   time.Duration
	FillRatio float64
	// Packing is the finished canvas, ready for rendering.
	Packing *packing.Packing
}

// PerSecond returns successful placements per second of engine time.
func (r Result) PerSecond() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Placed) / r.Elapsed.Seconds()
}

// Run packs generated rectangles until the engine rejects one or the
// placement cap is reached.
func Run(opts Options) (Result, error) {
	if opts.CanvasHeight <= 0 {
		opts.CanvasHeight = DefaultCanvasSize
	}
	if opts.CanvasWidth <= 0 {
		opts.CanvasWidth = DefaultCanvasSize
	}

	var engineOpts []packing.Option
	if opts.ContactDepth > 0 {
		engineOpts = append(engineOpts, packing.WithContactDepth(opts.ContactDepth))
	}
	p, err := packing.New(opts.CanvasHeight, opts.CanvasWidth, engineOpts...)
	if err != nil {
		return Result{}, err
	}

	gen := generator.New(opts.Sizes, opts.Seed)
	var elapsed time.Duration
	attempts := 0
	for opts.MaxPlacements <= 0 || p.Len() < opts.MaxPlacements {
		height, width := gen.Next()
		attempts++

		start := time.Now()
		ok, err := p.PlaceBest(attempts, height, width)
		elapsed += time.Since(start)
		if err != nil {
			return Result{}, err
		}
		if !ok {
			break
		}
	}

	return Result{
		Placed:    p.Len(),
		Attempts:  attempts,
		Elapsed:   elapsed,
		FillRatio: p.Used(),
		Packing:   p,
	}, nil
}
