// Package generator produces pseudo-random rectangle sizes that mimic a
// glyph-rendering workload, where heights cluster tightly around a font
// size and widths vary more.
package generator

import "math/rand"

// Defaults for the size distribution.
const (
	DefaultBaseSize    = 20
	DefaultHeightSigma = 0.2
	DefaultWidthSigma  = 0.4
	DefaultMinSide     = 4
)

// Config controls the distribution of generated rectangle sizes. Each side
// is drawn as BaseSize * (1 + N(0, sigma)) and clamped to at least MinSide.
type Config struct {
	BaseSize    int     `yaml:"base_size" json:"base_size"`
	HeightSigma float64 `yaml:"height_sigma" json:"height_sigma"`
	WidthSigma  float64 `yaml:"width_sigma" json:"width_sigma"`
	MinSide     int     `yaml:"min_side" json:"min_side"`
}

// DefaultConfig returns the standard glyph-like workload.
func DefaultConfig() Config {
	return Config{
		BaseSize:    DefaultBaseSize,
		HeightSigma: DefaultHeightSigma,
		WidthSigma:  DefaultWidthSigma,
		MinSide:     DefaultMinSide,
	}
}

// normalized replaces unusable fields with their defaults so that a zero
// Config behaves like DefaultConfig.
func (c Config) normalized() Config {
	if c.BaseSize <= 0 {
		c.BaseSize = DefaultBaseSize
	}
	if c.HeightSigma <= 0 {
		c.HeightSigma = DefaultHeightSigma
	}
	if c.WidthSigma <= 0 {
		c.WidthSigma = DefaultWidthSigma
	}
	if c.MinSide < 1 {
		c.MinSide = DefaultMinSide
	}
	return c
}

// Generator yields rectangle sizes from a seeded source, so the same seed
// always reproduces the same sequence.
type Generator struct {
	cfg Config
	rng *rand.Rand
}

// New returns a generator for cfg seeded with seed. Non-positive Config
// fields fall back to the defaults, so a partial Config keeps the standard
// distribution for whatever it leaves unset.
func New(cfg Config, seed int64) *Generator {
	return &Generator{
		cfg: cfg.normalized(),
		rng: rand.New(rand.NewSource(seed)),
	}
}

// Next draws the next rectangle size.
func (g *Generator) Next() (height, width int) {
	return g.side(g.cfg.HeightSigma), g.side(g.cfg.WidthSigma)
}

func (g *Generator) side(sigma float64) int {
	v := int(float64(g.cfg.BaseSize) * (g.rng.NormFloat64()*sigma + 1))
	if v < g.cfg.MinSide {
		v = g.cfg.MinSide
	}
	return v
}
