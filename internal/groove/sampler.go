package groove

import (
	"math"

	"github.com/BC-Softworks/record-generator/internal/geometry"
)

// Sampler maps the generator's step counter onto the waveform.
type Sampler struct {
	samples     []float64
	baseline    float64
	rateDivisor float64
	precision   int
}

// NewSampler binds a normalized waveform to cfg. The slice is not copied
// and must not be modified while the sampler is in use.
func NewSampler(cfg geometry.Config, samples []float64) Sampler {
	return Sampler{
		samples:     samples,
		baseline:    cfg.Baseline,
		rateDivisor: cfg.RateDivisor,
		precision:   cfg.Precision,
	}
}

// Len returns the number of waveform samples.
func (s Sampler) Len() int { return len(s.samples) }

// Index is the waveform position read for step n, clamped to the last
// sample.
func (s Sampler) Index(n int) int {
	i := int(math.Floor(s.rateDivisor * float64(n)))
	if i >= len(s.samples) {
		i = len(s.samples) - 1
	}
	return max(i, 0)
}

// Height is the groove height for step n. An empty waveform has height 0
// everywhere.
func (s Sampler) Height(n int) float64 {
	if len(s.samples) == 0 {
		return 0
	}
	return geometry.Truncate(s.baseline*s.samples[s.Index(n)], s.precision)
}

// Fits reports whether a full revolution of steps starting at step n can be
// read without running past the end of the waveform.
func (s Sampler) Fits(n, steps int) bool {
	return s.rateDivisor*float64(n) < float64(len(s.samples))-s.rateDivisor*float64(steps)+1
}

// GrooveHeight is the groove height for step n of samples under cfg.
func GrooveHeight(cfg geometry.Config, samples []float64, n int) float64 {
	return NewSampler(cfg, samples).Height(n)
}
