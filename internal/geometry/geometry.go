// Package geometry derives the physical constants of a record from user
// parameters. Every derived value is truncated to the configured precision
// once, here, so the rest of the program works with canonical constants.
package geometry

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ErrInvalidParams is returned by Params.Validate and Derive.
var ErrInvalidParams = errors.New("invalid geometry parameters")

const micronsPerMillimeter = 1000

// Params are the user-facing inputs. Lengths share one unit (the record's
// modelling unit); layer counts are in MicronsPerLayer steps.
type Params struct {
	SamplingRate    int
	RPM             float64
	Downsampling    int
	Precision       int
	Diameter        float64
	InnerHole       float64
	InnerRadius     float64
	OuterRadius     float64
	RecordHeight    float64
	MicronsPerLayer float64
	AmplitudeLayers float64
	DepthLayers     float64
	Bevel           float64
	GrooveWidth     float64
	RateDivisor     float64
	FloorOffset     float64
}

// DefaultParams returns the 45 RPM record parameters.
func DefaultParams() Params {
	return Params{
		SamplingRate:    44100,
		RPM:             45,
		Downsampling:    4,
		Precision:       4,
		Diameter:        175.41875,
		InnerHole:       38.2524,
		InnerRadius:     45,
		OuterRadius:     173,
		RecordHeight:    4,
		MicronsPerLayer: 16,
		AmplitudeLayers: 24,
		DepthLayers:     6,
		Bevel:           0.5,
		GrooveWidth:     0.05588,
		RateDivisor:     4.45,
		FloorOffset:     0.25,
	}
}

// Config is the derived, immutable geometry. It is a plain value; copies are
// safe to share between goroutines.
type Config struct {
	Precision    int
	SamplingRate int
	RPM          float64
	Downsampling int

	Tau         float64
	ThetaIter   float64
	IncrNum     float64
	RadIncr     float64
	RateDivisor float64

	Radius      float64
	HoleRadius  float64
	InnerRad    float64
	OuterRad    float64
	RH          float64
	Amplitude   float64
	Depth       float64
	Bevel       float64
	GrooveWidth float64
	FloorOffset float64
	Baseline    float64

	Center mgl64.Vec2
}

// Truncate drops everything past the given number of decimals, rounding
// toward zero.
func Truncate(n float64, decimals int) float64 {
	m := math.Pow(10, float64(decimals))
	return math.Trunc(n*m) / m
}

// Validate checks p for values the generator cannot work with.
func (p Params) Validate() error {
	switch {
	case p.SamplingRate <= 0:
		return fmt.Errorf("%w: sampling rate %d", ErrInvalidParams, p.SamplingRate)
	case p.RPM <= 0:
		return fmt.Errorf("%w: rpm %g", ErrInvalidParams, p.RPM)
	case p.Downsampling <= 0:
		return fmt.Errorf("%w: downsampling %d", ErrInvalidParams, p.Downsampling)
	case p.Precision < 0 || p.Precision > 12:
		return fmt.Errorf("%w: precision %d (want 0..12)", ErrInvalidParams, p.Precision)
	case p.RateDivisor <= 0:
		return fmt.Errorf("%w: rate divisor %g", ErrInvalidParams, p.RateDivisor)
	case p.Diameter <= 0 || p.InnerHole <= 0 || p.InnerRadius <= 0 || p.OuterRadius <= 0:
		return fmt.Errorf("%w: radii must be positive", ErrInvalidParams)
	case p.InnerRadius >= p.OuterRadius:
		return fmt.Errorf("%w: inner radius %g >= outer radius %g", ErrInvalidParams, p.InnerRadius, p.OuterRadius)
	case p.InnerHole/2 >= p.InnerRadius:
		return fmt.Errorf("%w: centre hole %g does not fit inside inner radius %g", ErrInvalidParams, p.InnerHole, p.InnerRadius)
	case p.RecordHeight <= 0 || p.FloorOffset <= 0 || p.FloorOffset >= p.RecordHeight:
		return fmt.Errorf("%w: floor offset %g must lie within record height %g", ErrInvalidParams, p.FloorOffset, p.RecordHeight)
	case p.GrooveWidth <= 0 || p.Bevel < 0 || p.MicronsPerLayer <= 0:
		return fmt.Errorf("%w: groove width, bevel and layer size must be positive", ErrInvalidParams)
	}

	amp := p.AmplitudeLayers * p.MicronsPerLayer / micronsPerMillimeter
	if p.OuterRadius+amp*p.Bevel >= p.Diameter {
		return fmt.Errorf("%w: outer groove edge %g reaches the record edge %g", ErrInvalidParams, p.OuterRadius+amp*p.Bevel, p.Diameter)
	}

	tau := Truncate(2*math.Pi, p.Precision)
	thetaIter := Truncate(60*float64(p.SamplingRate)/(float64(p.Downsampling)*p.RPM), p.Precision)
	if thetaIter <= 0 || Truncate(tau/thetaIter, p.Precision) <= 0 {
		return fmt.Errorf("%w: angular increment truncates to zero at precision %d", ErrInvalidParams, p.Precision)
	}

	return nil
}

// Derive validates p and computes the record geometry.
func Derive(p Params) (Config, error) {
	if err := p.Validate(); err != nil {
		return Config{}, err
	}

	prec := p.Precision
	t := func(v float64) float64 { return Truncate(v, prec) }

	c := Config{
		Precision:    prec,
		SamplingRate: p.SamplingRate,
		RPM:          p.RPM,
		Downsampling: p.Downsampling,
		Tau:          t(2 * math.Pi),
		ThetaIter:    t(60 * float64(p.SamplingRate) / (float64(p.Downsampling) * p.RPM)),
		RateDivisor:  p.RateDivisor,
		Radius:       t(p.Diameter),
		HoleRadius:   t(p.InnerHole / 2),
		InnerRad:     t(p.InnerRadius),
		OuterRad:     t(p.OuterRadius),
		RH:           t(p.RecordHeight),
		Amplitude:    t(p.AmplitudeLayers * p.MicronsPerLayer / micronsPerMillimeter),
		Depth:        t(p.DepthLayers * p.MicronsPerLayer / micronsPerMillimeter),
		Bevel:        p.Bevel,
		GrooveWidth:  t(p.GrooveWidth),
		FloorOffset:  p.FloorOffset,
	}
	c.IncrNum = t(c.Tau / c.ThetaIter)
	c.RadIncr = t((c.GrooveWidth + 2*c.Bevel*c.Amplitude) / c.ThetaIter)
	c.Baseline = c.RH - c.Depth - c.Amplitude
	c.Center = mgl64.Vec2{c.Radius, c.Radius}

	return c, nil
}

// StepsPerRevolution is the number of angular steps the sweep takes before
// theta reaches Tau. Because IncrNum is truncated this is usually larger
// than ThetaIter.
func (c Config) StepsPerRevolution() int {
	if c.IncrNum <= 0 {
		return 0
	}
	return int(math.Ceil(c.Tau / c.IncrNum))
}

// Angle returns the angle of step j within a revolution.
func (c Config) Angle(j int) float64 {
	return float64(j) * c.IncrNum
}

// Pitch is the nominal radial distance between neighbouring groove turns.
func (c Config) Pitch() float64 {
	return c.GrooveWidth + 2*c.Bevel*c.Amplitude
}

// RadialIncrementVanishes reports whether RadIncr truncated to zero, which
// makes successive turns overlap instead of spiralling inward.
func (c Config) RadialIncrementVanishes() bool {
	return c.RadIncr <= 0
}
