package audio

import (
	"fmt"
	"math"

	dspcore "github.com/cwbudde/algo-dsp/dsp/core"
	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design"
	"github.com/cwbudde/algo-dsp/dsp/resample"
	"github.com/cwbudde/algo-dsp/dsp/signal"
)

// dcCutoffHz is the corner frequency of the DC blocking high-pass.
const dcCutoffHz = 10.0

func widen(samples []float32) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = float64(s)
	}
	return out
}

func narrow(samples []float64) []float32 {
	out := make([]float32, len(samples))
	for i, s := range samples {
		out[i] = float32(s)
	}
	return out
}

// PeakNormalize scales samples so the peak amplitude reaches 1.0. Silence is
// returned unchanged.
func PeakNormalize(samples []float32) []float32 {
	if len(samples) == 0 {
		return []float32{}
	}

	out, err := signal.Normalize(widen(samples), 1)
	if err != nil {
		return append([]float32(nil), samples...)
	}
	return narrow(out)
}

// DCBlock removes the mean of samples and then runs a second-order
// Butterworth high-pass at dcCutoffHz to take out slow drift. A constant
// offset therefore leaves no start-up transient. Rates too low for the
// high-pass only get the mean removed.
func DCBlock(samples []float32, sampleRate int) []float32 {
	if len(samples) == 0 || sampleRate <= 0 {
		return append([]float32{}, samples...)
	}

	x, err := signal.RemoveDC(widen(samples))
	if err != nil {
		return append([]float32{}, samples...)
	}

	rate := float64(sampleRate)
	if rate > 2*dcCutoffHz {
		hp := biquad.NewSection(design.Highpass(dcCutoffHz, 1/math.Sqrt2, rate))
		for i, v := range x {
			x[i] = dspcore.FlushDenormals(hp.ProcessSample(v))
		}
	}
	return narrow(x)
}

// Resample converts samples from one rate to another through a polyphase
// anti-aliasing filter. Equal rates return a copy.
func Resample(samples []float32, from, to int) ([]float32, error) {
	if from == to || len(samples) == 0 {
		return append([]float32{}, samples...), nil
	}

	r, err := resample.NewForRates(float64(from), float64(to))
	if err != nil {
		return nil, fmt.Errorf("resample %d Hz to %d Hz: %w", from, to, err)
	}
	return narrow(r.Process(widen(samples))), nil
}

func fadeLength(n, sampleRate int, ms float64) int {
	if ms <= 0 || sampleRate <= 0 {
		return 0
	}
	return min(n, int(ms/1000*float64(sampleRate)))
}

// FadeIn applies a linear fade-in ramp over the given duration in milliseconds.
func FadeIn(samples []float32, sampleRate int, ms float64) []float32 {
	out := make([]float32, len(samples))
	copy(out, samples)

	n := fadeLength(len(out), sampleRate, ms)
	for i := range n {
		out[i] *= float32(i) / float32(n)
	}
	return out
}

// FadeOut applies a linear fade-out ramp over the given duration in milliseconds.
func FadeOut(samples []float32, sampleRate int, ms float64) []float32 {
	out := make([]float32, len(samples))
	copy(out, samples)

	n := fadeLength(len(out), sampleRate, ms)
	start := len(out) - n
	for i := start; i < len(out); i++ {
		out[i] *= float32(len(out)-1-i) / float32(n)
	}
	return out
}

// Conditioning selects the processing applied to a mono clip before it is
// turned into a groove.
type Conditioning struct {
	DCBlock       bool
	PeakNormalize bool
	// FadeMS ramps both ends of the clip so the groove starts and ends at
	// rest.
	FadeMS float64
	// SampleRate is the rate the groove expects its waveform at. Zero keeps
	// the clip's own rate.
	SampleRate int
}

// Condition mixes clip to mono and applies c in order: DC block, resampling,
// peak normalization, then fades. It returns the processed samples and
// their sample rate.
func Condition(clip Clip, c Conditioning) ([]float32, int, error) {
	samples := clip.Mono()
	if c.DCBlock {
		samples = DCBlock(samples, clip.SampleRate)
	}

	rate := clip.SampleRate
	if c.SampleRate > 0 && c.SampleRate != rate {
		var err error
		if samples, err = Resample(samples, rate, c.SampleRate); err != nil {
			return nil, 0, err
		}
		rate = c.SampleRate
	}

	if c.PeakNormalize {
		samples = PeakNormalize(samples)
	}
	if c.FadeMS > 0 {
		samples = FadeOut(FadeIn(samples, rate, c.FadeMS), rate, c.FadeMS)
	}
	return samples, rate, nil
}
