// Package groove cuts the spiral groove of a record into a mesh.
//
// The generator walks a decreasing radius and an increasing angle together.
// At every angular step it reads one waveform sample, turns it into a groove
// height and computes a four-vertex cross-section (outer-upper, outer-lower,
// inner-lower, inner-upper). Each revolution's rings are zipped into strips
// and joined to the previous revolution through the last cross-section drawn.
// The inner-upper ring of one turn is reused as the outer-upper ring of the
// next, so neighbouring turns share their knife-edge land.
//
// Around the spiral the generator lays the flat lands: the outer land from
// the record rim to the first turn, and the inner land from the last turn to
// the centre hole. Both meet the rings produced by package blank, so a blank
// plus a generated groove is a closed, consistently wound solid.
package groove

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BC-Softworks/record-generator/internal/blank"
	"github.com/BC-Softworks/record-generator/internal/geometry"
	"github.com/BC-Softworks/record-generator/internal/mesh"
	"github.com/BC-Softworks/record-generator/internal/waveform"
)

var (
	// ErrTooFewSteps is returned when a revolution has fewer than two angular
	// steps and cannot be triangulated.
	ErrTooFewSteps = errors.New("too few angular steps per revolution")
	// ErrOverlappingTurns is returned when the radial increment truncates to
	// zero and the waveform needs more than one revolution, so every turn
	// would be cut on top of the first.
	ErrOverlappingTurns = errors.New("radial increment truncates to zero; successive turns overlap")
)

// Progress is reported after each revolution is stitched.
type Progress struct {
	Revolution int
	Planned    int
	Radius     float64
}

type options struct {
	logger       *zap.Logger
	workers      int
	progress     func(Progress)
	allowOverlap bool
}

func defaultOptions() options {
	return options{
		logger:  zap.NewNop(),
		workers: 1,
	}
}

// Option configures a Generator.
type Option func(*options)

// WithLogger sets the logger used for per-revolution and summary messages.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithWorkers sets how many revolutions have their rings computed in
// parallel. Stitching is always sequential.
func WithWorkers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithProgress registers a callback invoked after each revolution.
func WithProgress(fn func(Progress)) Option {
	return func(o *options) { o.progress = fn }
}

// AllowOverlappingTurns lets Generate stack revolutions on one radius when
// the radial increment vanishes. The result is not a manifold mesh.
func AllowOverlappingTurns(allow bool) Option {
	return func(o *options) { o.allowOverlap = allow }
}

// Generator cuts grooves for one geometry configuration.
type Generator struct {
	cfg  geometry.Config
	opts options
}

// NewGenerator returns a generator for cfg.
func NewGenerator(cfg geometry.Config, opts ...Option) *Generator {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Generator{cfg: cfg, opts: o}
}

// Result describes one Generate call.
type Result struct {
	Revolutions   int
	StepsPerRev   int
	SampleCursor  int
	FinalRadius   float64
	VerticesAdded int
	FacesAdded    int
	// Degenerate is set when the waveform could not fill a single
	// revolution and only the flat top between rim and hole was drawn.
	Degenerate bool
}

type revolution struct {
	ou, ol, il, iu []mesh.Vertex
}

// Plan returns how many revolutions samples will produce.
func (g *Generator) Plan(samples []float64) int {
	n := g.cfg.StepsPerRevolution()
	if n < 2 {
		return 0
	}
	sampler := NewSampler(g.cfg, samples)
	revs := 0
	for sampler.Fits(revs*n, n) && g.clearsInnerRadius(revs, n) {
		revs++
	}
	return revs
}

// clearsInnerRadius reports whether revolution rev keeps its inner edge at
// or outside the innermost groove radius.
func (g *Generator) clearsInnerRadius(rev, n int) bool {
	c := g.cfg
	last := float64(rev*n + n - 1)
	return c.OuterRad-last*c.RadIncr-c.GrooveWidth-c.Amplitude*c.Bevel >= c.InnerRad
}

func (g *Generator) radiusAt(step int) float64 {
	return g.cfg.OuterRad - float64(step)*g.cfg.RadIncr
}

// rings computes the cross-sections of revolution rev. The outer-upper ring
// is only computed for the first revolution.
func (g *Generator) rings(sampler Sampler, rev, n int) revolution {
	out := revolution{
		ol: make([]mesh.Vertex, n),
		il: make([]mesh.Vertex, n),
		iu: make([]mesh.Vertex, n),
	}
	if rev == 0 {
		out.ou = make([]mesh.Vertex, n)
	}
	for j := range n {
		step := rev*n + j
		p := ProfileAt(g.cfg, g.radiusAt(step), g.cfg.Angle(j), sampler.Height(step))
		if rev == 0 {
			out.ou[j] = p.OU
		}
		out.ol[j], out.il[j], out.iu[j] = p.OL, p.IL, p.IU
	}
	return out
}

// Generate cuts the groove for samples into store. samples must already be
// normalized. The store is owned by the generator for the duration of the
// call.
func (g *Generator) Generate(ctx context.Context, store *mesh.Store, samples []float64) (Result, error) {
	if err := waveform.Validate(samples); err != nil {
		return Result{}, err
	}

	n := g.cfg.StepsPerRevolution()
	if n < 2 {
		return Result{}, fmt.Errorf("%w: %d", ErrTooFewSteps, n)
	}

	log := g.opts.logger
	startVerts, startFaces := store.VertexCount(), store.FaceCount()
	sampler := NewSampler(g.cfg, samples)
	planned := g.Plan(samples)

	if g.cfg.RadialIncrementVanishes() && planned > 1 {
		if !g.opts.allowOverlap {
			return Result{}, fmt.Errorf("%w: %d revolutions at precision %d", ErrOverlappingTurns, planned, g.cfg.Precision)
		}
		log.Warn("radial increment truncates to zero; successive turns overlap",
			zap.Int("precision", g.cfg.Precision),
			zap.Int("revolutions", planned))
	}

	rim := blank.Circumference(g.cfg, g.cfg.Radius, g.cfg.RH)
	hole := blank.Circumference(g.cfg, g.cfg.HoleRadius, g.cfg.RH)
	store.AddVertices(rim)
	store.AddVertices(hole)

	st := stitcher{store: store}
	batch := make([]revolution, g.opts.workers)
	for first := 0; first < planned; first += len(batch) {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		count := min(len(batch), planned-first)
		if err := g.computeBatch(ctx, sampler, first, batch[:count], n); err != nil {
			return Result{}, err
		}

		for k := range count {
			rev := first + k
			if err := ctx.Err(); err != nil {
				return Result{}, err
			}
			if err := st.revolution(batch[k]); err != nil {
				return Result{}, fmt.Errorf("revolution %d: %w", rev, err)
			}
			batch[k] = revolution{}

			radius := g.radiusAt((rev + 1) * n)
			log.Debug("groove drawn", zap.Int("revolution", rev+1), zap.Float64("radius", radius))
			if g.opts.progress != nil {
				g.opts.progress(Progress{Revolution: rev + 1, Planned: planned, Radius: radius})
			}
		}
	}

	res := Result{
		Revolutions:  planned,
		StepsPerRev:  n,
		SampleCursor: planned * n,
		FinalRadius:  g.radiusAt(planned * n),
		Degenerate:   planned == 0,
	}

	var err error
	if res.Degenerate {
		log.Info("waveform shorter than one revolution; drawing flat top only",
			zap.Int("samples", len(samples)),
			zap.Int("steps_per_revolution", n))
		_, err = store.Tristrip(blank.Closed(rim), blank.Closed(hole))
	} else {
		err = st.close(rim, hole)
	}
	if err != nil {
		return Result{}, fmt.Errorf("closing groove: %w", err)
	}

	res.VerticesAdded = store.VertexCount() - startVerts
	res.FacesAdded = store.FaceCount() - startFaces

	log.Info("groove cut",
		zap.Int("revolutions", res.Revolutions),
		zap.Int("steps_per_revolution", n),
		zap.Float64("final_radius", res.FinalRadius),
		zap.Int("vertices_added", res.VerticesAdded),
		zap.Int("faces_added", res.FacesAdded))

	return res, nil
}

func (g *Generator) computeBatch(ctx context.Context, sampler Sampler, first int, out []revolution, n int) error {
	if len(out) == 1 {
		out[0] = g.rings(sampler, first, n)
		return nil
	}

	eg, ectx := errgroup.WithContext(ctx)
	eg.SetLimit(len(out))
	for k := range out {
		eg.Go(func() error {
			if err := ectx.Err(); err != nil {
				return err
			}
			out[k] = g.rings(sampler, first+k, n)
			return nil
		})
	}
	return eg.Wait()
}

// stitcher carries the state that links consecutive revolutions.
type stitcher struct {
	store *mesh.Store

	// lastEdge is the final cross-section of the previous revolution.
	lastEdge *Profile
	prevIU   []mesh.Vertex

	firstOU, firstIU []mesh.Vertex
}

func withCarry(carry *mesh.Vertex, ring []mesh.Vertex) []mesh.Vertex {
	if carry == nil {
		return ring
	}
	out := make([]mesh.Vertex, 0, len(ring)+1)
	out = append(out, *carry)
	return append(out, ring...)
}

func (s *stitcher) revolution(rev revolution) error {
	first := s.lastEdge == nil
	ou := rev.ou
	if !first {
		ou = s.prevIU
	} else {
		s.store.AddVertices(ou)
	}
	s.store.AddVertices(rev.ol)
	s.store.AddVertices(rev.il)
	s.store.AddVertices(rev.iu)

	var cOU, cOL, cIL, cIU *mesh.Vertex
	if !first {
		cOU, cOL, cIL, cIU = &s.lastEdge.OU, &s.lastEdge.OL, &s.lastEdge.IL, &s.lastEdge.IU
	}

	walls := [][2][]mesh.Vertex{
		{withCarry(cOU, ou), withCarry(cOL, rev.ol)},
		{withCarry(cOL, rev.ol), withCarry(cIL, rev.il)},
		{withCarry(cIL, rev.il), withCarry(cIU, rev.iu)},
	}
	for _, w := range walls {
		if _, err := s.store.Tristrip(w[0], w[1]); err != nil {
			return err
		}
	}

	if first {
		start := Profile{OU: ou[0], OL: rev.ol[0], IL: rev.il[0], IU: rev.iu[0]}
		if err := s.startCap(start); err != nil {
			return err
		}
		s.firstOU, s.firstIU = ou, rev.iu
	}

	last := len(rev.iu) - 1
	s.lastEdge = &Profile{OU: ou[last], OL: rev.ol[last], IL: rev.il[last], IU: rev.iu[last]}
	s.prevIU = rev.iu

	return nil
}

func (s *stitcher) faces(tris ...[3]mesh.Vertex) error {
	for _, t := range tris {
		if err := s.store.AddFace(t[0], t[1], t[2]); err != nil {
			return err
		}
	}
	return nil
}

// startCap closes the cross-section where the spiral begins.
func (s *stitcher) startCap(p Profile) error {
	return s.faces(
		[3]mesh.Vertex{p.OU, p.OL, p.IL},
		[3]mesh.Vertex{p.OU, p.IL, p.IU},
	)
}

// endCap closes the cross-section where the spiral stops. It is wound
// opposite to startCap because it faces the other way along the groove.
func (s *stitcher) endCap(p Profile) error {
	return s.faces(
		[3]mesh.Vertex{p.IU, p.IL, p.OL},
		[3]mesh.Vertex{p.IU, p.OL, p.OU},
	)
}

// close draws the end cap and both lands once every revolution is stitched.
func (s *stitcher) close(rim, hole []mesh.Vertex) error {
	if err := s.endCap(*s.lastEdge); err != nil {
		return err
	}

	// Outer land: rim ring against the first outer-upper ring, which ends
	// where the second turn begins.
	n := len(s.firstOU)
	outer := make([]mesh.Vertex, 0, n+1)
	outer = append(outer, s.firstOU...)
	outer = append(outer, s.firstIU[0])
	if _, err := s.store.Tristrip(blank.Closed(rim), outer); err != nil {
		return fmt.Errorf("outer land: %w", err)
	}
	if err := s.faces([3]mesh.Vertex{rim[0], outer[0], outer[n]}); err != nil {
		return fmt.Errorf("outer land: %w", err)
	}

	// Inner land: the innermost inner-upper ring, preceded by the last
	// outer-upper vertex, against the hole ring rotated to start one step
	// before angle zero.
	inner := withCarry(&s.lastEdge.OU, s.prevIU)
	h := len(hole)
	holeRing := make([]mesh.Vertex, 0, h+1)
	holeRing = append(holeRing, hole[h-1])
	holeRing = append(holeRing, hole...)
	if _, err := s.store.Tristrip(inner, holeRing); err != nil {
		return fmt.Errorf("inner land: %w", err)
	}
	if err := s.faces([3]mesh.Vertex{hole[h-1], inner[len(inner)-1], inner[0]}); err != nil {
		return fmt.Errorf("inner land: %w", err)
	}

	return nil
}
