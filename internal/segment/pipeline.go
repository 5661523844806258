package segment

import (
	"context"
	"image"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/ironsheep/mask-overlay/internal/config"
	"github.com/ironsheep/mask-overlay/internal/detection"
	"github.com/ironsheep/mask-overlay/internal/imaging"
	"github.com/ironsheep/mask-overlay/internal/labels"
	"github.com/ironsheep/mask-overlay/internal/logger"
	"github.com/ironsheep/mask-overlay/internal/metrics"
)

const logModule = "segment"

// Instance is an accepted detection resolved to pixels, ready to draw.
type Instance struct {
	Index      int
	ClassID    int
	Confidence float64
	Label      string
	Box        detection.PixelBox
	Errs       []error

	// Mask covers only the part of Box inside the image; its (0,0) cell
	// sits at Origin in image coordinates.
	Mask   detection.BinaryMask
	Origin image.Point
}

// InstanceResult is what happened to one instance during Run.
type InstanceResult struct {
	Index      int                `json:"index"`
	ClassID    int                `json:"class_id"`
	Label      string             `json:"label"`
	Confidence float64            `json:"confidence"`
	Box        detection.PixelBox `json:"box"`
	MaskPixels int                `json:"mask_pixels"`
	Blended    int                `json:"blended_pixels"`
	Artifact   string             `json:"artifact,omitempty"`
}

// Report summarizes a run.
type Report struct {
	Seen      int              `json:"seen"`
	Accepted  int              `json:"accepted"`
	Instances []InstanceResult `json:"instances"`
	Errors    []*InstanceError `json:"-"`
	Composite string           `json:"composite,omitempty"`

	// CompositeErr is set when the composite could not be written. It
	// wraps ErrArtifactWrite.
	CompositeErr error `json:"-"`
}

// Pipeline renders detections for one configuration. It is safe to call
// Run concurrently with different canvases.
type Pipeline struct {
	cfg     config.Config
	comp    Compositor
	labels  *labels.Table
	sink    ArtifactSink
	metrics *metrics.Metrics
	log     *logger.Logger

	rasterize func(g detection.Grid, width, height int, window image.Rectangle, cutoff float64) (detection.BinaryMask, error)
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithMetrics records run statistics into m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *logger.Logger) Option {
	return func(p *Pipeline) { p.log = l }
}

// New validates cfg and returns a Pipeline writing to sink. A nil table
// renders every class as unknown.
func New(cfg config.Config, table *labels.Table, sink ArtifactSink, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	if sink == nil {
		return nil, errors.New("nil artifact sink")
	}
	comp, err := NewCompositor(cfg)
	if err != nil {
		return nil, err
	}
	p := &Pipeline{
		cfg:    cfg,
		comp:   comp,
		labels: table,
		sink:   sink,
		log:    logger.Discard(),

		rasterize: detection.RasterizeWindow,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.metrics == nil {
		p.metrics = metrics.New()
	}
	return p, nil
}

// Metrics returns the metrics the pipeline records into.
func (p *Pipeline) Metrics() *metrics.Metrics { return p.metrics }

// Plan filters dets and resolves every accepted detection against a w x h
// image, rasterizing masks on up to cfg.Workers goroutines. It draws
// nothing. The result is in filtered order; per-instance problems are in
// each Instance's Errs.
func (p *Pipeline) Plan(ctx context.Context, w, h int, dets []detection.Detection) ([]Instance, error) {
	return p.plan(ctx, w, h, image.Rect(0, 0, w, h), dets)
}

// plan is Plan with masks rasterized only where they overlap visible.
func (p *Pipeline) plan(ctx context.Context, w, h int, visible image.Rectangle, dets []detection.Detection) ([]Instance, error) {
	var (
		insts    []Instance
		accepted []detection.Detection
	)
	for i, d := range detection.Accepted(dets, p.cfg.ConfidenceThreshold) {
		insts = append(insts, Instance{Index: i, ClassID: d.ClassID, Confidence: d.Confidence})
		accepted = append(accepted, d)
	}

	sem := make(chan struct{}, p.cfg.Workers)
	var wg sync.WaitGroup
	for i := range insts {
		if err := ctx.Err(); err != nil {
			wg.Wait()
			return nil, err
		}
		sem <- struct{}{}
		wg.Add(1)
		go func(inst *Instance, d detection.Detection) {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				if r := recover(); r != nil {
					inst.Mask, inst.Origin = detection.BinaryMask{}, image.Point{}
					inst.Errs = append(inst.Errs, errors.Errorf("resolve panicked: %v", r))
				}
			}()
			p.resolve(inst, d, w, h, visible)
		}(&insts[i], accepted[i])
	}
	wg.Wait()
	return insts, nil
}

func (p *Pipeline) resolve(inst *Instance, d detection.Detection, w, h int, visible image.Rectangle) {
	name, err := p.labels.Name(d.ClassID)
	if err != nil {
		inst.Errs = append(inst.Errs, err)
	}
	inst.Label = LabelText(name, d.Confidence)

	box := detection.ResolveBox(d.Box, w, h)
	if p.cfg.ClampBoxes {
		box = box.Clamp(w, h)
	}
	inst.Box = box
	if box.Empty() {
		inst.Errs = append(inst.Errs, errors.WithMessagef(ErrInvalidGeometry, "box %s", box))
		return
	}

	grid, err := d.MaskFor()
	if err != nil {
		inst.Errs = append(inst.Errs, err)
		return
	}
	window := box.Rect().Intersect(visible)
	mask, err := p.rasterize(grid, box.Width(), box.Height(), window.Sub(box.Min()), p.cfg.MaskThreshold)
	if err != nil {
		inst.Errs = append(inst.Errs, err)
		return
	}
	inst.Mask = mask
	inst.Origin = window.Min
}

// Run renders dets onto canvas, which it modifies in place, and writes one
// crop per accepted detection plus the composite to the sink. Boxes are
// resolved against w x h; non-positive sizes mean the canvas size.
//
// Only a nil canvas fails the run up front. If ctx is cancelled no further
// instances are drawn, the composite is not written, and the partial report
// is returned together with ctx.Err().
func (p *Pipeline) Run(ctx context.Context, canvas *image.NRGBA, w, h int, dets []detection.Detection) (*Report, error) {
	if canvas == nil {
		return nil, ErrNilCanvas
	}
	start := time.Now()
	defer func() { p.metrics.RunDuration.Observe(time.Since(start).Seconds()) }()

	if w <= 0 || h <= 0 {
		w, h = canvas.Bounds().Dx(), canvas.Bounds().Dy()
	}

	insts, err := p.plan(ctx, w, h, canvas.Bounds(), dets)
	if err != nil {
		return &Report{Seen: len(dets)}, err
	}

	rep := &Report{
		Seen:      len(dets),
		Accepted:  len(insts),
		Instances: make([]InstanceResult, 0, len(insts)),
	}
	p.metrics.DetectionsSeen.Add(float64(rep.Seen))
	p.metrics.DetectionsAccepted.Add(float64(rep.Accepted))
	p.metrics.DetectionsRejected.Add(float64(rep.Seen - rep.Accepted))
	p.log.Debug(logModule, "%d of %d detections above %.2f", rep.Accepted, rep.Seen, p.cfg.ConfidenceThreshold)

	exp := newExporter(p.sink, p.cfg.Workers, len(insts))
	var cancelled error
	for slot, inst := range insts {
		if err := ctx.Err(); err != nil {
			cancelled = err
			break
		}
		for _, e := range inst.Errs {
			p.addError(rep, inst, e)
		}

		// ROI reports its offset from the box corner; the mask starts at
		// Origin, so shift by the difference.
		roi, offset := imaging.ROI(canvas, inst.Box.Rect())
		offset = offset.Add(inst.Box.Min()).Sub(inst.Origin)
		exp.submit(exportJob{slot: slot, index: inst.Index, roi: roi, offset: offset, mask: inst.Mask})

		blended := p.comp.Apply(canvas, inst.Box, inst.Mask, inst.Origin, inst.Label)
		p.metrics.MaskPixels.Add(float64(blended))
		p.log.Debug(logModule, "instance %d %q box=%s mask=%d blended=%d",
			inst.Index, inst.Label, inst.Box, inst.Mask.Count(), blended)

		rep.Instances = append(rep.Instances, InstanceResult{
			Index:      inst.Index,
			ClassID:    inst.ClassID,
			Label:      inst.Label,
			Confidence: inst.Confidence,
			Box:        inst.Box,
			MaskPixels: inst.Mask.Count(),
			Blended:    blended,
		})
	}

	results := exp.wait()
	for i := range rep.Instances {
		r := results[i]
		rep.Instances[i].Artifact = r.path
		if r.err != nil {
			p.metrics.ArtifactFailures.Inc()
			p.addError(rep, insts[i], r.err)
			continue
		}
		p.metrics.ArtifactsWritten.Inc()
	}
	sortErrors(rep.Errors)

	if cancelled != nil {
		p.log.Warn(logModule, "cancelled after %d of %d instances", len(rep.Instances), rep.Accepted)
		return rep, cancelled
	}

	path, err := p.sink.WriteComposite(canvas)
	rep.Composite = path
	if err != nil {
		rep.CompositeErr = writeError(err)
		p.metrics.ArtifactFailures.Inc()
		p.log.Error(logModule, "composite: %v", rep.CompositeErr)
	} else {
		p.metrics.ArtifactsWritten.Inc()
	}

	p.log.Info(logModule, "rendered %d/%d detections, %d problems", rep.Accepted, rep.Seen, len(rep.Errors))
	return rep, nil
}

func (p *Pipeline) addError(rep *Report, inst Instance, err error) {
	ie := &InstanceError{Index: inst.Index, ClassID: inst.ClassID, Err: err}
	rep.Errors = append(rep.Errors, ie)
	p.metrics.InstanceErrors.WithLabelValues(Kind(err)).Inc()
	p.log.Warn(logModule, "%v", ie)
}

func sortErrors(errs []*InstanceError) {
	sort.SliceStable(errs, func(i, j int) bool { return errs[i].Index < errs[j].Index })
}
