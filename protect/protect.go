// Package protect runs the overlay pipeline end to end: read the
// source document, saturate every page with an invisible adversarial
// overlay, attach themed metadata and serialize the result. A run
// either yields the complete protected byte stream or nothing.
package protect

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"pdfarmor/docmeta"
	"pdfarmor/intensity"
	"pdfarmor/layout"
	"pdfarmor/observability"
	"pdfarmor/overlay"
	"pdfarmor/reader"
	"pdfarmor/token"
	"pdfarmor/trigger"
	"pdfarmor/writer"
)

// State names the phases of a protection run.
type State int

const (
	StateInit State = iota
	StateReadingSource
	StateProcessingPages
	StateComposingMetadata
	StateSerializing
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateReadingSource:
		return "reading-source"
	case StateProcessingPages:
		return "processing-pages"
	case StateComposingMetadata:
		return "composing-metadata"
	case StateSerializing:
		return "serializing"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// PageError attaches the failing page index to a per-page failure.
type PageError struct {
	Page int
	Err  error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("page %d: %v", e.Page, e.Err)
}

func (e *PageError) Unwrap() error { return e.Err }

// ProgressFunc receives (current, total) once per completed page.
// Calls are best effort: a panicking sink never aborts the run.
type ProgressFunc func(current, total int)

// Stats summarizes one completed run.
type Stats struct {
	OriginalSize    int
	ProtectedSize   int
	IncreaseBytes   int
	IncreasePercent float64
	PageCount       int
	Tiers           []intensity.Tier
	Token           string
}

// Result carries a successful run's artifacts.
type Result struct {
	Output []byte
	Token  token.Token
	Stats  Stats
}

// Option configures a Protector.
type Option func(*Protector)

// WithLogger installs a logger; the default is the no-op logger.
func WithLogger(log observability.Logger) Option {
	return func(p *Protector) { p.log = log }
}

// WithSeed pins the planner RNG for deterministic output. Without it
// every run draws from a time-derived seed.
func WithSeed(seed int64) Option {
	return func(p *Protector) { s := seed; p.seed = &s }
}

// WithCorpus substitutes the trigger corpus.
func WithCorpus(c *trigger.Corpus) Option {
	return func(p *Protector) { p.corpus = c }
}

// WithLayout substitutes the planner configuration.
func WithLayout(cfg layout.Config) Option {
	return func(p *Protector) { p.layoutCfg = cfg }
}

// Protector executes protection runs. Runs share no mutable state:
// each gets its own corpus view, RNG and token, so one Protector may
// serve concurrent runs.
type Protector struct {
	log       observability.Logger
	corpus    *trigger.Corpus
	layoutCfg layout.Config
	model     intensity.Model
	seed      *int64
}

// New builds a Protector with the default corpus and layout.
func New(opts ...Option) *Protector {
	p := &Protector{
		log:       observability.NopLogger{},
		corpus:    trigger.Default(),
		layoutCfg: layout.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Protect runs the full pipeline over input. Cancellation via ctx is
// equivalent to failure: no partial output is ever returned.
func (p *Protector) Protect(ctx context.Context, input []byte, onProgress ProgressFunc) (*Result, error) {
	r := &run{state: StateInit, log: p.log}

	rng := rand.New(rand.NewSource(p.runSeed()))
	tok := token.New()
	log := p.log.With(observability.String("token", tok.String()))

	r.to(StateReadingSource)
	doc, err := reader.Open(input)
	if err != nil {
		return nil, r.fail(fmt.Errorf("open source: %w", err))
	}

	w := writer.NewWriter(doc)
	planner := layout.New(p.layoutCfg)
	renderer := overlay.New()
	total := doc.PageCount()
	tiers := make([]intensity.Tier, 0, total)

	r.to(StateProcessingPages)
	for _, page := range doc.Pages() {
		if err := ctx.Err(); err != nil {
			return nil, r.fail(fmt.Errorf("run cancelled: %w", err))
		}
		pctx := intensity.PageContext{
			PageIndex:  page.Index,
			TotalPages: total,
			Width:      page.Width(),
			Height:     page.Height(),
		}
		density := p.model.DensityFactor(pctx)
		tier := p.model.TierFor(pctx)

		plan, err := planner.Plan(pctx, p.corpus, tier, density, rng)
		if err != nil {
			return nil, r.fail(&PageError{Page: page.Index, Err: err})
		}
		ov := renderer.Render(plan, pctx, tok)
		if err := w.MergeOverlay(page, ov); err != nil {
			return nil, r.fail(&PageError{Page: page.Index, Err: err})
		}
		w.AddPage(page)
		tiers = append(tiers, tier)

		log.Debug("page protected",
			observability.Int("page", page.Index),
			observability.Int("instructions", len(plan)),
			observability.Float64("density", density),
			observability.String("tier", tier.String()),
		)
		notify(onProgress, page.Index, total)
	}

	r.to(StateComposingMetadata)
	meta, err := docmeta.Compose(tok, documentTier(tiers))
	if err != nil {
		return nil, r.fail(fmt.Errorf("compose metadata: %w", err))
	}
	w.SetMetadata(meta)

	r.to(StateSerializing)
	out, err := w.Serialize()
	if err != nil {
		return nil, r.fail(err)
	}
	if err := ctx.Err(); err != nil {
		return nil, r.fail(fmt.Errorf("run cancelled: %w", err))
	}

	r.to(StateDone)
	stats := Stats{
		OriginalSize:  len(input),
		ProtectedSize: len(out),
		IncreaseBytes: len(out) - len(input),
		PageCount:     total,
		Tiers:         tiers,
		Token:         tok.String(),
	}
	if stats.OriginalSize > 0 {
		stats.IncreasePercent = (float64(stats.ProtectedSize)/float64(stats.OriginalSize) - 1) * 100
	}
	log.Info("document protected",
		observability.Int("pages", total),
		observability.Int("original_bytes", stats.OriginalSize),
		observability.Int("protected_bytes", stats.ProtectedSize),
	)
	return &Result{Output: out, Token: tok, Stats: stats}, nil
}

func (p *Protector) runSeed() int64 {
	if p.seed != nil {
		return *p.seed
	}
	return time.Now().UnixNano()
}

// documentTier picks the tier recorded in metadata: the strongest tier
// any page reached, which is always page 1 under the reference model.
func documentTier(tiers []intensity.Tier) intensity.Tier {
	max := intensity.Light
	for _, t := range tiers {
		if t > max {
			max = t
		}
	}
	return max
}

// notify invokes the progress sink, swallowing panics: the sink is
// best effort and must not abort processing.
func notify(fn ProgressFunc, current, total int) {
	if fn == nil {
		return
	}
	defer func() { _ = recover() }()
	fn(current, total)
}

// run tracks the state machine of one protection run.
type run struct {
	state State
	log   observability.Logger
}

func (r *run) to(s State) { r.state = s }

func (r *run) fail(err error) error {
	from := r.state
	r.state = StateFailed
	r.log.Error("protection run failed",
		observability.String("state", from.String()),
		observability.Error(err),
	)
	return err
}
