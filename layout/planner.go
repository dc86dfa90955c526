// Package layout turns page geometry, an intensity tier and a trigger
// corpus into a placement plan: the ordered draw instructions for one
// page's overlay. Placement combines independent spatial strategies;
// their order only affects visual stacking.
package layout

import (
	"fmt"
	"math"
	"math/rand"
	"strings"

	"pdfarmor/intensity"
	"pdfarmor/trigger"
)

// Instruction is one draw call of a placement plan. Text is already
// length-clamped and newline-free; coordinates sit inside the margin
// box.
type Instruction struct {
	X, Y      float64
	Text      string
	FontSize  float64
	GrayLevel float64
	Alpha     float64
	Category  string
}

// GeometryError reports non-positive page dimensions. The page emits no
// instructions and the run must fail.
type GeometryError struct {
	Page   int
	Width  float64
	Height float64
}

func (e *GeometryError) Error() string {
	return fmt.Sprintf("layout: page %d has invalid geometry %.2fx%.2f", e.Page, e.Width, e.Height)
}

// Strategy identifies one placement strategy.
type Strategy string

const (
	StrategyNoise     Strategy = "noise"
	StrategyGrid      Strategy = "grid"
	StrategyAnchors   Strategy = "anchors"
	StrategyScatter   Strategy = "scatter"
	StrategyMicro     Strategy = "micro"
	StrategyCorners   Strategy = "corners"
	StrategyEdges     Strategy = "edges"
	StrategyDiagonal  Strategy = "diagonal"
	StrategyMilestone Strategy = "milestone"
)

// AllStrategies in stacking order.
func AllStrategies() []Strategy {
	return []Strategy{
		StrategyNoise, StrategyGrid, StrategyAnchors, StrategyScatter,
		StrategyMicro, StrategyCorners, StrategyEdges, StrategyDiagonal,
		StrategyMilestone,
	}
}

// Config tunes the planner. The zero value is not usable; start from
// DefaultConfig.
type Config struct {
	MarginX    float64
	MarginY    float64
	Strategies []Strategy
}

// DefaultConfig enables every strategy with the reference margins.
func DefaultConfig() Config {
	return Config{MarginX: 10, MarginY: 20, Strategies: AllStrategies()}
}

// Planner produces placement plans. Safe for reuse across pages within
// a run; the RNG is supplied per call.
type Planner struct {
	cfg     Config
	enabled map[Strategy]bool
}

// New builds a planner from cfg.
func New(cfg Config) *Planner {
	enabled := make(map[Strategy]bool, len(cfg.Strategies))
	for _, s := range cfg.Strategies {
		enabled[s] = true
	}
	return &Planner{cfg: cfg, enabled: enabled}
}

// Plan computes the page's placement plan. Deterministic for a fixed
// (ctx, tier, density, RNG seed) tuple.
func (p *Planner) Plan(ctx intensity.PageContext, corpus *trigger.Corpus, tier intensity.Tier, density float64, rng *rand.Rand) ([]Instruction, error) {
	if ctx.Width <= 0 || ctx.Height <= 0 {
		return nil, &GeometryError{Page: ctx.PageIndex, Width: ctx.Width, Height: ctx.Height}
	}
	params := tier.Params()
	sheet := &sheet{
		cfg:    p.cfg,
		ctx:    ctx,
		params: params,
		corpus: corpus,
		rng:    rng,
	}

	if p.enabled[StrategyNoise] {
		sheet.noise(density)
	}
	if p.enabled[StrategyGrid] {
		sheet.grid()
	}
	if p.enabled[StrategyAnchors] {
		sheet.anchors(density)
	}
	if p.enabled[StrategyScatter] {
		sheet.scatter(density)
	}
	if p.enabled[StrategyMicro] {
		sheet.micro(density)
	}
	if p.enabled[StrategyCorners] {
		sheet.corners(density)
	}
	if p.enabled[StrategyEdges] {
		sheet.edges()
	}
	if p.enabled[StrategyDiagonal] {
		sheet.diagonal(density)
	}
	if p.enabled[StrategyMilestone] && ctx.Milestone() {
		sheet.milestone()
	}
	return sheet.plan, nil
}

// sheet accumulates instructions for one page.
type sheet struct {
	cfg    Config
	ctx    intensity.PageContext
	params intensity.Params
	corpus *trigger.Corpus
	rng    *rand.Rand
	plan   []Instruction
}

// emit clamps coordinates into the margin box, normalizes the text and
// appends the instruction. Off-page geometry is re-clamped, never
// dropped.
func (s *sheet) emit(x, y float64, text string, maxLen int, size, gray, alpha float64, category string) {
	text = clampText(text, maxLen)
	if text == "" {
		return
	}
	s.plan = append(s.plan, Instruction{
		X:         clamp(x, s.cfg.MarginX, s.ctx.Width-s.cfg.MarginX),
		Y:         clamp(y, s.cfg.MarginY, s.ctx.Height-s.cfg.MarginY),
		Text:      text,
		FontSize:  size,
		GrayLevel: gray,
		Alpha:     alpha,
		Category:  category,
	})
}

// noise scatters zero-width glyphs across the whole page in a micro
// font at the faintest fills. Invisible in both renderings; only text
// extraction picks it up.
func (s *sheet) noise(density float64) {
	glyphs := trigger.NoiseGlyphs()
	fills := [][2]float64{{0.99, 0.03}, {0.98, 0.02}, {0.99, 0.02}}
	count := 2 * int(math.Round(100*density))
	for i := 0; i < count; i++ {
		x := s.rng.Float64() * s.ctx.Width
		y := s.rng.Float64() * s.ctx.Height
		fill := fills[s.rng.Intn(len(fills))]
		s.emit(x, y, glyphs[s.rng.Intn(len(glyphs))], 10, 0.5, fill[0], fill[1], "")
	}
}

// grid walks the page with step sizes inversely proportional to the
// page count, so short documents get the densest mesh.
func (s *sheet) grid() {
	stepX := math.Max(30, 100-float64(s.ctx.TotalPages)*5)
	stepY := math.Max(25, 80-float64(s.ctx.TotalPages)*4)
	for x := s.cfg.MarginX; x < s.ctx.Width-s.cfg.MarginX; x += stepX {
		for y := s.cfg.MarginY; y < s.ctx.Height-s.cfg.MarginY; y += stepY {
			s.emit(x, y, s.corpus.Pick(s.rng), 80, 5, s.params.GrayLevel, s.params.Alpha, "")
		}
	}
}

// anchorPoints are the strategic relative positions, ordered by
// priority so the tier's position count truncates the tail.
var anchorPoints = [][2]float64{
	{0.02, 0.98}, {0.33, 0.98}, {0.66, 0.98}, {0.85, 0.98},
	{0.02, 0.80}, {0.50, 0.80},
	{0.02, 0.60}, {0.50, 0.60},
	{0.02, 0.40}, {0.50, 0.40},
	{0.02, 0.20}, {0.50, 0.20},
	{0.02, 0.03}, {0.50, 0.03}, {0.85, 0.03},
}

// anchors stacks sampled entries vertically at each strategic point
// with a fixed line pitch.
func (s *sheet) anchors(density float64) {
	points := anchorPoints
	if s.params.PositionCount < len(points) {
		points = points[:s.params.PositionCount]
	}
	const pitch = 5.0
	perAnchor := int(math.Round(12 * density))
	for _, pt := range points {
		selected := s.corpus.Sample(perAnchor, s.rng)
		y := pt[1] * s.ctx.Height
		for _, entry := range selected {
			s.emit(pt[0]*s.ctx.Width, y, entry, 250, 5, s.params.GrayLevel, s.params.Alpha, "")
			y -= pitch
		}
	}
}

// scatter draws independently uniform positions across the interior.
func (s *sheet) scatter(density float64) {
	count := int(math.Round(float64(s.params.ScatterCount) * density / 2))
	for i := 0; i < count; i++ {
		x := s.cfg.MarginX + s.rng.Float64()*(s.ctx.Width-2*s.cfg.MarginX)
		y := s.cfg.MarginY + s.rng.Float64()*(s.ctx.Height-2*s.cfg.MarginY)
		size := s.params.FontSizes[s.rng.Intn(len(s.params.FontSizes))]
		s.emit(x, y, s.corpus.Pick(s.rng), 150, size, s.params.GrayLevel, s.params.Alpha, "")
	}
}

// micro saturates the page with tiny repeated-word strings. The largest
// single contributor to output growth.
func (s *sheet) micro(density float64) {
	fill := trigger.MicroFill()
	count := int(math.Round(200 * density))
	alpha := math.Min(s.params.Alpha, 0.06)
	for i := 0; i < count; i++ {
		x := s.cfg.MarginX + s.rng.Float64()*(s.ctx.Width-2*s.cfg.MarginX)
		y := s.cfg.MarginY + s.rng.Float64()*(s.ctx.Height-2*s.cfg.MarginY)
		s.emit(x, y, fill[s.rng.Intn(len(fill))], 300, 2, 0.98, alpha, trigger.CategoryRepetition)
	}
}

// corners fills four fixed zones near the page corners.
func (s *sheet) corners(density float64) {
	const zoneW, zoneH = 250.0, 100.0
	zones := [][2]float64{
		{s.cfg.MarginX, s.ctx.Height - zoneH - s.cfg.MarginY},
		{s.ctx.Width - zoneW - s.cfg.MarginX, s.ctx.Height - zoneH - s.cfg.MarginY},
		{s.cfg.MarginX, s.cfg.MarginY},
		{s.ctx.Width - zoneW - s.cfg.MarginX, s.cfg.MarginY},
	}
	perZone := int(math.Round(30 * density))
	for _, z := range zones {
		for i := 0; i < perZone; i++ {
			x := z[0] + s.rng.Float64()*zoneW
			y := z[1] + s.rng.Float64()*zoneH
			s.emit(x, y, s.corpus.Pick(s.rng), 120, 3, s.params.GrayLevel, s.params.Alpha, "")
		}
	}
}

// edges walks all four page edges at a step inversely proportional to
// the page count.
func (s *sheet) edges() {
	step := math.Max(15, 25-2*float64(s.ctx.TotalPages))
	for y := s.cfg.MarginY; y < s.ctx.Height-s.cfg.MarginY; y += step {
		s.emit(s.cfg.MarginX, y, s.corpus.Pick(s.rng), 70, 4, s.params.GrayLevel, s.params.Alpha, "")
		s.emit(s.ctx.Width-s.cfg.MarginX, y, s.corpus.Pick(s.rng), 70, 4, s.params.GrayLevel, s.params.Alpha, "")
	}
	for x := s.cfg.MarginX; x < s.ctx.Width-s.cfg.MarginX; x += 80 {
		s.emit(x, s.ctx.Height-s.cfg.MarginY, s.corpus.Pick(s.rng), 70, 4, s.params.GrayLevel, s.params.Alpha, "")
		s.emit(x, s.cfg.MarginY, s.corpus.Pick(s.rng), 70, 4, s.params.GrayLevel, s.params.Alpha, "")
	}
}

// diagonal sweeps entries along the main diagonal with light jitter.
func (s *sheet) diagonal(density float64) {
	count := int(math.Round(10 * density))
	if count > 80 {
		count = 80
	}
	for i := 0; i < count; i++ {
		frac := (float64(i) + 0.5) / float64(count)
		jx := (s.rng.Float64() - 0.5) * 30
		jy := (s.rng.Float64() - 0.5) * 30
		s.emit(frac*s.ctx.Width+jx, frac*s.ctx.Height+jy,
			s.corpus.Pick(s.rng), 100, 6, s.params.GrayLevel, s.params.Alpha, "")
	}
}

// milestone places the short high-salience strings near the top margin.
func (s *sheet) milestone() {
	const lineHeight = 15.0
	y := s.ctx.Height - 70
	for _, warning := range trigger.MegaWarnings() {
		s.emit(50, y, warning, 250, 7, 0.95, 0.15, "")
		y -= lineHeight
	}
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// clampText strips embedded newlines and truncates to maxLen bytes; the
// corpus is ASCII so byte and rune truncation coincide.
func clampText(text string, maxLen int) string {
	text = strings.NewReplacer("\n", " ", "\r", " ").Replace(text)
	text = strings.TrimSpace(text)
	if len(text) > maxLen {
		text = text[:maxLen]
	}
	return text
}
