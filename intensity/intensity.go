// Package intensity decides how aggressively a page is saturated.
// Short documents carry too little filler mass relative to genuine
// content, so density is inversely related to document length up to a
// cap, with the first page boosted hardest.
package intensity

import "fmt"

// PageContext locates one page inside its document.
type PageContext struct {
	PageIndex  int // 1-based
	TotalPages int
	Width      float64 // points
	Height     float64 // points
}

// Tier is a discrete protection-strength level.
type Tier int

const (
	Light Tier = iota
	Medium
	Heavy
	Extreme
)

func (t Tier) String() string {
	switch t {
	case Light:
		return "light"
	case Medium:
		return "medium"
	case Heavy:
		return "heavy"
	case Extreme:
		return "extreme"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// Params are the tunables attached to a tier. Volumes grow strictly
// with the tier; color stays near-white and alpha under the
// perceptibility threshold at every tier.
type Params struct {
	GrayLevel     float64
	Alpha         float64
	FontSizes     []float64
	ScatterCount  int
	PositionCount int
}

// Params returns the tier's tuning values.
func (t Tier) Params() Params {
	switch t {
	case Light:
		return Params{
			GrayLevel:     0.98,
			Alpha:         0.05,
			FontSizes:     []float64{3, 4, 5},
			ScatterCount:  100,
			PositionCount: 8,
		}
	case Medium:
		return Params{
			GrayLevel:     0.97,
			Alpha:         0.08,
			FontSizes:     []float64{3, 4, 5, 6},
			ScatterCount:  150,
			PositionCount: 10,
		}
	case Heavy:
		return Params{
			GrayLevel:     0.97,
			Alpha:         0.10,
			FontSizes:     []float64{2, 3, 4, 5, 6},
			ScatterCount:  200,
			PositionCount: 12,
		}
	default: // Extreme
		return Params{
			GrayLevel:     0.95,
			Alpha:         0.12,
			FontSizes:     []float64{2, 3, 4, 5, 6, 7},
			ScatterCount:  300,
			PositionCount: 15,
		}
	}
}

// Milestone pages get an additive mega-warning allotment on top of the
// multiplicative density: first page, pages 3 and 5, and the last page.
func (ctx PageContext) Milestone() bool {
	switch ctx.PageIndex {
	case 1, 3, 5, ctx.TotalPages:
		return true
	}
	return false
}

// Model computes density and tier per page. The zero value is the
// reference model.
type Model struct{}

// DensityFactor returns the scalar multiplier for the page's filler
// volume. Reference rule: base 4.0 for documents of up to 5 pages, 3.0
// up to 10, then totalPages/10 clamped to [1, 3]; the first page
// multiplies the base by 5. Always >= 1.
func (Model) DensityFactor(ctx PageContext) float64 {
	var base float64
	switch {
	case ctx.TotalPages <= 5:
		base = 4.0
	case ctx.TotalPages <= 10:
		base = 3.0
	default:
		base = float64(ctx.TotalPages) / 10
		if base > 3 {
			base = 3
		}
		if base < 1 {
			base = 1
		}
	}
	if ctx.PageIndex == 1 {
		base *= 5
	}
	if base < 1 {
		base = 1
	}
	return base
}

// TierFor maps a page onto its discrete tier. Thresholds partition the
// density range so that first pages of short documents land on Extreme
// and deep pages of long documents on Light.
func (m Model) TierFor(ctx PageContext) Tier {
	f := m.DensityFactor(ctx)
	switch {
	case f >= 10:
		return Extreme
	case f >= 4:
		return Heavy
	case f >= 2:
		return Medium
	default:
		return Light
	}
}
