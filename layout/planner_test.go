package layout

import (
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"pdfarmor/intensity"
	"pdfarmor/trigger"
)

func letterCtx(page, total int) intensity.PageContext {
	return intensity.PageContext{
		PageIndex:  page,
		TotalPages: total,
		Width:      612,
		Height:     792,
	}
}

func planFor(t *testing.T, ctx intensity.PageContext, tier intensity.Tier, density float64, seed int64) []Instruction {
	t.Helper()
	p := New(DefaultConfig())
	plan, err := p.Plan(ctx, trigger.Default(), tier, density, rand.New(rand.NewSource(seed)))
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	return plan
}

func TestPlanGeometryError(t *testing.T) {
	tests := []struct {
		name string
		w, h float64
	}{
		{"zero width", 0, 792},
		{"zero height", 612, 0},
		{"negative width", -10, 792},
		{"both zero", 0, 0},
	}
	p := New(DefaultConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := intensity.PageContext{PageIndex: 4, TotalPages: 9, Width: tt.w, Height: tt.h}
			_, err := p.Plan(ctx, trigger.Default(), intensity.Medium, 3.0, rand.New(rand.NewSource(1)))
			var geomErr *GeometryError
			if !errors.As(err, &geomErr) {
				t.Fatalf("Plan() error = %v, want GeometryError", err)
			}
			if geomErr.Page != 4 {
				t.Errorf("GeometryError.Page = %d, want 4", geomErr.Page)
			}
		})
	}
}

func TestPlanInstructionsInsideMarginBox(t *testing.T) {
	cfg := DefaultConfig()
	for _, tier := range []intensity.Tier{intensity.Light, intensity.Medium, intensity.Heavy, intensity.Extreme} {
		ctx := letterCtx(1, 5)
		plan := planFor(t, ctx, tier, 20.0, 42)
		if len(plan) == 0 {
			t.Fatalf("tier %v: empty plan", tier)
		}
		for i, ins := range plan {
			if ins.X < cfg.MarginX || ins.X > ctx.Width-cfg.MarginX {
				t.Fatalf("tier %v instruction %d: X=%v outside margin box", tier, i, ins.X)
			}
			if ins.Y < cfg.MarginY || ins.Y > ctx.Height-cfg.MarginY {
				t.Fatalf("tier %v instruction %d: Y=%v outside margin box", tier, i, ins.Y)
			}
		}
	}
}

func TestPlanVisibilityBounds(t *testing.T) {
	for _, tier := range []intensity.Tier{intensity.Light, intensity.Medium, intensity.Heavy, intensity.Extreme} {
		plan := planFor(t, letterCtx(1, 3), tier, 20.0, 7)
		for i, ins := range plan {
			if ins.Alpha > 0.15 {
				t.Fatalf("tier %v instruction %d: alpha %v exceeds 0.15", tier, i, ins.Alpha)
			}
			if ins.GrayLevel < 0.90 {
				t.Fatalf("tier %v instruction %d: gray %v below 0.90", tier, i, ins.GrayLevel)
			}
		}
	}
}

func TestPlanTextNormalized(t *testing.T) {
	corpus, err := trigger.New(map[string][]string{
		"messy": {"line one\nline two\r\nthree", strings.Repeat("x", 500)},
	})
	if err != nil {
		t.Fatalf("New corpus: %v", err)
	}
	p := New(DefaultConfig())
	plan, err := p.Plan(letterCtx(2, 8), corpus, intensity.Medium, 3.0, rand.New(rand.NewSource(5)))
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	for i, ins := range plan {
		if strings.ContainsAny(ins.Text, "\n\r") {
			t.Fatalf("instruction %d text contains a newline: %q", i, ins.Text)
		}
		if len(ins.Text) > 300 {
			t.Fatalf("instruction %d text not clamped: %d bytes", i, len(ins.Text))
		}
		if ins.Text == "" {
			t.Fatalf("instruction %d has empty text", i)
		}
	}
}

func TestPlanDeterministicUnderSeed(t *testing.T) {
	a := planFor(t, letterCtx(1, 5), intensity.Extreme, 20.0, 99)
	b := planFor(t, letterCtx(1, 5), intensity.Extreme, 20.0, 99)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("same seed, different plans (-a +b):\n%s", diff)
	}

	c := planFor(t, letterCtx(1, 5), intensity.Extreme, 20.0, 100)
	if diff := cmp.Diff(a, c); diff == "" {
		t.Error("different seeds produced identical plans")
	}
}

func TestPlanDensityScalesVolume(t *testing.T) {
	low := planFor(t, letterCtx(2, 8), intensity.Medium, 1.0, 11)
	high := planFor(t, letterCtx(2, 8), intensity.Medium, 4.0, 11)
	if len(high) <= len(low) {
		t.Errorf("density 4.0 plan (%d) not larger than density 1.0 plan (%d)", len(high), len(low))
	}
}

func TestPlanMilestonePages(t *testing.T) {
	warnings := trigger.MegaWarnings()
	hasWarning := func(plan []Instruction) bool {
		for _, ins := range plan {
			for _, w := range warnings {
				if ins.Text == w {
					return true
				}
			}
		}
		return false
	}

	for _, page := range []int{1, 3, 5, 8} {
		plan := planFor(t, letterCtx(page, 8), intensity.Medium, 3.0, 21)
		if !hasWarning(plan) {
			t.Errorf("milestone page %d carries no mega warning", page)
		}
	}
	for _, page := range []int{2, 4, 6, 7} {
		plan := planFor(t, letterCtx(page, 8), intensity.Medium, 3.0, 21)
		if hasWarning(plan) {
			t.Errorf("non-milestone page %d carries a mega warning", page)
		}
	}
}

func TestPlanNoiseLayer(t *testing.T) {
	glyphs := make(map[string]bool)
	for _, g := range trigger.NoiseGlyphs() {
		glyphs[g] = true
	}

	cfg := DefaultConfig()
	cfg.Strategies = []Strategy{StrategyNoise}
	p := New(cfg)
	plan, err := p.Plan(letterCtx(2, 8), trigger.Default(), intensity.Medium, 3.0, rand.New(rand.NewSource(13)))
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if want := 600; len(plan) != want {
		t.Fatalf("noise plan has %d instructions, want %d", len(plan), want)
	}
	for i, ins := range plan {
		if !glyphs[ins.Text] {
			t.Fatalf("instruction %d text %q is not a zero-width glyph", i, ins.Text)
		}
		if ins.FontSize != 0.5 {
			t.Fatalf("instruction %d font size = %v, want 0.5", i, ins.FontSize)
		}
		if ins.Alpha > 0.03 {
			t.Fatalf("instruction %d alpha = %v, above the noise cap", i, ins.Alpha)
		}
		if ins.GrayLevel < 0.98 {
			t.Fatalf("instruction %d gray = %v, below the noise floor", i, ins.GrayLevel)
		}
	}

	// the default strategy set carries the noise layer too
	full := planFor(t, letterCtx(2, 8), intensity.Medium, 3.0, 13)
	found := false
	for _, ins := range full {
		if glyphs[ins.Text] {
			found = true
			break
		}
	}
	if !found {
		t.Error("default plan carries no noise glyphs")
	}
}

func TestPlanStrategySubset(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Strategies = []Strategy{StrategyMicro}
	p := New(cfg)
	plan, err := p.Plan(letterCtx(2, 8), trigger.Default(), intensity.Medium, 2.0, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if len(plan) == 0 {
		t.Fatal("micro-only plan is empty")
	}
	for i, ins := range plan {
		if ins.Category != trigger.CategoryRepetition {
			t.Fatalf("instruction %d category = %q, want %q", i, ins.Category, trigger.CategoryRepetition)
		}
		if ins.FontSize != 2 {
			t.Fatalf("instruction %d font size = %v, want 2", i, ins.FontSize)
		}
		if ins.Alpha > 0.06 {
			t.Fatalf("instruction %d alpha = %v, above the micro cap", i, ins.Alpha)
		}
	}
}

func TestClampText(t *testing.T) {
	tests := []struct {
		in     string
		maxLen int
		want   string
	}{
		{"plain", 80, "plain"},
		{"a\nb\rc", 80, "a b c"},
		{"  padded  ", 80, "padded"},
		{"abcdef", 4, "abcd"},
		{"\n\n", 80, ""},
	}
	for _, tt := range tests {
		if got := clampText(tt.in, tt.maxLen); got != tt.want {
			t.Errorf("clampText(%q, %d) = %q, want %q", tt.in, tt.maxLen, got, tt.want)
		}
	}
}
