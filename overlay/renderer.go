// Package overlay materializes placement plans onto a drawing surface
// and owns the visibility contract: everything it draws stays below the
// human-perceptibility alpha threshold on a near-white fill.
package overlay

import (
	"pdfarmor/canvas"
	"pdfarmor/intensity"
	"pdfarmor/layout"
	"pdfarmor/token"
)

// Token styling is distinct from corpus styling: white fill at the
// lowest representable alpha, one-point font, fixed corner coordinates.
const (
	tokenAlpha    = 0.01
	tokenFontSize = 1.0
	tokenInsetX   = 5.0
	tokenInsetY   = 5.0
)

// Renderer draws plans for one protection run.
type Renderer struct {
	FontFamily string
}

// New returns a renderer using the standard overlay font.
func New() *Renderer {
	return &Renderer{FontFamily: "Helvetica"}
}

// Render draws every instruction of the plan onto a fresh page-sized
// surface and finalizes it. Token embedding is a separate final step,
// independent of the plan: an empty or malformed plan still produces an
// overlay carrying the token.
func (r *Renderer) Render(plan []layout.Instruction, ctx intensity.PageContext, tok token.Token) *canvas.Overlay {
	c := canvas.New(ctx.Width, ctx.Height)

	var lastSize float64 = -1
	var lastGray, lastAlpha float64 = -1, -1
	for _, in := range plan {
		if in.GrayLevel != lastGray || in.Alpha != lastAlpha {
			c.SetFillColor(in.GrayLevel, in.GrayLevel, in.GrayLevel, in.Alpha)
			lastGray, lastAlpha = in.GrayLevel, in.Alpha
		}
		if in.FontSize != lastSize {
			c.SetFont(r.FontFamily, in.FontSize)
			lastSize = in.FontSize
		}
		c.DrawString(in.X, in.Y, in.Text)
	}

	r.drawToken(c, ctx, tok)
	return c.Finalize()
}

// drawToken embeds the protection token at fixed low-visibility
// coordinates: page-qualified bottom-left, bare bottom-right.
func (r *Renderer) drawToken(c *canvas.Canvas, ctx intensity.PageContext, tok token.Token) {
	c.SetFillColor(1, 1, 1, tokenAlpha)
	c.SetFont(r.FontFamily, tokenFontSize)
	c.DrawString(tokenInsetX, tokenInsetY, tok.PageMark(ctx.PageIndex, ctx.TotalPages))
	x := ctx.Width - 150
	if x < tokenInsetX {
		x = tokenInsetX
	}
	c.DrawString(x, tokenInsetY, tok.String())
}
