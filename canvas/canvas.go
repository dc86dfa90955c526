// Package canvas is the vector drawing surface used to materialize page
// overlays. It accumulates text-showing operations into a PDF content
// stream and tracks the alpha and font resources those operations need.
// Fill alpha below 1 is expressed through ExtGState entries, the only
// portable way to make text translucent in a content stream.
package canvas

import (
	"bytes"
	"fmt"
	"strings"
)

// Overlay is a finalized page-sized drawable: a q/Q-wrapped content
// stream plus the resources it references. Resource names carry the
// "PA" prefix so merging into arbitrary source pages cannot collide.
type Overlay struct {
	Width, Height float64
	Content       []byte
	// Alphas maps ExtGState resource name to constant fill alpha.
	Alphas map[string]float64
	// Fonts maps font resource name to base font name.
	Fonts map[string]string
}

// Canvas draws single-line strings onto a page-sized surface.
type Canvas struct {
	width, height float64
	buf           bytes.Buffer
	alphas        map[string]float64
	alphaNames    map[float64]string
	fonts         map[string]string
	fontNames     map[string]string
	curFont       string
	curSize       float64
	finalized     bool
}

// New allocates a surface for one page. Dimensions are in points.
func New(width, height float64) *Canvas {
	c := &Canvas{
		width:      width,
		height:     height,
		alphas:     make(map[string]float64),
		alphaNames: make(map[float64]string),
		fonts:      make(map[string]string),
		fontNames:  make(map[string]string),
	}
	c.buf.WriteString("q\n")
	return c
}

func (c *Canvas) Width() float64 { return c.width }

func (c *Canvas) Height() float64 { return c.height }

// SetFillColor sets the nonstroking color and constant alpha for
// subsequent draws. Alpha 1 resets to the default graphics state.
func (c *Canvas) SetFillColor(r, g, b, alpha float64) {
	if alpha < 1 {
		name, ok := c.alphaNames[alpha]
		if !ok {
			name = fmt.Sprintf("PAGS%d", len(c.alphas))
			c.alphaNames[alpha] = name
			c.alphas[name] = alpha
		}
		fmt.Fprintf(&c.buf, "/%s gs\n", name)
	}
	fmt.Fprintf(&c.buf, "%s %s %s rg\n", num(r), num(g), num(b))
}

// SetFont selects the font for subsequent DrawString calls. Only the
// standard 14 base fonts are supported; unknown families fall back to
// Helvetica.
func (c *Canvas) SetFont(family string, size float64) {
	base := family
	if base == "" {
		base = "Helvetica"
	}
	name, ok := c.fontNames[base]
	if !ok {
		name = fmt.Sprintf("PAF%d", len(c.fonts))
		c.fontNames[base] = name
		c.fonts[name] = base
	}
	c.curFont = name
	c.curSize = size
}

// DrawString shows s with its baseline origin at (x, y). Embedded
// newlines are replaced by spaces; the primitive is single-line only.
func (c *Canvas) DrawString(x, y float64, s string) {
	if s == "" {
		return
	}
	if c.curFont == "" {
		c.SetFont("Helvetica", 12)
	}
	s = strings.NewReplacer("\n", " ", "\r", " ").Replace(s)
	fmt.Fprintf(&c.buf, "BT /%s %s Tf %s %s Td (%s) Tj ET\n",
		c.curFont, num(c.curSize), num(x), num(y), escapeString(s))
}

// Finalize closes the surface and returns the overlay. The canvas must
// not be drawn on afterwards; Finalize is idempotent on an already
// finalized canvas only in that it returns nil.
func (c *Canvas) Finalize() *Overlay {
	if c.finalized {
		return nil
	}
	c.finalized = true
	c.buf.WriteString("Q\n")
	return &Overlay{
		Width:   c.width,
		Height:  c.height,
		Content: c.buf.Bytes(),
		Alphas:  c.alphas,
		Fonts:   c.fonts,
	}
}

// escapeString produces the interior of a PDF literal string.
func escapeString(s string) string {
	var out strings.Builder
	for i := 0; i < len(s); i++ {
		switch b := s[i]; b {
		case '(', ')', '\\':
			out.WriteByte('\\')
			out.WriteByte(b)
		default:
			out.WriteByte(b)
		}
	}
	return out.String()
}

// num formats coordinates compactly, trimming trailing zeros.
func num(f float64) string {
	s := fmt.Sprintf("%.3f", f)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	if s == "" || s == "-" {
		return "0"
	}
	return s
}
