// Package writer rebuilds a protected document from a parsed source:
// original objects are retained untouched, overlays are appended to page
// content, and a fresh page tree, info dictionary, cross-reference
// table and trailer are emitted around them.
package writer

import (
	"fmt"

	"pdfarmor/canvas"
	"pdfarmor/ir/raw"
	"pdfarmor/reader"
)

// SerializationError reports a failure to produce output bytes.
type SerializationError struct {
	Op  string
	Err error
}

func (e *SerializationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("serialize: %s: %v", e.Op, e.Err)
	}
	return "serialize: " + e.Op
}

func (e *SerializationError) Unwrap() error { return e.Err }

// Writer assembles the output document. Pages must be added in the
// order they should appear; Serialize may be called once.
type Writer struct {
	doc      *reader.Document
	nextNum  int
	extra    map[raw.Ref]raw.Object
	extraOrd []raw.Ref
	pageOut  map[raw.Ref]*raw.Dict
	pages    []raw.Ref
	meta     map[string]string
}

// NewWriter starts an output document based on the parsed source.
func NewWriter(doc *reader.Document) *Writer {
	return &Writer{
		doc:     doc,
		nextNum: doc.MaxObjNum() + 1,
		extra:   make(map[raw.Ref]raw.Object),
		pageOut: make(map[raw.Ref]*raw.Dict),
	}
}

func (w *Writer) alloc(obj raw.Object) raw.Ref {
	ref := raw.Ref{Num: w.nextNum}
	w.nextNum++
	w.extra[ref] = obj
	w.extraOrd = append(w.extraOrd, ref)
	return ref
}

// AddPage appends a page to the output. The page keeps its source
// content plus whatever overlays were merged onto it.
func (w *Writer) AddPage(p *reader.Page) {
	if _, ok := w.pageOut[p.Ref]; !ok {
		w.pageOut[p.Ref] = w.preparePage(p)
	}
	w.pages = append(w.pages, p.Ref)
}

// preparePage clones the source page dictionary and materializes
// attributes that were inherited from dropped tree nodes.
func (w *Writer) preparePage(p *reader.Page) *raw.Dict {
	dict := p.Dict.Clone()
	dict.Set("Type", raw.Name("Page"))
	dict.Set("MediaBox", raw.ArrayFromRect(p.MediaBox))
	if _, ok := dict.Get("Resources"); !ok && p.Resources != nil {
		dict.Set("Resources", p.Resources)
	}
	return dict
}

// MergeOverlay composites an overlay atop the page by appending its
// content stream after the original ones. Original marks stay fully
// visible and selectable underneath.
func (w *Writer) MergeOverlay(p *reader.Page, ov *canvas.Overlay) error {
	if ov == nil {
		return &SerializationError{Op: "merge overlay", Err: fmt.Errorf("nil overlay")}
	}
	dict, ok := w.pageOut[p.Ref]
	if !ok {
		dict = w.preparePage(p)
		w.pageOut[p.Ref] = dict
	}

	streamDict := raw.NewDict()
	streamDict.Set("Length", raw.Int(int64(len(ov.Content))))
	contentRef := w.alloc(raw.NewStream(streamDict, ov.Content))

	dict.Set("Contents", w.appendContent(dict, contentRef))
	dict.Set("Resources", w.mergeResources(dict, ov))
	return nil
}

// appendContent normalizes /Contents to an array and appends the
// overlay stream reference.
func (w *Writer) appendContent(page *raw.Dict, contentRef raw.Ref) *raw.Array {
	out := raw.NewArray()
	if existing, ok := page.Get("Contents"); ok {
		switch v := w.doc.Resolve(existing).(type) {
		case *raw.Array:
			out.Append(v.Items...)
		default:
			if ind, ok := existing.(raw.Indirect); ok {
				out.Append(ind)
			}
		}
	}
	out.Append(raw.Indirect{R: contentRef})
	return out
}

// mergeResources merges the overlay's font and ExtGState entries into a
// copy of the page's resource dictionary. Overlay resource names are
// prefixed, so they cannot shadow source entries.
func (w *Writer) mergeResources(page *raw.Dict, ov *canvas.Overlay) *raw.Dict {
	res := raw.NewDict()
	if ro, ok := page.Get("Resources"); ok {
		if rd, ok := w.doc.ResolveDict(ro); ok {
			res = rd.Clone()
		}
	}

	fonts := raw.NewDict()
	if fo, ok := res.Get("Font"); ok {
		if fd, ok := w.doc.ResolveDict(fo); ok {
			fonts = fd.Clone()
		}
	}
	for name, base := range ov.Fonts {
		fd := raw.NewDict()
		fd.Set("Type", raw.Name("Font"))
		fd.Set("Subtype", raw.Name("Type1"))
		fd.Set("BaseFont", raw.Name(base))
		fonts.Set(name, fd)
	}
	res.Set("Font", fonts)

	states := raw.NewDict()
	if so, ok := res.Get("ExtGState"); ok {
		if sd, ok := w.doc.ResolveDict(so); ok {
			states = sd.Clone()
		}
	}
	for name, alpha := range ov.Alphas {
		gs := raw.NewDict()
		gs.Set("Type", raw.Name("ExtGState"))
		gs.Set("ca", raw.Real(alpha))
		gs.Set("CA", raw.Real(alpha))
		states.Set(name, gs)
	}
	res.Set("ExtGState", states)
	return res
}

// SetMetadata records the document information dictionary. Standard
// info keys (Title, Author, Subject, Creator, Producer, Keywords) and
// custom keys are written alike.
func (w *Writer) SetMetadata(meta map[string]string) {
	if w.meta == nil {
		w.meta = make(map[string]string, len(meta))
	}
	for k, v := range meta {
		w.meta[k] = v
	}
}
