package writer

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"pdfarmor/ir/raw"
)

// Serialize emits the complete output document: retained source
// objects, overlay streams, rebuilt page tree, info dictionary, classic
// cross-reference table and trailer.
func (w *Writer) Serialize() ([]byte, error) {
	if len(w.pages) == 0 {
		return nil, &SerializationError{Op: "no pages added"}
	}

	objects := make(map[raw.Ref]raw.Object)
	oldCatalog := w.sourceCatalogRef()
	oldInfo := w.sourceInfoRef()
	for ref, obj := range w.doc.Objects {
		if w.dropOnRewrite(ref, obj, oldCatalog, oldInfo) {
			continue
		}
		objects[ref] = obj
	}
	for ref, obj := range w.extra {
		objects[ref] = obj
	}

	// Page tree: one flat /Pages node owning every output page.
	pagesRef := raw.Ref{Num: w.nextNum}
	w.nextNum++
	kids := raw.NewArray()
	for _, pref := range w.pages {
		dict := w.pageOut[pref]
		dict.Set("Parent", raw.Indirect{R: pagesRef})
		objects[pref] = dict
		kids.Append(raw.Indirect{R: pref})
	}
	pagesDict := raw.NewDict()
	pagesDict.Set("Type", raw.Name("Pages"))
	pagesDict.Set("Count", raw.Int(int64(len(w.pages))))
	pagesDict.Set("Kids", kids)
	objects[pagesRef] = pagesDict

	catalog := raw.NewDict()
	if oldCatalog.Num != 0 {
		if cd, ok := w.doc.ResolveDict(raw.Indirect{R: oldCatalog}); ok {
			catalog = cd.Clone()
		}
	}
	catalog.Set("Type", raw.Name("Catalog"))
	catalog.Set("Pages", raw.Indirect{R: pagesRef})
	catalogRef := raw.Ref{Num: w.nextNum}
	w.nextNum++
	objects[catalogRef] = catalog

	var infoRef raw.Ref
	if len(w.meta) > 0 {
		info := raw.NewDict()
		for k, v := range w.meta {
			info.Set(k, raw.Str([]byte(v)))
		}
		infoRef = raw.Ref{Num: w.nextNum}
		w.nextNum++
		objects[infoRef] = info
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.7\n%\xE2\xE3\xCF\xD3\n")

	ordered := make([]raw.Ref, 0, len(objects))
	for ref := range objects {
		ordered = append(ordered, ref)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Num < ordered[j].Num })

	offsets := make(map[int]int)
	gens := make(map[int]int)
	for _, ref := range ordered {
		offsets[ref.Num] = buf.Len()
		gens[ref.Num] = ref.Gen
		fmt.Fprintf(&buf, "%d %d obj\n", ref.Num, ref.Gen)
		if err := serializeObject(&buf, objects[ref]); err != nil {
			return nil, &SerializationError{Op: fmt.Sprintf("object %d", ref.Num), Err: err}
		}
		buf.WriteString("\nendobj\n")
	}

	maxNum := ordered[len(ordered)-1].Num
	xrefOffset := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", maxNum+1)
	buf.WriteString("0000000000 65535 f \n")
	for num := 1; num <= maxNum; num++ {
		if off, ok := offsets[num]; ok {
			fmt.Fprintf(&buf, "%010d %05d n \n", off, gens[num])
		} else {
			buf.WriteString("0000000000 65535 f \n")
		}
	}

	trailer := raw.NewDict()
	trailer.Set("Size", raw.Int(int64(maxNum+1)))
	trailer.Set("Root", raw.Indirect{R: catalogRef})
	if infoRef.Num != 0 {
		trailer.Set("Info", raw.Indirect{R: infoRef})
	}
	trailer.Set("ID", fileID())
	buf.WriteString("trailer\n")
	if err := serializeObject(&buf, trailer); err != nil {
		return nil, &SerializationError{Op: "trailer", Err: err}
	}
	fmt.Fprintf(&buf, "\nstartxref\n%d\n%%%%EOF\n", xrefOffset)
	return buf.Bytes(), nil
}

func (w *Writer) sourceCatalogRef() raw.Ref {
	if root, ok := w.doc.Trailer.Get("Root"); ok {
		if ind, ok := root.(raw.Indirect); ok {
			return ind.R
		}
	}
	return raw.Ref{}
}

func (w *Writer) sourceInfoRef() raw.Ref {
	if info, ok := w.doc.Trailer.Get("Info"); ok {
		if ind, ok := info.(raw.Indirect); ok {
			return ind.R
		}
	}
	return raw.Ref{}
}

// dropOnRewrite filters source objects that the rewrite replaces or
// that only make sense in the source file's physical layout.
func (w *Writer) dropOnRewrite(ref raw.Ref, obj raw.Object, oldCatalog, oldInfo raw.Ref) bool {
	if ref == oldCatalog || (oldInfo.Num != 0 && ref == oldInfo) {
		return true
	}
	switch v := obj.(type) {
	case *raw.Stream:
		switch v.Dict.Name("Type") {
		case "ObjStm", "XRef":
			return true
		}
	case *raw.Dict:
		// interior page tree nodes are rebuilt flat
		if v.Name("Type") == "Pages" {
			return true
		}
	}
	return false
}

// fileID returns a fresh two-element /ID array. Both halves are random:
// the output is a new document, not an incremental update.
func fileID() *raw.Array {
	id := make([]byte, 16)
	if _, err := rand.Read(id); err != nil {
		copy(id, []byte("pdfarmor-fallback"))
	}
	h := raw.String{Data: []byte(hex.EncodeToString(id)), Hex: false}
	return raw.NewArray(h, h)
}

func serializeObject(buf *bytes.Buffer, obj raw.Object) error {
	switch v := obj.(type) {
	case raw.Name:
		buf.WriteString("/" + escapeName(string(v)))
	case raw.Number:
		buf.WriteString(formatNumber(v))
	case raw.Bool:
		if v {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case raw.Null:
		buf.WriteString("null")
	case raw.String:
		if v.Hex {
			buf.WriteString("<" + hex.EncodeToString(v.Data) + ">")
		} else {
			buf.WriteString("(" + escapeString(v.Data) + ")")
		}
	case raw.Indirect:
		fmt.Fprintf(buf, "%d %d R", v.R.Num, v.R.Gen)
	case *raw.Array:
		buf.WriteByte('[')
		for i, item := range v.Items {
			if i > 0 {
				buf.WriteByte(' ')
			}
			if err := serializeObject(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case *raw.Dict:
		if err := serializeDict(buf, v); err != nil {
			return err
		}
	case *raw.Stream:
		v.Dict.Set("Length", raw.Int(int64(len(v.Data))))
		if err := serializeDict(buf, v.Dict); err != nil {
			return err
		}
		buf.WriteString("\nstream\n")
		buf.Write(v.Data)
		buf.WriteString("\nendstream")
	default:
		return fmt.Errorf("unknown object type %T", obj)
	}
	return nil
}

func serializeDict(buf *bytes.Buffer, d *raw.Dict) error {
	keys := make([]string, 0, d.Len())
	for k := range d.KV {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	buf.WriteString("<<")
	for _, k := range keys {
		buf.WriteString(" /" + escapeName(k) + " ")
		if err := serializeObject(buf, d.KV[k]); err != nil {
			return err
		}
	}
	buf.WriteString(" >>")
	return nil
}

func escapeName(s string) string {
	var out strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c <= 0x20 || c >= 0x7F || strings.IndexByte("()<>[]{}/%#", c) >= 0 {
			fmt.Fprintf(&out, "#%02X", c)
			continue
		}
		out.WriteByte(c)
	}
	return out.String()
}

func escapeString(data []byte) string {
	var out strings.Builder
	for _, b := range data {
		switch b {
		case '(', ')', '\\':
			out.WriteByte('\\')
			out.WriteByte(b)
		case '\n':
			out.WriteString("\\n")
		case '\r':
			out.WriteString("\\r")
		default:
			out.WriteByte(b)
		}
	}
	return out.String()
}

func formatNumber(n raw.Number) string {
	if n.IsInt {
		return fmt.Sprintf("%d", n.I)
	}
	s := fmt.Sprintf("%.5f", n.F)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	if s == "" || s == "-" {
		return "0"
	}
	return s
}
