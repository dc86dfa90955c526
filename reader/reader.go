// Package reader parses PDF byte streams into the raw object model and
// exposes page geometry. It understands classic xref tables with /Prev
// chains and falls back to a full object scan for cross-reference
// streams or damaged tables. Object streams are expanded so that pages
// stored inside them are reachable.
package reader

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
	"strconv"
	"strings"

	"pdfarmor/ir/raw"
)

// MalformedDocumentError reports unparsable or structurally broken input.
type MalformedDocumentError struct {
	Reason string
}

func (e *MalformedDocumentError) Error() string {
	return "malformed document: " + e.Reason
}

func malformed(format string, args ...interface{}) error {
	return &MalformedDocumentError{Reason: fmt.Sprintf(format, args...)}
}

// Page is one resolved page with inherited attributes applied.
type Page struct {
	Index    int // 1-based
	Ref      raw.Ref
	Dict     *raw.Dict
	MediaBox raw.Rect
	// Resources is the page's resource dictionary, possibly inherited
	// from an ancestor tree node. Nil when the page declares none.
	Resources *raw.Dict
}

func (p *Page) Width() float64  { return p.MediaBox.Width() }
func (p *Page) Height() float64 { return p.MediaBox.Height() }

// Document is a parsed PDF: the full object table plus the page list.
type Document struct {
	Objects map[raw.Ref]raw.Object
	Trailer *raw.Dict
	Version string

	pages  []*Page
	maxNum int
}

func (d *Document) PageCount() int { return len(d.pages) }
func (d *Document) Pages() []*Page { return d.pages }

// MaxObjNum returns the highest object number in use; the writer
// allocates new objects above it.
func (d *Document) MaxObjNum() int { return d.maxNum }

// Resolve follows an indirect reference to its object. Non-references
// are returned unchanged; dangling references resolve to null.
func (d *Document) Resolve(o raw.Object) raw.Object {
	for i := 0; i < maxParseDepth; i++ {
		ind, ok := o.(raw.Indirect)
		if !ok {
			return o
		}
		next, ok := d.Objects[ind.R]
		if !ok {
			// generation mismatches are common in scanned files
			next, ok = d.lookupAnyGen(ind.R.Num)
			if !ok {
				return raw.Null{}
			}
		}
		o = next
	}
	return raw.Null{}
}

func (d *Document) lookupAnyGen(num int) (raw.Object, bool) {
	for ref, obj := range d.Objects {
		if ref.Num == num {
			return obj, true
		}
	}
	return nil, false
}

// ResolveDict resolves o and returns it as a dictionary (a stream's
// dictionary qualifies).
func (d *Document) ResolveDict(o raw.Object) (*raw.Dict, bool) {
	switch v := d.Resolve(o).(type) {
	case *raw.Dict:
		return v, true
	case *raw.Stream:
		return v.Dict, true
	}
	return nil, false
}

// Open parses a complete PDF from memory.
func Open(data []byte) (*Document, error) {
	version, err := headerVersion(data)
	if err != nil {
		return nil, err
	}

	doc := &Document{
		Objects: make(map[raw.Ref]raw.Object),
		Version: version,
	}

	offsets, trailer, xrefErr := resolveXRef(data)
	if xrefErr == nil {
		for ref, off := range offsets {
			obj, err := parseIndirectAt(data, off, ref, doc)
			if err != nil {
				xrefErr = err
				break
			}
			if obj != nil {
				doc.Objects[ref] = obj
			}
		}
	}
	if xrefErr != nil {
		// Cross-reference streams and corrupt tables land here: rebuild
		// the object table by scanning for "n g obj" headers.
		doc.Objects = make(map[raw.Ref]raw.Object)
		trailer = nil
		if err := scanObjects(data, doc); err != nil {
			return nil, err
		}
		trailer = scanTrailer(data, doc)
	}
	if trailer == nil {
		return nil, malformed("no trailer dictionary found")
	}
	if _, encrypted := trailer.Get("Encrypt"); encrypted {
		return nil, malformed("encrypted documents are not supported")
	}
	doc.Trailer = trailer

	if err := expandObjectStreams(doc); err != nil {
		return nil, err
	}
	for ref := range doc.Objects {
		if ref.Num > doc.maxNum {
			doc.maxNum = ref.Num
		}
	}

	if err := collectPages(doc); err != nil {
		return nil, err
	}
	if len(doc.pages) == 0 {
		return nil, malformed("document has no pages")
	}
	return doc, nil
}

func headerVersion(data []byte) (string, error) {
	// The header is allowed to sit after a short preamble (some
	// producers emit junk before it).
	limit := len(data)
	if limit > 1024 {
		limit = 1024
	}
	idx := bytes.Index(data[:limit], []byte("%PDF-"))
	if idx < 0 {
		return "", malformed("missing %%PDF header")
	}
	rest := data[idx+5:]
	end := 0
	for end < len(rest) && end < 8 && !isWhitespace(rest[end]) {
		end++
	}
	v := string(rest[:end])
	if v == "" {
		return "", malformed("empty version in header")
	}
	return v, nil
}

// resolveXRef walks startxref plus the /Prev chain of classic tables.
// Entries from newer sections win.
func resolveXRef(data []byte) (map[raw.Ref]int, *raw.Dict, error) {
	start, err := startXRefOffset(data)
	if err != nil {
		return nil, nil, err
	}
	offsets := make(map[raw.Ref]int)
	var trailer *raw.Dict
	seen := make(map[int]bool)
	for off := start; off >= 0 && !seen[off]; {
		seen[off] = true
		sectionOffsets, sectionTrailer, err := parseXRefSection(data, off)
		if err != nil {
			return nil, nil, err
		}
		for ref, o := range sectionOffsets {
			if _, exists := offsets[ref]; !exists {
				offsets[ref] = o
			}
		}
		if trailer == nil {
			trailer = sectionTrailer
		}
		off = -1
		if prev, ok := sectionTrailer.Int("Prev"); ok {
			off = int(prev)
		}
	}
	if trailer == nil {
		return nil, nil, fmt.Errorf("xref chain yielded no trailer")
	}
	return offsets, trailer, nil
}

func startXRefOffset(data []byte) (int, error) {
	tail := data
	if len(tail) > 2048 {
		tail = tail[len(tail)-2048:]
	}
	idx := bytes.LastIndex(tail, []byte("startxref"))
	if idx < 0 {
		return 0, fmt.Errorf("startxref not found")
	}
	lx := &lexer{data: tail, pos: idx + len("startxref")}
	n, err := lx.number()
	if err != nil || !n.IsInt || n.I < 0 || n.I >= int64(len(data)) {
		return 0, fmt.Errorf("invalid startxref offset")
	}
	return int(n.I), nil
}

func parseXRefSection(data []byte, off int) (map[raw.Ref]int, *raw.Dict, error) {
	lx := &lexer{data: data, pos: off}
	if err := lx.expect("xref"); err != nil {
		return nil, nil, err // likely an xref stream
	}
	offsets := make(map[raw.Ref]int)
	for {
		lx.skipWS()
		if lx.eof() {
			return nil, nil, fmt.Errorf("xref section without trailer")
		}
		if lx.peek() < '0' || lx.peek() > '9' {
			break
		}
		first, err := lx.number()
		if err != nil {
			return nil, nil, err
		}
		count, err := lx.number()
		if err != nil {
			return nil, nil, err
		}
		for i := int64(0); i < count.I; i++ {
			lx.skipWS()
			if lx.pos+18 > len(lx.data) {
				return nil, nil, fmt.Errorf("truncated xref entry")
			}
			entry := string(lx.data[lx.pos : lx.pos+18])
			lx.pos += 18
			entOff, err1 := strconv.Atoi(strings.TrimSpace(entry[0:10]))
			gen, err2 := strconv.Atoi(strings.TrimSpace(entry[11:16]))
			if err1 != nil || err2 != nil {
				return nil, nil, fmt.Errorf("bad xref entry %q", entry)
			}
			kind := entry[17]
			if kind == 'f' || entOff == 0 {
				continue
			}
			num := int(first.I + i)
			offsets[raw.Ref{Num: num, Gen: gen}] = entOff
		}
	}
	if err := lx.expect("trailer"); err != nil {
		return nil, nil, err
	}
	obj, err := lx.value(0)
	if err != nil {
		return nil, nil, err
	}
	trailer, ok := obj.(*raw.Dict)
	if !ok {
		return nil, nil, fmt.Errorf("trailer is not a dictionary")
	}
	return offsets, trailer, nil
}

// parseIndirectAt parses "num gen obj ... endobj" at the given offset.
// The document is consulted to resolve indirect /Length values; nil is
// returned when the header does not match the expected reference.
func parseIndirectAt(data []byte, off int, want raw.Ref, doc *Document) (raw.Object, error) {
	if off < 0 || off >= len(data) {
		return nil, fmt.Errorf("object offset %d out of range", off)
	}
	lx := &lexer{data: data, pos: off}
	num, err := lx.number()
	if err != nil {
		return nil, err
	}
	if _, err := lx.number(); err != nil { // generation
		return nil, err
	}
	if err := lx.expect("obj"); err != nil {
		return nil, err
	}
	if want.Num != 0 && int(num.I) != want.Num {
		return nil, fmt.Errorf("object header %d does not match xref entry %d", num.I, want.Num)
	}
	obj, err := lx.value(0)
	if err != nil {
		return nil, err
	}
	dict, isDict := obj.(*raw.Dict)
	if !isDict {
		return obj, nil
	}
	save := lx.pos
	if kw := lx.keyword(); kw != "stream" {
		lx.pos = save
		return dict, nil
	}
	// stream keyword is followed by CRLF or LF
	if lx.peek() == '\r' {
		lx.pos++
	}
	if lx.peek() == '\n' {
		lx.pos++
	}
	dataStart := lx.pos
	length := -1
	if lv, ok := dict.Get("Length"); ok {
		switch v := lv.(type) {
		case raw.Number:
			length = int(v.Int())
		case raw.Indirect:
			if n, ok := doc.Objects[v.R].(raw.Number); ok {
				length = int(n.Int())
			}
		}
	}
	if length >= 0 && dataStart+length <= len(data) {
		tail := &lexer{data: data, pos: dataStart + length}
		if kw := tail.keyword(); kw == "endstream" {
			return raw.NewStream(dict, data[dataStart:dataStart+length]), nil
		}
	}
	// Length missing, indirect and unresolved, or wrong: find endstream.
	rel := bytes.Index(data[dataStart:], []byte("endstream"))
	if rel < 0 {
		return nil, fmt.Errorf("stream without endstream")
	}
	end := dataStart + rel
	for end > dataStart && (data[end-1] == '\n' || data[end-1] == '\r') {
		end--
	}
	return raw.NewStream(dict, data[dataStart:end]), nil
}

// scanObjects rebuilds the object table by scanning for object headers.
// Later definitions of the same object number win, matching how
// incremental updates append.
func scanObjects(data []byte, doc *Document) error {
	pos := 0
	found := 0
	for pos < len(data) {
		rel := bytes.Index(data[pos:], []byte(" obj"))
		if rel < 0 {
			break
		}
		mark := pos + rel
		head := headerStart(data, mark)
		if head < 0 {
			pos = mark + 4
			continue
		}
		obj, ref, err := parseScannedObject(data, head, doc)
		if err == nil && obj != nil {
			doc.Objects[ref] = obj
			found++
		}
		pos = mark + 4
	}
	if found == 0 {
		return malformed("no indirect objects found")
	}
	return nil
}

// headerStart walks backwards from " obj" over "num gen".
func headerStart(data []byte, mark int) int {
	i := mark
	digits := func() bool {
		start := i
		for i > 0 && data[i-1] >= '0' && data[i-1] <= '9' {
			i--
		}
		return i < start
	}
	if !digits() { // gen
		return -1
	}
	if i == 0 || data[i-1] != ' ' {
		return -1
	}
	i--
	if !digits() { // num
		return -1
	}
	if i > 0 && !isWhitespace(data[i-1]) {
		return -1
	}
	return i
}

func parseScannedObject(data []byte, off int, doc *Document) (raw.Object, raw.Ref, error) {
	lx := &lexer{data: data, pos: off}
	num, err := lx.number()
	if err != nil {
		return nil, raw.Ref{}, err
	}
	gen, err := lx.number()
	if err != nil {
		return nil, raw.Ref{}, err
	}
	ref := raw.Ref{Num: int(num.I), Gen: int(gen.I)}
	obj, err := parseIndirectAt(data, off, ref, doc)
	return obj, ref, err
}

// scanTrailer finds document-level keys for scanned files: the last
// "trailer" dictionary if present, otherwise the dictionary of a
// cross-reference stream (/Type /XRef carries /Root and /Info too).
func scanTrailer(data []byte, doc *Document) *raw.Dict {
	idx := bytes.LastIndex(data, []byte("trailer"))
	for idx >= 0 {
		lx := &lexer{data: data, pos: idx + len("trailer")}
		if obj, err := lx.value(0); err == nil {
			if d, ok := obj.(*raw.Dict); ok {
				if _, hasRoot := d.Get("Root"); hasRoot {
					return d
				}
			}
		}
		idx = bytes.LastIndex(data[:idx], []byte("trailer"))
	}
	for _, obj := range doc.Objects {
		if s, ok := obj.(*raw.Stream); ok && s.Dict.Name("Type") == "XRef" {
			if _, hasRoot := s.Dict.Get("Root"); hasRoot {
				return s.Dict
			}
		}
	}
	return nil
}

// expandObjectStreams parses objects stored inside /Type /ObjStm
// streams. Objects already present from the xref are kept.
func expandObjectStreams(doc *Document) error {
	for _, obj := range doc.Objects {
		stm, ok := obj.(*raw.Stream)
		if !ok || stm.Dict.Name("Type") != "ObjStm" {
			continue
		}
		decoded, err := decodeFlate(stm)
		if err != nil {
			continue // an unreadable container only hides its own objects
		}
		n, _ := stm.Dict.Int("N")
		first, _ := stm.Dict.Int("First")
		if n <= 0 || first <= 0 || first > int64(len(decoded)) {
			continue
		}
		head := &lexer{data: decoded[:first]}
		for i := int64(0); i < n; i++ {
			numTok, err := head.number()
			if err != nil {
				break
			}
			offTok, err := head.number()
			if err != nil {
				break
			}
			ref := raw.Ref{Num: int(numTok.I)}
			if _, exists := doc.Objects[ref]; exists {
				continue
			}
			pos := first + offTok.I
			if pos < 0 || pos >= int64(len(decoded)) {
				continue
			}
			body := &lexer{data: decoded, pos: int(pos)}
			val, err := body.value(0)
			if err != nil {
				continue
			}
			doc.Objects[ref] = val
		}
	}
	return nil
}

func decodeFlate(stm *raw.Stream) ([]byte, error) {
	filter := stm.Dict.Name("Filter")
	if filter == "" {
		return stm.Data, nil
	}
	if filter != "FlateDecode" {
		return nil, fmt.Errorf("unsupported filter %s", filter)
	}
	zr, err := zlib.NewReader(bytes.NewReader(stm.Data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	out, err := io.ReadAll(io.LimitReader(zr, maxDecodedStream))
	if err != nil {
		return nil, err
	}
	return out, nil
}

const maxDecodedStream = 64 << 20

// collectPages walks the catalog's page tree depth-first, applying
// inherited MediaBox attributes.
func collectPages(doc *Document) error {
	rootObj, ok := doc.Trailer.Get("Root")
	if !ok {
		return malformed("trailer has no /Root")
	}
	catalog, ok := doc.ResolveDict(rootObj)
	if !ok {
		return malformed("catalog is not a dictionary")
	}
	pagesObj, ok := catalog.Get("Pages")
	if !ok {
		return malformed("catalog has no /Pages")
	}
	ref, _ := pagesObj.(raw.Indirect)
	defaultBox := raw.Rect{URX: 612, URY: 792} // US Letter
	return doc.walkPageTree(pagesObj, ref.R, defaultBox, nil, make(map[raw.Ref]bool))
}

func (d *Document) walkPageTree(node raw.Object, ref raw.Ref, inherited raw.Rect, inheritedRes *raw.Dict, visited map[raw.Ref]bool) error {
	// direct kids carry the zero ref, which never cycles
	if ref.Num != 0 {
		if visited[ref] {
			return malformed("page tree cycle at object %d", ref.Num)
		}
		visited[ref] = true
	}
	dict, ok := d.ResolveDict(node)
	if !ok {
		return malformed("page tree node %d is not a dictionary", ref.Num)
	}
	box := inherited
	if mb, ok := dict.Get("MediaBox"); ok {
		if arr, ok := d.Resolve(mb).(*raw.Array); ok {
			if r, ok := raw.RectFromArray(arr); ok {
				box = r
			}
		}
	}
	res := inheritedRes
	if ro, ok := dict.Get("Resources"); ok {
		if rd, ok := d.ResolveDict(ro); ok {
			res = rd
		}
	}
	switch dict.Name("Type") {
	case "Pages", "": // some producers omit /Type on interior nodes
		kidsObj, ok := dict.Get("Kids")
		if !ok {
			if dict.Name("Type") == "" {
				// neither page nor tree node
				return nil
			}
			return malformed("pages node %d has no /Kids", ref.Num)
		}
		kids, ok := d.Resolve(kidsObj).(*raw.Array)
		if !ok {
			return malformed("pages node %d /Kids is not an array", ref.Num)
		}
		for _, kid := range kids.Items {
			kidRef := raw.Ref{}
			if ind, ok := kid.(raw.Indirect); ok {
				kidRef = ind.R
			}
			if err := d.walkPageTree(kid, kidRef, box, res, visited); err != nil {
				return err
			}
		}
	case "Page":
		if ref.Num == 0 {
			// a page dict written directly inside /Kids gets its own
			// object number so rewrites can reference it
			d.maxNum++
			ref = raw.Ref{Num: d.maxNum}
			d.Objects[ref] = dict
		}
		d.pages = append(d.pages, &Page{
			Index:     len(d.pages) + 1,
			Ref:       ref,
			Dict:      dict,
			MediaBox:  box,
			Resources: res,
		})
	}
	return nil
}
