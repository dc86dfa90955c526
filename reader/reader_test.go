package reader

import (
	"errors"
	"testing"

	"pdfarmor/internal/pdftest"
	"pdfarmor/ir/raw"
)

func TestOpen(t *testing.T) {
	doc, err := Open(pdftest.Doc(3))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if doc.Version != "1.4" {
		t.Errorf("Version = %q, want 1.4", doc.Version)
	}
	if got := doc.PageCount(); got != 3 {
		t.Fatalf("PageCount() = %d, want 3", got)
	}
	for i, p := range doc.Pages() {
		if p.Index != i+1 {
			t.Errorf("page %d Index = %d", i, p.Index)
		}
		if p.Width() != 612 || p.Height() != 792 {
			t.Errorf("page %d geometry = %vx%v, want 612x792", i, p.Width(), p.Height())
		}
		if p.Resources == nil {
			t.Errorf("page %d has no inherited resources", i)
		}
	}
	if doc.MaxObjNum() < 9 {
		t.Errorf("MaxObjNum() = %d, want at least 9", doc.MaxObjNum())
	}
}

func TestOpenScanFallback(t *testing.T) {
	doc, err := Open(pdftest.BreakXref(pdftest.Doc(2)))
	if err != nil {
		t.Fatalf("Open() with broken xref error = %v", err)
	}
	if got := doc.PageCount(); got != 2 {
		t.Errorf("PageCount() = %d, want 2", got)
	}
}

func TestOpenMalformed(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"no header", []byte("this is not a pdf")},
		{"header only", []byte("%PDF-1.4\n")},
		{"truncated body", []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(tt.data)
			var malformedErr *MalformedDocumentError
			if !errors.As(err, &malformedErr) {
				t.Errorf("Open() error = %v, want MalformedDocumentError", err)
			}
		})
	}
}

func TestOpenEncryptedRejected(t *testing.T) {
	_, err := Open(pdftest.Encrypted(pdftest.Doc(1)))
	var malformedErr *MalformedDocumentError
	if !errors.As(err, &malformedErr) {
		t.Fatalf("Open(encrypted) error = %v, want MalformedDocumentError", err)
	}
}

func TestOpenZeroMediaBox(t *testing.T) {
	doc, err := Open(pdftest.ZeroMediaBox(pdftest.Doc(1)))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	p := doc.Pages()[0]
	if p.Width() != 0 || p.Height() != 0 {
		t.Errorf("geometry = %vx%v, want 0x0", p.Width(), p.Height())
	}
}

func TestOpenDirectPageKids(t *testing.T) {
	doc, err := Open(pdftest.DocDirectPages())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if got := doc.PageCount(); got != 3 {
		t.Fatalf("PageCount() = %d, want 3", got)
	}
	seen := make(map[raw.Ref]bool)
	for _, p := range doc.Pages() {
		if p.Ref.Num == 0 {
			t.Errorf("page %d carries the zero object number", p.Index)
		}
		if seen[p.Ref] {
			t.Errorf("page %d reuses ref %v", p.Index, p.Ref)
		}
		seen[p.Ref] = true
		if p.Width() != 612 || p.Height() != 792 {
			t.Errorf("page %d geometry = %vx%v, want inherited 612x792", p.Index, p.Width(), p.Height())
		}
	}
	// pages written inline in /Kids get fresh object numbers past the
	// highest one in the file
	if got := doc.MaxObjNum(); got < 7 {
		t.Errorf("MaxObjNum() = %d, want at least 7", got)
	}
}

func TestResolve(t *testing.T) {
	doc, err := Open(pdftest.Doc(1))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	root, _ := doc.Trailer.Get("Root")
	catalog, ok := doc.ResolveDict(root)
	if !ok {
		t.Fatal("catalog did not resolve to a dictionary")
	}
	if catalog.Name("Type") != "Catalog" {
		t.Errorf("catalog /Type = %q", catalog.Name("Type"))
	}

	// dangling references resolve to null
	got := doc.Resolve(raw.Indirect{R: raw.Ref{Num: 9999}})
	if _, isNull := got.(raw.Null); !isNull {
		t.Errorf("dangling reference resolved to %T, want Null", got)
	}

	// non-references pass through
	n := raw.Int(7)
	if doc.Resolve(n) != n {
		t.Error("direct object did not pass through Resolve")
	}
}

func TestPageContentReadable(t *testing.T) {
	doc, err := Open(pdftest.Doc(2))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	for _, p := range doc.Pages() {
		contents, ok := p.Dict.Get("Contents")
		if !ok {
			t.Fatalf("page %d has no /Contents", p.Index)
		}
		stm, ok := doc.Resolve(contents).(*raw.Stream)
		if !ok {
			t.Fatalf("page %d /Contents did not resolve to a stream", p.Index)
		}
		if len(stm.Data) == 0 {
			t.Errorf("page %d content stream is empty", p.Index)
		}
	}
}

func TestHeaderVersionAfterPreamble(t *testing.T) {
	doc := append([]byte("\xef\xbb\xbfjunk\n"), pdftest.Doc(1)...)
	got, err := Open(doc)
	if err != nil {
		t.Fatalf("Open() with preamble error = %v", err)
	}
	if got.Version != "1.4" {
		t.Errorf("Version = %q, want 1.4", got.Version)
	}
}
