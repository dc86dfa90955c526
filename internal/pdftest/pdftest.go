// Package pdftest builds small, well-formed PDF documents for tests.
package pdftest

import (
	"bytes"
	"fmt"
	"regexp"
)

type object struct {
	num, gen int
	body     string
}

// assemble writes the objects in order followed by a classic xref table
// with computed offsets and a trailer rooted at object 1.
func assemble(objects []object) []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make(map[int]int, len(objects))
	gens := make(map[int]int, len(objects))
	maxNum := 0
	for _, o := range objects {
		offsets[o.num] = buf.Len()
		gens[o.num] = o.gen
		fmt.Fprintf(&buf, "%d %d obj\n%s\nendobj\n", o.num, o.gen, o.body)
		if o.num > maxNum {
			maxNum = o.num
		}
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", maxNum+1)
	buf.WriteString("0000000000 65535 f \n")
	for num := 1; num <= maxNum; num++ {
		fmt.Fprintf(&buf, "%010d %05d n \n", offsets[num], gens[num])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", maxNum+1, xref)
	return buf.Bytes()
}

func pageContent(page int) string {
	return fmt.Sprintf("BT /F1 12 Tf 72 720 Td (Body of page %d) Tj ET", page)
}

// Doc returns a classic-xref document with n pages. Each page draws a
// one-line body; MediaBox and the font resources are inherited from the
// page tree node. n below 1 is treated as 1.
func Doc(n int) []byte {
	if n < 1 {
		n = 1
	}
	var kids bytes.Buffer
	for i := 0; i < n; i++ {
		if i > 0 {
			kids.WriteByte(' ')
		}
		fmt.Fprintf(&kids, "%d 0 R", 4+2*i)
	}

	objects := []object{
		{1, 0, "<< /Type /Catalog /Pages 2 0 R >>"},
		{2, 0, fmt.Sprintf("<< /Type /Pages /Count %d /Kids [%s] /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> >>", n, kids.String())},
		{3, 0, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>"},
	}
	for i := 0; i < n; i++ {
		content := pageContent(i + 1)
		objects = append(objects,
			object{4 + 2*i, 0, fmt.Sprintf("<< /Type /Page /Parent 2 0 R /Contents %d 0 R >>", 5+2*i)},
			object{5 + 2*i, 0, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content)},
		)
	}
	return assemble(objects)
}

// DocFontGen is Doc(1) with the font object carrying a nonzero
// generation number, referenced and cross-referenced accordingly.
func DocFontGen(gen int) []byte {
	content := pageContent(1)
	return assemble([]object{
		{1, 0, "<< /Type /Catalog /Pages 2 0 R >>"},
		{2, 0, fmt.Sprintf("<< /Type /Pages /Count 1 /Kids [4 0 R] /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 %d R >> >> >>", gen)},
		{3, gen, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>"},
		{4, 0, "<< /Type /Page /Parent 2 0 R /Contents 5 0 R >>"},
		{5, 0, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content)},
	})
}

// DocDirectPages returns a document whose page tree mixes an indirect
// page with two page dictionaries written directly inside /Kids.
func DocDirectPages() []byte {
	content := pageContent(1)
	return assemble([]object{
		{1, 0, "<< /Type /Catalog /Pages 2 0 R >>"},
		{2, 0, "<< /Type /Pages /Count 3 /Kids [4 0 R << /Type /Page >> << /Type /Page >>] /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> >>"},
		{3, 0, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>"},
		{4, 0, "<< /Type /Page /Parent 2 0 R /Contents 5 0 R >>"},
		{5, 0, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content)},
	})
}

var startxrefPat = regexp.MustCompile(`startxref\n\d+`)

// BreakXref points startxref at garbage so readers must fall back to a
// full object scan.
func BreakXref(doc []byte) []byte {
	return startxrefPat.ReplaceAll(doc, []byte("startxref\n4"))
}

// Encrypted marks the trailer with an /Encrypt entry.
func Encrypted(doc []byte) []byte {
	return bytes.Replace(doc, []byte("/Root 1 0 R"), []byte("/Root 1 0 R /Encrypt 99 0 R"), 1)
}

// ZeroMediaBox collapses the page tree MediaBox to an empty rectangle.
// The edit shifts later byte offsets, which also exercises the scan
// fallback.
func ZeroMediaBox(doc []byte) []byte {
	return bytes.Replace(doc, []byte("[0 0 612 792]"), []byte("[0 0 0 0]"), 1)
}
