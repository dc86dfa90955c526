// Package raw defines the low-level PDF object model shared by the
// reader and writer.
package raw

import "fmt"

// Ref uniquely identifies an indirect PDF object.
type Ref struct {
	Num int
	Gen int
}

func (r Ref) String() string { return fmt.Sprintf("%d %d R", r.Num, r.Gen) }

// Object is implemented by every raw PDF value.
type Object interface {
	pdfObject()
}

// Name is a PDF name object without the leading slash.
type Name string

// Number is a PDF numeric value. Integers keep IsInt set so the writer
// can round-trip them without a decimal point.
type Number struct {
	I     int64
	F     float64
	IsInt bool
}

func (n Number) Float() float64 {
	if n.IsInt {
		return float64(n.I)
	}
	return n.F
}

func (n Number) Int() int64 {
	if n.IsInt {
		return n.I
	}
	return int64(n.F)
}

// Bool is a PDF boolean.
type Bool bool

// Null is the PDF null object.
type Null struct{}

// String is a PDF string. Hex records which written form it came from.
type String struct {
	Data []byte
	Hex  bool
}

// Array is a PDF array.
type Array struct {
	Items []Object
}

func (a *Array) Len() int { return len(a.Items) }

func (a *Array) Get(i int) (Object, bool) {
	if i < 0 || i >= len(a.Items) {
		return nil, false
	}
	return a.Items[i], true
}

func (a *Array) Append(objs ...Object) { a.Items = append(a.Items, objs...) }

// Dict is a PDF dictionary keyed by name (no leading slash).
type Dict struct {
	KV map[string]Object
}

func (d *Dict) Get(key string) (Object, bool) {
	o, ok := d.KV[key]
	return o, ok
}

func (d *Dict) Set(key string, v Object) {
	if d.KV == nil {
		d.KV = make(map[string]Object)
	}
	d.KV[key] = v
}

func (d *Dict) Delete(key string) { delete(d.KV, key) }

func (d *Dict) Len() int { return len(d.KV) }

// Name returns the value of a name entry, or "".
func (d *Dict) Name(key string) string {
	if v, ok := d.KV[key]; ok {
		if n, ok := v.(Name); ok {
			return string(n)
		}
	}
	return ""
}

// Int returns the value of an integer entry.
func (d *Dict) Int(key string) (int64, bool) {
	if v, ok := d.KV[key]; ok {
		if n, ok := v.(Number); ok {
			return n.Int(), true
		}
	}
	return 0, false
}

// Clone returns a shallow copy of the dictionary. Values are shared;
// the key set is independent.
func (d *Dict) Clone() *Dict {
	out := NewDict()
	for k, v := range d.KV {
		out.KV[k] = v
	}
	return out
}

// Stream is a PDF stream: dictionary plus raw (still encoded) data.
type Stream struct {
	Dict *Dict
	Data []byte
}

// Indirect wraps a reference to an indirect object.
type Indirect struct {
	R Ref
}

func (Name) pdfObject()     {}
func (Number) pdfObject()   {}
func (Bool) pdfObject()     {}
func (Null) pdfObject()     {}
func (String) pdfObject()   {}
func (*Array) pdfObject()   {}
func (*Dict) pdfObject()    {}
func (*Stream) pdfObject()  {}
func (Indirect) pdfObject() {}

// Constructors keep call sites terse.

func Int(i int64) Number    { return Number{I: i, IsInt: true} }
func Real(f float64) Number { return Number{F: f} }
func Str(b []byte) String   { return String{Data: b} }
func NewDict() *Dict        { return &Dict{KV: make(map[string]Object)} }

func NewArray(items ...Object) *Array {
	return &Array{Items: items}
}

func NewStream(d *Dict, data []byte) *Stream { return &Stream{Dict: d, Data: data} }
func RefTo(num, gen int) Indirect            { return Indirect{R: Ref{Num: num, Gen: gen}} }

// Rect is a page rectangle in point units, lower-left to upper-right.
type Rect struct {
	LLX, LLY, URX, URY float64
}

func (r Rect) Width() float64  { return r.URX - r.LLX }
func (r Rect) Height() float64 { return r.URY - r.LLY }

// RectFromArray converts a 4-element PDF array into a Rect.
func RectFromArray(a *Array) (Rect, bool) {
	if a == nil || a.Len() != 4 {
		return Rect{}, false
	}
	vals := make([]float64, 4)
	for i := 0; i < 4; i++ {
		n, ok := a.Items[i].(Number)
		if !ok {
			return Rect{}, false
		}
		vals[i] = n.Float()
	}
	return Rect{LLX: vals[0], LLY: vals[1], URX: vals[2], URY: vals[3]}, true
}

// ArrayFromRect is the inverse of RectFromArray.
func ArrayFromRect(r Rect) *Array {
	return NewArray(Real(r.LLX), Real(r.LLY), Real(r.URX), Real(r.URY))
}
