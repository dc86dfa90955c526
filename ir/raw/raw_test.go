package raw

import "testing"

func TestNumber(t *testing.T) {
	if got := Int(7).Float(); got != 7.0 {
		t.Errorf("Int(7).Float() = %v", got)
	}
	if got := Real(2.5).Int(); got != 2 {
		t.Errorf("Real(2.5).Int() = %v", got)
	}
	if !Int(7).IsInt || Real(2.5).IsInt {
		t.Error("IsInt flags wrong")
	}
}

func TestDict(t *testing.T) {
	d := NewDict()
	d.Set("Type", Name("Page"))
	d.Set("Count", Int(3))

	if got := d.Name("Type"); got != "Page" {
		t.Errorf("Name(Type) = %q", got)
	}
	if got := d.Name("Count"); got != "" {
		t.Errorf("Name(Count) = %q, want empty for non-name", got)
	}
	if n, ok := d.Int("Count"); !ok || n != 3 {
		t.Errorf("Int(Count) = %d, %v", n, ok)
	}
	if _, ok := d.Int("Type"); ok {
		t.Error("Int(Type) succeeded on a name")
	}

	d.Delete("Count")
	if _, ok := d.Get("Count"); ok {
		t.Error("Delete left the key behind")
	}
	if d.Len() != 1 {
		t.Errorf("Len() = %d, want 1", d.Len())
	}
}

func TestDictSetOnZeroValue(t *testing.T) {
	var d Dict
	d.Set("Key", Bool(true))
	if _, ok := d.Get("Key"); !ok {
		t.Error("Set on zero-value dict lost the entry")
	}
}

func TestDictClone(t *testing.T) {
	d := NewDict()
	d.Set("A", Int(1))
	c := d.Clone()
	c.Set("B", Int(2))
	c.Set("A", Int(9))

	if _, ok := d.Get("B"); ok {
		t.Error("clone key leaked into the original")
	}
	if n, _ := d.Int("A"); n != 1 {
		t.Errorf("original A = %d after clone mutation", n)
	}
}

func TestArray(t *testing.T) {
	a := NewArray(Int(1))
	a.Append(Int(2), Int(3))
	if a.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", a.Len())
	}
	if v, ok := a.Get(2); !ok || v != Int(3) {
		t.Errorf("Get(2) = %v, %v", v, ok)
	}
	if _, ok := a.Get(3); ok {
		t.Error("Get(3) succeeded out of range")
	}
	if _, ok := a.Get(-1); ok {
		t.Error("Get(-1) succeeded out of range")
	}
}

func TestRectRoundTrip(t *testing.T) {
	r := Rect{LLX: 0, LLY: 0, URX: 612, URY: 792}
	got, ok := RectFromArray(ArrayFromRect(r))
	if !ok || got != r {
		t.Errorf("round trip = %v, %v", got, ok)
	}
	if r.Width() != 612 || r.Height() != 792 {
		t.Errorf("Width/Height = %v/%v", r.Width(), r.Height())
	}

	if _, ok := RectFromArray(nil); ok {
		t.Error("RectFromArray(nil) succeeded")
	}
	if _, ok := RectFromArray(NewArray(Int(1), Int(2))); ok {
		t.Error("RectFromArray accepted a short array")
	}
	if _, ok := RectFromArray(NewArray(Int(1), Int(2), Name("x"), Int(4))); ok {
		t.Error("RectFromArray accepted a non-numeric entry")
	}
}

func TestRefString(t *testing.T) {
	if got := (Ref{Num: 12, Gen: 0}).String(); got != "12 0 R" {
		t.Errorf("String() = %q", got)
	}
}
