package trigger

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNewRejectsEmpty(t *testing.T) {
	tests := []struct {
		name       string
		categories map[string][]string
	}{
		{"nil map", nil},
		{"empty map", map[string][]string{}},
		{"empty category", map[string][]string{"a": {"x"}, "b": {}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.categories); err != ErrEmptyCorpus {
				t.Errorf("New() error = %v, want ErrEmptyCorpus", err)
			}
		})
	}
}

func TestNewCopiesInput(t *testing.T) {
	entries := []string{"one", "two"}
	c, err := New(map[string][]string{"cat": entries})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	entries[0] = "mutated"
	if got := c.Category("cat")[0]; got != "one" {
		t.Errorf("corpus shares caller's slice: entry = %q", got)
	}
}

func TestDefaultCorpus(t *testing.T) {
	c := Default()
	if c.Len() == 0 {
		t.Fatal("default corpus is empty")
	}
	if c.Len() != len(c.AllEntries()) {
		t.Errorf("Len() = %d, AllEntries has %d", c.Len(), len(c.AllEntries()))
	}
	for _, name := range []string{
		CategoryExtraction, CategorySafety, CategoryModeration,
		CategoryModels, CategoryCompliance, CategoryLegal,
		CategorySecurity, CategoryPrivacy, CategoryIntegrity,
		CategoryDirectives, CategoryRepetition,
	} {
		if len(c.Category(name)) == 0 {
			t.Errorf("category %q is empty", name)
		}
	}
}

func TestDefaultFlatOrderDeterministic(t *testing.T) {
	a, b := Default(), Default()
	if diff := cmp.Diff(a.AllEntries(), b.AllEntries()); diff != "" {
		t.Errorf("flat order differs between constructions (-first +second):\n%s", diff)
	}
}

func TestSample(t *testing.T) {
	c := Default()

	t.Run("distinct without replacement", func(t *testing.T) {
		rng := rand.New(rand.NewSource(1))
		got := c.Sample(10, rng)
		if len(got) != 10 {
			t.Fatalf("Sample(10) returned %d entries", len(got))
		}
		seen := make(map[string]bool, len(got))
		for _, s := range got {
			if seen[s] {
				t.Errorf("duplicate entry %q", s)
			}
			seen[s] = true
		}
	})

	t.Run("clamped to corpus size", func(t *testing.T) {
		rng := rand.New(rand.NewSource(1))
		got := c.Sample(c.Len()+50, rng)
		if len(got) != c.Len() {
			t.Errorf("Sample(oversized) returned %d entries, want %d", len(got), c.Len())
		}
	})

	t.Run("non-positive n", func(t *testing.T) {
		rng := rand.New(rand.NewSource(1))
		if got := c.Sample(0, rng); got != nil {
			t.Errorf("Sample(0) = %v, want nil", got)
		}
	})

	t.Run("deterministic under fixed seed", func(t *testing.T) {
		a := c.Sample(15, rand.New(rand.NewSource(7)))
		b := c.Sample(15, rand.New(rand.NewSource(7)))
		if diff := cmp.Diff(a, b); diff != "" {
			t.Errorf("same seed, different samples (-a +b):\n%s", diff)
		}
	})
}

func TestPickFrom(t *testing.T) {
	c := Default()
	rng := rand.New(rand.NewSource(3))

	got := c.PickFrom(CategoryLegal, rng)
	found := false
	for _, s := range c.Category(CategoryLegal) {
		if s == got {
			found = true
		}
	}
	if !found {
		t.Errorf("PickFrom(legal) = %q, not in the legal category", got)
	}

	// unknown category falls back to the whole corpus
	if got := c.PickFrom("no-such-category", rng); got == "" {
		t.Error("PickFrom(unknown) returned empty string")
	}
}

func TestMegaWarningsAndMicroFill(t *testing.T) {
	if len(MegaWarnings()) == 0 {
		t.Error("MegaWarnings() is empty")
	}
	for i, s := range MicroFill() {
		if len(s) < 100 {
			t.Errorf("MicroFill()[%d] suspiciously short: %d bytes", i, len(s))
		}
	}
}
