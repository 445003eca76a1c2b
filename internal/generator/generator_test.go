package generator

import (
	"reflect"
	"strings"
	"testing"
	"unicode"
)

func TestGenerateIsDeterministicPerSeed(t *testing.T) {
	words := []string{"alpha", "beta", "gamma", "delta", "epsilon"}
	a := New(7).Generate(words, 20, Options{})
	b := New(7).Generate(words, 20, Options{})
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("expected identical sequences, got %v and %v", a, b)
	}
	if len(a) != 20 {
		t.Fatalf("expected 20 words, got %d", len(a))
	}
}

func TestGenerateEmptyInputs(t *testing.T) {
	g := New(1)
	if got := g.Generate(nil, 5, Options{}); got != nil {
		t.Fatalf("expected nil for empty word list, got %v", got)
	}
	if got := g.Generate([]string{"a"}, 0, Options{}); got != nil {
		t.Fatalf("expected nil for zero count, got %v", got)
	}
}

func TestGenerateAlwaysCapsAndPunct(t *testing.T) {
	got := New(3).Generate([]string{"word"}, 4, Options{CapsPct: 1, PunctPct: 1, PunctSet: []rune{'!'}})
	for _, w := range got {
		if !unicode.IsUpper([]rune(w)[0]) {
			t.Fatalf("expected capitalized word, got %q", w)
		}
		if !strings.HasSuffix(w, "!") {
			t.Fatalf("expected punctuation suffix, got %q", w)
		}
	}
}
