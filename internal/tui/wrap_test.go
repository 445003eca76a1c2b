package tui

import (
	"strings"
	"testing"
)

func TestBuildStyledRunesCursor(t *testing.T) {
	runes := buildStyledRunes([]rune("ab"), []rune("a"), 1)
	if len(runes) != 2 {
		t.Fatalf("expected 2 runes, got %d", len(runes))
	}
	if runes[0].s != correctStyle.Render("a") {
		t.Fatalf("expected correct style for first rune")
	}
	if runes[1].s != cursorStyle.Render("b") {
		t.Fatalf("expected cursor style for second rune")
	}
}

func TestBuildStyledRunesKeepsTargetOnMistype(t *testing.T) {
	runes := buildStyledRunes([]rune("ab"), []rune("ax"), 2)
	if runes[1].s != incorrectStyle.Render("b") {
		t.Fatalf("expected incorrect style for second rune")
	}
}

func TestBuildStyledRunesWordHighlighting(t *testing.T) {
	runes := buildStyledRunes([]rune("one two "), []rune("o"), 1)
	if runes[1].s != currentWordStyle.Render("n") || runes[2].s != currentWordStyle.Render("e") {
		t.Fatalf("expected current word style for the rest of the current word")
	}
	if runes[4].s != pendingStyle.Render("t") {
		t.Fatalf("expected pending style for next word")
	}
}

func TestBuildStyledRunesWrongSpaceDot(t *testing.T) {
	runes := buildStyledRunes([]rune("a b"), []rune("ax"), 2)
	if runes[1].s != incorrectStyle.Render("•") {
		t.Fatalf("expected red dot for wrong space")
	}
}

func TestBuildStyledRunesIgnoresOverflow(t *testing.T) {
	runes := buildStyledRunes([]rune("a "), []rune("a bcd"), 5)
	if len(runes) != 2 {
		t.Fatalf("expected only target runes, got %d", len(runes))
	}
}

func TestWrapStyledRunesBreaksAtSpaces(t *testing.T) {
	runes := buildStyledRunes([]rune("aa bb cc "), nil, -1)
	lines := strings.Split(wrapStyledRunes(runes, 5), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), lines)
	}
}

func TestWrapStyledRunesBreaksLongWord(t *testing.T) {
	runes := buildStyledRunes([]rune("abcdefgh"), nil, -1)
	lines := strings.Split(wrapStyledRunes(runes, 3), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
}
