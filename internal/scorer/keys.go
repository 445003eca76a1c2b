package scorer

import (
	"unicode"
	"unicode/utf8"
)

// KeyBackspace is the only multi-character key name the scorer acts on.
const KeyBackspace = "Backspace"

// Keystroke is a raw key event as reported by an input surface.
type Keystroke struct {
	Key  string
	Ctrl bool
	Alt  bool
	Meta bool
}

// Char returns a plain keystroke for a single rune.
func Char(r rune) Keystroke {
	return Keystroke{Key: string(r)}
}

// Backspace returns a backspace keystroke.
func Backspace() Keystroke {
	return Keystroke{Key: KeyBackspace}
}

// IsBackspace reports whether k deletes the last typed character.
func (k Keystroke) IsBackspace() bool {
	return k.Key == KeyBackspace
}

// Printable returns the rune k appends, or false when k must be ignored:
// modifier chords, named keys, and non-printable runes.
func (k Keystroke) Printable() (rune, bool) {
	if k.Ctrl || k.Alt || k.Meta {
		return 0, false
	}
	if utf8.RuneCountInString(k.Key) != 1 {
		return 0, false
	}
	r, _ := utf8.DecodeRuneInString(k.Key)
	if r == utf8.RuneError || !unicode.IsPrint(r) {
		return 0, false
	}
	return r, true
}
