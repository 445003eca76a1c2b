package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/newstype/internal/scorer"
)

// keystrokes translates a terminal key event. Pasted text is dropped.
func keystrokes(msg tea.KeyMsg) []scorer.Keystroke {
	switch msg.Type {
	case tea.KeyBackspace:
		return []scorer.Keystroke{scorer.Backspace()}
	case tea.KeySpace:
		return []scorer.Keystroke{{Key: " ", Alt: msg.Alt}}
	case tea.KeyRunes:
		if msg.Paste {
			return nil
		}
		out := make([]scorer.Keystroke, 0, len(msg.Runes))
		for _, r := range msg.Runes {
			out = append(out, scorer.Keystroke{Key: string(r), Alt: msg.Alt})
		}
		return out
	default:
		// Named keys and control chords reach the session and are ignored there.
		return []scorer.Keystroke{{Key: msg.String(), Ctrl: msg.Type >= tea.KeyNull}}
	}
}
