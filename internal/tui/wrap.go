package tui

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

const wrongSpaceMark = '•'

type styledRune struct {
	s       string
	width   int
	isSpace bool
}

type wordRange struct {
	start int
	end   int
}

// buildStyledRunes colors every target rune by what was typed at its
// position. Typed text past the end of the target is not shown.
func buildStyledRunes(targetRunes, inputRunes []rune, cursorIndex int) []styledRune {
	current, hasCurrent := wordAt(findWords(targetRunes), cursorIndex)

	out := make([]styledRune, 0, len(targetRunes))
	for i, target := range targetRunes {
		displayed := target
		style := pendingStyle
		switch {
		case i < len(inputRunes) && target == ' ' && inputRunes[i] != ' ':
			displayed = wrongSpaceMark
			style = incorrectStyle
		case i < len(inputRunes) && inputRunes[i] == target:
			style = correctStyle
		case i < len(inputRunes):
			style = incorrectStyle
		case target != ' ' && hasCurrent && i >= current.start && i < current.end:
			style = currentWordStyle
		}
		if i == cursorIndex && i >= len(inputRunes) {
			style = cursorStyle
		}
		out = append(out, styledRune{
			s:       style.Render(string(displayed)),
			width:   runewidth.RuneWidth(displayed),
			isSpace: target == ' ',
		})
	}
	return out
}

func findWords(targetRunes []rune) []wordRange {
	var words []wordRange
	start := -1
	for i, r := range targetRunes {
		switch {
		case r == ' ' && start != -1:
			words = append(words, wordRange{start: start, end: i})
			start = -1
		case r != ' ' && start == -1:
			start = i
		}
	}
	if start != -1 {
		words = append(words, wordRange{start: start, end: len(targetRunes)})
	}
	return words
}

// wordAt returns the word holding the cursor, or the next word when the
// cursor sits on a space.
func wordAt(words []wordRange, cursorIndex int) (wordRange, bool) {
	if len(words) == 0 {
		return wordRange{}, false
	}
	if cursorIndex < 0 {
		return words[0], true
	}
	for _, w := range words {
		if cursorIndex < w.end {
			return w, true
		}
	}
	return words[len(words)-1], true
}

func renderStyledRunes(runes []styledRune) string {
	var b strings.Builder
	for _, item := range runes {
		b.WriteString(item.s)
	}
	return b.String()
}

// wrapStyledRunes breaks lines at the last space that fits width, or mid-word
// when a single word is wider than the line.
func wrapStyledRunes(runes []styledRune, width int) string {
	if width <= 0 {
		return renderStyledRunes(runes)
	}
	var lines []string
	line := make([]styledRune, 0, len(runes))
	lineWidth := 0
	lastSpace := -1

	for i := 0; i < len(runes); {
		item := runes[i]
		if lineWidth+item.width > width && len(line) > 0 {
			cut, rest := line, []styledRune(nil)
			if lastSpace >= 0 {
				cut, rest = line[:lastSpace], line[lastSpace+1:]
			}
			lines = append(lines, renderStyledRunes(cut))
			line = append(make([]styledRune, 0, len(runes)), rest...)
			lineWidth, lastSpace = 0, -1
			for j, r := range line {
				lineWidth += r.width
				if r.isSpace {
					lastSpace = j
				}
			}
			continue
		}
		line = append(line, item)
		lineWidth += item.width
		if item.isSpace {
			lastSpace = len(line) - 1
		}
		i++
	}
	lines = append(lines, renderStyledRunes(line))
	return strings.Join(lines, "\n")
}
