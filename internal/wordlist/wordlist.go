// Package wordlist loads word lists and normalizes upstream text into words.
package wordlist

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Fallback is the built-in offline word list.
var Fallback = []string{
	"the", "quick", "brown", "fox", "jumps", "over", "lazy", "dog", "hello", "world",
	"type", "fast", "practice", "keyboard", "speed", "accuracy", "test", "random", "words",
	"simple", "fun", "challenge", "improve", "skills", "focus", "learn", "repeat", "try",
	"again", "score", "result",
}

// LoadWords reads whitespace-separated words from the provided file path.
// Lines starting with '#' are comments.
func LoadWords(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			// Best-effort close for read-only word list.
			_ = cerr
		}
	}()

	var words []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, strings.Fields(line)...)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("word list is empty")
	}
	return words, nil
}
