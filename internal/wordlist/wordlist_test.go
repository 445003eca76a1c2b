package wordlist

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestLoadWords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "words.txt")
	content := "# offline list\nalpha beta\n\n  gamma  \n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	words, err := LoadWords(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(words, []string{"alpha", "beta", "gamma"}) {
		t.Fatalf("unexpected words: %v", words)
	}
}

func TestLoadWordsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.txt")
	if err := os.WriteFile(path, []byte("# nothing\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadWords(path); err == nil {
		t.Fatalf("expected error for empty word list")
	}
}

func TestCleanText(t *testing.T) {
	raw := "<p>Hello&nbsp;<strong>world</strong></p>\n\n<p>again &amp; again</p>"
	if got := CleanText(raw); got != "Hello world again again" {
		t.Fatalf("unexpected clean text: %q", got)
	}
}

func TestNormalize(t *testing.T) {
	if got := Normalize([]string{"a", "<b>b</b>", "c"}, "ignored", 2); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("unexpected words from array: %v", got)
	}
	if got := Normalize(nil, "one  two\tthree", 0); !reflect.DeepEqual(got, []string{"one", "two", "three"}) {
		t.Fatalf("unexpected words from summary: %v", got)
	}
	if got := Normalize(nil, "", 10); len(got) != 0 {
		t.Fatalf("expected no words, got %v", got)
	}
}
