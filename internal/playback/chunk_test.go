package playback

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"
)

func squash(s string) string {
	return strings.Join(strings.Fields(s), "")
}

func TestChunkTextSentenceBoundaries(t *testing.T) {
	sentence := strings.Repeat("a", 98) + ". "
	text := strings.Repeat(sentence, 12)
	if len(text) != 1200 {
		t.Fatalf("setup: len = %d", len(text))
	}

	chunks := ChunkText(text, 500)
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}
	for i, c := range chunks {
		if utf8.RuneCountInString(c) > 500 {
			t.Errorf("chunk %d has %d characters", i, utf8.RuneCountInString(c))
		}
		if i < len(chunks)-1 && !strings.HasSuffix(c, ".") {
			t.Errorf("chunk %d does not end a sentence: %q", i, c[len(c)-5:])
		}
	}
}

func TestChunkTextFallbacks(t *testing.T) {
	tests := []struct {
		name string
		text string
		max  int
		want []string
	}{
		{"short text", "Hello there.", 400, []string{"Hello there."}},
		{"space break", "alpha beta gamma", 12, []string{"alpha beta", "gamma"}},
		{"hard break", "abcdefghij", 4, []string{"abcd", "efgh", "ij"}},
		{"question mark", "Why? Because it is.", 10, []string{"Why?", "Because", "it is."}},
		{"whitespace only", "   \n\t ", 3, nil},
		{"empty", "", 10, nil},
		{"multibyte", "नमस्ते दुनिया", 7, []string{"नमस्ते", "दुनिया"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ChunkText(tt.text, tt.max)
			if fmt.Sprint(got) != fmt.Sprint(tt.want) {
				t.Errorf("ChunkText(%q, %d) = %q, want %q", tt.text, tt.max, got, tt.want)
			}
		})
	}
}

func TestChunkTextProperties(t *testing.T) {
	inputs := []string{
		"Hemoglobin is low. Iron studies recommended! Follow up in two weeks?",
		strings.Repeat("word ", 200),
		strings.Repeat("x", 1037),
		"Glucose: 180 mg/dL.   Cholesterol: 240 mg/dL.\n\nVitamin D: 12 ng/mL.",
		"ये परिणाम सामान्य हैं। कृपया डॉक्टर से मिलें.",
	}

	for _, text := range inputs {
		for max := 1; max <= 60; max += 7 {
			chunks := ChunkText(text, max)
			if len(chunks) > utf8.RuneCountInString(text) {
				t.Fatalf("max %d: %d chunks for %d characters", max, len(chunks), utf8.RuneCountInString(text))
			}
			for _, c := range chunks {
				if strings.TrimSpace(c) == "" {
					t.Fatalf("max %d: empty chunk", max)
				}
				if n := utf8.RuneCountInString(c); n > max {
					t.Fatalf("max %d: chunk of %d characters", max, n)
				}
			}
			if squash(strings.Join(chunks, "")) != squash(text) {
				t.Fatalf("max %d: content changed", max)
			}
		}
	}
}

func TestChunkTextDefaultSize(t *testing.T) {
	chunks := ChunkText(strings.Repeat("y", 900), 0)
	if len(chunks) != 3 || len(chunks[0]) != DefaultChunkSize {
		t.Errorf("got %d chunks, first of %d", len(chunks), len(chunks[0]))
	}
}
