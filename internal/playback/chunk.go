package playback

import (
	"strings"
	"unicode"
)

// DefaultChunkSize is the chunk length, in characters, used when none is configured.
const DefaultChunkSize = 400

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '?' || r == '!'
}

func lastIndex(runes []rune, match func(rune) bool) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if match(runes[i]) {
			return i
		}
	}
	return -1
}

// ChunkText splits text into trimmed, non-empty pieces of at most maxLength
// characters. A piece ends after the last '.', '?' or '!' that fits, else at
// the last space that fits, else exactly at maxLength.
func ChunkText(text string, maxLength int) []string {
	if maxLength < 1 {
		maxLength = DefaultChunkSize
	}

	runes := []rune(text)
	var chunks []string
	for start := 0; start < len(runes); {
		end := start + maxLength
		if end >= len(runes) {
			end = len(runes)
		} else {
			window := runes[start:end]
			if cut := lastIndex(window, isSentenceEnd); cut > 0 {
				end = start + cut + 1
			} else if cut := lastIndex(window, unicode.IsSpace); cut > 0 {
				end = start + cut
			}
		}

		if chunk := strings.TrimSpace(string(runes[start:end])); chunk != "" {
			chunks = append(chunks, chunk)
		}
		start = end
	}
	return chunks
}
