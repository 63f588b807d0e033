// Package chunk splits document text into bounded, sentence-respecting
// segments for embedding and retrieval.
package chunk

import (
	"regexp"
	"strings"
)

// DefaultTargetSize is the soft upper bound on chunk length in characters.
const DefaultTargetSize = 1000

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	sentenceRe   = regexp.MustCompile(`[^.!?]+[.!?]+`)
)

// Split breaks text into chunks of roughly targetSize characters without
// ever splitting a sentence. The bound is soft: a single sentence longer
// than targetSize is kept whole and produces an oversized chunk. Chunks
// come back in document order with no overlap. Empty or whitespace-only
// input yields nil; text with no sentence-terminal punctuation yields a
// single chunk.
func Split(text string, targetSize int) []string {
	if targetSize <= 0 {
		targetSize = DefaultTargetSize
	}

	normalized := strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
	if normalized == "" {
		return nil
	}

	locs := sentenceRe.FindAllStringIndex(normalized, -1)
	if len(locs) == 0 {
		return []string{normalized}
	}

	sentences := make([]string, 0, len(locs)+1)
	for _, loc := range locs {
		sentences = append(sentences, normalized[loc[0]:loc[1]])
	}
	// Trailing text after the last terminal punctuation has no sentence
	// boundary of its own but still belongs to the document.
	if tail := strings.TrimSpace(normalized[locs[len(locs)-1][1]:]); tail != "" {
		sentences = append(sentences, tail)
	}

	var chunks []string
	var current strings.Builder
	for _, sentence := range sentences {
		sentence = strings.TrimSpace(sentence)
		if current.Len() > 0 && current.Len()+1+len(sentence) > targetSize {
			chunks = append(chunks, strings.TrimSpace(current.String()))
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(sentence)
	}
	if current.Len() > 0 {
		chunks = append(chunks, strings.TrimSpace(current.String()))
	}
	return chunks
}
