package chunk

import (
	"fmt"
	"strings"
	"testing"
)

func TestSplit_Empty(t *testing.T) {
	for _, input := range []string{"", "   ", "\n\t  \n"} {
		if got := Split(input, 1000); got != nil {
			t.Errorf("Split(%q) = %v, want nil", input, got)
		}
	}
}

func TestSplit_NoTerminalPunctuation(t *testing.T) {
	got := Split("a fragment without any sentence ending", 1000)
	if len(got) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(got))
	}
	if got[0] != "a fragment without any sentence ending" {
		t.Errorf("unexpected chunk: %q", got[0])
	}
}

func TestSplit_SingleShortText(t *testing.T) {
	got := Split("The cat sat. The dog ran. The bird flew.", 1000)
	if len(got) != 1 {
		t.Fatalf("expected 1 chunk, got %d: %v", len(got), got)
	}
	if got[0] != "The cat sat. The dog ran. The bird flew." {
		t.Errorf("unexpected chunk: %q", got[0])
	}
}

func TestSplit_OversizedSentenceKeptWhole(t *testing.T) {
	long := "word " + strings.Repeat("again ", 60) + "done."
	got := Split(long, 50)
	if len(got) != 1 {
		t.Fatalf("expected 1 chunk for a single long sentence, got %d", len(got))
	}
	if len(got[0]) <= 50 {
		t.Errorf("chunk should exceed the soft bound, len=%d", len(got[0]))
	}
	if !strings.HasSuffix(got[0], "done.") {
		t.Errorf("sentence was truncated: %q", got[0])
	}
}

func TestSplit_BoundaryNeverSplitsSentence(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&sb, "Sentence number %d has a fixed shape and some padding text. ", i)
	}
	chunks := Split(sb.String(), 200)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if !strings.HasSuffix(c, ".") {
			t.Errorf("chunk %d does not end on a sentence boundary: %q", i, c)
		}
	}
}

func TestSplit_Reassembly(t *testing.T) {
	inputs := []string{
		"One. Two! Three? Four.",
		"  Leading   and \t trailing\nwhitespace.  Second   sentence here!  ",
		strings.Repeat("A reasonably sized sentence that repeats itself over and over. ", 30),
		"No punctuation at all just words",
		"Ends with a fragment. And then a trailing tail without punctuation",
	}
	for _, input := range inputs {
		t.Run(input[:min(20, len(input))], func(t *testing.T) {
			normalized := strings.TrimSpace(strings.Join(strings.Fields(input), " "))
			chunks := Split(input, 80)
			joined := strings.Join(chunks, " ")
			if joined != normalized {
				t.Errorf("reassembly mismatch:\n got %q\nwant %q", joined, normalized)
			}
		})
	}
}

func TestSplit_TargetSizeRespectedWhenPossible(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 100; i++ {
		sb.WriteString("Ten chars. ")
	}
	chunks := Split(sb.String(), 100)
	for i, c := range chunks {
		// Each sentence is far under the target, so no chunk should
		// meaningfully overshoot it.
		if len(c) > 110 {
			t.Errorf("chunk %d overshoots target: len=%d", i, len(c))
		}
	}
}

func TestSplit_ZeroTargetUsesDefault(t *testing.T) {
	got := Split("Short. Text.", 0)
	if len(got) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(got))
	}
}
