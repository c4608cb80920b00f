package telegram

import (
	"strings"
	"testing"

	"castfeed/pkg/logx"
)

func TestNewRequiresToken(t *testing.T) {
	t.Parallel()

	if _, err := New(Config{Token: "  "}, logx.Nop()); err == nil {
		t.Fatal("expected error for empty token")
	}
}

func TestSplitTextShort(t *testing.T) {
	t.Parallel()

	got := splitText("hello", 100, "")
	if len(got) != 1 || got[0] != "hello" {
		t.Fatalf("got %v", got)
	}
}

func TestSplitTextPrefersNewlines(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("a", 60) + "\n" + strings.Repeat("b", 60)
	got := splitText(text, 100, "")
	if len(got) != 2 {
		t.Fatalf("chunks = %d, want 2: %v", len(got), got)
	}
	if got[0] != strings.Repeat("a", 60) {
		t.Fatalf("chunk[0] = %q", got[0])
	}
	if got[1] != strings.Repeat("b", 60) {
		t.Fatalf("chunk[1] = %q", got[1])
	}
}

func TestSplitTextHardSplit(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("x", 250)
	got := splitText(text, 100, "")
	if len(got) != 3 {
		t.Fatalf("chunks = %d, want 3", len(got))
	}
	if joined := strings.Join(got, ""); joined != text {
		t.Fatalf("content lost: %d runes, want 250", len(joined))
	}
}

func TestSplitTextAvoidsTagSplit(t *testing.T) {
	t.Parallel()

	// The window boundary lands in the middle of "<b>".
	text := strings.Repeat("a", 98) + "<b>x</b>"
	got := splitText(text, 100, "HTML")
	if len(got) != 2 {
		t.Fatalf("chunks = %d, want 2: %v", len(got), got)
	}
	if got[0] != strings.Repeat("a", 98) {
		t.Fatalf("chunk[0] = %q, want the tag pushed whole into the next chunk", got[0])
	}
	if !strings.HasPrefix(got[1], "<b>") {
		t.Fatalf("chunk[1] = %q, want tag kept whole", got[1])
	}
}

func TestSplitTextCoversAllRunes(t *testing.T) {
	t.Parallel()

	// Multi-byte runes must be counted as runes, not bytes.
	text := strings.Repeat("é", 150)
	got := splitText(text, 100, "")
	total := 0
	for _, c := range got {
		total += len([]rune(c))
	}
	if total != 150 {
		t.Fatalf("total runes = %d, want 150", total)
	}
}
