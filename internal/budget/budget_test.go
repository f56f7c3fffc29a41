package budget

import (
	"strings"
	"testing"

	"github.com/maheshLEO4/public-chat-go/internal/rag"
)

func Test_Estimate(t *testing.T) {
	t.Parallel()
	cases := []struct {
		input string
		want  int
	}{
		{"", 0},
		{"a", 1},        // < 4 chars → 1
		{"abcd", 1},     // exactly 4 chars → 1
		{"abcde", 1},    // 5 chars → 1
		{"abcdefgh", 2}, // 8 chars → 2
		{strings.Repeat("x", 400), 100},
	}
	for _, tc := range cases {
		got := Estimate(tc.input)
		if got != tc.want {
			t.Errorf("Estimate(%q) = %d, want %d", tc.input, got, tc.want)
		}
	}
}

func Test_EstimatePassages(t *testing.T) {
	t.Parallel()
	docs := []rag.Document{
		{Content: "hello world", Source: "faq.pdf"},
		{Content: "hello world", Source: "faq.pdf"},
	}
	got := EstimatePassages(docs)
	// Each passage: 4 overhead + Estimate("hello world")=2 + Estimate("faq.pdf")=1 = 7
	// Two passages: 14
	if got != 14 {
		t.Errorf("EstimatePassages = %d, want 14", got)
	}
}

func Test_TrimPassages_NoTrimNeeded(t *testing.T) {
	t.Parallel()
	docs := []rag.Document{
		{Content: "a", Source: "s"},
		{Content: "b", Source: "s"},
	}
	got := TrimPassages(docs, 10, DefaultMaxContextTokens)
	if len(got) != 2 {
		t.Errorf("want 2 passages, got %d", len(got))
	}
}

func Test_TrimPassages_DropsLowestRanked(t *testing.T) {
	t.Parallel()
	docs := []rag.Document{
		{Content: "best", Source: "s"},
		{Content: "worst", Source: "s"},
	}
	// Each passage costs: 4 overhead + Estimate(content)=1 + Estimate("s")=1 = 6 tokens.
	// Two passages = 12 tokens. Budget of 7 with no fixed cost fits exactly one.
	got := TrimPassages(docs, 0, 7)
	if len(got) != 1 {
		t.Fatalf("want 1 passage after trim, got %d", len(got))
	}
	if got[0].Content != "best" {
		t.Errorf("want best-ranked passage retained, got %q", got[0].Content)
	}
}

func Test_TrimPassages_EmptyInput(t *testing.T) {
	t.Parallel()
	got := TrimPassages(nil, 0, DefaultMaxContextTokens)
	if len(got) != 0 {
		t.Errorf("want empty, got %d", len(got))
	}
}

func Test_TrimPassages_AllDroppedWhenFixedExceedsBudget(t *testing.T) {
	t.Parallel()
	docs := []rag.Document{
		{Content: "a", Source: "s"},
		{Content: "b", Source: "s"},
	}
	got := TrimPassages(docs, 7000, 6000)
	if len(got) != 0 {
		t.Errorf("want 0 passages, got %d", len(got))
	}
}
