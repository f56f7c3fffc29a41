package query

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/maheshLEO4/public-chat-go/internal/rag"
)

func Test_Truncate(t *testing.T) {
	t.Parallel()
	long := strings.Repeat("a", 250)
	got := truncate(long, excerptLimit)
	if len(got) != 203 || !strings.HasSuffix(got, "...") {
		t.Errorf("250-char content: len=%d suffix=%q", len(got), got[len(got)-3:])
	}

	short := strings.Repeat("b", 100)
	if truncate(short, excerptLimit) != short {
		t.Error("100-char content must be returned unmodified")
	}

	exact := strings.Repeat("c", 200)
	if truncate(exact, excerptLimit) != exact {
		t.Error("content at the limit must not be marked")
	}
}

func Test_Truncate_CountsRunesNotBytes(t *testing.T) {
	t.Parallel()

	// 250 two-byte runes: 500 bytes, 250 characters. The limit must apply
	// to characters, keeping 200 runes plus the marker.
	accented := strings.Repeat("é", 250)
	got := truncate(accented, excerptLimit)
	if n := utf8.RuneCountInString(got); n != 203 {
		t.Errorf("250 accented chars: got %d runes, want 203", n)
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("truncated content must carry the marker, got %q", got[len(got)-6:])
	}
	if !utf8.ValidString(got) {
		t.Error("truncated content must remain valid UTF-8")
	}

	// 250 three-byte runes: byte 200 falls inside a rune, so a byte slice
	// would split it.
	cjk := strings.Repeat("語", 250)
	got = truncate(cjk, excerptLimit)
	if n := utf8.RuneCountInString(got); n != 203 {
		t.Errorf("250 CJK chars: got %d runes, want 203", n)
	}
	if !utf8.ValidString(got) {
		t.Error("CJK truncation must not split a rune")
	}

	// 150 characters over 300 bytes: under the limit in characters, so the
	// content must come back untouched.
	under := strings.Repeat("é", 150)
	if truncate(under, excerptLimit) != under {
		t.Error("150-char multi-byte content must be returned unmodified")
	}
}

func Test_SourceClassification(t *testing.T) {
	t.Parallel()
	cases := []struct {
		source   string
		wantType SourceType
		wantName string
	}{
		{"https://example.com/doc", SourceWeb, "https://example.com/doc"},
		{"http://example.com/page?id=1", SourceWeb, "http://example.com/page?id=1"},
		{"/data/manuals/guide.pdf", SourcePDF, "guide.pdf"},
		{"policy.pdf", SourcePDF, "policy.pdf"},
		{"", SourcePDF, "Unknown"},
	}
	for _, tc := range cases {
		if got := sourceType(tc.source); got != tc.wantType {
			t.Errorf("sourceType(%q) = %q, want %q", tc.source, got, tc.wantType)
		}
		if got := displayName(tc.source); got != tc.wantName {
			t.Errorf("displayName(%q) = %q, want %q", tc.source, got, tc.wantName)
		}
	}
}

func Test_DisplayPage(t *testing.T) {
	t.Parallel()
	zero := 0
	two := 2
	if got := displayPage(&zero); got != "1" {
		t.Errorf("stored page 0 displays as %q, want 1", got)
	}
	if got := displayPage(&two); got != "3" {
		t.Errorf("stored page 2 displays as %q, want 3", got)
	}
	if got := displayPage(nil); got != "N/A" {
		t.Errorf("absent page displays as %q, want N/A", got)
	}
}

func Test_FormatCitations_PreservesOrder(t *testing.T) {
	t.Parallel()
	one := 1
	docs := []rag.Document{
		{Content: "first", Source: "a.pdf", Page: &one},
		{Content: "second", Source: "https://example.com/kb"},
	}
	got := formatCitations(docs)
	if len(got) != 2 {
		t.Fatalf("want 2 citations, got %d", len(got))
	}
	if got[0].Document != "a.pdf" || got[0].Page != "2" || got[0].Type != SourcePDF {
		t.Errorf("first citation = %+v", got[0])
	}
	if got[1].Document != "https://example.com/kb" || got[1].Page != "N/A" || got[1].Type != SourceWeb {
		t.Errorf("second citation = %+v", got[1])
	}
}

func Test_Classify(t *testing.T) {
	t.Parallel()
	cases := []struct {
		err  error
		want Kind
	}{
		{errors.New("request timeout"), KindTimeout},
		{errors.New("context deadline exceeded"), KindTimeout},
		{errors.New("rate limit reached for model"), KindRateLimited},
		{errors.New("HTTP 429 Too Many Requests"), KindRateLimited},
		{errors.New("invalid api key provided"), KindAuthConfig},
		{errors.New("401 Unauthorized"), KindAuthConfig},
		{errors.New("connection reset by peer"), KindProcessing},
	}
	for _, tc := range cases {
		if got := Classify(tc.err); got.Kind != tc.want {
			t.Errorf("Classify(%q) = %q, want %q", tc.err, got.Kind, tc.want)
		}
	}
}

func Test_Classify_PreservesExistingKind(t *testing.T) {
	t.Parallel()
	orig := newError(KindKnowledgeBaseNotReady, nil)
	if got := Classify(orig); got.Kind != KindKnowledgeBaseNotReady {
		t.Errorf("classified kind = %q, want preserved", got.Kind)
	}
}

func Test_UserMessages_AreFixedStrings(t *testing.T) {
	t.Parallel()
	want := map[Kind]string{
		KindKnowledgeBaseNotReady: "Knowledge base not ready. Please add documents first.",
		KindTimeout:               "Request timed out. Please try a shorter question.",
		KindRateLimited:           "Rate limit exceeded. Please wait a moment and try again.",
		KindAuthConfig:            "API configuration issue. Please check your settings.",
		KindProcessing:            "Sorry, I encountered an issue processing your question. Please try again.",
		KindBackendUnavailable:    "I'm having trouble accessing my knowledge base right now. Please try again in a moment.",
	}
	for kind, msg := range want {
		e := newError(kind, errors.New("raw backend detail"))
		if got := e.UserMessage(); got != msg {
			t.Errorf("UserMessage(%s) = %q, want %q", kind, got, msg)
		}
		if strings.Contains(e.UserMessage(), "raw backend detail") {
			t.Errorf("UserMessage(%s) leaks the cause", kind)
		}
	}
}
