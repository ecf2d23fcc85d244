package chat

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/vidbrief/vidbrief/internal/models"
	"github.com/vidbrief/vidbrief/internal/providers/llm"
)

type fakeLLM struct {
	answer  string
	fail    bool
	prompts []string
}

func (f *fakeLLM) Complete(ctx context.Context, prompt string) (string, error) {
	if f.fail {
		return "", llm.ErrUnavailable
	}
	return f.answer, nil
}

func (f *fakeLLM) StreamAnswer(ctx context.Context, prompt string) (<-chan string, <-chan error) {
	f.prompts = append(f.prompts, prompt)
	out := make(chan string, 2)
	errs := make(chan error, 1)
	if f.fail {
		errs <- llm.ErrUnavailable
	} else {
		mid := len(f.answer) / 2
		out <- f.answer[:mid]
		out <- f.answer[mid:]
	}
	close(out)
	close(errs)
	return out, errs
}

func (f *fakeLLM) Close() error { return nil }

func testArtifact() *models.SummaryArtifact {
	return &models.SummaryArtifact{
		SummaryID:   "sum-1",
		VideoID:     "vid-1",
		Transcript:  strings.Repeat("The speaker explains the roadmap. ", 100),
		TextSummary: "A walkthrough of the quarterly roadmap.",
		KeyPoints:   []string{"Roadmap covers three quarters", "Budget is flat", "Hiring resumes in Q2"},
		Language:    "en-US",
		VideoInfo:   models.VideoInfo{Filename: "roadmap.mp4"},
	}
}

func TestEngineGroundingIsBoundedAndFrozen(t *testing.T) {
	t.Parallel()

	art := testArtifact()
	provider := &fakeLLM{answer: "It covers the roadmap."}
	e := NewEngine(provider, art)

	if !strings.Contains(e.grounding, art.TextSummary) {
		t.Fatal("grounding missing summary")
	}
	if !strings.Contains(e.grounding, "Roadmap covers three quarters") {
		t.Fatal("grounding missing key points")
	}

	// Mutating the artifact after construction must not leak into prompts.
	art.TextSummary = "CHANGED"
	e.Ask(context.Background(), "what is the video about?")
	if strings.Contains(provider.prompts[0], "CHANGED") {
		t.Fatal("grounding was rebuilt after session start")
	}

	// Excerpt, not the whole transcript.
	if strings.Contains(e.grounding, art.Transcript) {
		t.Fatal("full transcript injected into grounding")
	}
}

func TestEngineGroundingTruncationKeepsValidUTF8(t *testing.T) {
	t.Parallel()

	// Three-byte runes guarantee the excerpt cap falls mid-rune.
	art := testArtifact()
	art.Transcript = strings.Repeat("世", 700)
	e := NewEngine(&fakeLLM{answer: "ok"}, art)

	if !utf8.ValidString(e.grounding) {
		t.Fatal("grounding contains invalid UTF-8")
	}
	if strings.Contains(e.grounding, art.Transcript) {
		t.Fatal("transcript excerpt was not truncated")
	}
	if strings.ContainsRune(e.grounding, utf8.RuneError) {
		t.Fatal("grounding contains a replacement rune")
	}
}

func TestEngineAskRecordsTurnsInPrompt(t *testing.T) {
	t.Parallel()

	provider := &fakeLLM{answer: "Answer text."}
	e := NewEngine(provider, testArtifact())

	first := e.Ask(context.Background(), "first question")
	if first != "Answer text." {
		t.Fatalf("Ask = %q", first)
	}
	e.Ask(context.Background(), "second question")

	last := provider.prompts[len(provider.prompts)-1]
	if !strings.Contains(last, "User: first question") || !strings.Contains(last, "Assistant: Answer text.") {
		t.Fatalf("prior turn missing from prompt:\n%s", last)
	}
}

func TestEngineAskDegradedAnswers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		question string
		want     string
	}{
		{"Can you give me a summary?", "summary"},
		{"how long is it?", "duration"},
		{"what are the key points?", "key points"},
		{"which language is spoken?", "language"},
		{"thanks!", "welcome"},
		{"what color were the slides?", "processed video content"},
	}

	e := NewEngine(&fakeLLM{fail: true}, testArtifact())
	for _, tt := range tests {
		got := e.Ask(context.Background(), tt.question)
		if got == "" {
			t.Fatalf("empty answer for %q", tt.question)
		}
		if !strings.Contains(strings.ToLower(got), tt.want) {
			t.Errorf("Ask(%q) = %q, want mention of %q", tt.question, got, tt.want)
		}
	}
}

func TestEngineEmptyStreamFallsBack(t *testing.T) {
	t.Parallel()

	// An empty stream with no error still falls back; users never see an
	// empty reply.
	e := NewEngine(&fakeLLM{answer: ""}, testArtifact())
	if got := e.Ask(context.Background(), "anything at all"); got == "" {
		t.Fatal("empty answer surfaced to caller")
	}
}

func TestMemoryRegistry(t *testing.T) {
	t.Parallel()

	r := NewMemoryRegistry()
	if _, ok := r.Get("missing"); ok {
		t.Fatal("unexpected hit")
	}
	e := NewEngine(&fakeLLM{answer: "a"}, testArtifact())
	r.Put("s1", e)
	got, ok := r.Get("s1")
	if !ok || got != e {
		t.Fatal("registry did not return stored engine")
	}
	r.Remove("s1")
	if _, ok := r.Get("s1"); ok {
		t.Fatal("engine survived Remove")
	}
}
