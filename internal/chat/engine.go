package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/vidbrief/vidbrief/internal/models"
	"github.com/vidbrief/vidbrief/internal/providers/llm"
	"github.com/vidbrief/vidbrief/internal/utils"
)

const (
	// groundingTranscriptChars bounds the transcript excerpt injected into
	// the grounding message, to respect downstream context limits.
	groundingTranscriptChars = 2000
	groundingKeyPoints       = 10
	// promptTurns caps how many prior exchanges are replayed per ask.
	promptTurns = 10
)

// Engine holds the running dialogue context for one chat session. The
// grounding block is built once from the artifact and frozen; later asks
// never refresh it. Engines are an in-memory cache keyed by session id and
// are rebuilt from the durable artifact after a restart.
type Engine struct {
	llm       llm.Provider
	grounding string

	mu    sync.Mutex
	turns []turn
}

type turn struct {
	question string
	answer   string
}

func NewEngine(provider llm.Provider, artifact *models.SummaryArtifact) *Engine {
	return &Engine{llm: provider, grounding: buildGrounding(artifact)}
}

func buildGrounding(a *models.SummaryArtifact) string {
	transcript := utils.TruncateUTF8(a.Transcript, groundingTranscriptChars)
	points := a.KeyPoints
	if len(points) > groundingKeyPoints {
		points = points[:groundingKeyPoints]
	}

	var sb strings.Builder
	sb.WriteString("You are an assistant that helps users understand one specific video.\n\n")
	fmt.Fprintf(&sb, "VIDEO: %s (%s)\n", a.VideoInfo.Filename, a.VideoID)
	fmt.Fprintf(&sb, "LANGUAGE: %s\n\n", a.Language)
	fmt.Fprintf(&sb, "TRANSCRIPT EXCERPT:\n%s\n\n", transcript)
	fmt.Fprintf(&sb, "SUMMARY:\n%s\n\n", a.TextSummary)
	fmt.Fprintf(&sb, "KEY POINTS:\n%s\n\n", strings.Join(points, "\n"))
	sb.WriteString("Answer only from the video content above. " +
		"Politely decline questions unrelated to the video. " +
		"Be accurate and conversational.")
	return sb.String()
}

// Ask answers one question against the frozen grounding plus recent
// dialogue. It never returns an error: provider failures produce a canned,
// keyword-matched answer so degraded mode looks like an ordinary reply.
// Two truly concurrent asks race on the in-memory turn list
// (last-write-wins); the durable message log is appended elsewhere and is
// not affected.
func (e *Engine) Ask(ctx context.Context, question string) string {
	prompt := e.buildPrompt(question)

	chunks, errs := e.llm.StreamAnswer(ctx, prompt)
	var full strings.Builder
	for chunk := range chunks {
		full.WriteString(chunk)
	}

	var streamErr error
	select {
	case streamErr = <-errs:
	default:
	}

	answer := strings.TrimSpace(full.String())
	if streamErr != nil || answer == "" {
		answer = cannedAnswer(question)
	}

	e.mu.Lock()
	e.turns = append(e.turns, turn{question: question, answer: answer})
	e.mu.Unlock()
	return answer
}

func (e *Engine) buildPrompt(question string) string {
	e.mu.Lock()
	turns := e.turns
	if len(turns) > promptTurns {
		turns = turns[len(turns)-promptTurns:]
	}
	turns = append([]turn(nil), turns...)
	e.mu.Unlock()

	var sb strings.Builder
	sb.WriteString(e.grounding)
	if len(turns) > 0 {
		sb.WriteString("\n\nConversation so far:\n")
		for _, t := range turns {
			fmt.Fprintf(&sb, "User: %s\nAssistant: %s\n", t.question, t.answer)
		}
	}
	fmt.Fprintf(&sb, "\nUser: %s\nAssistant:", question)
	return sb.String()
}

// cannedAnswer pattern-matches the question intent so chat keeps working
// when no model is reachable.
func cannedAnswer(question string) string {
	q := strings.ToLower(question)
	switch {
	case strings.Contains(q, "summary") || strings.Contains(q, "what is the video about") || strings.Contains(q, "about"):
		return "Based on the transcript, the video covers the topics captured in its summary. Open the summary panel for the full text."
	case strings.Contains(q, "duration") || strings.Contains(q, "how long"):
		return "The video's duration is listed with its details in your library."
	case strings.Contains(q, "key point") || strings.Contains(q, "main idea"):
		return "The main ideas are listed as key points alongside the summary."
	case strings.Contains(q, "language"):
		return "The detected language is stored with the summary details."
	case strings.Contains(q, "thank"):
		return "You're welcome! Ask anytime if you have more questions about the video."
	default:
		return "I can only answer from the processed video content right now. Could you ask about something specific from the video?"
	}
}
