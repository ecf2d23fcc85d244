package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/vidbrief/vidbrief/internal/providers/embed"
	"github.com/vidbrief/vidbrief/internal/providers/llm"
	"github.com/vidbrief/vidbrief/internal/utils"
)

const (
	// DefaultChunkChars bounds the text sent to one summarization call.
	DefaultChunkChars = 3000
	// fallbackPrefixChars sizes the verbatim-truncation substitute summary.
	fallbackPrefixChars = 300
	// minCandidateChars filters out sentence fragments before key-point
	// selection.
	minCandidateChars = 30
)

// Summarizer produces the abstractive summary and the key-point list.
// Provider failures here degrade to deterministic fallbacks instead of
// failing the job: summary quality is best-effort, unlike transcription.
type Summarizer struct {
	LLM        llm.Provider
	Embedder   embed.Embedder
	ChunkChars int
	Log        *logrus.Logger
}

func NewSummarizer(l llm.Provider, e embed.Embedder, log *logrus.Logger) *Summarizer {
	return &Summarizer{LLM: l, Embedder: e, ChunkChars: DefaultChunkChars, Log: log}
}

// ChunkText splits text on sentence boundaries and greedily packs sentences
// into chunks of at most maxChars. A sentence is never split; one sentence
// longer than the budget becomes its own oversized chunk. Concatenating the
// returned chunks reproduces the input exactly.
func ChunkText(text string, maxChars int) []string {
	if text == "" {
		return nil
	}
	if maxChars <= 0 {
		maxChars = DefaultChunkChars
	}

	sentences := strings.SplitAfter(text, ". ")
	var chunks []string
	var cur strings.Builder

	for _, s := range sentences {
		if s == "" {
			continue
		}
		if cur.Len() > 0 && cur.Len()+len(s) > maxChars {
			chunks = append(chunks, cur.String())
			cur.Reset()
		}
		cur.WriteString(s)
	}
	if cur.Len() > 0 {
		chunks = append(chunks, cur.String())
	}
	return chunks
}

// Summarize runs map-reduce summarization: each chunk is summarized
// independently, then chunk summaries are reduced into one final summary of
// the same target length. A single chunk skips the reduce pass. On any
// provider failure the result is a verbatim prefix of the input, which is
// distinguishable from a real summary by construction.
func (s *Summarizer) Summarize(ctx context.Context, text string, maxWords int) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	if maxWords <= 0 {
		maxWords = 300
	}

	chunks := ChunkText(text, s.ChunkChars)
	summaries := make([]string, 0, len(chunks))

	for i, chunk := range chunks {
		part, err := s.LLM.Complete(ctx, summaryPrompt(chunk, maxWords))
		if err != nil {
			s.warn(err, "chunk summarization degraded to truncation", i)
			return truncateSummary(text)
		}
		summaries = append(summaries, part)
	}

	if len(summaries) == 1 {
		return summaries[0]
	}

	final, err := s.LLM.Complete(ctx, summaryPrompt(strings.Join(summaries, " "), maxWords))
	if err != nil {
		s.warn(err, "reduce summarization degraded to truncation", -1)
		return truncateSummary(text)
	}
	return final
}

// KeyPoints extracts up to n salient statements. With n or fewer candidate
// sentences the candidates come back as-is. Otherwise the LLM is asked for
// exactly n points; unparseable or failed output falls through to
// embedding-centroid selection, and that in turn to the first n candidates.
func (s *Summarizer) KeyPoints(ctx context.Context, text string, n int) []string {
	if n <= 0 {
		n = 5
	}

	candidates := candidateSentences(text)
	if len(candidates) == 0 {
		return nil
	}
	if len(candidates) <= n {
		return candidates
	}

	if pts := s.keyPointsLLM(ctx, text, n); len(pts) > 0 {
		return pts
	}
	if pts := s.keyPointsCentroid(ctx, candidates, n); len(pts) > 0 {
		return pts
	}
	return candidates[:n]
}

func (s *Summarizer) keyPointsLLM(ctx context.Context, text string, n int) []string {
	raw, err := s.LLM.Complete(ctx, keyPointsPrompt(text, n))
	if err != nil {
		s.warn(err, "llm key points unavailable, trying centroid selection", -1)
		return nil
	}
	pts := parseKeyPoints(raw)
	if len(pts) > n {
		pts = pts[:n]
	}
	return pts
}

func (s *Summarizer) keyPointsCentroid(ctx context.Context, candidates []string, n int) []string {
	if s.Embedder == nil {
		return nil
	}
	vecs, err := s.Embedder.Embed(ctx, candidates)
	if err != nil || len(vecs) != len(candidates) {
		if err != nil {
			s.warn(err, "centroid key points unavailable, using leading sentences", -1)
		}
		return nil
	}

	centroid := make([]float64, len(vecs[0]))
	for _, v := range vecs {
		for i, x := range v {
			centroid[i] += float64(x)
		}
	}
	for i := range centroid {
		centroid[i] /= float64(len(vecs))
	}

	type scored struct {
		idx int
		sim float64
	}
	ranked := make([]scored, len(candidates))
	for i, v := range vecs {
		var dot float64
		for j, x := range v {
			dot += float64(x) * centroid[j]
		}
		ranked[i] = scored{idx: i, sim: dot}
	}
	sort.SliceStable(ranked, func(a, b int) bool { return ranked[a].sim > ranked[b].sim })

	out := make([]string, 0, n)
	for _, r := range ranked[:n] {
		out = append(out, candidates[r.idx])
	}
	return out
}

func (s *Summarizer) warn(err error, msg string, chunk int) {
	if s.Log == nil {
		return
	}
	entry := s.Log.WithError(err)
	if chunk >= 0 {
		entry = entry.WithField("chunk", chunk)
	}
	entry.Warn(msg)
}

func candidateSentences(text string) []string {
	var out []string
	for _, s := range strings.Split(text, ".") {
		s = strings.TrimSpace(s)
		if len(s) > minCandidateChars {
			out = append(out, s+".")
		}
	}
	return out
}

func parseKeyPoints(raw string) []string {
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*• \t")
		// strip "1." / "2)" style numbering
		if i := strings.IndexAny(line, ".)"); i > 0 && i <= 2 && isDigits(line[:i]) {
			line = strings.TrimSpace(line[i+1:])
		}
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func truncateSummary(text string) string {
	if len(text) <= fallbackPrefixChars {
		return text
	}
	return utils.TruncateUTF8(text, fallbackPrefixChars) + "..."
}

func summaryPrompt(text string, maxWords int) string {
	return fmt.Sprintf(
		"Summarize the following video transcript in at most %d words. "+
			"Cover the main topics and keep the wording plain. "+
			"Return only the summary itself.\n\nTranscript:\n%s",
		maxWords, text)
}

func keyPointsPrompt(text string, n int) string {
	return fmt.Sprintf(
		"Extract exactly %d key points from the following video transcript. "+
			"Return one point per line with no numbering and no extra commentary.\n\nTranscript:\n%s",
		n, text)
}
