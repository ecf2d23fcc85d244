package pipeline

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/vidbrief/vidbrief/internal/media"
	"github.com/vidbrief/vidbrief/internal/models"
	"github.com/vidbrief/vidbrief/internal/utils"
)

// DefaultKeyPoints is the fixed key-point count per artifact.
const DefaultKeyPoints = 5

type Params struct {
	VideoPath       string
	SummaryRatio    float64 // (0,1], fraction of ranked segments kept
	MaxSummaryWords int
	Language        string
}

// Output carries everything the worker needs to build a summary artifact.
// Transcript is the full text; the worker applies the storage truncation.
type Output struct {
	Transcript string
	Segments   []models.Segment // all segments, chronological
	Selected   []models.Segment // relevance-selected subset, score-ordered
	Summary    string
	KeyPoints  []string
	Duration   float64
	Language   string
}

// AudioChunker is satisfied by *media.Chunker; tests substitute fakes.
type AudioChunker interface {
	ChunkAudio(ctx context.Context, videoPath string) ([]media.Chunk, error)
}

// Pipeline runs the summarization stages in order. Chunking and
// transcription failures are fatal; ranking, summarization and key-point
// failures degrade inside their stages and never surface here.
type Pipeline struct {
	Chunker    AudioChunker
	Assembler  *Assembler
	Ranker     *Ranker
	Summarizer *Summarizer
	Log        *logrus.Logger
}

func (p *Pipeline) Run(ctx context.Context, params Params) (*Output, error) {
	const op = "Pipeline.Run"

	if params.SummaryRatio <= 0 || params.SummaryRatio > 1 {
		params.SummaryRatio = 0.3
	}
	if params.MaxSummaryWords <= 0 {
		params.MaxSummaryWords = 300
	}

	chunks, err := p.Chunker.ChunkAudio(ctx, params.VideoPath)
	if err != nil {
		return nil, utils.E(utils.CodeInvalidArgument, op, "audio extraction failed", err)
	}

	transcript, err := p.Assembler.Assemble(ctx, chunks, params.Language)
	if err != nil {
		return nil, err
	}

	text := transcript.Text
	if text == "" {
		text = "No transcript available."
	}

	ranked := p.Ranker.Rank(ctx, transcript.Segments)
	keep := int(float64(len(ranked)) * params.SummaryRatio)
	if keep < 1 {
		keep = 1
	}
	if keep > len(ranked) {
		keep = len(ranked)
	}

	return &Output{
		Transcript: text,
		Segments:   transcript.Segments,
		Selected:   ranked[:keep],
		Summary:    p.Summarizer.Summarize(ctx, text, params.MaxSummaryWords),
		KeyPoints:  p.Summarizer.KeyPoints(ctx, text, DefaultKeyPoints),
		Duration:   transcript.Duration,
		Language:   transcript.Language,
	}, nil
}
