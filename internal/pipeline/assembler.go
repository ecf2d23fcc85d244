package pipeline

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/vidbrief/vidbrief/internal/media"
	"github.com/vidbrief/vidbrief/internal/models"
	"github.com/vidbrief/vidbrief/internal/providers/stt"
	"github.com/vidbrief/vidbrief/internal/utils"
)

// Transcript is the merged result of transcribing every chunk: one logical
// transcript with segments on the global timeline.
type Transcript struct {
	Text     string
	Segments []models.Segment
	Duration float64
	Language string
}

type Assembler struct {
	STT stt.Provider
	Log *logrus.Logger
}

// Assemble transcribes chunks strictly in order and re-bases each chunk's
// local timestamps by the end time of the last segment emitted so far.
// Using the last segment end rather than the nominal chunk length keeps
// provider-side trimming of trailing silence from inflating the timeline,
// and an all-silent chunk leaves the offset untouched. Chunks must not be
// transcribed in parallel: each offset depends on the previous chunk's
// result. Any chunk failure fails the whole assembly; partial transcripts
// are never produced.
func (a *Assembler) Assemble(ctx context.Context, chunks []media.Chunk, language string) (*Transcript, error) {
	const op = "Assembler.Assemble"

	out := &Transcript{Language: language}
	var texts []string
	timeOffset := 0.0

	for _, chunk := range chunks {
		res, err := a.STT.Transcribe(ctx, chunk.WAV, language)
		if err != nil {
			if a.Log != nil {
				a.Log.WithError(err).WithField("chunk_index", chunk.Index).Error("chunk transcription failed")
			}
			return nil, utils.E(utils.CodeUnavailable, op, "transcription failed", err)
		}

		for _, seg := range res.Segments {
			out.Segments = append(out.Segments, models.Segment{
				Start:      seg.Start + timeOffset,
				End:        seg.End + timeOffset,
				Text:       strings.TrimSpace(seg.Text),
				Confidence: seg.Confidence,
			})
		}
		if res.Text != "" {
			texts = append(texts, res.Text)
		}
		if res.Language != "" {
			out.Language = res.Language
		}

		if len(res.Segments) > 0 {
			timeOffset = out.Segments[len(out.Segments)-1].End
		}
	}

	out.Text = strings.Join(texts, " ")
	if n := len(out.Segments); n > 0 {
		out.Duration = out.Segments[n-1].End
	}
	return out, nil
}
