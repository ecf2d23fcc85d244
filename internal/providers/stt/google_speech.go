package stt

import (
	"context"
	"strings"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
)

type GoogleSpeech struct {
	c *speech.Client

	Encoding     speechpb.RecognitionConfig_AudioEncoding
	SampleRateHz int32
	CallTimeout  time.Duration
}

func NewGoogleSpeech(ctx context.Context) (*GoogleSpeech, error) {
	c, err := speech.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &GoogleSpeech{
		c:            c,
		Encoding:     speechpb.RecognitionConfig_LINEAR16,
		SampleRateHz: 16000,
		CallTimeout:  2 * time.Minute,
	}, nil
}

func (g *GoogleSpeech) Close() error { return g.c.Close() }

// Transcribe recognizes one WAV chunk. Word time offsets are folded into
// one segment per recognition result; offsets are relative to the chunk.
// language example: "en-US", "id-ID"
func (g *GoogleSpeech) Transcribe(ctx context.Context, wav []byte, language string) (*Result, error) {
	const op = "GoogleSpeech.Transcribe"

	if language == "" {
		language = "en-US"
	}

	ctx, cancel := context.WithTimeout(ctx, g.CallTimeout)
	defer cancel()

	resp, err := g.c.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   g.Encoding,
			SampleRateHertz:            g.SampleRateHz,
			LanguageCode:               language,
			EnableAutomaticPunctuation: true,
			EnableWordTimeOffsets:      true,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: wav},
		},
	})
	if err != nil {
		return nil, &ProviderError{Op: op, Err: err}
	}

	out := &Result{Language: language}
	var texts []string

	for _, r := range resp.Results {
		if len(r.Alternatives) == 0 {
			continue
		}
		alt := r.Alternatives[0]
		text := strings.TrimSpace(alt.Transcript)
		if text == "" {
			continue
		}

		seg := Segment{
			Text:       text,
			Confidence: float64(alt.Confidence),
			End:        r.ResultEndTime.AsDuration().Seconds(),
		}
		if len(alt.Words) > 0 {
			seg.Start = alt.Words[0].StartTime.AsDuration().Seconds()
			seg.End = alt.Words[len(alt.Words)-1].EndTime.AsDuration().Seconds()
		}
		if seg.End <= seg.Start {
			continue
		}

		out.Segments = append(out.Segments, seg)
		texts = append(texts, text)
		if r.LanguageCode != "" {
			out.Language = r.LanguageCode
		}
	}

	out.Text = strings.Join(texts, " ")
	return out, nil
}
