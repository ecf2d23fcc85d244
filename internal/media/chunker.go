package media

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/google/uuid"
)

// Chunk is one bounded slice of the extracted audio track, rendered as a
// standalone WAV file small enough for a single provider call. Start and
// Duration are seconds on the global timeline.
type Chunk struct {
	Index    int
	Start    float64
	Duration float64
	WAV      []byte
}

// Chunker extracts a mono 16 kHz PCM track from a video file and splits it
// into sample-aligned chunks of at most MaxChunkSeconds. Boundaries are
// sample-index aligned, not silence aligned. Any decode failure is fatal
// for the whole operation; there are no partial results.
type Chunker struct {
	MaxChunkSeconds int
	SampleRateHz    int
	FFmpegPath      string
	WorkDir         string
}

func NewChunker(maxChunkSeconds int) *Chunker {
	if maxChunkSeconds <= 0 {
		maxChunkSeconds = 600
	}
	return &Chunker{
		MaxChunkSeconds: maxChunkSeconds,
		SampleRateHz:    16000,
		FFmpegPath:      "ffmpeg",
		WorkDir:         os.TempDir(),
	}
}

// ChunkAudio runs extraction and splitting end to end. The temporary WAV
// file is removed before returning.
func (c *Chunker) ChunkAudio(ctx context.Context, videoPath string) ([]Chunk, error) {
	wavPath, err := c.ExtractAudio(ctx, videoPath)
	if err != nil {
		return nil, err
	}
	defer os.Remove(wavPath)

	raw, err := os.ReadFile(wavPath)
	if err != nil {
		return nil, fmt.Errorf("media: read extracted audio: %w", err)
	}
	return SplitWAV(raw, c.MaxChunkSeconds)
}

// ExtractAudio decodes the video's audio track to a temporary 16 kHz mono
// PCM WAV file. The caller removes the file.
func (c *Chunker) ExtractAudio(ctx context.Context, videoPath string) (string, error) {
	if _, err := os.Stat(videoPath); err != nil {
		return "", fmt.Errorf("media: source not readable: %w", err)
	}

	out := filepath.Join(c.WorkDir, "audio-"+uuid.NewString()+".wav")
	cmd := exec.CommandContext(ctx, c.FFmpegPath,
		"-y",
		"-i", videoPath,
		"-vn",
		"-ac", "1",
		"-ar", fmt.Sprint(c.SampleRateHz),
		"-c:a", "pcm_s16le",
		out,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		os.Remove(out)
		return "", fmt.Errorf("media: audio extraction failed: %w: %s", err, stderr.String())
	}
	return out, nil
}

type wavFormat struct {
	channels      int
	sampleRateHz  int
	bitsPerSample int
	data          []byte
}

// SplitWAV splits a PCM WAV file into chunks of at most maxSeconds each.
// Chunks are contiguous and non-overlapping: chunk[i].Start+Duration ==
// chunk[i+1].Start, and the final chunk ends at the total duration.
func SplitWAV(raw []byte, maxSeconds int) ([]Chunk, error) {
	if maxSeconds <= 0 {
		return nil, errors.New("media: max chunk seconds must be > 0")
	}

	f, err := parseWAV(raw)
	if err != nil {
		return nil, err
	}

	frameSize := f.channels * f.bitsPerSample / 8
	totalFrames := len(f.data) / frameSize
	framesPerChunk := maxSeconds * f.sampleRateHz

	var chunks []Chunk
	for start := 0; start < totalFrames; start += framesPerChunk {
		end := start + framesPerChunk
		if end > totalFrames {
			end = totalFrames
		}

		pcm := f.data[start*frameSize : end*frameSize]
		chunks = append(chunks, Chunk{
			Index:    len(chunks),
			Start:    float64(start) / float64(f.sampleRateHz),
			Duration: float64(end-start) / float64(f.sampleRateHz),
			WAV:      encodeWAV(pcm, f),
		})
	}
	return chunks, nil
}

func parseWAV(raw []byte) (*wavFormat, error) {
	if len(raw) < 12 || string(raw[0:4]) != "RIFF" || string(raw[8:12]) != "WAVE" {
		return nil, errors.New("media: not a RIFF/WAVE file")
	}

	f := &wavFormat{}
	pos := 12
	for pos+8 <= len(raw) {
		id := string(raw[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(raw[pos+4 : pos+8]))
		body := pos + 8
		if body+size > len(raw) {
			return nil, errors.New("media: truncated WAV chunk")
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, errors.New("media: short fmt chunk")
			}
			if format := binary.LittleEndian.Uint16(raw[body : body+2]); format != 1 {
				return nil, fmt.Errorf("media: unsupported WAV format %d (want PCM)", format)
			}
			f.channels = int(binary.LittleEndian.Uint16(raw[body+2 : body+4]))
			f.sampleRateHz = int(binary.LittleEndian.Uint32(raw[body+4 : body+8]))
			f.bitsPerSample = int(binary.LittleEndian.Uint16(raw[body+14 : body+16]))
			if f.bitsPerSample%8 != 0 {
				return nil, fmt.Errorf("media: unsupported bits per sample %d (want whole bytes)", f.bitsPerSample)
			}
		case "data":
			f.data = raw[body : body+size]
		}

		// chunk bodies are word-aligned
		pos = body + size + size%2
	}

	if f.sampleRateHz == 0 || f.channels == 0 || f.bitsPerSample == 0 {
		return nil, errors.New("media: missing fmt chunk")
	}
	if f.data == nil {
		return nil, errors.New("media: missing data chunk")
	}
	return f, nil
}

func encodeWAV(pcm []byte, f *wavFormat) []byte {
	frameSize := f.channels * f.bitsPerSample / 8
	byteRate := f.sampleRateHz * frameSize

	var b bytes.Buffer
	b.WriteString("RIFF")
	binary.Write(&b, binary.LittleEndian, uint32(36+len(pcm)))
	b.WriteString("WAVE")
	b.WriteString("fmt ")
	binary.Write(&b, binary.LittleEndian, uint32(16))
	binary.Write(&b, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&b, binary.LittleEndian, uint16(f.channels))
	binary.Write(&b, binary.LittleEndian, uint32(f.sampleRateHz))
	binary.Write(&b, binary.LittleEndian, uint32(byteRate))
	binary.Write(&b, binary.LittleEndian, uint16(frameSize))
	binary.Write(&b, binary.LittleEndian, uint16(f.bitsPerSample))
	b.WriteString("data")
	binary.Write(&b, binary.LittleEndian, uint32(len(pcm)))
	b.Write(pcm)
	return b.Bytes()
}
