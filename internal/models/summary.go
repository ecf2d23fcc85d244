package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// VideoInfo is a denormalized snapshot of the source file, frozen into the
// artifact so it survives later changes to the videos collection.
type VideoInfo struct {
	FileID   string `bson:"file_id" json:"file_id"`
	Path     string `bson:"path" json:"path"`
	Filename string `bson:"filename" json:"filename"`
	Size     int64  `bson:"size" json:"size"`
}

// SummaryArtifact is the durable output of one completed pipeline run.
// Immutable after insert: there is no update path.
type SummaryArtifact struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SummaryID string             `bson:"summary_id" json:"summary_id"` // uuid v4
	TaskID    string             `bson:"task_id" json:"task_id"`
	VideoID   string             `bson:"video_id" json:"video_id"`
	UserID    string             `bson:"user_id" json:"user_id"`

	// Transcript is a bounded excerpt (TranscriptStoreLimit chars); the full
	// text is only held in memory during the pipeline run.
	Transcript  string    `bson:"transcript" json:"transcript"`
	TextSummary string    `bson:"text_summary" json:"text_summary"`
	KeyPoints   []string  `bson:"key_points" json:"key_points"`
	Segments    []Segment `bson:"segments" json:"segments"` // relevance-selected subset
	VideoInfo   VideoInfo `bson:"video_info" json:"video_info"`
	Language    string    `bson:"language" json:"language"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// TranscriptStoreLimit caps the persisted transcript excerpt. The full
// transcript feeds summarization before truncation.
const TranscriptStoreLimit = 5000
