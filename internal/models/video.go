package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Video struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FileID string             `bson:"file_id" json:"file_id"` // uuid v4
	UserID string             `bson:"user_id" json:"user_id"`

	Filename     string `bson:"filename" json:"filename"`           // stored name: <file_id><ext>
	OriginalName string `bson:"original_name" json:"original_name"` // client-supplied name
	FilePath     string `bson:"file_path" json:"file_path"`         // local spool path for the pipeline
	StoredURL    string `bson:"stored_url,omitempty" json:"stored_url,omitempty"`
	FileSize     int64  `bson:"file_size" json:"file_size"`

	// DownloadURL is a short-lived signed link minted at read time; never persisted.
	DownloadURL string `bson:"-" json:"download_url,omitempty"`

	Status    string    `bson:"status" json:"status"` // uploaded|summarized
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
