package models

import (
	"time"

	"github.com/pgvector/pgvector-go"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"gorm.io/datatypes"
)

// ChatSession binds a conversation to one summary artifact. One session per
// (summary, user) pair: start-session returns the existing one.
type ChatSession struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SessionID string             `bson:"session_id" json:"session_id"` // uuid v4
	UserID    string             `bson:"user_id" json:"user_id"`
	VideoID   string             `bson:"video_id" json:"video_id"`
	SummaryID string             `bson:"summary_id" json:"summary_id"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// ChatMessage is one row of the append-only conversation log. Messages are
// inserted row-at-a-time, never rewritten, so two concurrent asks on one
// session cannot lose each other's entries.
type ChatMessage struct {
	ID        string          `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID    string          `gorm:"column:user_id;type:uuid;index" json:"user_id"`
	SessionID string          `gorm:"column:session_id;type:uuid;index" json:"session_id"`
	Role      string          `gorm:"column:role;type:text" json:"role"` // "user" | "assistant"
	Content   string          `gorm:"column:content;type:text" json:"content"`
	Embedding *pgvector.Vector `gorm:"column:embedding;type:vector(1536)" json:"-"`
	Timestamp time.Time       `gorm:"column:timestamp;type:timestamptz;index" json:"timestamp"`
	Metadata  datatypes.JSON  `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`
}

func (ChatMessage) TableName() string { return "chat_messages" }
