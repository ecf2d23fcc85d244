package postgres

import (
	"context"

	"github.com/vidbrief/vidbrief/internal/models"
	"gorm.io/gorm"
)

type MessageRepository interface {
	// Insert appends one message row. Each message is its own row, so a
	// concurrent append never rewrites another message.
	Insert(ctx context.Context, m *models.ChatMessage) error
	ListBySession(ctx context.Context, userID, sessionID string, limit int) ([]models.ChatMessage, error)
	// ListRecent returns the newest n messages of a session in chronological
	// order, regardless of how long the session has grown.
	ListRecent(ctx context.Context, userID, sessionID string, n int) ([]models.ChatMessage, error)
}

type messageRepo struct {
	db *gorm.DB
}

func NewMessageRepo(db *gorm.DB) MessageRepository {
	return &messageRepo{db: db}
}

func (r *messageRepo) Insert(ctx context.Context, m *models.ChatMessage) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *messageRepo) ListBySession(ctx context.Context, userID, sessionID string, limit int) ([]models.ChatMessage, error) {
	if limit <= 0 {
		limit = 200
	}

	var rows []models.ChatMessage
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND session_id = ?", userID, sessionID).
		Order("timestamp ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *messageRepo) ListRecent(ctx context.Context, userID, sessionID string, n int) ([]models.ChatMessage, error) {
	if n <= 0 {
		return nil, nil
	}

	var rows []models.ChatMessage
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND session_id = ?", userID, sessionID).
		Order("timestamp DESC").
		Limit(n).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows, nil
}
