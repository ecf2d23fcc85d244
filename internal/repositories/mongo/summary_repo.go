package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/vidbrief/vidbrief/internal/models"
	"github.com/vidbrief/vidbrief/internal/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type SummaryRepository interface {
	Insert(ctx context.Context, a *models.SummaryArtifact) error
	GetBySummaryID(ctx context.Context, summaryID string) (*models.SummaryArtifact, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]models.SummaryArtifact, error)
}

type summaryRepo struct {
	col *mongo.Collection
}

func NewSummaryRepo(db *mongo.Database) SummaryRepository {
	return &summaryRepo{col: db.Collection("summaries")}
}

func (r *summaryRepo) Insert(ctx context.Context, a *models.SummaryArtifact) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	_, err := r.col.InsertOne(ctx, a)
	return err
}

func (r *summaryRepo) GetBySummaryID(ctx context.Context, summaryID string) (*models.SummaryArtifact, error) {
	var a models.SummaryArtifact
	err := r.col.FindOne(ctx, bson.M{"summary_id": summaryID}).Decode(&a)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.ErrNotFound
	}
	return &a, err
}

func (r *summaryRepo) ListByUser(ctx context.Context, userID string, limit int) ([]models.SummaryArtifact, error) {
	if limit <= 0 {
		limit = 50
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))
	cur, err := r.col.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var rows []models.SummaryArtifact
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}
