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

type VideoRepository interface {
	Insert(ctx context.Context, v *models.Video) error
	GetByFileID(ctx context.Context, fileID string) (*models.Video, error)
	GetByPath(ctx context.Context, filePath string) (*models.Video, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]models.Video, error)
}

type videoRepo struct {
	col *mongo.Collection
}

func NewVideoRepo(db *mongo.Database) VideoRepository {
	return &videoRepo{col: db.Collection("videos")}
}

func (r *videoRepo) Insert(ctx context.Context, v *models.Video) error {
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}
	_, err := r.col.InsertOne(ctx, v)
	return err
}

func (r *videoRepo) GetByFileID(ctx context.Context, fileID string) (*models.Video, error) {
	var v models.Video
	err := r.col.FindOne(ctx, bson.M{"file_id": fileID}).Decode(&v)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.ErrNotFound
	}
	return &v, err
}

func (r *videoRepo) GetByPath(ctx context.Context, filePath string) (*models.Video, error) {
	var v models.Video
	err := r.col.FindOne(ctx, bson.M{"file_path": filePath}).Decode(&v)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.ErrNotFound
	}
	return &v, err
}

func (r *videoRepo) ListByUser(ctx context.Context, userID string, limit int) ([]models.Video, error) {
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

	var rows []models.Video
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}
