package services

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/vidbrief/vidbrief/internal/cache"
	"github.com/vidbrief/vidbrief/internal/models"
	mongorepo "github.com/vidbrief/vidbrief/internal/repositories/mongo"
	"github.com/vidbrief/vidbrief/internal/taskstore"
	"github.com/vidbrief/vidbrief/internal/utils"
	"github.com/vidbrief/vidbrief/internal/workers"
)

const (
	historyLimit    = 50
	summaryCacheTTL = 10 * time.Minute
)

type SubmitRequest struct {
	VideoPath       string  `json:"video_path" binding:"required"`
	SummaryRatio    float64 `json:"summary_ratio"`
	MaxSummaryWords int     `json:"max_summary_words"`
	Language        string  `json:"language"`
}

type SummarizeService interface {
	// Submit validates the request, registers a pending task and enqueues
	// the job. The heavy pipeline never runs on the request path.
	Submit(ctx context.Context, userID string, req SubmitRequest) (taskID string, err error)
	Status(ctx context.Context, userID, taskID string) (models.Task, error)
	History(ctx context.Context, userID string, limit int) ([]models.SummaryArtifact, error)
	Get(ctx context.Context, userID, summaryID string) (*models.SummaryArtifact, error)
}

type summarizeService struct {
	tasks     taskstore.Registry
	summaries mongorepo.SummaryRepository
	queue     workers.Enqueuer
	cache     cache.Cache
	log       *logrus.Logger
}

func NewSummarizeService(tasks taskstore.Registry, summaries mongorepo.SummaryRepository, queue workers.Enqueuer, c cache.Cache, log *logrus.Logger) SummarizeService {
	return &summarizeService{tasks: tasks, summaries: summaries, queue: queue, cache: c, log: log}
}

func (s *summarizeService) Submit(ctx context.Context, userID string, req SubmitRequest) (string, error) {
	const op = "SummarizeService.Submit"

	if req.VideoPath == "" {
		return "", utils.E(utils.CodeInvalidArgument, op, "video_path is required", nil)
	}
	if req.SummaryRatio < 0 || req.SummaryRatio > 1 {
		return "", utils.E(utils.CodeInvalidArgument, op, "summary_ratio must be within (0, 1]", nil)
	}
	if req.MaxSummaryWords < 0 {
		return "", utils.E(utils.CodeInvalidArgument, op, "max_summary_words must be positive", nil)
	}
	if st, err := os.Stat(req.VideoPath); err != nil || st.IsDir() {
		return "", utils.E(utils.CodeInvalidArgument, op, "video file not found", err)
	}

	taskID := uuid.NewString()
	s.tasks.Put(models.Task{
		TaskID:    taskID,
		UserID:    userID,
		Status:    models.TaskPending,
		CreatedAt: time.Now().UTC(),
	})

	err := s.queue.Enqueue(ctx, workers.Job{
		TaskID:          taskID,
		UserID:          userID,
		VideoPath:       req.VideoPath,
		SummaryRatio:    req.SummaryRatio,
		MaxSummaryWords: req.MaxSummaryWords,
		Language:        req.Language,
	})
	if err != nil {
		// Never leave a pending task no worker will pick up.
		s.tasks.Remove(taskID)
		return "", utils.E(utils.CodeUnavailable, op, "failed to queue task", err)
	}

	s.log.WithFields(logrus.Fields{"task_id": taskID, "user_id": userID}).Info("summarize task queued")
	return taskID, nil
}

func (s *summarizeService) Status(ctx context.Context, userID, taskID string) (models.Task, error) {
	const op = "SummarizeService.Status"

	t, ok := s.tasks.Get(taskID)
	if !ok {
		return models.Task{}, utils.E(utils.CodeNotFound, op, "task not found", utils.ErrNotFound)
	}
	// Another user's task looks identical to a missing one.
	if t.UserID != userID {
		return models.Task{}, utils.E(utils.CodeNotFound, op, "task not found", utils.ErrNotFound)
	}
	return t, nil
}

func (s *summarizeService) History(ctx context.Context, userID string, limit int) ([]models.SummaryArtifact, error) {
	const op = "SummarizeService.History"

	if limit <= 0 || limit > historyLimit {
		limit = historyLimit
	}
	rows, err := s.summaries.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list summaries", err)
	}
	return rows, nil
}

func (s *summarizeService) Get(ctx context.Context, userID, summaryID string) (*models.SummaryArtifact, error) {
	const op = "SummarizeService.Get"

	cacheKey := cache.SummaryKey(summaryID)
	if s.cache != nil {
		var cached models.SummaryArtifact
		if hit, err := s.cache.GetJSON(ctx, cacheKey, &cached); err == nil && hit {
			if cached.UserID != userID {
				return nil, utils.E(utils.CodeNotFound, op, "summary not found", utils.ErrNotFound)
			}
			return &cached, nil
		}
	}

	a, err := s.summaries.GetBySummaryID(ctx, summaryID)
	if err != nil {
		if err == utils.ErrNotFound {
			return nil, utils.E(utils.CodeNotFound, op, "summary not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load summary", err)
	}
	if a.UserID != userID {
		return nil, utils.E(utils.CodeNotFound, op, "summary not found", utils.ErrNotFound)
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, cacheKey, a, summaryCacheTTL); err != nil {
			s.log.WithError(err).Warn("summary cache write failed")
		}
	}
	return a, nil
}
