package workers

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/vidbrief/vidbrief/internal/models"
	"github.com/vidbrief/vidbrief/internal/pipeline"
	mongorepo "github.com/vidbrief/vidbrief/internal/repositories/mongo"
	"github.com/vidbrief/vidbrief/internal/taskstore"
	"github.com/vidbrief/vidbrief/internal/utils"
)

// Job is one summarize request on the stream. Validation happened at
// submit time; workers only re-check what can change between submit and
// pickup (the file on disk).
type Job struct {
	TaskID          string  `json:"task_id"`
	UserID          string  `json:"user_id"`
	VideoPath       string  `json:"video_path"`
	SummaryRatio    float64 `json:"summary_ratio"`
	MaxSummaryWords int     `json:"max_summary_words"`
	Language        string  `json:"language"`
}

type Enqueuer interface {
	Enqueue(ctx context.Context, job Job) error
}

const DefaultStream = "summarize:stream"

// RedisEnqueuer appends jobs to the summarize stream.
type RedisEnqueuer struct {
	Redis  *redis.Client
	Stream string
}

func (e *RedisEnqueuer) Enqueue(ctx context.Context, job Job) error {
	stream := e.Stream
	if stream == "" {
		stream = DefaultStream
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return e.Redis.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]any{"job": string(payload)},
	}).Err()
}

type SummarizeWorkerPool struct {
	Redis      *redis.Client
	Tasks      taskstore.Registry
	Summaries  mongorepo.SummaryRepository
	Videos     mongorepo.VideoRepository
	Pipeline   *pipeline.Pipeline
	NumWorkers int

	Logger *logrus.Logger

	Stream         string
	Group          string
	ConsumerPrefix string
}

func (p *SummarizeWorkerPool) Start(ctx context.Context) error {
	if p.Redis == nil || p.Tasks == nil || p.Summaries == nil || p.Pipeline == nil {
		return errors.New("SummarizeWorkerPool missing dependency: Redis/Tasks/Summaries/Pipeline must be set")
	}
	if p.Stream == "" {
		p.Stream = DefaultStream
	}
	if p.Group == "" {
		p.Group = "summarize-workers"
	}
	if p.ConsumerPrefix == "" {
		p.ConsumerPrefix = "c"
	}
	if p.NumWorkers <= 0 {
		p.NumWorkers = 2
	}
	if p.Logger == nil {
		p.Logger = logrus.New()
	}

	_ = p.Redis.XGroupCreateMkStream(ctx, p.Stream, p.Group, "0").Err() // ignore BUSYGROUP

	for i := 0; i < p.NumWorkers; i++ {
		consumer := p.ConsumerPrefix + "-" + strconv.Itoa(i+1)
		go p.runConsumer(ctx, consumer)
	}
	return nil
}

func (p *SummarizeWorkerPool) runConsumer(ctx context.Context, consumer string) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res, err := p.Redis.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    p.Group,
			Consumer: consumer,
			Streams:  []string{p.Stream, ">"},
			Count:    1,
			Block:    5 * time.Second,
		}).Result()

		if err != nil {
			if err == redis.Nil {
				continue
			}
			time.Sleep(500 * time.Millisecond)
			continue
		}

		for _, stream := range res {
			for _, msg := range stream.Messages {
				p.handleMsg(ctx, msg)
				_ = p.Redis.XAck(ctx, p.Stream, p.Group, msg.ID).Err()
			}
		}
	}
}

func (p *SummarizeWorkerPool) handleMsg(ctx context.Context, msg redis.XMessage) {
	raw, _ := msg.Values["job"].(string)
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil || job.TaskID == "" {
		p.Logger.WithField("redis_id", msg.ID).Warn("malformed job payload, dropping")
		return
	}

	log := p.Logger.WithFields(logrus.Fields{
		"redis_id": msg.ID,
		"task_id":  job.TaskID,
		"user_id":  job.UserID,
	})

	if err := p.Tasks.MarkProcessing(job.TaskID); err != nil {
		// Already terminal or unknown: a replayed delivery, skip it.
		log.WithError(err).Warn("task not in pending state, skipping")
		return
	}
	p.publishStatus(ctx, job.TaskID, models.TaskProcessing, "")

	out, err := p.Pipeline.Run(ctx, pipeline.Params{
		VideoPath:       job.VideoPath,
		SummaryRatio:    job.SummaryRatio,
		MaxSummaryWords: job.MaxSummaryWords,
		Language:        job.Language,
	})
	if err != nil {
		log.WithError(err).Error("pipeline failed")
		p.fail(ctx, job.TaskID, err)
		return
	}

	artifact := p.buildArtifact(ctx, job, out)
	if err := p.Summaries.Insert(ctx, artifact); err != nil {
		log.WithError(err).Error("artifact persist failed")
		p.fail(ctx, job.TaskID, utils.E(utils.CodeInternal, "SummarizeWorkerPool.handleMsg", "failed to store summary", err))
		return
	}

	if err := p.Tasks.MarkDone(job.TaskID, artifact.SummaryID); err != nil {
		log.WithError(err).Error("task completion failed")
		return
	}
	p.publishStatus(ctx, job.TaskID, models.TaskDone, "")
	log.WithField("summary_id", artifact.SummaryID).Info("summarize task done")
}

func (p *SummarizeWorkerPool) buildArtifact(ctx context.Context, job Job, out *pipeline.Output) *models.SummaryArtifact {
	transcript := utils.TruncateUTF8(out.Transcript, models.TranscriptStoreLimit)

	info := models.VideoInfo{
		Path:     job.VideoPath,
		Filename: filepath.Base(job.VideoPath),
	}
	videoID := ""
	if p.Videos != nil {
		if v, err := p.Videos.GetByPath(ctx, job.VideoPath); err == nil {
			videoID = v.FileID
			info.FileID = v.FileID
			info.Filename = v.OriginalName
			info.Size = v.FileSize
		}
	}
	if info.Size == 0 {
		if st, err := os.Stat(job.VideoPath); err == nil {
			info.Size = st.Size()
		}
	}

	return &models.SummaryArtifact{
		SummaryID:   uuid.NewString(),
		TaskID:      job.TaskID,
		VideoID:     videoID,
		UserID:      job.UserID,
		Transcript:  transcript,
		TextSummary: out.Summary,
		KeyPoints:   out.KeyPoints,
		Segments:    out.Selected,
		VideoInfo:   info,
		Language:    out.Language,
		CreatedAt:   time.Now().UTC(),
	}
}

// fail records the terminal state with a sanitized message; the full error
// goes to the log only.
func (p *SummarizeWorkerPool) fail(ctx context.Context, taskID string, err error) {
	msg := utils.SafeMessage(err)
	if markErr := p.Tasks.MarkFailed(taskID, msg); markErr != nil {
		p.Logger.WithError(markErr).WithField("task_id", taskID).Error("task failure record failed")
		return
	}
	p.publishStatus(ctx, taskID, models.TaskFailed, msg)
}

func (p *SummarizeWorkerPool) publishStatus(ctx context.Context, taskID string, status models.TaskStatus, message string) {
	payload, _ := json.Marshal(map[string]any{
		"type":    "status",
		"task_id": taskID,
		"status":  status,
		"message": message,
	})
	_ = p.Redis.Publish(ctx, "task:"+taskID+":status", string(payload)).Err()
}
