package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/sirupsen/logrus"
	"github.com/vidbrief/vidbrief/internal/chat"
	"github.com/vidbrief/vidbrief/internal/models"
	"github.com/vidbrief/vidbrief/internal/providers/embed"
	"github.com/vidbrief/vidbrief/internal/providers/llm"
	mongorepo "github.com/vidbrief/vidbrief/internal/repositories/mongo"
	pgrepo "github.com/vidbrief/vidbrief/internal/repositories/postgres"
	"github.com/vidbrief/vidbrief/internal/utils"
	"go.mongodb.org/mongo-driver/mongo"
)

const recentMessages = 10

type AskResult struct {
	SessionID string               `json:"session_id"`
	Answer    string               `json:"answer"`
	Timestamp time.Time            `json:"timestamp"`
	Messages  []models.ChatMessage `json:"messages"`
}

type ChatService interface {
	// StartSession is idempotent per (summary, user): repeated calls return
	// the same session.
	StartSession(ctx context.Context, userID, summaryID string) (*models.ChatSession, error)
	// Session returns the session after an ownership check; the websocket
	// handler authorizes with it before upgrading.
	Session(ctx context.Context, userID, sessionID string) (*models.ChatSession, error)
	Ask(ctx context.Context, userID, sessionID, question string) (*AskResult, error)
	History(ctx context.Context, userID, sessionID string, limit int) ([]models.ChatMessage, error)
}

type chatService struct {
	sessions  mongorepo.SessionRepository
	summaries mongorepo.SummaryRepository
	messages  pgrepo.MessageRepository
	engines   chat.Registry
	llm       llm.Provider
	embedder  embed.Embedder
	log       *logrus.Logger
}

func NewChatService(
	sessions mongorepo.SessionRepository,
	summaries mongorepo.SummaryRepository,
	messages pgrepo.MessageRepository,
	engines chat.Registry,
	provider llm.Provider,
	embedder embed.Embedder,
	log *logrus.Logger,
) ChatService {
	return &chatService{
		sessions:  sessions,
		summaries: summaries,
		messages:  messages,
		engines:   engines,
		llm:       provider,
		embedder:  embedder,
		log:       log,
	}
}

func (s *chatService) StartSession(ctx context.Context, userID, summaryID string) (*models.ChatSession, error) {
	const op = "ChatService.StartSession"

	artifact, err := s.ownedArtifact(ctx, op, userID, summaryID)
	if err != nil {
		return nil, err
	}

	if existing, err := s.sessions.GetBySummaryAndUser(ctx, summaryID, userID); err == nil {
		s.ensureEngine(existing.SessionID, artifact)
		return existing, nil
	} else if err != utils.ErrNotFound {
		return nil, utils.E(utils.CodeInternal, op, "failed to look up session", err)
	}

	sess := &models.ChatSession{
		SessionID: uuid.NewString(),
		UserID:    userID,
		VideoID:   artifact.VideoID,
		SummaryID: summaryID,
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		// Lost a create race: the unique (summary_id, user_id) index kept
		// exactly one, return that one.
		if mongo.IsDuplicateKeyError(err) {
			existing, lookupErr := s.sessions.GetBySummaryAndUser(ctx, summaryID, userID)
			if lookupErr != nil {
				return nil, utils.E(utils.CodeInternal, op, "failed to look up session", lookupErr)
			}
			s.ensureEngine(existing.SessionID, artifact)
			return existing, nil
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to create session", err)
	}

	s.engines.Put(sess.SessionID, chat.NewEngine(s.llm, artifact))
	s.log.WithFields(logrus.Fields{"session_id": sess.SessionID, "summary_id": summaryID}).Info("chat session started")
	return sess, nil
}

func (s *chatService) Session(ctx context.Context, userID, sessionID string) (*models.ChatSession, error) {
	const op = "ChatService.Session"
	return s.ownedSession(ctx, op, userID, sessionID)
}

func (s *chatService) Ask(ctx context.Context, userID, sessionID, question string) (*AskResult, error) {
	const op = "ChatService.Ask"

	question = strings.TrimSpace(question)
	if question == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "question is required", nil)
	}

	sess, err := s.ownedSession(ctx, op, userID, sessionID)
	if err != nil {
		return nil, err
	}

	engine, ok := s.engines.Get(sessionID)
	if !ok {
		// Engine cache lost (restart); rebuild from the stored artifact.
		artifact, err := s.summaries.GetBySummaryID(ctx, sess.SummaryID)
		if err != nil {
			return nil, utils.E(utils.CodeInternal, op, "failed to load summary for session", err)
		}
		engine = chat.NewEngine(s.llm, artifact)
		s.engines.Put(sessionID, engine)
	}

	askedAt := time.Now().UTC()
	answer := engine.Ask(ctx, question)
	answeredAt := time.Now().UTC()

	userVec, assistantVec := s.embedPair(ctx, question, answer)
	userMsg := &models.ChatMessage{
		ID:        uuid.NewString(),
		UserID:    userID,
		SessionID: sessionID,
		Role:      "user",
		Content:   question,
		Embedding: userVec,
		Timestamp: askedAt,
	}
	assistantMsg := &models.ChatMessage{
		ID:        uuid.NewString(),
		UserID:    userID,
		SessionID: sessionID,
		Role:      "assistant",
		Content:   answer,
		Embedding: assistantVec,
		Timestamp: answeredAt,
	}
	if err := s.messages.Insert(ctx, userMsg); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to record message", err)
	}
	if err := s.messages.Insert(ctx, assistantMsg); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to record message", err)
	}

	if err := s.sessions.Touch(ctx, sessionID, answeredAt); err != nil {
		s.log.WithError(err).WithField("session_id", sessionID).Warn("session touch failed")
	}

	rows, err := s.messages.ListRecent(ctx, userID, sessionID, recentMessages)
	if err != nil {
		s.log.WithError(err).WithField("session_id", sessionID).Warn("recent messages load failed")
		rows = []models.ChatMessage{*userMsg, *assistantMsg}
	}

	return &AskResult{
		SessionID: sessionID,
		Answer:    answer,
		Timestamp: answeredAt,
		Messages:  rows,
	}, nil
}

func (s *chatService) History(ctx context.Context, userID, sessionID string, limit int) ([]models.ChatMessage, error) {
	const op = "ChatService.History"

	if _, err := s.ownedSession(ctx, op, userID, sessionID); err != nil {
		return nil, err
	}
	rows, err := s.messages.ListBySession(ctx, userID, sessionID, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list messages", err)
	}
	return rows, nil
}

func (s *chatService) ownedArtifact(ctx context.Context, op, userID, summaryID string) (*models.SummaryArtifact, error) {
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
	return a, nil
}

func (s *chatService) ownedSession(ctx context.Context, op, userID, sessionID string) (*models.ChatSession, error) {
	sess, err := s.sessions.GetBySessionID(ctx, sessionID)
	if err != nil {
		if err == utils.ErrNotFound {
			return nil, utils.E(utils.CodeNotFound, op, "session not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load session", err)
	}
	if sess.UserID != userID {
		return nil, utils.E(utils.CodeNotFound, op, "session not found", utils.ErrNotFound)
	}
	return sess, nil
}

func (s *chatService) ensureEngine(sessionID string, artifact *models.SummaryArtifact) {
	if _, ok := s.engines.Get(sessionID); !ok {
		s.engines.Put(sessionID, chat.NewEngine(s.llm, artifact))
	}
}

// embedPair computes message embeddings when an embedder is configured.
// Failures leave the column null; chat never blocks on embeddings.
func (s *chatService) embedPair(ctx context.Context, question, answer string) (*pgvector.Vector, *pgvector.Vector) {
	if s.embedder == nil {
		return nil, nil
	}
	vecs, err := s.embedder.Embed(ctx, []string{question, answer})
	if err != nil || len(vecs) != 2 {
		if err != nil && err != embed.ErrUnavailable {
			s.log.WithError(err).Warn("message embedding failed")
		}
		return nil, nil
	}
	u := pgvector.NewVector(vecs[0])
	a := pgvector.NewVector(vecs[1])
	return &u, &a
}
