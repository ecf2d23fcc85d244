package services

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/vidbrief/vidbrief/internal/chat"
	"github.com/vidbrief/vidbrief/internal/models"
	"github.com/vidbrief/vidbrief/internal/utils"
	"go.mongodb.org/mongo-driver/mongo"
)

type fakeSessionRepo struct {
	sessions map[string]*models.ChatSession // by session_id
	touched  map[string]time.Time
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{
		sessions: make(map[string]*models.ChatSession),
		touched:  make(map[string]time.Time),
	}
}

func (f *fakeSessionRepo) Create(ctx context.Context, s *models.ChatSession) error {
	for _, existing := range f.sessions {
		if existing.SummaryID == s.SummaryID && existing.UserID == s.UserID {
			return mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000}}}
		}
	}
	cp := *s
	f.sessions[s.SessionID] = &cp
	return nil
}

func (f *fakeSessionRepo) GetBySessionID(ctx context.Context, sessionID string) (*models.ChatSession, error) {
	s, ok := f.sessions[sessionID]
	if !ok {
		return nil, utils.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSessionRepo) GetBySummaryAndUser(ctx context.Context, summaryID, userID string) (*models.ChatSession, error) {
	for _, s := range f.sessions {
		if s.SummaryID == summaryID && s.UserID == userID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, utils.ErrNotFound
}

func (f *fakeSessionRepo) Touch(ctx context.Context, sessionID string, at time.Time) error {
	f.touched[sessionID] = at
	return nil
}

type fakeMessageRepo struct {
	rows []models.ChatMessage
}

func (f *fakeMessageRepo) Insert(ctx context.Context, m *models.ChatMessage) error {
	f.rows = append(f.rows, *m)
	return nil
}

func (f *fakeMessageRepo) ListBySession(ctx context.Context, userID, sessionID string, limit int) ([]models.ChatMessage, error) {
	if limit <= 0 {
		limit = 200
	}
	var out []models.ChatMessage
	for _, m := range f.rows {
		if m.UserID == userID && m.SessionID == sessionID {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeMessageRepo) ListRecent(ctx context.Context, userID, sessionID string, n int) ([]models.ChatMessage, error) {
	if n <= 0 {
		return nil, nil
	}
	var out []models.ChatMessage
	for _, m := range f.rows {
		if m.UserID == userID && m.SessionID == sessionID {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	if len(out) > n {
		out = out[len(out)-n:]
	}
	return out, nil
}

type stubLLM struct{ answer string }

func (s *stubLLM) Complete(ctx context.Context, prompt string) (string, error) {
	return s.answer, nil
}

func (s *stubLLM) StreamAnswer(ctx context.Context, prompt string) (<-chan string, <-chan error) {
	out := make(chan string, 1)
	errs := make(chan error, 1)
	out <- s.answer
	close(out)
	close(errs)
	return out, errs
}

func (s *stubLLM) Close() error { return nil }

func newChatFixture(t *testing.T) (ChatService, *fakeSessionRepo, *fakeMessageRepo, chat.Registry) {
	t.Helper()
	sessions := newFakeSessionRepo()
	messages := &fakeMessageRepo{}
	engines := chat.NewMemoryRegistry()
	summaries := &fakeSummaryRepo{artifacts: []models.SummaryArtifact{{
		SummaryID:   "sum-1",
		UserID:      "owner",
		VideoID:     "vid-1",
		Transcript:  "The speaker walks through the release plan.",
		TextSummary: "Release plan walkthrough.",
		KeyPoints:   []string{"Ship in March"},
		Language:    "en-US",
	}}}
	svc := NewChatService(sessions, summaries, messages, engines, &stubLLM{answer: "It covers the release plan."}, nil, quietLogger())
	return svc, sessions, messages, engines
}

func TestStartSessionIsIdempotent(t *testing.T) {
	t.Parallel()

	svc, sessions, _, _ := newChatFixture(t)

	first, err := svc.StartSession(context.Background(), "owner", "sum-1")
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	second, err := svc.StartSession(context.Background(), "owner", "sum-1")
	if err != nil {
		t.Fatalf("StartSession again: %v", err)
	}
	if first.SessionID != second.SessionID {
		t.Fatalf("session ids differ: %s vs %s", first.SessionID, second.SessionID)
	}
	if len(sessions.sessions) != 1 {
		t.Fatalf("stored %d sessions, want 1", len(sessions.sessions))
	}
}

func TestStartSessionCreateRaceReturnsWinner(t *testing.T) {
	t.Parallel()

	svc, sessions, _, _ := newChatFixture(t)

	// Pre-insert directly, bypassing the service's existence check, to make
	// Create hit the duplicate-key path.
	winner := &models.ChatSession{SessionID: "existing", UserID: "owner", SummaryID: "sum-1"}
	sessions.sessions["existing"] = winner

	got, err := svc.StartSession(context.Background(), "owner", "sum-1")
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if got.SessionID != "existing" {
		t.Fatalf("session = %s, want existing", got.SessionID)
	}
}

func TestStartSessionHidesForeignSummaries(t *testing.T) {
	t.Parallel()

	svc, _, _, _ := newChatFixture(t)

	_, err := svc.StartSession(context.Background(), "intruder", "sum-1")
	if code := errCode(t, err); code != utils.CodeNotFound {
		t.Fatalf("code = %s, want NOT_FOUND", code)
	}
	_, err = svc.StartSession(context.Background(), "owner", "no-such-summary")
	if code := errCode(t, err); code != utils.CodeNotFound {
		t.Fatalf("code = %s, want NOT_FOUND", code)
	}
}

func TestAskAppendsOrderedMessagePairs(t *testing.T) {
	t.Parallel()

	svc, sessions, messages, _ := newChatFixture(t)

	sess, err := svc.StartSession(context.Background(), "owner", "sum-1")
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	res1, err := svc.Ask(context.Background(), "owner", sess.SessionID, "what is it about?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if res1.Answer != "It covers the release plan." {
		t.Fatalf("answer = %q", res1.Answer)
	}
	res2, err := svc.Ask(context.Background(), "owner", sess.SessionID, "when does it ship?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}

	rows, err := svc.History(context.Background(), "owner", sess.SessionID, 0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("len(history) = %d, want 4", len(rows))
	}
	wantRoles := []string{"user", "assistant", "user", "assistant"}
	for i, m := range rows {
		if m.Role != wantRoles[i] {
			t.Fatalf("row %d role = %s, want %s", i, m.Role, wantRoles[i])
		}
		if i > 0 && rows[i].Timestamp.Before(rows[i-1].Timestamp) {
			t.Fatalf("timestamps not non-decreasing at row %d", i)
		}
	}
	if rows[0].Content != "what is it about?" || rows[2].Content != "when does it ship?" {
		t.Fatal("question contents out of order")
	}

	if len(res2.Messages) != 4 {
		t.Fatalf("recent messages = %d, want 4", len(res2.Messages))
	}
	if _, ok := sessions.touched[sess.SessionID]; !ok {
		t.Fatal("session updated_at not touched")
	}
	if len(messages.rows) != 4 {
		t.Fatalf("stored %d rows, want 4", len(messages.rows))
	}
}

func TestAskReturnsNewestMessagesOnLongSessions(t *testing.T) {
	t.Parallel()

	svc, _, messages, _ := newChatFixture(t)

	sess, err := svc.StartSession(context.Background(), "owner", "sum-1")
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	var last *AskResult
	questions := []string{"q1?", "q2?", "q3?", "q4?", "q5?", "q6?"}
	for _, q := range questions {
		last, err = svc.Ask(context.Background(), "owner", sess.SessionID, q)
		if err != nil {
			t.Fatalf("Ask(%q): %v", q, err)
		}
	}

	if len(messages.rows) != 12 {
		t.Fatalf("stored %d rows, want 12", len(messages.rows))
	}
	if len(last.Messages) != recentMessages {
		t.Fatalf("recent window = %d messages, want %d", len(last.Messages), recentMessages)
	}
	// Window must hold the newest turns, oldest first.
	if got := last.Messages[0].Content; got != "q2?" {
		t.Fatalf("window starts at %q, want the second question", got)
	}
	tail := last.Messages[len(last.Messages)-2]
	if tail.Role != "user" || tail.Content != "q6?" {
		t.Fatalf("window tail = %s %q, want the latest question", tail.Role, tail.Content)
	}
	for i := 1; i < len(last.Messages); i++ {
		if last.Messages[i].Timestamp.Before(last.Messages[i-1].Timestamp) {
			t.Fatalf("timestamps not non-decreasing at row %d", i)
		}
	}
}

func TestAskRebuildsEngineFromArtifact(t *testing.T) {
	t.Parallel()

	svc, _, _, engines := newChatFixture(t)

	sess, err := svc.StartSession(context.Background(), "owner", "sum-1")
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	// Simulate a restart: the in-memory engine cache is gone, the durable
	// artifact and session are not.
	engines.Remove(sess.SessionID)

	res, err := svc.Ask(context.Background(), "owner", sess.SessionID, "still there?")
	if err != nil {
		t.Fatalf("Ask after engine loss: %v", err)
	}
	if res.Answer == "" {
		t.Fatal("empty answer after rebuild")
	}
	if _, ok := engines.Get(sess.SessionID); !ok {
		t.Fatal("rebuilt engine not cached")
	}
}

func TestAskValidation(t *testing.T) {
	t.Parallel()

	svc, _, _, _ := newChatFixture(t)

	sess, err := svc.StartSession(context.Background(), "owner", "sum-1")
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	_, err = svc.Ask(context.Background(), "owner", sess.SessionID, "   ")
	if code := errCode(t, err); code != utils.CodeInvalidArgument {
		t.Fatalf("blank question code = %s, want INVALID_ARGUMENT", code)
	}
	_, err = svc.Ask(context.Background(), "owner", "no-such-session", "hi")
	if code := errCode(t, err); code != utils.CodeNotFound {
		t.Fatalf("unknown session code = %s, want NOT_FOUND", code)
	}
	_, err = svc.Ask(context.Background(), "intruder", sess.SessionID, "hi")
	if code := errCode(t, err); code != utils.CodeNotFound {
		t.Fatalf("foreign session code = %s, want NOT_FOUND", code)
	}
}
