package poll

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hafbjorn109/wiperino/internal/adapter/metrics"
	"github.com/hafbjorn109/wiperino/internal/domain"
	apperrors "github.com/hafbjorn109/wiperino/internal/platform/errors"
	"github.com/hafbjorn109/wiperino/internal/protocol"
)

const (
	sessionIDLength      = 12
	maxSessionIDAttempts = 5
)

// Service implements poll session and question operations.
type Service struct {
	store   domain.EphemeralStore
	metrics *metrics.PollMetrics
	ttl     time.Duration
	appURL  string
}

func NewService(store domain.EphemeralStore, m *metrics.PollMetrics, ttl time.Duration, appURL string) *Service {
	return &Service{
		store:   store,
		metrics: m,
		ttl:     ttl,
		appURL:  strings.TrimSuffix(appURL, "/"),
	}
}

// CreatedSession is the result of CreateSession: the session id, its three
// room-access tokens and the page URLs built from them.
type CreatedSession struct {
	SessionID    string
	Tokens       domain.PollTokens
	ModeratorURL string
	ViewerURL    string
	OverlayURL   string
}

// CreateSession stores a new empty session and maps three fresh tokens to it.
func (s *Service) CreateSession(ctx context.Context) (*CreatedSession, error) {
	sessionID, err := s.reserveSessionID(ctx)
	if err != nil {
		return nil, err
	}

	tokens := domain.PollTokens{
		Moderator: sessionID + domain.ModeratorMarker + randomHex(),
		Viewer:    randomHex(),
		Overlay:   randomHex(),
	}
	for _, token := range []string{tokens.Moderator, tokens.Viewer, tokens.Overlay} {
		if err := s.store.Set(ctx, domain.TokenKey(token), sessionID, s.ttl); err != nil {
			return nil, storeFailure("map token", err)
		}
	}

	s.metrics.SessionsCreated.Inc()
	slog.InfoContext(ctx, "Poll session created", "session_id", sessionID)

	return &CreatedSession{
		SessionID:    sessionID,
		Tokens:       tokens,
		ModeratorURL: s.appURL + "/polls/m/" + tokens.Moderator,
		ViewerURL:    s.appURL + "/polls/v/" + tokens.Viewer,
		OverlayURL:   s.appURL + "/polls/o/" + tokens.Overlay,
	}, nil
}

func (s *Service) reserveSessionID(ctx context.Context) (string, error) {
	empty, err := json.Marshal(domain.PollSession{})
	if err != nil {
		return "", apperrors.InternalError("failed to encode session", err)
	}

	for range maxSessionIDAttempts {
		id := randomHex()[:sessionIDLength]
		ok, err := s.store.SetNX(ctx, domain.SessionKey(id), string(empty), s.ttl)
		if err != nil {
			return "", storeFailure("create session", err)
		}
		if ok {
			return id, nil
		}
	}
	return "", apperrors.ConflictError("could not allocate a session id")
}

// GetSession loads a session record.
func (s *Service) GetSession(ctx context.Context, sessionID string) (*domain.PollSession, error) {
	raw, err := s.store.Get(ctx, domain.SessionKey(sessionID))
	if errors.Is(err, domain.ErrKeyNotFound) {
		return nil, notFound(domain.ErrSessionNotFound)
	}
	if err != nil {
		return nil, storeFailure("load session", err)
	}

	var session domain.PollSession
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return nil, apperrors.InternalError("corrupt session record", err).WithContext("session_id", sessionID)
	}
	session.ID = sessionID
	return &session, nil
}

func (s *Service) saveSession(ctx context.Context, session *domain.PollSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return apperrors.InternalError("failed to encode session", err)
	}
	if err := s.store.Set(ctx, domain.SessionKey(session.ID), string(data), s.ttl); err != nil {
		return storeFailure("save session", err)
	}
	return nil
}

// GetQuestion loads a question record.
func (s *Service) GetQuestion(ctx context.Context, questionID string) (*domain.Question, error) {
	raw, err := s.store.Get(ctx, domain.QuestionKey(questionID))
	if errors.Is(err, domain.ErrKeyNotFound) {
		return nil, notFound(domain.ErrQuestionNotFound)
	}
	if err != nil {
		return nil, storeFailure("load question", err)
	}

	var q domain.Question
	if err := json.Unmarshal([]byte(raw), &q); err != nil {
		return nil, apperrors.InternalError("corrupt question record", err).WithContext("question_id", questionID)
	}
	if q.ID == "" {
		q.ID = questionID
	}
	return &q, nil
}

// sessionQuestion loads a question and checks it may be used in sessionID.
func (s *Service) sessionQuestion(ctx context.Context, sessionID, questionID string) (*domain.Question, error) {
	q, err := s.GetQuestion(ctx, questionID)
	if err != nil {
		return nil, err
	}
	if !q.BelongsTo(sessionID) {
		return nil, notFound(domain.ErrQuestionNotFound)
	}
	return q, nil
}

func (s *Service) saveQuestion(ctx context.Context, q *domain.Question) error {
	data, err := json.Marshal(q)
	if err != nil {
		return apperrors.InternalError("failed to encode question", err)
	}
	if err := s.store.Set(ctx, domain.QuestionKey(q.ID), string(data), s.ttl); err != nil {
		return storeFailure("save question", err)
	}
	return nil
}

// AddQuestion validates and stores a new question at the end of the
// session's question list. The vote map stays absent until first publish.
func (s *Service) AddQuestion(ctx context.Context, sessionID, text string, answers []string) (*domain.Question, error) {
	if err := protocol.ValidateQuestion(text, answers); err != nil {
		return nil, err
	}

	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	q := &domain.Question{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Question:  text,
		Answers:   answers,
	}
	if err := s.saveQuestion(ctx, q); err != nil {
		return nil, err
	}
	if err := s.store.ListAppend(ctx, domain.SessionQuestionsKey(sessionID), q.ID, s.ttl); err != nil {
		return nil, storeFailure("append question", err)
	}
	if err := s.saveSession(ctx, session); err != nil {
		return nil, err
	}

	s.metrics.QuestionsCreated.Inc()
	return q, nil
}

// DeleteQuestion removes a question from the session list and the store.
// A published question is unpublished first.
func (s *Service) DeleteQuestion(ctx context.Context, sessionID, questionID string) error {
	if _, err := s.sessionQuestion(ctx, sessionID, questionID); err != nil {
		return err
	}

	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}

	if err := s.store.ListRemove(ctx, domain.SessionQuestionsKey(sessionID), questionID); err != nil {
		return storeFailure("remove question", err)
	}
	if err := s.store.Delete(ctx, domain.QuestionKey(questionID)); err != nil {
		return storeFailure("delete question", err)
	}

	if session.PublishedQuestionID != nil && *session.PublishedQuestionID == questionID {
		session.PublishedQuestionID = nil
	}
	return s.saveSession(ctx, session)
}

// Questions returns the session's questions in list order. A listed id
// that no longer resolves aborts the listing.
func (s *Service) Questions(ctx context.Context, sessionID string) ([]*domain.Question, error) {
	ids, err := s.store.ListRange(ctx, domain.SessionQuestionsKey(sessionID))
	if err != nil {
		return nil, storeFailure("list questions", err)
	}

	questions := make([]*domain.Question, 0, len(ids))
	for _, id := range ids {
		q, err := s.GetQuestion(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("question %s: %w", id, err)
		}
		questions = append(questions, q)
	}
	return questions, nil
}

// Publish marks questionID as the session's published question,
// initializing its vote map on first publish.
func (s *Service) Publish(ctx context.Context, sessionID, questionID string) (*domain.Question, error) {
	q, err := s.sessionQuestion(ctx, sessionID, questionID)
	if err != nil {
		return nil, err
	}

	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if q.EnsureVotes() {
		if err := s.saveQuestion(ctx, q); err != nil {
			return nil, err
		}
	}

	session.PublishedQuestionID = &q.ID
	if err := s.saveSession(ctx, session); err != nil {
		return nil, err
	}
	return q, nil
}

// Unpublish clears the session's published question.
func (s *Service) Unpublish(ctx context.Context, sessionID string) error {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	session.PublishedQuestionID = nil
	return s.saveSession(ctx, session)
}

// Vote adds one vote for answer and returns the question with its full
// vote map.
func (s *Service) Vote(ctx context.Context, sessionID, questionID, answer string) (*domain.Question, error) {
	q, err := s.sessionQuestion(ctx, sessionID, questionID)
	if err != nil {
		s.metrics.VotesTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}
	if !q.HasAnswer(answer) {
		s.metrics.VotesTotal.WithLabelValues("rejected").Inc()
		return nil, notFound(domain.ErrAnswerNotFound)
	}

	q.EnsureVotes()
	q.Votes[answer]++
	if err := s.saveQuestion(ctx, q); err != nil {
		s.metrics.VotesTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	s.metrics.VotesTotal.WithLabelValues("applied").Inc()
	return q, nil
}

func notFound(sentinel error) error {
	return apperrors.NotFoundError(sentinel.Error()).WithCause(sentinel)
}

func storeFailure(op string, err error) error {
	return apperrors.ExternalError("failed to "+op, err)
}

func randomHex() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
