package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hafbjorn109/wiperino/internal/domain"
	apperrors "github.com/hafbjorn109/wiperino/internal/platform/errors"
	"github.com/hafbjorn109/wiperino/internal/protocol"
	"github.com/labstack/echo/v4"
)

func (s *Server) registerPollRoutes(api *echo.Group) {
	api.POST("/polls/sessions", s.handleCreateSession)
	api.GET("/polls/:token/questions", s.handleListQuestions)
	api.POST("/polls/m/:token/questions", s.handleAddQuestion)
	api.DELETE("/polls/m/:token/questions/:question_id", s.handleDeleteQuestion)
}

type createSessionResponse struct {
	SessionID      string `json:"session_id"`
	ModeratorToken string `json:"moderator_token"`
	ViewerToken    string `json:"viewer_token"`
	OverlayToken   string `json:"overlay_token"`
	ModeratorURL   string `json:"moderator_url"`
	ViewerURL      string `json:"viewer_url"`
	OverlayURL     string `json:"overlay_url"`
}

type addQuestionRequest struct {
	Question string   `json:"question"`
	Answers  []string `json:"answers"`
}

type questionResponse struct {
	QuestionID string   `json:"question_id"`
	Question   string   `json:"question"`
	Answers    []string `json:"answers"`
}

type listQuestionsResponse struct {
	SessionID           string                     `json:"session_id"`
	PublishedQuestionID *string                    `json:"published_question_id"`
	Questions           []protocol.QuestionPayload `json:"questions"`
}

func (s *Server) handleCreateSession(c echo.Context) error {
	created, err := s.polls.CreateSession(c.Request().Context())
	if err != nil {
		return err
	}

	response := createSessionResponse{
		SessionID:      created.SessionID,
		ModeratorToken: created.Tokens.Moderator,
		ViewerToken:    created.Tokens.Viewer,
		OverlayToken:   created.Tokens.Overlay,
		ModeratorURL:   created.ModeratorURL,
		ViewerURL:      created.ViewerURL,
		OverlayURL:     created.OverlayURL,
	}
	if err := c.JSON(http.StatusCreated, response); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleListQuestions(c echo.Context) error {
	ctx := c.Request().Context()

	sessionID, _, err := s.resolveSession(ctx, c.Param("token"))
	if err != nil {
		return err
	}

	session, err := s.polls.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	questions, err := s.polls.Questions(ctx, sessionID)
	if err != nil {
		return err
	}

	payloads := make([]protocol.QuestionPayload, 0, len(questions))
	for _, q := range questions {
		payloads = append(payloads, protocol.NewQuestionPayload(q))
	}

	response := listQuestionsResponse{
		SessionID:           sessionID,
		PublishedQuestionID: session.PublishedQuestionID,
		Questions:           payloads,
	}
	if err := c.JSON(http.StatusOK, response); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleAddQuestion(c echo.Context) error {
	ctx := c.Request().Context()

	sessionID, err := s.resolveModerator(ctx, c.Param("token"))
	if err != nil {
		return err
	}

	var req addQuestionRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body").WithCause(err)
	}

	q, err := s.polls.AddQuestion(ctx, sessionID, req.Question, req.Answers)
	if err != nil {
		return err
	}
	s.broadcast(ctx, domain.PollRoom(sessionID), protocol.QuestionAdded(q))

	response := questionResponse{QuestionID: q.ID, Question: q.Question, Answers: q.Answers}
	if err := c.JSON(http.StatusCreated, response); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleDeleteQuestion(c echo.Context) error {
	ctx := c.Request().Context()

	sessionID, err := s.resolveModerator(ctx, c.Param("token"))
	if err != nil {
		return err
	}

	questionID := c.Param("question_id")
	if err := s.polls.DeleteQuestion(ctx, sessionID, questionID); err != nil {
		return err
	}
	s.broadcast(ctx, domain.PollRoom(sessionID), protocol.QuestionDeleted(questionID))

	if err := c.JSON(http.StatusOK, map[string]string{"status": "ok"}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) resolveSession(ctx context.Context, token string) (string, domain.Role, error) {
	sessionID, role, err := s.resolver.ResolvePollToken(ctx, token, false)
	if errors.Is(err, domain.ErrTokenNotFound) {
		return "", "", apperrors.ForbiddenError("unknown poll token")
	}
	if err != nil {
		return "", "", apperrors.ExternalError("failed to resolve poll token", err)
	}
	return sessionID, role, nil
}

func (s *Server) resolveModerator(ctx context.Context, token string) (string, error) {
	sessionID, role, err := s.resolveSession(ctx, token)
	if err != nil {
		return "", err
	}
	if role != domain.RoleModerator {
		return "", apperrors.ForbiddenError("moderator token required")
	}
	return sessionID, nil
}

// broadcast notifies the poll room after a committed REST mutation. The
// mutation stands even when the notification fails; members catch up on
// the next sync_questions.
func (s *Server) broadcast(ctx context.Context, room domain.Room, b protocol.Broadcast) {
	data, overlay, err := b.Encode()
	if err != nil {
		slog.ErrorContext(ctx, "Failed to encode broadcast", "room", room.Key(), "error", err)
		return
	}
	if err := s.publisher.Publish(ctx, room, data, overlay); err != nil {
		slog.WarnContext(ctx, "Failed to publish poll update", "room", room.Key(), "error", err)
	}
}
