package rooms

import (
	"context"

	"github.com/hafbjorn109/wiperino/internal/domain"
	"github.com/hafbjorn109/wiperino/internal/protocol"
)

// PollService is the poll state used by the poll room.
type PollService interface {
	Publish(ctx context.Context, sessionID, questionID string) (*domain.Question, error)
	Unpublish(ctx context.Context, sessionID string) error
	Vote(ctx context.Context, sessionID, questionID, answer string) (*domain.Question, error)
	Questions(ctx context.Context, sessionID string) ([]*domain.Question, error)
}

// PollHandler drives a poll room. Moderator-only events from other roles
// are refused before the store is touched.
type PollHandler struct {
	polls PollService
}

func NewPollHandler(polls PollService) *PollHandler {
	return &PollHandler{polls: polls}
}

func (h *PollHandler) Handle(ctx context.Context, m Member, frame []byte) ([]protocol.Broadcast, error) {
	evt, err := protocol.DecodePoll(frame)
	if err != nil {
		return nil, err
	}
	if evt.ModeratorOnly() && m.Role != domain.RoleModerator {
		return nil, errNotAllowed()
	}

	sessionID := m.Room.ID
	switch e := evt.(type) {
	case protocol.PublishQuestion:
		q, err := h.polls.Publish(ctx, sessionID, e.QuestionID)
		if err != nil {
			return nil, err
		}
		return []protocol.Broadcast{protocol.QuestionPublished(q)}, nil

	case protocol.UnpublishQuestion:
		if err := h.polls.Unpublish(ctx, sessionID); err != nil {
			return nil, err
		}
		return []protocol.Broadcast{protocol.QuestionUnpublished()}, nil

	case protocol.Vote:
		q, err := h.polls.Vote(ctx, sessionID, e.QuestionID, e.Answer)
		if err != nil {
			return nil, err
		}
		return []protocol.Broadcast{protocol.VotesChanged(q)}, nil

	case protocol.SyncQuestions:
		questions, err := h.polls.Questions(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		out := make([]protocol.Broadcast, 0, len(questions))
		for _, q := range questions {
			out = append(out, protocol.QuestionAdded(q))
		}
		return out, nil

	case protocol.DeleteQuestion:
		// Removal from the store goes through the REST endpoint.
		return []protocol.Broadcast{protocol.QuestionDeleted(e.QuestionID)}, nil
	}
	return nil, errUnhandled(evt.Tag())
}
