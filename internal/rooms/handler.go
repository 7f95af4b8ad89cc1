package rooms

import (
	"context"

	"github.com/hafbjorn109/wiperino/internal/domain"
	apperrors "github.com/hafbjorn109/wiperino/internal/platform/errors"
	"github.com/hafbjorn109/wiperino/internal/protocol"
)

// Member describes the connection a frame came from.
type Member struct {
	Room     domain.Room
	Identity domain.Identity
	Role     domain.Role
}

// Handler processes one inbound frame. Broadcasts returned alongside an
// error were produced before the failure and are still published.
type Handler interface {
	Handle(ctx context.Context, m Member, frame []byte) ([]protocol.Broadcast, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, m Member, frame []byte) ([]protocol.Broadcast, error)

func (f HandlerFunc) Handle(ctx context.Context, m Member, frame []byte) ([]protocol.Broadcast, error) {
	return f(ctx, m, frame)
}

func errAuthRequired() error { return apperrors.ForbiddenError("authentication required") }
func errNotAllowed() error   { return apperrors.ForbiddenError("permission denied") }
func errReadOnly() error     { return apperrors.ForbiddenError("overlay is read-only") }

func errUnhandled(tag protocol.Tag) error {
	return apperrors.InternalError("unhandled event", nil).WithContext("type", string(tag))
}

// Table selects the handler for a room kind and role.
type Table struct {
	handlers map[domain.RoomKind]Handler
	overlay  Handler
}

// NewTable wires the counter, timer and poll handlers. Overlay members of
// every kind share the read-only handler.
func NewTable(polls PollService) *Table {
	return &Table{
		handlers: map[domain.RoomKind]Handler{
			domain.RoomCounter: HandlerFunc(HandleCounter),
			domain.RoomTimer:   HandlerFunc(HandleTimer),
			domain.RoomPoll:    NewPollHandler(polls),
		},
		overlay: HandlerFunc(HandleOverlay),
	}
}

// For returns the handler for room and role.
func (t *Table) For(room domain.Room, role domain.Role) (Handler, bool) {
	if role == domain.RoleOverlay {
		return t.overlay, true
	}
	h, ok := t.handlers[room.Kind]
	return h, ok
}
