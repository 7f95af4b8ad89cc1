package rooms

import (
	"context"

	"github.com/hafbjorn109/wiperino/internal/protocol"
)

// HandleCounter relays counter events with the sender's display name.
// The counts themselves are persisted by the web application.
func HandleCounter(_ context.Context, m Member, frame []byte) ([]protocol.Broadcast, error) {
	evt, err := protocol.DecodeCounter(frame)
	if err != nil {
		return nil, err
	}
	if m.Identity.IsAnonymous() {
		return nil, errAuthRequired()
	}

	user := m.Identity.DisplayName
	switch e := evt.(type) {
	case protocol.CountUpdate:
		return []protocol.Broadcast{protocol.CountUpdated(e, user)}, nil
	case protocol.CounterNewSegment:
		return []protocol.Broadcast{protocol.CounterSegmentStarted(e, user)}, nil
	case protocol.SegmentFinished:
		return []protocol.Broadcast{protocol.SegmentClosed(e, user)}, nil
	case protocol.RunFinished:
		return []protocol.Broadcast{protocol.RunClosed(user)}, nil
	}
	return nil, errUnhandled(evt.Tag())
}
