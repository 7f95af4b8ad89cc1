package rooms

import (
	"context"

	"github.com/hafbjorn109/wiperino/internal/protocol"
)

// HandleTimer relays timer events with the sender's display name.
func HandleTimer(_ context.Context, m Member, frame []byte) ([]protocol.Broadcast, error) {
	evt, err := protocol.DecodeTimer(frame)
	if err != nil {
		return nil, err
	}
	if m.Identity.IsAnonymous() {
		return nil, errAuthRequired()
	}
	return []protocol.Broadcast{protocol.TimerChanged(evt, m.Identity.DisplayName)}, nil
}
