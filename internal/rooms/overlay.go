package rooms

import (
	"context"

	"github.com/hafbjorn109/wiperino/internal/protocol"
)

// HandleOverlay rejects every frame. Garbage still gets the format error.
func HandleOverlay(_ context.Context, _ Member, frame []byte) ([]protocol.Broadcast, error) {
	if err := protocol.CheckFormat(frame); err != nil {
		return nil, err
	}
	return nil, errReadOnly()
}
