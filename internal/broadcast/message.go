package broadcast

import (
	"context"
	"encoding/json"

	"github.com/hafbjorn109/wiperino/internal/domain"
)

// Message is one room broadcast. Data is delivered to participants,
// OverlayData to overlay members. An empty OverlayData falls back to Data.
type Message struct {
	Room        string          `json:"room"`
	Data        json.RawMessage `json:"data"`
	OverlayData json.RawMessage `json:"overlay_data,omitempty"`
}

func (m Message) payloadFor(role domain.Role) []byte {
	if role == domain.RoleOverlay && len(m.OverlayData) > 0 {
		return m.OverlayData
	}
	return m.Data
}

// Transport carries messages between gateway processes.
type Transport interface {
	Publish(ctx context.Context, msg Message) error
	// Subscribe returns once the subscription is active. The channel yields
	// every message published by any process, in per-publisher order, and is
	// closed when ctx is done.
	Subscribe(ctx context.Context) (<-chan Message, error)
}
