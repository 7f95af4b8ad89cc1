package protocol

import (
	"encoding/json"

	apperrors "github.com/hafbjorn109/wiperino/internal/platform/errors"
)

// ErrorFrame is the sender-only reply to a rejected frame.
type ErrorFrame struct {
	Type  Tag                 `json:"type"`
	Error string              `json:"error"`
	Kind  apperrors.ErrorType `json:"kind,omitempty"`
	Field string              `json:"field,omitempty"`
}

// NewErrorFrame maps err onto the wire error shape. Internal and external
// failures are reported without detail.
func NewErrorFrame(err error) ErrorFrame {
	se := apperrors.AsStructuredError(err)
	frame := ErrorFrame{Type: TagError, Error: se.Message, Kind: se.Type, Field: se.Field}
	switch se.Type {
	case apperrors.TypeInternal, apperrors.TypeExternal:
		frame.Error = "internal error"
	}
	return frame
}

// EncodeError renders err as an error frame.
func EncodeError(err error) []byte {
	data, mErr := json.Marshal(NewErrorFrame(err))
	if mErr != nil {
		return []byte(`{"type":"error","error":"internal error"}`)
	}
	return data
}
