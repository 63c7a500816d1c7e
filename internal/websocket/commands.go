package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/booking-assistant/backend/internal/dialogue"
)

// ChatHandler runs the chat commands a client can send over its socket.
type ChatHandler interface {
	Say(ctx context.Context, sessionID, text string) (dialogue.Turn, error)
	Select(ctx context.Context, sessionID, date, clock string) (dialogue.Turn, error)
	Confirm(ctx context.Context, sessionID string, confirmed bool) (dialogue.Turn, error)
}

// Error codes sent in error frames.
const (
	ErrCodeBadRequest  = "bad_request"
	ErrCodeInternal    = "internal_error"
	ErrCodeRateLimited = "too_many_requests"
)

var errMissingPayload = errors.New("missing payload")

type command struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Dispatch runs one frame received from a client of sessionID. It returns
// the reply meant for that client alone, or nil. The agent's chat messages
// are not part of the reply; they reach every socket of the session
// through the hub. Chat commands are refused when allow reports false; a
// nil allow means no limit.
func Dispatch(ctx context.Context, sessionID string, frame []byte, h ChatHandler, allow func() bool) *Message {
	var cmd command
	if err := json.Unmarshal(frame, &cmd); err != nil {
		return errorReply(ErrCodeBadRequest, "invalid message format", "")
	}

	if cmd.Type != TypePing && allow != nil && !allow() {
		return errorReply(ErrCodeRateLimited, "rate limit exceeded, try again later", string(cmd.Type))
	}

	var err error
	switch cmd.Type {
	case TypePing:
		reply := NewMessage(TypePong, nil)
		return &reply

	case TypeChatUtterance:
		var p UtterancePayload
		if err := decodePayload(cmd.Payload, &p); err != nil || p.Text == "" {
			return errorReply(ErrCodeBadRequest, "text is required", string(cmd.Type))
		}
		_, err = h.Say(ctx, sessionID, p.Text)

	case TypeChatSelectSlot:
		var p SelectSlotPayload
		if err := decodePayload(cmd.Payload, &p); err != nil || p.Date == "" || p.Time == "" {
			return errorReply(ErrCodeBadRequest, "date and time are required", string(cmd.Type))
		}
		_, err = h.Select(ctx, sessionID, p.Date, p.Time)

	case TypeChatConfirm:
		var p ConfirmPayload
		if err := decodePayload(cmd.Payload, &p); err != nil {
			return errorReply(ErrCodeBadRequest, "invalid confirm payload", string(cmd.Type))
		}
		_, err = h.Confirm(ctx, sessionID, p.Confirmed)

	default:
		return errorReply(ErrCodeBadRequest, fmt.Sprintf("unknown message type %q", cmd.Type), string(cmd.Type))
	}

	if err != nil {
		return errorReply(ErrCodeInternal, "could not process message", string(cmd.Type))
	}
	return nil
}

func decodePayload(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return errMissingPayload
	}
	return json.Unmarshal(raw, v)
}

func errorReply(code, message, originalType string) *Message {
	reply := NewMessage(TypeError, ErrorPayload{
		Code:         code,
		Message:      message,
		OriginalType: originalType,
	})
	return &reply
}
