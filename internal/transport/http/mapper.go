package http

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/usersaynoso/shadowme-server/internal/core"
	"github.com/usersaynoso/shadowme-server/internal/proto"
)

// envelopeToCommand maps a client envelope to a core command. A non-nil
// ErrorPayload means the envelope was understood but rejected; a nil command
// with nil error means the envelope needs no core action.
func envelopeToCommand(env proto.Envelope) (*core.Command, *proto.ErrorPayload, error) {
	switch env.Type {
	case proto.TypeJoinSession:
		var p proto.SessionPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, nil, err
		}
		if p.SessionID == "" {
			return nil, &proto.ErrorPayload{Code: core.ErrCodeBadRequest, Msg: "session id is required"}, nil
		}
		return &core.Command{
			Kind:      core.CommandJoinSession,
			SessionID: p.SessionID,
		}, nil, nil
	case proto.TypeLeaveSession:
		var p proto.SessionPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, nil, err
		}
		if p.SessionID == "" {
			return nil, &proto.ErrorPayload{Code: core.ErrCodeBadRequest, Msg: "session id is required"}, nil
		}
		return &core.Command{
			Kind:      core.CommandLeaveSession,
			SessionID: p.SessionID,
		}, nil, nil
	case proto.TypeMessage:
		var p proto.MessagePayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, nil, err
		}
		if p.SessionID == "" {
			return nil, &proto.ErrorPayload{Code: core.ErrCodeBadRequest, Msg: "session id is required"}, nil
		}
		if strings.TrimSpace(p.Content) == "" {
			return nil, &proto.ErrorPayload{Code: core.ErrCodeBadRequest, Msg: "content is required"}, nil
		}
		return &core.Command{
			Kind:      core.CommandSendMessage,
			SessionID: p.SessionID,
			Body:      p.Content,
		}, nil, nil
	case proto.TypeTyping:
		var p proto.TypingPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, nil, err
		}
		if p.SessionID == "" {
			return nil, &proto.ErrorPayload{Code: core.ErrCodeBadRequest, Msg: "session id is required"}, nil
		}
		return &core.Command{
			Kind:      core.CommandTyping,
			SessionID: p.SessionID,
			IsTyping:  p.IsTyping,
		}, nil, nil
	case proto.TypePong:
		// Liveness reply, consumed by the connection handler.
		return nil, nil, nil
	default:
		return nil, &proto.ErrorPayload{Code: core.ErrCodeBadRequest, Msg: "unknown envelope type"}, nil
	}
}

// envelopeFromEvent maps a core event to a server envelope.
func envelopeFromEvent(event *core.Event) (proto.Envelope, error) {
	switch event.Kind {
	case core.EventSessionMessage:
		return proto.NewEnvelope(proto.TypeMessage, proto.ChatPayload{
			SenderID:   event.Message.SenderID,
			SenderName: event.Message.SenderName,
			Content:    event.Message.Body,
			Timestamp:  event.Message.CreatedAt.UTC().Format(time.RFC3339),
		})
	case core.EventParticipantJoined:
		return proto.NewEnvelope(proto.TypeParticipantJoined, proto.PresencePayload{
			UserID: event.UserID,
		})
	case core.EventParticipantLeft:
		return proto.NewEnvelope(proto.TypeParticipantLeft, proto.PresencePayload{
			UserID: event.UserID,
		})
	case core.EventUserTyping:
		return proto.NewEnvelope(proto.TypeUserTyping, proto.UserTypingPayload{
			UserID:   event.UserID,
			IsTyping: event.IsTyping,
		})
	case core.EventSessionUpdate:
		return proto.NewEnvelope(proto.TypeSessionUpdate, proto.SessionPayload{
			SessionID: event.SessionID,
		})
	case core.EventError:
		if event.Error == nil {
			return proto.NewEnvelope(proto.TypeError, proto.ErrorPayload{Code: "unknown", Msg: "unknown error"})
		}
		return proto.NewEnvelope(proto.TypeError, proto.ErrorPayload{
			Code: event.Error.Code,
			Msg:  event.Error.Message,
		})
	default:
		return proto.NewEnvelope(proto.TypeError, proto.ErrorPayload{Code: "unknown", Msg: "unhandled event"})
	}
}
