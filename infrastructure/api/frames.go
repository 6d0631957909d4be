package api

import (
	"encoding/json"
	"fmt"
	"group-chat/domain/chat"
	"group-chat/errors"

	"github.com/go-playground/validator/v10"
)

const (
	frameSubscribe   = "subscribe"
	frameUnsubscribe = "unsubscribe"
	frameSend        = "send"
	framePing        = "ping"

	frameSnapshot = "snapshot"
	frameMessage  = "message"
	frameState    = "state"
	frameAck      = "ack"
	frameError    = "error"
	framePong     = "pong"
)

var validate = validator.New()

type inboundFrame struct {
	Type          string `json:"type"`
	GroupID       string `json:"group_id"`
	CorrelationID string `json:"correlation_id"`
	Content       string `json:"content"`
}

type subscribeCommand struct {
	GroupID chat.GroupID `validate:"required"`
}

type unsubscribeCommand struct {
	GroupID chat.GroupID `validate:"required"`
}

type sendCommand struct {
	GroupID       chat.GroupID `validate:"required"`
	CorrelationID string       `validate:"max=128"`
	Content       string
}

type pingCommand struct{}

// parseFrame turns a raw frame into one of the typed commands above.
// Content is validated by the store, not here.
func parseFrame(data []byte) (any, error) {
	var frame inboundFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err)
	}
	var cmd any
	switch frame.Type {
	case frameSubscribe:
		cmd = subscribeCommand{GroupID: chat.GroupID(frame.GroupID)}
	case frameUnsubscribe:
		cmd = unsubscribeCommand{GroupID: chat.GroupID(frame.GroupID)}
	case frameSend:
		cmd = sendCommand{GroupID: chat.GroupID(frame.GroupID), CorrelationID: frame.CorrelationID, Content: frame.Content}
	case framePing:
		return pingCommand{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown frame type %q", errors.ErrInvalidPayload, frame.Type)
	}
	if err := validate.Struct(cmd); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err)
	}
	return cmd, nil
}

type outboundFrame struct {
	Type          string       `json:"type"`
	GroupID       string       `json:"group_id,omitempty"`
	CorrelationID string       `json:"correlation_id,omitempty"`
	Message       *messageDTO  `json:"message,omitempty"`
	Messages      []messageDTO `json:"messages,omitempty"`
	State         string       `json:"state,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Code          string       `json:"code,omitempty"`
	Error         string       `json:"error,omitempty"`
}

func errorFrame(groupID chat.GroupID, correlationID string, err error) outboundFrame {
	return outboundFrame{
		Type:          frameError,
		GroupID:       groupID.String(),
		CorrelationID: correlationID,
		Code:          errors.Code(err),
		Error:         err.Error(),
	}
}
