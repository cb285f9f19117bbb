// Package protocol defines the JSON frames exchanged with chat clients.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

var ErrMalformedMessage = errors.New("malformed message")

type Type string

const (
	TypeJoin        Type = "join"
	TypeChat        Type = "chat"
	TypeUpdateUsers Type = "update_users"
)

// JoinConfirmation is sent as a bare, non-JSON text frame.
const JoinConfirmation = "Successfully Joined"

type JoinPayload struct {
	RoomID string `json:"roomId" validate:"notblank"`
	Name   string `json:"name" validate:"notblank"`
}

// ChatPayload carries the client's name too, but the server only trusts the
// name bound at join.
type ChatPayload struct {
	RoomID string `json:"roomId" validate:"notblank"`
	Text   string `json:"chat" validate:"notblank"`
	Name   string `json:"name" validate:"notblank"`
}

// Envelope is a decoded inbound frame. Exactly one payload is set, matching Type.
type Envelope struct {
	Type Type
	Join *JoinPayload
	Chat *ChatPayload
}

type rawEnvelope struct {
	Type    Type            `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func payloadValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("notblank", validators.NotBlank)
	})
	return validate
}

// Decode parses one inbound frame. Every failure wraps ErrMalformedMessage.
func Decode(data []byte) (Envelope, error) {
	var raw rawEnvelope
	if err := json.Unmarshal(data, &raw); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	switch raw.Type {
	case TypeJoin:
		var p JoinPayload
		if err := decodePayload(raw.Payload, &p); err != nil {
			return Envelope{}, err
		}
		return Envelope{Type: TypeJoin, Join: &p}, nil
	case TypeChat:
		var p ChatPayload
		if err := decodePayload(raw.Payload, &p); err != nil {
			return Envelope{}, err
		}
		return Envelope{Type: TypeChat, Chat: &p}, nil
	default:
		return Envelope{}, fmt.Errorf("%w: unknown type %q", ErrMalformedMessage, raw.Type)
	}
}

func decodePayload(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: missing payload", ErrMalformedMessage)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if err := payloadValidator().Struct(dst); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	return nil
}
