package protocol

import (
	"encoding/json"
	"fmt"
)

// Sender is relative to the receiving connection, never absolute.
type Sender string

const (
	SenderMe   Sender = "me"
	SenderThem Sender = "them"
)

// ChatMessage has no type field; clients recognise it by Sender.
type ChatMessage struct {
	Sender Sender `json:"sender"`
	Name   string `json:"name"`
	Text   string `json:"text"`
}

type PresenceUpdate struct {
	Type  Type `json:"type"`
	Count int  `json:"count"`
}

// SenderFor resolves the sender field for one recipient.
func SenderFor(recipient, author string) Sender {
	if recipient == author {
		return SenderMe
	}
	return SenderThem
}

func EncodeChat(sender Sender, name, text string) ([]byte, error) {
	b, err := json.Marshal(ChatMessage{Sender: sender, Name: name, Text: text})
	if err != nil {
		return nil, fmt.Errorf("encode chat: %w", err)
	}
	return b, nil
}

func EncodePresence(count int) ([]byte, error) {
	b, err := json.Marshal(PresenceUpdate{Type: TypeUpdateUsers, Count: count})
	if err != nil {
		return nil, fmt.Errorf("encode presence: %w", err)
	}
	return b, nil
}

func EncodeJoinConfirmation() []byte {
	return []byte(JoinConfirmation)
}
