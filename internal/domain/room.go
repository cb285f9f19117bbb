package domain

import (
	"errors"
	"strings"
)

var ErrRoomIDEmpty = errors.New("room id empty")

// RoomID is a case-sensitive, opaque room key chosen by clients.
type RoomID string

// ParseRoomID keeps the identifier verbatim but refuses blank ones.
func ParseRoomID(raw string) (RoomID, error) {
	if strings.TrimSpace(raw) == "" {
		return "", ErrRoomIDEmpty
	}
	return RoomID(raw), nil
}

type Room struct {
	ID RoomID
}
