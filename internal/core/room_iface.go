package core

import (
	"errors"

	"github.com/dkeye/Relay/internal/domain"
)

var (
	// ErrNotAMember is returned for chats from sessions outside the room.
	ErrNotAMember = errors.New("not a member of room")
	// ErrRoomClosed means the registry already destroyed the room; get a fresh one.
	ErrRoomClosed = errors.New("room closed")
)

// PublishResult reports delivery stats/backpressure to orchestrator.
type PublishResult struct {
	SendTo  int
	Dropped []SessionID
}

// MemberDTO is a read-only view for APIs (no transport fields).
type MemberDTO struct {
	SID  SessionID `json:"sid"`
	Name string    `json:"name"`
}

// RoomService is the core-facing API of a room.
// It owns the membership set but never touches transport resources.
// Membership changes and broadcasts are serialized by one lock per room.
type RoomService interface {
	ID() domain.RoomID
	MemberCount() int
	MembersSnapshot() []MemberDTO
	HasMember(sid SessionID) bool

	Join(sid SessionID, ms MemberSession, name string) (PublishResult, error)
	Leave(sid SessionID) (PublishResult, bool)
	BroadcastChat(from SessionID, text string) (PublishResult, error)

	// CloseIfEmpty marks an empty room as closed so later joins fail with
	// ErrRoomClosed. It reports whether the room was closed.
	CloseIfEmpty() bool
}

type RoomInfo struct {
	ID          domain.RoomID `json:"id"`
	MemberCount int           `json:"member_count"`
}

// RoomManager is the process-wide room registry.
type RoomManager interface {
	GetOrCreate(id domain.RoomID) RoomService
	Get(id domain.RoomID) (RoomService, bool)
	RemoveIfEmpty(id domain.RoomID) bool
	List() []RoomInfo
	Len() int
}
