package orch

import (
	"errors"
	"fmt"

	"github.com/dkeye/Relay/internal/app"
	"github.com/dkeye/Relay/internal/core"
	"github.com/dkeye/Relay/internal/domain"
	"github.com/dkeye/Relay/internal/metrics"
	"github.com/rs/zerolog/log"
)

// Join binds the session to roomID under name. Joining another room while
// already joined is a room switch: the old room is left first.
func (o *Orchestrator) Join(sid core.SessionID, roomID domain.RoomID, name string) error {
	session, ok := o.Registry.GetSession(sid)
	if !ok {
		return fmt.Errorf("join %q: %w", roomID, ErrUnknownSession)
	}

	if o.Registry.State(sid) == app.StateJoined {
		if current, _, ok := o.Registry.RoomOf(sid); ok && current != roomID {
			o.leaveRoom(sid, current)
			o.Registry.RemoveRoom(sid)
			log.Info().Str("module", "orch").Str("sid", string(sid)).Str("from_room", string(current)).
				Str("to_room", string(roomID)).Msg("switching room")
		}
	}

	for {
		room := o.Rooms.GetOrCreate(roomID)
		res, err := room.Join(sid, session, name)
		if errors.Is(err, core.ErrRoomClosed) {
			// Lost a race with the room's destruction; the next GetOrCreate builds a new one.
			continue
		}
		if err != nil {
			return fmt.Errorf("join %q: %w", roomID, err)
		}
		o.Registry.UpdateRoom(sid, roomID)
		log.Info().Str("module", "orch").Str("sid", string(sid)).Str("room", string(roomID)).Msg("added to room")
		o.applyPolicy(room, res)
		return nil
	}
}

// KickBySID cancels the session; its read loop then runs OnDisconnect.
func (o *Orchestrator) KickBySID(sid core.SessionID) {
	if o.Registry.Cancel(sid) {
		metrics.Kicks.Inc()
		log.Warn().Str("module", "orch").Str("sid", string(sid)).Msg("kicked session")
	}
}

func (o *Orchestrator) leaveRoom(sid core.SessionID, roomID domain.RoomID) {
	room, ok := o.Rooms.Get(roomID)
	if !ok {
		return
	}
	res, left := room.Leave(sid)
	if !left {
		return
	}
	o.applyPolicy(room, res)
}
