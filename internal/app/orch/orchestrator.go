package orch

import (
	"context"
	"errors"
	"fmt"

	"github.com/dkeye/Relay/internal/app"
	"github.com/dkeye/Relay/internal/core"
	"github.com/dkeye/Relay/internal/domain"
	"github.com/dkeye/Relay/internal/metrics"
	"github.com/rs/zerolog/log"
)

var ErrUnknownSession = errors.New("unknown session")

// Orchestrator dispatches decoded client messages to rooms and tears down
// session state on disconnect. All calls for one session are expected to come
// from that session's read loop.
type Orchestrator struct {
	Registry *app.Registry
	Rooms    core.RoomManager
	Policy   app.Policy
}

func New(reg *app.Registry, rooms core.RoomManager, policy app.Policy) *Orchestrator {
	return &Orchestrator{Registry: reg, Rooms: rooms, Policy: policy}
}

// OnConnect registers a session in the Connecting state.
func (o *Orchestrator) OnConnect(sid core.SessionID, sess core.MemberSession, cancel context.CancelFunc) {
	o.Registry.BindSignal(sid, sess, cancel)
	metrics.Connections.Inc()
}

// Chat fans text out to the session's current room. It fails with
// core.ErrNotAMember before a join or when roomID is not the joined room, and
// with ErrUnknownSession once the session is closed.
func (o *Orchestrator) Chat(sid core.SessionID, roomID domain.RoomID, text string) error {
	switch o.Registry.State(sid) {
	case app.StateClosed:
		return fmt.Errorf("chat: %w", ErrUnknownSession)
	case app.StateConnecting:
		return fmt.Errorf("chat before join: %w", core.ErrNotAMember)
	}
	current, _, ok := o.Registry.RoomOf(sid)
	if !ok {
		return fmt.Errorf("chat: %w", ErrUnknownSession)
	}
	if current != roomID {
		return fmt.Errorf("chat for room %q while in %q: %w", roomID, current, core.ErrNotAMember)
	}
	room, ok := o.Rooms.Get(current)
	if !ok {
		return fmt.Errorf("room %q gone: %w", current, core.ErrNotAMember)
	}

	res, err := room.BroadcastChat(sid, text)
	if err != nil {
		return err
	}
	o.applyPolicy(room, res)
	return nil
}

// OnDisconnect leaves the current room, if any, and forgets the session.
// Repeated calls are no-ops.
func (o *Orchestrator) OnDisconnect(sid core.SessionID) {
	roomID, ok := o.Registry.Unbind(sid)
	if !ok {
		return
	}
	metrics.Connections.Dec()
	if roomID != "" {
		o.leaveRoom(sid, roomID)
	}
	log.Info().Str("module", "orch").Str("sid", string(sid)).Str("room", string(roomID)).Msg("session closed")
}

// Shutdown cancels every live session; each one then runs OnDisconnect.
func (o *Orchestrator) Shutdown() {
	n := o.Registry.CancelAll()
	log.Info().Str("module", "orch").Int("sessions", n).Msg("canceled all sessions")
}

// applyPolicy runs outside any room lock.
func (o *Orchestrator) applyPolicy(room core.RoomService, res core.PublishResult) {
	if o.Policy == nil {
		return
	}
	for _, slow := range res.Dropped {
		switch o.Policy.OnBackPressure(room, slow) {
		case app.KickMember:
			o.KickBySID(slow)
		case app.NoAction:
		}
	}
}
