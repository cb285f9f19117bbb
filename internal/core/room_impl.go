package core

import (
	"errors"
	"sync"

	"github.com/dkeye/Relay/internal/domain"
	"github.com/dkeye/Relay/internal/metrics"
	"github.com/dkeye/Relay/internal/protocol"
	"github.com/rs/zerolog/log"
)

type roomMember struct {
	session MemberSession
	name    string
}

// roomImpl is a threadsafe in-memory room.
// It never closes adapter-owned resources.
type roomImpl struct {
	room    *domain.Room
	onEmpty func(domain.RoomID)

	mu     sync.Mutex
	closed bool
	bySID  map[SessionID]*roomMember
}

// NewRoomService builds a room. onEmpty is called, without the room lock held,
// each time a leave empties the room.
func NewRoomService(room *domain.Room, onEmpty func(domain.RoomID)) RoomService {
	return &roomImpl{
		room:    room,
		onEmpty: onEmpty,
		bySID:   make(map[SessionID]*roomMember),
	}
}

func (r *roomImpl) ID() domain.RoomID { return r.room.ID }

func (r *roomImpl) MemberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bySID)
}

func (r *roomImpl) HasMember(sid SessionID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.bySID[sid]
	return ok
}

func (r *roomImpl) Join(sid SessionID, ms MemberSession, name string) (PublishResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res := PublishResult{}
	if r.closed {
		return res, ErrRoomClosed
	}

	m, ok := r.bySID[sid]
	if !ok {
		m = &roomMember{session: ms}
		r.bySID[sid] = m
	}
	m.name = name

	r.deliver(&res, sid, m, protocol.EncodeJoinConfirmation())
	r.publishPresence(&res)

	log.Info().Str("module", "core.room").Str("room", string(r.room.ID)).Str("sid", string(sid)).
		Str("name", name).Bool("rejoin", ok).Int("count", len(r.bySID)).Msg("member joined")
	return res, nil
}

func (r *roomImpl) Leave(sid SessionID) (PublishResult, bool) {
	r.mu.Lock()
	res := PublishResult{}
	if _, ok := r.bySID[sid]; !ok {
		r.mu.Unlock()
		return res, false
	}
	delete(r.bySID, sid)
	count := len(r.bySID)
	if count > 0 {
		r.publishPresence(&res)
	}
	r.mu.Unlock()

	log.Info().Str("module", "core.room").Str("room", string(r.room.ID)).Str("sid", string(sid)).
		Int("count", count).Msg("member left")

	if count == 0 && r.onEmpty != nil {
		r.onEmpty(r.room.ID)
	}
	return res, true
}

func (r *roomImpl) BroadcastChat(from SessionID, text string) (PublishResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res := PublishResult{}
	author, ok := r.bySID[from]
	if !ok {
		return res, ErrNotAMember
	}

	// One frame per recipient: sender is relative to whoever receives it.
	for sid, m := range r.bySID {
		frame, err := protocol.EncodeChat(protocol.SenderFor(string(sid), string(from)), author.name, text)
		if err != nil {
			log.Error().Err(err).Str("module", "core.room").Str("room", string(r.room.ID)).Msg("encode chat")
			continue
		}
		r.deliver(&res, sid, m, frame)
	}
	metrics.ChatMessages.Inc()

	log.Debug().Str("module", "core.room").Str("room", string(r.room.ID)).Str("from", string(from)).
		Int("sent_to", res.SendTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res, nil
}

func (r *roomImpl) CloseIfEmpty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.bySID) > 0 {
		return false
	}
	r.closed = true
	return true
}

func (r *roomImpl) MembersSnapshot() []MemberDTO {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]MemberDTO, 0, len(r.bySID))
	for sid, m := range r.bySID {
		out = append(out, MemberDTO{SID: sid, Name: m.name})
	}
	return out
}

// publishPresence must be called with r.mu held.
func (r *roomImpl) publishPresence(res *PublishResult) {
	frame, err := protocol.EncodePresence(len(r.bySID))
	if err != nil {
		log.Error().Err(err).Str("module", "core.room").Str("room", string(r.room.ID)).Msg("encode presence")
		return
	}
	for sid, m := range r.bySID {
		r.deliver(res, sid, m, frame)
	}
}

// deliver must be called with r.mu held. TrySend only enqueues.
// A closing member is already on its way out, so only a full queue is
// reported in Dropped.
func (r *roomImpl) deliver(res *PublishResult, sid SessionID, m *roomMember, frame []byte) {
	err := m.session.Signal().TrySend(frame)
	switch {
	case err == nil:
		res.SendTo++
	case errors.Is(err, ErrSignalClosed):
		metrics.FramesDropped.WithLabelValues(metrics.ReasonClosed).Inc()
	default:
		res.Dropped = append(res.Dropped, sid)
		metrics.FramesDropped.WithLabelValues(metrics.ReasonBackpressure).Inc()
	}
}
