package signal

import (
	"github.com/dkeye/Relay/internal/core"
	"github.com/dkeye/Relay/internal/domain"
	"github.com/dkeye/Relay/internal/protocol"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handleJoin(sid core.SessionID, p *protocol.JoinPayload) {
	roomID, err := domain.ParseRoomID(p.RoomID)
	if err != nil {
		logDropped(sid, err, "bad join room")
		return
	}
	name, err := domain.NormalizeUsername(p.Name)
	if err != nil {
		logDropped(sid, err, "bad join name")
		return
	}

	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("room", string(roomID)).Str("name", name).Msg("join")
	if err := ctl.Orch.Join(sid, roomID, name); err != nil {
		logDropped(sid, err, "join failed")
	}
}

func (ctl *SignalWSController) handleChat(sid core.SessionID, p *protocol.ChatPayload) {
	roomID, err := domain.ParseRoomID(p.RoomID)
	if err != nil {
		logDropped(sid, err, "bad chat room")
		return
	}
	if err := ctl.Orch.Chat(sid, roomID, p.Text); err != nil {
		logDropped(sid, err, "chat dropped")
	}
}
