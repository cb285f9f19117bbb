package app

import (
	"sync"

	"github.com/dkeye/Relay/internal/core"
	"github.com/dkeye/Relay/internal/domain"
)

type nopSignal struct {
	mu     sync.Mutex
	frames int
}

func (n *nopSignal) TrySend(core.Frame) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.frames++
	return nil
}

func (n *nopSignal) Close() {}

func newSession(id string) core.MemberSession {
	return core.NewMemberSession(domain.NewMember(domain.NewUser(domain.UserID(id))), &nopSignal{})
}
