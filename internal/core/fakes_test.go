package core

import (
	"errors"
	"sync"

	"github.com/dkeye/Relay/internal/domain"
)

var errQueueFull = errors.New("queue full")

// fakeSignal records frames; failing makes TrySend behave like a full queue.
type fakeSignal struct {
	mu      sync.Mutex
	frames  []string
	failing bool
	closed  bool
}

func (f *fakeSignal) TrySend(fr Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrSignalClosed
	}
	if f.failing {
		return errQueueFull
	}
	f.frames = append(f.frames, string(fr))
	return nil
}

func (f *fakeSignal) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeSignal) Frames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.frames))
	copy(out, f.frames)
	return out
}

func (f *fakeSignal) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = nil
}

func newFakeSession(id string) (MemberSession, *fakeSignal) {
	sig := &fakeSignal{}
	return NewMemberSession(domain.NewMember(domain.NewUser(domain.UserID(id))), sig), sig
}
