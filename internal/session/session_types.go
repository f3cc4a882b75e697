package session

import (
	"context"
	"sync"

	"solace/internal/domain"
	"solace/internal/ports"
)

// clipBuffer accumulates recorded chunks in order. It is append-only while
// recording and concatenated into a single clip at stop time. Chunks arriving
// before Arm (the preview warmup) are dropped.
type clipBuffer struct {
	mu     sync.Mutex
	armed  bool
	chunks [][]byte
	size   int
}

func (b *clipBuffer) Arm() {
	b.mu.Lock()
	b.armed = true
	b.mu.Unlock()
}

func (b *clipBuffer) Append(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.armed {
		return
	}
	copied := append([]byte(nil), chunk...)
	b.chunks = append(b.chunks, copied)
	b.size += len(copied)
}

func (b *clipBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]byte, 0, b.size)
	for _, chunk := range b.chunks {
		out = append(out, chunk...)
	}
	return out
}

func (b *clipBuffer) Discard() {
	b.mu.Lock()
	b.chunks = nil
	b.size = 0
	b.mu.Unlock()
}

type captureSession struct {
	ctx    context.Context
	cancel context.CancelFunc

	clip     *clipBuffer
	pumpDone chan struct{}
	done     chan struct{}

	stateMu   sync.Mutex
	state     domain.CheckinState
	remaining int
	media     ports.MediaSession
	countdown *countdown
	closed    bool

	stopOnce  sync.Once
	closeOnce sync.Once
}

func (s *captureSession) setState(state domain.CheckinState) {
	s.stateMu.Lock()
	s.state = state
	s.stateMu.Unlock()
}

func (s *captureSession) getState() domain.CheckinState {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.state
}

func (s *captureSession) setRemaining(remaining int) {
	s.stateMu.Lock()
	s.remaining = remaining
	s.stateMu.Unlock()
}

func (s *captureSession) getRemaining() int {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.remaining
}

// setMediaIfAlive hands the session ownership of the device handle. It
// reports false when the session closed while the device was being acquired;
// the caller then still owns the handle and must release it.
func (s *captureSession) setMediaIfAlive(media ports.MediaSession) bool {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if s.closed {
		return false
	}
	s.media = media
	return true
}

func (s *captureSession) getMedia() ports.MediaSession {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.media
}

// setCountdownIfAlive hands the session ownership of the countdown under the
// same contract as setMediaIfAlive.
func (s *captureSession) setCountdownIfAlive(cd *countdown) bool {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if s.closed {
		return false
	}
	s.countdown = cd
	return true
}

func (s *captureSession) getCountdown() *countdown {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.countdown
}

// markClosed flags the session so no new media handle or countdown can be
// attached, and returns whichever ones it already owns for teardown.
func (s *captureSession) markClosed() (ports.MediaSession, *countdown) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	s.closed = true
	return s.media, s.countdown
}
