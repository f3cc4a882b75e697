package session

import (
	"sync"
	"time"

	"solace/internal/ports"
)

// countdown decrements once per second from a fixed ceiling until it reaches
// zero or is cancelled. Cancellation is idempotent and guarantees that no
// further callback fires afterwards.
type countdown struct {
	cancel chan struct{}
	once   sync.Once
	done   chan struct{}
}

func startCountdown(clk ports.Clock, seconds int, onTick func(remaining int), onExpire func()) *countdown {
	cd := &countdown{
		cancel: make(chan struct{}),
		done:   make(chan struct{}),
	}

	ticker := clk.NewTicker(time.Second)
	go func() {
		defer close(cd.done)
		defer ticker.Stop()

		remaining := seconds
		for {
			select {
			case <-cd.cancel:
				return
			case <-ticker.C():
				// A tick may race cancellation; cancelled wins.
				select {
				case <-cd.cancel:
					return
				default:
				}
				remaining--
				if remaining < 0 {
					return
				}
				onTick(remaining)
				if remaining == 0 {
					onExpire()
					return
				}
			}
		}
	}()

	return cd
}

// Cancel stops the countdown. Safe to call multiple times and after expiry.
func (c *countdown) Cancel() {
	c.once.Do(func() {
		close(c.cancel)
	})
}
