// Package clock provides the wall-time implementation of ports.Clock.
package clock

import (
	"time"

	"solace/internal/ports"
)

// System returns a Clock backed by the time package.
func System() ports.Clock {
	return systemClock{}
}

type systemClock struct{}

func (systemClock) NewTicker(d time.Duration) ports.Ticker {
	return &systemTicker{ticker: time.NewTicker(d)}
}

func (systemClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

type systemTicker struct {
	ticker *time.Ticker
}

func (t *systemTicker) C() <-chan time.Time { return t.ticker.C }

func (t *systemTicker) Stop() { t.ticker.Stop() }
