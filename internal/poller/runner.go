// internal/poller/runner.go
package poller

import (
	"context"
	"time"
)

// Run starts the ticker loop and emits TickResult on the provided channel.
// The first tick fires immediately. Ticks never overlap.
func (p *Poller) Run(ctx context.Context, out chan<- TickResult) {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		res := p.Tick()
		select {
		case <-ctx.Done():
			return
		case out <- res:
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
