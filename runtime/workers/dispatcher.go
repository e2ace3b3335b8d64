package workers

import (
	"context"
	"fmt"
	"log/slog"

	"party-lab/contract"
	"party-lab/platform"
)

// Dispatcher drains the gateway event stream and fans each event out to
// every registered handler, sequentially and in registration order. A
// handler error is logged and the stream keeps flowing; ordering per
// gateway connection is preserved because there is a single consumer.
type Dispatcher struct {
	log      *slog.Logger
	gateway  platform.Gateway
	handlers []contract.EventHandler
}

func NewDispatcher(log *slog.Logger, gateway platform.Gateway, handlers ...contract.EventHandler) *Dispatcher {
	return &Dispatcher{log: log, gateway: gateway, handlers: handlers}
}

func (d *Dispatcher) Run(ctx context.Context) error {
	events := d.gateway.Events()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			for _, h := range d.handlers {
				if err := h.HandleEvent(ctx, ev); err != nil {
					d.log.Error("event handling failed", "event", fmt.Sprintf("%T", ev), "error", err)
				}
			}
		}
	}
}
