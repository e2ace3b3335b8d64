package runtime

import (
	"context"
	stderrors "errors"
	"log/slog"
	"time"

	"party-lab/domain"
	"party-lab/platform"
)

// Reaper collects sessions whose anchor channel has emptied out. Every
// vacate notification schedules a re-check after the settle delay, so a
// member hopping between channels never kills the party mid-hop. The
// check re-queries live occupancy rather than trusting the event that
// scheduled it.
type Reaper struct {
	log      *slog.Logger
	store    *PartyStore
	gateway  platform.Gateway
	settle   time.Duration
	teardown func(ctx context.Context, anchor domain.ChannelID)
}

func NewReaper(log *slog.Logger, store *PartyStore, gateway platform.Gateway, settle time.Duration, teardown func(ctx context.Context, anchor domain.ChannelID)) *Reaper {
	return &Reaper{
		log:      log,
		store:    store,
		gateway:  gateway,
		settle:   settle,
		teardown: teardown,
	}
}

// NotifyVacated arms a reap check for the anchor. The timer is owned by
// the party entry, so a teardown committed in the meantime cancels it.
func (r *Reaper) NotifyVacated(anchor domain.ChannelID) {
	r.store.Schedule(anchor, r.settle, func() {
		r.reap(context.Background(), anchor)
	})
}

func (r *Reaper) reap(ctx context.Context, anchor domain.ChannelID) {
	occupants, err := r.gateway.Occupants(ctx, anchor)
	switch {
	case stderrors.Is(err, platform.ErrNotFound):
		// Channel already gone externally, collect the record.
	case err != nil:
		// Indeterminate occupancy: keep the session, a later vacate
		// will retry.
		r.log.Warn("reap check failed", "anchor", anchor, "error", err)
		return
	case len(occupants) > 0:
		return
	}
	r.log.Info("reaping empty party", "anchor", anchor)
	r.teardown(ctx, anchor)
}
