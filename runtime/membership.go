package runtime

import (
	"context"
	stderrors "errors"
	"fmt"

	"party-lab/domain"
	"party-lab/domain/event"
	"party-lab/errors"
)

// onAnchorEntry folds a voice arrival into the roster. The leader is
// promoted unconditionally; anyone else is gated, then, once the party
// is configured, auto-assigned as participant while there is room and
// as spectator otherwise.
func (e *Engine) onAnchorEntry(ctx context.Context, member domain.UserID, anchor domain.ChannelID, prior *domain.ChannelID) error {
	if member == e.gateway.Self() {
		return nil
	}
	if member != e.leaderOf(anchor) {
		authorized, err := e.gate.IsAuthorized(ctx, member)
		if err != nil {
			e.log.Warn("gate lookup failed, treating as denied", "member", member, "error", err)
		}
		if !authorized {
			e.denyAndRevert(ctx, member, prior,
				"You need to finish onboarding before joining parties. Head to the welcome channel first.")
			return nil
		}
	}

	err := e.store.Update(anchor, func(p *domain.Party) error {
		if member == p.Leader {
			if p.Configured() {
				p.Promote(member)
				e.render(ctx, p)
			}
			return nil
		}
		if !p.Configured() {
			// Capacity is unset until the flow completes; being in the
			// channel before that carries no role.
			return nil
		}
		if p.RoleOf(member) == domain.RoleNone {
			if err := p.AssignParticipant(member); stderrors.Is(err, errors.ErrCapacityExceeded) {
				_ = p.AssignSpectator(member)
			}
			e.render(ctx, p)
		}
		return nil
	})
	if stderrors.Is(err, errors.ErrStaleSession) {
		return nil
	}
	return err
}

// onAnchorExit drops a departing member from the roster and lets the
// reaper decide, after the settle delay, whether the channel is empty
// for good.
func (e *Engine) onAnchorExit(ctx context.Context, member domain.UserID, anchor domain.ChannelID) {
	_ = e.store.Update(anchor, func(p *domain.Party) error {
		if p.RoleOf(member) != domain.RoleNone {
			p.Remove(member)
			if p.Configured() {
				e.render(ctx, p)
			}
		}
		return nil
	})
	e.reaper.NotifyVacated(anchor)
}

// requestRole handles the card's Join/Spectate buttons. A press against
// a card with no live party deletes the stale card; otherwise the
// request goes through the configured roster policy, with at most one
// render per actual mutation.
func (e *Engine) requestRole(ctx context.Context, ev event.ButtonPressed, want domain.Role) error {
	anchor, ok := e.store.AnchorByCard(ev.Message)
	if !ok {
		if err := e.gateway.DeleteMessage(ctx, ev.Channel, ev.Message); err != nil {
			e.log.Warn("stale card deletion failed", "message", ev.Message, "error", err)
		}
		return e.gateway.Respond(ctx, ev.Token, "💨 This party no longer exists.", true)
	}

	authorized, err := e.gate.IsAuthorized(ctx, ev.Member)
	if err != nil {
		e.log.Warn("gate lookup failed, treating as denied", "member", ev.Member, "error", err)
	}
	if !authorized {
		return e.gateway.Respond(ctx, ev.Token, "❌ Finish onboarding before joining parties.", true)
	}

	occupants, err := e.gateway.Occupants(ctx, anchor)
	if err != nil {
		return fmt.Errorf("checking anchor occupancy: %w", err)
	}
	present := false
	for _, u := range occupants {
		if u == ev.Member {
			present = true
			break
		}
	}
	if !present {
		return e.gateway.Respond(ctx, ev.Token, "🔊 Hop into the voice channel first!", true)
	}

	var reply string
	updateErr := e.store.Update(anchor, func(p *domain.Party) error {
		if want == domain.RoleSpectator && ev.Member == p.Leader {
			reply = "👑 The leader stays a participant."
			return nil
		}
		switch {
		case p.RoleOf(ev.Member) == want:
			if e.settings.Policy == domain.PolicyToggle {
				p.Remove(ev.Member)
				e.render(ctx, p)
				reply = "👋 You left the party."
			} else {
				reply = fmt.Sprintf("✅ You are already a %s.", want)
			}
		case want == domain.RoleParticipant:
			err := p.AssignParticipant(ev.Member)
			switch {
			case err == nil:
				e.render(ctx, p)
				reply = "🎮 You joined as a participant!"
			case stderrors.Is(err, errors.ErrCapacityExceeded) && e.settings.Policy == domain.PolicyAssign:
				_ = p.AssignSpectator(ev.Member)
				e.render(ctx, p)
				reply = "👀 The party is full, so you joined as a spectator."
			case stderrors.Is(err, errors.ErrCapacityExceeded):
				reply = "🚫 The party is full."
			default:
				return err
			}
		default:
			if err := p.AssignSpectator(ev.Member); err != nil {
				return err
			}
			e.render(ctx, p)
			reply = "👀 You are now spectating."
		}
		return nil
	})
	if stderrors.Is(updateErr, errors.ErrStaleSession) {
		return e.gateway.Respond(ctx, ev.Token, "💨 This party no longer exists.", true)
	}
	if updateErr != nil {
		return updateErr
	}
	return e.gateway.Respond(ctx, ev.Token, reply, true)
}

func (e *Engine) leaderOf(anchor domain.ChannelID) domain.UserID {
	var leader domain.UserID
	_ = e.store.View(anchor, func(p *domain.Party) {
		leader = p.Leader
	})
	return leader
}
