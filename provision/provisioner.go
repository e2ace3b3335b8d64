// Package provision creates and destroys the platform resources a party
// owns: its anchor voice channel, its private setup thread and its
// published card. Creation failures abort the triggering flow; deletion
// failures are logged and swallowed, a leaked resource being cosmetic
// once the authoritative state is gone.
package provision

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"

	"party-lab/domain"
	"party-lab/errors"
	"party-lab/platform"
)

type Provisioner struct {
	gateway platform.Gateway
	log     *slog.Logger
}

func NewProvisioner(gateway platform.Gateway, log *slog.Logger) *Provisioner {
	return &Provisioner{gateway: gateway, log: log}
}

func (p *Provisioner) CreateAnchorChannel(ctx context.Context, category domain.ChannelID, name string, occupancyLimit int) (domain.ChannelID, error) {
	ch, err := p.gateway.CreateVoiceChannel(ctx, category, name, occupancyLimit)
	if err != nil {
		return "", fmt.Errorf("%w: anchor channel: %v", errors.ErrProvisionFailed, err)
	}
	return ch, nil
}

func (p *Provisioner) CreateConfigThread(ctx context.Context, parent domain.ChannelID, name string, invitee domain.UserID) (domain.ChannelID, error) {
	thread, err := p.gateway.CreatePrivateThread(ctx, parent, name, invitee)
	if err != nil {
		return "", fmt.Errorf("%w: config thread: %v", errors.ErrProvisionFailed, err)
	}
	return thread, nil
}

func (p *Provisioner) PublishCard(ctx context.Context, ch domain.ChannelID, body string, components ...platform.Component) (domain.MessageID, error) {
	msg, err := p.gateway.SendMessage(ctx, ch, body, components...)
	if err != nil {
		return "", fmt.Errorf("%w: card message: %v", errors.ErrProvisionFailed, err)
	}
	return msg, nil
}

func (p *Provisioner) RenderCard(ctx context.Context, ch domain.ChannelID, msg domain.MessageID, body string) error {
	return p.gateway.EditMessage(ctx, ch, msg, body)
}

// Teardown removes every resource the party still owns. Each deletion is
// independently fault-tolerant: an already-removed resource is a no-op
// and any other failure is downgraded to a warning.
func (p *Provisioner) Teardown(ctx context.Context, party *domain.Party) {
	if party.Thread != "" {
		p.delete(ctx, "setup thread", func() error {
			return p.gateway.DeleteChannel(ctx, party.Thread)
		})
	}
	if party.Card != "" {
		p.delete(ctx, "card message", func() error {
			return p.gateway.DeleteMessage(ctx, party.CardChannel, party.Card)
		})
	}
	p.delete(ctx, "anchor channel", func() error {
		return p.gateway.DeleteChannel(ctx, party.Anchor)
	})
}

func (p *Provisioner) delete(_ context.Context, what string, fn func() error) {
	err := fn()
	if err == nil || stderrors.Is(err, platform.ErrNotFound) {
		return
	}
	p.log.Warn("teardown left a resource behind", "resource", what, "error", err)
}
