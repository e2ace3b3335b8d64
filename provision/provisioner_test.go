package provision

import (
	"context"
	"log/slog"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"

	"party-lab/domain"
	"party-lab/errors"
	"party-lab/platform"
)

func TestProvisioner_CreateFailuresCarryTheSentinel(t *testing.T) {
	req := require.New(t)
	gw := platform.NewLoopback()
	gw.AddChannel("cat", "Party Zone", "")
	p := NewProvisioner(gw, logs.GetLoggerFromLevel(slog.LevelDebug))

	ctx := context.Background()
	gw.FailChannelCreate = true
	_, err := p.CreateAnchorChannel(ctx, "cat", "ana's party setup", 1)
	req.ErrorIs(err, errors.ErrProvisionFailed)

	// Thread creation against a missing parent fails the same way
	_, err = p.CreateConfigThread(ctx, "missing-channel", "setup", "u-1")
	req.ErrorIs(err, errors.ErrProvisionFailed)

	_, err = p.PublishCard(ctx, "missing-channel", "body")
	req.ErrorIs(err, errors.ErrProvisionFailed)
}

func TestProvisioner_TeardownSwallowsMissingResources(t *testing.T) {
	req := require.New(t)
	gw := platform.NewLoopback()
	gw.AddChannel("cat", "Party Zone", "")
	gw.AddChannel("cards", "party-cards", "")
	p := NewProvisioner(gw, logs.GetLoggerFromLevel(slog.LevelDebug))

	ctx := context.Background()
	anchor, err := p.CreateAnchorChannel(ctx, "cat", "ana's party", 0)
	req.NoError(err)

	party := domain.NewParty(anchor, "u-1")
	party.Thread = "already-gone-thread"
	party.CardChannel = "cards"
	party.Card = "already-gone-msg"

	// Teardown must not flinch at resources deleted externally
	p.Teardown(ctx, party)
	req.False(gw.HasChannel(anchor))

	// A second run is a pure no-op
	p.Teardown(ctx, party)
}
