package services

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"

	"party-lab/domain/event"
	"party-lab/platform"
)

func newOnboarding(gw *platform.Loopback, stepTimeout time.Duration) *OnboardingService {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	return NewOnboardingService(
		log, gw,
		NewNicknameService(log, gw),
		NewRoleService(log, gw),
		"welcome", "Verified", stepTimeout,
	)
}

func TestOnboarding_FullFlowGrantsVerified(t *testing.T) {
	req := require.New(t)
	gw := platform.NewLoopback()
	gw.AddChannel("welcome", "welcome", "")
	gw.AddMember("u-new", "RandomJoiner")
	service := newOnboarding(gw, time.Minute)

	ctx := context.Background()

	// Step 0: the joiner is greeted
	req.NoError(service.HandleEvent(ctx, event.MemberJoined{Member: "u-new"}))
	messages, err := gw.ChannelMessages(ctx, "welcome", 10)
	req.NoError(err)
	req.Len(messages, 1)

	// Step 1: the nickname modal
	req.NoError(service.HandleEvent(ctx, event.ButtonPressed{
		Member: "u-new", CustomID: CustomOnboardStart, Token: "t-open",
	}))
	req.NotEmpty(gw.OpenedModals())

	req.NoError(service.HandleEvent(ctx, event.ModalSubmitted{
		Member:   "u-new",
		CustomID: CustomOnboardModal,
		Fields:   map[string]string{fieldAlias: "ana", fieldBirth: "98", fieldGameName: "Ana#euw"},
		Token:    "t-modal",
	}))
	name, err := gw.DisplayName(ctx, "u-new")
	req.NoError(err)
	req.Equal("ana/98/Ana#EUW", name)

	// Step 2: the role pick completes the flow
	req.NoError(service.HandleEvent(ctx, event.MenuSelected{
		Member: "u-new", CustomID: CustomOnboardRole, Values: []string{"Night"}, Token: "t-role",
	}))

	roles, err := gw.MemberRoles(ctx, "u-new")
	req.NoError(err)
	req.Contains(roles, "Night")
	req.Contains(roles, "Verified")
}

func TestOnboarding_RolePickWithoutNicknameStepIsRefused(t *testing.T) {
	req := require.New(t)
	gw := platform.NewLoopback()
	gw.AddChannel("welcome", "welcome", "")
	gw.AddMember("u-sneaky", "whatever")
	service := newOnboarding(gw, time.Minute)

	ctx := context.Background()
	req.NoError(service.HandleEvent(ctx, event.MenuSelected{
		Member: "u-sneaky", CustomID: CustomOnboardRole, Values: []string{"Night"}, Token: "t-role",
	}))

	roles, err := gw.MemberRoles(ctx, "u-sneaky")
	req.NoError(err)
	req.NotContains(roles, "Verified")
}

func TestOnboarding_AbandonedStepExpires(t *testing.T) {
	req := require.New(t)
	gw := platform.NewLoopback()
	gw.AddChannel("welcome", "welcome", "")
	gw.AddMember("u-new", "RandomJoiner")
	service := newOnboarding(gw, 30*time.Millisecond)

	ctx := context.Background()
	req.NoError(service.HandleEvent(ctx, event.ModalSubmitted{
		Member:   "u-new",
		CustomID: CustomOnboardModal,
		Fields:   map[string]string{fieldAlias: "ana", fieldBirth: "98", fieldGameName: "Ana#euw"},
		Token:    "t-modal",
	}))

	// The step-2 message disappears after the timeout
	req.Eventually(func() bool {
		messages, err := gw.ChannelMessages(ctx, "welcome", 10)
		return err == nil && len(messages) == 0
	}, time.Second, 10*time.Millisecond)

	// A late role pick no longer verifies
	req.NoError(service.HandleEvent(ctx, event.MenuSelected{
		Member: "u-new", CustomID: CustomOnboardRole, Values: []string{"Night"}, Token: "t-late",
	}))
	roles, err := gw.MemberRoles(ctx, "u-new")
	req.NoError(err)
	req.NotContains(roles, "Verified")
}
