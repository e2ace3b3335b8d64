package runtime

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"

	"party-lab/auth"
	"party-lab/domain"
	"party-lab/domain/event"
	"party-lab/platform"
	"party-lab/provision"
)

const (
	verifiedRole = "Verified"

	leaderID domain.UserID = "u-ana"
	bobID    domain.UserID = "u-bob"
	catID    domain.UserID = "u-cat"
	eveID    domain.UserID = "u-eve"
)

type fixture struct {
	gw     *platform.Loopback
	store  *PartyStore
	engine *Engine
}

func newFixture(t *testing.T, adjust func(*Settings)) *fixture {
	t.Helper()
	gw := platform.NewLoopback()
	gw.AddChannel("cat", "Party Zone", "")
	gw.AddChannel("trigger", "➕ New Party", "cat")
	gw.AddChannel("cards", "party-cards", "")
	gw.AddChannel("notices", "general", "")

	gw.AddMember(leaderID, "ana/98/Ana#EUW", verifiedRole)
	gw.AddMember(bobID, "bob/99/Bob#EUW", verifiedRole)
	gw.AddMember(catID, "cat/00/Cat#EUW", verifiedRole)
	gw.AddMember(eveID, "eve")

	settings := Settings{
		TriggerChannel: "trigger",
		CardChannel:    "cards",
		NoticeChannel:  "notices",
		SetupTimeout:   time.Minute,
		SettleDelay:    25 * time.Millisecond,
		ThreadGrace:    10 * time.Millisecond,
		NoticeTTL:      10 * time.Millisecond,
	}
	if adjust != nil {
		adjust(&settings)
	}

	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	store := NewPartyStore()
	engine := NewEngine(log, gw, store, provision.NewProvisioner(gw, log),
		auth.NewRoleGate(gw, verifiedRole), provision.NewPartyCard(), settings)
	return &fixture{gw: gw, store: store, engine: engine}
}

func (f *fixture) enterVoice(t *testing.T, member domain.UserID, to domain.ChannelID) {
	t.Helper()
	ctx := context.Background()
	from := f.voicePtr(member)
	require.NoError(t, f.gw.MoveMember(ctx, member, &to))
	require.NoError(t, f.engine.HandleEvent(ctx, event.VoiceStateUpdated{Member: member, From: from, To: &to}))
}

func (f *fixture) leaveVoice(t *testing.T, member domain.UserID) {
	t.Helper()
	ctx := context.Background()
	from := f.voicePtr(member)
	require.NoError(t, f.gw.MoveMember(ctx, member, nil))
	require.NoError(t, f.engine.HandleEvent(ctx, event.VoiceStateUpdated{Member: member, From: from}))
}

func (f *fixture) voicePtr(member domain.UserID) *domain.ChannelID {
	if loc := f.gw.Location(member); loc != "" {
		ch := loc
		return &ch
	}
	return nil
}

// startParty walks the leader through trigger entry and the free-text
// setup flow, returning the anchor channel and the published card.
func (f *fixture) startParty(t *testing.T, size string, mode string) (domain.ChannelID, domain.MessageID) {
	t.Helper()
	ctx := context.Background()
	f.enterVoice(t, leaderID, "trigger")

	anchor := f.gw.Location(leaderID)
	require.NotEqual(t, domain.ChannelID("trigger"), anchor)
	require.True(t, f.store.Contains(anchor))

	require.NoError(t, f.engine.HandleEvent(ctx, event.MenuSelected{
		Member: leaderID, CustomID: CustomSetupSize, Values: []string{size}, Token: "t-size",
	}))
	require.NoError(t, f.engine.HandleEvent(ctx, event.ButtonPressed{
		Member: leaderID, CustomID: CustomSetupStart, Token: "t-start",
	}))
	require.NotEmpty(t, f.gw.OpenedModals())
	require.NoError(t, f.engine.HandleEvent(ctx, event.ModalSubmitted{
		Member: leaderID, CustomID: CustomSetupModal,
		Fields: map[string]string{"mode": mode}, Token: "t-modal",
	}))

	messages, err := f.gw.ChannelMessages(ctx, "cards", 10)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	return anchor, messages[0].ID
}

func (f *fixture) cardBody(t *testing.T, card domain.MessageID) string {
	t.Helper()
	body, ok := f.gw.MessageBody("cards", card)
	require.True(t, ok)
	return body
}

func TestEngine_SetupFlowPublishesCard(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, nil)

	// When the leader walks through the whole setup flow
	anchor, card := f.startParty(t, "4", "Valorant")

	// Then the anchor is renamed and the card reflects the fresh roster
	name, err := f.gw.ChannelName(context.Background(), anchor)
	req.NoError(err)
	req.Equal("ana's party", name)

	body := f.cardBody(t, card)
	req.Contains(body, "ana's party is open!")
	req.Contains(body, "Valorant")
	req.Contains(body, "1 / 4")
	req.Contains(body, "ana")

	// And the flow is closed
	req.False(f.engine.flows.Busy(leaderID))
}

func TestEngine_VoiceArrivalsAndDeparturesSyncRoster(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, nil)
	anchor, card := f.startParty(t, "4", "ARAM")

	// When a verified member enters the anchor channel
	f.enterVoice(t, bobID, anchor)
	req.Contains(f.cardBody(t, card), "bob")
	req.Contains(f.cardBody(t, card), "2 / 4")

	// And leaves again
	f.leaveVoice(t, bobID)
	body := f.cardBody(t, card)
	req.NotContains(body, "bob")
	req.Contains(body, "1 / 4")
}

func TestEngine_FullPartyRedirectsToSpectators(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, nil)
	anchor, card := f.startParty(t, "2", "Duo Ranked")

	// Given a full participant set
	f.enterVoice(t, bobID, anchor)
	req.Contains(f.cardBody(t, card), "2 / 2")

	// When a third member arrives
	f.enterVoice(t, catID, anchor)

	// Then they land in the spectator column
	body := f.cardBody(t, card)
	req.Contains(body, "Spectators: cat")
	req.Contains(body, "2 / 2")

	// And pressing Join keeps them a spectator, with an explanation
	err := f.engine.HandleEvent(context.Background(), event.ButtonPressed{
		Member: catID, Channel: "cards", Message: card,
		CustomID: CustomJoinParticipant, Token: "t-join",
	})
	req.NoError(err)
	responses := f.gw.Responses()
	req.NotEmpty(responses)
	req.Contains(responses[len(responses)-1].Body, "spectator")
	req.Contains(f.cardBody(t, card), "Spectators: cat")
}

func TestEngine_TogglePolicyRemovesOnRepeatPress(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, func(s *Settings) { s.Policy = domain.PolicyToggle })
	anchor, card := f.startParty(t, "4", "ARAM")
	f.enterVoice(t, bobID, anchor)
	req.Contains(f.cardBody(t, card), "bob")

	// When an assigned participant presses Join again
	err := f.engine.HandleEvent(context.Background(), event.ButtonPressed{
		Member: bobID, Channel: "cards", Message: card,
		CustomID: CustomJoinParticipant, Token: "t-toggle",
	})
	req.NoError(err)

	// Then toggle policy drops them from the roster
	req.NotContains(f.cardBody(t, card), "bob")
}

func TestEngine_LeaderSpectatorRequestRejected(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, nil)
	_, card := f.startParty(t, "4", "ARAM")

	err := f.engine.HandleEvent(context.Background(), event.ButtonPressed{
		Member: leaderID, Channel: "cards", Message: card,
		CustomID: CustomJoinSpectator, Token: "t-lead-spec",
	})
	req.NoError(err)

	// The leader stays a participant
	req.Contains(f.cardBody(t, card), "Participants: ana")
	responses := f.gw.Responses()
	req.Contains(responses[len(responses)-1].Body, "leader")
}

func TestEngine_EmptyAnchorIsReapedOnce(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, nil)
	anchor, card := f.startParty(t, "4", "ARAM")
	f.enterVoice(t, bobID, anchor)

	// When everyone leaves
	f.leaveVoice(t, bobID)
	f.leaveVoice(t, leaderID)

	// Then after the settle delay the whole session is collected
	req.Eventually(func() bool {
		return f.store.Len() == 0 && !f.gw.HasChannel(anchor)
	}, time.Second, 10*time.Millisecond)
	_, ok := f.gw.MessageBody("cards", card)
	req.False(ok)
}

func TestEngine_BriefVacancySurvivesSettleDelay(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, nil)
	anchor, _ := f.startParty(t, "4", "ARAM")

	// When the leader hops out and back in before the settle delay fires
	f.leaveVoice(t, leaderID)
	f.enterVoice(t, leaderID, anchor)

	// Then the re-check finds the channel occupied and keeps the party
	time.Sleep(80 * time.Millisecond)
	req.True(f.store.Contains(anchor))
	req.True(f.gw.HasChannel(anchor))
}

func TestEngine_StaleCardIsDeletedOnPress(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, nil)

	// Given a card message no live party owns
	ctx := context.Background()
	orphan, err := f.gw.SendMessage(ctx, "cards", "🎉 ghost's party is open!")
	req.NoError(err)

	err = f.engine.HandleEvent(ctx, event.ButtonPressed{
		Member: bobID, Channel: "cards", Message: orphan,
		CustomID: CustomJoinParticipant, Token: "t-stale",
	})
	req.NoError(err)

	_, ok := f.gw.MessageBody("cards", orphan)
	req.False(ok)
	responses := f.gw.Responses()
	req.Contains(responses[len(responses)-1].Body, "no longer exists")
}

func TestEngine_UnverifiedActorIsDeniedAndReverted(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, nil)

	// When an unverified member enters the trigger channel
	f.enterVoice(t, eveID, "trigger")

	// Then no session is created and they are disconnected
	req.Equal(0, f.store.Len())
	req.Empty(f.gw.Location(eveID))
	req.NotEmpty(f.gw.Directs(eveID))
}

func TestEngine_DenialFallsBackToTransientNotice(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, nil)
	f.gw.FailDirectTo[eveID] = true

	f.enterVoice(t, eveID, "trigger")

	req.Equal(0, f.store.Len())
	// The public notice cleans itself up after its TTL
	req.Eventually(func() bool {
		messages, err := f.gw.ChannelMessages(context.Background(), "notices", 10)
		return err == nil && len(messages) == 0
	}, time.Second, 10*time.Millisecond)
}

func TestEngine_ProvisionFailureRollsBack(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, nil)
	f.gw.FailThreadCreate = true

	ctx := context.Background()
	to := domain.ChannelID("trigger")
	req.NoError(f.gw.MoveMember(ctx, leaderID, &to))
	err := f.engine.HandleEvent(ctx, event.VoiceStateUpdated{Member: leaderID, To: &to})
	req.Error(err)

	// All-or-nothing: the anchor created in the attempt is gone and no
	// party was registered
	req.Equal(0, f.store.Len())
	req.False(f.gw.HasChannel("vc-1"))
	req.False(f.engine.flows.Busy(leaderID))
}

func TestEngine_SetupTimeoutCollectsAbandonedFlow(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, func(s *Settings) { s.SetupTimeout = 40 * time.Millisecond })

	// Given a leader who enters the trigger and then stalls
	f.enterVoice(t, leaderID, "trigger")
	anchor := f.gw.Location(leaderID)
	req.True(f.store.Contains(anchor))

	// Then the timeout tears the half-configured session down
	req.Eventually(func() bool {
		return f.store.Len() == 0 && !f.gw.HasChannel(anchor)
	}, time.Second, 10*time.Millisecond)
}

func TestEngine_SecondTriggerEntryDuringFlowIsBounced(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, nil)
	f.enterVoice(t, leaderID, "trigger")
	req.Equal(1, f.store.Len())

	// When the same leader hits the trigger again mid-flow
	ctx := context.Background()
	to := domain.ChannelID("trigger")
	req.NoError(f.gw.MoveMember(ctx, leaderID, &to))
	req.NoError(f.engine.HandleEvent(ctx, event.VoiceStateUpdated{Member: leaderID, To: &to}))

	// Then no second session appears
	req.Equal(1, f.store.Len())
}

func TestEngine_LeaderRejoinIsPromoted(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, nil)
	anchor, card := f.startParty(t, "4", "ARAM")
	f.enterVoice(t, bobID, anchor)

	// When the leader drops and returns before the reap check
	f.leaveVoice(t, leaderID)
	req.NotContains(f.cardBody(t, card), "Participants: ana")
	f.enterVoice(t, leaderID, anchor)

	// Then the leader is a participant again
	req.Contains(f.cardBody(t, card), "ana")
	err := f.store.View(anchor, func(p *domain.Party) {
		req.Equal(domain.RoleParticipant, p.RoleOf(leaderID))
	})
	req.NoError(err)
}

func TestEngine_PreConfigurationEntryGetsNoRole(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, nil)

	// Given a friend who follows the leader in before setup is done
	f.enterVoice(t, leaderID, "trigger")
	anchor := f.gw.Location(leaderID)
	f.enterVoice(t, bobID, anchor)

	err := f.store.View(anchor, func(p *domain.Party) {
		req.Equal(domain.RoleNone, p.RoleOf(bobID))
	})
	req.NoError(err)

	// When the leader completes setup with a single-slot party
	ctx := context.Background()
	req.NoError(f.engine.HandleEvent(ctx, event.MenuSelected{
		Member: leaderID, CustomID: CustomSetupSize, Values: []string{"1"}, Token: "t-size",
	}))
	req.NoError(f.engine.HandleEvent(ctx, event.ButtonPressed{
		Member: leaderID, CustomID: CustomSetupStart, Token: "t-start",
	}))
	req.NoError(f.engine.HandleEvent(ctx, event.ModalSubmitted{
		Member: leaderID, CustomID: CustomSetupModal,
		Fields: map[string]string{"mode": "Chess"}, Token: "t-modal",
	}))

	// Then the roster never exceeds the chosen capacity
	err = f.store.View(anchor, func(p *domain.Party) {
		req.LessOrEqual(len(p.Participants()), p.Capacity)
		req.Equal(domain.RoleParticipant, p.RoleOf(leaderID))
		req.Equal(domain.RoleNone, p.RoleOf(bobID))
	})
	req.NoError(err)

	// And the card agrees with the real roster
	messages, err := f.gw.ChannelMessages(ctx, "cards", 10)
	req.NoError(err)
	req.Len(messages, 1)
	body := f.cardBody(t, messages[0].ID)
	req.Contains(body, "1 / 1")
	req.NotContains(body, "bob")
}

func TestEngine_ModeSelectVariantCompletesWithoutModal(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, func(s *Settings) { s.Variant = VariantModeSelect })

	f.enterVoice(t, leaderID, "trigger")
	anchor := f.gw.Location(leaderID)

	// Starting before both menus are picked only re-prompts
	ctx := context.Background()
	req.NoError(f.engine.HandleEvent(ctx, event.ButtonPressed{
		Member: leaderID, CustomID: CustomSetupStart, Token: "t-early",
	}))
	responses := f.gw.Responses()
	req.Contains(responses[len(responses)-1].Body, "mode")

	// When both menus are answered and the leader confirms
	req.NoError(f.engine.HandleEvent(ctx, event.MenuSelected{
		Member: leaderID, CustomID: CustomSetupMode, Values: []string{"ARAM"}, Token: "t-mode",
	}))
	req.NoError(f.engine.HandleEvent(ctx, event.MenuSelected{
		Member: leaderID, CustomID: CustomSetupSize, Values: []string{"5"}, Token: "t-size",
	}))
	req.NoError(f.engine.HandleEvent(ctx, event.ButtonPressed{
		Member: leaderID, CustomID: CustomSetupStart, Token: "t-start",
	}))

	// Then the card goes out with no modal step involved
	req.Empty(f.gw.OpenedModals())
	messages, err := f.gw.ChannelMessages(ctx, "cards", 10)
	req.NoError(err)
	req.Len(messages, 1)
	body := f.cardBody(t, messages[0].ID)
	req.Contains(body, "ARAM")
	req.Contains(body, "1 / 5")
	req.True(f.store.Contains(anchor))
	req.False(f.engine.flows.Busy(leaderID))
}

func TestEngine_ModalRejectsOversizedMode(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, nil)
	f.enterVoice(t, leaderID, "trigger")
	anchor := f.gw.Location(leaderID)

	ctx := context.Background()
	req.NoError(f.engine.HandleEvent(ctx, event.MenuSelected{
		Member: leaderID, CustomID: CustomSetupSize, Values: []string{"4"}, Token: "t-size",
	}))
	req.NoError(f.engine.HandleEvent(ctx, event.ButtonPressed{
		Member: leaderID, CustomID: CustomSetupStart, Token: "t-start",
	}))

	// When the submitted name is blank
	req.NoError(f.engine.HandleEvent(ctx, event.ModalSubmitted{
		Member: leaderID, CustomID: CustomSetupModal,
		Fields: map[string]string{"mode": "   "}, Token: "t-modal",
	}))

	// Then nothing is published and the flow stays open for a retry
	messages, err := f.gw.ChannelMessages(ctx, "cards", 10)
	req.NoError(err)
	req.Empty(messages)
	req.True(f.store.Contains(anchor))
	req.True(f.engine.flows.Busy(leaderID))
}
