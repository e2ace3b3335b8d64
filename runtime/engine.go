package runtime

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"

	"party-lab/contract"
	"party-lab/domain"
	"party-lab/domain/event"
	"party-lab/errors"
	"party-lab/platform"
	"party-lab/provision"
)

// Stable interaction identifiers. They survive process restarts, which
// is what keeps cards from a prior lifetime actionable (and deletable).
const (
	CustomJoinParticipant = "party:join:participant"
	CustomJoinSpectator   = "party:join:spectator"
	CustomSetupMode       = "party:setup:mode"
	CustomSetupSize       = "party:setup:size"
	CustomSetupStart      = "party:setup:start"
	CustomSetupModal      = "party:setup:modal"

	modalFieldMode = "mode"
)

// setupMarker tags anchor channels still awaiting configuration; the
// timeout path only deletes channels that still carry it.
const setupMarker = "party setup"

const maxModeLength = 50

type Settings struct {
	TriggerChannel domain.ChannelID
	CardChannel    domain.ChannelID
	NoticeChannel  domain.ChannelID

	SetupTimeout time.Duration
	SettleDelay  time.Duration
	ThreadGrace  time.Duration
	NoticeTTL    time.Duration

	Policy  domain.RosterPolicy
	Variant FlowVariant
	Modes   []string
	Sizes   []int
}

func (s *Settings) applyDefaults() {
	if s.SetupTimeout == 0 {
		s.SetupTimeout = 5 * time.Minute
	}
	if s.SettleDelay == 0 {
		s.SettleDelay = 500 * time.Millisecond
	}
	if s.ThreadGrace == 0 {
		s.ThreadGrace = 5 * time.Second
	}
	if s.NoticeTTL == 0 {
		s.NoticeTTL = 5 * time.Second
	}
	if s.Policy == "" {
		s.Policy = domain.PolicyAssign
	}
	if s.Variant == "" {
		s.Variant = VariantFreeText
	}
	if len(s.Modes) == 0 {
		s.Modes = []string{"Normals", "Duo Ranked", "Flex Ranked", "ARAM", "Arena"}
	}
	if len(s.Sizes) == 0 {
		s.Sizes = []int{2, 3, 4, 5, 6, 8, 10, 16}
	}
}

// Engine is the membership synchronizer and the entry point for every
// platform event the party system consumes. All party state lives in
// the injected store; the engine itself only holds collaborators.
type Engine struct {
	log         *slog.Logger
	gateway     platform.Gateway
	store       *PartyStore
	provisioner *provision.Provisioner
	gate        contract.Gate
	renderer    contract.CardRenderer
	flows       *FlowSet
	reaper      *Reaper
	settings    Settings
}

func NewEngine(
	log *slog.Logger,
	gateway platform.Gateway,
	store *PartyStore,
	provisioner *provision.Provisioner,
	gate contract.Gate,
	renderer contract.CardRenderer,
	settings Settings,
) *Engine {
	settings.applyDefaults()
	e := &Engine{
		log:         log,
		gateway:     gateway,
		store:       store,
		provisioner: provisioner,
		gate:        gate,
		renderer:    renderer,
		flows:       NewFlowSet(),
		settings:    settings,
	}
	e.reaper = NewReaper(log, store, gateway, settings.SettleDelay, e.teardownParty)
	return e
}

func (e *Engine) HandleEvent(ctx context.Context, ev event.PlatformEvent) error {
	switch ev := ev.(type) {
	case event.VoiceStateUpdated:
		return e.handleVoice(ctx, ev)
	case event.ButtonPressed:
		return e.handleButton(ctx, ev)
	case event.MenuSelected:
		return e.handleMenu(ctx, ev)
	case event.ModalSubmitted:
		if ev.CustomID == CustomSetupModal {
			return e.submitSetup(ctx, ev.Member, ev.Fields[modalFieldMode], ev.Token)
		}
	}
	return nil
}

func (e *Engine) handleVoice(ctx context.Context, ev event.VoiceStateUpdated) error {
	if ev.From != nil && e.store.Contains(*ev.From) {
		e.onAnchorExit(ctx, ev.Member, *ev.From)
	}
	if ev.To != nil && *ev.To == e.settings.TriggerChannel {
		return e.onTriggerEntry(ctx, ev)
	}
	if ev.To != nil && e.store.Contains(*ev.To) {
		return e.onAnchorEntry(ctx, ev.Member, *ev.To, ev.From)
	}
	return nil
}

func (e *Engine) handleButton(ctx context.Context, ev event.ButtonPressed) error {
	switch ev.CustomID {
	case CustomJoinParticipant:
		return e.requestRole(ctx, ev, domain.RoleParticipant)
	case CustomJoinSpectator:
		return e.requestRole(ctx, ev, domain.RoleSpectator)
	case CustomSetupStart:
		return e.confirmSetup(ctx, ev)
	}
	return nil
}

func (e *Engine) handleMenu(ctx context.Context, ev event.MenuSelected) error {
	if len(ev.Values) == 0 {
		return nil
	}
	switch ev.CustomID {
	case CustomSetupMode:
		return e.selectMode(ctx, ev.Member, ev.Values[0], ev.Token)
	case CustomSetupSize:
		return e.selectSize(ctx, ev.Member, ev.Values[0], ev.Token)
	}
	return nil
}

// onTriggerEntry starts a session: gate the actor, provision the anchor
// channel and the private setup thread (all-or-nothing), register the
// party and arm the setup timeout. Authorization is checked before any
// state mutation, so denial only has to revert the platform move.
func (e *Engine) onTriggerEntry(ctx context.Context, ev event.VoiceStateUpdated) error {
	member := ev.Member
	authorized, err := e.gate.IsAuthorized(ctx, member)
	if err != nil {
		e.log.Warn("gate lookup failed, treating as denied", "member", member, "error", err)
	}
	if !authorized {
		e.denyAndRevert(ctx, member, ev.From,
			"You need to finish onboarding before creating a party. Head to the welcome channel to set your nickname and pick a role.")
		return nil
	}
	if e.flows.Busy(member) {
		// One pending setup per leader; send them back to wherever
		// they came from.
		_ = e.gateway.MoveMember(ctx, member, ev.From)
		return nil
	}

	short := e.shortNameOf(ctx, member)
	category, err := e.gateway.CategoryOf(ctx, e.settings.TriggerChannel)
	if err != nil {
		return fmt.Errorf("resolving trigger category: %w", err)
	}

	anchor, err := e.provisioner.CreateAnchorChannel(ctx, category, short+" "+setupMarker, 1)
	if err != nil {
		e.notifyProvisionFailure(ctx, member, ev.From)
		return err
	}
	if err := e.gateway.MoveMember(ctx, member, &anchor); err != nil {
		_ = e.gateway.DeleteChannel(ctx, anchor)
		e.notifyProvisionFailure(ctx, member, ev.From)
		return fmt.Errorf("moving leader into anchor: %w", err)
	}
	thread, err := e.provisioner.CreateConfigThread(ctx, e.settings.CardChannel, short+" "+setupMarker, member)
	if err != nil {
		// All-or-nothing: the channel created in this attempt goes too.
		_ = e.gateway.DeleteChannel(ctx, anchor)
		_ = e.gateway.MoveMember(ctx, member, ev.From)
		e.notifyProvisionFailure(ctx, member, ev.From)
		return err
	}
	panel, err := e.gateway.SendMessage(ctx, thread, setupPrompt(short), e.setupComponents()...)
	if err != nil {
		_ = e.gateway.DeleteChannel(ctx, thread)
		_ = e.gateway.DeleteChannel(ctx, anchor)
		_ = e.gateway.MoveMember(ctx, member, ev.From)
		e.notifyProvisionFailure(ctx, member, ev.From)
		return fmt.Errorf("sending setup panel: %w", err)
	}

	party := domain.NewParty(anchor, member)
	party.Thread = thread
	party.CardChannel = e.settings.CardChannel
	if err := e.store.Register(party); err != nil {
		return err
	}
	flow, ok := e.flows.Begin(member, anchor, thread, panel)
	if !ok {
		return errors.ErrFlowInProgress
	}
	flow.mu.Lock()
	if !flow.state.terminal() {
		flow.timer = time.AfterFunc(e.settings.SetupTimeout, func() {
			e.flowTimeout(context.Background(), member)
		})
	}
	flow.mu.Unlock()
	e.log.Info("setup flow started", "leader", member, "anchor", anchor)
	return nil
}

func (e *Engine) selectMode(_ context.Context, member domain.UserID, value, token string) error {
	flow, ok := e.flows.Get(member)
	if !ok {
		return nil
	}
	flow.mu.Lock()
	defer flow.mu.Unlock()
	if flow.state != flowAwaitingSelection {
		return nil
	}
	flow.mode = value
	return e.gateway.Respond(context.Background(), token, fmt.Sprintf("🕹️ Mode: **%s**", value), true)
}

func (e *Engine) selectSize(_ context.Context, member domain.UserID, value, token string) error {
	flow, ok := e.flows.Get(member)
	if !ok {
		return nil
	}
	size, err := strconv.Atoi(value)
	if err != nil || size <= 0 {
		return nil
	}
	flow.mu.Lock()
	defer flow.mu.Unlock()
	if flow.state != flowAwaitingSelection {
		return nil
	}
	flow.size = size
	return e.gateway.Respond(context.Background(), token, fmt.Sprintf("👥 Party size: **%d**", size), true)
}

func (e *Engine) confirmSetup(ctx context.Context, ev event.ButtonPressed) error {
	flow, ok := e.flows.Get(ev.Member)
	if !ok {
		return nil
	}
	flow.mu.Lock()
	if flow.state != flowAwaitingSelection {
		flow.mu.Unlock()
		return nil
	}
	mode, size := flow.mode, flow.size
	flow.mu.Unlock()

	switch e.settings.Variant {
	case VariantModeSelect:
		if mode == "" || size == 0 {
			return e.gateway.Respond(ctx, ev.Token, "❗ Pick a mode and a party size first.", true)
		}
		return e.complete(ctx, flow, mode, ev.Token)
	default: // VariantFreeText
		if size == 0 {
			return e.gateway.Respond(ctx, ev.Token, "❗ Pick a party size first.", true)
		}
		flow.mu.Lock()
		flow.state = flowAwaitingSubmission
		flow.mu.Unlock()
		return e.gateway.OpenModal(ctx, ev.Token, platform.Modal{
			CustomID: CustomSetupModal,
			Title:    "Name your activity",
			Fields: []platform.ModalField{{
				Key:         modalFieldMode,
				Label:       "What are you playing?",
				Placeholder: "e.g. Valorant, Overwatch 2, Minecraft...",
				MaxLen:      maxModeLength,
				Required:    true,
			}},
		})
	}
}

func (e *Engine) submitSetup(ctx context.Context, member domain.UserID, mode, token string) error {
	flow, ok := e.flows.Get(member)
	if !ok {
		return nil
	}
	mode = strings.TrimSpace(mode)
	if mode == "" || len([]rune(mode)) > maxModeLength {
		// Re-prompt without creating anything.
		return e.gateway.Respond(ctx, token, "❗ Enter an activity name (50 characters max).", true)
	}
	return e.complete(ctx, flow, mode, token)
}

// complete is the exactly-once completion transition: it mutates the
// party, relabels the anchor, publishes the card, and schedules the
// setup thread for deletion after a short grace delay.
func (e *Engine) complete(ctx context.Context, flow *SetupFlow, mode, token string) error {
	if !flow.enter(flowCompleted) {
		return nil
	}
	flow.mu.Lock()
	leader, anchor := flow.leader, flow.anchor
	size := flow.size
	flow.mu.Unlock()
	e.flows.End(leader)

	short := e.shortNameOf(ctx, leader)
	err := e.store.Update(anchor, func(p *domain.Party) error {
		if err := e.gateway.EditChannel(ctx, anchor, short+"'s party", 0); err != nil {
			e.log.Warn("anchor rename failed", "anchor", anchor, "error", err)
		}
		snap := e.snapshot(ctx, p)
		snap.Mode = mode
		snap.Capacity = size
		if !lo.Contains(snap.Participants, short) {
			snap.Participants = append(snap.Participants, short)
			sort.Strings(snap.Participants)
		}
		body := e.renderer.Render(snap)
		card, err := e.provisioner.PublishCard(ctx, p.CardChannel, body, joinComponents()...)
		if err != nil {
			return err
		}
		p.Mode = mode
		p.Capacity = size
		p.Promote(leader)
		p.Card = card
		e.store.BindCard(card, anchor)
		return nil
	})
	if err != nil {
		_ = e.gateway.Respond(ctx, token, "⚠️ Something went wrong creating the party. Try again.", true)
		return err
	}

	e.store.Schedule(anchor, e.settings.ThreadGrace, func() {
		e.dropThread(context.Background(), anchor)
	})
	e.log.Info("party configured", "anchor", anchor, "leader", leader, "mode", mode, "capacity", size)
	_ = e.gateway.Respond(ctx, token, "✅ Party created! Check the card in the main channel.", true)
	return nil
}

func (e *Engine) dropThread(ctx context.Context, anchor domain.ChannelID) {
	_ = e.store.Update(anchor, func(p *domain.Party) error {
		if p.Thread == "" {
			return nil
		}
		if err := e.gateway.DeleteChannel(ctx, p.Thread); err != nil && !stderrors.Is(err, platform.ErrNotFound) {
			e.log.Warn("setup thread deletion failed", "thread", p.Thread, "error", err)
		}
		p.Thread = ""
		return nil
	})
}

// flowTimeout fires when the leader never finished configuration. The
// anchor is only deleted while it still carries the setup marker and
// the leader is still inside; otherwise the unconfigured party is left
// for the reaper to collect on emptiness.
func (e *Engine) flowTimeout(ctx context.Context, leader domain.UserID) {
	flow, ok := e.flows.Get(leader)
	if !ok {
		return
	}
	if !flow.enter(flowTimedOut) {
		return
	}
	e.flows.End(leader)
	e.log.Info("setup flow timed out", "leader", leader, "anchor", flow.anchor)

	name, nameErr := e.gateway.ChannelName(ctx, flow.anchor)
	occupants, occErr := e.gateway.Occupants(ctx, flow.anchor)
	leaderPresent := occErr == nil && lo.Contains(occupants, leader)
	if nameErr == nil && strings.Contains(name, setupMarker) && leaderPresent {
		if p, ok := e.store.Pop(flow.anchor); ok {
			e.provisioner.Teardown(ctx, p)
		}
		return
	}
	// Leader already gone: just drop the thread, the session stays
	// reapable by emptiness.
	e.dropThread(ctx, flow.anchor)
}

// teardownParty is the reaper's commit action. Pop is the exactly-once
// barrier; whoever loses the race does nothing.
func (e *Engine) teardownParty(ctx context.Context, anchor domain.ChannelID) {
	p, ok := e.store.Pop(anchor)
	if !ok {
		return
	}
	e.flows.Cancel(p.Leader)
	e.provisioner.Teardown(ctx, p)
	e.log.Info("party torn down", "anchor", anchor, "leader", p.Leader)
}

// render publishes the current roster to the card. Callers hold the
// party's per-key lock, which is what serializes renders per session.
// Render failures are cosmetic once the state is committed: logged,
// never escalated.
func (e *Engine) render(ctx context.Context, p *domain.Party) {
	if p.Card == "" {
		return
	}
	body := e.renderer.Render(e.snapshot(ctx, p))
	if err := e.provisioner.RenderCard(ctx, p.CardChannel, p.Card, body); err != nil {
		e.log.Warn("card render failed", "anchor", p.Anchor, "error", err)
	}
}

func (e *Engine) snapshot(ctx context.Context, p *domain.Party) domain.CardSnapshot {
	names := func(ids []domain.UserID) []string {
		out := lo.Map(ids, func(u domain.UserID, _ int) string {
			return e.shortNameOf(ctx, u)
		})
		sort.Strings(out)
		return out
	}
	return domain.CardSnapshot{
		LeaderName:   e.shortNameOf(ctx, p.Leader),
		Mode:         p.Mode,
		Capacity:     p.Capacity,
		Participants: names(p.Participants()),
		Spectators:   names(p.Spectators()),
	}
}

func (e *Engine) shortNameOf(ctx context.Context, u domain.UserID) string {
	display, err := e.gateway.DisplayName(ctx, u)
	if err != nil {
		return string(u)
	}
	return domain.ShortName(display)
}

// denyAndRevert notifies an unauthorized actor (privately, falling back
// to a transient public notice) and undoes the platform move so no
// orphaned state remains.
func (e *Engine) denyAndRevert(ctx context.Context, member domain.UserID, prior *domain.ChannelID, text string) {
	if err := e.gateway.SendDirect(ctx, member, text); err != nil {
		e.transientNotice(ctx, fmt.Sprintf("❌ <@%s> finish onboarding before using parties!", member))
	}
	if err := e.gateway.MoveMember(ctx, member, prior); err != nil {
		e.log.Warn("denial revert failed", "member", member, "error", err)
	}
}

func (e *Engine) transientNotice(ctx context.Context, text string) {
	if e.settings.NoticeChannel == "" {
		return
	}
	msg, err := e.gateway.SendMessage(ctx, e.settings.NoticeChannel, text)
	if err != nil {
		return
	}
	ch := e.settings.NoticeChannel
	time.AfterFunc(e.settings.NoticeTTL, func() {
		_ = e.gateway.DeleteMessage(context.Background(), ch, msg)
	})
}

func (e *Engine) notifyProvisionFailure(ctx context.Context, member domain.UserID, prior *domain.ChannelID) {
	_ = e.gateway.SendDirect(ctx, member, "⚠️ Could not set up your party right now. Please try again in a moment.")
	_ = e.gateway.MoveMember(ctx, member, prior)
}

func setupPrompt(short string) string {
	return fmt.Sprintf("🎈 %s, configure your party below. This thread is only visible to you.", short)
}

func (e *Engine) setupComponents() []platform.Component {
	sizes := lo.Map(e.settings.Sizes, func(n int, _ int) string { return strconv.Itoa(n) })
	components := make([]platform.Component, 0, 3)
	if e.settings.Variant == VariantModeSelect {
		components = append(components, platform.Component{
			CustomID: CustomSetupMode,
			Label:    "Pick a game mode...",
			Options:  e.settings.Modes,
		})
	}
	components = append(components,
		platform.Component{CustomID: CustomSetupSize, Label: "Pick a party size...", Options: sizes},
		platform.Component{CustomID: CustomSetupStart, Label: "🎉 Create party"},
	)
	return components
}

func joinComponents() []platform.Component {
	return []platform.Component{
		{CustomID: CustomJoinParticipant, Label: "Join"},
		{CustomID: CustomJoinSpectator, Label: "Spectate"},
	}
}
