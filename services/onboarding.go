package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"party-lab/domain"
	"party-lab/domain/event"
	"party-lab/platform"
)

const (
	CustomOnboardStart = "onboard:start"
	CustomOnboardModal = "onboard:modal"
	CustomOnboardRole  = "onboard:role"
)

// OnboardingService walks a new member through the two verification
// steps: nickname first, then a play-time role. Completing both grants
// the verified role that gates party access. Each step message is
// short-lived; an abandoned step is cleaned up after the step timeout
// and the member can restart from the welcome panel.
type OnboardingService struct {
	log      *slog.Logger
	gateway  platform.Gateway
	nickname *NicknameService
	roles    *RoleService

	welcome  domain.ChannelID
	verified string
	timeout  time.Duration

	mu      sync.Mutex
	pending map[domain.UserID]*onboardingStep
}

type onboardingStep struct {
	message domain.MessageID
	timer   *time.Timer
}

func NewOnboardingService(
	log *slog.Logger,
	gateway platform.Gateway,
	nickname *NicknameService,
	roles *RoleService,
	welcome domain.ChannelID,
	verifiedRole string,
	stepTimeout time.Duration,
) *OnboardingService {
	if stepTimeout == 0 {
		stepTimeout = 3 * time.Minute
	}
	return &OnboardingService{
		log:      log,
		gateway:  gateway,
		nickname: nickname,
		roles:    roles,
		welcome:  welcome,
		verified: verifiedRole,
		timeout:  stepTimeout,
		pending:  make(map[domain.UserID]*onboardingStep),
	}
}

func (s *OnboardingService) HandleEvent(ctx context.Context, e event.PlatformEvent) error {
	switch e := e.(type) {
	case event.MemberJoined:
		return s.greet(ctx, e.Member)
	case event.ButtonPressed:
		if e.CustomID == CustomOnboardStart {
			return s.gateway.OpenModal(ctx, e.Token, onboardModal())
		}
	case event.ModalSubmitted:
		if e.CustomID == CustomOnboardModal {
			return s.finishNicknameStep(ctx, e)
		}
	case event.MenuSelected:
		if e.CustomID == CustomOnboardRole && len(e.Values) > 0 {
			return s.finishRoleStep(ctx, e)
		}
	}
	return nil
}

func (s *OnboardingService) greet(ctx context.Context, member domain.UserID) error {
	name, err := s.gateway.DisplayName(ctx, member)
	if err != nil {
		name = string(member)
	}
	_, err = s.gateway.SendMessage(ctx, s.welcome,
		fmt.Sprintf("👋 Welcome %s! Set your nickname to unlock the server.", domain.ShortName(name)),
		platform.Component{CustomID: CustomOnboardStart, Label: "Start"})
	return err
}

func onboardModal() platform.Modal {
	return platform.Modal{
		CustomID: CustomOnboardModal,
		Title:    "Step 1/2: Your nickname",
		Fields: []platform.ModalField{
			{Key: fieldAlias, Label: "Alias", Placeholder: "How people call you", MinLen: 2, MaxLen: 20, Required: true},
			{Key: fieldBirth, Label: "Birth year (2 digits)", Placeholder: "98", MinLen: 2, MaxLen: 2, Required: true},
			{Key: fieldGameName, Label: "Game name with tag", Placeholder: "Faker#KR1", MinLen: 3, MaxLen: 30, Required: true},
		},
	}
}

func (s *OnboardingService) finishNicknameStep(ctx context.Context, e event.ModalSubmitted) error {
	request := NicknameRequest{
		Alias:     strings.TrimSpace(e.Fields[fieldAlias]),
		BirthYear: strings.TrimSpace(e.Fields[fieldBirth]),
		GameName:  strings.TrimSpace(e.Fields[fieldGameName]),
	}
	nickname, err := s.nickname.Build(request)
	if err != nil {
		return s.gateway.Respond(ctx, e.Token,
			"❗ That doesn't look right. Use a 2-digit birth year and a game name like `Faker#KR1`.", true)
	}
	if err := s.gateway.SetNickname(ctx, e.Member, nickname.Display()); err != nil {
		s.log.Warn("nickname update failed", "member", e.Member, "error", err)
		return s.gateway.Respond(ctx, e.Token, "⚠️ Could not update your nickname, try again later.", true)
	}

	msg, err := s.gateway.SendMessage(ctx, s.welcome,
		fmt.Sprintf("⏰ Step 2/2: %s, pick your usual play time.", nickname.Alias),
		platform.Component{CustomID: CustomOnboardRole, Label: "Pick your play time...", Options: PlayTimeRoles})
	if err != nil {
		return err
	}
	s.armStep(e.Member, msg)
	return s.gateway.Respond(ctx, e.Token, "✅ Nickname set! One more step below.", true)
}

func (s *OnboardingService) finishRoleStep(ctx context.Context, e event.MenuSelected) error {
	s.mu.Lock()
	step, ok := s.pending[e.Member]
	if ok {
		delete(s.pending, e.Member)
		step.timer.Stop()
	}
	s.mu.Unlock()
	if !ok {
		// Not mid-onboarding: stale step message from someone else.
		return s.gateway.Respond(ctx, e.Token, "❗ Start onboarding from the welcome panel first.", true)
	}

	if err := s.roles.Assign(ctx, e.Member, e.Values[0]); err != nil {
		s.log.Warn("onboarding role assignment failed", "member", e.Member, "error", err)
		return s.gateway.Respond(ctx, e.Token, "⚠️ Could not assign your role, try again from the welcome panel.", true)
	}
	if err := s.gateway.AddRole(ctx, e.Member, s.verified); err != nil {
		s.log.Warn("verified role grant failed", "member", e.Member, "error", err)
		return s.gateway.Respond(ctx, e.Token, "⚠️ Something went wrong, ask a moderator for the verified role.", true)
	}
	s.dropMessage(ctx, step.message)
	s.log.Info("member onboarded", "member", e.Member, "play_time", e.Values[0])
	return s.gateway.Respond(ctx, e.Token, "🎉 You're all set! Party channels are now open to you.", true)
}

// armStep registers the pending role step and schedules its expiry.
// A member redoing step 1 replaces their previous step message.
func (s *OnboardingService) armStep(member domain.UserID, msg domain.MessageID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.pending[member]; ok {
		prev.timer.Stop()
		go s.dropMessage(context.Background(), prev.message)
	}
	step := &onboardingStep{message: msg}
	step.timer = time.AfterFunc(s.timeout, func() {
		s.expireStep(member, step)
	})
	s.pending[member] = step
}

func (s *OnboardingService) expireStep(member domain.UserID, step *onboardingStep) {
	s.mu.Lock()
	if cur, ok := s.pending[member]; !ok || cur != step {
		s.mu.Unlock()
		return
	}
	delete(s.pending, member)
	s.mu.Unlock()
	s.dropMessage(context.Background(), step.message)
	s.log.Info("onboarding step expired", "member", member)
}

func (s *OnboardingService) dropMessage(ctx context.Context, msg domain.MessageID) {
	if err := s.gateway.DeleteMessage(ctx, s.welcome, msg); err != nil {
		s.log.Warn("onboarding message cleanup failed", "message", msg, "error", err)
	}
}
