// Package services holds the member-facing flows around the party
// engine: nickname management, play-time roles and onboarding.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"party-lab/domain"
	"party-lab/domain/event"
	"party-lab/errors"
	"party-lab/platform"
)

const (
	CustomNicknameOpen  = "nickname:open"
	CustomNicknameModal = "nickname:modal"

	fieldAlias    = "alias"
	fieldBirth    = "birth_year"
	fieldGameName = "game_name"
)

// NicknameRequest carries one modal submission. The game identifier must
// be tag-qualified ("Name#TAG"); everything else is plain length checks.
type NicknameRequest struct {
	Alias     string `validate:"required,min=2,max=20"`
	BirthYear string `validate:"required,len=2,numeric"`
	GameName  string `validate:"required,min=3,max=30"`
}

// NicknameService renames members into the server convention
// "alias/yy/game name#TAG" and owns the panel that opens the modal.
type NicknameService struct {
	log      *slog.Logger
	gateway  platform.Gateway
	validate *validator.Validate
}

func NewNicknameService(log *slog.Logger, gateway platform.Gateway) *NicknameService {
	return &NicknameService{
		log:      log,
		gateway:  gateway,
		validate: validator.New(),
	}
}

// InstallPanel publishes the rename panel into a channel. Idempotent
// enough for startup: an existing panel from this process is reused.
func (s *NicknameService) InstallPanel(ctx context.Context, ch domain.ChannelID) error {
	messages, err := s.gateway.ChannelMessages(ctx, ch, 50)
	if err != nil {
		return err
	}
	self := s.gateway.Self()
	for _, m := range messages {
		if m.Author == self && strings.Contains(m.Body, "nickname") {
			return nil
		}
	}
	_, err = s.gateway.SendMessage(ctx, ch,
		"🏷️ Set your server nickname to `alias/yy/game name#TAG` so the ladder can find you.",
		platform.Component{CustomID: CustomNicknameOpen, Label: "Set my nickname"})
	return err
}

func (s *NicknameService) HandleEvent(ctx context.Context, e event.PlatformEvent) error {
	switch e := e.(type) {
	case event.ButtonPressed:
		if e.CustomID == CustomNicknameOpen {
			return s.openModal(ctx, e.Token)
		}
	case event.ModalSubmitted:
		if e.CustomID == CustomNicknameModal {
			return s.submit(ctx, e)
		}
	}
	return nil
}

func (s *NicknameService) openModal(ctx context.Context, token string) error {
	return s.gateway.OpenModal(ctx, token, platform.Modal{
		CustomID: CustomNicknameModal,
		Title:    "Your server nickname",
		Fields: []platform.ModalField{
			{Key: fieldAlias, Label: "Alias", Placeholder: "How people call you", MinLen: 2, MaxLen: 20, Required: true},
			{Key: fieldBirth, Label: "Birth year (2 digits)", Placeholder: "98", MinLen: 2, MaxLen: 2, Required: true},
			{Key: fieldGameName, Label: "Game name with tag", Placeholder: "Faker#KR1", MinLen: 3, MaxLen: 30, Required: true},
		},
	})
}

func (s *NicknameService) submit(ctx context.Context, e event.ModalSubmitted) error {
	request := NicknameRequest{
		Alias:     strings.TrimSpace(e.Fields[fieldAlias]),
		BirthYear: strings.TrimSpace(e.Fields[fieldBirth]),
		GameName:  strings.TrimSpace(e.Fields[fieldGameName]),
	}
	nickname, err := s.Build(request)
	if err != nil {
		return s.gateway.Respond(ctx, e.Token,
			"❗ That doesn't look right. Use a 2-digit birth year and a game name like `Faker#KR1`.", true)
	}
	if err := s.gateway.SetNickname(ctx, e.Member, nickname.Display()); err != nil {
		s.log.Warn("nickname update failed", "member", e.Member, "error", err)
		return s.gateway.Respond(ctx, e.Token, "⚠️ Could not update your nickname, try again later.", true)
	}
	s.log.Info("nickname updated", "member", e.Member, "alias", nickname.Alias)
	return s.gateway.Respond(ctx, e.Token, fmt.Sprintf("✅ You are now **%s**.", nickname.Display()), true)
}

// Build validates a request and assembles the domain nickname. The tag
// separator check is manual: validator has no rule for "contains exactly
// what the ranking lookups need".
func (s *NicknameService) Build(request NicknameRequest) (domain.Nickname, error) {
	if err := s.validate.Struct(request); err != nil {
		return domain.Nickname{}, fmt.Errorf("%w: %v", errors.ErrInvalidNickname, err)
	}
	name, tag, found := strings.Cut(request.GameName, "#")
	name = strings.TrimSpace(name)
	tag = strings.TrimSpace(tag)
	if !found || name == "" || tag == "" {
		return domain.Nickname{}, errors.ErrMissingTag
	}
	return domain.Nickname{
		Alias:     request.Alias,
		BirthYear: request.BirthYear,
		GameName:  name,
		GameTag:   strings.ToUpper(tag),
	}, nil
}
