package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/samber/lo"

	"party-lab/domain"
	"party-lab/domain/event"
	"party-lab/errors"
	"party-lab/platform"
)

const CustomPlayTimeSelect = "roles:playtime"

// PlayTimeRoles are the mutually exclusive availability roles. Picking
// one removes whichever of the others the member already holds.
var PlayTimeRoles = []string{"Morning", "Afternoon", "Night", "Dawn", "All-Time"}

type RoleService struct {
	log     *slog.Logger
	gateway platform.Gateway
}

func NewRoleService(log *slog.Logger, gateway platform.Gateway) *RoleService {
	return &RoleService{log: log, gateway: gateway}
}

func (s *RoleService) InstallPanel(ctx context.Context, ch domain.ChannelID) error {
	messages, err := s.gateway.ChannelMessages(ctx, ch, 50)
	if err != nil {
		return err
	}
	self := s.gateway.Self()
	for _, m := range messages {
		if m.Author == self && strings.Contains(m.Body, "play time") {
			return nil
		}
	}
	_, err = s.gateway.SendMessage(ctx, ch,
		"⏰ Pick your usual play time so people know when to find you.",
		platform.Component{CustomID: CustomPlayTimeSelect, Label: "Pick your play time...", Options: PlayTimeRoles})
	return err
}

func (s *RoleService) HandleEvent(ctx context.Context, e event.PlatformEvent) error {
	menu, ok := e.(event.MenuSelected)
	if !ok || menu.CustomID != CustomPlayTimeSelect || len(menu.Values) == 0 {
		return nil
	}
	if err := s.Assign(ctx, menu.Member, menu.Values[0]); err != nil {
		s.log.Warn("play-time assignment failed", "member", menu.Member, "error", err)
		return s.gateway.Respond(ctx, menu.Token, "⚠️ Could not update your role, try again later.", true)
	}
	return s.gateway.Respond(ctx, menu.Token, fmt.Sprintf("⏰ You are now **%s**!", menu.Values[0]), true)
}

// Assign grants the picked role and strips the other play-time roles,
// keeping the set exclusive.
func (s *RoleService) Assign(ctx context.Context, member domain.UserID, role string) error {
	if !lo.Contains(PlayTimeRoles, role) {
		return fmt.Errorf("%w: %s", errors.ErrRoleNotFound, role)
	}
	held, err := s.gateway.MemberRoles(ctx, member)
	if err != nil {
		return err
	}
	for _, other := range PlayTimeRoles {
		if other == role || !lo.Contains(held, other) {
			continue
		}
		if err := s.gateway.RemoveRole(ctx, member, other); err != nil {
			return err
		}
	}
	if lo.Contains(held, role) {
		return nil
	}
	return s.gateway.AddRole(ctx, member, role)
}
