// Package platform abstracts the hosting chat platform. The engine never
// talks to the real API directly: everything goes through Gateway, which
// keeps the core a pure in-memory controller over an external
// event/command surface.
package platform

import (
	"context"
	"fmt"

	"party-lab/domain"
	"party-lab/domain/event"
)

// ErrNotFound marks a resource that no longer exists on the platform.
// Deletion paths treat it as success.
var ErrNotFound = fmt.Errorf("platform resource not found")

// Component is a button or, when Options is non-empty, a select menu
// attached to a message. CustomID must be stable across process
// restarts so stale messages from a prior lifetime stay actionable.
type Component struct {
	CustomID string
	Label    string
	Options  []string
}

type ModalField struct {
	Key         string
	Label       string
	Placeholder string
	MinLen      int
	MaxLen      int
	Required    bool
}

type Modal struct {
	CustomID string
	Title    string
	Fields   []ModalField
}

type Message struct {
	ID     domain.MessageID
	Author domain.UserID
	Body   string
}

type Member struct {
	ID          domain.UserID
	DisplayName string
	Bot         bool
}

type Gateway interface {
	Self() domain.UserID
	Events() <-chan event.PlatformEvent

	CreateVoiceChannel(ctx context.Context, category domain.ChannelID, name string, userLimit int) (domain.ChannelID, error)
	EditChannel(ctx context.Context, ch domain.ChannelID, name string, userLimit int) error
	DeleteChannel(ctx context.Context, ch domain.ChannelID) error
	ChannelName(ctx context.Context, ch domain.ChannelID) (string, error)
	CategoryOf(ctx context.Context, ch domain.ChannelID) (domain.ChannelID, error)
	Occupants(ctx context.Context, ch domain.ChannelID) ([]domain.UserID, error)
	// MoveMember places a member into a voice channel, or disconnects
	// them when to is nil.
	MoveMember(ctx context.Context, member domain.UserID, to *domain.ChannelID) error

	CreatePrivateThread(ctx context.Context, parent domain.ChannelID, name string, invitee domain.UserID) (domain.ChannelID, error)

	SendMessage(ctx context.Context, ch domain.ChannelID, body string, components ...Component) (domain.MessageID, error)
	EditMessage(ctx context.Context, ch domain.ChannelID, msg domain.MessageID, body string, components ...Component) error
	DeleteMessage(ctx context.Context, ch domain.ChannelID, msg domain.MessageID) error
	ChannelMessages(ctx context.Context, ch domain.ChannelID, limit int) ([]Message, error)

	SendDirect(ctx context.Context, member domain.UserID, body string) error
	Respond(ctx context.Context, token, body string, ephemeral bool) error
	OpenModal(ctx context.Context, token string, modal Modal) error

	HasRole(ctx context.Context, member domain.UserID, role string) (bool, error)
	AddRole(ctx context.Context, member domain.UserID, role string) error
	RemoveRole(ctx context.Context, member domain.UserID, role string) error
	MemberRoles(ctx context.Context, member domain.UserID) ([]string, error)
	DisplayName(ctx context.Context, member domain.UserID) (string, error)
	SetNickname(ctx context.Context, member domain.UserID, nick string) error
	Members(ctx context.Context) ([]Member, error)
}
