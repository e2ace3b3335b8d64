// Package event defines the platform notifications the engine consumes.
// Events carry identifiers only; the engine resolves them against the
// store and the gateway when the event is handled.
package event

import (
	"party-lab/domain"

	"github.com/google/uuid"
)

type PlatformEvent interface {
	Actor() domain.UserID
}

// VoiceStateUpdated reports an occupancy transition. From and To are nil
// when the member was not in (or is no longer in) any voice channel.
type VoiceStateUpdated struct {
	ID     uuid.UUID
	Member domain.UserID
	From   *domain.ChannelID
	To     *domain.ChannelID
}

func (e VoiceStateUpdated) Actor() domain.UserID { return e.Member }

// ButtonPressed is a component interaction bound to an originating
// message. Token is the short-lived handle used to answer the actor.
type ButtonPressed struct {
	ID       uuid.UUID
	Member   domain.UserID
	Channel  domain.ChannelID
	Message  domain.MessageID
	CustomID string
	Token    string
}

func (e ButtonPressed) Actor() domain.UserID { return e.Member }

type MenuSelected struct {
	ID       uuid.UUID
	Member   domain.UserID
	Channel  domain.ChannelID
	Message  domain.MessageID
	CustomID string
	Values   []string
	Token    string
}

func (e MenuSelected) Actor() domain.UserID { return e.Member }

type ModalSubmitted struct {
	ID       uuid.UUID
	Member   domain.UserID
	Channel  domain.ChannelID
	Message  domain.MessageID
	CustomID string
	Fields   map[string]string
	Token    string
}

func (e ModalSubmitted) Actor() domain.UserID { return e.Member }

type MemberJoined struct {
	ID     uuid.UUID
	Member domain.UserID
}

func (e MemberJoined) Actor() domain.UserID { return e.Member }
