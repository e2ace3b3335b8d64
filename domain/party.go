package domain

import "party-lab/errors"

type Role string

const (
	RoleNone        Role = ""
	RoleParticipant Role = "participant"
	RoleSpectator   Role = "spectator"
)

// RosterPolicy selects how the card buttons behave when an actor presses
// the role they already hold. The two behaviours existed side by side in
// older deployments; they are now a single switch.
type RosterPolicy string

const (
	// PolicyAssign re-announces the current role on a repeat press and
	// silently redirects participant requests to the spectator set when
	// the party is full.
	PolicyAssign RosterPolicy = "assign"
	// PolicyToggle removes the actor from the set on a repeat press and
	// rejects participant requests with a capacity error when full.
	PolicyToggle RosterPolicy = "toggle"
)

// Party is the in-memory record of one session. The anchor voice channel
// is its identity: the party exists exactly as long as the channel does.
// Roster sets are kept private so every mutation goes through methods
// that preserve the invariants (disjoint sets, capacity bound).
type Party struct {
	Anchor      ChannelID
	Leader      UserID
	Thread      ChannelID // private setup thread, empty once removed
	CardChannel ChannelID
	Card        MessageID // empty until configuration completes
	Mode        string
	Capacity    int

	participants map[UserID]struct{}
	spectators   map[UserID]struct{}
}

func NewParty(anchor ChannelID, leader UserID) *Party {
	return &Party{
		Anchor:       anchor,
		Leader:       leader,
		participants: make(map[UserID]struct{}),
		spectators:   make(map[UserID]struct{}),
	}
}

// Configured reports whether the setup flow has completed for this party.
func (p *Party) Configured() bool {
	return p.Capacity > 0
}

func (p *Party) RoleOf(u UserID) Role {
	if _, ok := p.participants[u]; ok {
		return RoleParticipant
	}
	if _, ok := p.spectators[u]; ok {
		return RoleSpectator
	}
	return RoleNone
}

func (p *Party) ParticipantCount() int { return len(p.participants) }

func (p *Party) Full() bool {
	return p.Configured() && len(p.participants) >= p.Capacity
}

// Promote moves an actor into the participant set regardless of capacity.
// Reserved for the leader, who is never left as a spectator.
func (p *Party) Promote(u UserID) {
	delete(p.spectators, u)
	p.participants[u] = struct{}{}
}

// AssignParticipant moves an actor into the participant set, respecting
// the capacity bound. The actor leaves the spectator set either way.
func (p *Party) AssignParticipant(u UserID) error {
	if _, already := p.participants[u]; already {
		return errors.ErrAlreadyAssigned
	}
	if p.Full() {
		return errors.ErrCapacityExceeded
	}
	delete(p.spectators, u)
	p.participants[u] = struct{}{}
	return nil
}

func (p *Party) AssignSpectator(u UserID) error {
	if _, already := p.spectators[u]; already {
		return errors.ErrAlreadyAssigned
	}
	delete(p.participants, u)
	p.spectators[u] = struct{}{}
	return nil
}

// Remove drops the actor from whichever set holds them.
func (p *Party) Remove(u UserID) {
	delete(p.participants, u)
	delete(p.spectators, u)
}

func (p *Party) Participants() []UserID { return keys(p.participants) }

func (p *Party) Spectators() []UserID { return keys(p.spectators) }

func keys(set map[UserID]struct{}) []UserID {
	out := make([]UserID, 0, len(set))
	for u := range set {
		out = append(out, u)
	}
	return out
}
