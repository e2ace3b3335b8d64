package provision

import (
	"fmt"
	"strings"

	"party-lab/domain"
)

// PartyCard is the default card renderer. Layout follows the published
// card: title, mode, headcount, then the two roster columns.
type PartyCard struct{}

func NewPartyCard() PartyCard { return PartyCard{} }

func (PartyCard) Render(s domain.CardSnapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🎉 %s's party is open!\n", s.LeaderName)
	fmt.Fprintf(&b, "🎮 Mode: %s\n", s.Mode)
	fmt.Fprintf(&b, "📊 Members: %d / %d\n", len(s.Participants), s.Capacity)
	fmt.Fprintf(&b, "👥 Participants: %s\n", column(s.Participants))
	fmt.Fprintf(&b, "👀 Spectators: %s", column(s.Spectators))
	return b.String()
}

func column(names []string) string {
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ", ")
}
