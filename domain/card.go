package domain

// CardSnapshot is the roster state handed to the card renderer. It is a
// value copy: once built under the party lock it can no longer go stale.
type CardSnapshot struct {
	LeaderName   string
	Mode         string
	Capacity     int
	Participants []string
	Spectators   []string
}
