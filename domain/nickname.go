package domain

import (
	"fmt"
	"strings"
)

// Nickname is the server-wide display-name convention:
// "alias/yy/game name#TAG". The alias feeds channel and card labels,
// the game identifier feeds the ranking pipeline.
type Nickname struct {
	Alias     string
	BirthYear string
	GameName  string
	GameTag   string
}

func (n Nickname) Display() string {
	return fmt.Sprintf("%s/%s/%s#%s", n.Alias, n.BirthYear, n.GameName, n.GameTag)
}

// ShortName extracts the alias segment from a display name. Names that do
// not follow the convention are returned unchanged.
func ShortName(display string) string {
	alias, _, found := strings.Cut(display, "/")
	if !found {
		return display
	}
	return strings.TrimSpace(alias)
}

// ParseNickname splits a display name into its segments. It only reports
// ok when a tag-qualified game identifier is present, since that is what
// the ranking lookups need.
func ParseNickname(display string) (Nickname, bool) {
	parts := strings.Split(display, "/")
	if len(parts) < 3 {
		return Nickname{}, false
	}
	game := strings.TrimSpace(parts[2])
	name, tag, found := strings.Cut(game, "#")
	if !found {
		return Nickname{}, false
	}
	name = strings.TrimSpace(name)
	tag = strings.ToUpper(strings.TrimSpace(tag))
	if name == "" || tag == "" {
		return Nickname{}, false
	}
	return Nickname{
		Alias:     strings.TrimSpace(parts[0]),
		BirthYear: strings.TrimSpace(parts[1]),
		GameName:  name,
		GameTag:   tag,
	}, true
}
