package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestShortName(t *testing.T) {
	req := require.New(t)

	req.Equal("ana", ShortName("ana/98/Ana#EUW"))
	req.Equal("ana", ShortName("ana /98/Ana#EUW"))
	// Names outside the convention pass through unchanged
	req.Equal("plainname", ShortName("plainname"))
}

func TestParseNickname(t *testing.T) {
	tests := []struct {
		description string
		display     string
		ok          bool
		want        Nickname
	}{
		{
			"Should parse a conventional nickname",
			"ana/98/Hide on bush#KR1",
			true,
			Nickname{Alias: "ana", BirthYear: "98", GameName: "Hide on bush", GameTag: "KR1"},
		},
		{
			"Should uppercase the tag",
			"bob/01/Bob#euw",
			true,
			Nickname{Alias: "bob", BirthYear: "01", GameName: "Bob", GameTag: "EUW"},
		},
		{
			"Should reject a missing tag separator",
			"ana/98/Faker",
			false,
			Nickname{},
		},
		{
			"Should reject too few segments",
			"ana/98",
			false,
			Nickname{},
		},
		{
			"Should reject an empty game name",
			"ana/98/#EUW",
			false,
			Nickname{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			req := require.New(t)
			got, ok := ParseNickname(tt.display)
			req.Equal(tt.ok, ok)
			if tt.ok {
				req.Equal(tt.want, got)
			}
		})
	}
}

func TestNickname_Display(t *testing.T) {
	req := require.New(t)
	n := Nickname{Alias: "ana", BirthYear: "98", GameName: "Ana", GameTag: "EUW"}
	req.Equal("ana/98/Ana#EUW", n.Display())
}
