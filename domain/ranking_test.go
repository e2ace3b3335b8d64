package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRankEntry_ScoreOrdering(t *testing.T) {
	req := require.New(t)

	challenger := RankEntry{Tier: "CHALLENGER", Division: "I", LeaguePoints: 50}
	diamondOne := RankEntry{Tier: "DIAMOND", Division: "I", LeaguePoints: 99}
	diamondFour := RankEntry{Tier: "DIAMOND", Division: "IV", LeaguePoints: 10}
	unranked := RankEntry{}

	// Tier dominates division, division dominates LP
	req.Greater(challenger.Score(), diamondOne.Score())
	req.Greater(diamondOne.Score(), diamondFour.Score())
	req.Equal(0, unranked.Score())
	req.True(unranked.Unranked())
}

func TestRankEntry_WinRate(t *testing.T) {
	req := require.New(t)

	req.InDelta(60.0, RankEntry{Wins: 6, Losses: 4}.WinRate(), 0.01)
	req.Zero(RankEntry{}.WinRate())
}
