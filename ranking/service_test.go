package ranking

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"party-lab/domain"
	"party-lab/mocks"
	"party-lab/platform"
)

func TestService_CollectSkipsBotsAndUnparseableNames(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	gw := platform.NewLoopback()
	gw.AddChannel("ladder", "ladder", "")
	gw.AddMember("u-1", "ana/98/Ana#EUW")
	gw.AddMember("u-2", "no convention here")
	gw.AddBot("u-3", "bot/00/Bot#EUW")

	source := mocks.NewMockRankSource(ctrl)
	store := mocks.NewMockRankStore(ctrl)

	// Only the conventional, non-bot member gets a lookup
	source.EXPECT().
		Lookup(gomock.Any(), "Ana", "EUW").
		Return(domain.PlayerRank{
			GameName: "Ana", GameTag: "EUW",
			Ranks: map[domain.QueueType]domain.RankEntry{
				domain.QueueSolo: {Tier: "GOLD", Division: "I", LeaguePoints: 10},
			},
		}, nil).
		Times(1)

	store.EXPECT().
		Replace(domain.QueueSolo, gomock.Len(1)).
		Return(nil)
	store.EXPECT().
		Replace(domain.QueueFlex, gomock.Len(0)).
		Return(nil)

	service := NewService(log, gw, source, store, "ladder", 100)
	req.NoError(service.Collect(context.Background()))
}

func TestService_CollectToleratesLookupFailures(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	gw := platform.NewLoopback()
	gw.AddChannel("ladder", "ladder", "")
	gw.AddMember("u-1", "ana/98/Ana#EUW")

	source := mocks.NewMockRankSource(ctrl)
	store := mocks.NewMockRankStore(ctrl)

	source.EXPECT().
		Lookup(gomock.Any(), "Ana", "EUW").
		Return(domain.PlayerRank{}, fmt.Errorf("upstream down"))
	store.EXPECT().Replace(gomock.Any(), gomock.Len(0)).Return(nil).Times(2)

	service := NewService(log, gw, source, store, "ladder", 100)

	// A failed lookup skips the member, it does not abort the run
	req.NoError(service.Collect(context.Background()))
}

func TestService_PublishPurgesItsOldScoreboards(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	gw := platform.NewLoopback()
	gw.AddChannel("ladder", "ladder", "")
	ctx := context.Background()
	stale, err := gw.SendMessage(ctx, "ladder", "🏆 old scoreboard")
	req.NoError(err)

	source := mocks.NewMockRankSource(ctrl)
	store := mocks.NewMockRankStore(ctrl)
	store.EXPECT().Top(domain.QueueSolo, scoreboardSize).Return([]domain.PlayerRank{
		{
			Member: "u-1", DisplayName: "ana/98/Ana#EUW", GameName: "Ana", GameTag: "EUW",
			Ranks: map[domain.QueueType]domain.RankEntry{
				domain.QueueSolo: {Tier: "GOLD", Division: "I", LeaguePoints: 42, Wins: 6, Losses: 4},
			},
		},
	}, nil)
	store.EXPECT().Top(domain.QueueFlex, scoreboardSize).Return(nil, nil)

	service := NewService(log, gw, source, store, "ladder", 100)
	req.NoError(service.Publish(ctx))

	// The stale board is gone, the fresh one names the player
	_, ok := gw.MessageBody("ladder", stale)
	req.False(ok)
	messages, err := gw.ChannelMessages(ctx, "ladder", 10)
	req.NoError(err)
	req.Len(messages, 1)
	req.Contains(messages[0].Body, "🥇 ana")
	req.Contains(messages[0].Body, "GOLD I")
	req.Contains(messages[0].Body, "60% WR")
}
