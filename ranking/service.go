package ranking

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/samber/lo"

	"party-lab/contract"
	"party-lab/domain"
	"party-lab/platform"
)

const scoreboardSize = 20

var queueTitles = map[domain.QueueType]string{
	domain.QueueSolo: "🏆 Solo/Duo ladder",
	domain.QueueFlex: "🤝 Flex ladder",
}

// Service drives the ranking pipeline: collect ranks for every member
// whose nickname carries a tag-qualified game identifier, cache the
// snapshot, then publish best-first scoreboards to the ladder channel.
type Service struct {
	log       *slog.Logger
	gateway   platform.Gateway
	source    contract.RankSource
	store     contract.RankStore
	channel   domain.ChannelID
	maxPerRun int
}

func NewService(log *slog.Logger, gateway platform.Gateway, source contract.RankSource, store contract.RankStore, channel domain.ChannelID, maxPerRun int) *Service {
	return &Service{
		log:       log,
		gateway:   gateway,
		source:    source,
		store:     store,
		channel:   channel,
		maxPerRun: maxPerRun,
	}
}

func (s *Service) Update(ctx context.Context) error {
	if err := s.Collect(ctx); err != nil {
		return err
	}
	return s.Publish(ctx)
}

// Collect looks up every eligible member sequentially. Lookups go
// through the rate-limited client, so there is no point fanning out;
// a member whose lookup fails is skipped, not fatal.
func (s *Service) Collect(ctx context.Context) error {
	members, err := s.gateway.Members(ctx)
	if err != nil {
		return fmt.Errorf("listing members: %w", err)
	}

	type candidate struct {
		member   platform.Member
		nickname domain.Nickname
	}
	candidates := lo.FilterMap(members, func(m platform.Member, _ int) (candidate, bool) {
		if m.Bot {
			return candidate{}, false
		}
		nick, ok := domain.ParseNickname(m.DisplayName)
		if !ok {
			return candidate{}, false
		}
		return candidate{member: m, nickname: nick}, true
	})
	if s.maxPerRun > 0 && len(candidates) > s.maxPerRun {
		candidates = candidates[:s.maxPerRun]
	}

	var players []domain.PlayerRank
	for _, c := range candidates {
		rank, err := s.source.Lookup(ctx, c.nickname.GameName, c.nickname.GameTag)
		if err != nil {
			s.log.Warn("rank lookup failed", "member", c.member.ID, "game_name", c.nickname.GameName, "error", err)
			continue
		}
		rank.Member = c.member.ID
		rank.DisplayName = c.member.DisplayName
		players = append(players, rank)
	}

	for queue := range queueTitles {
		ranked := lo.Filter(players, func(p domain.PlayerRank, _ int) bool {
			return !p.Ranks[queue].Unranked()
		})
		sort.Slice(ranked, func(i, j int) bool {
			return ranked[i].Ranks[queue].Score() > ranked[j].Ranks[queue].Score()
		})
		if err := s.store.Replace(queue, ranked); err != nil {
			return fmt.Errorf("storing %s snapshot: %w", queue, err)
		}
	}
	s.log.Info("rank collection done", "candidates", len(candidates), "resolved", len(players))
	return nil
}

// Publish rewrites the ladder channel: previous scoreboards from this
// process are purged, then one message per queue goes out.
func (s *Service) Publish(ctx context.Context) error {
	if err := s.purgeOwnMessages(ctx); err != nil {
		s.log.Warn("scoreboard purge failed", "error", err)
	}
	for _, queue := range []domain.QueueType{domain.QueueSolo, domain.QueueFlex} {
		players, err := s.store.Top(queue, scoreboardSize)
		if err != nil {
			return fmt.Errorf("loading %s snapshot: %w", queue, err)
		}
		if len(players) == 0 {
			continue
		}
		if _, err := s.gateway.SendMessage(ctx, s.channel, scoreboard(queue, players)); err != nil {
			return fmt.Errorf("publishing %s scoreboard: %w", queue, err)
		}
	}
	return nil
}

func (s *Service) purgeOwnMessages(ctx context.Context) error {
	messages, err := s.gateway.ChannelMessages(ctx, s.channel, 50)
	if err != nil {
		return err
	}
	self := s.gateway.Self()
	for _, m := range messages {
		if m.Author != self {
			continue
		}
		if err := s.gateway.DeleteMessage(ctx, s.channel, m.ID); err != nil {
			s.log.Warn("old scoreboard deletion failed", "message", m.ID, "error", err)
		}
	}
	return nil
}

var medals = []string{"🥇", "🥈", "🥉"}

func scoreboard(queue domain.QueueType, players []domain.PlayerRank) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", queueTitles[queue])
	for i, p := range players {
		marker := fmt.Sprintf("%2d.", i+1)
		if i < len(medals) {
			marker = medals[i]
		}
		entry := p.Ranks[queue]
		fmt.Fprintf(&b, "%s %s · %s %s, %d LP (%.0f%% WR)\n",
			marker, domain.ShortName(p.DisplayName), entry.Tier, entry.Division, entry.LeaguePoints, entry.WinRate())
	}
	return strings.TrimRight(b.String(), "\n")
}
