// Package ranking collects ranked-ladder data for tag-qualified members,
// caches snapshots in badger and publishes scoreboards to a channel.
package ranking

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"party-lab/domain"
)

const (
	// The upstream allows 20 requests per second; staying slightly under
	// avoids tripping the burst window.
	requestsPerSecond = 18

	headerAPIKey = "X-Riot-Token"
)

// Client is the live RankSource. Every call is throttled through a
// shared limiter and retried once on a 429, honouring Retry-After.
type Client struct {
	http     *http.Client
	limiter  *rate.Limiter
	account  string
	platform string
	apiKey   string
}

func NewClient(accountBaseURL, platformBaseURL, apiKey string) *Client {
	return &Client{
		http:     &http.Client{Timeout: 15 * time.Second},
		limiter:  rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond),
		account:  accountBaseURL,
		platform: platformBaseURL,
		apiKey:   apiKey,
	}
}

type accountDTO struct {
	PUUID    string `json:"puuid"`
	GameName string `json:"gameName"`
	TagLine  string `json:"tagLine"`
}

type summonerDTO struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	SummonerLevel int    `json:"summonerLevel"`
}

type leagueEntryDTO struct {
	QueueType    string `json:"queueType"`
	Tier         string `json:"tier"`
	Rank         string `json:"rank"`
	LeaguePoints int    `json:"leaguePoints"`
	Wins         int    `json:"wins"`
	Losses       int    `json:"losses"`
}

// Lookup chains account → summoner → league entries for one member.
func (c *Client) Lookup(ctx context.Context, gameName, gameTag string) (domain.PlayerRank, error) {
	var account accountDTO
	path := fmt.Sprintf("%s/riot/account/v1/accounts/by-riot-id/%s/%s",
		c.account, url.PathEscape(gameName), url.PathEscape(gameTag))
	if err := c.get(ctx, path, &account); err != nil {
		return domain.PlayerRank{}, fmt.Errorf("resolving account %s#%s: %w", gameName, gameTag, err)
	}

	var summoner summonerDTO
	path = fmt.Sprintf("%s/lol/summoner/v4/summoners/by-puuid/%s", c.platform, account.PUUID)
	if err := c.get(ctx, path, &summoner); err != nil {
		return domain.PlayerRank{}, fmt.Errorf("resolving summoner for %s#%s: %w", gameName, gameTag, err)
	}

	var entries []leagueEntryDTO
	path = fmt.Sprintf("%s/lol/league/v4/entries/by-puuid/%s", c.platform, account.PUUID)
	if err := c.get(ctx, path, &entries); err != nil {
		return domain.PlayerRank{}, fmt.Errorf("resolving league entries for %s#%s: %w", gameName, gameTag, err)
	}

	ranks := make(map[domain.QueueType]domain.RankEntry, len(entries))
	for _, e := range entries {
		var queue domain.QueueType
		switch e.QueueType {
		case "RANKED_SOLO_5x5":
			queue = domain.QueueSolo
		case "RANKED_FLEX_SR":
			queue = domain.QueueFlex
		default:
			continue
		}
		ranks[queue] = domain.RankEntry{
			Tier:         e.Tier,
			Division:     e.Rank,
			LeaguePoints: e.LeaguePoints,
			Wins:         e.Wins,
			Losses:       e.Losses,
		}
	}

	return domain.PlayerRank{
		GameName:     account.GameName,
		GameTag:      account.TagLine,
		SummonerName: summoner.Name,
		Level:        summoner.SummonerLevel,
		Ranks:        ranks,
	}, nil
}

func (c *Client) get(ctx context.Context, rawURL string, out any) error {
	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return err
		}
		req.Header.Set(headerAPIKey, c.apiKey)

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}

		if resp.StatusCode == http.StatusTooManyRequests && attempt == 0 {
			wait := retryAfter(resp)
			resp.Body.Close()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
			continue
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, rawURL)
		}

		err = json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		return err
	}
}

func retryAfter(resp *http.Response) time.Duration {
	if s := resp.Header.Get("Retry-After"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n >= 0 {
			return time.Duration(n) * time.Second
		}
	}
	return 2 * time.Second
}
