package domain

type QueueType string

const (
	QueueSolo QueueType = "solo"
	QueueFlex QueueType = "flex"
)

var tierPriority = map[string]int{
	"CHALLENGER":  9,
	"GRANDMASTER": 8,
	"MASTER":      7,
	"DIAMOND":     6,
	"EMERALD":     5,
	"PLATINUM":    4,
	"GOLD":        3,
	"SILVER":      2,
	"BRONZE":      1,
	"IRON":        0,
}

var divisionValue = map[string]int{
	"I":   4,
	"II":  3,
	"III": 2,
	"IV":  1,
}

type RankEntry struct {
	Tier         string `json:"tier"`
	Division     string `json:"division"`
	LeaguePoints int    `json:"league_points"`
	Wins         int    `json:"wins"`
	Losses       int    `json:"losses"`
}

func (e RankEntry) Unranked() bool {
	return e.Tier == "" || e.Tier == "UNRANKED"
}

// Score flattens tier, division and LP into one comparable integer.
// Tier dominates division, division dominates LP.
func (e RankEntry) Score() int {
	if e.Unranked() {
		return 0
	}
	return tierPriority[e.Tier]*1000 + divisionValue[e.Division]*100 + e.LeaguePoints
}

func (e RankEntry) WinRate() float64 {
	total := e.Wins + e.Losses
	if total == 0 {
		return 0
	}
	return float64(e.Wins) / float64(total) * 100
}

// PlayerRank is one member's snapshot across ranked queues, collected
// from the external ranking API and cached between publications.
type PlayerRank struct {
	Member       UserID                  `json:"member"`
	DisplayName  string                  `json:"display_name"`
	GameName     string                  `json:"game_name"`
	GameTag      string                  `json:"game_tag"`
	SummonerName string                  `json:"summoner_name"`
	Level        int                     `json:"level"`
	Ranks        map[QueueType]RankEntry `json:"ranks"`
}
