package main

import "time"

type Config struct {
	TriggerChannelID string `env:"TRIGGER_CHANNEL_ID,required=true"`
	CardChannelID    string `env:"CARD_CHANNEL_ID,required=true"`
	NoticeChannelID  string `env:"NOTICE_CHANNEL_ID"`
	WelcomeChannelID string `env:"WELCOME_CHANNEL_ID,required=true"`
	LadderChannelID  string `env:"LADDER_CHANNEL_ID,required=true"`
	VerifiedRole     string `env:"VERIFIED_ROLE,required=true"`

	SetupTimeout    time.Duration `env:"SETUP_TIMEOUT,default=5m"`
	SettleDelay     time.Duration `env:"SETTLE_DELAY,default=500ms"`
	ThreadGrace     time.Duration `env:"THREAD_GRACE,default=5s"`
	NoticeTTL       time.Duration `env:"NOTICE_TTL,default=5s"`
	OnboardingSteps time.Duration `env:"ONBOARDING_STEP_TIMEOUT,default=3m"`

	RosterPolicy string `env:"ROSTER_POLICY,default=assign"`
	FlowVariant  string `env:"FLOW_VARIANT,default=freetext"`

	RiotAPIKey          string        `env:"RIOT_API_KEY,required=true"`
	RiotAccountBaseURL  string        `env:"RIOT_ACCOUNT_BASE_URL,default=https://europe.api.riotgames.com"`
	RiotPlatformBaseURL string        `env:"RIOT_PLATFORM_BASE_URL,default=https://euw1.api.riotgames.com"`
	RankingInterval     time.Duration `env:"RANKING_INTERVAL,default=6h"`
	RankingMaxPerRun    int           `env:"RANKING_MAX_PER_RUN,default=100"`

	BadgerFilepath    string        `env:"BADGER_FILEPATH,required=true"`
	LogLevel          string        `env:"LOG_LEVEL,required=true"`
	Port              int           `env:"PORT,default=8080"`
	ExternalURL       string        `env:"EXTERNAL_URL"`
	KeepaliveInterval time.Duration `env:"KEEPALIVE_INTERVAL,default=14m"`
}
