package config

import (
	"log/slog"
	"strings"
	"time"

	"github.com/bwise1/skipvote_bot/util"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Port    int    `env:"PORT" envDefault:"8080" validate:"min=1,max=65535"`
	BaseURL string `env:"BASE_URL" validate:"required,url"`
	Dsn     string `env:"DSN" validate:"required"`

	RedisURL     string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0" validate:"required"`
	StoreTimeout time.Duration `env:"STORE_TIMEOUT" envDefault:"3s"`

	VoteWindow time.Duration `env:"VOTE_WINDOW" envDefault:"60s" validate:"gt=0"`
	VoteTTL    time.Duration `env:"VOTE_TTL" envDefault:"15m" validate:"gtfield=VoteWindow"`

	SlackSigningSecret string `env:"SLACK_SIGNING_SECRET" validate:"required"`
	SlackClientID      string `env:"SLACK_CLIENT_ID"`
	SlackClientSecret  string `env:"SLACK_CLIENT_SECRET"`

	SpotifyClientID     string `env:"SPOTIFY_CLIENT_ID"`
	SpotifyClientSecret string `env:"SPOTIFY_CLIENT_SECRET"`

	QStashURL               string `env:"QSTASH_URL" envDefault:"https://qstash.upstash.io"`
	QStashToken             string `env:"QSTASH_TOKEN" validate:"required"`
	QStashCurrentSigningKey string `env:"QSTASH_CURRENT_SIGNING_KEY" validate:"required"`
	QStashNextSigningKey    string `env:"QSTASH_NEXT_SIGNING_KEY"`

	ReactionAliasesFile string `env:"REACTION_ALIASES_FILE"`
}

// New loads .env if present, then the environment.
func New() (*Config, error) {
	if loadErr := godotenv.Load(".env"); loadErr != nil {
		slog.Debug("unable to load .env file", "component", "config", "error", loadErr)
	}

	var cfg Config
	if parseErr := env.Parse(&cfg); parseErr != nil {
		return nil, parseErr
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &cfg, nil
}

func (c *Config) Validate() error {
	return util.ValidateStruct(c)
}

func (c *Config) ResolveCallbackURL() string {
	return c.BaseURL + "/skip-votes/resolve"
}

func (c *Config) SlackRedirectURL() string {
	return c.BaseURL + "/oauth/slack/callback"
}

func (c *Config) SpotifyRedirectURL() string {
	return c.BaseURL + "/oauth/spotify/callback"
}
