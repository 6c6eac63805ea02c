package deps

import (
	"context"
	"log/slog"

	"github.com/bwise1/skipvote_bot/config"
	"github.com/bwise1/skipvote_bot/internal/db"
	"github.com/bwise1/skipvote_bot/internal/http/slack"
	"github.com/bwise1/skipvote_bot/internal/http/spotify"
	"github.com/bwise1/skipvote_bot/internal/model"
	"github.com/bwise1/skipvote_bot/internal/reactions"
	"github.com/bwise1/skipvote_bot/internal/store"
	"github.com/bwise1/skipvote_bot/internal/store/redisstore"
	"github.com/bwise1/skipvote_bot/internal/trigger"
	"github.com/bwise1/skipvote_bot/internal/vote"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/oauth2"
)

// SessionStore holds workspace installs and channel music sessions.
type SessionStore interface {
	SaveWorkspace(ctx context.Context, ws model.Workspace) error
	GetWorkspace(ctx context.Context, teamID string) (model.Workspace, error)
	SaveSession(ctx context.Context, s model.MusicSession) error
	GetSession(ctx context.Context, teamID, channelID string) (model.MusicSession, error)
}

// Player is the music provider as seen by slash commands.
type Player interface {
	CurrentlyPlaying(ctx context.Context, tenant, channel string) (model.TrackInfo, bool, error)
	SearchAndQueue(ctx context.Context, tenant, channel, q string) (model.TrackInfo, bool, error)
}

// Verifier authenticates delayed trigger deliveries.
type Verifier interface {
	Verify(signature string, body []byte, url string) error
}

type Dependencies struct {
	DB           *db.DB
	Store        store.Store
	Sessions     SessionStore
	Player       Player
	Announcer    vote.Announcer
	Scheduler    trigger.Scheduler
	Verifier     Verifier
	Aliases      *reactions.Aliases
	Votes        *vote.Coordinator
	SlackOAuth   *oauth2.Config
	SpotifyOAuth *oauth2.Config
	Registry     *prometheus.Registry
}

// New wires every process-wide dependency once. The store connection is
// shared by all requests.
func New(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	database, err := db.New(cfg.Dsn, logger)
	if err != nil {
		return nil, err
	}

	aliases, err := reactions.Load(cfg.ReactionAliasesFile)
	if err != nil {
		database.Close()
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	sessions := db.NewSessionRepo(database)
	kv := redisstore.New(redisstore.Options{
		URL:     cfg.RedisURL,
		Timeout: cfg.StoreTimeout,
		Logger:  logger,
	})
	spotifyOAuth := spotify.NewOAuthConfig(cfg.SpotifyClientID, cfg.SpotifyClientSecret, cfg.SpotifyRedirectURL())
	player := spotify.NewPlayer(spotifyOAuth, sessions)
	announcer := slack.NewAnnouncer(slack.NewSlackClient(), sessions)

	votes := vote.New(vote.Config{
		Store:      kv,
		Announcer:  announcer,
		Skipper:    player,
		TTL:        cfg.VoteTTL,
		Logger:     logger,
		Registerer: registry,
	})

	return &Dependencies{
		DB:           database,
		Store:        kv,
		Sessions:     sessions,
		Player:       player,
		Announcer:    announcer,
		Scheduler:    trigger.NewQStashClient(cfg.QStashURL, cfg.QStashToken, cfg.ResolveCallbackURL()),
		Verifier:     trigger.NewVerifier(cfg.QStashCurrentSigningKey, cfg.QStashNextSigningKey),
		Aliases:      aliases,
		Votes:        votes,
		SlackOAuth:   slack.NewOAuthConfig(cfg.SlackClientID, cfg.SlackClientSecret, cfg.SlackRedirectURL()),
		SpotifyOAuth: spotifyOAuth,
		Registry:     registry,
	}, nil
}

func (d *Dependencies) Close() error {
	if d.DB != nil {
		d.DB.Close()
	}
	if d.Store != nil {
		return d.Store.Close()
	}
	return nil
}
