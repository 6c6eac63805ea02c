package spotify

import (
	"context"
	"fmt"

	"github.com/bwise1/skipvote_bot/internal/model"
	"golang.org/x/oauth2"
)

// SessionStore persists the music provider tokens bound to a channel.
type SessionStore interface {
	GetSession(ctx context.Context, teamID, channelID string) (model.MusicSession, error)
	SaveSession(ctx context.Context, s model.MusicSession) error
}

// Player drives playback for whichever account a channel is bound to.
type Player struct {
	OAuth    *oauth2.Config
	Sessions SessionStore
	BaseURL  string
}

func NewPlayer(cfg *oauth2.Config, sessions SessionStore) *Player {
	return &Player{OAuth: cfg, Sessions: sessions, BaseURL: DefaultBaseURL}
}

func (p *Player) clientFor(ctx context.Context, tenant, channel string) (*SpotifyClient, error) {
	sess, err := p.Sessions.GetSession(ctx, tenant, channel)
	if err != nil {
		return nil, err
	}
	tok := &oauth2.Token{
		AccessToken:  sess.AccessToken,
		RefreshToken: sess.RefreshToken,
		TokenType:    sess.TokenType,
		Expiry:       sess.Expiry,
	}
	save := func(ctx context.Context, t *oauth2.Token) error {
		return p.Sessions.SaveSession(ctx, SessionFromToken(tenant, channel, t))
	}
	// refreshes outlive the request that triggered them
	c := NewSessionClient(context.WithoutCancel(ctx), p.OAuth, tok, save)
	if p.BaseURL != "" {
		c.BaseURL = p.BaseURL
	}
	return c, nil
}

// SessionFromToken maps an oauth2 token onto the session of a channel.
func SessionFromToken(tenant, channel string, t *oauth2.Token) model.MusicSession {
	return model.MusicSession{
		TeamID:       tenant,
		ChannelID:    channel,
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.Type(),
		Expiry:       t.Expiry,
	}
}

func (p *Player) CurrentlyPlaying(ctx context.Context, tenant, channel string) (model.TrackInfo, bool, error) {
	c, err := p.clientFor(ctx, tenant, channel)
	if err != nil {
		return model.TrackInfo{}, false, err
	}
	return c.CurrentlyPlaying(ctx)
}

// SkipCurrentTrack skips on the account bound to channel.
func (p *Player) SkipCurrentTrack(ctx context.Context, tenant, channel string) error {
	c, err := p.clientFor(ctx, tenant, channel)
	if err != nil {
		return fmt.Errorf("music session for %s/%s: %w", tenant, channel, err)
	}
	return c.SkipCurrentTrack(ctx)
}

// SearchAndQueue queues the best match for q and returns it.
func (p *Player) SearchAndQueue(ctx context.Context, tenant, channel, q string) (model.TrackInfo, bool, error) {
	c, err := p.clientFor(ctx, tenant, channel)
	if err != nil {
		return model.TrackInfo{}, false, err
	}
	track, ok, err := c.SearchTrack(ctx, q)
	if err != nil || !ok {
		return track, ok, err
	}
	if err := c.Queue(ctx, track.URI); err != nil {
		return model.TrackInfo{}, false, err
	}
	return track, true, nil
}
