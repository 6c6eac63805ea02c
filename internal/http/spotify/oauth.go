package spotify

import (
	"context"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

const requestTimeout = 10 * time.Second

var Endpoint = oauth2.Endpoint{
	AuthURL:  "https://accounts.spotify.com/authorize",
	TokenURL: "https://accounts.spotify.com/api/token",
}

var Scopes = []string{
	"user-read-currently-playing",
	"user-read-playback-state",
	"user-modify-playback-state",
}

func NewOAuthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       Scopes,
		Endpoint:     Endpoint,
	}
}

// TokenSaver persists a refreshed token.
type TokenSaver func(ctx context.Context, tok *oauth2.Token) error

type savingTokenSource struct {
	ctx  context.Context
	base oauth2.TokenSource
	save TokenSaver

	mu   sync.Mutex
	last string
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		if s.save != nil {
			if err := s.save(s.ctx, tok); err != nil {
				return nil, err
			}
		}
	}
	return tok, nil
}

// NewSessionClient returns a client for the account behind tok. Tokens are
// refreshed through cfg as they expire and every new token is handed to save.
func NewSessionClient(ctx context.Context, cfg *oauth2.Config, tok *oauth2.Token, save TokenSaver) *SpotifyClient {
	src := &savingTokenSource{
		ctx:  ctx,
		base: cfg.TokenSource(ctx, tok),
		save: save,
		last: tok.AccessToken,
	}
	hc := oauth2.NewClient(ctx, oauth2.ReuseTokenSource(tok, src))
	hc.Timeout = requestTimeout
	return NewSpotifyClient(hc)
}
