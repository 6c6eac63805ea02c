package rest

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwise1/skipvote_bot/internal/store"
	"github.com/google/uuid"
)

const (
	oauthStatePrefix  = "oauth-state:"
	oauthStateTTL     = 10 * time.Minute
	stateSlackInstall = "slack-install"
)

var errInvalidState = errors.New("unknown or expired oauth state")

// newOAuthState stores value under a fresh random state token.
func (api *API) newOAuthState(ctx context.Context, value string) (string, error) {
	state := uuid.NewString()
	if err := api.Deps.Store.Set(ctx, oauthStatePrefix+state, []byte(value), oauthStateTTL); err != nil {
		return "", err
	}
	return state, nil
}

// consumeOAuthState returns the value bound to state and forgets it.
func (api *API) consumeOAuthState(ctx context.Context, state string) (string, error) {
	if _, err := uuid.Parse(state); err != nil {
		return "", errInvalidState
	}
	key := oauthStatePrefix + state
	value, err := api.Deps.Store.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return "", errInvalidState
	}
	if err != nil {
		return "", err
	}
	if err := api.Deps.Store.Delete(ctx, key); err != nil {
		return "", err
	}
	return string(value), nil
}

func splitChannelState(v string) (team, channel string, ok bool) {
	team, channel, ok = strings.Cut(v, ":")
	return team, channel, ok && team != "" && channel != ""
}
