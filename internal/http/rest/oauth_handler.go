package rest

import (
	"net/http"

	"github.com/bwise1/skipvote_bot/internal/http/slack"
	"github.com/bwise1/skipvote_bot/internal/http/spotify"
	"github.com/bwise1/skipvote_bot/internal/model"
	"github.com/bwise1/skipvote_bot/util/values"
	"github.com/go-chi/chi/v5"
	"golang.org/x/oauth2"
)

func (api *API) OAuthRoutes() chi.Router {
	mux := chi.NewRouter()

	mux.Get("/slack/install", api.SlackInstall)
	mux.Get("/slack/callback", api.SlackInstallCallback)
	mux.Get("/spotify/connect", api.SpotifyConnect)
	mux.Get("/spotify/callback", api.SpotifyCallback)

	return mux
}

func (api *API) SlackInstall(w http.ResponseWriter, r *http.Request) {
	state, err := api.newOAuthState(r.Context(), stateSlackInstall)
	if err != nil {
		writeErrorResponse(w, err, values.Retry, "unable to start install")
		return
	}
	http.Redirect(w, r, api.Deps.SlackOAuth.AuthCodeURL(state), http.StatusFound)
}

func (api *API) SlackInstallCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if _, err := api.consumeOAuthState(r.Context(), q.Get("state")); err != nil {
		writeErrorResponse(w, err, values.NotAuthorised, "invalid-state")
		return
	}
	code := q.Get("code")
	if code == "" {
		writeErrorResponse(w, nil, values.BadRequestBody, "missing code")
		return
	}

	inst, err := slack.ExchangeInstall(r.Context(), api.Deps.SlackOAuth, code)
	if err != nil {
		writeErrorResponse(w, err, values.Error, "install failed")
		return
	}
	ws := model.Workspace{TeamID: inst.TeamID, TeamName: inst.TeamName, BotToken: inst.BotToken}
	if err := api.Deps.Sessions.SaveWorkspace(r.Context(), ws); err != nil {
		writeErrorResponse(w, err, values.Error, "install failed")
		return
	}
	api.Logger.Info("workspace installed", "tenant", inst.TeamID)
	api.ack(w, "installed")
}

// SpotifyConnect starts binding a music account to the channel named in the
// query. The /skip reply links here when a channel has no session.
func (api *API) SpotifyConnect(w http.ResponseWriter, r *http.Request) {
	team, channel := r.URL.Query().Get("team"), r.URL.Query().Get("channel")
	if team == "" || channel == "" {
		writeErrorResponse(w, nil, values.BadRequestBody, "team and channel are required")
		return
	}
	state, err := api.newOAuthState(r.Context(), team+":"+channel)
	if err != nil {
		writeErrorResponse(w, err, values.Retry, "unable to start connect")
		return
	}
	http.Redirect(w, r, api.Deps.SpotifyOAuth.AuthCodeURL(state, oauth2.AccessTypeOffline), http.StatusFound)
}

func (api *API) SpotifyCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	bound, err := api.consumeOAuthState(r.Context(), q.Get("state"))
	if err != nil {
		writeErrorResponse(w, err, values.NotAuthorised, "invalid-state")
		return
	}
	team, channel, ok := splitChannelState(bound)
	if !ok {
		writeErrorResponse(w, nil, values.NotAuthorised, "invalid-state")
		return
	}
	code := q.Get("code")
	if code == "" {
		writeErrorResponse(w, nil, values.BadRequestBody, "missing code")
		return
	}

	tok, err := api.Deps.SpotifyOAuth.Exchange(r.Context(), code)
	if err != nil {
		writeErrorResponse(w, err, values.Error, "connect failed")
		return
	}
	if err := api.Deps.Sessions.SaveSession(r.Context(), spotify.SessionFromToken(team, channel, tok)); err != nil {
		writeErrorResponse(w, err, values.Error, "connect failed")
		return
	}
	api.Logger.Info("music session connected", "tenant", team, "channel", channel)
	api.ack(w, "connected")
}
