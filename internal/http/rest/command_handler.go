package rest

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/bwise1/skipvote_bot/internal/model"
	"github.com/bwise1/skipvote_bot/util"
	"github.com/bwise1/skipvote_bot/util/values"
	"github.com/go-chi/chi/v5"
)

const (
	commandSkip       = "/skip"
	commandQueue      = "/queue"
	commandNowPlaying = "/nowplaying"
)

func (api *API) SlackRoutes() chi.Router {
	mux := chi.NewRouter()

	mux.Group(func(r chi.Router) {
		r.Use(api.VerifySlack)
		r.Method(http.MethodPost, "/commands", SlackHandler(api.SlashCommand))
		r.Post("/events", api.SlackEvents)
	})

	return mux
}

func (api *API) SlashCommand(_ http.ResponseWriter, r *http.Request) *SlackResponse {
	tc := tracingContext(r)

	if err := r.ParseForm(); err != nil {
		respondWithError(err, "unable to parse command", values.BadRequestBody, &tc)
		return ephemeral("Sorry, I couldn't read that command.")
	}

	cmd := model.SlashCommand{
		TeamID:      r.PostForm.Get("team_id"),
		ChannelID:   r.PostForm.Get("channel_id"),
		UserID:      r.PostForm.Get("user_id"),
		UserName:    r.PostForm.Get("user_name"),
		Command:     r.PostForm.Get("command"),
		Text:        strings.TrimSpace(r.PostForm.Get("text")),
		ResponseURL: r.PostForm.Get("response_url"),
	}
	if err := util.ValidateStruct(cmd); err != nil {
		respondWithError(err, "invalid command payload", values.BadRequestBody, &tc)
		return ephemeral("Sorry, I couldn't read that command.")
	}

	switch cmd.Command {
	case commandSkip:
		_, status, message, err := api.StartSkipVoteHelper(r.Context(), cmd)
		if err != nil {
			respondWithError(err, message, status, &tc)
		}
		return ephemeral(message)

	case commandQueue:
		if cmd.Text == "" {
			return ephemeral("Usage: /queue <song or artist>")
		}
		track, status, message, err := api.QueueTrackHelper(r.Context(), cmd)
		if err != nil {
			respondWithError(err, message, status, &tc)
			return ephemeral(message)
		}
		if status != values.Success {
			return ephemeral(message)
		}
		return &SlackResponse{
			ResponseType: responseInChannel,
			Text:         fmt.Sprintf("<@%s> queued *%s* by %s", cmd.UserID, track.Name, track.Artist),
		}

	case commandNowPlaying:
		track, status, message, err := api.NowPlayingHelper(r.Context(), cmd)
		if err != nil {
			respondWithError(err, message, status, &tc)
			return ephemeral(message)
		}
		if status != values.Success {
			return ephemeral(message)
		}
		return &SlackResponse{
			ResponseType: responseInChannel,
			Text:         fmt.Sprintf("Now playing *%s* by %s", track.Name, track.Artist),
		}

	default:
		return ephemeral(fmt.Sprintf("I don't know the command %s.", cmd.Command))
	}
}
