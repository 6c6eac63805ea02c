package rest

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/bwise1/skipvote_bot/internal/db"
	"github.com/bwise1/skipvote_bot/internal/model"
	"github.com/bwise1/skipvote_bot/internal/vote"
	"github.com/bwise1/skipvote_bot/util/values"
)

func (api *API) connectURL(team, channel string) string {
	params := url.Values{}
	params.Set("team", team)
	params.Set("channel", channel)
	return fmt.Sprintf("%s/oauth/spotify/connect?%s", api.Config.BaseURL, params.Encode())
}

func (api *API) noSessionMessage(cmd model.SlashCommand) string {
	return fmt.Sprintf("No music account is connected to this channel yet. <%s|Connect one> first.", api.connectURL(cmd.TeamID, cmd.ChannelID))
}

// StartSkipVoteHelper opens a vote on the current track, announces it, and
// schedules its resolution. A vote whose announcement or schedule fails is
// left to expire.
func (api *API) StartSkipVoteHelper(ctx context.Context, cmd model.SlashCommand) (model.VoteRecord, string, string, error) {
	track, playing, err := api.Deps.Player.CurrentlyPlaying(ctx, cmd.TeamID, cmd.ChannelID)
	if errors.Is(err, db.ErrSessionNotFound) {
		return model.VoteRecord{}, values.NotAllowed, api.noSessionMessage(cmd), nil
	}
	if err != nil {
		return model.VoteRecord{}, values.Error, "Couldn't reach the music player, try again.", err
	}
	if !playing {
		return model.VoteRecord{}, values.Unprocessable, "Nothing is playing right now.", nil
	}

	rec, err := api.Deps.Votes.CreateVote(ctx, cmd.TeamID, cmd.ChannelID, track, cmd.UserID)
	if err != nil {
		return model.VoteRecord{}, values.Retry, "Couldn't start a skip vote, try again.", err
	}

	ref, err := api.Deps.Announcer.Post(ctx, cmd.TeamID, cmd.ChannelID, vote.AnnouncementText(rec, api.Config.VoteWindow))
	if err != nil {
		return rec, values.Error, "Couldn't announce the skip vote.", err
	}

	rec, err = api.Deps.Votes.AttachAnnouncement(ctx, rec, ref)
	if err != nil {
		return rec, values.Error, "Couldn't start a skip vote, try again.", err
	}

	payload := model.ResolvePayload{Tenant: cmd.TeamID, Channel: cmd.ChannelID, VoteID: rec.ID}
	jobID, err := api.Deps.Scheduler.Schedule(ctx, api.Config.VoteWindow, payload)
	if err != nil {
		return rec, values.Error, "The vote is up, but I couldn't start its timer. It will expire without a result.", err
	}

	api.Logger.Info("skip vote scheduled",
		"tenant", cmd.TeamID,
		"channel", cmd.ChannelID,
		"vote_id", rec.ID,
		"job_id", jobID,
		"window", api.Config.VoteWindow,
	)
	return rec, values.Created, fmt.Sprintf("Skip vote started for *%s*.", track.Name), nil
}

func (api *API) QueueTrackHelper(ctx context.Context, cmd model.SlashCommand) (model.TrackInfo, string, string, error) {
	track, found, err := api.Deps.Player.SearchAndQueue(ctx, cmd.TeamID, cmd.ChannelID, cmd.Text)
	if errors.Is(err, db.ErrSessionNotFound) {
		return model.TrackInfo{}, values.NotAllowed, api.noSessionMessage(cmd), nil
	}
	if err != nil {
		return model.TrackInfo{}, values.Error, "Couldn't queue that track, try again.", err
	}
	if !found {
		return model.TrackInfo{}, values.NotFound, fmt.Sprintf("No track found for %q.", cmd.Text), nil
	}
	return track, values.Success, "Track queued", nil
}

func (api *API) NowPlayingHelper(ctx context.Context, cmd model.SlashCommand) (model.TrackInfo, string, string, error) {
	track, playing, err := api.Deps.Player.CurrentlyPlaying(ctx, cmd.TeamID, cmd.ChannelID)
	if errors.Is(err, db.ErrSessionNotFound) {
		return model.TrackInfo{}, values.NotAllowed, api.noSessionMessage(cmd), nil
	}
	if err != nil {
		return model.TrackInfo{}, values.Error, "Couldn't reach the music player, try again.", err
	}
	if !playing {
		return model.TrackInfo{}, values.NotFound, "Nothing is playing right now.", nil
	}
	return track, values.Success, "Now playing", nil
}
