package rest

import (
	"context"

	"github.com/bwise1/skipvote_bot/internal/http/slack"
	"github.com/bwise1/skipvote_bot/util/values"
)

// HandleReactionHelper maps a reaction event onto the vote announced in the
// reacted message, if any.
func (api *API) HandleReactionHelper(ctx context.Context, team string, ev slack.ReactionEvent) (string, string, error) {
	if !ev.IsReaction() || ev.Item.Type != "message" || ev.User == "" {
		return values.Ignored, "not a message reaction", nil
	}
	polarity, ok := api.Deps.Aliases.Polarity(ev.Reaction)
	if !ok {
		return values.Ignored, "reaction is not a vote", nil
	}

	rec, found, err := api.Deps.Votes.FindVoteByAnnouncementRef(ctx, team, ev.Item.Channel, ev.Item.TS)
	if err != nil {
		return values.Retry, "unable to look up vote", err
	}
	if !found {
		return values.Ignored, "no open vote on this message", nil
	}

	if err := api.Deps.Votes.ApplyReaction(ctx, team, rec.ID, ev.User, polarity, ev.Added()); err != nil {
		return values.Retry, "unable to record vote", err
	}
	return values.Success, "vote recorded", nil
}
