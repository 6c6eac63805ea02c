package rest

import (
	"encoding/json"
	"net/http"

	"github.com/bwise1/skipvote_bot/internal/http/slack"
	"github.com/bwise1/skipvote_bot/util"
	"github.com/bwise1/skipvote_bot/util/values"
)

type challengeResponse struct {
	Challenge string `json:"challenge"`
}

// SlackEvents takes Events API deliveries. Anything that is not a reaction on
// an open vote is acknowledged and dropped. Store faults answer 500 so Slack
// redelivers; applying a reaction twice is harmless.
func (api *API) SlackEvents(w http.ResponseWriter, r *http.Request) {
	tc := tracingContext(r)

	var env slack.Envelope
	if err := util.DecodeJSONBody(&tc, r.Body, &env); err != nil {
		writeErrorResponse(w, err, values.BadRequestBody, "unable to decode event")
		return
	}

	switch env.Type {
	case slack.EnvelopeURLVerification:
		body, _ := json.Marshal(challengeResponse{Challenge: env.Challenge})
		writeJSONResponse(w, body, http.StatusOK)
		return
	case slack.EnvelopeEventCallback:
	default:
		api.ack(w, "ignored envelope")
		return
	}

	var ev slack.ReactionEvent
	if err := json.Unmarshal(env.Event, &ev); err != nil {
		writeErrorResponse(w, err, values.BadRequestBody, "unable to decode event")
		return
	}
	status, message, err := api.HandleReactionHelper(r.Context(), env.TeamID, ev)
	if err != nil {
		writeErrorResponse(w, err, status, message)
		return
	}
	api.ack(w, message)
}

func (api *API) ack(w http.ResponseWriter, message string) {
	body, _ := json.Marshal(&ServerResponse{Message: message, Status: values.Success})
	writeJSONResponse(w, body, http.StatusOK)
}
