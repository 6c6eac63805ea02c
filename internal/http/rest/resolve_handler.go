package rest

import (
	"errors"
	"net/http"

	"github.com/bwise1/skipvote_bot/internal/model"
	"github.com/bwise1/skipvote_bot/internal/vote"
	"github.com/bwise1/skipvote_bot/util"
	"github.com/bwise1/skipvote_bot/util/values"
	"github.com/go-chi/chi/v5"
)

func (api *API) SkipVoteRoutes() chi.Router {
	mux := chi.NewRouter()

	mux.Group(func(r chi.Router) {
		r.Use(api.VerifyTrigger)
		r.Method(http.MethodPost, "/resolve", Handler(api.ResolveSkipVote))
	})

	return mux
}

// ResolveSkipVote is the delayed trigger callback. Only store faults answer
// with a retryable status; duplicates and stale deliveries are acknowledged.
func (api *API) ResolveSkipVote(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := tracingContext(r)

	var req model.ResolvePayload
	if decodeErr := util.DecodeJSONBody(&tc, r.Body, &req); decodeErr != nil {
		return respondWithError(decodeErr, "unable to decode request", values.BadRequestBody, &tc)
	}
	if err := util.ValidateStruct(req); err != nil {
		return respondWithError(err, "validation failed", values.BadRequestBody, &tc)
	}

	out, err := api.Deps.Votes.Resolve(r.Context(), req.Tenant, req.Channel, req.VoteID)
	if errors.Is(err, vote.ErrStoreUnavailable) {
		return respondWithError(err, "vote store unavailable", values.Retry, &tc)
	}
	if err != nil {
		return respondWithError(err, "unable to resolve vote", values.Error, &tc)
	}

	message := "vote resolved"
	if out.Noop() {
		message = "vote already resolved"
	}
	return &ServerResponse{
		Message:    message,
		Status:     values.Success,
		StatusCode: util.StatusCode(values.Success),
		Data:       out,
	}
}
