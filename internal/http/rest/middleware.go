package rest

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/bwise1/skipvote_bot/internal/http/slack"
	"github.com/bwise1/skipvote_bot/util/tracing"
	"github.com/bwise1/skipvote_bot/util/values"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/lucsky/cuid"
)

const (
	sourceSlack  = "slack"
	sourceQStash = "qstash"
	sourceDirect = "direct"
)

// RequestTracing handles the request tracing context
func RequestTracing(next http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		requestID := r.Header.Get(values.HeaderRequestID)
		if requestID == "" {
			requestID = cuid.New()
		}

		requestSource := sourceDirect
		switch {
		case r.Header.Get(values.HeaderSlackSignature) != "":
			requestSource = sourceSlack
		case r.Header.Get(values.HeaderUpstashSignature) != "":
			requestSource = sourceQStash
		}

		tracingContext := tracing.Context{
			RequestID:     requestID,
			RequestSource: requestSource,
		}

		ctx = context.WithValue(ctx, values.ContextTracingKey, tracingContext)
		next.ServeHTTP(w, r.WithContext(ctx))
	}

	return http.HandlerFunc(fn)
}

func (api *API) RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		tc := tracingContext(r)
		api.Logger.Info("request handled",
			"component", "http",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", tc.RequestID,
			"source", tc.RequestSource,
		)
	})
}

// readBody buffers the request body and puts an identical reader back so
// later handlers can decode it.
func readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, errors.New("missing request body")
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	_ = r.Body.Close()
	if err != nil {
		return nil, err
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}

// VerifySlack rejects requests that are not signed with our Slack signing
// secret.
func (api *API) VerifySlack(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := readBody(r)
		if err != nil {
			writeErrorResponse(w, err, values.BadRequestBody, "unable to read request")
			return
		}
		err = slack.VerifyRequest(
			api.Config.SlackSigningSecret,
			r.Header.Get(values.HeaderSlackSignature),
			r.Header.Get(values.HeaderSlackTimestamp),
			body,
			api.Now(),
		)
		if err != nil {
			writeErrorResponse(w, err, values.NotAuthorised, "invalid-signature")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// VerifyTrigger rejects resolution deliveries that QStash did not sign. No
// vote state is read or written for a rejected delivery.
func (api *API) VerifyTrigger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := readBody(r)
		if err != nil {
			writeErrorResponse(w, err, values.BadRequestBody, "unable to read request")
			return
		}
		err = api.Deps.Verifier.Verify(
			r.Header.Get(values.HeaderUpstashSignature),
			body,
			api.Config.ResolveCallbackURL(),
		)
		if err != nil {
			writeErrorResponse(w, err, values.NotAuthorised, "invalid-signature")
			return
		}
		next.ServeHTTP(w, r)
	})
}
