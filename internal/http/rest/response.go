package rest

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/bwise1/skipvote_bot/util"
	"github.com/bwise1/skipvote_bot/util/tracing"
	"github.com/bwise1/skipvote_bot/util/values"
)

type ServerResponse struct {
	Err        error       `json:"-"`
	Message    string      `json:"message"`
	Status     string      `json:"status"`
	StatusCode int         `json:"-"`
	Data       interface{} `json:"data,omitempty"`
}

// SlackResponse is the body Slack renders in reply to a slash command.
type SlackResponse struct {
	ResponseType string `json:"response_type"`
	Text         string `json:"text"`
}

const (
	responseEphemeral = "ephemeral"
	responseInChannel = "in_channel"
)

func ephemeral(text string) *SlackResponse {
	return &SlackResponse{ResponseType: responseEphemeral, Text: text}
}

func respondWithError(err error, message, status string, tc *tracing.Context) *ServerResponse {
	attrs := []any{"status", status}
	if tc != nil {
		attrs = append(attrs, "request_id", tc.RequestID)
	}
	if err != nil {
		attrs = append(attrs, "error", err)
	}
	slog.Warn(message, attrs...)

	return &ServerResponse{
		Err:        err,
		Message:    message,
		Status:     status,
		StatusCode: util.StatusCode(status),
	}
}

func writeErrorResponse(w http.ResponseWriter, err error, status, message string) {
	if err != nil {
		slog.Warn(message, "status", status, "error", err)
	}
	body, _ := json.Marshal(&ServerResponse{Message: message, Status: status})
	writeJSONResponse(w, body, util.StatusCode(status))
}

func writeJSONResponse(w http.ResponseWriter, body []byte, statusCode int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	_, _ = w.Write(body)
}

func tracingContext(r *http.Request) tracing.Context {
	tc, _ := r.Context().Value(values.ContextTracingKey).(tracing.Context)
	return tc
}
