package trigger

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwise1/skipvote_bot/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedule(t *testing.T) {
	payload := model.ResolvePayload{Tenant: "T1", Channel: "C1", VoteID: "abc123"}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v2/publish/"+callbackURL, r.URL.Path)
		assert.Equal(t, "Bearer qstash-token", r.Header.Get("Authorization"))
		assert.Equal(t, "60s", r.Header.Get("Upstash-Delay"))
		assert.Equal(t, "3", r.Header.Get("Upstash-Retries"))
		assert.Equal(t, "T1-C1-abc123", r.Header.Get("Upstash-Deduplication-Id"))

		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var got model.ResolvePayload
		require.NoError(t, json.Unmarshal(raw, &got))
		assert.Equal(t, payload, got)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"messageId":"msg_1"}`))
	}))
	defer srv.Close()

	c := NewQStashClient(srv.URL+"/", "qstash-token", callbackURL)
	id, err := c.Schedule(context.Background(), time.Minute, payload)
	require.NoError(t, err)
	assert.Equal(t, "msg_1", id)
}

func TestScheduleErrors(t *testing.T) {
	testCases := []struct {
		name   string
		status int
		body   string
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{"error":"invalid token"}`},
		{name: "no message id", status: http.StatusOK, body: `{}`},
		{name: "bad json", status: http.StatusOK, body: `not json`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			c := NewQStashClient(srv.URL, "token", callbackURL)
			_, err := c.Schedule(context.Background(), time.Minute, model.ResolvePayload{Tenant: "T1", Channel: "C1", VoteID: "v"})
			assert.Error(t, err)
		})
	}
}
