package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("BASE_URL", "https://bot.example.com/")
	t.Setenv("DSN", "postgres://localhost/skipvote")
	t.Setenv("SLACK_SIGNING_SECRET", "secret")
	t.Setenv("QSTASH_TOKEN", "token")
	t.Setenv("QSTASH_CURRENT_SIGNING_KEY", "sig_current")
}

func TestNewDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := New()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, time.Minute, cfg.VoteWindow)
	assert.Equal(t, 15*time.Minute, cfg.VoteTTL)
	assert.Equal(t, "https://bot.example.com/skip-votes/resolve", cfg.ResolveCallbackURL())
	assert.Equal(t, "https://bot.example.com/oauth/slack/callback", cfg.SlackRedirectURL())
	assert.Equal(t, "https://bot.example.com/oauth/spotify/callback", cfg.SpotifyRedirectURL())
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name string
		env  map[string]string
	}{
		{name: "missing signing secret", env: map[string]string{"SLACK_SIGNING_SECRET": ""}},
		{name: "bad base url", env: map[string]string{"BASE_URL": "not a url"}},
		{name: "ttl shorter than window", env: map[string]string{"VOTE_WINDOW": "20m"}},
		{name: "port out of range", env: map[string]string{"PORT": "70000"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			setRequired(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			cfg, err := New()
			require.NoError(t, err)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestNewRejectsBadDuration(t *testing.T) {
	setRequired(t)
	t.Setenv("VOTE_WINDOW", "soon")

	_, err := New()
	assert.Error(t, err)
}
