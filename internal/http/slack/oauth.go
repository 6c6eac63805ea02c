package slack

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
)

var Endpoint = oauth2.Endpoint{
	AuthURL:   "https://slack.com/oauth/v2/authorize",
	TokenURL:  "https://slack.com/api/oauth.v2.access",
	AuthStyle: oauth2.AuthStyleInParams,
}

var BotScopes = []string{"chat:write", "commands", "reactions:read"}

func NewOAuthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       BotScopes,
		Endpoint:     Endpoint,
	}
}

// Installation is what an oauth.v2.access exchange yields for a workspace.
type Installation struct {
	TeamID   string
	TeamName string
	BotToken string
}

// ExchangeInstall trades an install code for the workspace bot token. Slack
// returns the team as an extra field next to the token.
func ExchangeInstall(ctx context.Context, cfg *oauth2.Config, code string) (Installation, error) {
	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return Installation{}, fmt.Errorf("slack oauth exchange: %w", err)
	}
	inst := Installation{BotToken: tok.AccessToken}
	if team, ok := tok.Extra("team").(map[string]interface{}); ok {
		inst.TeamID, _ = team["id"].(string)
		inst.TeamName, _ = team["name"].(string)
	}
	if inst.TeamID == "" {
		return Installation{}, fmt.Errorf("slack oauth exchange: response has no team id")
	}
	return inst, nil
}
