package model

import "time"

// Workspace is a Slack team that installed the app.
type Workspace struct {
	TeamID      string    `json:"team_id"`
	TeamName    string    `json:"team_name"`
	BotToken    string    `json:"-"`
	InstalledAt time.Time `json:"installed_at"`
}

// MusicSession binds a channel to an authorized music provider account.
type MusicSession struct {
	TeamID       string    `json:"team_id"`
	ChannelID    string    `json:"channel_id"`
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	TokenType    string    `json:"token_type"`
	Expiry       time.Time `json:"expiry"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// SlashCommand is the form payload Slack sends for slash commands.
type SlashCommand struct {
	TeamID      string `validate:"required,slackid"`
	ChannelID   string `validate:"required,slackid"`
	UserID      string `validate:"required,slackid"`
	UserName    string
	Command     string `validate:"required"`
	Text        string
	ResponseURL string
}

// ResolvePayload is the body the delayed trigger delivers back to us.
type ResolvePayload struct {
	Tenant  string `json:"tenant" validate:"required,slackid"`
	Channel string `json:"channel" validate:"required,slackid"`
	VoteID  string `json:"vote_id" validate:"required,alphanum"`
}
