package slack

import (
	"context"
	"fmt"
)

// TokenLookup resolves the bot token of an installed workspace.
type TokenLookup interface {
	BotToken(ctx context.Context, teamID string) (string, error)
}

// Announcer posts vote messages into a workspace channel as the app's bot.
type Announcer struct {
	Client *SlackClient
	Tokens TokenLookup
}

func NewAnnouncer(client *SlackClient, tokens TokenLookup) *Announcer {
	return &Announcer{Client: client, Tokens: tokens}
}

// Post returns the message ts, used to match reactions back to the message.
func (a *Announcer) Post(ctx context.Context, tenant, channel, text string) (string, error) {
	token, err := a.Tokens.BotToken(ctx, tenant)
	if err != nil {
		return "", fmt.Errorf("bot token for %s: %w", tenant, err)
	}
	return a.Client.PostMessage(ctx, token, channel, text)
}
