package slack

import "encoding/json"

const (
	EnvelopeURLVerification = "url_verification"
	EnvelopeEventCallback   = "event_callback"

	EventReactionAdded   = "reaction_added"
	EventReactionRemoved = "reaction_removed"
)

// Envelope is the outer body of an Events API request.
type Envelope struct {
	Token     string          `json:"token"`
	Type      string          `json:"type"`
	Challenge string          `json:"challenge,omitempty"`
	TeamID    string          `json:"team_id"`
	EventID   string          `json:"event_id"`
	EventTime int64           `json:"event_time"`
	Event     json.RawMessage `json:"event,omitempty"`
}

type ReactionItem struct {
	Type    string `json:"type"`
	Channel string `json:"channel"`
	TS      string `json:"ts"`
}

// ReactionEvent is the inner event of reaction_added and reaction_removed.
type ReactionEvent struct {
	Type     string       `json:"type"`
	User     string       `json:"user"`
	Reaction string       `json:"reaction"`
	ItemUser string       `json:"item_user"`
	Item     ReactionItem `json:"item"`
	EventTS  string       `json:"event_ts"`
}

func (e ReactionEvent) Added() bool {
	return e.Type == EventReactionAdded
}

func (e ReactionEvent) IsReaction() bool {
	return e.Type == EventReactionAdded || e.Type == EventReactionRemoved
}
