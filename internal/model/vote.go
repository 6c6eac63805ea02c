package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Polarity is the direction of a reaction vote.
type Polarity string

const (
	Up   Polarity = "up"
	Down Polarity = "down"
)

func (p Polarity) Valid() bool {
	return p == Up || p == Down
}

// TrackInfo describes the track a skip vote is about.
type TrackInfo struct {
	Name   string `json:"name"`
	Artist string `json:"artist"`
	URI    string `json:"uri,omitempty"`
}

// VoteRecord is the metadata of one in-flight skip vote. Voters are kept in
// separate set keys and are not part of the serialized record.
type VoteRecord struct {
	ID              string    `json:"id"`
	TenantID        string    `json:"tenant_id"`
	ChannelID       string    `json:"channel_id"`
	TrackName       string    `json:"track_name"`
	ArtistName      string    `json:"artist_name"`
	RequestedBy     string    `json:"requested_by"`
	AnnouncementRef string    `json:"announcement_ref,omitempty"`
	Resolved        bool      `json:"resolved"`
	CreatedAt       time.Time `json:"created_at"`
}

func (v VoteRecord) Marshal() ([]byte, error) {
	return json.Marshal(v)
}

func UnmarshalVoteRecord(data []byte) (VoteRecord, error) {
	var rec VoteRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return VoteRecord{}, fmt.Errorf("decoding vote record: %w", err)
	}
	if rec.ID == "" {
		return VoteRecord{}, fmt.Errorf("decoding vote record: missing id")
	}
	return rec, nil
}

// Tally is a frozen count of both polarities.
type Tally struct {
	Up   int64 `json:"up"`
	Down int64 `json:"down"`
}

// Decision is what a resolved vote did to the track.
type Decision string

const (
	DecisionNoop    Decision = "noop"
	DecisionKept    Decision = "kept"
	DecisionSkipped Decision = "skipped"
)

// Outcome is the result of resolving a vote. A noop outcome carries no tally.
type Outcome struct {
	VoteID   string   `json:"vote_id"`
	Decision Decision `json:"decision"`
	Tally    Tally    `json:"tally"`
	Track    string   `json:"track,omitempty"`
	Artist   string   `json:"artist,omitempty"`
	SkipErr  error    `json:"-"`
	PostErr  error    `json:"-"`
}

func (o Outcome) Noop() bool {
	return o.Decision == DecisionNoop
}
