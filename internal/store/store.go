// Package store defines the keyed, TTL-backed state store that holds every
// in-flight skip vote. Implementations live in the redisstore and memstore
// subpackages.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwise1/skipvote_bot/internal/model"
)

// ErrNotFound is returned when a key does not exist or has expired. Any other
// error returned by a Store is an infrastructure fault.
var ErrNotFound = errors.New("store: key not found")

const (
	votePrefix      = "skipvote"
	voteUsersPrefix = "skipvote-users"
)

// Store is a key/value and key/set store with per-key expiry. Writing a key
// with a TTL refreshes that key's TTL.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// CompareAndSwap replaces key with next only if its current value equals
	// prev. It reports false, with no error, if the key changed or is gone.
	CompareAndSwap(ctx context.Context, key string, prev, next []byte, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, keys ...string) error
	Expire(ctx context.Context, key string, ttl time.Duration) error

	AddMember(ctx context.Context, key, member string, ttl time.Duration) error
	RemoveMember(ctx context.Context, key, member string) error
	Cardinality(ctx context.Context, key string) (int64, error)
	Members(ctx context.Context, key string) ([]string, error)

	// ScanPrefix lists live keys that start with prefix. It is read-only.
	ScanPrefix(ctx context.Context, prefix string) ([]string, error)

	Ping(ctx context.Context) error
	Close() error
}

// VoteKey is the metadata key of a vote: skipvote:<tenant>:<channel>:<id>.
func VoteKey(tenant, channel, voteID string) string {
	return fmt.Sprintf("%s:%s:%s:%s", votePrefix, tenant, channel, voteID)
}

// ChannelVotePrefix matches every vote metadata key of one channel.
func ChannelVotePrefix(tenant, channel string) string {
	return fmt.Sprintf("%s:%s:%s:", votePrefix, tenant, channel)
}

// VotersKey is the membership set of one polarity:
// skipvote-users:<tenant>:<voteId>:<polarity>.
func VotersKey(tenant, voteID string, p model.Polarity) string {
	return fmt.Sprintf("%s:%s:%s:%s", voteUsersPrefix, tenant, voteID, p)
}

// VoteIDFromKey returns the trailing id segment of a vote metadata key.
func VoteIDFromKey(key string) string {
	i := strings.LastIndexByte(key, ':')
	if i < 0 {
		return key
	}
	return key[i+1:]
}
