// Package vote runs the skip vote lifecycle: open a vote, count reactions,
// and resolve it once when the delayed trigger fires.
//
// All state lives in the store. The coordinator keeps no mutable state of its
// own and may be called from any number of request handlers at once.
package vote

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/bwise1/skipvote_bot/internal/model"
	"github.com/bwise1/skipvote_bot/internal/store"
	"github.com/lucsky/cuid"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	DefaultTTL = 15 * time.Minute

	// claim attempts before giving up on a record that keeps changing under us
	maxClaimAttempts = 3
)

// Announcer posts text to a channel and returns a reference to the message.
type Announcer interface {
	Post(ctx context.Context, tenant, channel, text string) (string, error)
}

// Skipper tells the music provider bound to a channel to skip the current track.
type Skipper interface {
	SkipCurrentTrack(ctx context.Context, tenant, channel string) error
}

type Config struct {
	Store      store.Store
	Announcer  Announcer
	Skipper    Skipper
	TTL        time.Duration
	Logger     *slog.Logger
	Registerer prometheus.Registerer
	NewID      func() string
	Now        func() time.Time
}

type Coordinator struct {
	store     store.Store
	announcer Announcer
	skipper   Skipper
	ttl       time.Duration
	logger    *slog.Logger
	newID     func() string
	now       func() time.Time
	metrics   *coordinatorMetrics
}

func New(cfg Config) *Coordinator {
	c := &Coordinator{
		store:     cfg.Store,
		announcer: cfg.Announcer,
		skipper:   cfg.Skipper,
		ttl:       cfg.TTL,
		logger:    cfg.Logger,
		newID:     cfg.NewID,
		now:       cfg.Now,
	}
	if c.ttl <= 0 {
		c.ttl = DefaultTTL
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.logger = c.logger.With("component", "vote")
	if c.newID == nil {
		c.newID = cuid.New
	}
	if c.now == nil {
		c.now = time.Now
	}
	c.initMetrics(cfg.Registerer)
	return c
}

func (c *Coordinator) fault(op string, err error) error {
	c.metrics.storeFaults.WithLabelValues(op).Inc()
	return storeErr(op, err)
}

// CreateVote opens a vote with empty voter sets. The caller is expected to
// have checked that the channel has a music session, post the announcement,
// and then call AttachAnnouncement.
func (c *Coordinator) CreateVote(ctx context.Context, tenant, channel string, track model.TrackInfo, requestedBy string) (model.VoteRecord, error) {
	rec := model.VoteRecord{
		ID:          c.newID(),
		TenantID:    tenant,
		ChannelID:   channel,
		TrackName:   track.Name,
		ArtistName:  track.Artist,
		RequestedBy: requestedBy,
		CreatedAt:   c.now().UTC(),
	}
	data, err := rec.Marshal()
	if err != nil {
		return model.VoteRecord{}, err
	}
	if err := c.store.Set(ctx, store.VoteKey(tenant, channel, rec.ID), data, c.ttl); err != nil {
		return model.VoteRecord{}, c.fault("create", err)
	}
	c.metrics.created.Inc()
	c.logger.Info("skip vote created",
		"tenant", tenant,
		"channel", channel,
		"vote_id", rec.ID,
		"track", track.Name,
		"requested_by", requestedBy,
	)
	return rec, nil
}

// AttachAnnouncement records the message reference reactions will arrive on.
// It only writes if the stored record is still the one CreateVote returned.
func (c *Coordinator) AttachAnnouncement(ctx context.Context, rec model.VoteRecord, ref string) (model.VoteRecord, error) {
	key := store.VoteKey(rec.TenantID, rec.ChannelID, rec.ID)
	prev, err := rec.Marshal()
	if err != nil {
		return model.VoteRecord{}, err
	}
	rec.AnnouncementRef = ref
	next, err := rec.Marshal()
	if err != nil {
		return model.VoteRecord{}, err
	}
	ok, err := c.store.CompareAndSwap(ctx, key, prev, next, c.ttl)
	if err != nil {
		return model.VoteRecord{}, c.fault("attach", err)
	}
	if !ok {
		return model.VoteRecord{}, ErrVoteNotFound
	}
	return rec, nil
}

// ApplyReaction adds or removes userID from the polarity set of a vote. It
// never looks at the resolved flag: Resolve freezes the count it acts on, and
// late writes land in sets that expire with the vote.
func (c *Coordinator) ApplyReaction(ctx context.Context, tenant, voteID, userID string, p model.Polarity, added bool) error {
	if !p.Valid() {
		return ErrInvalidPolarity
	}
	key := store.VotersKey(tenant, voteID, p)
	action := "remove"
	if added {
		action = "add"
		if err := c.store.AddMember(ctx, key, userID, c.ttl); err != nil {
			return c.fault("reaction", err)
		}
	} else if err := c.store.RemoveMember(ctx, key, userID); err != nil {
		return c.fault("reaction", err)
	}
	c.metrics.reactions.WithLabelValues(string(p), action).Inc()
	c.logger.Debug("reaction applied",
		"tenant", tenant,
		"vote_id", voteID,
		"user", userID,
		"polarity", p,
		"action", action,
	)
	return nil
}

// FindVoteByAnnouncementRef scans the live votes of a channel for the one
// announced at ref. Few votes are open per channel at a time, so a scan is
// enough. Resolved votes are reported as not found.
func (c *Coordinator) FindVoteByAnnouncementRef(ctx context.Context, tenant, channel, ref string) (model.VoteRecord, bool, error) {
	if ref == "" {
		return model.VoteRecord{}, false, nil
	}
	keys, err := c.store.ScanPrefix(ctx, store.ChannelVotePrefix(tenant, channel))
	if err != nil {
		return model.VoteRecord{}, false, c.fault("find", err)
	}
	for _, key := range keys {
		data, err := c.store.Get(ctx, key)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return model.VoteRecord{}, false, c.fault("find", err)
		}
		rec, err := model.UnmarshalVoteRecord(data)
		if err != nil {
			c.logger.Warn("skipping unreadable vote record", "key", key, "error", err)
			continue
		}
		if rec.AnnouncementRef != ref {
			continue
		}
		if rec.Resolved {
			return model.VoteRecord{}, false, nil
		}
		return rec, true, nil
	}
	return model.VoteRecord{}, false, nil
}

// Tally counts the current members of both voter sets.
func (c *Coordinator) Tally(ctx context.Context, tenant, voteID string) (model.Tally, error) {
	up, err := c.store.Cardinality(ctx, store.VotersKey(tenant, voteID, model.Up))
	if err != nil {
		return model.Tally{}, c.fault("tally", err)
	}
	down, err := c.store.Cardinality(ctx, store.VotersKey(tenant, voteID, model.Down))
	if err != nil {
		return model.Tally{}, c.fault("tally", err)
	}
	return model.Tally{Up: up, Down: down}, nil
}

// Resolve tallies a vote and acts on it. It is safe to call any number of
// times, concurrently, for the same vote: only the caller that flips the
// stored record from unresolved to resolved performs the skip and posts the
// result. Everyone else gets a noop outcome.
//
// A missing vote is a noop, not an error. A store fault or unreadable record
// before the claim, or a claim that keeps losing to writes on a still
// unresolved record, is returned as ErrStoreUnavailable so the trigger can
// redeliver.
func (c *Coordinator) Resolve(ctx context.Context, tenant, channel, voteID string) (model.Outcome, error) {
	noop := model.Outcome{VoteID: voteID, Decision: model.DecisionNoop}
	key := store.VoteKey(tenant, channel, voteID)
	logger := c.logger.With("tenant", tenant, "channel", channel, "vote_id", voteID)

	var (
		rec   model.VoteRecord
		tally model.Tally
	)
	claimed := false
	for attempt := 0; attempt < maxClaimAttempts && !claimed; attempt++ {
		data, err := c.store.Get(ctx, key)
		if errors.Is(err, store.ErrNotFound) {
			c.metrics.duplicateResolves.Inc()
			logger.Info("vote already gone, nothing to resolve")
			return noop, nil
		}
		if err != nil {
			return noop, c.fault("resolve", err)
		}
		rec, err = model.UnmarshalVoteRecord(data)
		if err != nil {
			return noop, c.fault("resolve", err)
		}
		if rec.Resolved {
			c.metrics.duplicateResolves.Inc()
			logger.Info("vote already resolved")
			return noop, nil
		}

		tally, err = c.Tally(ctx, tenant, voteID)
		if err != nil {
			return noop, err
		}

		rec.Resolved = true
		next, err := rec.Marshal()
		if err != nil {
			return noop, err
		}
		claimed, err = c.store.CompareAndSwap(ctx, key, data, next, c.ttl)
		if err != nil {
			return noop, c.fault("resolve", err)
		}
	}
	if !claimed {
		// still unresolved; let the trigger redeliver
		logger.Warn("could not claim vote for resolution", "attempts", maxClaimAttempts)
		return noop, c.fault("resolve", errClaimContended)
	}

	out := model.Outcome{
		VoteID:   voteID,
		Decision: Decide(tally),
		Tally:    tally,
		Track:    rec.TrackName,
		Artist:   rec.ArtistName,
	}

	if out.Decision == model.DecisionSkipped {
		if err := c.skipper.SkipCurrentTrack(ctx, tenant, channel); err != nil {
			out.SkipErr = err
			c.metrics.skipFailures.Inc()
			logger.Error("skip command failed", "error", err)
		}
	}

	if _, err := c.announcer.Post(ctx, tenant, channel, OutcomeText(out)); err != nil {
		out.PostErr = err
		logger.Error("posting vote outcome failed", "error", err)
	}

	if err := c.store.Delete(ctx,
		key,
		store.VotersKey(tenant, voteID, model.Up),
		store.VotersKey(tenant, voteID, model.Down),
	); err != nil {
		// the record is flagged resolved and expires on its own
		c.metrics.storeFaults.WithLabelValues("cleanup").Inc()
		logger.Warn("deleting resolved vote failed", "error", err)
	}

	c.metrics.resolutions.WithLabelValues(string(out.Decision)).Inc()
	logger.Info("skip vote resolved",
		"decision", out.Decision,
		"up", tally.Up,
		"down", tally.Down,
	)
	return out, nil
}

// Decide applies the vote rule: skip only on a strict majority of down votes.
// A tie, including 0-0, keeps the track.
func Decide(t model.Tally) model.Decision {
	if t.Down > t.Up {
		return model.DecisionSkipped
	}
	return model.DecisionKept
}
