package vote

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwise1/skipvote_bot/internal/model"
	"github.com/bwise1/skipvote_bot/internal/store"
	"github.com/bwise1/skipvote_bot/internal/store/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type fakeAnnouncer struct {
	mu    sync.Mutex
	posts []string
	err   error
}

func (f *fakeAnnouncer) Post(_ context.Context, _, _, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.posts = append(f.posts, text)
	return fmt.Sprintf("1712345678.%06d", len(f.posts)), nil
}

func (f *fakeAnnouncer) Posts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.posts...)
}

type fakeSkipper struct {
	calls atomic.Int32
	err   error
}

func (f *fakeSkipper) SkipCurrentTrack(context.Context, string, string) error {
	f.calls.Add(1)
	return f.err
}

// flakyStore fails every call while down is set.
type flakyStore struct {
	store.Store
	down atomic.Bool
}

var errConnRefused = errors.New("dial tcp 127.0.0.1:6379: connect: connection refused")

func (f *flakyStore) Get(ctx context.Context, key string) ([]byte, error) {
	if f.down.Load() {
		return nil, errConnRefused
	}
	return f.Store.Get(ctx, key)
}

func (f *flakyStore) AddMember(ctx context.Context, key, member string, ttl time.Duration) error {
	if f.down.Load() {
		return errConnRefused
	}
	return f.Store.AddMember(ctx, key, member, ttl)
}

func (f *flakyStore) ScanPrefix(ctx context.Context, prefix string) ([]string, error) {
	if f.down.Load() {
		return nil, errConnRefused
	}
	return f.Store.ScanPrefix(ctx, prefix)
}

// losingStore never wins a compare-and-swap, as if another writer always got
// there first.
type losingStore struct {
	store.Store
}

func (losingStore) CompareAndSwap(context.Context, string, []byte, []byte, time.Duration) (bool, error) {
	return false, nil
}

type fixture struct {
	store     *memstore.Store
	announcer *fakeAnnouncer
	skipper   *fakeSkipper
	votes     *Coordinator
	now       time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		announcer: &fakeAnnouncer{},
		skipper:   &fakeSkipper{},
		now:       time.Date(2025, 4, 5, 14, 30, 0, 0, time.UTC),
	}
	f.store = memstore.NewWithClock(func() time.Time { return f.now })
	f.votes = New(Config{
		Store:     f.store,
		Announcer: f.announcer,
		Skipper:   f.skipper,
		Now:       func() time.Time { return f.now },
	})
	return f
}

var song = model.TrackInfo{Name: "Song", Artist: "Artist"}

func (f *fixture) open(t *testing.T, ref string) model.VoteRecord {
	t.Helper()
	ctx := context.Background()
	rec, err := f.votes.CreateVote(ctx, "T1", "C1", song, "U0")
	require.NoError(t, err)
	rec, err = f.votes.AttachAnnouncement(ctx, rec, ref)
	require.NoError(t, err)
	return rec
}

func (f *fixture) react(t *testing.T, rec model.VoteRecord, user string, p model.Polarity, added bool) {
	t.Helper()
	require.NoError(t, f.votes.ApplyReaction(context.Background(), rec.TenantID, rec.ID, user, p, added))
}

func TestCreateVote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec, err := f.votes.CreateVote(ctx, "T1", "C1", song, "U0")
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.False(t, rec.Resolved)
	assert.Empty(t, rec.AnnouncementRef)
	assert.Equal(t, f.now, rec.CreatedAt)

	tally, err := f.votes.Tally(ctx, "T1", rec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.Tally{}, tally)

	rec, err = f.votes.AttachAnnouncement(ctx, rec, "1712345678.000100")
	require.NoError(t, err)
	assert.Equal(t, "1712345678.000100", rec.AnnouncementRef)

	found, ok, err := f.votes.FindVoteByAnnouncementRef(ctx, "T1", "C1", "1712345678.000100")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, rec, found)
}

func TestAttachAnnouncementExpiredVote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec, err := f.votes.CreateVote(ctx, "T1", "C1", song, "U0")
	require.NoError(t, err)
	f.now = f.now.Add(DefaultTTL)

	_, err = f.votes.AttachAnnouncement(ctx, rec, "ts")
	require.ErrorIs(t, err, ErrVoteNotFound)
}

func TestResolveSkipsOnDownMajority(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec := f.open(t, "ts-1")

	f.react(t, rec, "U1", model.Down, true)
	f.react(t, rec, "U2", model.Down, true)
	f.react(t, rec, "U3", model.Up, true)

	out, err := f.votes.Resolve(ctx, "T1", "C1", rec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DecisionSkipped, out.Decision)
	assert.Equal(t, model.Tally{Up: 1, Down: 2}, out.Tally)
	assert.NoError(t, out.SkipErr)
	assert.EqualValues(t, 1, f.skipper.calls.Load())

	posts := f.announcer.Posts()
	require.Len(t, posts, 1)
	assert.Contains(t, posts[0], "Skipped")
	assert.Contains(t, posts[0], "1 :thumbsup: / 2 :thumbsdown:")

	_, err = f.store.Get(ctx, store.VoteKey("T1", "C1", rec.ID))
	assert.ErrorIs(t, err, store.ErrNotFound)

	again, err := f.votes.Resolve(ctx, "T1", "C1", rec.ID)
	require.NoError(t, err)
	assert.True(t, again.Noop())
	assert.EqualValues(t, 1, f.skipper.calls.Load())
	assert.Len(t, f.announcer.Posts(), 1)
}

func TestResolveKeepsOnUpMajority(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec := f.open(t, "ts-1")

	f.react(t, rec, "U1", model.Up, true)
	f.react(t, rec, "U2", model.Up, true)
	f.react(t, rec, "U3", model.Down, true)

	out, err := f.votes.Resolve(ctx, "T1", "C1", rec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DecisionKept, out.Decision)
	assert.Equal(t, model.Tally{Up: 2, Down: 1}, out.Tally)
	assert.Zero(t, f.skipper.calls.Load())

	posts := f.announcer.Posts()
	require.Len(t, posts, 1)
	assert.Contains(t, posts[0], "2 :thumbsup: / 1 :thumbsdown:")
	assert.Contains(t, posts[0], "The track stays")

	again, err := f.votes.Resolve(ctx, "T1", "C1", rec.ID)
	require.NoError(t, err)
	assert.True(t, again.Noop())
	assert.Len(t, f.announcer.Posts(), 1)
	assert.Zero(t, f.skipper.calls.Load())
}

func TestResolveContendedClaimIsRetryable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec := f.open(t, "ts-1")
	f.react(t, rec, "U1", model.Down, true)

	contended := New(Config{Store: losingStore{Store: f.store}, Announcer: f.announcer, Skipper: f.skipper})
	out, err := contended.Resolve(ctx, "T1", "C1", rec.ID)
	require.ErrorIs(t, err, ErrStoreUnavailable)
	assert.True(t, out.Noop())
	assert.Zero(t, f.skipper.calls.Load())
	assert.Empty(t, f.announcer.Posts())

	data, err := f.store.Get(ctx, store.VoteKey("T1", "C1", rec.ID))
	require.NoError(t, err)
	stored, err := model.UnmarshalVoteRecord(data)
	require.NoError(t, err)
	assert.False(t, stored.Resolved)

	out, err = f.votes.Resolve(ctx, "T1", "C1", rec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DecisionSkipped, out.Decision)
	assert.EqualValues(t, 1, f.skipper.calls.Load())
}

func TestResolveUnreadableRecordIsRetryable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Set(ctx, store.VoteKey("T1", "C1", "broken1"), []byte("{not json"), time.Minute))

	_, err := f.votes.Resolve(ctx, "T1", "C1", "broken1")
	require.ErrorIs(t, err, ErrStoreUnavailable)
	assert.Zero(t, f.skipper.calls.Load())
	assert.Empty(t, f.announcer.Posts())
}

func TestResolveWithdrawnReactionKeepsTrack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec := f.open(t, "ts-1")

	f.react(t, rec, "U1", model.Down, true)
	f.react(t, rec, "U1", model.Down, false)

	out, err := f.votes.Resolve(ctx, "T1", "C1", rec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DecisionKept, out.Decision)
	assert.Equal(t, model.Tally{}, out.Tally)
	assert.Zero(t, f.skipper.calls.Load())

	posts := f.announcer.Posts()
	require.Len(t, posts, 1)
	assert.Contains(t, posts[0], "The track stays")
}

func TestDecide(t *testing.T) {
	testCases := []struct {
		name  string
		tally model.Tally
		want  model.Decision
	}{
		{name: "no votes", tally: model.Tally{}, want: model.DecisionKept},
		{name: "tie", tally: model.Tally{Up: 2, Down: 2}, want: model.DecisionKept},
		{name: "up majority", tally: model.Tally{Up: 3, Down: 1}, want: model.DecisionKept},
		{name: "single down", tally: model.Tally{Down: 1}, want: model.DecisionSkipped},
		{name: "down majority", tally: model.Tally{Up: 4, Down: 5}, want: model.DecisionSkipped},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Decide(tc.tally))
		})
	}
}

func TestResolveMissingVoteIsNoop(t *testing.T) {
	f := newFixture(t)

	out, err := f.votes.Resolve(context.Background(), "T1", "C1", "nope")
	require.NoError(t, err)
	assert.True(t, out.Noop())
	assert.Empty(t, f.announcer.Posts())
}

func TestResolveAfterExpiryIsNoop(t *testing.T) {
	f := newFixture(t)
	rec := f.open(t, "ts-1")
	f.react(t, rec, "U1", model.Down, true)

	f.now = f.now.Add(DefaultTTL + time.Second)

	out, err := f.votes.Resolve(context.Background(), "T1", "C1", rec.ID)
	require.NoError(t, err)
	assert.True(t, out.Noop())
	assert.Zero(t, f.skipper.calls.Load())
}

func TestConcurrentResolveActsOnce(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newFixture(t)
	rec := f.open(t, "ts-1")
	f.react(t, rec, "U1", model.Down, true)

	const callers = 16
	var (
		wg      sync.WaitGroup
		actions atomic.Int32
		errs    = make(chan error, callers)
	)
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			out, err := f.votes.Resolve(context.Background(), "T1", "C1", rec.ID)
			if err != nil {
				errs <- err
				return
			}
			if !out.Noop() {
				actions.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.EqualValues(t, 1, actions.Load())
	assert.EqualValues(t, 1, f.skipper.calls.Load())
	assert.Len(t, f.announcer.Posts(), 1)
}

func TestResolveSkipFailureStillCleansUp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.skipper.err = errors.New("spotify: no active device")
	rec := f.open(t, "ts-1")
	f.react(t, rec, "U1", model.Down, true)

	out, err := f.votes.Resolve(ctx, "T1", "C1", rec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DecisionSkipped, out.Decision)
	require.Error(t, out.SkipErr)

	posts := f.announcer.Posts()
	require.Len(t, posts, 1)
	assert.Contains(t, posts[0], "did not go through")

	_, err = f.store.Get(ctx, store.VoteKey("T1", "C1", rec.ID))
	assert.ErrorIs(t, err, store.ErrNotFound)

	again, err := f.votes.Resolve(ctx, "T1", "C1", rec.ID)
	require.NoError(t, err)
	assert.True(t, again.Noop())
	assert.EqualValues(t, 1, f.skipper.calls.Load())
}

func TestResolvePostFailureIsReported(t *testing.T) {
	f := newFixture(t)
	rec := f.open(t, "ts-1")
	f.announcer.err = errors.New("slack: channel_not_found")

	out, err := f.votes.Resolve(context.Background(), "T1", "C1", rec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DecisionKept, out.Decision)
	assert.Error(t, out.PostErr)
}

func TestStoreFaultIsRetryable(t *testing.T) {
	f := newFixture(t)
	flaky := &flakyStore{Store: f.store}
	votes := New(Config{Store: flaky, Announcer: f.announcer, Skipper: f.skipper})
	ctx := context.Background()

	rec, err := votes.CreateVote(ctx, "T1", "C1", song, "U0")
	require.NoError(t, err)
	rec, err = votes.AttachAnnouncement(ctx, rec, "ts-1")
	require.NoError(t, err)
	require.NoError(t, votes.ApplyReaction(ctx, "T1", rec.ID, "U1", model.Down, true))

	flaky.down.Store(true)

	_, err = votes.Resolve(ctx, "T1", "C1", rec.ID)
	require.ErrorIs(t, err, ErrStoreUnavailable)
	var se *StoreError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "resolve", se.Op)

	err = votes.ApplyReaction(ctx, "T1", rec.ID, "U2", model.Down, true)
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	_, _, err = votes.FindVoteByAnnouncementRef(ctx, "T1", "C1", "ts-1")
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	assert.Zero(t, f.skipper.calls.Load())
	assert.Empty(t, f.announcer.Posts())

	flaky.down.Store(false)
	out, err := votes.Resolve(ctx, "T1", "C1", rec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DecisionSkipped, out.Decision)
}

func TestFindVoteByAnnouncementRef(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.open(t, "ts-1")
	second := f.open(t, "ts-2")

	got, ok, err := f.votes.FindVoteByAnnouncementRef(ctx, "T1", "C1", "ts-2")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, second.ID, got.ID)

	_, ok, err = f.votes.FindVoteByAnnouncementRef(ctx, "T1", "C1", "ts-unknown")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = f.votes.FindVoteByAnnouncementRef(ctx, "T1", "C2", "ts-1")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = f.votes.FindVoteByAnnouncementRef(ctx, "T1", "C1", "")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.votes.Resolve(ctx, "T1", "C1", first.ID)
	require.NoError(t, err)
	_, ok, err = f.votes.FindVoteByAnnouncementRef(ctx, "T1", "C1", "ts-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFindIgnoresResolvedRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec := f.open(t, "ts-1")

	rec.Resolved = true
	data, err := rec.Marshal()
	require.NoError(t, err)
	require.NoError(t, f.store.Set(ctx, store.VoteKey("T1", "C1", rec.ID), data, time.Minute))

	_, ok, err := f.votes.FindVoteByAnnouncementRef(ctx, "T1", "C1", "ts-1")
	require.NoError(t, err)
	assert.False(t, ok)

	out, err := f.votes.Resolve(ctx, "T1", "C1", rec.ID)
	require.NoError(t, err)
	assert.True(t, out.Noop())
}

func TestApplyReactionRejectsUnknownPolarity(t *testing.T) {
	f := newFixture(t)
	rec := f.open(t, "ts-1")
	err := f.votes.ApplyReaction(context.Background(), "T1", rec.ID, "U1", model.Polarity("sideways"), true)
	assert.ErrorIs(t, err, ErrInvalidPolarity)
}

// Any interleaving of adds and removes leaves the tally equal to the number
// of users whose last event for a polarity was an add.
func TestTallyMatchesLastEventPerUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec := f.open(t, "ts-1")
	rng := rand.New(rand.NewSource(42))

	users := []string{"U1", "U2", "U3", "U4", "U5"}
	polarities := []model.Polarity{model.Up, model.Down}
	want := map[model.Polarity]map[string]bool{model.Up: {}, model.Down: {}}

	for i := 0; i < 200; i++ {
		user := users[rng.Intn(len(users))]
		p := polarities[rng.Intn(len(polarities))]
		added := rng.Intn(2) == 0
		f.react(t, rec, user, p, added)
		want[p][user] = added
	}

	count := func(m map[string]bool) int64 {
		var n int64
		for _, v := range m {
			if v {
				n++
			}
		}
		return n
	}

	tally, err := f.votes.Tally(ctx, "T1", rec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.Tally{Up: count(want[model.Up]), Down: count(want[model.Down])}, tally)
}
