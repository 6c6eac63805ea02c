package vote

import (
	"fmt"
	"time"

	"github.com/bwise1/skipvote_bot/internal/model"
)

func AnnouncementText(rec model.VoteRecord, window time.Duration) string {
	return fmt.Sprintf(
		"<@%s> wants to skip *%s* by %s.\nReact with :thumbsup: to keep it or :thumbsdown: to skip it. Voting closes in %d seconds.",
		rec.RequestedBy, rec.TrackName, rec.ArtistName, int(window.Round(time.Second).Seconds()),
	)
}

func OutcomeText(out model.Outcome) string {
	tally := fmt.Sprintf("%d :thumbsup: / %d :thumbsdown:", out.Tally.Up, out.Tally.Down)
	switch {
	case out.Decision == model.DecisionSkipped && out.SkipErr != nil:
		return fmt.Sprintf("Vote on *%s* by %s finished (%s). The room voted to skip, but the skip did not go through.", out.Track, out.Artist, tally)
	case out.Decision == model.DecisionSkipped:
		return fmt.Sprintf("Vote on *%s* by %s finished (%s). Skipped.", out.Track, out.Artist, tally)
	default:
		return fmt.Sprintf("Vote on *%s* by %s finished (%s). The track stays.", out.Track, out.Artist, tally)
	}
}
