package live

import (
	"math"
	"time"

	"live-app/internal/models"
)

// StatEvent is an input to the stats aggregator.
type StatEvent interface {
	statEvent()
}

type (
	ViewerJoined  struct{}
	ViewerLeft    struct{}
	LikeReceived  struct{}
	GiftReceived  struct{ Price int64 }
	CommentPosted struct{}
	// Elapsed reports room lifetime. Duration only ever moves forward.
	Elapsed struct{ Since time.Duration }
)

func (ViewerJoined) statEvent()  {}
func (ViewerLeft) statEvent()    {}
func (LikeReceived) statEvent()  {}
func (GiftReceived) statEvent()  {}
func (CommentPosted) statEvent() {}
func (Elapsed) statEvent()       {}

// Apply folds one event into a snapshot. Viewers never go below zero and
// every other counter is monotonic.
func Apply(s models.Stats, e StatEvent) models.Stats {
	switch e := e.(type) {
	case ViewerJoined:
		s.Viewers++
	case ViewerLeft:
		if s.Viewers > 0 {
			s.Viewers--
		}
	case LikeReceived:
		s.Likes++
	case GiftReceived:
		s.Gifts++
		if e.Price > 0 {
			s.Revenue = addCapped(s.Revenue, e.Price)
		}
	case CommentPosted:
		s.Comments++
	case Elapsed:
		if secs := int64(e.Since / time.Second); secs > s.DurationSeconds {
			s.DurationSeconds = secs
		}
	}
	return s
}

// addCapped adds a non-negative delta to a running total, holding at
// math.MaxInt64 instead of wrapping.
func addCapped(total, delta int64) int64 {
	if delta > math.MaxInt64-total {
		return math.MaxInt64
	}
	return total + delta
}
