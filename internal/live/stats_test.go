package live

import (
	"math"
	"testing"
	"time"

	"live-app/internal/models"

	"github.com/stretchr/testify/require"
)

func TestApply_Counters(t *testing.T) {
	req := require.New(t)
	var s models.Stats

	s = Apply(s, ViewerJoined{})
	s = Apply(s, LikeReceived{})
	s = Apply(s, GiftReceived{Price: 10})
	s = Apply(s, GiftReceived{Price: 0})
	s = Apply(s, CommentPosted{})

	req.Equal(models.Stats{Viewers: 1, Likes: 1, Gifts: 2, Revenue: 10, Comments: 1}, s)
}

func TestApply_ViewersNeverNegative(t *testing.T) {
	s := Apply(models.Stats{}, ViewerLeft{})
	s = Apply(s, ViewerLeft{})

	require.Equal(t, int64(0), s.Viewers)
}

func TestApply_DurationOnlyMovesForward(t *testing.T) {
	req := require.New(t)

	s := Apply(models.Stats{}, Elapsed{Since: 7500 * time.Millisecond})
	req.Equal(int64(7), s.DurationSeconds)

	s = Apply(s, Elapsed{Since: 3 * time.Second})
	req.Equal(int64(7), s.DurationSeconds)
}

func TestApply_Monotonic(t *testing.T) {
	events := []StatEvent{
		LikeReceived{}, GiftReceived{Price: 5}, ViewerJoined{}, CommentPosted{},
		ViewerLeft{}, ViewerLeft{}, GiftReceived{Price: 1}, Elapsed{Since: time.Minute},
	}
	var prev models.Stats
	for _, e := range events {
		next := Apply(prev, e)
		require.GreaterOrEqual(t, next.Likes, prev.Likes)
		require.GreaterOrEqual(t, next.Gifts, prev.Gifts)
		require.GreaterOrEqual(t, next.Revenue, prev.Revenue)
		require.GreaterOrEqual(t, next.Comments, prev.Comments)
		require.GreaterOrEqual(t, next.DurationSeconds, prev.DurationSeconds)
		require.GreaterOrEqual(t, next.Viewers, int64(0))
		prev = next
	}
}

func TestApply_RevenueHoldsAtMaximum(t *testing.T) {
	req := require.New(t)

	s := Apply(models.Stats{Revenue: math.MaxInt64 - 5}, GiftReceived{Price: 10})
	req.Equal(int64(math.MaxInt64), s.Revenue)
	req.Equal(int64(1), s.Gifts)

	s = Apply(s, GiftReceived{Price: math.MaxInt64})
	req.Equal(int64(math.MaxInt64), s.Revenue)
}
