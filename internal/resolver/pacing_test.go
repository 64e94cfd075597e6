package resolver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSkipStreakTripsAtThreshold(t *testing.T) {
	t.Parallel()

	streak := newSkipStreak(3)
	require.False(t, streak.observeSkip())
	require.False(t, streak.observeSkip())
	require.True(t, streak.observeSkip())
}

func TestSkipStreakResetsOnSuccess(t *testing.T) {
	t.Parallel()

	streak := newSkipStreak(2)
	require.False(t, streak.observeSkip())
	streak.reset()
	require.False(t, streak.observeSkip())
	require.True(t, streak.observeSkip())
}

func TestSkipStreakDefaultThreshold(t *testing.T) {
	t.Parallel()

	streak := newSkipStreak(0)
	for i := 0; i < skipBreakThreshold-1; i++ {
		require.False(t, streak.observeSkip())
	}
	require.True(t, streak.observeSkip())
}

func TestTimerPauseControllerZeroDelay(t *testing.T) {
	t.Parallel()

	start := time.Now()
	timerPauseController{}.Pause(context.Background(), 0)
	require.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestTimerPauseControllerHonorsCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	timerPauseController{}.Pause(ctx, time.Minute)
	require.Less(t, time.Since(start), time.Second)
}
