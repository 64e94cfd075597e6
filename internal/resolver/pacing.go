package resolver

import (
	"context"
	"time"
)

// skipBreakThreshold is the number of consecutive unresolved citations that
// trips the circuit breaker outside agency-only mode, protecting third-party
// outlets when nothing is resolving.
const skipBreakThreshold = 25

// pauseController abstracts how the loop backs off between citations.
type pauseController interface {
	Pause(ctx context.Context, delay time.Duration)
}

type timerPauseController struct{}

func (timerPauseController) Pause(ctx context.Context, delay time.Duration) {
	if delay <= 0 {
		return
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// skipStreak counts consecutive skips within one invocation. It is plain
// loop state threaded through the orchestrator, not shared across runs.
type skipStreak struct {
	count     int
	threshold int
}

func newSkipStreak(threshold int) *skipStreak {
	if threshold <= 0 {
		threshold = skipBreakThreshold
	}
	return &skipStreak{threshold: threshold}
}

// observeSkip increments the counter and reports whether the breaker
// tripped.
func (s *skipStreak) observeSkip() bool {
	s.count++
	return s.count >= s.threshold
}

func (s *skipStreak) reset() {
	s.count = 0
}
