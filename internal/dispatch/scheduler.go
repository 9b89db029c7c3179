// Package dispatch paces and executes bulk gateway sends. Delivery is
// sequential on purpose: the gateway's account protection reacts to cadence,
// so pacing, not throughput, is the correctness requirement here.
package dispatch

import (
	"math/rand"
	"time"

	"github.com/lamisoft/wadispatch/internal/domain"
)

const (
	// minSpacingMillis is the gateway's documented minimum interval between
	// sends once account protection is active. Configured values below it
	// are raised to it.
	minSpacingMillis = 5000

	// defaultJitterMillis keeps spacing from being perfectly periodic when
	// no jitter is configured.
	defaultJitterMillis = 500
)

// Scheduler computes the randomized per-message delay and the periodic
// batch-pause duration for one batch call.
type Scheduler struct {
	baseMillis   int
	jitterMillis int
	batchSize    int
	pauseMillis  int
	randIntn     func(n int) int
}

func NewScheduler(settings domain.Settings) *Scheduler {
	return &Scheduler{
		baseMillis:   settings.MessageDelayMillis,
		jitterMillis: settings.MessageJitterMillis,
		batchSize:    settings.BatchSize,
		pauseMillis:  settings.BatchPauseMillis,
		randIntn:     rand.Intn,
	}
}

// NextDelay returns a uniformly random delay in
// [effective base, effective base + effective jitter].
func (s *Scheduler) NextDelay() time.Duration {
	base := s.baseMillis
	if base < minSpacingMillis {
		base = minSpacingMillis
	}

	jitter := s.jitterMillis
	if jitter <= 0 {
		jitter = defaultJitterMillis
	}

	return time.Duration(base+s.randIntn(jitter+1)) * time.Millisecond
}

// ShouldPause reports whether the batch pause is due after the send with the
// given 1-based absolute index. The index is absolute (start offset plus
// in-call position) so a resumed batch keeps the cadence of an uninterrupted
// run.
func (s *Scheduler) ShouldPause(absoluteIndex int) bool {
	if s.batchSize <= 0 {
		return false
	}
	return absoluteIndex%s.batchSize == 0
}

// PauseDuration returns the batch-pause length, floored to the mandated
// minimum spacing.
func (s *Scheduler) PauseDuration() time.Duration {
	pause := s.pauseMillis
	if pause < minSpacingMillis {
		pause = minSpacingMillis
	}
	return time.Duration(pause) * time.Millisecond
}
