package voice

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// pcmSeconds builds a downstream PCM16 payload of the given play time.
func pcmSeconds(seconds float64) []byte {
	return make([]byte, int(seconds*DownstreamSampleRate*bytesPerSample))
}

func TestChunkDuration(t *testing.T) {
	require.Equal(t, time.Second, ChunkDuration(DownstreamSampleRate*bytesPerSample))
	require.Equal(t, 500*time.Millisecond, ChunkDuration(DownstreamSampleRate))
	require.Equal(t, time.Duration(0), ChunkDuration(0))
}

func TestSchedulerGaplessTimeline(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := base
	sched := NewScheduler(func() time.Time { return clock })

	first := sched.Schedule(pcmSeconds(1.0))
	second := sched.Schedule(pcmSeconds(0.5))
	third := sched.Schedule(pcmSeconds(2.0))

	// With the clock frozen, each chunk starts exactly where the previous
	// one ends and starts never decrease.
	require.Equal(t, base, first.Start)
	require.Equal(t, first.Start.Add(first.Duration), second.Start)
	require.Equal(t, second.Start.Add(second.Duration), third.Start)
	require.False(t, second.Start.Before(first.Start))
	require.False(t, third.Start.Before(second.Start))

	require.Equal(t, third.Start.Add(third.Duration), sched.Watermark())
	require.Equal(t, 3, sched.Pending())
}

func TestSchedulerNeverStartsInThePast(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := base
	sched := NewScheduler(func() time.Time { return clock })

	sched.Schedule(pcmSeconds(1.0))

	// The clock jumps well past the watermark; the next chunk must start
	// at the clock, not on the stale timeline.
	clock = base.Add(10 * time.Second)
	late := sched.Schedule(pcmSeconds(0.5))
	require.Equal(t, clock, late.Start)
	require.Equal(t, clock.Add(500*time.Millisecond), sched.Watermark())
}

func TestSchedulerComplete(t *testing.T) {
	sched := NewScheduler(nil)

	a := sched.Schedule(pcmSeconds(0.5))
	b := sched.Schedule(pcmSeconds(0.5))
	require.Equal(t, 2, sched.Pending())

	sched.Complete(a.ID)
	require.Equal(t, 1, sched.Pending())

	// Completing twice or completing an unknown id is harmless.
	sched.Complete(a.ID)
	sched.Complete(999)
	require.Equal(t, 1, sched.Pending())

	sched.Complete(b.ID)
	require.Equal(t, 0, sched.Pending())
}

func TestSchedulerInterrupt(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := base
	sched := NewScheduler(func() time.Time { return clock })

	sched.Schedule(pcmSeconds(1.0))
	sched.Schedule(pcmSeconds(1.0))

	cancelled := sched.Interrupt()
	require.Len(t, cancelled, 2)
	require.Equal(t, 0, sched.Pending())
	require.True(t, sched.Watermark().IsZero())

	// After the reset the timeline restarts at the clock, so the caller
	// hears the reply immediately instead of after the cancelled backlog.
	clock = base.Add(3 * time.Second)
	next := sched.Schedule(pcmSeconds(0.5))
	require.Equal(t, clock, next.Start)
}
