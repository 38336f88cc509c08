package voice

import (
	"sync"
	"time"
)

// Chunk is one scheduled piece of model speech. Start is absolute: the
// moment the sink should begin playing it.
type Chunk struct {
	ID       uint64
	Start    time.Time
	Duration time.Duration
	Data     []byte
}

// ChunkDuration converts a downstream PCM16 payload length to play time.
func ChunkDuration(n int) time.Duration {
	return time.Duration(n) * time.Second / (DownstreamSampleRate * bytesPerSample)
}

// Scheduler lines model audio chunks up on a gapless timeline. A watermark
// tracks where the timeline ends; each chunk starts at the later of the
// watermark and the current clock, then pushes the watermark forward by its
// own duration. Chunks never overlap and never start in the past.
type Scheduler struct {
	mu        sync.Mutex
	now       func() time.Time
	watermark time.Time
	pending   map[uint64]Chunk
	nextID    uint64
}

// NewScheduler builds a scheduler on the given clock. A nil clock means
// time.Now.
func NewScheduler(now func() time.Time) *Scheduler {
	if now == nil {
		now = time.Now
	}
	return &Scheduler{
		now:     now,
		pending: make(map[uint64]Chunk),
	}
}

// Schedule assigns the next free slot on the timeline to the given audio
// and registers the chunk as pending until Complete or Interrupt.
func (s *Scheduler) Schedule(data []byte) Chunk {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := s.watermark
	if current := s.now(); start.Before(current) {
		start = current
	}

	duration := ChunkDuration(len(data))
	s.watermark = start.Add(duration)

	s.nextID++
	chunk := Chunk{
		ID:       s.nextID,
		Start:    start,
		Duration: duration,
		Data:     data,
	}
	s.pending[chunk.ID] = chunk
	return chunk
}

// Complete drops a chunk the sink finished playing.
func (s *Scheduler) Complete(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, id)
}

// Interrupt cancels everything still scheduled and rewinds the watermark so
// the next chunk starts immediately. It returns the cancelled chunks so the
// sink can stop them.
func (s *Scheduler) Interrupt() []Chunk {
	s.mu.Lock()
	defer s.mu.Unlock()

	cancelled := make([]Chunk, 0, len(s.pending))
	for _, chunk := range s.pending {
		cancelled = append(cancelled, chunk)
	}
	s.pending = make(map[uint64]Chunk)
	s.watermark = time.Time{}
	return cancelled
}

// Pending reports how many chunks are scheduled but not yet finished.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Watermark reports where the timeline currently ends.
func (s *Scheduler) Watermark() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.watermark
}
