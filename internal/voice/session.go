package voice

import (
	"context"
	"strings"
	"sync"

	"unidata/survey-platform-backend/internal"
	"unidata/survey-platform-backend/internal/chat"
	"unidata/survey-platform-backend/internal/interpreter"
	"unidata/survey-platform-backend/internal/survey"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateListening    State = "listening"
	StateSpeaking     State = "speaking"
)

// VoiceEditPrefix marks transcript entries produced by a spoken edit.
const VoiceEditPrefix = "[VOICE EDIT] "

// Sink receives scheduled model audio on behalf of the caller's device.
type Sink interface {
	Play(chunk Chunk) error
	StopAll()
}

// Session drives one realtime voice conversation against one draft. A
// single pump goroutine consumes stream events in wire order, so draft
// mutations and their acks never race each other.
type Session struct {
	id     uuid.UUID
	logger *zap.Logger

	dialer Dialer
	brief  interpreter.Brief
	draft  *survey.Draft
	sched  *Scheduler
	sink   Sink

	mu         sync.Mutex
	state      State
	stream     Stream
	partial    strings.Builder
	transcript []chat.Entry

	group  *errgroup.Group
	cancel context.CancelFunc

	done     chan struct{}
	doneOnce sync.Once
}

func NewSession(logger *zap.Logger, dialer Dialer, brief interpreter.Brief, draft *survey.Draft, sink Sink) *Session {
	return &Session{
		id:     uuid.New(),
		logger: logger,
		dialer: dialer,
		brief:  brief,
		draft:  draft,
		sched:  NewScheduler(nil),
		sink:   sink,
		state:  StateDisconnected,
		done:   make(chan struct{}),
	}
}

// Done closes once the session has reached disconnected for good, whether
// by Stop or by the upstream link dying.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) signalDone() {
	s.doneOnce.Do(func() { close(s.done) })
}

func (s *Session) ID() uuid.UUID {
	return s.id
}

func (s *Session) Draft() *survey.Draft {
	return s.draft
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Transcript() []chat.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]chat.Entry(nil), s.transcript...)
}

// Start dials the live endpoint and begins pumping events. A failed dial
// puts the session straight back to disconnected.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateDisconnected {
		s.mu.Unlock()
		return internal.ErrAlreadyConnecting
	}
	s.state = StateConnecting
	s.mu.Unlock()

	stream, err := s.dialer.Dial(ctx, s.brief)
	if err != nil {
		s.mu.Lock()
		s.state = StateDisconnected
		s.mu.Unlock()
		s.logger.Warn("voice session failed to connect",
			zap.String("session_id", s.id.String()),
			zap.Error(err),
		)
		return err
	}

	pumpCtx, cancel := context.WithCancel(context.Background())
	group, pumpCtx := errgroup.WithContext(pumpCtx)

	s.mu.Lock()
	s.stream = stream
	s.state = StateListening
	s.group = group
	s.cancel = cancel
	s.mu.Unlock()

	group.Go(func() error {
		s.pump(pumpCtx, stream)
		return nil
	})

	s.logger.Info("Voice session connected", zap.String("session_id", s.id.String()))
	return nil
}

// SendAudio forwards one mic frame upstream. Frames sent while the session
// is not connected are rejected, not buffered.
func (s *Session) SendAudio(frame []byte) error {
	s.mu.Lock()
	stream := s.stream
	connected := s.state == StateListening || s.state == StateSpeaking
	s.mu.Unlock()

	if !connected || stream == nil {
		return internal.ErrStreamClosed
	}
	return stream.SendAudio(frame)
}

// CompleteChunk records that the caller's device finished playing a chunk.
func (s *Session) CompleteChunk(id uint64) {
	s.sched.Complete(id)
}

// Stop tears the session down. Draft changes already applied stay applied.
// Safe to call more than once.
func (s *Session) Stop() {
	s.mu.Lock()
	if s.state == StateDisconnected {
		s.mu.Unlock()
		return
	}
	stream := s.stream
	group := s.group
	cancel := s.cancel
	s.state = StateDisconnected
	s.stream = nil
	s.partial.Reset()
	s.mu.Unlock()

	s.sched.Interrupt()
	s.sink.StopAll()

	if stream != nil {
		_ = stream.Close()
	}
	if cancel != nil {
		cancel()
	}
	if group != nil {
		_ = group.Wait()
	}
	s.signalDone()

	s.logger.Info("Voice session stopped", zap.String("session_id", s.id.String()))
}

func (s *Session) pump(ctx context.Context, stream Stream) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-stream.Events():
			if !ok {
				s.mu.Lock()
				if s.state != StateDisconnected {
					s.state = StateDisconnected
				}
				s.mu.Unlock()
				s.signalDone()
				return
			}
			s.handle(ev, stream)
		}
	}
}

func (s *Session) handle(ev Event, stream Stream) {
	switch ev.Type {
	case EventTranscription:
		s.mu.Lock()
		s.partial.WriteString(ev.Text)
		s.mu.Unlock()

	case EventAudio:
		s.mu.Lock()
		if s.state == StateListening {
			s.state = StateSpeaking
		}
		s.mu.Unlock()

		chunk := s.sched.Schedule(ev.Audio)
		if err := s.sink.Play(chunk); err != nil {
			s.logger.Warn("audio sink rejected chunk",
				zap.String("session_id", s.id.String()),
				zap.Uint64("chunk_id", chunk.ID),
				zap.Error(err),
			)
		}

	case EventToolCall:
		s.handleToolCall(ev.Tool, stream)

	case EventTurnComplete:
		s.mu.Lock()
		if text := strings.TrimSpace(s.partial.String()); text != "" {
			s.transcript = append(s.transcript, chat.Entry{Role: chat.RoleUser, Text: text})
		}
		s.partial.Reset()
		if s.state == StateSpeaking {
			s.state = StateListening
		}
		s.mu.Unlock()

	case EventInterrupted:
		cancelled := s.sched.Interrupt()
		s.sink.StopAll()

		s.mu.Lock()
		if s.state == StateSpeaking {
			s.state = StateListening
		}
		s.mu.Unlock()

		s.logger.Info("Caller interrupted playback",
			zap.String("session_id", s.id.String()),
			zap.Int("cancelled_chunks", len(cancelled)),
		)
	}
}

// handleToolCall dispatches a draft mutation and acks it on the stream so
// the model can keep talking. The ack goes out even when the referenced
// question no longer exists; the stale edit is just dropped.
func (s *Session) handleToolCall(call *ToolCall, stream Stream) {
	if call == nil {
		return
	}
	if call.Name != interpreter.ToolUpdateQuestion {
		s.logger.Warn("ignoring unknown tool call",
			zap.String("session_id", s.id.String()),
			zap.String("tool", call.Name),
		)
		return
	}

	cmd, err := interpreter.DecodeUpdateCommand(call.Args)
	if err != nil {
		s.logger.Warn("dropping malformed tool call",
			zap.String("session_id", s.id.String()),
			zap.Error(err),
		)
		return
	}

	if !s.draft.ApplyUpdate(cmd) {
		s.logger.Warn("voice edit referenced question outside the draft",
			zap.String("session_id", s.id.String()),
			zap.Int("index", cmd.Index),
		)
	} else if cmd.Text != nil {
		s.mu.Lock()
		s.transcript = append(s.transcript, chat.Entry{
			Role: chat.RoleAssistant,
			Text: VoiceEditPrefix + *cmd.Text,
		})
		s.mu.Unlock()
	}

	if err := stream.SendToolResponse(call.ID, call.Name, interpreter.ToolResponseResult); err != nil {
		s.logger.Warn("failed to ack tool call",
			zap.String("session_id", s.id.String()),
			zap.Error(err),
		)
	}
}
