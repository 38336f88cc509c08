package chat

import (
	"context"
	"sync"
	"time"

	"unidata/survey-platform-backend/internal"
	"unidata/survey-platform-backend/internal/interpreter"
	"unidata/survey-platform-backend/internal/survey"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type State string

const (
	StateIdle             State = "idle"
	StateAwaitingResponse State = "awaiting_response"
	StateClosed           State = "closed"
)

const (
	// GreetingText opens every session transcript.
	GreetingText = "Hello! I'm Dr. Unidata. I'm monitoring your research draft. You can type or speak to me to refine your methodology!"

	// FallbackAssistantText stands in when a turn applied changes but the
	// model sent no prose.
	FallbackAssistantText = "Applied changes to your survey draft."

	// ErrorAssistantText is the fixed transcript entry for a failed turn.
	ErrorAssistantText = "Error syncing with AI. Please try again."
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "model"
)

type Entry struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

const turnQueueDepth = 16

// Session drives one text conversation against one draft. Turns are
// strictly sequential: a single worker drains the queue, so a second
// SendTurn never overtakes the first, it just queues behind it.
type Session struct {
	id     uuid.UUID
	logger *zap.Logger

	conv        interpreter.Conversation
	draft       *survey.Draft
	turnTimeout time.Duration

	mu         sync.Mutex
	state      State
	transcript []Entry

	queue chan string
	done  chan struct{}
}

func NewSession(logger *zap.Logger, conv interpreter.Conversation, draft *survey.Draft) *Session {
	s := &Session{
		id:          uuid.New(),
		logger:      logger,
		conv:        conv,
		draft:       draft,
		turnTimeout: 30 * time.Second,
		state:       StateIdle,
		transcript:  []Entry{{Role: RoleAssistant, Text: GreetingText}},
		queue:       make(chan string, turnQueueDepth),
		done:        make(chan struct{}),
	}
	go s.worker()
	return s
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

func (s *Session) Transcript() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Entry(nil), s.transcript...)
}

// SendTurn queues a user turn without blocking on the interpreter. It fails
// only when the session is closed or the queue is saturated.
func (s *Session) SendTurn(text string) error {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return internal.ErrSessionClosed
	}
	s.mu.Unlock()

	select {
	case s.queue <- text:
		return nil
	default:
		return internal.ErrSessionBusy
	}
}

// Close ends the session. Applied draft changes stay applied; turns still
// sitting in the queue are dropped. Safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	s.state = StateClosed
	s.mu.Unlock()

	close(s.done)
}

func (s *Session) worker() {
	for {
		select {
		case <-s.done:
			return
		case text := <-s.queue:
			s.mu.Lock()
			if s.state == StateClosed {
				s.mu.Unlock()
				return
			}
			s.state = StateAwaitingResponse
			s.transcript = append(s.transcript, Entry{Role: RoleUser, Text: text})
			s.mu.Unlock()

			s.processTurn(text)

			s.mu.Lock()
			if s.state == StateAwaitingResponse {
				s.state = StateIdle
			}
			s.mu.Unlock()
		}
	}
}

func (s *Session) processTurn(text string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.turnTimeout)
	defer cancel()

	// Abort the interpreter call as soon as the session closes.
	go func() {
		select {
		case <-s.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	result, err := s.conv.SendTurn(ctx, text)

	// A response that lands after Close is abandoned: no draft change, no
	// transcript entry.
	s.mu.Lock()
	closed := s.state == StateClosed
	s.mu.Unlock()
	if closed {
		s.logger.Info("Dropping turn response for closed session",
			zap.String("session_id", s.id.String()),
		)
		return
	}

	if err != nil {
		s.logger.Warn("conversation turn failed, draft untouched",
			zap.String("session_id", s.id.String()),
			zap.Error(err),
		)
		s.appendAssistant(ErrorAssistantText)
		return
	}

	for _, cmd := range result.Commands {
		if !s.draft.ApplyUpdate(cmd) {
			s.logger.Warn("turn referenced question outside the draft",
				zap.String("session_id", s.id.String()),
				zap.Int("index", cmd.Index),
			)
		}
	}

	reply := result.Text
	if reply == "" {
		reply = FallbackAssistantText
	}
	s.appendAssistant(reply)
}

func (s *Session) appendAssistant(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcript = append(s.transcript, Entry{Role: RoleAssistant, Text: text})
}
