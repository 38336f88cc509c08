package chat

import (
	"context"
	"sync"

	"unidata/survey-platform-backend/internal"
	"unidata/survey-platform-backend/internal/interpreter"
	"unidata/survey-platform-backend/internal/survey"

	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Manager owns the live sessions and their drafts, keyed by session id.
type Manager struct {
	logger *zap.Logger
	tracer trace.Tracer
	client interpreter.Client

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

func NewManager(logger *zap.Logger, client interpreter.Client) *Manager {
	return &Manager{
		logger:   logger,
		tracer:   otel.Tracer("chat/manager"),
		client:   client,
		sessions: make(map[uuid.UUID]*Session),
	}
}

func (m *Manager) Open(ctx context.Context, brief interpreter.Brief) (*Session, error) {
	traceCtx, span := m.tracer.Start(ctx, "Open")
	defer span.End()
	logger := logutil.WithContext(traceCtx, m.logger)

	conv, err := m.client.NewConversation(traceCtx, brief)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	draft := survey.NewDraft(m.logger, brief.Topic, brief.Variables, brief.Demographics, brief.Questions)
	session := NewSession(m.logger, conv, draft)

	m.mu.Lock()
	m.sessions[session.ID()] = session
	m.mu.Unlock()

	logger.Info("Opened chat session",
		zap.String("session_id", session.ID().String()),
		zap.Int("question_count", draft.Len()),
	)
	return session, nil
}

func (m *Manager) Get(id uuid.UUID) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[id]
	if !ok {
		return nil, internal.ErrSessionNotFound
	}
	return session, nil
}

func (m *Manager) Close(id uuid.UUID) error {
	m.mu.Lock()
	session, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if !ok {
		return internal.ErrSessionNotFound
	}

	session.Close()
	m.logger.Info("Closed chat session", zap.String("session_id", id.String()))
	return nil
}
