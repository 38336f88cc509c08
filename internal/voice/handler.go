package voice

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"sync"

	"unidata/survey-platform-backend/internal"
	"unidata/survey-platform-backend/internal/interpreter"
	"unidata/survey-platform-backend/internal/survey"
	"unidata/survey-platform-backend/internal/user"

	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/NYCU-SDC/summer/pkg/problem"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Client-to-server control frames. Mic audio travels as binary messages,
// everything else as JSON text frames.
type clientFrame struct {
	Type         string            `json:"type"`
	Topic        string            `json:"topic,omitempty"`
	Variables    string            `json:"variables,omitempty"`
	Demographics string            `json:"demographics,omitempty"`
	Questions    []survey.Question `json:"questions,omitempty"`
	ChunkID      uint64            `json:"chunkId,omitempty"`
}

type serverFrame struct {
	Type       string `json:"type"`
	State      State  `json:"state,omitempty"`
	ChunkID    uint64 `json:"chunkId,omitempty"`
	StartMs    int64  `json:"startMs,omitempty"`
	DurationMs int64  `json:"durationMs,omitempty"`
	Data       string `json:"data,omitempty"`
	Message    string `json:"message,omitempty"`
}

type Handler struct {
	logger *zap.Logger
	tracer trace.Tracer

	validator     *validator.Validate
	problemWriter *problem.HttpWriter

	dialer   Dialer
	upgrader websocket.Upgrader
}

func NewHandler(
	logger *zap.Logger,
	validator *validator.Validate,
	problemWriter *problem.HttpWriter,
	dialer Dialer,
) *Handler {
	return &Handler{
		logger:        logger,
		tracer:        otel.Tracer("voice/handler"),
		validator:     validator,
		problemWriter: problemWriter,
		dialer:        dialer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  32 * 1024,
			WriteBufferSize: 32 * 1024,
		},
	}
}

// wsSink fans scheduled audio out to the browser over the session socket.
// Gorilla allows one concurrent writer, so every write holds the mutex.
type wsSink struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *wsSink) write(frame serverFrame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(frame)
}

func (s *wsSink) Play(chunk Chunk) error {
	return s.write(serverFrame{
		Type:       "audio",
		ChunkID:    chunk.ID,
		StartMs:    chunk.Start.UnixMilli(),
		DurationMs: chunk.Duration.Milliseconds(),
		Data:       base64.StdEncoding.EncodeToString(chunk.Data),
	})
}

func (s *wsSink) StopAll() {
	_ = s.write(serverFrame{Type: "stop_audio"})
}

// StreamHandler upgrades the request and bridges the socket to a live voice
// session. The first text frame must be a start frame carrying the draft
// brief; after that, binary frames are mic audio.
func (h *Handler) StreamHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "StreamHandler")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	caller, ok := user.GetFromContext(r.Context())
	if !ok {
		h.problemWriter.WriteError(traceCtx, w, internal.ErrNoUserInContext, logger)
		return
	}
	if caller.Role != string(user.RoleResearcher) {
		h.problemWriter.WriteError(traceCtx, w, internal.ErrPermissionDenied, logger)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	sink := &wsSink{conn: conn}

	start, err := h.readStartFrame(conn)
	if err != nil {
		logger.Warn("voice session rejected start frame", zap.Error(err))
		_ = sink.write(serverFrame{Type: "error", Message: "invalid start frame"})
		return
	}

	draft := survey.NewDraft(h.logger, start.Topic, start.Variables, start.Demographics, start.Questions)
	session := NewSession(h.logger, h.dialer, interpreter.Brief{
		Topic:        start.Topic,
		Variables:    start.Variables,
		Demographics: start.Demographics,
		Questions:    draft.Snapshot(),
	}, draft, sink)
	defer session.Stop()

	if err := session.Start(traceCtx); err != nil {
		_ = sink.write(serverFrame{Type: "error", Message: "could not reach the voice service"})
		return
	}
	_ = sink.write(serverFrame{Type: "state", State: session.State()})

	// Tell the client when the session dies instead of letting it find out
	// on its next mic frame. Closing the socket also unblocks the read loop.
	go func() {
		<-session.Done()
		_ = sink.write(serverFrame{Type: "state", State: StateDisconnected, Message: "voice session ended"})
		_ = conn.Close()
	}()

	logger.Info("Voice bridge established",
		zap.String("session_id", session.ID().String()),
		zap.String("user_id", caller.ID.String()),
	)

	for {
		messageType, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}

		switch messageType {
		case websocket.BinaryMessage:
			if err := session.SendAudio(payload); err != nil {
				logger.Warn("dropping mic frame", zap.Error(err))
				return
			}

		case websocket.TextMessage:
			var frame clientFrame
			if err := json.Unmarshal(payload, &frame); err != nil {
				logger.Warn("dropping unparseable control frame", zap.Error(err))
				continue
			}
			switch frame.Type {
			case "played":
				session.CompleteChunk(frame.ChunkID)
			case "stop":
				return
			default:
				logger.Warn("dropping unknown control frame", zap.String("type", frame.Type))
			}
		}
	}
}

func (h *Handler) readStartFrame(conn *websocket.Conn) (clientFrame, error) {
	var frame clientFrame
	if err := conn.ReadJSON(&frame); err != nil {
		return clientFrame{}, err
	}
	if frame.Type != "start" {
		return clientFrame{}, internal.ErrInvalidRequestBody
	}
	if err := h.validator.Var(frame.Topic, "required"); err != nil {
		return clientFrame{}, internal.ErrInvalidRequestBody
	}
	for i := range frame.Questions {
		if err := h.validator.Struct(frame.Questions[i]); err != nil {
			return clientFrame{}, internal.ErrInvalidRequestBody
		}
	}
	return frame, nil
}
