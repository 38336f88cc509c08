package voice

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"unidata/survey-platform-backend/internal"
	"unidata/survey-platform-backend/internal/interpreter"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// UpstreamSampleRate is the mic capture rate, 16 kHz mono PCM16.
	UpstreamSampleRate = 16000

	// DownstreamSampleRate is the model audio rate, 24 kHz mono PCM16.
	DownstreamSampleRate = 24000

	bytesPerSample = 2
)

type EventType string

const (
	// EventTranscription carries a partial transcription delta of the
	// caller's speech.
	EventTranscription EventType = "transcription"

	// EventAudio carries one chunk of model speech, downstream PCM16.
	EventAudio EventType = "audio"

	// EventToolCall asks the session to mutate the draft.
	EventToolCall EventType = "tool_call"

	// EventTurnComplete closes the caller's current utterance.
	EventTurnComplete EventType = "turn_complete"

	// EventInterrupted reports the caller talked over the model.
	EventInterrupted EventType = "interrupted"
)

type ToolCall struct {
	ID   string
	Name string
	Args map[string]interface{}
}

type Event struct {
	Type  EventType
	Text  string
	Audio []byte
	Tool  *ToolCall
}

// Stream is a connected full-duplex link to the speech interpreter. Events
// arrive on a single channel in wire order; the channel closes when the
// link dies.
type Stream interface {
	Events() <-chan Event
	SendAudio(frame []byte) error
	SendToolResponse(callID, name, result string) error
	Close() error
}

// Dialer opens a Stream seeded with the draft brief.
type Dialer interface {
	Dial(ctx context.Context, brief interpreter.Brief) (Stream, error)
}

// LiveDialer connects to the interpreter's realtime websocket endpoint.
type LiveDialer struct {
	logger *zap.Logger
	url    string
	apiKey string
}

func NewLiveDialer(logger *zap.Logger, url, apiKey string) *LiveDialer {
	return &LiveDialer{logger: logger, url: url, apiKey: apiKey}
}

// Wire shapes follow the live API message schema: audio rides inside
// serverContent.modelTurn parts, transcription and turn markers inside
// serverContent, tool calls at the top level.
type serverMessage struct {
	ServerContent *struct {
		InputTranscription *struct {
			Text string `json:"text"`
		} `json:"inputTranscription,omitempty"`
		ModelTurn *struct {
			Parts []struct {
				InlineData *struct {
					Data     string `json:"data"`
					MimeType string `json:"mimeType"`
				} `json:"inlineData,omitempty"`
			} `json:"parts"`
		} `json:"modelTurn,omitempty"`
		TurnComplete bool `json:"turnComplete,omitempty"`
		Interrupted  bool `json:"interrupted,omitempty"`
	} `json:"serverContent,omitempty"`
	ToolCall *struct {
		FunctionCalls []struct {
			ID   string                 `json:"id"`
			Name string                 `json:"name"`
			Args map[string]interface{} `json:"args"`
		} `json:"functionCalls"`
	} `json:"toolCall,omitempty"`
}

type setupMessage struct {
	Setup struct {
		Model              string         `json:"model"`
		SystemInstruction  string         `json:"systemInstruction"`
		ResponseModalities []string       `json:"responseModalities"`
		Tools              []setupTool    `json:"tools"`
		InputTranscription map[string]any `json:"inputAudioTranscription"`
	} `json:"setup"`
}

type setupTool struct {
	FunctionDeclarations []json.RawMessage `json:"functionDeclarations"`
}

type realtimeInputMessage struct {
	RealtimeInput struct {
		Media struct {
			Data     string `json:"data"`
			MimeType string `json:"mimeType"`
		} `json:"media"`
	} `json:"realtimeInput"`
}

type toolResponseMessage struct {
	ToolResponse struct {
		FunctionResponses []struct {
			ID       string            `json:"id"`
			Name     string            `json:"name"`
			Response map[string]string `json:"response"`
		} `json:"functionResponses"`
	} `json:"toolResponse"`
}

func (d *LiveDialer) Dial(ctx context.Context, brief interpreter.Brief) (Stream, error) {
	header := http.Header{}
	header.Set("x-goog-api-key", d.apiKey)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, d.url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial live endpoint: %w (status %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial live endpoint: %w", err)
	}

	s := &liveStream{
		logger: d.logger,
		conn:   conn,
		events: make(chan Event, 64),
		done:   make(chan struct{}),
	}

	if err := s.sendSetup(brief); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("send live setup: %w", err)
	}

	go s.readLoop()
	return s, nil
}

// liveStream is a thin websocket client: one reader goroutine feeds the
// events channel, writes are serialized by a mutex.
type liveStream struct {
	logger *zap.Logger
	conn   *websocket.Conn

	writeMu sync.Mutex
	events  chan Event

	closeOnce sync.Once
	done      chan struct{}
}

func (s *liveStream) Events() <-chan Event {
	return s.events
}

func (s *liveStream) sendSetup(brief interpreter.Brief) error {
	declaration, err := json.Marshal(interpreter.UpdateQuestionDeclaration())
	if err != nil {
		return err
	}

	var msg setupMessage
	msg.Setup.Model = interpreter.LiveModel
	msg.Setup.SystemInstruction = interpreter.SystemInstruction(brief)
	msg.Setup.ResponseModalities = []string{"AUDIO"}
	msg.Setup.Tools = []setupTool{{FunctionDeclarations: []json.RawMessage{declaration}}}
	msg.Setup.InputTranscription = map[string]any{}

	return s.writeJSON(msg)
}

func (s *liveStream) SendAudio(frame []byte) error {
	var msg realtimeInputMessage
	msg.RealtimeInput.Media.Data = base64.StdEncoding.EncodeToString(frame)
	msg.RealtimeInput.Media.MimeType = fmt.Sprintf("audio/pcm;rate=%d", UpstreamSampleRate)
	return s.writeJSON(msg)
}

func (s *liveStream) SendToolResponse(callID, name, result string) error {
	var msg toolResponseMessage
	msg.ToolResponse.FunctionResponses = []struct {
		ID       string            `json:"id"`
		Name     string            `json:"name"`
		Response map[string]string `json:"response"`
	}{
		{ID: callID, Name: name, Response: map[string]string{"result": result}},
	}
	return s.writeJSON(msg)
}

func (s *liveStream) writeJSON(v interface{}) error {
	select {
	case <-s.done:
		return internal.ErrStreamClosed
	default:
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(v)
}

func (s *liveStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.conn.Close()
	})
	return err
}

func (s *liveStream) readLoop() {
	defer close(s.events)

	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.done:
			default:
				s.logger.Warn("live stream read failed", zap.Error(err))
			}
			return
		}

		var msg serverMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			s.logger.Warn("dropping unparseable live message", zap.Error(err))
			continue
		}

		for _, ev := range s.decode(msg) {
			select {
			case s.events <- ev:
			case <-s.done:
				return
			}
		}
	}
}

// decode unpacks one wire message into events, preserving intra-message
// order: transcription first, audio next, tool calls, then turn markers.
func (s *liveStream) decode(msg serverMessage) []Event {
	var events []Event

	if sc := msg.ServerContent; sc != nil {
		if sc.InputTranscription != nil && sc.InputTranscription.Text != "" {
			events = append(events, Event{Type: EventTranscription, Text: sc.InputTranscription.Text})
		}
		if sc.ModelTurn != nil {
			for _, part := range sc.ModelTurn.Parts {
				if part.InlineData == nil || part.InlineData.Data == "" {
					continue
				}
				audio, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
				if err != nil {
					s.logger.Warn("dropping undecodable audio part", zap.Error(err))
					continue
				}
				events = append(events, Event{Type: EventAudio, Audio: audio})
			}
		}
	}

	if msg.ToolCall != nil {
		for _, fc := range msg.ToolCall.FunctionCalls {
			events = append(events, Event{Type: EventToolCall, Tool: &ToolCall{
				ID:   fc.ID,
				Name: fc.Name,
				Args: fc.Args,
			}})
		}
	}

	if sc := msg.ServerContent; sc != nil {
		if sc.Interrupted {
			events = append(events, Event{Type: EventInterrupted})
		}
		if sc.TurnComplete {
			events = append(events, Event{Type: EventTurnComplete})
		}
	}

	return events
}
