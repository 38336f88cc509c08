package voice

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"unidata/survey-platform-backend/internal"
	"unidata/survey-platform-backend/internal/chat"
	"unidata/survey-platform-backend/internal/interpreter"
	"unidata/survey-platform-backend/internal/survey"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordedAck struct {
	CallID string
	Name   string
	Result string
}

type fakeStream struct {
	events chan Event

	mu     sync.Mutex
	frames [][]byte
	acks   []recordedAck
	closed int

	closeOnce sync.Once
}

func newFakeStream() *fakeStream {
	return &fakeStream{events: make(chan Event, 32)}
}

func (f *fakeStream) Events() <-chan Event {
	return f.events
}

func (f *fakeStream) SendAudio(frame []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, frame)
	return nil
}

func (f *fakeStream) SendToolResponse(callID, name, result string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acks = append(f.acks, recordedAck{CallID: callID, Name: name, Result: result})
	return nil
}

func (f *fakeStream) Close() error {
	f.closeOnce.Do(func() {
		f.mu.Lock()
		f.closed++
		f.mu.Unlock()
		close(f.events)
	})
	return nil
}

func (f *fakeStream) recordedAcks() []recordedAck {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedAck(nil), f.acks...)
}

type fakeDialer struct {
	stream *fakeStream
	err    error

	mu    sync.Mutex
	dials int
}

func (d *fakeDialer) Dial(ctx context.Context, brief interpreter.Brief) (Stream, error) {
	d.mu.Lock()
	d.dials++
	d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	return d.stream, nil
}

type fakeSink struct {
	mu     sync.Mutex
	played []Chunk
	stops  int
}

func (s *fakeSink) Play(chunk Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.played = append(s.played, chunk)
	return nil
}

func (s *fakeSink) StopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stops++
}

func (s *fakeSink) playedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.played)
}

func (s *fakeSink) stopCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stops
}

func newTestSession(t *testing.T, n int) (*Session, *fakeStream, *fakeSink, *survey.Draft) {
	t.Helper()

	questions := make([]survey.Question, n)
	for i := range questions {
		questions[i] = survey.Question{Text: "placeholder", Type: survey.TypeShortAnswer}
	}
	draft := survey.NewDraft(zap.NewNop(), "topic", "", "", questions)

	stream := newFakeStream()
	sink := &fakeSink{}
	session := NewSession(zap.NewNop(), &fakeDialer{stream: stream}, interpreter.Brief{Topic: "topic"}, draft, sink)
	return session, stream, sink, draft
}

func TestSessionConnectFailureReturnsToDisconnected(t *testing.T) {
	dialer := &fakeDialer{err: errors.New("endpoint unreachable")}
	draft := survey.NewDraft(zap.NewNop(), "topic", "", "", nil)
	session := NewSession(zap.NewNop(), dialer, interpreter.Brief{Topic: "topic"}, draft, &fakeSink{})

	require.Error(t, session.Start(context.Background()))
	require.Equal(t, StateDisconnected, session.State())

	// A failed dial must not wedge the session in connecting; retrying is
	// allowed immediately.
	require.Error(t, session.Start(context.Background()))
	require.Equal(t, StateDisconnected, session.State())
	require.Equal(t, 2, dialer.dials)
}

func TestSessionRejectsSecondStart(t *testing.T) {
	session, _, _, _ := newTestSession(t, 1)
	require.NoError(t, session.Start(context.Background()))
	defer session.Stop()

	require.ErrorIs(t, session.Start(context.Background()), internal.ErrAlreadyConnecting)
}

func TestSessionFlushesTranscriptionOnTurnComplete(t *testing.T) {
	session, stream, _, _ := newTestSession(t, 1)
	require.NoError(t, session.Start(context.Background()))
	defer session.Stop()

	stream.events <- Event{Type: EventTranscription, Text: "change question "}
	stream.events <- Event{Type: EventTranscription, Text: "one please"}
	stream.events <- Event{Type: EventTurnComplete}

	require.Eventually(t, func() bool {
		return len(session.Transcript()) == 1
	}, 2*time.Second, 5*time.Millisecond)

	transcript := session.Transcript()
	require.Equal(t, chat.RoleUser, transcript[0].Role)
	require.Equal(t, "change question one please", transcript[0].Text)
}

func TestSessionToolCallAppliesAndAcks(t *testing.T) {
	session, stream, _, draft := newTestSession(t, 3)
	require.NoError(t, session.Start(context.Background()))
	defer session.Stop()

	stream.events <- Event{Type: EventToolCall, Tool: &ToolCall{
		ID:   "call-1",
		Name: interpreter.ToolUpdateQuestion,
		Args: map[string]interface{}{
			"index":        float64(0),
			"questionText": "How often do you shop online?",
		},
	}}

	require.Eventually(t, func() bool {
		return len(stream.recordedAcks()) == 1
	}, 2*time.Second, 5*time.Millisecond)

	require.Equal(t, "How often do you shop online?", draft.Snapshot()[0].Text)

	acks := stream.recordedAcks()
	require.Equal(t, "call-1", acks[0].CallID)
	require.Equal(t, interpreter.ToolUpdateQuestion, acks[0].Name)
	require.Equal(t, interpreter.ToolResponseResult, acks[0].Result)

	transcript := session.Transcript()
	require.Len(t, transcript, 1)
	require.Equal(t, chat.RoleAssistant, transcript[0].Role)
	require.Equal(t, VoiceEditPrefix+"How often do you shop online?", transcript[0].Text)
}

func TestSessionStaleToolCallStillAcks(t *testing.T) {
	session, stream, _, draft := newTestSession(t, 2)
	before := draft.Snapshot()
	require.NoError(t, session.Start(context.Background()))
	defer session.Stop()

	stream.events <- Event{Type: EventToolCall, Tool: &ToolCall{
		ID:   "call-9",
		Name: interpreter.ToolUpdateQuestion,
		Args: map[string]interface{}{
			"index":        float64(9),
			"questionText": "stale edit",
		},
	}}

	// The stale edit is dropped but the model still gets its ack, otherwise
	// the conversation stalls.
	require.Eventually(t, func() bool {
		return len(stream.recordedAcks()) == 1
	}, 2*time.Second, 5*time.Millisecond)
	require.Equal(t, before, draft.Snapshot())
	require.Empty(t, session.Transcript())
}

func TestSessionMalformedToolCallSkipped(t *testing.T) {
	session, stream, _, draft := newTestSession(t, 2)
	before := draft.Snapshot()
	require.NoError(t, session.Start(context.Background()))
	defer session.Stop()

	stream.events <- Event{Type: EventToolCall, Tool: &ToolCall{
		ID:   "call-x",
		Name: interpreter.ToolUpdateQuestion,
		Args: map[string]interface{}{"questionText": "no index"},
	}}
	stream.events <- Event{Type: EventTurnComplete}

	require.Eventually(t, func() bool {
		return session.State() == StateListening
	}, 2*time.Second, 5*time.Millisecond)

	require.Empty(t, stream.recordedAcks())
	require.Equal(t, before, draft.Snapshot())
}

func TestSessionInterruptionClearsPlayback(t *testing.T) {
	session, stream, sink, _ := newTestSession(t, 1)
	require.NoError(t, session.Start(context.Background()))
	defer session.Stop()

	stream.events <- Event{Type: EventAudio, Audio: pcmSeconds(1.0)}
	stream.events <- Event{Type: EventAudio, Audio: pcmSeconds(0.5)}

	require.Eventually(t, func() bool {
		return sink.playedCount() == 2 && session.State() == StateSpeaking
	}, 2*time.Second, 5*time.Millisecond)
	require.Equal(t, 2, session.sched.Pending())

	stream.events <- Event{Type: EventInterrupted}

	require.Eventually(t, func() bool {
		return session.State() == StateListening
	}, 2*time.Second, 5*time.Millisecond)

	require.Equal(t, 0, session.sched.Pending())
	require.True(t, session.sched.Watermark().IsZero())
	require.GreaterOrEqual(t, sink.stopCount(), 1)
}

// When the upstream link dies on its own, the session must land in
// disconnected and signal Done so the bridge can tell the client, not wait
// for the next mic frame to fail.
func TestSessionSignalsDoneWhenStreamDies(t *testing.T) {
	session, stream, _, _ := newTestSession(t, 1)
	require.NoError(t, session.Start(context.Background()))

	require.NoError(t, stream.Close())

	require.Eventually(t, func() bool {
		select {
		case <-session.Done():
			return session.State() == StateDisconnected
		default:
			return false
		}
	}, 2*time.Second, 5*time.Millisecond)

	session.Stop() // still safe after the link is already gone
	require.Equal(t, StateDisconnected, session.State())
}

func TestSessionStopIsIdempotent(t *testing.T) {
	session, stream, _, draft := newTestSession(t, 1)
	require.NoError(t, session.Start(context.Background()))

	stream.events <- Event{Type: EventToolCall, Tool: &ToolCall{
		ID:   "call-1",
		Name: interpreter.ToolUpdateQuestion,
		Args: map[string]interface{}{
			"index":        float64(0),
			"questionText": "kept after stop",
		},
	}}
	require.Eventually(t, func() bool {
		return len(stream.recordedAcks()) == 1
	}, 2*time.Second, 5*time.Millisecond)

	session.Stop()
	session.Stop()

	require.Equal(t, StateDisconnected, session.State())
	require.Equal(t, 1, stream.closed)
	require.ErrorIs(t, session.SendAudio([]byte{0, 0}), internal.ErrStreamClosed)

	// Stopping never undoes applied edits.
	require.Equal(t, "kept after stop", draft.Snapshot()[0].Text)
}
