package survey

import (
	"sync"

	"go.uber.org/zap"
)

// Draft is the single mutable survey document a conversational session edits.
// All mutation goes through ReplaceAll and ApplyUpdate; readers only ever see
// a snapshot. Concurrent text and voice sessions against the same draft
// resolve by arrival order under the mutex, last write wins.
type Draft struct {
	mu sync.RWMutex

	topic        string
	variables    string
	demographics string
	questions    []Question

	logger *zap.Logger
}

func NewDraft(logger *zap.Logger, topic, variables, demographics string, questions []Question) *Draft {
	d := &Draft{
		topic:        topic,
		variables:    variables,
		demographics: demographics,
		logger:       logger,
	}
	d.questions = copyQuestions(SanitizeAll(questions))
	return d
}

// ReplaceAll swaps the whole question list atomically. A reader observes
// either the old list or the new one, never a mix.
func (d *Draft) ReplaceAll(questions []Question) {
	next := copyQuestions(SanitizeAll(questions))

	d.mu.Lock()
	defer d.mu.Unlock()
	d.questions = next
}

// ApplyUpdate patches a single question in place. Only fields present on the
// command change; an out-of-range index is logged and ignored so a stale
// interpreter reference can never corrupt the document. Returns whether the
// patch was applied.
func (d *Draft) ApplyUpdate(cmd UpdateCommand) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if cmd.Index < 0 || cmd.Index >= len(d.questions) {
		d.logger.Warn("ignoring update for out-of-range question index",
			zap.Int("index", cmd.Index),
			zap.Int("question_count", len(d.questions)),
		)
		return false
	}

	q := d.questions[cmd.Index]
	if cmd.Text != nil {
		q.Text = strictPolicy.Sanitize(*cmd.Text)
	}
	if cmd.Type != nil && cmd.Type.Valid() {
		q.Type = *cmd.Type
	}
	if cmd.Options != nil {
		opts := make([]string, len(*cmd.Options))
		for i, o := range *cmd.Options {
			opts[i] = strictPolicy.Sanitize(o)
		}
		q.Options = opts
	}
	if cmd.Rationale != nil {
		q.Rationale = strictPolicy.Sanitize(*cmd.Rationale)
	}
	d.questions[cmd.Index] = q

	return true
}

// Snapshot returns a copy the caller owns. Later mutations of the draft do
// not show through, and mutating the returned slice does not touch the draft.
func (d *Draft) Snapshot() []Question {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return copyQuestions(d.questions)
}

func (d *Draft) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.questions)
}

func (d *Draft) Topic() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.topic
}

func (d *Draft) Variables() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.variables
}

func (d *Draft) Demographics() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.demographics
}

func copyQuestions(in []Question) []Question {
	out := make([]Question, len(in))
	for i, q := range in {
		out[i] = q
		if q.Options != nil {
			out[i].Options = append([]string(nil), q.Options...)
		}
	}
	return out
}
