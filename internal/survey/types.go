package survey

import (
	"context"
	"errors"
)

// ErrUnknownCall is returned when a webhook references a call the controller
// has no session for (out-of-order delivery, or a call already completed).
var ErrUnknownCall = errors.New("unknown call")

// Transcriber converts a recorded audio clip into text. An empty string with
// a nil error means the clip contained no recognizable speech.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// Outcome is the judgment over a candidate answer.
type Outcome int

const (
	// OutcomeAccepted means the answer resolves the question; Value holds
	// the normalized text to persist.
	OutcomeAccepted Outcome = iota
	// OutcomeFollowUp means the answer needs clarification; FollowUp holds
	// the question to speak next.
	OutcomeFollowUp
)

// Evaluation is the result of judging one answer against its question.
// Exactly one of Value or FollowUp is meaningful, selected by Outcome.
type Evaluation struct {
	Outcome  Outcome
	Value    string
	FollowUp string
}

// Judge validates a transcribed answer against the question it was given for.
// A non-nil error is the collaborator-failure case and never ends the call.
type Judge interface {
	Evaluate(ctx context.Context, prompt, answer string) (Evaluation, error)
}

// AnswerStore durably records one accepted answer. Failures are logged by
// the controller and never block call progression.
type AnswerStore interface {
	Record(ctx context.Context, callID, questionID, answer string) error
}

// Synthesizer converts text into playable audio bytes. It is consumed by the
// webhook boundary, not by the controller.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (audio []byte, contentType string, err error)
}

// Turn tells the webhook boundary what to do next on a call: speak Say, then
// either capture another answer or hang up.
type Turn struct {
	Say    string
	Record bool
	Hangup bool
}
