package survey

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/Pratham-Aggarwal22/NTHSPipeline/internal/metrics"
)

// Spoken fallbacks. The caller never hears silence or a protocol error: every
// failure path degrades to one of these plus a re-prompt.
const (
	msgDidNotHear = "Sorry, I didn't catch that."
	msgApology    = "Sorry, something went wrong on our end. Let's try that again."
	msgClosing    = "Thank you for completing our survey. Have a great day!"
)

// Options tune the controller's policies.
type Options struct {
	// Greeting is spoken before the first question. Optional.
	Greeting string
	// MaxRetries bounds consecutive unresolved attempts at one question;
	// reaching it force-advances past the question without storing. Zero
	// means unlimited.
	MaxRetries int
	// Timeout bounds each collaborator call. Expiry degrades to the
	// apology path rather than failing the webhook.
	Timeout time.Duration
}

// Controller owns the per-call state machine: it decides, after each recorded
// answer, whether to advance, re-ask, or end the call. It returns Turns as
// data; rendering them into TwiML is the webhook boundary's job.
type Controller struct {
	catalog     *Catalog
	sessions    *SessionStore
	transcriber Transcriber
	judge       Judge
	store       AnswerStore
	opts        Options
}

// NewController wires the controller to its collaborators.
func NewController(catalog *Catalog, sessions *SessionStore, transcriber Transcriber, judge Judge, store AnswerStore, opts Options) *Controller {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	return &Controller{
		catalog:     catalog,
		sessions:    sessions,
		transcriber: transcriber,
		judge:       judge,
		store:       store,
		opts:        opts,
	}
}

// Sessions exposes the session table for eviction sweeps.
func (c *Controller) Sessions() *SessionStore { return c.sessions }

// BeginCall creates the session for a newly connected call and returns the
// first prompt. A duplicate call-connected event for a live call re-serves
// the current question instead of resetting progress.
func (c *Controller) BeginCall(ctx context.Context, callID string) (Turn, error) {
	if callID == "" {
		return Turn{}, fmt.Errorf("begin call: empty call id")
	}
	sess, created := c.sessions.Create(callID)
	q, ok := c.catalog.At(sess.Index)
	if !ok {
		// Session already past the end but not yet evicted.
		return Turn{Say: msgClosing, Hangup: true}, nil
	}
	if !created {
		log.Printf("call %s: duplicate connect event, re-serving %s", callID, q.ID)
		return Turn{Say: q.Prompt, Record: true}, nil
	}
	metrics.CallsStarted.Inc()
	say := q.Prompt
	if c.opts.Greeting != "" {
		say = c.opts.Greeting + " " + q.Prompt
	}
	return Turn{Say: say, Record: true}, nil
}

// SubmitAnswer processes one recorded answer: transcribe, judge, persist,
// and decide the next spoken action. recordingID deduplicates webhook
// redeliveries; audio is the recorded clip.
func (c *Controller) SubmitAnswer(ctx context.Context, callID, recordingID string, audio []byte) (Turn, error) {
	sess, ok := c.sessions.Get(callID)
	if !ok {
		return Turn{}, fmt.Errorf("submit answer for %s: %w", callID, ErrUnknownCall)
	}
	q, ok := c.catalog.At(sess.Index)
	if !ok {
		// Completed but a late event slipped in before eviction.
		c.sessions.Remove(callID)
		return Turn{Say: msgClosing, Hangup: true}, nil
	}

	if recordingID != "" && recordingID == sess.LastRecordingID {
		log.Printf("call %s: duplicate recording %s, re-serving %s", callID, recordingID, q.ID)
		return Turn{Say: q.Prompt, Record: true}, nil
	}
	sess.LastRecordingID = recordingID

	text, err := c.transcribe(ctx, audio)
	if err != nil {
		log.Printf("call %s: transcription failed: %v", callID, err)
		metrics.CollaboratorErrors.WithLabelValues("transcriber").Inc()
		return c.retryTurn(sess, msgApology+" "+q.Prompt), nil
	}
	if text == "" {
		// Silence never reaches the judge.
		log.Printf("call %s: empty transcription for %s", callID, q.ID)
		metrics.EmptyTranscriptions.Inc()
		return c.retryTurn(sess, msgDidNotHear+" "+q.Prompt), nil
	}
	log.Printf("call %s: %s answer: %s", callID, q.ID, text)

	eval, err := c.evaluate(ctx, q.Prompt, text)
	if err != nil {
		log.Printf("call %s: judgment failed: %v", callID, err)
		metrics.CollaboratorErrors.WithLabelValues("judge").Inc()
		return c.retryTurn(sess, msgApology+" "+q.Prompt), nil
	}

	switch eval.Outcome {
	case OutcomeAccepted:
		c.record(ctx, callID, q.ID, eval.Value)
		metrics.AnswersAccepted.Inc()
		sess.Retries = 0
		sess.Index++
		return c.nextTurn(sess), nil
	case OutcomeFollowUp:
		metrics.FollowUps.Inc()
		return c.retryTurn(sess, eval.FollowUp), nil
	default:
		// Unreachable unless a new Outcome is added without handling.
		log.Printf("call %s: unhandled outcome %d", callID, eval.Outcome)
		return c.retryTurn(sess, msgApology+" "+q.Prompt), nil
	}
}

// nextTurn serves the question at the session's current index, or closes the
// call when the catalog is exhausted.
func (c *Controller) nextTurn(sess *Session) Turn {
	q, ok := c.catalog.At(sess.Index)
	if !ok {
		c.sessions.Remove(sess.CallID)
		metrics.CallsCompleted.Inc()
		log.Printf("call %s: survey complete", sess.CallID)
		return Turn{Say: msgClosing, Hangup: true}
	}
	return Turn{Say: q.Prompt, Record: true}
}

// retryTurn counts one unresolved attempt and either re-asks with the given
// text or, once the retry limit is exhausted, skips the question.
func (c *Controller) retryTurn(sess *Session, say string) Turn {
	sess.Retries++
	if c.opts.MaxRetries > 0 && sess.Retries >= c.opts.MaxRetries {
		log.Printf("call %s: retry limit reached at index %d, advancing", sess.CallID, sess.Index)
		metrics.ForcedAdvances.Inc()
		sess.Retries = 0
		sess.Index++
		return c.nextTurn(sess)
	}
	return Turn{Say: say, Record: true}
}

func (c *Controller) transcribe(ctx context.Context, audio []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()
	text, err := c.transcriber.Transcribe(ctx, audio)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (c *Controller) evaluate(ctx context.Context, prompt, answer string) (Evaluation, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()
	return c.judge.Evaluate(ctx, prompt, answer)
}

// record persists an accepted answer. Persistence is best effort: a store
// failure is logged and the call proceeds.
func (c *Controller) record(ctx context.Context, callID, questionID, answer string) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()
	if err := c.store.Record(ctx, callID, questionID, answer); err != nil {
		log.Printf("call %s: store %s failed: %v", callID, questionID, err)
		metrics.CollaboratorErrors.WithLabelValues("store").Inc()
	}
}
