package survey

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeTranscriber struct {
	text string
	err  error
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audio []byte) (string, error) {
	return f.text, f.err
}

type fakeJudge struct {
	eval  Evaluation
	err   error
	calls int
}

func (f *fakeJudge) Evaluate(ctx context.Context, prompt, answer string) (Evaluation, error) {
	f.calls++
	if f.err != nil {
		return Evaluation{}, f.err
	}
	return f.eval, nil
}

type fakeStore struct {
	records []string
	err     error
}

func (f *fakeStore) Record(ctx context.Context, callID, questionID, answer string) error {
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, callID+"/"+questionID+"/"+answer)
	return nil
}

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	cat, err := NewCatalog([]Question{
		{ID: "Q1", Prompt: "Do you own a vehicle?"},
		{ID: "Q2", Prompt: "What is the make?"},
	})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	return cat
}

func newTestController(t *testing.T, tr *fakeTranscriber, j *fakeJudge, st *fakeStore, opts Options) *Controller {
	t.Helper()
	return NewController(testCatalog(t), NewSessionStore(), tr, j, st, opts)
}

func TestBeginCall_ServesFirstQuestionWithGreeting(t *testing.T) {
	c := newTestController(t, &fakeTranscriber{}, &fakeJudge{}, &fakeStore{}, Options{Greeting: "Welcome."})
	turn, err := c.BeginCall(context.Background(), "CA1")
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if turn.Say != "Welcome. Do you own a vehicle?" {
		t.Fatalf("unexpected prompt: %q", turn.Say)
	}
	if !turn.Record || turn.Hangup {
		t.Fatalf("expected record turn, got %+v", turn)
	}
}

func TestBeginCall_DuplicateConnectKeepsProgress(t *testing.T) {
	tr := &fakeTranscriber{text: "yes"}
	j := &fakeJudge{eval: Evaluation{Outcome: OutcomeAccepted, Value: "yes"}}
	c := newTestController(t, tr, j, &fakeStore{}, Options{})
	if _, err := c.BeginCall(context.Background(), "CA1"); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := c.SubmitAnswer(context.Background(), "CA1", "RE1", []byte{1}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	turn, err := c.BeginCall(context.Background(), "CA1")
	if err != nil {
		t.Fatalf("second begin: %v", err)
	}
	if turn.Say != "What is the make?" {
		t.Fatalf("expected current question, got %q", turn.Say)
	}
}

// Scenario A: accepted answer stores the value and advances.
func TestSubmitAnswer_AcceptedAdvances(t *testing.T) {
	tr := &fakeTranscriber{text: "yes"}
	j := &fakeJudge{eval: Evaluation{Outcome: OutcomeAccepted, Value: "yes"}}
	st := &fakeStore{}
	c := newTestController(t, tr, j, st, Options{})
	if _, err := c.BeginCall(context.Background(), "CA1"); err != nil {
		t.Fatalf("begin: %v", err)
	}

	turn, err := c.SubmitAnswer(context.Background(), "CA1", "RE1", []byte{1})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if turn.Say != "What is the make?" {
		t.Fatalf("expected next question, got %q", turn.Say)
	}
	if len(st.records) != 1 || st.records[0] != "CA1/Q1/yes" {
		t.Fatalf("unexpected store writes: %v", st.records)
	}
}

// Scenario B: empty transcription repeats the question and never reaches the judge.
func TestSubmitAnswer_EmptyTranscriptionSkipsJudge(t *testing.T) {
	tr := &fakeTranscriber{text: "  "}
	j := &fakeJudge{}
	st := &fakeStore{}
	c := newTestController(t, tr, j, st, Options{})
	if _, err := c.BeginCall(context.Background(), "CA1"); err != nil {
		t.Fatalf("begin: %v", err)
	}

	turn, err := c.SubmitAnswer(context.Background(), "CA1", "RE1", nil)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !strings.Contains(turn.Say, "Do you own a vehicle?") {
		t.Fatalf("expected repeat of Q1, got %q", turn.Say)
	}
	if j.calls != 0 {
		t.Fatalf("judge must not be called on silence, got %d calls", j.calls)
	}
	if len(st.records) != 0 {
		t.Fatalf("no store writes expected, got %v", st.records)
	}
	sess, _ := c.sessions.Get("CA1")
	if sess.Index != 0 || sess.Retries != 1 {
		t.Fatalf("expected index 0 retries 1, got %+v", sess)
	}
}

// Scenario C: a follow-up never stores and never advances.
func TestSubmitAnswer_FollowUpHoldsIndex(t *testing.T) {
	tr := &fakeTranscriber{text: "maybe something"}
	j := &fakeJudge{eval: Evaluation{Outcome: OutcomeFollowUp, FollowUp: "Can you clarify, yes or no?"}}
	st := &fakeStore{}
	c := newTestController(t, tr, j, st, Options{})
	if _, err := c.BeginCall(context.Background(), "CA1"); err != nil {
		t.Fatalf("begin: %v", err)
	}

	for i := 0; i < 3; i++ {
		turn, err := c.SubmitAnswer(context.Background(), "CA1", "", nil)
		if err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
		if turn.Say != "Can you clarify, yes or no?" {
			t.Fatalf("expected follow-up, got %q", turn.Say)
		}
		if !turn.Record {
			t.Fatalf("follow-up must keep recording")
		}
	}
	if len(st.records) != 0 {
		t.Fatalf("follow-up must not store, got %v", st.records)
	}
	sess, _ := c.sessions.Get("CA1")
	if sess.Index != 0 {
		t.Fatalf("follow-up must not advance, index=%d", sess.Index)
	}
}

// Scenario D: accepting the last answer completes and evicts the call.
func TestSubmitAnswer_LastQuestionCompletes(t *testing.T) {
	tr := &fakeTranscriber{text: "a toyota"}
	j := &fakeJudge{eval: Evaluation{Outcome: OutcomeAccepted, Value: "toyota"}}
	st := &fakeStore{}
	c := newTestController(t, tr, j, st, Options{})
	if _, err := c.BeginCall(context.Background(), "CA1"); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := c.SubmitAnswer(context.Background(), "CA1", "RE1", nil); err != nil {
		t.Fatalf("submit q1: %v", err)
	}

	turn, err := c.SubmitAnswer(context.Background(), "CA1", "RE2", nil)
	if err != nil {
		t.Fatalf("submit q2: %v", err)
	}
	if !turn.Hangup || turn.Record {
		t.Fatalf("expected hangup turn, got %+v", turn)
	}
	if len(st.records) != 2 {
		t.Fatalf("expected 2 store writes, got %v", st.records)
	}

	// Any further event for this call is rejected, never re-stored.
	if _, err := c.SubmitAnswer(context.Background(), "CA1", "RE3", nil); !errors.Is(err, ErrUnknownCall) {
		t.Fatalf("expected ErrUnknownCall after completion, got %v", err)
	}
	if len(st.records) != 2 {
		t.Fatalf("completed call must not store again, got %v", st.records)
	}
}

func TestSubmitAnswer_UnknownCall(t *testing.T) {
	c := newTestController(t, &fakeTranscriber{}, &fakeJudge{}, &fakeStore{}, Options{})
	if _, err := c.SubmitAnswer(context.Background(), "CA404", "RE1", nil); !errors.Is(err, ErrUnknownCall) {
		t.Fatalf("expected ErrUnknownCall, got %v", err)
	}
}

func TestSubmitAnswer_DuplicateRecordingIsNoOp(t *testing.T) {
	tr := &fakeTranscriber{text: "yes"}
	j := &fakeJudge{eval: Evaluation{Outcome: OutcomeAccepted, Value: "yes"}}
	st := &fakeStore{}
	c := newTestController(t, tr, j, st, Options{})
	if _, err := c.BeginCall(context.Background(), "CA1"); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := c.SubmitAnswer(context.Background(), "CA1", "RE1", nil); err != nil {
		t.Fatalf("submit: %v", err)
	}

	// Redelivery of the same recording re-serves the current prompt.
	turn, err := c.SubmitAnswer(context.Background(), "CA1", "RE1", nil)
	if err != nil {
		t.Fatalf("duplicate submit: %v", err)
	}
	if turn.Say != "What is the make?" || !turn.Record {
		t.Fatalf("expected current prompt re-served, got %+v", turn)
	}
	if len(st.records) != 1 {
		t.Fatalf("duplicate must not double-store, got %v", st.records)
	}
	if j.calls != 1 {
		t.Fatalf("duplicate must not be re-judged, got %d calls", j.calls)
	}
}

func TestSubmitAnswer_JudgeErrorDegradesToApology(t *testing.T) {
	tr := &fakeTranscriber{text: "something"}
	j := &fakeJudge{err: errors.New("model unavailable")}
	st := &fakeStore{}
	c := newTestController(t, tr, j, st, Options{})
	if _, err := c.BeginCall(context.Background(), "CA1"); err != nil {
		t.Fatalf("begin: %v", err)
	}

	turn, err := c.SubmitAnswer(context.Background(), "CA1", "RE1", nil)
	if err != nil {
		t.Fatalf("collaborator failure must not fail the webhook: %v", err)
	}
	if !strings.Contains(turn.Say, "Do you own a vehicle?") || !turn.Record {
		t.Fatalf("expected apology plus repeat, got %+v", turn)
	}
	if len(st.records) != 0 {
		t.Fatalf("error outcome must not store, got %v", st.records)
	}
}

func TestSubmitAnswer_TranscriberErrorDegradesToApology(t *testing.T) {
	tr := &fakeTranscriber{err: errors.New("speech api down")}
	c := newTestController(t, tr, &fakeJudge{}, &fakeStore{}, Options{})
	if _, err := c.BeginCall(context.Background(), "CA1"); err != nil {
		t.Fatalf("begin: %v", err)
	}
	turn, err := c.SubmitAnswer(context.Background(), "CA1", "RE1", nil)
	if err != nil {
		t.Fatalf("collaborator failure must not fail the webhook: %v", err)
	}
	if !turn.Record || turn.Hangup {
		t.Fatalf("expected re-prompt, got %+v", turn)
	}
}

func TestSubmitAnswer_StoreFailureDoesNotBlockAdvance(t *testing.T) {
	tr := &fakeTranscriber{text: "yes"}
	j := &fakeJudge{eval: Evaluation{Outcome: OutcomeAccepted, Value: "yes"}}
	st := &fakeStore{err: errors.New("db down")}
	c := newTestController(t, tr, j, st, Options{})
	if _, err := c.BeginCall(context.Background(), "CA1"); err != nil {
		t.Fatalf("begin: %v", err)
	}
	turn, err := c.SubmitAnswer(context.Background(), "CA1", "RE1", nil)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if turn.Say != "What is the make?" {
		t.Fatalf("store failure must not block progression, got %q", turn.Say)
	}
}

func TestSubmitAnswer_RetryLimitForcesAdvance(t *testing.T) {
	tr := &fakeTranscriber{text: "mumble"}
	j := &fakeJudge{eval: Evaluation{Outcome: OutcomeFollowUp, FollowUp: "Say that again?"}}
	st := &fakeStore{}
	c := newTestController(t, tr, j, st, Options{MaxRetries: 2})
	if _, err := c.BeginCall(context.Background(), "CA1"); err != nil {
		t.Fatalf("begin: %v", err)
	}

	turn, err := c.SubmitAnswer(context.Background(), "CA1", "RE1", nil)
	if err != nil {
		t.Fatalf("submit 1: %v", err)
	}
	if turn.Say != "Say that again?" {
		t.Fatalf("first miss should follow up, got %q", turn.Say)
	}
	turn, err = c.SubmitAnswer(context.Background(), "CA1", "RE2", nil)
	if err != nil {
		t.Fatalf("submit 2: %v", err)
	}
	if turn.Say != "What is the make?" {
		t.Fatalf("retry limit should advance to Q2, got %q", turn.Say)
	}
	if len(st.records) != 0 {
		t.Fatalf("forced advance must not store, got %v", st.records)
	}
}

func TestSubmitAnswer_IndexNeverDecreases(t *testing.T) {
	tr := &fakeTranscriber{text: "answer"}
	j := &fakeJudge{eval: Evaluation{Outcome: OutcomeFollowUp, FollowUp: "Again?"}}
	c := newTestController(t, tr, j, &fakeStore{}, Options{})
	if _, err := c.BeginCall(context.Background(), "CA1"); err != nil {
		t.Fatalf("begin: %v", err)
	}

	last := 0
	for i := 0; i < 4; i++ {
		if i == 2 {
			j.eval = Evaluation{Outcome: OutcomeAccepted, Value: "answer"}
		}
		if _, err := c.SubmitAnswer(context.Background(), "CA1", "", nil); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
		sess, ok := c.sessions.Get("CA1")
		if !ok {
			break
		}
		if sess.Index < last {
			t.Fatalf("index decreased: %d -> %d", last, sess.Index)
		}
		last = sess.Index
	}
}
