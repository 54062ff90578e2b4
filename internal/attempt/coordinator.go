// Package attempt owns the submission flow: scoring, attempt numbering,
// the ranking lock, the answer snapshot, and the double-submit guard.
package attempt

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/gameCahya/tryout-tka-sub000/internal/eventlog"
	"github.com/gameCahya/tryout-tka-sub000/internal/scoring"
	"github.com/gameCahya/tryout-tka-sub000/internal/tryout"
)

// State is the per-session submission lifecycle. Both the expiry path and
// the manual finish button read it before doing anything, which is what
// prevents a double submit.
type State string

const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

var (
	ErrSubmitInFlight   = errors.New("pengiriman jawaban sedang diproses")
	ErrAlreadySubmitted = errors.New("sesi ini sudah dikirim")
	ErrTryoutInactive   = errors.New("tryout tidak aktif")
)

type Coordinator struct {
	store  tryout.Store
	events eventlog.Appender
	log    *logrus.Logger

	mu     sync.Mutex
	states map[string]State // key: session ID
	now    func() int64
}

func NewCoordinator(store tryout.Store, events eventlog.Appender, log *logrus.Logger) *Coordinator {
	if log == nil {
		log = logrus.New()
	}
	return &Coordinator{
		store:  store,
		events: events,
		log:    log,
		states: map[string]State{},
		now:    func() int64 { return time.Now().Unix() },
	}
}

// StateOf reports the submission state for a session.
func (c *Coordinator) StateOf(sessionID string) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.states[sessionID]; ok {
		return s
	}
	return StateIdle
}

// begin transitions idle|failed -> submitting, synchronously. A session in
// submitting or done state refuses a second submission.
func (c *Coordinator) begin(sessionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.states[sessionID] {
	case StateSubmitting:
		return ErrSubmitInFlight
	case StateDone:
		return ErrAlreadySubmitted
	}
	c.states[sessionID] = StateSubmitting
	return nil
}

func (c *Coordinator) finish(sessionID string, s State) {
	c.mu.Lock()
	c.states[sessionID] = s
	c.mu.Unlock()
}

// Start opens (or re-enters) the session for (user, tryout). The persisted
// start timestamp is reused on re-entry; reloading never restarts the clock.
func (c *Coordinator) Start(ctx context.Context, userID, tryoutID string) (tryout.Session, tryout.Tryout, error) {
	t, err := c.store.GetTryout(ctx, tryoutID)
	if err != nil {
		return tryout.Session{}, tryout.Tryout{}, err
	}
	if !t.Active {
		return tryout.Session{}, tryout.Tryout{}, ErrTryoutInactive
	}
	sess, err := c.store.StartSession(ctx, userID, tryoutID, c.now())
	if err != nil {
		return tryout.Session{}, tryout.Tryout{}, err
	}
	return sess, t, nil
}

// SaveDraft persists the in-progress answers for the open session.
func (c *Coordinator) SaveDraft(ctx context.Context, userID, tryoutID string, d tryout.Draft) error {
	return c.store.SaveDraft(ctx, userID, tryoutID, d)
}

// Remaining computes seconds left for the open session; ok=false when no
// session exists.
func (c *Coordinator) Remaining(ctx context.Context, userID, tryoutID string) (int, tryout.Session, error) {
	t, err := c.store.GetTryout(ctx, tryoutID)
	if err != nil {
		return 0, tryout.Session{}, err
	}
	sess, err := c.store.GetSession(ctx, userID, tryoutID)
	if err != nil {
		return 0, tryout.Session{}, err
	}
	return Remaining(t.DurationMinutes*60, sess.StartedAt, c.now()), sess, nil
}

// Submit finalizes the open session: scores the draft, assigns the attempt
// ordinal, persists the result (locking attempt #1 for the ranking), writes
// the per-question snapshot, and clears the draft.
//
// The result row and the ranking mirror commit together; snapshot rows are
// best-effort afterwards; a partial snapshot is logged and tolerated rather
// than failing the completed attempt.
func (c *Coordinator) Submit(ctx context.Context, userID, tryoutID string) (tryout.Result, error) {
	t, err := c.store.GetTryout(ctx, tryoutID)
	if err != nil {
		return tryout.Result{}, err
	}
	sess, err := c.store.GetSession(ctx, userID, tryoutID)
	if err != nil {
		return tryout.Result{}, err
	}

	if err := c.begin(sess.ID); err != nil {
		return tryout.Result{}, err
	}
	res, err := c.submit(ctx, t, sess)
	if err != nil {
		// failed state is re-enterable; the draft is still on the session
		c.finish(sess.ID, StateFailed)
		return tryout.Result{}, err
	}
	c.finish(sess.ID, StateDone)
	return res, nil
}

func (c *Coordinator) submit(ctx context.Context, t tryout.Tryout, sess tryout.Session) (tryout.Result, error) {
	questions, err := c.store.ListQuestions(ctx, t.ID, true)
	if err != nil {
		return tryout.Result{}, err
	}

	sum := scoring.Score(questions, sess.Draft)

	prior, err := c.store.CountResults(ctx, sess.UserID, t.ID)
	if err != nil {
		return tryout.Result{}, err
	}
	attemptNo := prior + 1

	now := c.now()
	elapsed := Elapsed(sess.StartedAt, now)
	if max := t.DurationMinutes * 60; elapsed > max {
		elapsed = max
	}

	res := tryout.Result{
		ID:              uuid.NewString(),
		UserID:          sess.UserID,
		TryoutID:        t.ID,
		AttemptNumber:   attemptNo,
		CorrectCount:    sum.Correct,
		WrongCount:      sum.Wrong,
		UnansweredCount: sum.Unanswered,
		TotalQuestions:  sum.Total,
		Score:           sum.Correct,
		Percentage:      sum.Percentage,
		DurationSeconds: elapsed,
		IsLocked:        tryout.IsRankingAuthoritative(attemptNo),
		CompletedAt:     now,
	}

	var rank *tryout.RankingEntry
	if res.IsLocked {
		rank = &tryout.RankingEntry{
			UserID:          res.UserID,
			TryoutID:        res.TryoutID,
			ResultID:        res.ID,
			Score:           res.Score,
			Percentage:      res.Percentage,
			CorrectCount:    res.CorrectCount,
			WrongCount:      res.WrongCount,
			DurationSeconds: res.DurationSeconds,
			UpdatedAt:       now,
		}
	}

	if err := c.store.CreateResult(ctx, res, rank); err != nil {
		return tryout.Result{}, err
	}

	// Snapshot rows are individually best-effort; losing some review detail
	// beats discarding a completed attempt.
	lost := 0
	for i, q := range questions {
		ua := tryout.UserAnswer{
			ID:         uuid.NewString(),
			ResultID:   res.ID,
			UserID:     res.UserID,
			TryoutID:   res.TryoutID,
			QuestionID: q.ID,
			Answer:     sess.Draft.Answers[q.ID],
			IsCorrect:  sum.PerQuestion[i].IsCorrect,
			HasAnswer:  sum.PerQuestion[i].HasAnswer,
			CreatedAt:  now,
		}
		if err := c.store.InsertUserAnswer(ctx, ua); err != nil {
			lost++
			c.log.WithFields(logrus.Fields{
				"result_id":   res.ID,
				"question_id": q.ID,
			}).WithError(err).Warn("answer snapshot row lost")
		}
	}
	if lost > 0 {
		c.log.WithFields(logrus.Fields{"result_id": res.ID, "lost": lost}).
			Warn("result saved with incomplete answer snapshot")
	}

	if c.events != nil {
		if err := c.events.Append(ctx, eventlog.TypeAttemptSubmitted, res.ID, res); err != nil {
			c.log.WithError(err).Warn("event log append failed")
		}
	}

	if err := c.store.DeleteSession(ctx, sess.UserID, sess.TryoutID); err != nil {
		c.log.WithError(err).Warn("session cleanup failed")
	}
	return res, nil
}

// SubmitIfExpired submits when the session's window has elapsed. It returns
// ok=false when time remains. Used by handlers so a user returning after the
// deadline is finalized immediately instead of seeing more questions.
func (c *Coordinator) SubmitIfExpired(ctx context.Context, userID, tryoutID string) (tryout.Result, bool, error) {
	t, err := c.store.GetTryout(ctx, tryoutID)
	if err != nil {
		return tryout.Result{}, false, err
	}
	sess, err := c.store.GetSession(ctx, userID, tryoutID)
	if err != nil {
		return tryout.Result{}, false, err
	}
	if !Expired(t.DurationMinutes*60, sess.StartedAt, c.now()) {
		return tryout.Result{}, false, nil
	}
	res, err := c.Submit(ctx, userID, tryoutID)
	if err != nil {
		return tryout.Result{}, true, err
	}
	return res, true, nil
}
