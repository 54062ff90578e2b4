package attempt

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/gameCahya/tryout-tka-sub000/internal/tryout"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func intPtr(v int) *int { return &v }

// seedTryout creates a 3-question single-choice tryout with correct indices
// [1, 0, 2] and returns its ID.
func seedTryout(t *testing.T, store tryout.Store) string {
	t.Helper()
	ctx := context.Background()
	to := tryout.Tryout{ID: "to-1", Title: "Tryout TKA 1", DurationMinutes: 10, Active: true}
	if err := store.PutTryout(ctx, to); err != nil {
		t.Fatal(err)
	}
	correct := []int{1, 0, 2}
	for i, c := range correct {
		q := tryout.Question{
			ID: []string{"q1", "q2", "q3"}[i], TryoutID: to.ID,
			Type: tryout.QuestionSingle, Prompt: "soal",
			Options: []string{"A", "B", "C", "D"}, CorrectIndex: intPtr(c), Position: i,
		}
		if err := store.AddQuestion(ctx, q); err != nil {
			t.Fatal(err)
		}
	}
	return to.ID
}

func draftOf(selections []int) tryout.Draft {
	d := tryout.Draft{Answers: map[string]tryout.Answer{}}
	ids := []string{"q1", "q2", "q3"}
	for i, sel := range selections {
		s := sel
		d.Answers[ids[i]] = tryout.Answer{Type: tryout.QuestionSingle, Selected: &s}
	}
	return d
}

func newTestCoordinator(store tryout.Store) *Coordinator {
	c := NewCoordinator(store, nil, quietLogger())
	base := int64(1_700_000_000)
	c.now = func() int64 { return base }
	return c
}

func TestFirstAttemptLocksAndRanks(t *testing.T) {
	ctx := context.Background()
	store := tryout.NewInMemoryStore()
	toID := seedTryout(t, store)
	c := newTestCoordinator(store)

	if _, _, err := c.Start(ctx, "user-1", toID); err != nil {
		t.Fatal(err)
	}
	if err := c.SaveDraft(ctx, "user-1", toID, draftOf([]int{1, 0, 2})); err != nil {
		t.Fatal(err)
	}
	res, err := c.Submit(ctx, "user-1", toID)
	if err != nil {
		t.Fatal(err)
	}

	if res.AttemptNumber != 1 || !res.IsLocked {
		t.Fatalf("first attempt: number=%d locked=%v", res.AttemptNumber, res.IsLocked)
	}
	if res.Score != 3 || res.Percentage != 100.0 {
		t.Fatalf("first attempt: score=%d pct=%v", res.Score, res.Percentage)
	}

	rank, err := store.GetRankingEntry(ctx, "user-1", toID)
	if err != nil {
		t.Fatal(err)
	}
	if rank.Score != 3 || rank.ResultID != res.ID {
		t.Fatalf("ranking not mirroring locked result: %+v", rank)
	}

	// draft must be gone so the next attempt starts blank
	if _, err := store.GetSession(ctx, "user-1", toID); !errors.Is(err, tryout.ErrSessionNotFound) {
		t.Fatalf("session still present after submit: %v", err)
	}
}

func TestSecondAttemptIsPracticeOnly(t *testing.T) {
	ctx := context.Background()
	store := tryout.NewInMemoryStore()
	toID := seedTryout(t, store)
	c := newTestCoordinator(store)

	mustSubmit := func(sel []int) tryout.Result {
		t.Helper()
		if _, _, err := c.Start(ctx, "user-1", toID); err != nil {
			t.Fatal(err)
		}
		if err := c.SaveDraft(ctx, "user-1", toID, draftOf(sel)); err != nil {
			t.Fatal(err)
		}
		res, err := c.Submit(ctx, "user-1", toID)
		if err != nil {
			t.Fatal(err)
		}
		return res
	}

	first := mustSubmit([]int{1, 0, 2})
	second := mustSubmit([]int{0, 0, 0})

	if second.AttemptNumber != 2 || second.IsLocked {
		t.Fatalf("second attempt: number=%d locked=%v", second.AttemptNumber, second.IsLocked)
	}
	if second.Score != 1 {
		t.Fatalf("second attempt score = %d, want 1", second.Score)
	}

	rank, err := store.GetRankingEntry(ctx, "user-1", toID)
	if err != nil {
		t.Fatal(err)
	}
	if rank.Score != 3 || rank.ResultID != first.ID {
		t.Fatalf("ranking changed by practice attempt: %+v", rank)
	}
}

// Even a perfect score on attempt #2 must not promote it to the leaderboard.
func TestHigherScoreLaterDoesNotPromote(t *testing.T) {
	ctx := context.Background()
	store := tryout.NewInMemoryStore()
	toID := seedTryout(t, store)
	c := newTestCoordinator(store)

	submit := func(sel []int) tryout.Result {
		t.Helper()
		if _, _, err := c.Start(ctx, "user-1", toID); err != nil {
			t.Fatal(err)
		}
		if err := c.SaveDraft(ctx, "user-1", toID, draftOf(sel)); err != nil {
			t.Fatal(err)
		}
		res, err := c.Submit(ctx, "user-1", toID)
		if err != nil {
			t.Fatal(err)
		}
		return res
	}

	submit([]int{0, 1, 0}) // 0/3, locked
	submit([]int{1, 0, 2}) // 3/3, practice

	rank, err := store.GetRankingEntry(ctx, "user-1", toID)
	if err != nil {
		t.Fatal(err)
	}
	if rank.Score != 0 {
		t.Fatalf("anti-gaming rule violated: ranking score = %d, want 0", rank.Score)
	}
}

func TestLockInvariant(t *testing.T) {
	ctx := context.Background()
	store := tryout.NewInMemoryStore()
	toID := seedTryout(t, store)
	c := newTestCoordinator(store)

	for i := 0; i < 3; i++ {
		if _, _, err := c.Start(ctx, "user-1", toID); err != nil {
			t.Fatal(err)
		}
		if err := c.SaveDraft(ctx, "user-1", toID, draftOf([]int{1, 0, 2})); err != nil {
			t.Fatal(err)
		}
		if _, err := c.Submit(ctx, "user-1", toID); err != nil {
			t.Fatal(err)
		}
	}

	results, err := store.ListResults(ctx, "user-1", toID)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}
	locked := 0
	for _, r := range results {
		if r.IsLocked {
			locked++
			if r.AttemptNumber != 1 {
				t.Fatalf("locked result has attempt_number %d", r.AttemptNumber)
			}
		}
	}
	if locked != 1 {
		t.Fatalf("locked results = %d, want exactly 1", locked)
	}

	// ranking must exactly mirror the locked result
	lockedRes, err := store.GetLockedResult(ctx, "user-1", toID)
	if err != nil {
		t.Fatal(err)
	}
	rank, err := store.GetRankingEntry(ctx, "user-1", toID)
	if err != nil {
		t.Fatal(err)
	}
	if rank.Score != lockedRes.Score || rank.Percentage != lockedRes.Percentage ||
		rank.DurationSeconds != lockedRes.DurationSeconds ||
		rank.CorrectCount != lockedRes.CorrectCount || rank.WrongCount != lockedRes.WrongCount {
		t.Fatalf("ranking does not mirror locked result:\nrank   %+v\nresult %+v", rank, lockedRes)
	}
}

func TestDoubleSubmitGuard(t *testing.T) {
	ctx := context.Background()
	store := tryout.NewInMemoryStore()
	toID := seedTryout(t, store)
	c := newTestCoordinator(store)

	sess, _, err := c.Start(ctx, "user-1", toID)
	if err != nil {
		t.Fatal(err)
	}

	// simulate the expiry callback holding the submitting state while the
	// finish button fires
	if err := c.begin(sess.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Submit(ctx, "user-1", toID); !errors.Is(err, ErrSubmitInFlight) {
		t.Fatalf("concurrent submit error = %v, want ErrSubmitInFlight", err)
	}
	c.finish(sess.ID, StateIdle)

	if _, err := c.Submit(ctx, "user-1", toID); err != nil {
		t.Fatalf("submit after guard release: %v", err)
	}
	if _, err := c.Submit(ctx, "user-1", toID); !errors.Is(err, tryout.ErrSessionNotFound) {
		t.Fatalf("re-submit of cleared session: %v", err)
	}
}

type failingResultStore struct {
	tryout.Store
	err error
}

func (f *failingResultStore) CreateResult(ctx context.Context, res tryout.Result, rank *tryout.RankingEntry) error {
	if f.err != nil {
		return f.err
	}
	return f.Store.CreateResult(ctx, res, rank)
}

func TestResultInsertFailurePreservesDraft(t *testing.T) {
	ctx := context.Background()
	base := tryout.NewInMemoryStore()
	toID := seedTryout(t, base)
	store := &failingResultStore{Store: base, err: errors.New("db down")}
	c := newTestCoordinator(store)

	sess, _, err := c.Start(ctx, "user-1", toID)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.SaveDraft(ctx, "user-1", toID, draftOf([]int{1, 0, 2})); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Submit(ctx, "user-1", toID); err == nil {
		t.Fatal("submit succeeded despite result insert failure")
	}
	if got := c.StateOf(sess.ID); got != StateFailed {
		t.Fatalf("state after failure = %s, want failed", got)
	}

	// draft survives for retry
	got, err := base.GetSession(ctx, "user-1", toID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Draft.Answers) != 3 {
		t.Fatalf("draft lost on failed submit: %d answers", len(got.Draft.Answers))
	}

	// failed state is re-enterable once the store recovers
	store.err = nil
	res, err := c.Submit(ctx, "user-1", toID)
	if err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
	if res.Score != 3 {
		t.Fatalf("retry score = %d, want 3", res.Score)
	}
}

type flakySnapshotStore struct {
	tryout.Store
	failAfter int
	calls     int
}

func (f *flakySnapshotStore) InsertUserAnswer(ctx context.Context, ua tryout.UserAnswer) error {
	f.calls++
	if f.calls > f.failAfter {
		return errors.New("disk full")
	}
	return f.Store.InsertUserAnswer(ctx, ua)
}

// Losing snapshot rows after the result committed must not fail the attempt.
func TestPartialSnapshotLossTolerated(t *testing.T) {
	ctx := context.Background()
	base := tryout.NewInMemoryStore()
	toID := seedTryout(t, base)
	store := &flakySnapshotStore{Store: base, failAfter: 1}
	c := newTestCoordinator(store)

	if _, _, err := c.Start(ctx, "user-1", toID); err != nil {
		t.Fatal(err)
	}
	if err := c.SaveDraft(ctx, "user-1", toID, draftOf([]int{1, 0, 2})); err != nil {
		t.Fatal(err)
	}
	res, err := c.Submit(ctx, "user-1", toID)
	if err != nil {
		t.Fatalf("submit failed on snapshot loss: %v", err)
	}

	if _, err := base.GetResult(ctx, res.ID); err != nil {
		t.Fatalf("result missing after tolerated snapshot loss: %v", err)
	}
	answers, err := base.ListUserAnswers(ctx, res.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(answers) != 1 {
		t.Fatalf("snapshot rows = %d, want the 1 that succeeded", len(answers))
	}
}

func TestSubmitIfExpired(t *testing.T) {
	ctx := context.Background()
	store := tryout.NewInMemoryStore()
	toID := seedTryout(t, store)
	c := newTestCoordinator(store)

	if _, _, err := c.Start(ctx, "user-1", toID); err != nil {
		t.Fatal(err)
	}

	// clock still inside the window: nothing happens
	if _, fired, err := c.SubmitIfExpired(ctx, "user-1", toID); err != nil || fired {
		t.Fatalf("premature expiry submit: fired=%v err=%v", fired, err)
	}

	// jump past the 10-minute window
	base := int64(1_700_000_000)
	c.now = func() int64 { return base + 601 }
	res, fired, err := c.SubmitIfExpired(ctx, "user-1", toID)
	if err != nil || !fired {
		t.Fatalf("expiry submit: fired=%v err=%v", fired, err)
	}
	if res.UnansweredCount != 3 {
		t.Fatalf("expired empty draft: unanswered=%d, want 3", res.UnansweredCount)
	}
	if res.DurationSeconds != 600 {
		t.Fatalf("duration clamped = %d, want 600", res.DurationSeconds)
	}
}
