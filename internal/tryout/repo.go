package tryout

import (
	"context"
	"errors"
)

var (
	ErrTryoutNotFound   = errors.New("tryout tidak ditemukan")
	ErrQuestionNotFound = errors.New("soal tidak ditemukan")
	ErrSessionNotFound  = errors.New("sesi pengerjaan tidak ditemukan")
	ErrResultNotFound   = errors.New("hasil tidak ditemukan")

	// ErrAttemptConflict is returned when two submissions race for the same
	// attempt ordinal; the losing one keeps its draft and may retry.
	ErrAttemptConflict = errors.New("percobaan dengan nomor yang sama sudah tersimpan")
)

type ListOpts struct {
	Q          string
	ActiveOnly bool
	Limit      int
	Offset     int
}

type Store interface {
	PutTryout(ctx context.Context, t Tryout) error
	GetTryout(ctx context.Context, id string) (Tryout, error)
	ListTryouts(ctx context.Context, opts ListOpts) ([]Tryout, error)
	DeleteTryout(ctx context.Context, id string) error

	// AddQuestion / DeleteQuestion keep the parent tryout's question_count in step.
	AddQuestion(ctx context.Context, q Question) error
	UpdateQuestion(ctx context.Context, q Question) error
	DeleteQuestion(ctx context.Context, id string) error
	GetQuestion(ctx context.Context, id string) (Question, error)
	// ListQuestions returns questions ordered by position. withKeys=false is
	// the student-safe view (no answer keys, no explanations).
	ListQuestions(ctx context.Context, tryoutID string, withKeys bool) ([]Question, error)

	// StartSession returns the existing in-progress session for (user, tryout)
	// if one exists; the persisted start timestamp is never reset.
	StartSession(ctx context.Context, userID, tryoutID string, now int64) (Session, error)
	GetSession(ctx context.Context, userID, tryoutID string) (Session, error)
	SaveDraft(ctx context.Context, userID, tryoutID string, d Draft) error
	DeleteSession(ctx context.Context, userID, tryoutID string) error

	CountResults(ctx context.Context, userID, tryoutID string) (int, error)
	// CreateResult inserts the result row and, when rank is non-nil, upserts the
	// ranking mirror in the same transaction. A duplicate attempt ordinal maps
	// to ErrAttemptConflict.
	CreateResult(ctx context.Context, res Result, rank *RankingEntry) error
	InsertUserAnswer(ctx context.Context, ua UserAnswer) error
	ListUserAnswers(ctx context.Context, resultID string) ([]UserAnswer, error)
	GetResult(ctx context.Context, id string) (Result, error)
	ListResults(ctx context.Context, userID, tryoutID string) ([]Result, error)
	// GetLockedResult returns the ranking-authoritative result for the pair.
	GetLockedResult(ctx context.Context, userID, tryoutID string) (Result, error)

	// ListRanking returns leaderboard rows for a tryout, best score first,
	// ties broken by shorter duration.
	ListRanking(ctx context.Context, tryoutID string, limit int) ([]RankingEntry, error)
	GetRankingEntry(ctx context.Context, userID, tryoutID string) (RankingEntry, error)
}
