package tryout

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// answerKey is the JSON shape of the questions.answer_key_json column.
type answerKey struct {
	CorrectIndex  *int         `json:"correct_index,omitempty"`
	CorrectSet    []int        `json:"correct_set,omitempty"`
	CorrectMatrix map[int]bool `json:"correct_matrix,omitempty"`
}

func (s *SQLStore) PutTryout(ctx context.Context, t Tryout) error {
	if t.CreatedAt == 0 {
		t.CreatedAt = time.Now().Unix()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO tryouts (id,title,question_count,duration_minutes,active,created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (id) DO UPDATE SET title=EXCLUDED.title, duration_minutes=EXCLUDED.duration_minutes, active=EXCLUDED.active`,
		t.ID, t.Title, t.QuestionCount, t.DurationMinutes, t.Active, t.CreatedAt)
	return err
}

func (s *SQLStore) GetTryout(ctx context.Context, id string) (Tryout, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,title,question_count,duration_minutes,active,created_at FROM tryouts WHERE id=$1`, id)
	var t Tryout
	if err := row.Scan(&t.ID, &t.Title, &t.QuestionCount, &t.DurationMinutes, &t.Active, &t.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Tryout{}, ErrTryoutNotFound
		}
		return Tryout{}, err
	}
	return t, nil
}

func (s *SQLStore) ListTryouts(ctx context.Context, opts ListOpts) ([]Tryout, error) {
	if opts.Limit <= 0 || opts.Limit > 200 {
		opts.Limit = 50
	}
	q := `SELECT id,title,question_count,duration_minutes,active,created_at FROM tryouts WHERE 1=1`
	args := []interface{}{}
	n := 1
	if opts.ActiveOnly {
		q += ` AND active=` + ph(n)
		args = append(args, true)
		n++
	}
	if strings.TrimSpace(opts.Q) != "" {
		q += ` AND title LIKE ` + ph(n)
		args = append(args, "%"+strings.TrimSpace(opts.Q)+"%")
		n++
	}
	q += ` ORDER BY created_at DESC LIMIT ` + ph(n) + ` OFFSET ` + ph(n+1)
	args = append(args, opts.Limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Tryout{}
	for rows.Next() {
		var t Tryout
		if err := rows.Scan(&t.ID, &t.Title, &t.QuestionCount, &t.DurationMinutes, &t.Active, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLStore) DeleteTryout(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tryouts WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrTryoutNotFound
	}
	return nil
}

func (s *SQLStore) AddQuestion(ctx context.Context, q Question) error {
	oj, err := json.Marshal(q.Options)
	if err != nil {
		return err
	}
	kj, err := json.Marshal(answerKey{CorrectIndex: q.CorrectIndex, CorrectSet: q.CorrectSet, CorrectMatrix: q.CorrectMatrix})
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT INTO questions (id,tryout_id,qtype,prompt,options_json,answer_key_json,explanation,image_key,position)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		q.ID, q.TryoutID, string(q.Type), q.Prompt, string(oj), string(kj), q.Explanation, q.ImageKey, q.Position); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE tryouts SET question_count=question_count+1 WHERE id=$1`, q.TryoutID); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLStore) UpdateQuestion(ctx context.Context, q Question) error {
	oj, err := json.Marshal(q.Options)
	if err != nil {
		return err
	}
	kj, err := json.Marshal(answerKey{CorrectIndex: q.CorrectIndex, CorrectSet: q.CorrectSet, CorrectMatrix: q.CorrectMatrix})
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE questions SET qtype=$1, prompt=$2, options_json=$3, answer_key_json=$4, explanation=$5, image_key=$6, position=$7 WHERE id=$8`,
		string(q.Type), q.Prompt, string(oj), string(kj), q.Explanation, q.ImageKey, q.Position, q.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrQuestionNotFound
	}
	return nil
}

func (s *SQLStore) DeleteQuestion(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var tryoutID string
	if err := tx.QueryRowContext(ctx, `SELECT tryout_id FROM questions WHERE id=$1`, id).Scan(&tryoutID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrQuestionNotFound
		}
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM questions WHERE id=$1`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE tryouts SET question_count=question_count-1 WHERE id=$1 AND question_count>0`, tryoutID); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLStore) GetQuestion(ctx context.Context, id string) (Question, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,tryout_id,qtype,prompt,options_json,answer_key_json,explanation,image_key,position FROM questions WHERE id=$1`, id)
	q, err := scanQuestion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Question{}, ErrQuestionNotFound
	}
	return q, err
}

func (s *SQLStore) ListQuestions(ctx context.Context, tryoutID string, withKeys bool) ([]Question, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,tryout_id,qtype,prompt,options_json,answer_key_json,explanation,image_key,position
		FROM questions WHERE tryout_id=$1 ORDER BY position, id`, tryoutID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Question{}
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if !withKeys {
		out = StripKeys(out)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanQuestion(r rowScanner) (Question, error) {
	var q Question
	var qtype, oj, kj string
	if err := r.Scan(&q.ID, &q.TryoutID, &qtype, &q.Prompt, &oj, &kj, &q.Explanation, &q.ImageKey, &q.Position); err != nil {
		return Question{}, err
	}
	q.Type = QuestionType(qtype)
	if err := json.Unmarshal([]byte(oj), &q.Options); err != nil {
		return Question{}, err
	}
	var k answerKey
	if err := json.Unmarshal([]byte(kj), &k); err != nil {
		return Question{}, err
	}
	q.CorrectIndex, q.CorrectSet, q.CorrectMatrix = k.CorrectIndex, k.CorrectSet, k.CorrectMatrix
	return q, nil
}

func (s *SQLStore) StartSession(ctx context.Context, userID, tryoutID string, now int64) (Session, error) {
	existing, err := s.GetSession(ctx, userID, tryoutID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrSessionNotFound) {
		return Session{}, err
	}
	sess := Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		TryoutID:  tryoutID,
		StartedAt: now,
		Draft:     Draft{Answers: map[string]Answer{}},
	}
	dj, _ := json.Marshal(sess.Draft)
	_, err = s.db.ExecContext(ctx, `INSERT INTO attempt_sessions (id,user_id,tryout_id,started_at,draft_json)
		VALUES ($1,$2,$3,$4,$5)`,
		sess.ID, sess.UserID, sess.TryoutID, sess.StartedAt, string(dj))
	if err != nil {
		if isUniqueViolation(err) {
			// another tab won the insert; reuse its start timestamp
			return s.GetSession(ctx, userID, tryoutID)
		}
		return Session{}, err
	}
	return sess, nil
}

func (s *SQLStore) GetSession(ctx context.Context, userID, tryoutID string) (Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,user_id,tryout_id,started_at,draft_json FROM attempt_sessions WHERE user_id=$1 AND tryout_id=$2`, userID, tryoutID)
	var sess Session
	var dj string
	if err := row.Scan(&sess.ID, &sess.UserID, &sess.TryoutID, &sess.StartedAt, &dj); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, ErrSessionNotFound
		}
		return Session{}, err
	}
	if err := json.Unmarshal([]byte(dj), &sess.Draft); err != nil {
		sess.Draft = Draft{Answers: map[string]Answer{}}
	}
	if sess.Draft.Answers == nil {
		sess.Draft.Answers = map[string]Answer{}
	}
	return sess, nil
}

func (s *SQLStore) SaveDraft(ctx context.Context, userID, tryoutID string, d Draft) error {
	dj, err := json.Marshal(d)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE attempt_sessions SET draft_json=$1 WHERE user_id=$2 AND tryout_id=$3`, string(dj), userID, tryoutID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (s *SQLStore) DeleteSession(ctx context.Context, userID, tryoutID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM attempt_sessions WHERE user_id=$1 AND tryout_id=$2`, userID, tryoutID)
	return err
}

func (s *SQLStore) CountResults(ctx context.Context, userID, tryoutID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM results WHERE user_id=$1 AND tryout_id=$2`, userID, tryoutID).Scan(&n)
	return n, err
}

func (s *SQLStore) CreateResult(ctx context.Context, res Result, rank *RankingEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT INTO results
		(id,user_id,tryout_id,attempt_number,correct_count,wrong_count,unanswered_count,total_questions,score,percentage,duration_seconds,is_locked,completed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		res.ID, res.UserID, res.TryoutID, res.AttemptNumber, res.CorrectCount, res.WrongCount, res.UnansweredCount,
		res.TotalQuestions, res.Score, res.Percentage, res.DurationSeconds, res.IsLocked, res.CompletedAt); err != nil {
		if isUniqueViolation(err) {
			return ErrAttemptConflict
		}
		return err
	}

	if rank != nil {
		if _, err := tx.ExecContext(ctx, `INSERT INTO rankings
			(user_id,tryout_id,result_id,user_name,score,percentage,correct_count,wrong_count,duration_seconds,updated_at)
			VALUES ($1,$2,$3,COALESCE((SELECT name FROM users WHERE id=$1),''),$4,$5,$6,$7,$8,$9)
			ON CONFLICT (user_id,tryout_id) DO UPDATE SET
				result_id=EXCLUDED.result_id, score=EXCLUDED.score, percentage=EXCLUDED.percentage,
				correct_count=EXCLUDED.correct_count, wrong_count=EXCLUDED.wrong_count,
				duration_seconds=EXCLUDED.duration_seconds, updated_at=EXCLUDED.updated_at`,
			rank.UserID, rank.TryoutID, rank.ResultID, rank.Score, rank.Percentage,
			rank.CorrectCount, rank.WrongCount, rank.DurationSeconds, rank.UpdatedAt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLStore) InsertUserAnswer(ctx context.Context, ua UserAnswer) error {
	aj, err := json.Marshal(ua.Answer)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO user_answers (id,result_id,user_id,tryout_id,question_id,answer_json,is_correct,has_answer,created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		ua.ID, ua.ResultID, ua.UserID, ua.TryoutID, ua.QuestionID, string(aj), ua.IsCorrect, ua.HasAnswer, ua.CreatedAt)
	return err
}

func (s *SQLStore) ListUserAnswers(ctx context.Context, resultID string) ([]UserAnswer, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,result_id,user_id,tryout_id,question_id,answer_json,is_correct,has_answer,created_at
		FROM user_answers WHERE result_id=$1 ORDER BY created_at, id`, resultID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []UserAnswer{}
	for rows.Next() {
		var ua UserAnswer
		var aj string
		if err := rows.Scan(&ua.ID, &ua.ResultID, &ua.UserID, &ua.TryoutID, &ua.QuestionID, &aj, &ua.IsCorrect, &ua.HasAnswer, &ua.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(aj), &ua.Answer); err != nil {
			return nil, err
		}
		out = append(out, ua)
	}
	return out, rows.Err()
}

func (s *SQLStore) GetResult(ctx context.Context, id string) (Result, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,user_id,tryout_id,attempt_number,correct_count,wrong_count,unanswered_count,total_questions,score,percentage,duration_seconds,is_locked,completed_at
		FROM results WHERE id=$1`, id)
	return scanResult(row)
}

func (s *SQLStore) ListResults(ctx context.Context, userID, tryoutID string) ([]Result, error) {
	q := `SELECT id,user_id,tryout_id,attempt_number,correct_count,wrong_count,unanswered_count,total_questions,score,percentage,duration_seconds,is_locked,completed_at
		FROM results WHERE user_id=$1`
	args := []interface{}{userID}
	if tryoutID != "" {
		q += ` AND tryout_id=$2`
		args = append(args, tryoutID)
	}
	q += ` ORDER BY completed_at DESC`
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Result{}
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLStore) GetLockedResult(ctx context.Context, userID, tryoutID string) (Result, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,user_id,tryout_id,attempt_number,correct_count,wrong_count,unanswered_count,total_questions,score,percentage,duration_seconds,is_locked,completed_at
		FROM results WHERE user_id=$1 AND tryout_id=$2 AND is_locked=$3`, userID, tryoutID, true)
	return scanResult(row)
}

func scanResult(r rowScanner) (Result, error) {
	var res Result
	if err := r.Scan(&res.ID, &res.UserID, &res.TryoutID, &res.AttemptNumber, &res.CorrectCount, &res.WrongCount,
		&res.UnansweredCount, &res.TotalQuestions, &res.Score, &res.Percentage, &res.DurationSeconds, &res.IsLocked, &res.CompletedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Result{}, ErrResultNotFound
		}
		return Result{}, err
	}
	return res, nil
}

func (s *SQLStore) ListRanking(ctx context.Context, tryoutID string, limit int) ([]RankingEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `SELECT user_id,tryout_id,result_id,user_name,score,percentage,correct_count,wrong_count,duration_seconds,updated_at
		FROM rankings WHERE tryout_id=$1 ORDER BY score DESC, duration_seconds ASC, updated_at ASC LIMIT $2`, tryoutID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []RankingEntry{}
	for rows.Next() {
		var e RankingEntry
		if err := rows.Scan(&e.UserID, &e.TryoutID, &e.ResultID, &e.UserName, &e.Score, &e.Percentage,
			&e.CorrectCount, &e.WrongCount, &e.DurationSeconds, &e.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLStore) GetRankingEntry(ctx context.Context, userID, tryoutID string) (RankingEntry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT user_id,tryout_id,result_id,user_name,score,percentage,correct_count,wrong_count,duration_seconds,updated_at
		FROM rankings WHERE user_id=$1 AND tryout_id=$2`, userID, tryoutID)
	var e RankingEntry
	if err := row.Scan(&e.UserID, &e.TryoutID, &e.ResultID, &e.UserName, &e.Score, &e.Percentage,
		&e.CorrectCount, &e.WrongCount, &e.DurationSeconds, &e.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RankingEntry{}, ErrResultNotFound
		}
		return RankingEntry{}, err
	}
	return e, nil
}

// ph returns a positional placeholder. Both supported drivers accept the
// $N form (modernc sqlite maps it to its native syntax).
func ph(n int) string {
	const digits = "0123456789"
	if n < 10 {
		return "$" + digits[n:n+1]
	}
	return "$" + digits[n/10:n/10+1] + digits[n%10:n%10+1]
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || // sqlite
		strings.Contains(msg, "duplicate key value") // postgres
}
