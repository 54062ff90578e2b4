package tryout

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// memoryStore backs tests and offline demos. Same semantics as SQLStore,
// including the attempt-ordinal uniqueness check.
type memoryStore struct {
	mu        sync.RWMutex
	tryouts   map[string]Tryout
	questions map[string]Question
	sessions  map[string]Session      // key: userID|tryoutID
	results   map[string]Result       // key: result ID
	answers   map[string][]UserAnswer // key: result ID
	rankings  map[string]RankingEntry // key: userID|tryoutID
}

func NewInMemoryStore() Store {
	return &memoryStore{
		tryouts:   map[string]Tryout{},
		questions: map[string]Question{},
		sessions:  map[string]Session{},
		results:   map[string]Result{},
		answers:   map[string][]UserAnswer{},
		rankings:  map[string]RankingEntry{},
	}
}

func pairKey(userID, tryoutID string) string { return userID + "|" + tryoutID }

func (m *memoryStore) PutTryout(_ context.Context, t Tryout) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.tryouts[t.ID]; ok {
		t.QuestionCount = old.QuestionCount
		t.CreatedAt = old.CreatedAt
	}
	m.tryouts[t.ID] = t
	return nil
}

func (m *memoryStore) GetTryout(_ context.Context, id string) (Tryout, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tryouts[id]
	if !ok {
		return Tryout{}, ErrTryoutNotFound
	}
	return t, nil
}

func (m *memoryStore) ListTryouts(_ context.Context, opts ListOpts) ([]Tryout, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Tryout{}
	for _, t := range m.tryouts {
		if opts.ActiveOnly && !t.Active {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return out, nil
}

func (m *memoryStore) DeleteTryout(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tryouts[id]; !ok {
		return ErrTryoutNotFound
	}
	delete(m.tryouts, id)
	for qid, q := range m.questions {
		if q.TryoutID == id {
			delete(m.questions, qid)
		}
	}
	return nil
}

func (m *memoryStore) AddQuestion(_ context.Context, q Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tryouts[q.TryoutID]
	if !ok {
		return ErrTryoutNotFound
	}
	m.questions[q.ID] = q
	t.QuestionCount++
	m.tryouts[q.TryoutID] = t
	return nil
}

func (m *memoryStore) UpdateQuestion(_ context.Context, q Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.questions[q.ID]; !ok {
		return ErrQuestionNotFound
	}
	m.questions[q.ID] = q
	return nil
}

func (m *memoryStore) DeleteQuestion(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.questions[id]
	if !ok {
		return ErrQuestionNotFound
	}
	delete(m.questions, id)
	if t, ok := m.tryouts[q.TryoutID]; ok && t.QuestionCount > 0 {
		t.QuestionCount--
		m.tryouts[q.TryoutID] = t
	}
	return nil
}

func (m *memoryStore) GetQuestion(_ context.Context, id string) (Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.questions[id]
	if !ok {
		return Question{}, ErrQuestionNotFound
	}
	return q, nil
}

func (m *memoryStore) ListQuestions(_ context.Context, tryoutID string, withKeys bool) ([]Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Question{}
	for _, q := range m.questions {
		if q.TryoutID == tryoutID {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].ID < out[j].ID
	})
	if !withKeys {
		out = StripKeys(out)
	}
	return out, nil
}

func (m *memoryStore) StartSession(_ context.Context, userID, tryoutID string, now int64) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := pairKey(userID, tryoutID)
	if sess, ok := m.sessions[k]; ok {
		return sess, nil
	}
	sess := Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		TryoutID:  tryoutID,
		StartedAt: now,
		Draft:     Draft{Answers: map[string]Answer{}},
	}
	m.sessions[k] = sess
	return sess, nil
}

func (m *memoryStore) GetSession(_ context.Context, userID, tryoutID string) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[pairKey(userID, tryoutID)]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return sess, nil
}

func (m *memoryStore) SaveDraft(_ context.Context, userID, tryoutID string, d Draft) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := pairKey(userID, tryoutID)
	sess, ok := m.sessions[k]
	if !ok {
		return ErrSessionNotFound
	}
	sess.Draft = d
	m.sessions[k] = sess
	return nil
}

func (m *memoryStore) DeleteSession(_ context.Context, userID, tryoutID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, pairKey(userID, tryoutID))
	return nil
}

func (m *memoryStore) CountResults(_ context.Context, userID, tryoutID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, r := range m.results {
		if r.UserID == userID && r.TryoutID == tryoutID {
			n++
		}
	}
	return n, nil
}

func (m *memoryStore) CreateResult(_ context.Context, res Result, rank *RankingEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.results {
		if r.UserID == res.UserID && r.TryoutID == res.TryoutID && r.AttemptNumber == res.AttemptNumber {
			return ErrAttemptConflict
		}
	}
	m.results[res.ID] = res
	if rank != nil {
		m.rankings[pairKey(rank.UserID, rank.TryoutID)] = *rank
	}
	return nil
}

func (m *memoryStore) InsertUserAnswer(_ context.Context, ua UserAnswer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.answers[ua.ResultID] = append(m.answers[ua.ResultID], ua)
	return nil
}

func (m *memoryStore) ListUserAnswers(_ context.Context, resultID string) ([]UserAnswer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]UserAnswer, len(m.answers[resultID]))
	copy(out, m.answers[resultID])
	return out, nil
}

func (m *memoryStore) GetResult(_ context.Context, id string) (Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.results[id]
	if !ok {
		return Result{}, ErrResultNotFound
	}
	return r, nil
}

func (m *memoryStore) ListResults(_ context.Context, userID, tryoutID string) ([]Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Result{}
	for _, r := range m.results {
		if r.UserID != userID {
			continue
		}
		if tryoutID != "" && r.TryoutID != tryoutID {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CompletedAt > out[j].CompletedAt })
	return out, nil
}

func (m *memoryStore) GetLockedResult(_ context.Context, userID, tryoutID string) (Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.results {
		if r.UserID == userID && r.TryoutID == tryoutID && r.IsLocked {
			return r, nil
		}
	}
	return Result{}, ErrResultNotFound
}

func (m *memoryStore) ListRanking(_ context.Context, tryoutID string, limit int) ([]RankingEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []RankingEntry{}
	for _, e := range m.rankings {
		if e.TryoutID == tryoutID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].DurationSeconds != out[j].DurationSeconds {
			return out[i].DurationSeconds < out[j].DurationSeconds
		}
		return out[i].UpdatedAt < out[j].UpdatedAt
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memoryStore) GetRankingEntry(_ context.Context, userID, tryoutID string) (RankingEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.rankings[pairKey(userID, tryoutID)]
	if !ok {
		return RankingEntry{}, ErrResultNotFound
	}
	return e, nil
}

// NewID is a convenience for handlers creating tryouts/questions.
func NewID() string { return uuid.NewString() }
