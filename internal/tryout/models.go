package tryout

// QuestionType tags the three supported question shapes.
type QuestionType string

const (
	QuestionSingle    QuestionType = "single"    // one correct option index
	QuestionMultiple  QuestionType = "multiple"  // set of correct option indices, exact match
	QuestionReasoning QuestionType = "reasoning" // per-statement true/false matrix
)

type Tryout struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	QuestionCount   int    `json:"question_count"`
	DurationMinutes int    `json:"duration_minutes"`
	Active          bool   `json:"active"`
	CreatedAt       int64  `json:"created_at,omitempty"`
}

// Question belongs to exactly one Tryout. Options is the ordered list of
// option texts; for reasoning questions each option is a statement judged
// independently. The answer key fields are populated per Type and stripped
// before serving to students.
type Question struct {
	ID       string       `json:"id"`
	TryoutID string       `json:"tryout_id"`
	Type     QuestionType `json:"type"`
	Prompt   string       `json:"prompt"`
	Options  []string     `json:"options"`

	CorrectIndex  *int         `json:"correct_index,omitempty"`  // single
	CorrectSet    []int        `json:"correct_set,omitempty"`    // multiple
	CorrectMatrix map[int]bool `json:"correct_matrix,omitempty"` // reasoning

	Explanation string `json:"explanation,omitempty"` // payment-gated
	ImageKey    string `json:"image_key,omitempty"`
	Position    int    `json:"position"`
}

// Answer is the tagged union of the three draft shapes. Exactly one of the
// payload fields is meaningful, selected by Type.
type Answer struct {
	Type        QuestionType `json:"type"`
	Selected    *int         `json:"selected,omitempty"`     // single
	SelectedSet []int        `json:"selected_set,omitempty"` // multiple
	Matrix      map[int]bool `json:"matrix,omitempty"`       // reasoning: statement index -> truth
}

// Draft is the in-progress answer state for one attempt, keyed by question ID.
// It is durable across reloads and cleared on successful submission.
type Draft struct {
	Answers map[string]Answer `json:"answers"`
}

// Session is one in-progress attempt of a tryout by a user. StartedAt is
// persisted at first entry and reused on re-entry, never reset.
type Session struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	TryoutID  string `json:"tryout_id"`
	StartedAt int64  `json:"started_at"`
	Draft     Draft  `json:"draft"`
}

// Result is one completed attempt. AttemptNumber increases per (user, tryout);
// at most one Result per pair has IsLocked=true and it is always attempt #1.
type Result struct {
	ID              string  `json:"id"`
	UserID          string  `json:"user_id"`
	TryoutID        string  `json:"tryout_id"`
	AttemptNumber   int     `json:"attempt_number"`
	CorrectCount    int     `json:"correct_count"`
	WrongCount      int     `json:"wrong_count"`
	UnansweredCount int     `json:"unanswered_count"`
	TotalQuestions  int     `json:"total_questions"`
	Score           int     `json:"score"`
	Percentage      float64 `json:"percentage"`
	DurationSeconds int     `json:"duration_seconds"`
	IsLocked        bool    `json:"is_locked"`
	CompletedAt     int64   `json:"completed_at"`
}

// UserAnswer is the per-question snapshot of what was submitted.
type UserAnswer struct {
	ID         string `json:"id"`
	ResultID   string `json:"result_id"`
	UserID     string `json:"user_id"`
	TryoutID   string `json:"tryout_id"`
	QuestionID string `json:"question_id"`
	Answer     Answer `json:"answer"`
	IsCorrect  bool   `json:"is_correct"`
	HasAnswer  bool   `json:"has_answer"`
	CreatedAt  int64  `json:"created_at"`
}

// RankingEntry mirrors the locked Result for one (user, tryout) pair.
// UserName is denormalized for leaderboard rendering.
type RankingEntry struct {
	UserID          string  `json:"user_id"`
	TryoutID        string  `json:"tryout_id"`
	ResultID        string  `json:"result_id"`
	UserName        string  `json:"user_name,omitempty"`
	Score           int     `json:"score"`
	Percentage      float64 `json:"percentage"`
	CorrectCount    int     `json:"correct_count"`
	WrongCount      int     `json:"wrong_count"`
	DurationSeconds int     `json:"duration_seconds"`
	UpdatedAt       int64   `json:"updated_at"`
}

// IsRankingAuthoritative is the first-attempt-wins rule: only attempt #1
// contributes to the leaderboard, later attempts are practice-only.
func IsRankingAuthoritative(attemptNumber int) bool {
	return attemptNumber == 1
}

// StripKeys removes answer keys and explanations so a question can be served
// to a student mid-attempt.
func StripKeys(qs []Question) []Question {
	out := make([]Question, len(qs))
	copy(out, qs)
	for i := range out {
		out[i].CorrectIndex = nil
		out[i].CorrectSet = nil
		out[i].CorrectMatrix = nil
		out[i].Explanation = ""
	}
	return out
}
