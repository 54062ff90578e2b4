package scoring

import (
	"testing"

	"github.com/gameCahya/tryout-tka-sub000/internal/tryout"
)

func intPtr(v int) *int { return &v }

func singleQ(id string, correct int) tryout.Question {
	return tryout.Question{
		ID: id, Type: tryout.QuestionSingle,
		Options:      []string{"A", "B", "C", "D"},
		CorrectIndex: intPtr(correct),
	}
}

func TestScoreSingle(t *testing.T) {
	tests := []struct {
		name      string
		selected  *int
		isCorrect bool
		hasAnswer bool
	}{
		{name: "correct", selected: intPtr(1), isCorrect: true, hasAnswer: true},
		{name: "wrong", selected: intPtr(0), isCorrect: false, hasAnswer: true},
		{name: "index zero is a real answer", selected: intPtr(0), isCorrect: false, hasAnswer: true},
		{name: "unanswered", selected: nil, isCorrect: false, hasAnswer: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d := tryout.Draft{Answers: map[string]tryout.Answer{}}
			if tc.selected != nil {
				d.Answers["q1"] = tryout.Answer{Type: tryout.QuestionSingle, Selected: tc.selected}
			}
			sum := Score([]tryout.Question{singleQ("q1", 1)}, d)
			qr := sum.PerQuestion[0]
			if qr.IsCorrect != tc.isCorrect || qr.HasAnswer != tc.hasAnswer {
				t.Fatalf("got correct=%v answered=%v, want correct=%v answered=%v",
					qr.IsCorrect, qr.HasAnswer, tc.isCorrect, tc.hasAnswer)
			}
		})
	}
}

func TestScoreMultipleExactSet(t *testing.T) {
	q := tryout.Question{
		ID: "q1", Type: tryout.QuestionMultiple,
		Options:    []string{"A", "B", "C", "D"},
		CorrectSet: []int{0, 2},
	}
	tests := []struct {
		name      string
		selected  []int
		isCorrect bool
		hasAnswer bool
	}{
		{name: "exact match", selected: []int{0, 2}, isCorrect: true, hasAnswer: true},
		{name: "order independent", selected: []int{2, 0}, isCorrect: true, hasAnswer: true},
		{name: "strict subset rejected", selected: []int{0}, isCorrect: false, hasAnswer: true},
		{name: "superset rejected", selected: []int{0, 2, 3}, isCorrect: false, hasAnswer: true},
		{name: "disjoint wrong", selected: []int{1, 3}, isCorrect: false, hasAnswer: true},
		{name: "empty is unanswered", selected: nil, isCorrect: false, hasAnswer: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d := tryout.Draft{Answers: map[string]tryout.Answer{}}
			if tc.selected != nil {
				d.Answers["q1"] = tryout.Answer{Type: tryout.QuestionMultiple, SelectedSet: tc.selected}
			}
			sum := Score([]tryout.Question{q}, d)
			qr := sum.PerQuestion[0]
			if qr.IsCorrect != tc.isCorrect || qr.HasAnswer != tc.hasAnswer {
				t.Fatalf("%s: got correct=%v answered=%v, want correct=%v answered=%v",
					tc.name, qr.IsCorrect, qr.HasAnswer, tc.isCorrect, tc.hasAnswer)
			}
		})
	}
}

func TestScoreReasoningMatrix(t *testing.T) {
	q := tryout.Question{
		ID: "q1", Type: tryout.QuestionReasoning,
		Options:       []string{"s0", "s1", "s2"},
		CorrectMatrix: map[int]bool{0: true, 1: false, 2: true},
	}
	tests := []struct {
		name      string
		matrix    map[int]bool
		isCorrect bool
		hasAnswer bool
	}{
		{name: "all statements match", matrix: map[int]bool{0: true, 1: false, 2: true}, isCorrect: true, hasAnswer: true},
		{name: "one statement wrong", matrix: map[int]bool{0: true, 1: true, 2: true}, isCorrect: false, hasAnswer: true},
		{name: "partial fill counts as unanswered", matrix: map[int]bool{0: true, 1: false}, isCorrect: false, hasAnswer: false},
		{name: "empty matrix unanswered", matrix: nil, isCorrect: false, hasAnswer: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d := tryout.Draft{Answers: map[string]tryout.Answer{}}
			if tc.matrix != nil {
				d.Answers["q1"] = tryout.Answer{Type: tryout.QuestionReasoning, Matrix: tc.matrix}
			}
			sum := Score([]tryout.Question{q}, d)
			qr := sum.PerQuestion[0]
			if qr.IsCorrect != tc.isCorrect || qr.HasAnswer != tc.hasAnswer {
				t.Fatalf("%s: got correct=%v answered=%v, want correct=%v answered=%v",
					tc.name, qr.IsCorrect, qr.HasAnswer, tc.isCorrect, tc.hasAnswer)
			}
		})
	}
}

// Feeding each question a draft built from its own answer key must always
// grade as correct, regardless of type.
func TestScoreRoundTrip(t *testing.T) {
	questions := []tryout.Question{
		singleQ("q1", 2),
		{ID: "q2", Type: tryout.QuestionMultiple, Options: []string{"A", "B", "C"}, CorrectSet: []int{1, 2}},
		{ID: "q3", Type: tryout.QuestionReasoning, Options: []string{"s0", "s1"}, CorrectMatrix: map[int]bool{0: false, 1: true}},
	}
	d := tryout.Draft{Answers: map[string]tryout.Answer{
		"q1": {Type: tryout.QuestionSingle, Selected: questions[0].CorrectIndex},
		"q2": {Type: tryout.QuestionMultiple, SelectedSet: questions[1].CorrectSet},
		"q3": {Type: tryout.QuestionReasoning, Matrix: questions[2].CorrectMatrix},
	}}
	sum := Score(questions, d)
	if sum.Correct != 3 || sum.Wrong != 0 || sum.Unanswered != 0 {
		t.Fatalf("round trip: correct=%d wrong=%d unanswered=%d", sum.Correct, sum.Wrong, sum.Unanswered)
	}
	if sum.Percentage != 100.0 {
		t.Fatalf("round trip percentage = %v, want 100.0", sum.Percentage)
	}
	for _, qr := range sum.PerQuestion {
		if !qr.IsCorrect {
			t.Fatalf("question %s not correct on round trip", qr.QuestionID)
		}
	}
}

func TestScoreAggregates(t *testing.T) {
	questions := []tryout.Question{singleQ("q1", 1), singleQ("q2", 0), singleQ("q3", 2)}
	d := tryout.Draft{Answers: map[string]tryout.Answer{
		"q1": {Type: tryout.QuestionSingle, Selected: intPtr(1)}, // correct
		"q2": {Type: tryout.QuestionSingle, Selected: intPtr(1)}, // wrong
		// q3 unanswered
	}}
	sum := Score(questions, d)
	if sum.Correct != 1 || sum.Wrong != 1 || sum.Unanswered != 1 || sum.Total != 3 {
		t.Fatalf("aggregates: %+v", sum)
	}
	want := 1.0 / 3.0 * 100
	if sum.Percentage != want {
		t.Fatalf("percentage = %v, want unrounded %v", sum.Percentage, want)
	}
}

func TestScoreEmptyExam(t *testing.T) {
	sum := Score(nil, tryout.Draft{Answers: map[string]tryout.Answer{}})
	if sum.Total != 0 || sum.Percentage != 0 {
		t.Fatalf("empty exam: %+v", sum)
	}
}
