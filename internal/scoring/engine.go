// Package scoring turns a question list plus an answer draft into per-question
// correctness and an aggregate score. It is pure: no clock, no storage.
package scoring

import (
	"github.com/gameCahya/tryout-tka-sub000/internal/tryout"
)

// QuestionResult reports one question's outcome. HasAnswer distinguishes a
// wrong answer from no answer; a reasoning question only counts as answered
// when every statement has a recorded truth value.
type QuestionResult struct {
	QuestionID string `json:"question_id"`
	IsCorrect  bool   `json:"is_correct"`
	HasAnswer  bool   `json:"has_answer"`
}

type Summary struct {
	PerQuestion []QuestionResult `json:"per_question"`
	Correct     int              `json:"correct"`
	Wrong       int              `json:"wrong"`
	Unanswered  int              `json:"unanswered"`
	Total       int              `json:"total"`
	Percentage  float64          `json:"percentage"` // float division, rounding is a display concern
}

// strategy grades a single question against its draft answer.
type strategy interface {
	grade(q tryout.Question, ans tryout.Answer, present bool) QuestionResult
}

var strategies = map[tryout.QuestionType]strategy{
	tryout.QuestionSingle:    singleStrategy{},
	tryout.QuestionMultiple:  multipleStrategy{},
	tryout.QuestionReasoning: reasoningStrategy{},
}

// Score grades every question in order. Unknown question types count as
// unanswered rather than failing the whole submission.
func Score(questions []tryout.Question, d tryout.Draft) Summary {
	sum := Summary{Total: len(questions)}
	for _, q := range questions {
		ans, present := d.Answers[q.ID]
		s, ok := strategies[q.Type]
		var qr QuestionResult
		if !ok {
			qr = QuestionResult{QuestionID: q.ID}
		} else {
			qr = s.grade(q, ans, present)
		}
		sum.PerQuestion = append(sum.PerQuestion, qr)
		switch {
		case qr.IsCorrect:
			sum.Correct++
		case qr.HasAnswer:
			sum.Wrong++
		default:
			sum.Unanswered++
		}
	}
	if sum.Total > 0 {
		sum.Percentage = float64(sum.Correct) / float64(sum.Total) * 100
	}
	return sum
}

type singleStrategy struct{}

func (singleStrategy) grade(q tryout.Question, ans tryout.Answer, present bool) QuestionResult {
	qr := QuestionResult{QuestionID: q.ID}
	if !present || ans.Selected == nil {
		return qr
	}
	qr.HasAnswer = true
	qr.IsCorrect = q.CorrectIndex != nil && *ans.Selected == *q.CorrectIndex
	return qr
}

type multipleStrategy struct{}

// Exact set equality: a strict subset or superset of the key is wrong,
// order never matters. No partial credit.
func (multipleStrategy) grade(q tryout.Question, ans tryout.Answer, present bool) QuestionResult {
	qr := QuestionResult{QuestionID: q.ID}
	if !present || len(ans.SelectedSet) == 0 {
		return qr
	}
	qr.HasAnswer = true
	qr.IsCorrect = equalIndexSets(ans.SelectedSet, q.CorrectSet)
	return qr
}

type reasoningStrategy struct{}

// Correct iff every statement index in the option list matches the expected
// truth value. Answered requires an entry for every statement; a partial
// matrix is scored against what was filled but still counts as unanswered.
func (reasoningStrategy) grade(q tryout.Question, ans tryout.Answer, present bool) QuestionResult {
	qr := QuestionResult{QuestionID: q.ID}
	if !present || len(ans.Matrix) == 0 {
		return qr
	}
	filled := 0
	allMatch := true
	for i := range q.Options {
		want, hasKey := q.CorrectMatrix[i]
		got, hasAns := ans.Matrix[i]
		if hasAns {
			filled++
		}
		if !hasKey || !hasAns || got != want {
			allMatch = false
		}
	}
	qr.HasAnswer = filled == len(q.Options) && len(q.Options) > 0
	qr.IsCorrect = allMatch && len(q.Options) > 0
	return qr
}

func equalIndexSets(a, b []int) bool {
	if len(b) == 0 {
		return false
	}
	seen := map[int]int{}
	for _, v := range a {
		seen[v]++
	}
	for _, v := range b {
		seen[v]--
	}
	for _, n := range seen {
		if n != 0 {
			return false
		}
	}
	return true
}
