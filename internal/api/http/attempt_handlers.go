package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gameCahya/tryout-tka-sub000/internal/attempt"
	authmw "github.com/gameCahya/tryout-tka-sub000/internal/auth/middleware"
	"github.com/gameCahya/tryout-tka-sub000/internal/payment"
	"github.com/gameCahya/tryout-tka-sub000/internal/tryout"
)

// POST /tryouts/{tryoutID}/attempt
// Opens (or re-enters) the attempt. If the window already elapsed the attempt
// is finalized server-side and the result returned instead of questions.
func StartAttemptHandler(coord *attempt.Coordinator, store tryout.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := authmw.SubjectFromContext(r.Context())
		tryoutID := chi.URLParam(r, "tryoutID")

		sess, t, err := coord.Start(r.Context(), userID, tryoutID)
		if err != nil {
			switch {
			case errors.Is(err, tryout.ErrTryoutNotFound):
				writeError(w, http.StatusNotFound, err.Error())
			case errors.Is(err, attempt.ErrTryoutInactive):
				writeError(w, http.StatusForbidden, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, "gagal memulai sesi")
			}
			return
		}

		if res, fired, ferr := coord.SubmitIfExpired(r.Context(), userID, tryoutID); fired {
			if ferr != nil {
				writeError(w, http.StatusInternalServerError, "waktu habis, pengiriman otomatis gagal", ferr.Error())
				return
			}
			writeJSON(w, http.StatusOK, map[string]interface{}{"expired": true, "result": res})
			return
		}

		remaining, _, err := coord.Remaining(r.Context(), userID, tryoutID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "gagal memuat sesi")
			return
		}
		questions, err := store.ListQuestions(r.Context(), tryoutID, false)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "gagal memuat soal")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"session":           sess,
			"tryout":            t,
			"questions":         questions,
			"remaining_seconds": remaining,
		})
	}
}

// GET /tryouts/{tryoutID}/attempt is the resume view: draft plus remaining time.
func AttemptStatusHandler(coord *attempt.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := authmw.SubjectFromContext(r.Context())
		tryoutID := chi.URLParam(r, "tryoutID")

		remaining, sess, err := coord.Remaining(r.Context(), userID, tryoutID)
		if err != nil {
			if errors.Is(err, tryout.ErrSessionNotFound) || errors.Is(err, tryout.ErrTryoutNotFound) {
				writeError(w, http.StatusNotFound, err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "gagal memuat sesi")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"session":           sess,
			"remaining_seconds": remaining,
			"state":             coord.StateOf(sess.ID),
		})
	}
}

type draftReq struct {
	Answers map[string]tryout.Answer `json:"answers"`
}

// PUT /tryouts/{tryoutID}/attempt/draft
func SaveDraftHandler(coord *attempt.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := authmw.SubjectFromContext(r.Context())
		tryoutID := chi.URLParam(r, "tryoutID")

		var req draftReq
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "format JSON tidak valid")
			return
		}
		err := coord.SaveDraft(r.Context(), userID, tryoutID, tryout.Draft{Answers: req.Answers})
		if errors.Is(err, tryout.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "gagal menyimpan jawaban")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
	}
}

// POST /tryouts/{tryoutID}/attempt/submit
func SubmitAttemptHandler(coord *attempt.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := authmw.SubjectFromContext(r.Context())
		tryoutID := chi.URLParam(r, "tryoutID")

		res, err := coord.Submit(r.Context(), userID, tryoutID)
		if err != nil {
			switch {
			case errors.Is(err, tryout.ErrSessionNotFound), errors.Is(err, tryout.ErrTryoutNotFound):
				writeError(w, http.StatusNotFound, err.Error())
			case errors.Is(err, attempt.ErrSubmitInFlight), errors.Is(err, attempt.ErrAlreadySubmitted):
				writeError(w, http.StatusConflict, err.Error())
			case errors.Is(err, tryout.ErrAttemptConflict):
				writeError(w, http.StatusConflict, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, "pengiriman gagal, jawaban masih tersimpan", err.Error())
			}
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// GET /tryouts/{tryoutID}/results lists all attempts by the caller, newest first.
func MyResultsHandler(store tryout.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := authmw.SubjectFromContext(r.Context())
		list, err := store.ListResults(r.Context(), userID, chi.URLParam(r, "tryoutID"))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "gagal memuat hasil")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"results": list})
	}
}

// reviewItem pairs a question with what the student answered. Explanation is
// only present once the user has paid for this tryout.
type reviewItem struct {
	Question  tryout.Question `json:"question"`
	Answer    *tryout.Answer  `json:"answer,omitempty"`
	IsCorrect bool            `json:"is_correct"`
	HasAnswer bool            `json:"has_answer"`
}

// GET /results/{resultID}/review
func ResultReviewHandler(store tryout.Store, payments *payment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := authmw.SubjectFromContext(r.Context())

		res, err := store.GetResult(r.Context(), chi.URLParam(r, "resultID"))
		if errors.Is(err, tryout.ErrResultNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "gagal memuat hasil")
			return
		}
		if res.UserID != userID {
			writeError(w, http.StatusForbidden, "hasil ini bukan milik Anda")
			return
		}

		unlocked, err := payments.IsUnlocked(r.Context(), userID, res.TryoutID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "gagal memeriksa status pembayaran")
			return
		}

		questions, err := store.ListQuestions(r.Context(), res.TryoutID, true)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "gagal memuat soal")
			return
		}
		answers, err := store.ListUserAnswers(r.Context(), res.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "gagal memuat jawaban")
			return
		}
		byQuestion := make(map[string]tryout.UserAnswer, len(answers))
		for _, ua := range answers {
			byQuestion[ua.QuestionID] = ua
		}

		items := make([]reviewItem, 0, len(questions))
		for _, q := range questions {
			// answer keys are part of the review; explanations stay gated
			if !unlocked {
				q.Explanation = ""
			}
			it := reviewItem{Question: q}
			if ua, ok := byQuestion[q.ID]; ok {
				a := ua.Answer
				it.Answer = &a
				it.IsCorrect = ua.IsCorrect
				it.HasAnswer = ua.HasAnswer
			}
			items = append(items, it)
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"result":   res,
			"unlocked": unlocked,
			"items":    items,
		})
	}
}
