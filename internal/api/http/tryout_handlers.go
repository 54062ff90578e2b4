package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/gameCahya/tryout-tka-sub000/internal/rbac"
	"github.com/gameCahya/tryout-tka-sub000/internal/tryout"
)

// GET /tryouts?q=&limit=&offset=
// Students only see active tryouts; admins see everything.
func ListTryoutsHandler(store tryout.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opts := tryout.ListOpts{
			Q:          r.URL.Query().Get("q"),
			ActiveOnly: rbac.RoleFromContext(r.Context()) != "admin",
			Limit:      queryInt(r, "limit", 50),
			Offset:     queryInt(r, "offset", 0),
		}
		list, err := store.ListTryouts(r.Context(), opts)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "gagal memuat daftar tryout")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"tryouts": list})
	}
}

// GET /tryouts/{tryoutID}
func GetTryoutHandler(store tryout.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := store.GetTryout(r.Context(), chi.URLParam(r, "tryoutID"))
		if errors.Is(err, tryout.ErrTryoutNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "gagal memuat tryout")
			return
		}
		if !t.Active && rbac.RoleFromContext(r.Context()) != "admin" {
			writeError(w, http.StatusNotFound, tryout.ErrTryoutNotFound.Error())
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}

type tryoutReq struct {
	Title           string `json:"title"`
	DurationMinutes int    `json:"duration_minutes"`
	Active          *bool  `json:"active"`
}

// POST /admin/tryouts
func CreateTryoutHandler(store tryout.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req tryoutReq
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "format JSON tidak valid")
			return
		}
		if req.Title == "" || req.DurationMinutes <= 0 {
			writeError(w, http.StatusBadRequest, "judul dan durasi wajib diisi")
			return
		}
		t := tryout.Tryout{
			ID:              uuid.NewString(),
			Title:           req.Title,
			DurationMinutes: req.DurationMinutes,
			Active:          req.Active == nil || *req.Active,
			CreatedAt:       time.Now().Unix(),
		}
		if err := store.PutTryout(r.Context(), t); err != nil {
			writeError(w, http.StatusInternalServerError, "gagal menyimpan tryout")
			return
		}
		writeJSON(w, http.StatusCreated, t)
	}
}

// PUT /admin/tryouts/{tryoutID}
func UpdateTryoutHandler(store tryout.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := store.GetTryout(r.Context(), chi.URLParam(r, "tryoutID"))
		if errors.Is(err, tryout.ErrTryoutNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "gagal memuat tryout")
			return
		}
		var req tryoutReq
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "format JSON tidak valid")
			return
		}
		if req.Title != "" {
			t.Title = req.Title
		}
		if req.DurationMinutes > 0 {
			t.DurationMinutes = req.DurationMinutes
		}
		if req.Active != nil {
			t.Active = *req.Active
		}
		if err := store.PutTryout(r.Context(), t); err != nil {
			writeError(w, http.StatusInternalServerError, "gagal menyimpan tryout")
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}

// DELETE /admin/tryouts/{tryoutID}
func DeleteTryoutHandler(store tryout.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.DeleteTryout(r.Context(), chi.URLParam(r, "tryoutID")); err != nil {
			if errors.Is(err, tryout.ErrTryoutNotFound) {
				writeError(w, http.StatusNotFound, err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "gagal menghapus tryout")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type questionReq struct {
	Type          tryout.QuestionType `json:"type"`
	Prompt        string              `json:"prompt"`
	Options       []string            `json:"options"`
	CorrectIndex  *int                `json:"correct_index,omitempty"`
	CorrectSet    []int               `json:"correct_set,omitempty"`
	CorrectMatrix map[int]bool        `json:"correct_matrix,omitempty"`
	Explanation   string              `json:"explanation"`
	ImageKey      string              `json:"image_key"`
	Position      int                 `json:"position"`
}

func validateQuestion(req questionReq) string {
	if req.Prompt == "" {
		return "pertanyaan wajib diisi"
	}
	if len(req.Options) < 2 {
		return "minimal dua opsi jawaban"
	}
	switch req.Type {
	case tryout.QuestionSingle:
		if req.CorrectIndex == nil || *req.CorrectIndex < 0 || *req.CorrectIndex >= len(req.Options) {
			return "kunci jawaban tunggal tidak valid"
		}
	case tryout.QuestionMultiple:
		if len(req.CorrectSet) == 0 {
			return "kunci jawaban ganda wajib diisi"
		}
		for _, i := range req.CorrectSet {
			if i < 0 || i >= len(req.Options) {
				return "kunci jawaban ganda di luar jangkauan opsi"
			}
		}
	case tryout.QuestionReasoning:
		if len(req.CorrectMatrix) != len(req.Options) {
			return "kunci penalaran harus mencakup semua pernyataan"
		}
	default:
		return "tipe soal tidak dikenal"
	}
	return ""
}

// POST /admin/tryouts/{tryoutID}/questions
func AddQuestionHandler(store tryout.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tryoutID := chi.URLParam(r, "tryoutID")
		var req questionReq
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "format JSON tidak valid")
			return
		}
		if msg := validateQuestion(req); msg != "" {
			writeError(w, http.StatusBadRequest, msg)
			return
		}
		q := tryout.Question{
			ID:            uuid.NewString(),
			TryoutID:      tryoutID,
			Type:          req.Type,
			Prompt:        req.Prompt,
			Options:       req.Options,
			CorrectIndex:  req.CorrectIndex,
			CorrectSet:    req.CorrectSet,
			CorrectMatrix: req.CorrectMatrix,
			Explanation:   req.Explanation,
			ImageKey:      req.ImageKey,
			Position:      req.Position,
		}
		if err := store.AddQuestion(r.Context(), q); err != nil {
			if errors.Is(err, tryout.ErrTryoutNotFound) {
				writeError(w, http.StatusNotFound, err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "gagal menyimpan soal")
			return
		}
		writeJSON(w, http.StatusCreated, q)
	}
}

// PUT /admin/questions/{questionID}
func UpdateQuestionHandler(store tryout.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := store.GetQuestion(r.Context(), chi.URLParam(r, "questionID"))
		if errors.Is(err, tryout.ErrQuestionNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "gagal memuat soal")
			return
		}
		var req questionReq
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "format JSON tidak valid")
			return
		}
		if msg := validateQuestion(req); msg != "" {
			writeError(w, http.StatusBadRequest, msg)
			return
		}
		q.Type = req.Type
		q.Prompt = req.Prompt
		q.Options = req.Options
		q.CorrectIndex = req.CorrectIndex
		q.CorrectSet = req.CorrectSet
		q.CorrectMatrix = req.CorrectMatrix
		q.Explanation = req.Explanation
		q.ImageKey = req.ImageKey
		q.Position = req.Position
		if err := store.UpdateQuestion(r.Context(), q); err != nil {
			writeError(w, http.StatusInternalServerError, "gagal menyimpan soal")
			return
		}
		writeJSON(w, http.StatusOK, q)
	}
}

// DELETE /admin/questions/{questionID}
func DeleteQuestionHandler(store tryout.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.DeleteQuestion(r.Context(), chi.URLParam(r, "questionID")); err != nil {
			if errors.Is(err, tryout.ErrQuestionNotFound) {
				writeError(w, http.StatusNotFound, err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "gagal menghapus soal")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// GET /admin/tryouts/{tryoutID}/questions, full view with keys.
func ListQuestionsAdminHandler(store tryout.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		qs, err := store.ListQuestions(r.Context(), chi.URLParam(r, "tryoutID"), true)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "gagal memuat soal")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"questions": qs})
	}
}
