package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	authmw "github.com/gameCahya/tryout-tka-sub000/internal/auth/middleware"
	"github.com/gameCahya/tryout-tka-sub000/internal/tryout"
)

// GET /tryouts/{tryoutID}/ranking?limit=
// Leaderboard of locked first attempts plus the caller's own entry, which may
// fall outside the page.
func RankingHandler(store tryout.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tryoutID := chi.URLParam(r, "tryoutID")
		limit := queryInt(r, "limit", 100)

		entries, err := store.ListRanking(r.Context(), tryoutID, limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "gagal memuat peringkat")
			return
		}

		resp := map[string]interface{}{"ranking": entries}
		userID := authmw.SubjectFromContext(r.Context())
		if userID != "" {
			mine, err := store.GetRankingEntry(r.Context(), userID, tryoutID)
			if err == nil {
				resp["me"] = mine
			} else if !errors.Is(err, tryout.ErrResultNotFound) {
				writeError(w, http.StatusInternalServerError, "gagal memuat peringkat")
				return
			}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
