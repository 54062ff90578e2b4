package http

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	authmw "github.com/gameCahya/tryout-tka-sub000/internal/auth/middleware"
	"github.com/gameCahya/tryout-tka-sub000/internal/payment"
	"github.com/gameCahya/tryout-tka-sub000/internal/tryout"
)

// POST /tryouts/{tryoutID}/payment
// Starts the explanation unlock purchase for the caller.
func CreatePaymentHandler(svc *payment.Service, store tryout.Store, db *sql.DB, price int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := authmw.SubjectFromContext(r.Context())
		tryoutID := chi.URLParam(r, "tryoutID")

		t, err := store.GetTryout(r.Context(), tryoutID)
		if errors.Is(err, tryout.ErrTryoutNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "gagal memuat tryout")
			return
		}

		var phone, name string
		if err := db.QueryRowContext(r.Context(),
			`SELECT phone,name FROM users WHERE id=$1`, userID).Scan(&phone, &name); err != nil {
			writeError(w, http.StatusInternalServerError, "gagal memuat akun")
			return
		}

		out, err := svc.Create(r.Context(), payment.CreateInput{
			UserID:        userID,
			TryoutID:      tryoutID,
			TryoutTitle:   t.Title,
			Amount:        price,
			CustomerName:  name,
			CustomerPhone: phone,
		})
		if errors.Is(err, payment.ErrAlreadyUnlocked) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		if err != nil {
			writeError(w, http.StatusBadGateway, "gagal membuat transaksi pembayaran")
			return
		}
		writeJSON(w, http.StatusCreated, out)
	}
}

// POST /payments/callback
// Gateway webhook. A bad signature gets a 400 and changes nothing.
func PaymentCallbackHandler(svc *payment.Service, store tryout.Store, db *sql.DB, log *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var cb payment.Callback
		if err := decodeJSON(r, &cb); err != nil {
			writeError(w, http.StatusBadRequest, "format JSON tidak valid")
			return
		}

		p, err := svc.HandleCallback(r.Context(), cb)
		if err != nil {
			switch {
			case errors.Is(err, payment.ErrInvalidSignature):
				writeError(w, http.StatusBadRequest, err.Error())
			case errors.Is(err, payment.ErrPaymentNotFound):
				writeError(w, http.StatusNotFound, err.Error())
			default:
				writeError(w, http.StatusBadRequest, err.Error())
			}
			return
		}

		if p.Status == payment.StatusSuccess {
			title := ""
			if t, err := store.GetTryout(r.Context(), p.TryoutID); err == nil {
				title = t.Title
			}
			var phone string
			if err := db.QueryRowContext(r.Context(),
				`SELECT phone FROM users WHERE id=$1`, p.UserID).Scan(&phone); err != nil {
				log.WithError(err).WithField("order_id", p.OrderID).Warn("buyer phone lookup failed")
			}
			svc.NotifySettlement(r.Context(), p, phone, title)
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// GET /tryouts/{tryoutID}/payment
func PaymentStatusHandler(svc *payment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := authmw.SubjectFromContext(r.Context())
		tryoutID := chi.URLParam(r, "tryoutID")

		unlocked, err := svc.IsUnlocked(r.Context(), userID, tryoutID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "gagal memeriksa status pembayaran")
			return
		}

		p, err := svc.Status(r.Context(), userID, tryoutID)
		if errors.Is(err, payment.ErrPaymentNotFound) {
			writeJSON(w, http.StatusOK, map[string]interface{}{"unlocked": unlocked, "payment": nil})
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "gagal memuat pembayaran")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"unlocked": unlocked, "payment": p})
	}
}
