package http

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/gameCahya/tryout-tka-sub000/internal/auth"
	authmw "github.com/gameCahya/tryout-tka-sub000/internal/auth/middleware"
)

type registerReq struct {
	Phone    string `json:"phone"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type authResp struct {
	AccessToken string `json:"access_token"`
	UserID      string `json:"user_id"`
	Name        string `json:"name"`
	Role        string `json:"role"`
}

// POST /auth/register  { "phone": "...", "name": "...", "password": "..." }
func RegisterHandler(db *sql.DB, a *authmw.AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerReq
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "format JSON tidak valid")
			return
		}
		if req.Phone == "" || req.Name == "" {
			writeError(w, http.StatusBadRequest, "nomor telepon dan nama wajib diisi")
			return
		}
		if len(req.Password) < 6 {
			writeError(w, http.StatusBadRequest, "password minimal 6 karakter")
			return
		}
		phone, err := auth.NormalizePhone(req.Phone)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "gagal memproses password")
			return
		}

		id := uuid.NewString()
		_, err = db.ExecContext(r.Context(), `INSERT INTO users (id,phone,name,password_hash,role,created_at)
			VALUES ($1,$2,$3,$4,'student',$5)`,
			id, phone, req.Name, string(hash), time.Now().Unix())
		if err != nil {
			writeError(w, http.StatusBadRequest, "nomor telepon sudah terdaftar")
			return
		}

		tok, err := a.IssueJWT(id, "student", req.Name)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "gagal membuat token")
			return
		}
		writeJSON(w, http.StatusCreated, authResp{AccessToken: tok, UserID: id, Name: req.Name, Role: "student"})
	}
}

type loginReq struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// POST /auth/login  { "phone": "...", "password": "..." }
func LoginHandler(db *sql.DB, a *authmw.AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginReq
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "format JSON tidak valid")
			return
		}
		phone, err := auth.NormalizePhone(req.Phone)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		var id, name, role, hash string
		err = db.QueryRowContext(r.Context(),
			`SELECT id,name,role,password_hash FROM users WHERE phone=$1`, phone).
			Scan(&id, &name, &role, &hash)
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusUnauthorized, "nomor telepon atau password salah")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "gagal memuat akun")
			return
		}
		if bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)) != nil {
			writeError(w, http.StatusUnauthorized, "nomor telepon atau password salah")
			return
		}

		tok, err := a.IssueJWT(id, role, name)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "gagal membuat token")
			return
		}
		writeJSON(w, http.StatusOK, authResp{AccessToken: tok, UserID: id, Name: name, Role: role})
	}
}

// GET /auth/me
func MeHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := authmw.SubjectFromContext(r.Context())
		var phone, name, role string
		err := db.QueryRowContext(r.Context(), `SELECT phone,name,role FROM users WHERE id=$1`, userID).
			Scan(&phone, &name, &role)
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "akun tidak ditemukan")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "gagal memuat akun")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"id": userID, "phone": phone, "name": name, "role": role})
	}
}
