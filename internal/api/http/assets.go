package http

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/gameCahya/tryout-tka-sub000/internal/storage"
)

const maxUploadBytes = 5 << 20 // question images

// POST /admin/assets with multipart field "file". Returns the stored key to put
// on a question's image_key.
func UploadAssetHandler(blobs storage.BlobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		f, hdr, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "file gambar wajib diunggah")
			return
		}
		defer f.Close()

		key := uuid.NewString() + filepath.Ext(hdr.Filename)
		stored, err := blobs.Put(key, f)
		if err != nil {
			if errors.Is(err, storage.ErrBadKey) {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "gagal menyimpan gambar")
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"key": stored})
	}
}

// GET /assets/{key}
func ServeAssetHandler(blobs storage.BlobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "key")
		rc, err := blobs.Get(key)
		if err != nil {
			writeError(w, http.StatusNotFound, "gambar tidak ditemukan")
			return
		}
		defer rc.Close()
		w.Header().Set("Content-Type", storage.ContentTypeFor(key))
		w.Header().Set("Cache-Control", "public, max-age=86400")
		_, _ = io.Copy(w, rc)
	}
}

// DELETE /admin/assets/{key}
func DeleteAssetHandler(blobs storage.BlobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := blobs.Delete(chi.URLParam(r, "key")); err != nil {
			writeError(w, http.StatusNotFound, "gambar tidak ditemukan")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
