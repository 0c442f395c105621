package http

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-quiz/internal/bank"
	"github.com/mind-engage/mindengage-quiz/internal/catalog"
	"github.com/mind-engage/mindengage-quiz/internal/storage"
)

const maxUpload = 32 << 20

// MountBanks serves and replaces subject banks in bs. Uploads are parsed
// before they are stored, so a broken document never reaches the store.
func MountBanks(r chi.Router, bs storage.BlobStore, cat catalog.Catalog) {
	subject := func(w http.ResponseWriter, r *http.Request) (string, bool) {
		id := chi.URLParam(r, "subject")
		if _, ok := cat.Lookup(id); !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown subject: " + id})
			return "", false
		}
		return id, true
	}

	// GET /banks/{subject}
	r.Get("/{subject}", func(w http.ResponseWriter, r *http.Request) {
		id, ok := subject(w, r)
		if !ok {
			return
		}
		rc, err := bs.Get(bank.Key(id))
		if err != nil {
			code := http.StatusInternalServerError
			if errors.Is(err, storage.ErrNotFound) {
				code = http.StatusNotFound
			}
			writeJSON(w, code, map[string]string{"error": err.Error()})
			return
		}
		defer rc.Close()
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.Copy(w, rc)
	})

	// PUT /banks/{subject}  body: {"questions": [...]}
	r.Put("/{subject}", func(w http.ResponseWriter, r *http.Request) {
		id, ok := subject(w, r)
		if !ok {
			return
		}
		data, err := io.ReadAll(io.LimitReader(r.Body, maxUpload))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		b, err := bank.Parse(id, data)
		if err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
			return
		}
		storeBank(w, bs, id, b, data, nil)
	})

	// POST /banks/{subject}/xlsx  multipart field "file", optional "sheet"
	r.Post("/{subject}/xlsx", func(w http.ResponseWriter, r *http.Request) {
		id, ok := subject(w, r)
		if !ok {
			return
		}
		f, _, err := r.FormFile("file")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file required"})
			return
		}
		defer f.Close()
		b, res, err := bank.ImportXLSX(id, f, r.FormValue("sheet"))
		if err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": err.Error(), "import": res})
			return
		}
		data, err := bank.Marshal(b)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		storeBank(w, bs, id, b, data, &res)
	})
}

func storeBank(w http.ResponseWriter, bs storage.BlobStore, id string, b bank.RawBank, data []byte, res *bank.ImportResult) {
	key := bank.Key(id)
	if _, err := bs.Put(key, bytes.NewReader(data)); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "store error: " + err.Error()})
		return
	}
	out := map[string]any{"key": key, "subject": id, "questions": b.Len()}
	if res != nil {
		out["import"] = res
	}
	writeJSON(w, http.StatusOK, out)
}
