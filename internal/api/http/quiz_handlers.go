package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-quiz/internal/assembly"
	"github.com/mind-engage/mindengage-quiz/internal/catalog"
	"github.com/mind-engage/mindengage-quiz/internal/selection"
	"github.com/mind-engage/mindengage-quiz/internal/session"
)

// MountQuiz exposes the engine. Every successful call answers with the
// rendered view; failures carry the view alongside the error.
func MountQuiz(r chi.Router, e *session.Engine, cat catalog.Catalog) {
	r.Get("/state", func(w http.ResponseWriter, r *http.Request) {
		writeView(w, e, http.StatusOK)
	})
	r.Get("/subjects", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, cat)
	})
	r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, session.NewStatsView(e.Stats()))
	})

	r.Post("/begin", dispatch(e, func(*http.Request) (session.Event, error) { return session.Begin{}, nil }))
	r.Post("/mode", dispatch(e, func(r *http.Request) (session.Event, error) {
		var req struct {
			Mode   selection.Mode `json:"mode"`
			Single bool           `json:"single"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, errBadJSON
		}
		return session.ChooseMode{Mode: req.Mode, Single: req.Single}, nil
	}))
	r.Post("/subjects/{id}/toggle", dispatch(e, func(r *http.Request) (session.Event, error) {
		return session.Toggle{Subject: chi.URLParam(r, "id")}, nil
	}))
	r.Post("/start", func(w http.ResponseWriter, r *http.Request) {
		if _, err := e.Start(r.Context()); err != nil {
			writeErr(w, e, err)
			return
		}
		writeView(w, e, http.StatusOK)
	})
	r.Post("/answer", dispatch(e, func(r *http.Request) (session.Event, error) {
		var req struct {
			Option *int `json:"option"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Option == nil {
			return nil, errBadJSON
		}
		return session.SelectAnswer{Option: *req.Option}, nil
	}))
	r.Post("/next", dispatch(e, func(*http.Request) (session.Event, error) { return session.Next{}, nil }))
	r.Post("/prev", dispatch(e, func(*http.Request) (session.Event, error) { return session.Prev{}, nil }))
	r.Post("/jump/{index}", dispatch(e, func(r *http.Request) (session.Event, error) {
		i, err := strconv.Atoi(chi.URLParam(r, "index"))
		if err != nil {
			return nil, session.ErrIndexOutOfRange
		}
		return session.JumpTo{Index: i}, nil
	}))
	r.Post("/submit", dispatch(e, func(r *http.Request) (session.Event, error) {
		c := r.URL.Query().Get("confirm")
		return session.Submit{Confirm: c == "1" || c == "true"}, nil
	}))
	r.Post("/review", dispatch(e, func(*http.Request) (session.Event, error) { return session.ShowReview{}, nil }))
	r.Post("/results", dispatch(e, func(*http.Request) (session.Event, error) { return session.ShowResults{}, nil }))
	r.Post("/home", dispatch(e, func(*http.Request) (session.Event, error) { return session.GoHome{}, nil }))
	r.Post("/retake", dispatch(e, func(*http.Request) (session.Event, error) { return session.Retake{}, nil }))
}

var errBadJSON = errors.New("bad json")

func dispatch(e *session.Engine, decode func(*http.Request) (session.Event, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ev, err := decode(r)
		if err == nil {
			_, err = e.Dispatch(ev)
		}
		if err != nil {
			writeErr(w, e, err)
			return
		}
		writeView(w, e, http.StatusOK)
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadJSON), errors.Is(err, session.ErrIndexOutOfRange), errors.Is(err, selection.ErrInvalidMode):
		return http.StatusBadRequest
	case errors.Is(err, selection.ErrUnknownSubject):
		return http.StatusNotFound
	case errors.Is(err, selection.ErrTooManySubjects), errors.Is(err, selection.ErrCompulsoryLocked),
		errors.Is(err, selection.ErrInvalidSelection):
		return http.StatusUnprocessableEntity
	case errors.Is(err, assembly.ErrNoQuestionsAssembled):
		return http.StatusServiceUnavailable
	default:
		// wrong screen, confirmation, time up, loading
		return http.StatusConflict
	}
}

func render(e *session.Engine) session.View {
	return session.Render(e.State(), e.Now(), e.Stats(), e.Loading())
}

func writeView(w http.ResponseWriter, e *session.Engine, code int) {
	writeJSON(w, code, render(e))
}

func writeErr(w http.ResponseWriter, e *session.Engine, err error) {
	writeJSON(w, statusFor(err), struct {
		Error string       `json:"error"`
		State session.View `json:"state"`
	}{err.Error(), render(e)})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
