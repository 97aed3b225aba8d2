package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/manash/hairtry/internal/catalog"
	"github.com/manash/hairtry/internal/history"
	"github.com/manash/hairtry/internal/workflow"
	"github.com/manash/hairtry/pkg/models"
)

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type imageBody struct {
	Image string `json:"image"`
}

type filterBody struct {
	Filter string `json:"filter"`
}

type styleBody struct {
	ID string `json:"id"`
}

type modelBody struct {
	Model string `json:"model"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, errCode, msg string) {
	writeJSON(w, code, map[string]apiError{"error": {Code: errCode, Message: msg}})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "too_large", fmt.Sprintf("body exceeds %d bytes", tooLarge.Limit))
			return false
		}
		writeError(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return false
	}
	return true
}

func (s *Server) session(w http.ResponseWriter, code int, st workflow.State) {
	writeJSON(w, code, newSessionView(st, s.ctrl.Model()))
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listModels(w http.ResponseWriter, _ *http.Request) {
	current := s.ctrl.Model()
	out := []modelView{}
	for _, name := range s.registry.List() {
		cap, _ := s.registry.Get(name)
		out = append(out, modelView{
			Name:              name,
			Provider:          string(cap.Provider),
			SupportsReference: cap.SupportsReference,
			Description:       cap.Description,
			Current:           name == current,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"models": out})
}

func (s *Server) listStyles(w http.ResponseWriter, _ *http.Request) {
	out := []styleView{}
	for _, st := range s.ctrl.DisplayedStyles() {
		out = append(out, newStyleView(st))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"filter": s.ctrl.State().Filter,
		"styles": out,
	})
}

func (s *Server) getSession(w http.ResponseWriter, _ *http.Request) {
	s.session(w, http.StatusOK, s.ctrl.State())
}

func (s *Server) reset(w http.ResponseWriter, _ *http.Request) {
	s.session(w, http.StatusOK, s.ctrl.Reset())
}

func (s *Server) loadPhoto(w http.ResponseWriter, r *http.Request) {
	var body imageBody
	if !decode(w, r, &body) {
		return
	}
	if err := s.ctrl.LoadPhoto(body.Image); err != nil {
		s.session(w, http.StatusUnprocessableEntity, s.ctrl.State())
		return
	}
	s.session(w, http.StatusOK, s.ctrl.State())
}

func (s *Server) setFilter(w http.ResponseWriter, r *http.Request) {
	var body filterBody
	if !decode(w, r, &body) {
		return
	}
	f, err := models.ParseGenderFilter(body.Filter)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	s.session(w, http.StatusOK, s.ctrl.SetFilter(f))
}

func (s *Server) selectStyle(w http.ResponseWriter, r *http.Request) {
	var body styleBody
	if !decode(w, r, &body) {
		return
	}
	if _, err := s.ctrl.SelectStyle(body.ID); err != nil {
		if errors.Is(err, catalog.ErrStyleNotFound) {
			writeError(w, http.StatusNotFound, "not_found", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "internal", "failed to select style")
		return
	}
	s.session(w, http.StatusOK, s.ctrl.State())
}

func (s *Server) uploadCustomStyle(w http.ResponseWriter, r *http.Request) {
	var body imageBody
	if !decode(w, r, &body) {
		return
	}
	if _, err := s.ctrl.UploadCustomStyle(body.Image); err != nil {
		s.session(w, http.StatusUnprocessableEntity, s.ctrl.State())
		return
	}
	s.session(w, http.StatusOK, s.ctrl.State())
}

func (s *Server) setModel(w http.ResponseWriter, r *http.Request) {
	var body modelBody
	if !decode(w, r, &body) {
		return
	}
	if _, ok := s.registry.Get(body.Model); !ok {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Sprintf("unknown model: %s", body.Model))
		return
	}
	s.ctrl.SetModel(body.Model)
	s.session(w, http.StatusOK, s.ctrl.State())
}

// generate blocks until the image service answers. The session error in
// the body tells clients what to show; the status reflects its kind.
func (s *Server) generate(w http.ResponseWriter, r *http.Request) {
	st, err := s.ctrl.Generate(r.Context())
	switch {
	case err == nil:
		s.session(w, http.StatusOK, st)
	case errors.Is(err, workflow.ErrBusy):
		writeError(w, http.StatusConflict, "busy", "a generation is already running")
	case errors.Is(err, workflow.ErrMissingInput):
		s.session(w, http.StatusUnprocessableEntity, st)
	default:
		s.session(w, http.StatusBadGateway, st)
	}
}

func (s *Server) cameraError(w http.ResponseWriter, _ *http.Request) {
	s.session(w, http.StatusOK, s.ctrl.ReportDeviceError(errors.New("camera reported by client")))
}

func (s *Server) clearHistory(w http.ResponseWriter, _ *http.Request) {
	s.session(w, http.StatusOK, s.ctrl.ClearHistory())
}

func (s *Server) selectHistory(w http.ResponseWriter, r *http.Request) {
	st, err := s.ctrl.SelectHistory(chi.URLParam(r, "id"))
	if errors.Is(err, history.ErrItemNotFound) {
		s.session(w, http.StatusNotFound, st)
		return
	}
	s.session(w, http.StatusOK, st)
}
