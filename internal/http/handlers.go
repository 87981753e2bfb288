package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"voice-order-service/internal/service/language"
	"voice-order-service/internal/service/order"
	"voice-order-service/internal/service/pipeline"
	"voice-order-service/internal/service/segment"
	"voice-order-service/internal/service/transcript"
)

const maxBodyBytes = 1 << 20

var errBadRequest = errors.New("bad request")

type handler struct {
	deps Deps
}

type textRequest struct {
	Text string `json:"text"`
}

type cleanResponse struct {
	CleanedText     string       `json:"cleanedText"`
	Language        language.Tag `json:"language"`
	WordsDropped    int          `json:"wordsDropped"`
	SegmentsDropped int          `json:"segmentsDropped"`
}

type orderResponse struct {
	Order    order.StructuredOrder `json:"order"`
	Rendered string                `json:"rendered"`
}

type feedResponse struct {
	Applied bool `json:"applied"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *handler) createSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.deps.Sessions.Create(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.Snapshot())
}

func (h *handler) listSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"sessions": h.deps.Sessions.IDs()})
}

func (h *handler) getSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

func (h *handler) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Sessions.Remove(chi.URLParam(r, "sessionID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) startSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.StartSession(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

func (h *handler) stopSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.StopSession(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

func (h *handler) feedFragment(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var f transcript.Fragment
	if err := decode(w, r, &f); err != nil {
		writeError(w, err)
		return
	}
	applied, err := s.Feed(f)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, feedResponse{Applied: applied})
}

func (h *handler) cleanText(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	res := h.deps.Suppressor.SuppressDetailed(req.Text)
	h.deps.Metrics.RecordSuppression(res.WordsDropped, res.SegmentsDropped)
	writeJSON(w, http.StatusOK, cleanResponse{
		CleanedText:     res.Text,
		Language:        res.Language,
		WordsDropped:    res.WordsDropped,
		SegmentsDropped: res.SegmentsDropped,
	})
}

func (h *handler) extractOrder(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	o := h.deps.Extractor.Extract(req.Text)
	resp := orderResponse{Order: o}
	if strings.TrimSpace(req.Text) != "" {
		resp.Rendered = order.RenderOrder(o, req.Text)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) session(w http.ResponseWriter, r *http.Request) (*pipeline.Session, bool) {
	s, err := h.deps.Sessions.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return s, true
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, language.ErrUnsupportedLanguage):
		return http.StatusBadRequest
	case errors.Is(err, pipeline.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, segment.ErrAlreadyRecording), errors.Is(err, segment.ErrNotRecording):
		return http.StatusConflict
	case errors.Is(err, segment.ErrSessionClosed):
		return http.StatusGone
	case errors.Is(err, pipeline.ErrAudioUnsupported):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Msg("Request failed")
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("Failed to encode response")
	}
}
