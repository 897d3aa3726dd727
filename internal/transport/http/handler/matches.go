package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sports-playlist/internal/application/match"
	"github.com/sports-playlist/internal/domain"
	"github.com/sports-playlist/internal/pkg/validate"
)

// MatchHandler handles the match catalogue endpoints.
type MatchHandler struct {
	svc match.Service
}

func NewMatchHandler(svc match.Service) *MatchHandler { return &MatchHandler{svc: svc} }

func (h *MatchHandler) List(w http.ResponseWriter, r *http.Request) {
	h.respondList(w, func() ([]domain.Match, error) { return h.svc.List(r.Context()) })
}

func (h *MatchHandler) ListLive(w http.ResponseWriter, r *http.Request) {
	h.respondList(w, func() ([]domain.Match, error) {
		return h.svc.ListByStatus(r.Context(), domain.MatchStatusLive)
	})
}

func (h *MatchHandler) ListReplay(w http.ResponseWriter, r *http.Request) {
	h.respondList(w, func() ([]domain.Match, error) {
		return h.svc.ListByStatus(r.Context(), domain.MatchStatusReplay)
	})
}

func (h *MatchHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("query")
	h.respondList(w, func() ([]domain.Match, error) { return h.svc.Search(r.Context(), q) })
}

func (h *MatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	m, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *MatchHandler) Stream(w http.ResponseWriter, r *http.Request) {
	url, err := h.svc.StreamURL(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StreamEnvelope{StreamURL: url})
}

func (h *MatchHandler) Create(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeMatchInput(w, r)
	if !ok {
		return
	}
	m, err := h.svc.Create(r.Context(), in)
	if err != nil {
		httpError(w, err)
		return
	}
	w.Header().Set("Location", "/v1/matches/"+m.MatchID)
	writeJSON(w, http.StatusCreated, m)
}

func (h *MatchHandler) Update(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeMatchInput(w, r)
	if !ok {
		return
	}
	if err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), in); err != nil {
		httpError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *MatchHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		httpError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *MatchHandler) respondList(w http.ResponseWriter, list func() ([]domain.Match, error)) {
	matches, err := list()
	if err != nil {
		httpError(w, err)
		return
	}
	if matches == nil {
		matches = []domain.Match{}
	}
	writeJSON(w, http.StatusOK, matches)
}

func decodeMatchInput(w http.ResponseWriter, r *http.Request) (domain.MatchInput, bool) {
	var in domain.MatchInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return in, false
	}
	if err := validate.Struct(&in); err != nil {
		httpError(w, err)
		return in, false
	}
	return in, true
}
