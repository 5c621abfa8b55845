package casting

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/jonwraymond/castgate/auth"
	"github.com/jonwraymond/castgate/observe"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Handler serves the casting routes.
type Handler struct {
	store     Store
	gate      *auth.Gate
	validator *validator.Validate
	logger    observe.Logger
}

// NewHandler constructs a Handler. A nil logger discards output.
func NewHandler(store Store, gate *auth.Gate, logger observe.Logger) *Handler {
	if logger == nil {
		logger = observe.NopLogger()
	}
	return &Handler{
		store:     store,
		gate:      gate,
		validator: validator.New(),
		logger:    logger.With(observe.F("component", "casting")),
	}
}

// MountRoutes registers the casting routes on r, each behind the gate.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Method(http.MethodGet, "/actors", h.gate.Require(PermGetActors, h.listActors))
	r.Method(http.MethodPost, "/actors", h.gate.Require(PermCreateActors, h.createActor))
	r.Method(http.MethodPatch, "/actors/{id:[0-9]+}", h.gate.Require(PermUpdateActors, h.updateActor))
	r.Method(http.MethodDelete, "/actors/{id:[0-9]+}", h.gate.Require(PermDeleteActors, h.deleteActor))

	r.Method(http.MethodGet, "/movies", h.gate.Require(PermGetMovies, h.listMovies))
	r.Method(http.MethodPost, "/movies", h.gate.Require(PermCreateMovies, h.createMovie))
	r.Method(http.MethodPatch, "/movies/{id:[0-9]+}", h.gate.Require(PermUpdateMovies, h.updateMovie))
	r.Method(http.MethodDelete, "/movies/{id:[0-9]+}", h.gate.Require(PermDeleteMovies, h.deleteMovie))
}

type actorsResponse struct {
	Success bool    `json:"success"`
	Actors  []Actor `json:"actors"`
	Total   int     `json:"total"`
}

type moviesResponse struct {
	Success bool    `json:"success"`
	Total   int     `json:"total"`
	Movies  []Movie `json:"movies"`
}

type createActorRequest struct {
	Name   string `json:"name" validate:"required"`
	Gender string `json:"gender" validate:"required"`
}

type updateActorRequest struct {
	Name   *string `json:"name" validate:"omitempty,min=1"`
	Gender *string `json:"gender" validate:"omitempty,min=1"`
}

type createMovieRequest struct {
	Title       string  `json:"title" validate:"required"`
	ReleaseDate string  `json:"release_date" validate:"required,datetime=2006-01-02"`
	Actors      []int64 `json:"actors" validate:"required,dive,gt=0"`
}

type updateMovieRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=1"`
	ReleaseDate *string `json:"release_date" validate:"omitempty,datetime=2006-01-02"`
	Actors      []int64 `json:"actors" validate:"omitempty,dive,gt=0"`
}

func (h *Handler) listActors(w http.ResponseWriter, r *http.Request, _ *auth.Identity) {
	page, ok := pageParam(r)
	if !ok {
		h.fail(w, r, fmt.Errorf("actors page: %w", ErrNotFound))
		return
	}
	actors, total, err := h.store.ListActors(r.Context(), page)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if len(actors) == 0 && page.Number != 1 {
		h.fail(w, r, fmt.Errorf("actors page %d: %w", page.Number, ErrNotFound))
		return
	}
	writeJSON(w, http.StatusOK, actorsResponse{Success: true, Actors: actors, Total: total})
}

func (h *Handler) createActor(w http.ResponseWriter, r *http.Request, id *auth.Identity) {
	req, err := decodeBody[createActorRequest](r)
	if err == nil {
		err = h.validate(req)
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}

	actorID, err := h.store.CreateActor(r.Context(), NewActor{Name: req.Name, Gender: req.Gender})
	if err != nil {
		h.fail(w, r, unprocessable(err))
		return
	}
	h.audit(r, id, "actor created", actorID)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "actor": actorID})
}

func (h *Handler) updateActor(w http.ResponseWriter, r *http.Request, id *auth.Identity) {
	req, err := decodeBody[updateActorRequest](r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	actorID, err := idParam(r)
	if err == nil {
		_, err = h.store.GetActor(r.Context(), actorID)
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}

	patch := ActorPatch{Name: req.Name, Gender: req.Gender}
	if patch.Empty() {
		h.fail(w, r, fmt.Errorf("%w: no fields to update", ErrInvalidInput))
		return
	}
	if err := h.validate(req); err != nil {
		h.fail(w, r, err)
		return
	}

	actor, err := h.store.UpdateActor(r.Context(), actorID, patch)
	if err != nil {
		h.fail(w, r, unprocessable(err))
		return
	}
	h.audit(r, id, "actor updated", actorID)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "actor": actor.Short()})
}

func (h *Handler) deleteActor(w http.ResponseWriter, r *http.Request, id *auth.Identity) {
	actorID, err := idParam(r)
	if err == nil {
		_, err = h.store.GetActor(r.Context(), actorID)
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.store.DeleteActor(r.Context(), actorID); err != nil {
		h.fail(w, r, unprocessable(err))
		return
	}
	h.audit(r, id, "actor deleted", actorID)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "deleted": actorID})
}

func (h *Handler) listMovies(w http.ResponseWriter, r *http.Request, _ *auth.Identity) {
	page, ok := pageParam(r)
	if !ok {
		h.fail(w, r, fmt.Errorf("movies page: %w", ErrNotFound))
		return
	}
	movies, total, err := h.store.ListMovies(r.Context(), page)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if len(movies) == 0 && page.Number != 1 {
		h.fail(w, r, fmt.Errorf("movies page %d: %w", page.Number, ErrNotFound))
		return
	}
	writeJSON(w, http.StatusOK, moviesResponse{Success: true, Total: total, Movies: movies})
}

func (h *Handler) createMovie(w http.ResponseWriter, r *http.Request, id *auth.Identity) {
	req, err := decodeBody[createMovieRequest](r)
	if err == nil {
		err = h.validate(req)
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	releaseDate, err := ParseDate(req.ReleaseDate)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	movieID, err := h.store.CreateMovie(r.Context(), NewMovie{
		Title:       req.Title,
		ReleaseDate: releaseDate,
		ActorIDs:    req.Actors,
	})
	if err != nil {
		h.fail(w, r, unprocessable(err))
		return
	}
	h.audit(r, id, "movie created", movieID)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "movie": movieID})
}

func (h *Handler) updateMovie(w http.ResponseWriter, r *http.Request, id *auth.Identity) {
	req, err := decodeBody[updateMovieRequest](r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	movieID, err := idParam(r)
	if err == nil {
		_, err = h.store.GetMovie(r.Context(), movieID)
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}

	patch := MoviePatch{Title: req.Title, ActorIDs: req.Actors}
	if req.ReleaseDate != nil {
		d, err := ParseDate(*req.ReleaseDate)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		patch.ReleaseDate = &d
	}
	if patch.Empty() {
		h.fail(w, r, fmt.Errorf("%w: no fields to update", ErrInvalidInput))
		return
	}
	if err := h.validate(req); err != nil {
		h.fail(w, r, err)
		return
	}

	movie, err := h.store.UpdateMovie(r.Context(), movieID, patch)
	if err != nil {
		h.fail(w, r, unprocessable(err))
		return
	}
	h.audit(r, id, "movie updated", movieID)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "movie": movie})
}

func (h *Handler) deleteMovie(w http.ResponseWriter, r *http.Request, id *auth.Identity) {
	movieID, err := idParam(r)
	if err == nil {
		_, err = h.store.GetMovie(r.Context(), movieID)
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.store.DeleteMovie(r.Context(), movieID); err != nil {
		h.fail(w, r, unprocessable(err))
		return
	}
	h.audit(r, id, "movie deleted", movieID)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "deleted": movieID})
}

func (h *Handler) validate(v any) error {
	if err := h.validator.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, _ := ErrorStatus(err)
	fields := []observe.Field{
		observe.F("method", r.Method),
		observe.F("path", r.URL.Path),
		observe.F("status", status),
		observe.F("error", err),
	}
	switch {
	case status >= http.StatusInternalServerError:
		h.logger.Error(r.Context(), "request failed", fields...)
	case status == http.StatusUnprocessableEntity:
		h.logger.Warn(r.Context(), "write rejected", fields...)
	default:
		h.logger.Debug(r.Context(), "request rejected", fields...)
	}
	WriteError(w, r, err)
}

func (h *Handler) audit(r *http.Request, id *auth.Identity, msg string, resourceID int64) {
	h.logger.Info(r.Context(), msg,
		observe.F("principal", id.Principal),
		observe.F("id", resourceID),
	)
}

// unprocessable reports store write failures as ErrUnprocessable, keeping
// ErrNotFound for rows deleted concurrently.
func unprocessable(err error) error {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrUnprocessable) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrUnprocessable, err)
}

// decodeBody decodes a JSON object. An empty, null or malformed body is
// ErrInvalidInput.
func decodeBody[T any](r *http.Request) (*T, error) {
	var v *T
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if v == nil {
		return nil, fmt.Errorf("%w: empty body", ErrInvalidInput)
	}
	return v, nil
}

func idParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("id %q: %w", raw, ErrNotFound)
	}
	return id, nil
}

// pageParam reads ?page=N. A missing or non-numeric value is page 1; ok is
// false for pages below 1.
func pageParam(r *http.Request) (Page, bool) {
	n, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil {
		n = 1
	}
	return NewPage(n), n >= 1
}
