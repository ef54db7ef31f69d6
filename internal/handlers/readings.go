package handlers

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	mw "glucolog/internal/middleware"
	"glucolog/internal/repository"
	"glucolog/internal/services"
)

type ReadingHandler struct {
	command *services.ReadingCommandService
	query   *services.ReadingQueryService
	logger  *zap.Logger
}

func NewReadingHandler(command *services.ReadingCommandService, query *services.ReadingQueryService, logger *zap.Logger) *ReadingHandler {
	return &ReadingHandler{command: command, query: query, logger: logger}
}

func (h *ReadingHandler) owner(w http.ResponseWriter, r *http.Request) (int, bool) {
	userID, ok := mw.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
	}
	return userID, ok
}

func readingID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "id: must be an integer")
		return 0, false
	}
	return id, true
}

// Create godoc
// @Summary Record a glucose reading
// @Tags readings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 201 {object} models.Reading
// @Failure 400 {object} errorBody
// @Router /readings [post]
func (h *ReadingHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.owner(w, r)
	if !ok {
		return
	}
	var body readingRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	reading, err := h.command.Create(r.Context(), userID, body.input())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, reading)
}

// List godoc
// @Summary List the caller's readings, newest first
// @Tags readings
// @Produce json
// @Security BearerAuth
// @Param page query int false "page number" default(1)
// @Param size query int false "page size" default(10)
// @Success 200 {object} services.ListReadingsResponse
// @Failure 400 {object} errorBody
// @Router /readings [get]
func (h *ReadingHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.owner(w, r)
	if !ok {
		return
	}
	req, err := parseListQuery(r.URL.Query())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	res, err := h.query.List(r.Context(), userID, req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *ReadingHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.owner(w, r)
	if !ok {
		return
	}
	id, ok := readingID(w, r)
	if !ok {
		return
	}
	reading, err := h.command.Get(r.Context(), userID, id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, reading)
}

// Update applies a partial update. Omitted and null fields keep their stored value.
func (h *ReadingHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.owner(w, r)
	if !ok {
		return
	}
	id, ok := readingID(w, r)
	if !ok {
		return
	}
	var body readingRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	reading, err := h.command.Update(r.Context(), userID, id, body.input())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, reading)
}

func (h *ReadingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.owner(w, r)
	if !ok {
		return
	}
	id, ok := readingID(w, r)
	if !ok {
		return
	}
	if err := h.command.Delete(r.Context(), userID, id); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseListQuery(q url.Values) (services.ListReadingsRequest, error) {
	req := services.ListReadingsRequest{Page: 1, Size: services.DefaultPageSize}
	var err error

	if req.Start, err = optionalTime(q, "start"); err != nil {
		return req, err
	}
	if req.End, err = optionalTime(q, "end"); err != nil {
		return req, err
	}
	if v := q.Get("reading_type"); v != "" {
		req.ReadingType = &v
	}
	if p, err := optionalNumber[int](q, "page"); err != nil {
		return req, err
	} else if p != nil {
		req.Page = *p
	}
	if s, err := optionalNumber[int](q, "size"); err != nil {
		return req, err
	} else if s != nil {
		req.Size = *s
	}

	if req.StepCount, err = bound[int](q, "step_count"); err != nil {
		return req, err
	}
	if req.SleepHours, err = bound[float64](q, "sleep_hours"); err != nil {
		return req, err
	}
	if req.CalorieCount, err = bound[int](q, "calorie_count"); err != nil {
		return req, err
	}
	if req.ProteinIntakeG, err = bound[float64](q, "protein_intake_g"); err != nil {
		return req, err
	}
	if req.CarbIntakeG, err = bound[float64](q, "carb_intake_g"); err != nil {
		return req, err
	}
	if req.ExerciseMinutes, err = bound[int](q, "exercise_minutes"); err != nil {
		return req, err
	}
	return req, nil
}

func optionalTime(q url.Values, name string) (*time.Time, error) {
	v := q.Get(name)
	if v == "" {
		return nil, nil
	}
	t, err := parseClientTime(v)
	if err != nil {
		// An unescaped "+" offset arrives as a space.
		t, err = parseClientTime(strings.Replace(v, " ", "+", 1))
	}
	if err != nil {
		return nil, &services.ValidationError{Field: name, Message: "must be an ISO-8601 datetime"}
	}
	return &t, nil
}

func optionalNumber[T int | float64](q url.Values, name string) (*T, error) {
	v := q.Get(name)
	if v == "" {
		return nil, nil
	}
	var out T
	switch p := any(&out).(type) {
	case *int:
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, &services.ValidationError{Field: name, Message: "must be an integer"}
		}
		*p = n
	case *float64:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, &services.ValidationError{Field: name, Message: "must be a number"}
		}
		*p = f
	}
	return &out, nil
}

func bound[T int | float64](q url.Values, metric string) (repository.Bound[T], error) {
	var b repository.Bound[T]
	var err error
	if b.Min, err = optionalNumber[T](q, "min_"+metric); err != nil {
		return b, err
	}
	if b.Max, err = optionalNumber[T](q, "max_"+metric); err != nil {
		return b, err
	}
	return b, nil
}
