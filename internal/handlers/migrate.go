package handlers

import (
	"net/http"

	"glucolog/internal/services"
)

// Import stores a batch of readings atomically.
func (h *ReadingHandler) Import(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.owner(w, r)
	if !ok {
		return
	}
	var body importRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	inputs := make([]services.ReadingInput, 0, len(body.Readings))
	for _, rr := range body.Readings {
		inputs = append(inputs, rr.input())
	}
	n, err := h.command.Import(r.Context(), userID, inputs)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, importResponse{Imported: n})
}
