package handlers

import "net/http"

// Summary returns overall and per-type aggregates for an optional start/end window.
func (h *ReadingHandler) Summary(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.owner(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	start, err := optionalTime(q, "start")
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	end, err := optionalTime(q, "end")
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	sum, err := h.query.Summary(r.Context(), userID, start, end)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}
