package handlers

import (
	"net/http"

	"go.uber.org/zap"

	mw "glucolog/internal/middleware"
	"glucolog/internal/services"
)

type UserHandler struct {
	auth   *services.AuthService
	logger *zap.Logger
}

func NewUserHandler(auth *services.AuthService, logger *zap.Logger) *UserHandler {
	return &UserHandler{auth: auth, logger: logger}
}

// Me returns the current user's profile.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := mw.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	user, err := h.auth.Me(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ToUserDTO(*user))
}
