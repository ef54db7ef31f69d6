package handlers

import (
	"net/http"

	"go.uber.org/zap"

	mw "glucolog/internal/middleware"
	"glucolog/internal/services"
)

type AdminHandler struct {
	admin  *services.AdminService
	logger *zap.Logger
}

func NewAdminHandler(admin *services.AdminService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{admin: admin, logger: logger}
}

// Overview godoc
// @Summary Get admin overview
// @Description Returns platform-wide user and reading counts (admin only)
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} repository.Overview
// @Failure 403 {object} errorBody
// @Failure 500 {object} errorBody
// @Router /admin/overview [get]
func (h *AdminHandler) Overview(w http.ResponseWriter, r *http.Request) {
	userID, ok := mw.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	out, err := h.admin.Overview(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
