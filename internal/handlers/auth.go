package handlers

import (
	"mime"
	"net/http"

	"go.uber.org/zap"

	"glucolog/internal/services"
)

type AuthHandler struct {
	auth   *services.AuthService
	logger *zap.Logger
}

func NewAuthHandler(auth *services.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger}
}

type registerRequest struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	FullName *string `json:"full_name"`
	Role     *string `json:"role"`
}

type credentials struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var body registerRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	user, err := h.auth.Register(r.Context(), services.RegisterRequest{
		Email:    body.Email,
		Password: body.Password,
		FullName: body.FullName,
		Role:     body.Role,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, ToUserDTO(*user))
}

// Login accepts an OAuth2 password form (username, password) or a JSON body.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var c credentials
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		if err := r.ParseMultipartForm(1 << 20); err != nil && err != http.ErrNotMultipart {
			writeError(w, http.StatusBadRequest, "invalid form body")
			return
		}
		c.Username = r.FormValue("username")
		c.Password = r.FormValue("password")
	default:
		if err := decodeJSON(w, r, &c); err != nil {
			writeServiceError(w, r, h.logger, err)
			return
		}
	}
	email := c.Email
	if email == "" {
		email = c.Username
	}
	tok, err := h.auth.Login(r.Context(), email, c.Password)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tok)
}
