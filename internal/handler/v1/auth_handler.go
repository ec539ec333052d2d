package v1

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/medscribe/medscribe-api/internal/service"
)

type AuthHandler struct {
	svc *service.AuthService
}

func NewAuthHandler(svc *service.AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}

	var fields []string
	if strings.TrimSpace(req.Email) == "" {
		fields = append(fields, "email is required")
	}
	if req.Password == "" {
		fields = append(fields, "password is required")
	}
	if len(fields) > 0 {
		respondServiceError(c, &service.ValidationError{Fields: fields})
		return
	}

	pair, err := h.svc.Login(c.Request.Context(), req.Email, req.Password, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, pair)
}

// Refresh handles POST /auth/refresh.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if !bindJSON(c, &req) {
		return
	}

	if req.RefreshToken == "" {
		respondServiceError(c, &service.ValidationError{Fields: []string{"refresh_token is required"}})
		return
	}

	pair, err := h.svc.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, pair)
}
