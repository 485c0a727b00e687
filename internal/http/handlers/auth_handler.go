// README: Account registration, sign-in and profile handlers.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"campusride/internal/http/middleware"
	"campusride/internal/modules/identity"
	"campusride/internal/types"
)

type AuthHandler struct {
	identity *identity.Service
}

func NewAuthHandler(svc *identity.Service) *AuthHandler {
	return &AuthHandler{identity: svc}
}

type registerReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	u, err := h.identity.Register(c.Request.Context(), identity.RegisterCommand{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     types.Role(req.Role),
	})
	if err != nil {
		writeIdentityError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, u)
}

// Session signs in with the ID token in the Authorization header.
func (h *AuthHandler) Session(c *gin.Context) {
	token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		writeError(c, http.StatusUnauthorized, identity.Message(identity.ErrBadCredential, requestLang(c)))
		return
	}
	u, err := h.identity.SignIn(c.Request.Context(), strings.TrimSpace(token), c.ClientIP())
	if err != nil {
		writeIdentityError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, u)
}

func (h *AuthHandler) Me(c *gin.Context) {
	u, _ := middleware.CallerUser(c)
	writeJSON(c, http.StatusOK, u)
}

type avatarReq struct {
	AvatarID string `json:"avatarId"`
}

func (h *AuthHandler) Avatar(c *gin.Context) {
	var req avatarReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.identity.UpdateAvatar(c.Request.Context(), types.ID(middleware.CallerUID(c)), req.AvatarID); err != nil {
		writeIdentityError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type deviceReq struct {
	Token string `json:"token"`
}

func (h *AuthHandler) Device(c *gin.Context) {
	var req deviceReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.identity.RegisterDevice(c.Request.Context(), types.ID(middleware.CallerUID(c)), req.Token); err != nil {
		writeIdentityError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
