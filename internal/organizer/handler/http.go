// Package handler exposes organizer register and login over HTTP.
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"rollcall/backend/internal/organizer/domain"
	"rollcall/backend/internal/organizer/service"
)

type Handler struct {
	auth *service.AuthService
}

// New returns the auth HTTP handler.
func New(auth *service.AuthService) *Handler {
	return &Handler{auth: auth}
}

type credentialsRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name"`
}

type authResponse struct {
	OrganizerID string `json:"organizerId"`
	Token       string `json:"token"`
	ExpiresAt   int64  `json:"expiresAtEpochSeconds"`
}

// Register handles POST /api/auth/register.
func (h *Handler) Register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.auth.Register(c.Request.Context(), req.Email, req.Password, req.Name)
	switch {
	case errors.Is(err, service.ErrEmailAlreadyRegistered):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrWeakPassword),
		errors.Is(err, domain.ErrInvalidEmail),
		errors.Is(err, domain.ErrEmptyName):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
	default:
		c.JSON(http.StatusCreated, authResponse{
			OrganizerID: res.OrganizerID,
			Token:       res.Token,
			ExpiresAt:   res.ExpiresAt.Unix(),
		})
	}
}

// Login handles POST /api/auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
	default:
		c.JSON(http.StatusOK, authResponse{
			OrganizerID: res.OrganizerID,
			Token:       res.Token,
			ExpiresAt:   res.ExpiresAt.Unix(),
		})
	}
}
