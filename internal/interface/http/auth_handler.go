package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/shoplytics/shoplytics/internal/apperrors"
	"github.com/shoplytics/shoplytics/internal/application"
	"github.com/shoplytics/shoplytics/pkg/response"
	"github.com/shoplytics/shoplytics/pkg/validation"
)

// AuthHandler exposes registration and the password recovery flow.
type AuthHandler struct {
	Svc    *application.Service
	Logger *logrus.Logger
}

func NewAuthHandler(svc *application.Service, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{Svc: svc, Logger: logger}
}

func clientIP(c *gin.Context) string {
	if ip := c.GetString("real_ip"); ip != "" {
		return ip
	}
	return c.ClientIP()
}

// errorDetails turns a core error into the field/value/suggestion payload the
// front end renders inline.
func errorDetails(e *apperrors.Error) map[string]any {
	d := map[string]any{"message": e.Message, "suggestion": e.Suggestion}
	if e.Field != "" {
		d["field"] = e.Field
		d["value"] = e.Value
	}
	if e.Email != "" {
		d["email"] = e.Email
	}
	return d
}

// writeCoreError maps error kinds onto HTTP statuses.
func writeCoreError(c *gin.Context, err error) {
	if e, ok := apperrors.As(err); ok {
		switch e.Kind {
		case apperrors.KindValidation:
			response.Error[any](c, http.StatusBadRequest, "validation failed", errorDetails(e))
		case apperrors.KindUserNotFound:
			response.Error[any](c, http.StatusNotFound, "user not found", errorDetails(e))
		case apperrors.KindEmailSending:
			response.Error[any](c, http.StatusBadGateway, "email delivery failed", errorDetails(e))
		default:
			response.Error[any](c, http.StatusInternalServerError, "internal error", nil)
		}
		return
	}
	response.Error[any](c, http.StatusInternalServerError, "internal error", nil)
}

type registerRequest struct {
	Username        string `json:"username" binding:"required,uname"`
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required,pwd"`
	ConfirmPassword string `json:"confirm_password" binding:"required,eqfield=Password"`
}

// Register POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	u, err := h.Svc.Register(c.Request.Context(), application.RegisterInput{
		Username:        req.Username,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		writeCoreError(c, err)
		return
	}
	if h.Logger != nil {
		h.Logger.WithFields(logrus.Fields{
			"username": u.Username,
			"ip":       clientIP(c),
		}).Info("registration completed")
	}
	response.Success(c, http.StatusCreated, gin.H{
		"username":   u.Username,
		"email":      u.Email,
		"created_at": u.CreatedAt,
	}, "registered", nil)
}

type resetInitRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResetInit POST /api/auth/reset/init
// The recovery flow reports unknown addresses to the caller; login stays
// generic, this endpoint does not.
func (h *AuthHandler) ResetInit(c *gin.Context) {
	var req resetInitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	if err := h.Svc.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		writeCoreError(c, err)
		return
	}
	response.Success[any](c, http.StatusAccepted, gin.H{"requested": true}, "reset email queued", nil)
}

type resetConfirmRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,pwd"`
}

// ResetConfirm POST /api/auth/reset/confirm
func (h *AuthHandler) ResetConfirm(c *gin.Context) {
	var req resetConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	err := h.Svc.ConfirmPasswordReset(c.Request.Context(), req.Token, req.NewPassword)
	if errors.Is(err, application.ErrInvalidResetToken) {
		response.Error[any](c, http.StatusBadRequest, "invalid or expired token", nil)
		return
	}
	if err != nil {
		writeCoreError(c, err)
		return
	}
	response.Success[any](c, http.StatusOK, gin.H{"reset": true}, "password updated", nil)
}
