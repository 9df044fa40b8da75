package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/squeezyhq/squeezy/internal/apperr"
	"github.com/squeezyhq/squeezy/internal/auth"
)

// authHandlers serves the account-lifecycle endpoints.
type authHandlers struct {
	auth    *auth.Service
	cookies *cookieWriter
	logger  *slog.Logger
}

type registerRequest struct {
	Name            string `json:"name" binding:"required,max=255"`
	Email           string `json:"email" binding:"required,email,max=255"`
	Password        string `json:"password" binding:"required,min=6,max=255"`
	ConfirmPassword string `json:"confirmPassword" binding:"required,eqfield=Password"`
}

func (h *authHandlers) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	if err := h.auth.Register(c.Request.Context(), auth.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	}); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Registration successful, please check your email to verify your account",
	})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *authHandlers) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	result, err := h.auth.Login(c.Request.Context(), auth.LoginInput{
		Email:     req.Email,
		Password:  req.Password,
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	if result.MFARequired {
		c.JSON(http.StatusOK, gin.H{
			"message":     "Verify MFA authentication",
			"mfaRequired": true,
			"user":        result.User,
		})
		return
	}

	h.cookies.setPair(c, result.AccessToken, result.RefreshToken)
	c.JSON(http.StatusOK, gin.H{
		"message":     "User login successfully",
		"mfaRequired": false,
		"user":        result.User,
	})
}

func (h *authHandlers) refresh(c *gin.Context) {
	raw, err := c.Cookie(refreshCookie)
	if err != nil || raw == "" {
		h.cookies.clear(c)
		respondError(c, h.logger, apperr.Unauthorized(apperr.CodeInvalidToken, "missing refresh token"))
		return
	}

	result, err := h.auth.Refresh(c.Request.Context(), raw)
	if err != nil {
		// A rejected refresh token is dead; stop the client replaying it.
		h.cookies.clear(c)
		respondError(c, h.logger, err)
		return
	}

	h.cookies.setAccess(c, result.AccessToken)
	if result.RefreshToken != "" {
		h.cookies.setRefresh(c, result.RefreshToken)
	}
	c.JSON(http.StatusOK, gin.H{"message": "Refreshed access token successfully"})
}

type verifyEmailRequest struct {
	Code string `json:"code" binding:"required"`
}

func (h *authHandlers) verifyEmail(c *gin.Context) {
	var req verifyEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	user, err := h.auth.VerifyEmail(c.Request.Context(), req.Code)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Email verified successfully",
		"user":    user,
	})
}

type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

func (h *authHandlers) forgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	if err := h.auth.ForgetPassword(c.Request.Context(), req.Email); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password reset email sent"})
}

type resetPasswordRequest struct {
	Code     string `json:"verificationCode" binding:"required"`
	Password string `json:"password" binding:"required,min=6,max=255"`
}

func (h *authHandlers) resetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	if err := h.auth.ResetPassword(c.Request.Context(), req.Code, req.Password); err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.cookies.clear(c)
	c.JSON(http.StatusOK, gin.H{"message": "Reset password successfully"})
}

func (h *authHandlers) logout(c *gin.Context) {
	if err := h.auth.Logout(c.Request.Context(), currentSessionID(c)); err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.cookies.clear(c)
	c.JSON(http.StatusOK, gin.H{"message": "User logout successfully"})
}
