package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/squeezyhq/squeezy/internal/mfa"
)

// mfaHandlers serves TOTP enrollment and the MFA leg of login.
type mfaHandlers struct {
	mfa     *mfa.Service
	cookies *cookieWriter
	logger  *slog.Logger
}

func (h *mfaHandlers) setup(c *gin.Context) {
	setup, err := h.mfa.GenerateSetup(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, setup)
}

type verifyMFARequest struct {
	Code string `json:"code" binding:"required,len=6"`
}

func (h *mfaHandlers) verifySetup(c *gin.Context) {
	var req verifyMFARequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	prefs, err := h.mfa.VerifySetup(c.Request.Context(), currentUser(c), req.Code)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":         "MFA setup completed successfully",
		"userPreferences": prefs,
	})
}

func (h *mfaHandlers) revoke(c *gin.Context) {
	result, err := h.mfa.Revoke(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

type verifyMFALoginRequest struct {
	Code  string `json:"code" binding:"required,len=6"`
	Email string `json:"email" binding:"required,email"`
}

func (h *mfaHandlers) verifyLogin(c *gin.Context) {
	var req verifyMFALoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	result, err := h.mfa.VerifyLogin(c.Request.Context(), req.Email, req.Code, c.Request.UserAgent())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.cookies.setPair(c, result.AccessToken, result.RefreshToken)
	c.JSON(http.StatusOK, gin.H{
		"message": "Verified and login successfully",
		"user":    result.User,
	})
}
