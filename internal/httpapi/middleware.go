package httpapi

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/squeezyhq/squeezy/internal/apperr"
	"github.com/squeezyhq/squeezy/internal/models"
	"github.com/squeezyhq/squeezy/internal/token"
	"github.com/squeezyhq/squeezy/internal/user"
)

const (
	ctxUserKey    = "authUser"
	ctxSessionKey = "authSessionID"
)

// requireAuth authenticates the request from the access-token cookie or an
// Authorization bearer header, loads the user, and stashes both on the
// context for handlers downstream.
func requireAuth(codec *token.Codec, users *user.Service, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := accessTokenFrom(c)
		if raw == "" {
			respondError(c, logger, apperr.Unauthorized(apperr.CodeInvalidToken, "missing access token"))
			return
		}

		payload, err := codec.VerifyAccess(raw)
		if err != nil {
			message := "invalid access token"
			if errors.Is(err, token.ErrTokenExpired) {
				message = "access token expired"
			}
			respondError(c, logger, apperr.Unauthorized(apperr.CodeInvalidToken, message).WithCause(err))
			return
		}

		userID, err := primitive.ObjectIDFromHex(payload.UserID)
		if err != nil {
			respondError(c, logger, apperr.Unauthorized(apperr.CodeInvalidToken, "invalid access token").WithCause(err))
			return
		}

		authUser, err := users.FindByID(c.Request.Context(), userID)
		if err != nil {
			if apperr.Is(err, apperr.CodeNotFound) {
				respondError(c, logger, apperr.Unauthorized(apperr.CodeInvalidToken, "invalid access token"))
				return
			}
			respondError(c, logger, err)
			return
		}

		c.Set(ctxUserKey, authUser)
		c.Set(ctxSessionKey, payload.SessionID)
		c.Next()
	}
}

func accessTokenFrom(c *gin.Context) string {
	if cookie, err := c.Cookie(accessCookie); err == nil && cookie != "" {
		return cookie
	}
	header := c.GetHeader("Authorization")
	if after, ok := strings.CutPrefix(header, "Bearer "); ok {
		return after
	}
	return ""
}

// currentUser returns the authenticated user placed by requireAuth.
func currentUser(c *gin.Context) *models.User {
	return c.MustGet(ctxUserKey).(*models.User)
}

// currentSessionID returns the session id of the access token in use.
func currentSessionID(c *gin.Context) string {
	return c.MustGet(ctxSessionKey).(string)
}
