// Package httpapi is the HTTP boundary: routing, request binding, cookie
// transport, and translation of domain errors into responses. All business
// rules live in the service packages it delegates to.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/squeezyhq/squeezy/internal/auth"
	"github.com/squeezyhq/squeezy/internal/mfa"
	"github.com/squeezyhq/squeezy/internal/session"
	"github.com/squeezyhq/squeezy/internal/token"
	"github.com/squeezyhq/squeezy/internal/user"
)

// GoogleConfig carries the OAuth client credentials.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
}

// RouterConfig carries everything the HTTP layer needs from configuration.
type RouterConfig struct {
	BasePath         string
	AppOrigin        string
	Production       bool
	AccessExpiresIn  string
	RefreshExpiresIn string
	Google           GoogleConfig
}

// Services bundles the domain services the router dispatches to.
type Services struct {
	Auth     *auth.Service
	MFA      *mfa.Service
	Sessions *session.Service
	Users    *user.Service
}

// NewRouter builds the gin engine with all routes mounted under BasePath.
func NewRouter(cfg RouterConfig, codec *token.Codec, services Services, googleUsers GoogleUsers, logger *slog.Logger) *gin.Engine {
	if cfg.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.AppOrigin},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	cookies := newCookieWriter(cfg.BasePath, cfg.AccessExpiresIn, cfg.RefreshExpiresIn, cfg.Production)
	authed := requireAuth(codec, services.Users, logger)

	authH := &authHandlers{auth: services.Auth, cookies: cookies, logger: logger}
	mfaH := &mfaHandlers{mfa: services.MFA, cookies: cookies, logger: logger}
	sessionH := &sessionHandlers{sessions: services.Sessions, logger: logger}
	googleH := newGoogleHandlers(
		cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.CallbackURL,
		cfg.AppOrigin, cfg.Production, services.Auth, googleUsers, cookies, logger)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	base := r.Group(cfg.BasePath)

	authGroup := base.Group("/auth")
	{
		authGroup.POST("/register", authH.register)
		authGroup.POST("/login", authH.login)
		authGroup.POST("/verify/email", authH.verifyEmail)
		authGroup.POST("/password/forgot", authH.forgotPassword)
		authGroup.POST("/password/reset", authH.resetPassword)
		authGroup.GET("/refresh", authH.refresh)
		authGroup.POST("/logout", authed, authH.logout)
		authGroup.GET("/google", googleH.start)
		authGroup.GET("/google/callback", googleH.callback)
	}

	mfaGroup := base.Group("/mfa")
	{
		mfaGroup.GET("/setup", authed, mfaH.setup)
		mfaGroup.POST("/verify", authed, mfaH.verifySetup)
		mfaGroup.PUT("/revoke", authed, mfaH.revoke)
		mfaGroup.POST("/verify-login", mfaH.verifyLogin)
	}

	sessionGroup := base.Group("/session", authed)
	{
		sessionGroup.GET("/all", sessionH.list)
		sessionGroup.GET("/", sessionH.current)
		sessionGroup.DELETE("/:id", sessionH.delete)
	}

	base.GET("/user/current", authed, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": currentUser(c)})
	})

	return r
}
