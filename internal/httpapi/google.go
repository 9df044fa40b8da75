package httpapi

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/squeezyhq/squeezy/internal/apperr"
	"github.com/squeezyhq/squeezy/internal/auth"
	"github.com/squeezyhq/squeezy/internal/models"
)

const (
	stateCookie    = "oauthState"
	stateCookieAge = 600 // seconds

	userinfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
)

// GoogleUsers is the slice of the users collection the OAuth callback needs
// to resolve or create the account behind a Google identity.
type GoogleUsers interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Insert(ctx context.Context, user *models.User) (*models.User, error)
	LinkGoogle(ctx context.Context, id primitive.ObjectID, googleID, avatar string) error
}

// googleProfile is the subset of the userinfo response we consume.
type googleProfile struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// googleHandlers drives the OAuth redirect handshake. Account linking is by
// email: an existing account gains the Google identity, a new one is
// created already verified since Google vouches for the address.
type googleHandlers struct {
	oauth     *oauth2.Config
	auth      *auth.Service
	users     GoogleUsers
	cookies   *cookieWriter
	appOrigin string
	secure    bool
	logger    *slog.Logger
}

func newGoogleHandlers(clientID, clientSecret, callbackURL, appOrigin string, secure bool, authService *auth.Service, users GoogleUsers, cookies *cookieWriter, logger *slog.Logger) *googleHandlers {
	return &googleHandlers{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"openid", "profile", "email"},
			Endpoint:     google.Endpoint,
		},
		auth:      authService,
		users:     users,
		cookies:   cookies,
		appOrigin: appOrigin,
		secure:    secure,
		logger:    logger,
	}
}

// start redirects to Google's consent screen with a fresh anti-CSRF state.
func (h *googleHandlers) start(c *gin.Context) {
	state, err := randomState()
	if err != nil {
		respondError(c, h.logger, apperr.Internal(err))
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(stateCookie, state, stateCookieAge, "/", "", h.secure, true)
	c.Redirect(http.StatusTemporaryRedirect, h.oauth.AuthCodeURL(state))
}

// callback finishes the handshake: validate state, exchange the code, pull
// the profile, resolve the local account, then log it in like any other.
func (h *googleHandlers) callback(c *gin.Context) {
	expected, err := c.Cookie(stateCookie)
	if err != nil || expected == "" || c.Query("state") != expected {
		h.redirectFailure(c, "invalid oauth state")
		return
	}
	c.SetCookie(stateCookie, "", -1, "/", "", h.secure, true)

	code := c.Query("code")
	if code == "" {
		h.redirectFailure(c, "missing authorization code")
		return
	}

	ctx := c.Request.Context()
	tok, err := h.oauth.Exchange(ctx, code)
	if err != nil {
		h.logger.Error("oauth code exchange failed", "error", err)
		h.redirectFailure(c, "code exchange failed")
		return
	}

	profile, err := h.fetchProfile(ctx, tok)
	if err != nil {
		h.logger.Error("oauth profile fetch failed", "error", err)
		h.redirectFailure(c, "profile fetch failed")
		return
	}
	if profile.Email == "" || !profile.VerifiedEmail {
		h.redirectFailure(c, "google account has no verified email")
		return
	}

	user, err := h.resolveUser(ctx, profile)
	if err != nil {
		h.logger.Error("oauth user resolution failed", "error", err)
		h.redirectFailure(c, "account resolution failed")
		return
	}

	result, err := h.auth.HandleGoogleOAuth(ctx, user, c.Request.UserAgent())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	if result.MFARequired {
		c.Redirect(http.StatusTemporaryRedirect,
			fmt.Sprintf("%s/verify-mfa?email=%s", h.appOrigin, url.QueryEscape(user.Email)))
		return
	}

	h.cookies.setPair(c, result.AccessToken, result.RefreshToken)
	c.Redirect(http.StatusTemporaryRedirect, h.appOrigin+"?status=success")
}

func (h *googleHandlers) fetchProfile(ctx context.Context, tok *oauth2.Token) (*googleProfile, error) {
	resp, err := h.oauth.Client(ctx, tok).Get(userinfoURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo returned %s", resp.Status)
	}

	var profile googleProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// resolveUser maps a Google identity onto a local account, creating or
// linking as needed.
func (h *googleHandlers) resolveUser(ctx context.Context, profile *googleProfile) (*models.User, error) {
	user, err := h.users.FindByEmail(ctx, profile.Email)
	if err != nil {
		return nil, err
	}

	if user == nil {
		return h.users.Insert(ctx, &models.User{
			Name:            profile.Name,
			Email:           profile.Email,
			IsEmailVerified: true,
			GoogleID:        profile.ID,
			Avatar:          profile.Picture,
		})
	}

	if user.GoogleID == "" {
		if err := h.users.LinkGoogle(ctx, user.ID, profile.ID, profile.Picture); err != nil {
			return nil, err
		}
		user.GoogleID = profile.ID
		user.IsEmailVerified = true
		if profile.Picture != "" {
			user.Avatar = profile.Picture
		}
	}

	return user, nil
}

func (h *googleHandlers) redirectFailure(c *gin.Context, reason string) {
	h.logger.Warn("oauth login rejected", "reason", reason)
	c.Redirect(http.StatusTemporaryRedirect, h.appOrigin+"?status=failure")
}

func randomState() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
