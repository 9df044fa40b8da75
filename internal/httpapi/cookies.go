package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/squeezyhq/squeezy/internal/expiry"
)

const (
	accessCookie  = "accessToken"
	refreshCookie = "refreshToken"
)

// cookieWriter sets and clears the token cookies. The refresh cookie is
// scoped to the refresh endpoint path so it never rides along on ordinary
// API calls.
type cookieWriter struct {
	refreshPath      string
	accessExpiresIn  string
	refreshExpiresIn string
	secure           bool
	sameSite         http.SameSite
}

func newCookieWriter(basePath, accessExpiresIn, refreshExpiresIn string, production bool) *cookieWriter {
	sameSite := http.SameSiteLaxMode
	if production {
		sameSite = http.SameSiteStrictMode
	}
	return &cookieWriter{
		refreshPath:      basePath + "/auth/refresh",
		accessExpiresIn:  accessExpiresIn,
		refreshExpiresIn: refreshExpiresIn,
		secure:           production,
		sameSite:         sameSite,
	}
}

func (w *cookieWriter) set(c *gin.Context, name, value, path, expiresIn string) {
	maxAge, err := expiry.Duration(expiresIn)
	if err != nil {
		maxAge = time.Hour
	}
	c.SetSameSite(w.sameSite)
	c.SetCookie(name, value, int(maxAge.Seconds()), path, "", w.secure, true)
}

// setAccess writes the access-token cookie on the whole API surface.
func (w *cookieWriter) setAccess(c *gin.Context, token string) {
	w.set(c, accessCookie, token, "/", w.accessExpiresIn)
}

// setRefresh writes the refresh-token cookie on the refresh path only.
func (w *cookieWriter) setRefresh(c *gin.Context, token string) {
	w.set(c, refreshCookie, token, w.refreshPath, w.refreshExpiresIn)
}

// setPair writes both cookies; the shape of every successful login.
func (w *cookieWriter) setPair(c *gin.Context, access, refresh string) {
	w.setAccess(c, access)
	w.setRefresh(c, refresh)
}

// clear expires both cookies. Used on logout and whenever the refresh
// endpoint rejects a token, so a broken client stops replaying it.
func (w *cookieWriter) clear(c *gin.Context) {
	c.SetSameSite(w.sameSite)
	c.SetCookie(accessCookie, "", -1, "/", "", w.secure, true)
	c.SetCookie(refreshCookie, "", -1, w.refreshPath, "", w.secure, true)
}
