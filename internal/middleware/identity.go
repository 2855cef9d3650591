package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"Carte/internal/auth"
	"Carte/internal/utils"
)

// IdentityKey is the gin context key holding the caller's identity.
const IdentityKey = "identity"

// Identity resolves the anonymous identity of the caller from the
// session_id cookie, or from a Bearer token for non-browser clients. A
// caller without a valid one gets a fresh identity and cookie.
func Identity(issuer *auth.Issuer, secureCookie bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if identity, ok := fromRequest(c, issuer); ok {
			c.Set(IdentityKey, identity)
			c.Next()
			return
		}

		token, identity, err := issuer.Issue()
		if err != nil {
			utils.Log.Error("issue identity failed", "err", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "identity unavailable"})
			return
		}
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(auth.CookieName, token, int(issuer.TTL().Seconds()), "/", "", secureCookie, true)
		c.Set(IdentityKey, identity)
		c.Next()
	}
}

func fromRequest(c *gin.Context, issuer *auth.Issuer) (string, bool) {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		if identity, err := issuer.Parse(strings.TrimPrefix(h, "Bearer ")); err == nil {
			return identity, true
		}
	}
	if token, err := c.Cookie(auth.CookieName); err == nil {
		if identity, err := issuer.Parse(token); err == nil {
			return identity, true
		}
	}
	return "", false
}
