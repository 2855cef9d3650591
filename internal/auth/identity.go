package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// CookieName carries the signed anonymous identity of a browser.
const CookieName = "session_id"

// DefaultTTL matches the cookie lifetime.
const DefaultTTL = 24 * time.Hour

var ErrInvalidToken = errors.New("invalid identity token")

// Issuer signs and verifies anonymous identities. The identity is a random
// uuid carried as the token subject; nothing else is known about the player.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// Issue creates a new identity and its token.
func (i *Issuer) Issue() (token, identity string, err error) {
	identity = uuid.NewString()
	token, err = i.sign(identity)
	return token, identity, err
}

// Refresh signs a new token for an existing identity.
func (i *Issuer) Refresh(identity string) (string, error) {
	return i.sign(identity)
}

func (i *Issuer) sign(identity string) (string, error) {
	now := i.now()
	claims := jwt.RegisteredClaims{
		Subject:   identity,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign identity: %w", err)
	}
	return s, nil
}

// Parse verifies a token and returns its identity.
func (i *Issuer) Parse(token string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return "", fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	return claims.Subject, nil
}

type Handler struct {
	issuer *Issuer
}

func NewHandler(issuer *Issuer) *Handler {
	return &Handler{issuer: issuer}
}

// GET /auth/identity  (identity middleware runs first)
func (h *Handler) Identity(c *gin.Context) {
	identity := c.GetString("identity")
	if identity == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no identity"})
		return
	}
	token, err := h.issuer.Refresh(identity)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"identity": identity, "token": token})
}
