package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Carte/internal/auth"
	"Carte/internal/websocket"
)

func router(iss *auth.Issuer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Identity(iss, false))
	r.GET("/who", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(IdentityKey))
	})
	return r
}

func TestNewVisitorGetsCookie(t *testing.T) {
	iss := auth.NewIssuer("secret", time.Hour)
	r := router(iss)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/who", nil))
	require.Equal(t, http.StatusOK, w.Code)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, auth.CookieName, cookies[0].Name)
	assert.Equal(t, 3600, cookies[0].MaxAge)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)
	assert.True(t, cookies[0].HttpOnly)

	identity, err := iss.Parse(cookies[0].Value)
	require.NoError(t, err)
	assert.Equal(t, identity, w.Body.String())
}

func TestKnownVisitorKeepsIdentity(t *testing.T) {
	iss := auth.NewIssuer("secret", time.Hour)
	r := router(iss)
	token, identity, err := iss.Issue()
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/who", nil)
	req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: token})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, identity, w.Body.String())
	assert.Empty(t, w.Result().Cookies())

	req = httptest.NewRequest(http.MethodGet, "/who", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, identity, w.Body.String())
}

func TestForgedCookieIsReplaced(t *testing.T) {
	r := router(auth.NewIssuer("secret", time.Hour))
	forged, _, err := auth.NewIssuer("guess", time.Hour).Issue()
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/who", nil)
	req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: forged})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Len(t, w.Result().Cookies(), 1)
	assert.NotEqual(t, forged, w.Result().Cookies()[0].Value)
	assert.NotEmpty(t, w.Body.String())
}

type anyGame struct{}

func (anyGame) Resolve(context.Context, string, string) error { return nil }

func TestWebsocketVisitorKeepsIdentityAcrossReconnects(t *testing.T) {
	iss := auth.NewIssuer("secret", time.Hour)
	hub := websocket.NewHub()
	go hub.Run()
	t.Cleanup(hub.Close)

	identities := make(chan string, 2)
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ws/:gameType/:gameID", Identity(iss, false),
		websocket.ServeWS(hub, anyGame{}, func(c *websocket.Client) { identities <- c.Identity }))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/royalrun/g1"

	conn, resp, err := gorilla.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	first := <-identities
	require.NoError(t, conn.Close())

	cookies := resp.Cookies()
	require.Len(t, cookies, 1, "the handshake carries the fresh identity cookie")
	assert.Equal(t, auth.CookieName, cookies[0].Name)
	parsed, err := iss.Parse(cookies[0].Value)
	require.NoError(t, err)
	assert.Equal(t, first, parsed)

	header := http.Header{}
	header.Set("Cookie", cookies[0].Name+"="+cookies[0].Value)
	conn, resp, err = gorilla.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, first, <-identities)
	assert.Empty(t, resp.Cookies())
}
