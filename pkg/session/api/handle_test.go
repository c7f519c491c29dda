package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/trustgate/pkg/identity"
	"github.com/tendant/trustgate/pkg/session"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func setupRouter(t *testing.T, users *identity.InMemDirectory) (*chi.Mux, *session.Signer) {
	t.Helper()
	signer := session.NewSigner(session.SignerConfig{Secret: testSecret, Issuer: "trustgate"})
	r := chi.NewRouter()
	NewHandle(signer, users).Routes(r)
	return r, signer
}

func sessionCookie(t *testing.T, signer *session.Signer, user identity.User) *http.Cookie {
	t.Helper()
	token, _, err := signer.Sign(session.NewEnricher().Enrich(user, "credentials"))
	require.NoError(t, err)
	return &http.Cookie{Name: signer.CookieName(), Value: token}
}

func TestRefresh_ReissuesSession(t *testing.T) {
	users := identity.NewInMemDirectory()
	user := users.Put(identity.User{Email: "a@example.com", Name: "Alice", Role: "user"})
	r, signer := setupRouter(t, users)

	req := httptest.NewRequest(http.MethodPost, RefreshPath, strings.NewReader(`{"image":"https://cdn/new.png"}`))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(sessionCookie(t, signer, user))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, user.ID, resp.ID)
	require.NotNil(t, resp.Image)
	assert.Equal(t, "https://cdn/new.png", *resp.Image)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	claims, err := signer.Parse(cookies[0].Value)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/new.png", *claims.Image)
}

func TestRefresh_BearerHeader(t *testing.T) {
	users := identity.NewInMemDirectory()
	user := users.Put(identity.User{Email: "b@example.com"})
	r, signer := setupRouter(t, users)

	req := httptest.NewRequest(http.MethodPost, RefreshPath, nil)
	req.Header.Set("Authorization", "Bearer "+sessionCookie(t, signer, user).Value)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestRefresh_RejectsBumpedSessionVersion(t *testing.T) {
	users := identity.NewInMemDirectory()
	user := users.Put(identity.User{Email: "c@example.com", SessionVersion: 1})
	r, signer := setupRouter(t, users)
	cookie := sessionCookie(t, signer, user)

	user.SessionVersion = 2
	users.Put(user)

	req := httptest.NewRequest(http.MethodPost, RefreshPath, nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "SESSION_REVOKED")
}

func TestRefresh_RequiresSession(t *testing.T) {
	r, _ := setupRouter(t, identity.NewInMemDirectory())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, RefreshPath, nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
