package session

import (
	"net/http"
	"time"
)

// CookieSetter writes and clears the session cookie
type CookieSetter interface {
	SetCookie(w http.ResponseWriter, name, value string, expire time.Time)
	ClearCookie(w http.ResponseWriter, name string)
}

// BaseCookieSetter writes host-only cookies with fixed attributes
type BaseCookieSetter struct {
	Path     string
	HttpOnly bool
	Secure   bool
	SameSite http.SameSite
}

func (c *BaseCookieSetter) SetCookie(w http.ResponseWriter, name, value string, expire time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Path:     c.Path,
		Value:    value,
		Expires:  expire,
		HttpOnly: c.HttpOnly,
		Secure:   c.Secure,
		SameSite: c.SameSite,
	})
}

func (c *BaseCookieSetter) ClearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Path:     c.Path,
		Value:    "",
		MaxAge:   -1,
		HttpOnly: c.HttpOnly,
		Secure:   c.Secure,
		SameSite: c.SameSite,
	})
}

// NewCookieSetter returns an HttpOnly, SameSite=Lax cookie setter rooted at /
func NewCookieSetter(secure bool) CookieSetter {
	return &BaseCookieSetter{
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}
