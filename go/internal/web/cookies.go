package web

import (
	"net/http"

	"github.com/mcdev12/tempo/go/internal/auth"
	"github.com/mcdev12/tempo/go/internal/models"
)

// CookieConfig controls the attributes of the session cookies
type CookieConfig struct {
	Secure   bool
	SameSite http.SameSite
	Domain   string
}

// DefaultCookieConfig returns cookie settings suited to local development
func DefaultCookieConfig() CookieConfig {
	return CookieConfig{
		SameSite: http.SameSiteLaxMode,
	}
}

func (c CookieConfig) cookie(name, value string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   c.Domain,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: c.SameSite,
	}
}

func (c CookieConfig) setSession(w http.ResponseWriter, session *models.Session) {
	http.SetCookie(w, c.cookie(auth.SessionTokenCookie, session.Token))
	http.SetCookie(w, c.cookie(auth.SessionIDCookie, session.SessionID))
}

func (c CookieConfig) clearSession(w http.ResponseWriter) {
	for _, name := range []string{auth.SessionTokenCookie, auth.SessionIDCookie} {
		cookie := c.cookie(name, "")
		cookie.MaxAge = -1
		http.SetCookie(w, cookie)
	}
}
