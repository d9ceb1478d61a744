package credcore

import (
	"net/http"
	"time"
)

// RefreshCookie builds the HttpOnly refresh-token cookie described by
// Config.Cookie. Pass an empty token and a past expiry to clear it.
// A nil engine returns nil.
func (e *Engine) RefreshCookie(token string, expires time.Time) *http.Cookie {
	if e == nil {
		return nil
	}
	cfg := e.config.Cookie

	c := &http.Cookie{
		Name:     cfg.Name,
		Value:    token,
		Path:     cfg.Path,
		Domain:   cfg.Domain,
		Expires:  expires,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: cfg.SameSite,
	}
	if token == "" {
		c.MaxAge = -1
	}
	return c
}
