package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sellerpulse/backend/internal/infrastructure/config"
)

// OAuth transaction cookies. The callback arrives as a bare browser GET
// with no Authorization header, so the state, the PKCE verifier, and the
// initiating user's id travel in signed httpOnly cookies set when the flow
// begins. The signature stops a callback forged with someone else's state.
const (
	stateCookieName    = "sp_oauth_state"
	verifierCookieName = "sp_oauth_verifier"
)

var errBadCookie = errors.New("handler: missing, tampered, or expired oauth cookie")

// cookieSigner signs and verifies short-lived OAuth transaction cookies.
// The issued-at travels inside the signed payload, so the TTL holds even
// for a captured cookie value; the browser Max-Age is only a convenience.
type cookieSigner struct {
	secret []byte
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

func newCookieSigner(cfg config.SessionConfig) *cookieSigner {
	return &cookieSigner{
		secret: []byte(cfg.Secret),
		ttl:    cfg.StateTTL,
		secure: cfg.CookieSecure,
		now:    time.Now,
	}
}

func (s *cookieSigner) sign(payload string) string {
	stamped := strconv.FormatInt(s.now().Unix(), 10) + "|" + payload
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(stamped))
	return base64.RawURLEncoding.EncodeToString([]byte(stamped)) +
		"." + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func (s *cookieSigner) verify(value string) (string, error) {
	encoded, sig, ok := strings.Cut(value, ".")
	if !ok {
		return "", errBadCookie
	}
	stamped, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", errBadCookie
	}
	got, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil {
		return "", errBadCookie
	}
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(stamped)
	if !hmac.Equal(got, mac.Sum(nil)) {
		return "", errBadCookie
	}

	issuedStr, payload, ok := strings.Cut(string(stamped), "|")
	if !ok {
		return "", errBadCookie
	}
	issued, err := strconv.ParseInt(issuedStr, 10, 64)
	if err != nil {
		return "", errBadCookie
	}
	age := s.now().Sub(time.Unix(issued, 0))
	if age < 0 || age > s.ttl {
		return "", errBadCookie
	}
	return payload, nil
}

func (s *cookieSigner) set(c *gin.Context, name, payload string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, s.sign(payload), int(s.ttl.Seconds()), "/", "", s.secure, true)
}

// read returns the verified payload and removes the cookie. Cookies are
// single-use: every callback outcome clears them.
func (s *cookieSigner) read(c *gin.Context, name string) (string, error) {
	value, err := c.Cookie(name)
	if err != nil {
		return "", errBadCookie
	}
	return s.verify(value)
}

func (s *cookieSigner) clear(c *gin.Context, names ...string) {
	c.SetSameSite(http.SameSiteLaxMode)
	for _, name := range names {
		c.SetCookie(name, "", -1, "/", "", s.secure, true)
	}
}
