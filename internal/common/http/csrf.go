package http

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/contactdesk/backend/internal/common/constants"
)

// Double-submit CSRF guard: form GETs issue a token as both a cookie and a
// response value, state-changing POSTs must echo it back in the form body.

type CSRFGuard struct {
	secureCookies bool
}

func NewCSRFGuard(secureCookies bool) *CSRFGuard {
	return &CSRFGuard{secureCookies: secureCookies}
}

func (g *CSRFGuard) IssueToken(w http.ResponseWriter) (string, error) {
	b := make([]byte, constants.CSRFTokenSize)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	token := hex.EncodeToString(b)

	http.SetCookie(w, &http.Cookie{
		Name:     constants.CSRFCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   g.secureCookies,
	})

	return token, nil
}

// Verify compares the csrf_token form field against the cookie issued with
// the form. The request's form must already be parsed.
func (g *CSRFGuard) Verify(r *http.Request) (code string, ok bool) {
	cookie, err := r.Cookie(constants.CSRFCookieName)
	if err != nil || cookie.Value == "" {
		return CodeCSRFMissing, false
	}

	received := r.PostFormValue(constants.CSRFFieldName)
	if received == "" {
		return CodeCSRFMissing, false
	}

	if subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(received)) != 1 {
		return CodeCSRFInvalid, false
	}

	return "", true
}
