// Package session resolves an authenticated identity across requests.
// Identity is carried by a signed session token cookie scoped to the
// browser session, optionally backed by a long-lived remember token.
package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/contactdesk/backend/internal/common/clock"
	"github.com/contactdesk/backend/internal/common/constants"
	"github.com/contactdesk/backend/internal/common/logger"
	"github.com/contactdesk/backend/internal/observability/metrics"
	"github.com/contactdesk/backend/internal/user/domain"
	userrepo "github.com/contactdesk/backend/internal/user/repository"
)

const (
	tokenTypeSession  = "session"
	tokenTypeRemember = "remember"

	LoginPath = "/login"
)

type contextKey string

const userKey contextKey = "session_user"

var errInvalidToken = errors.New("token is not valid")

type Manager struct {
	users         userrepo.Repository
	secret        []byte
	secureCookies bool
	clock         clock.Clock
	log           *logger.Logger
}

func NewManager(
	users userrepo.Repository,
	secret string,
	secureCookies bool,
	clk clock.Clock,
	log *logger.Logger,
) *Manager {
	return &Manager{
		users:         users,
		secret:        []byte(secret),
		secureCookies: secureCookies,
		clock:         clk,
		log:           log,
	}
}

// Login transitions the browser session to Authenticated(userID). The
// session cookie carries no Max-Age so it dies with the browser; the
// remember cookie, when requested, survives restarts.
func (m *Manager) Login(w http.ResponseWriter, r *http.Request, userID domain.ID, remember bool) error {
	fp := fingerprint(r)

	sessionToken, err := m.issueToken(string(userID), fp, tokenTypeSession, constants.SessionTokenTTL)
	if err != nil {
		return err
	}
	m.setCookie(w, constants.SessionCookieName, sessionToken, 0)

	if remember {
		rememberToken, err := m.issueToken(string(userID), fp, tokenTypeRemember, constants.RememberTokenTTL)
		if err != nil {
			return err
		}
		m.setCookie(w, constants.RememberCookieName, rememberToken, constants.RememberTokenTTL)
	}

	return nil
}

// Logout returns the session to Anonymous and invalidates any remember
// token. Safe to call when already anonymous.
func (m *Manager) Logout(w http.ResponseWriter) {
	m.clearCookie(w, constants.SessionCookieName)
	m.clearCookie(w, constants.RememberCookieName)
}

// CurrentUser resolves the request to a user record. A corrupt or absent
// token, a fingerprint mismatch or an unknown user id all resolve to
// anonymous; resolution never fails loudly. A valid remember token with no
// live session resumes the session and re-issues the session cookie.
func (m *Manager) CurrentUser(w http.ResponseWriter, r *http.Request) (domain.User, bool) {
	fp := fingerprint(r)

	if userID, ok := m.parseCookie(r, constants.SessionCookieName, tokenTypeSession, fp, w); ok {
		if user, found := m.lookup(r.Context(), userID); found {
			return user, true
		}
		return domain.User{}, false
	}

	userID, ok := m.parseCookie(r, constants.RememberCookieName, tokenTypeRemember, fp, w)
	if !ok {
		return domain.User{}, false
	}

	user, found := m.lookup(r.Context(), userID)
	if !found {
		return domain.User{}, false
	}

	sessionToken, err := m.issueToken(userID, fp, tokenTypeSession, constants.SessionTokenTTL)
	if err != nil {
		m.log.Errorf("session resume failed: token issue error: %v", err)
		return domain.User{}, false
	}
	m.setCookie(w, constants.SessionCookieName, sessionToken, 0)
	metrics.SessionsResumedTotal.Inc()

	m.log.WithFields(r.Context(), logger.Fields{
		"user_id": userID,
		"action":  "session_resumed",
	}).Info("session resumed from remember token")

	return user, true
}

// RequireAuthenticated guards a handler: anonymous requests are redirected
// to the login entry point with the original destination preserved.
func (m *Manager) RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := m.CurrentUser(w, r)
		if !ok {
			redirectURL := LoginPath + "?next=" + url.QueryEscape(r.URL.RequestURI())
			http.Redirect(w, r, redirectURL, http.StatusFound)
			return
		}

		ctx := context.WithValue(r.Context(), userKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func UserFromContext(ctx context.Context) (domain.User, bool) {
	user, ok := ctx.Value(userKey).(domain.User)
	return user, ok
}

func (m *Manager) lookup(ctx context.Context, userID string) (domain.User, bool) {
	user, err := m.users.FindByID(ctx, domain.ID(userID))
	if err != nil {
		if !errors.Is(err, userrepo.ErrUserNotFound) {
			m.log.Errorf("session user lookup failed: %v", err)
		}
		return domain.User{}, false
	}
	return user, true
}

func (m *Manager) parseCookie(r *http.Request, name, tokenType, fp string, w http.ResponseWriter) (string, bool) {
	cookie, err := r.Cookie(name)
	if err != nil || cookie.Value == "" {
		return "", false
	}

	userID, tokenFp, err := m.parseToken(cookie.Value, tokenType)
	if err != nil {
		return "", false
	}

	// Strong session binding: a token presented by a different client is
	// dropped and the cookies with it.
	if tokenFp != fp {
		m.log.WithFields(r.Context(), logger.Fields{
			"user_id": userID,
			"action":  "session_binding_mismatch",
		}).Warn("session invalidated: client fingerprint changed")
		m.Logout(w)
		return "", false
	}

	return userID, true
}

func (m *Manager) issueToken(userID, fp, tokenType string, ttl time.Duration) (string, error) {
	now := m.clock.Now()
	claims := jwt.MapClaims{
		"sub": userID,
		"fp":  fp,
		"typ": tokenType,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(m.secret)
}

func (m *Manager) parseToken(tokenString, wantType string) (userID, fp string, err error) {
	parsed, err := jwt.Parse(
		tokenString,
		func(token *jwt.Token) (any, error) {
			if token.Method != jwt.SigningMethodHS256 {
				return nil, errors.New("unexpected signing method")
			}
			return m.secret, nil
		},
		jwt.WithTimeFunc(m.clock.Now),
	)
	if err != nil || !parsed.Valid {
		if err == nil {
			err = errInvalidToken
		}
		return "", "", err
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", errors.New("invalid claims type")
	}

	sub, _ := mapClaims["sub"].(string)
	tokenFp, _ := mapClaims["fp"].(string)
	tokenType, _ := mapClaims["typ"].(string)
	if sub == "" || tokenType != wantType {
		return "", "", errors.New("missing or mismatched claims")
	}

	return sub, tokenFp, nil
}

func (m *Manager) setCookie(w http.ResponseWriter, name, value string, ttl time.Duration) {
	cookie := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   m.secureCookies,
	}
	if ttl > 0 {
		cookie.Expires = m.clock.Now().Add(ttl)
		cookie.MaxAge = int(ttl.Seconds())
	}
	http.SetCookie(w, cookie)
}

func (m *Manager) clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   m.secureCookies,
	})
}

func fingerprint(r *http.Request) string {
	sum := sha256.Sum256([]byte(r.UserAgent()))
	return hex.EncodeToString(sum[:])
}
