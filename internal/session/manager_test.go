package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/contactdesk/backend/internal/common/clock"
	"github.com/contactdesk/backend/internal/common/constants"
	"github.com/contactdesk/backend/internal/common/logger"
	userdomain "github.com/contactdesk/backend/internal/user/domain"
	userrepo "github.com/contactdesk/backend/internal/user/repository"
)

const (
	testSecret    = "test-secret-key-at-least-32-bytes-long"
	testUserAgent = "test-agent/1.0"
)

type mockUserRepository struct {
	createFunc          func(ctx context.Context, user userdomain.User) error
	findByUsernameFunc  func(ctx context.Context, username string) (userdomain.User, error)
	findByEmailFunc     func(ctx context.Context, email string) (userdomain.User, error)
	findByIDFunc        func(ctx context.Context, id userdomain.ID) (userdomain.User, error)
	listNewestFirstFunc func(ctx context.Context) ([]userdomain.Summary, error)
}

func (m *mockUserRepository) Create(ctx context.Context, user userdomain.User) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, user)
	}
	return nil
}

func (m *mockUserRepository) FindByUsername(ctx context.Context, username string) (userdomain.User, error) {
	if m.findByUsernameFunc != nil {
		return m.findByUsernameFunc(ctx, username)
	}
	return userdomain.User{}, userrepo.ErrUserNotFound
}

func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (userdomain.User, error) {
	if m.findByEmailFunc != nil {
		return m.findByEmailFunc(ctx, email)
	}
	return userdomain.User{}, userrepo.ErrUserNotFound
}

func (m *mockUserRepository) FindByID(ctx context.Context, id userdomain.ID) (userdomain.User, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return userdomain.User{}, userrepo.ErrUserNotFound
}

func (m *mockUserRepository) ListNewestFirst(ctx context.Context) ([]userdomain.Summary, error) {
	if m.listNewestFirstFunc != nil {
		return m.listNewestFirstFunc(ctx)
	}
	return nil, nil
}

func setupManager(t *testing.T) (*Manager, *mockUserRepository, *clock.MockClock) {
	t.Helper()

	log, err := logger.New("", "session-test", "ERROR")
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}

	repo := &mockUserRepository{}
	mockClock := clock.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	return NewManager(repo, testSecret, false, mockClock, log), repo, mockClock
}

func knownUser(repo *mockUserRepository, id userdomain.ID) userdomain.User {
	user := userdomain.User{
		ID:       id,
		Username: "alice",
		Email:    "alice@example.com",
	}
	repo.findByIDFunc = func(ctx context.Context, got userdomain.ID) (userdomain.User, error) {
		if got != id {
			return userdomain.User{}, userrepo.ErrUserNotFound
		}
		return user, nil
	}
	return user
}

func newRequest(method, target string) *http.Request {
	r := httptest.NewRequest(method, target, nil)
	r.Header.Set("User-Agent", testUserAgent)
	return r
}

func cookieByName(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// loginAndCollect performs a login and returns the cookies it set.
func loginAndCollect(t *testing.T, m *Manager, userID userdomain.ID, remember bool) []*http.Cookie {
	t.Helper()

	w := httptest.NewRecorder()
	if err := m.Login(w, newRequest(http.MethodPost, "/login"), userID, remember); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	return w.Result().Cookies()
}

func TestManager_Login_SessionCookieOnly(t *testing.T) {
	m, _, _ := setupManager(t)

	cookies := loginAndCollect(t, m, "user-1", false)

	session := cookieByName(cookies, constants.SessionCookieName)
	if session == nil {
		t.Fatal("expected a session cookie")
	}
	if session.MaxAge != 0 {
		t.Errorf("expected session cookie without Max-Age, got %d", session.MaxAge)
	}
	if !session.HttpOnly {
		t.Error("expected session cookie to be HttpOnly")
	}

	if cookieByName(cookies, constants.RememberCookieName) != nil {
		t.Error("expected no remember cookie without remember")
	}
}

func TestManager_Login_WithRemember(t *testing.T) {
	m, _, _ := setupManager(t)

	cookies := loginAndCollect(t, m, "user-1", true)

	remember := cookieByName(cookies, constants.RememberCookieName)
	if remember == nil {
		t.Fatal("expected a remember cookie")
	}
	if remember.MaxAge <= 0 {
		t.Errorf("expected remember cookie with positive Max-Age, got %d", remember.MaxAge)
	}
}

func TestManager_CurrentUser_WithSession(t *testing.T) {
	m, repo, _ := setupManager(t)
	want := knownUser(repo, "user-1")

	cookies := loginAndCollect(t, m, want.ID, false)

	r := newRequest(http.MethodGet, "/users")
	r.AddCookie(cookieByName(cookies, constants.SessionCookieName))

	user, ok := m.CurrentUser(httptest.NewRecorder(), r)
	if !ok {
		t.Fatal("expected an authenticated user")
	}
	if user.ID != want.ID {
		t.Errorf("expected user %s, got %s", want.ID, user.ID)
	}
}

func TestManager_CurrentUser_NoCookies(t *testing.T) {
	m, _, _ := setupManager(t)

	_, ok := m.CurrentUser(httptest.NewRecorder(), newRequest(http.MethodGet, "/users"))
	if ok {
		t.Error("expected anonymous without cookies")
	}
}

func TestManager_CurrentUser_TamperedToken(t *testing.T) {
	m, repo, _ := setupManager(t)
	knownUser(repo, "user-1")

	r := newRequest(http.MethodGet, "/users")
	r.AddCookie(&http.Cookie{Name: constants.SessionCookieName, Value: "not.a.token"})

	_, ok := m.CurrentUser(httptest.NewRecorder(), r)
	if ok {
		t.Error("expected anonymous for a tampered token")
	}
}

func TestManager_CurrentUser_ResumesFromRemember(t *testing.T) {
	m, repo, mockClock := setupManager(t)
	want := knownUser(repo, "user-1")

	cookies := loginAndCollect(t, m, want.ID, true)

	// The browser restarted: the session cookie is gone, the remember
	// cookie survived, and the old session token would have expired anyway.
	mockClock.Advance(constants.SessionTokenTTL + time.Hour)

	r := newRequest(http.MethodGet, "/contacts")
	r.AddCookie(cookieByName(cookies, constants.RememberCookieName))

	w := httptest.NewRecorder()
	user, ok := m.CurrentUser(w, r)
	if !ok {
		t.Fatal("expected the session to resume from the remember token")
	}
	if user.ID != want.ID {
		t.Errorf("expected user %s, got %s", want.ID, user.ID)
	}

	reissued := cookieByName(w.Result().Cookies(), constants.SessionCookieName)
	if reissued == nil || reissued.Value == "" {
		t.Error("expected a fresh session cookie after resuming")
	}
}

func TestManager_CurrentUser_ExpiredRemember(t *testing.T) {
	m, repo, mockClock := setupManager(t)
	knownUser(repo, "user-1")

	cookies := loginAndCollect(t, m, "user-1", true)

	mockClock.Advance(constants.RememberTokenTTL + time.Hour)

	r := newRequest(http.MethodGet, "/contacts")
	r.AddCookie(cookieByName(cookies, constants.RememberCookieName))

	_, ok := m.CurrentUser(httptest.NewRecorder(), r)
	if ok {
		t.Error("expected anonymous after the remember token expired")
	}
}

func TestManager_CurrentUser_FingerprintMismatch(t *testing.T) {
	m, repo, _ := setupManager(t)
	knownUser(repo, "user-1")

	cookies := loginAndCollect(t, m, "user-1", true)

	r := httptest.NewRequest(http.MethodGet, "/contacts", nil)
	r.Header.Set("User-Agent", "different-agent/2.0")
	r.AddCookie(cookieByName(cookies, constants.SessionCookieName))
	r.AddCookie(cookieByName(cookies, constants.RememberCookieName))

	w := httptest.NewRecorder()
	_, ok := m.CurrentUser(w, r)
	if ok {
		t.Fatal("expected anonymous when the client fingerprint changed")
	}

	cleared := cookieByName(w.Result().Cookies(), constants.SessionCookieName)
	if cleared == nil || cleared.MaxAge != -1 {
		t.Error("expected the session cookie to be cleared")
	}
}

func TestManager_CurrentUser_UnknownUser(t *testing.T) {
	m, _, _ := setupManager(t)

	cookies := loginAndCollect(t, m, "ghost", false)

	r := newRequest(http.MethodGet, "/users")
	r.AddCookie(cookieByName(cookies, constants.SessionCookieName))

	_, ok := m.CurrentUser(httptest.NewRecorder(), r)
	if ok {
		t.Error("expected anonymous for a deleted user")
	}
}

func TestManager_Logout_ClearsBothCookies(t *testing.T) {
	m, _, _ := setupManager(t)

	w := httptest.NewRecorder()
	m.Logout(w)

	cookies := w.Result().Cookies()
	for _, name := range []string{constants.SessionCookieName, constants.RememberCookieName} {
		c := cookieByName(cookies, name)
		if c == nil {
			t.Fatalf("expected %s cookie to be cleared", name)
		}
		if c.MaxAge != -1 {
			t.Errorf("expected %s cookie Max-Age -1, got %d", name, c.MaxAge)
		}
	}
}

func TestManager_RequireAuthenticated_RedirectsAnonymous(t *testing.T) {
	m, _, _ := setupManager(t)

	handler := m.RequireAuthenticated(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("expected the guarded handler not to run")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, newRequest(http.MethodGet, "/contacts?page=2"))

	if w.Code != http.StatusFound {
		t.Fatalf("expected status %d, got %d", http.StatusFound, w.Code)
	}
	if got := w.Header().Get("Location"); got != "/login?next=%2Fcontacts%3Fpage%3D2" {
		t.Errorf("unexpected redirect location: %q", got)
	}
}

func TestManager_RequireAuthenticated_PassesUser(t *testing.T) {
	m, repo, _ := setupManager(t)
	want := knownUser(repo, "user-1")

	cookies := loginAndCollect(t, m, want.ID, false)

	var got userdomain.User
	handler := m.RequireAuthenticated(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok {
			t.Error("expected the user in the request context")
		}
		got = user
	}))

	r := newRequest(http.MethodGet, "/contacts")
	r.AddCookie(cookieByName(cookies, constants.SessionCookieName))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	if got.ID != want.ID {
		t.Errorf("expected user %s, got %s", want.ID, got.ID)
	}
}
