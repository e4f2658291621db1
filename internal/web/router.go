package web

import (
	"net/http"
	"time"

	"github.com/contactdesk/backend/internal/common/clock"
	commoncrypto "github.com/contactdesk/backend/internal/common/crypto"
	commonhttp "github.com/contactdesk/backend/internal/common/http"
	"github.com/contactdesk/backend/internal/common/logger"
	contactrepo "github.com/contactdesk/backend/internal/contact/repository"
	"github.com/contactdesk/backend/internal/forms"
	"github.com/contactdesk/backend/internal/session"
	userrepo "github.com/contactdesk/backend/internal/user/repository"
)

const defaultAfterLogin = "/contacts"

type Handler struct {
	users        userrepo.Repository
	contacts     contactrepo.Repository
	forms        *forms.Validator
	sessions     *session.Manager
	hasher       commoncrypto.PasswordHasher
	idGenerator  commoncrypto.IDGenerator
	csrf         *commonhttp.CSRFGuard
	errorHandler *commonhttp.ErrorHandler
	clock        clock.Clock
	log          *logger.Logger
	timeout      time.Duration
}

type Deps struct {
	Users       userrepo.Repository
	Contacts    contactrepo.Repository
	Forms       *forms.Validator
	Sessions    *session.Manager
	Hasher      commoncrypto.PasswordHasher
	IDGenerator commoncrypto.IDGenerator
	CSRF        *commonhttp.CSRFGuard
	Clock       clock.Clock
	Log         *logger.Logger
	Timeout     time.Duration
}

// NewHandler wires the route table. Guards are applied per route, the
// base middleware chain is the caller's concern.
func NewHandler(deps Deps) http.Handler {
	h := &Handler{
		users:        deps.Users,
		contacts:     deps.Contacts,
		forms:        deps.Forms,
		sessions:     deps.Sessions,
		hasher:       deps.Hasher,
		idGenerator:  deps.IDGenerator,
		csrf:         deps.CSRF,
		errorHandler: commonhttp.NewErrorHandler(deps.Log),
		clock:        deps.Clock,
		log:          deps.Log,
		timeout:      deps.Timeout,
	}

	withTimeout := commonhttp.WithTimeout(h.timeout)
	requireGet := commonhttp.RequireMethod(http.MethodGet)
	authed := h.sessions.RequireAuthenticated

	mux := http.NewServeMux()
	mux.HandleFunc("/", h.index)
	mux.HandleFunc("/health", commonhttp.HealthHandler(deps.Log))
	mux.HandleFunc("/login", withTimeout(h.login))
	mux.HandleFunc("/signup", withTimeout(h.signup))
	mux.Handle("/logout", authed(requireGet(h.logout)))
	mux.HandleFunc("/contact", withTimeout(h.contact))
	mux.Handle("/contacts", authed(withTimeout(requireGet(h.listContacts))))
	mux.Handle("/users", authed(withTimeout(requireGet(h.listUsers))))
	return mux
}

// index redirects to the login entry point; any other unregistered path
// lands here too and gets the generic not-found response.
func (h *Handler) index(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		commonhttp.NotFoundHandler()(w, r)
		return
	}
	http.Redirect(w, r, session.LoginPath, http.StatusFound)
}

// safeNext keeps post-login redirects on this site.
func safeNext(next string) string {
	if next == "" || next[0] != '/' {
		return defaultAfterLogin
	}
	if len(next) > 1 && next[1] == '/' {
		return defaultAfterLogin
	}
	return next
}
