package web

import (
	"errors"
	"net/http"

	commonhttp "github.com/contactdesk/backend/internal/common/http"
	"github.com/contactdesk/backend/internal/common/logger"
	"github.com/contactdesk/backend/internal/forms"
	"github.com/contactdesk/backend/internal/observability/metrics"
	"github.com/contactdesk/backend/internal/session"
	userdomain "github.com/contactdesk/backend/internal/user/domain"
	userrepo "github.com/contactdesk/backend/internal/user/repository"
)

const invalidCredentialsMessage = "Invalid username or password."

type formResponse struct {
	Form      string `json:"form"`
	CSRFToken string `json:"csrf_token"`
}

type rerenderResponse struct {
	Form    string              `json:"form"`
	Errors  map[string][]string `json:"errors,omitempty"`
	Message string              `json:"message,omitempty"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.serveForm(w, "login")
	case http.MethodPost:
		h.submitLogin(w, r)
	default:
		commonhttp.WriteErrorEnvelope(w, http.StatusMethodNotAllowed, commonhttp.CodeMethodNotAllowed, "method not allowed", nil, "")
	}
}

func (h *Handler) submitLogin(w http.ResponseWriter, r *http.Request) {
	values, ok := h.parseAndVerify(w, r)
	if !ok {
		return
	}

	form := forms.LoginForm{
		Username: values.Get("username"),
		Password: values.Get("password"),
		Remember: parseBool(values.Get("remember")),
	}

	h.log.WithFields(r.Context(), logger.Fields{
		"username": form.Username,
		"action":   "login_attempt",
	}).Info("login attempt")

	if fieldErrors := h.forms.ValidateLogin(form); fieldErrors.Any() {
		commonhttp.WriteJSON(w, http.StatusOK, rerenderResponse{Form: "login", Errors: fieldErrors})
		return
	}

	user, err := h.users.FindByUsername(r.Context(), form.Username)
	if err != nil && !errors.Is(err, userrepo.ErrUserNotFound) {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	// Unknown user and wrong password produce the same response so a
	// failed login never confirms a username.
	if err != nil || !h.hasher.Verify(user.PasswordHash, form.Password) {
		metrics.LoginsTotal.WithLabelValues("failure").Inc()
		h.log.WithFields(r.Context(), logger.Fields{
			"username": form.Username,
			"action":   "login_failed",
		}).Warn("login failed: invalid credentials")
		commonhttp.WriteJSON(w, http.StatusOK, rerenderResponse{Form: "login", Message: invalidCredentialsMessage})
		return
	}

	if err := h.sessions.Login(w, r, user.ID, form.Remember); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	h.log.WithFields(r.Context(), logger.Fields{
		"username": user.Username,
		"user_id":  string(user.ID),
		"action":   "login_success",
	}).Info("login success")

	http.Redirect(w, r, safeNext(r.URL.Query().Get("next")), http.StatusFound)
}

func (h *Handler) signup(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.serveForm(w, "signup")
	case http.MethodPost:
		h.submitSignup(w, r)
	default:
		commonhttp.WriteErrorEnvelope(w, http.StatusMethodNotAllowed, commonhttp.CodeMethodNotAllowed, "method not allowed", nil, "")
	}
}

func (h *Handler) submitSignup(w http.ResponseWriter, r *http.Request) {
	values, ok := h.parseAndVerify(w, r)
	if !ok {
		return
	}

	form := forms.SignupForm{
		Username:        values.Get("username"),
		Email:           values.Get("email"),
		Password:        values.Get("password"),
		ConfirmPassword: values.Get("confirm_password"),
	}

	h.log.WithFields(r.Context(), logger.Fields{
		"username": form.Username,
		"action":   "signup_attempt",
	}).Info("signup attempt")

	fieldErrors, err := h.forms.ValidateSignup(r.Context(), form)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if fieldErrors.Any() {
		metrics.SignupsTotal.WithLabelValues("rejected").Inc()
		commonhttp.WriteJSON(w, http.StatusOK, rerenderResponse{Form: "signup", Errors: fieldErrors})
		return
	}

	hash, err := h.hasher.Hash(form.Password)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	id, err := h.idGenerator.NewID()
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	newUser := userdomain.User{
		ID:           userdomain.ID(id),
		Username:     form.Username,
		Email:        form.Email,
		PasswordHash: hash,
		CreatedAt:    h.clock.Now(),
	}

	if err := h.users.Create(r.Context(), newUser); err != nil {
		// Race lost after the pre-check passed: another signup inserted
		// the same username or email first. Reported as a retryable
		// conflict, not an internal failure.
		h.writeSignupConflict(w, r, form.Username, err)
		return
	}

	metrics.SignupsTotal.WithLabelValues("success").Inc()
	h.log.WithFields(r.Context(), logger.Fields{
		"username": newUser.Username,
		"user_id":  string(newUser.ID),
		"action":   "signup_success",
	}).Info("signup success")

	http.Redirect(w, r, session.LoginPath+"?notice=account_created", http.StatusFound)
}

func (h *Handler) writeSignupConflict(w http.ResponseWriter, r *http.Request, username string, err error) {
	var domainErr error
	switch {
	case errors.Is(err, userrepo.ErrUsernameAlreadyExists):
		domainErr = commonErrUsernameTaken()
	case errors.Is(err, userrepo.ErrEmailAlreadyExists):
		domainErr = commonErrEmailTaken()
	default:
		h.errorHandler.HandleError(w, r, err)
		return
	}

	metrics.SignupsTotal.WithLabelValues("conflict").Inc()
	h.log.WithFields(r.Context(), logger.Fields{
		"username": username,
		"action":   "signup_conflict",
	}).Warn("signup failed: uniqueness conflict at insert time")
	h.errorHandler.HandleError(w, r, domainErr)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	user, _ := session.UserFromContext(r.Context())

	h.sessions.Logout(w)

	h.log.WithFields(r.Context(), logger.Fields{
		"user_id": string(user.ID),
		"action":  "logout",
	}).Info("logout")

	http.Redirect(w, r, session.LoginPath, http.StatusFound)
}

func parseBool(value string) bool {
	switch value {
	case "1", "true", "on", "y", "yes":
		return true
	default:
		return false
	}
}
