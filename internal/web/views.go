package web

import (
	"net/http"
	"net/url"
	"time"

	commonerrors "github.com/contactdesk/backend/internal/common/errors"
	commonhttp "github.com/contactdesk/backend/internal/common/http"
	"github.com/contactdesk/backend/internal/common/logger"
	contactdomain "github.com/contactdesk/backend/internal/contact/domain"
	"github.com/contactdesk/backend/internal/forms"
	"github.com/contactdesk/backend/internal/observability/metrics"
	userdomain "github.com/contactdesk/backend/internal/user/domain"
)

type userResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type contactResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

func (h *Handler) contact(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.serveForm(w, "contact")
	case http.MethodPost:
		h.submitContact(w, r)
	default:
		commonhttp.WriteErrorEnvelope(w, http.StatusMethodNotAllowed, commonhttp.CodeMethodNotAllowed, "method not allowed", nil, "")
	}
}

func (h *Handler) submitContact(w http.ResponseWriter, r *http.Request) {
	values, ok := h.parseAndVerify(w, r)
	if !ok {
		return
	}

	form := forms.ContactForm{
		Name:    values.Get("name"),
		Email:   values.Get("email"),
		Phone:   values.Get("phone"),
		Message: values.Get("message"),
	}

	if fieldErrors := h.forms.ValidateContact(form); fieldErrors.Any() {
		metrics.ContactSubmissionsTotal.WithLabelValues("rejected").Inc()
		commonhttp.WriteJSON(w, http.StatusOK, rerenderResponse{Form: "contact", Errors: fieldErrors})
		return
	}

	id, err := h.idGenerator.NewID()
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	contact := contactdomain.Contact{
		ID:        contactdomain.ID(id),
		Name:      form.Name,
		Email:     form.Email,
		Phone:     form.Phone,
		Message:   form.Message,
		CreatedAt: h.clock.Now(),
	}

	if err := h.contacts.Create(r.Context(), contact); err != nil {
		h.errorHandler.HandleError(w, r, commonerrors.ErrDatabaseError.WithCause(err))
		return
	}

	metrics.ContactSubmissionsTotal.WithLabelValues("success").Inc()
	h.log.WithFields(r.Context(), logger.Fields{
		"contact_id": string(contact.ID),
		"action":     "contact_received",
	}).Info("contact message received")

	http.Redirect(w, r, "/contact?notice=message_received", http.StatusFound)
}

func (h *Handler) listContacts(w http.ResponseWriter, r *http.Request) {
	items, err := h.contacts.ListNewestFirst(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, commonerrors.ErrDatabaseError.WithCause(err))
		return
	}

	out := make([]contactResponse, 0, len(items))
	for _, c := range items {
		out = append(out, contactResponse{
			ID:        string(c.ID),
			Name:      c.Name,
			Email:     c.Email,
			Phone:     c.Phone,
			Message:   c.Message,
			CreatedAt: c.CreatedAt,
		})
	}

	commonhttp.WriteJSON(w, http.StatusOK, map[string]any{"contacts": out})
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	items, err := h.users.ListNewestFirst(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, commonerrors.ErrDatabaseError.WithCause(err))
		return
	}

	out := make([]userResponse, 0, len(items))
	for _, u := range items {
		out = append(out, summaryResponse(u))
	}

	commonhttp.WriteJSON(w, http.StatusOK, map[string]any{"users": out})
}

func summaryResponse(u userdomain.Summary) userResponse {
	return userResponse{
		ID:        string(u.ID),
		Username:  u.Username,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}

func (h *Handler) serveForm(w http.ResponseWriter, formName string) {
	token, err := h.csrf.IssueToken(w)
	if err != nil {
		commonhttp.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	commonhttp.WriteJSON(w, http.StatusOK, formResponse{Form: formName, CSRFToken: token})
}

// parseAndVerify parses the form body and checks the CSRF token; it writes
// the failure response itself and tells the caller whether to continue.
func (h *Handler) parseAndVerify(w http.ResponseWriter, r *http.Request) (url.Values, bool) {
	values, err := commonhttp.DecodeForm(r)
	if err != nil {
		h.log.Warnf("form parse failed: %v", err)
		commonhttp.WriteErrorEnvelope(w, http.StatusBadRequest, commonhttp.CodeInvalidForm, "invalid form submission", nil, "")
		return nil, false
	}

	if code, ok := h.csrf.Verify(r); !ok {
		commonhttp.WriteErrorEnvelope(w, http.StatusForbidden, code, "CSRF verification failed", nil, "")
		return nil, false
	}

	return values, true
}

func commonErrUsernameTaken() error {
	return commonerrors.ErrUsernameAlreadyExists.WithDetails(map[string]any{"field": "username"})
}

func commonErrEmailTaken() error {
	return commonerrors.ErrEmailAlreadyExists.WithDetails(map[string]any{"field": "email"})
}
