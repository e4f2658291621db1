package http

import (
	"net/http"

	"github.com/contactdesk/backend/internal/common/logger"
)

func HealthHandler(log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		log.Infof("health check request")
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// NotFoundHandler is the catch-all for unknown routes. It never echoes
// the requested path back to the client.
func NotFoundHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteErrorEnvelope(w, http.StatusNotFound, CodeNotFound, "not found", nil, "")
	}
}
