package httpapi

import (
	"encoding/json"
	"net/http"

	"payskill/internal/apperr"

	"github.com/getsentry/sentry-go"
)

// writeJSON writes v as the response body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeJSONError is a helper that writes an error response in JSON.
func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	body := map[string]any{"success": false, "error": message}
	if code != "" {
		body["code"] = code
	}
	writeJSON(w, status, body)
}

// writeError maps err onto a response. Client errors are returned as-is;
// everything else is logged, reported and answered with a generic message.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.HTTPStatus(err)
	if status < http.StatusInternalServerError {
		e, _ := apperr.As(err)
		writeJSONError(w, status, e.Code, e.Message)
		return
	}

	s.logger.Error("request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", RequestID(r.Context()),
		"error", err)
	if hub := sentry.GetHubFromContext(r.Context()); hub != nil {
		hub.CaptureException(err)
	}
	writeJSONError(w, http.StatusInternalServerError, apperr.CodeInternalError, "Internal server error")
}

// decodeJSON reads a JSON request body into v.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errInvalidPayload
	}
	return nil
}

var errInvalidPayload = apperr.Validation(apperr.CodeInvalidInput, "Invalid request payload")
