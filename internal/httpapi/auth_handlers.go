package httpapi

import (
	"net/http"
	"strings"
	"time"

	"payskill/internal/apperr"
	"payskill/internal/auth"
	"payskill/internal/models"
)

type userView struct {
	ID         string    `json:"id"`
	Phone      string    `json:"phone"`
	LoginCount int       `json:"loginCount"`
	LastLogin  time.Time `json:"lastLogin"`
	CreatedAt  time.Time `json:"createdAt"`
}

func newUserView(u *models.User) userView {
	return userView{
		ID:         u.ID.Hex(),
		Phone:      u.Phone,
		LoginCount: u.LoginCount(),
		LastLogin:  u.LastLogin(),
		CreatedAt:  u.CreatedAt,
	}
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phone   string `json:"phone"`
		Referer string `json:"referer"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Phone) == "" {
		writeJSONError(w, http.StatusBadRequest, apperr.CodeMissingField, "Phone number is required")
		return
	}

	res, err := s.Gate.Authenticate(r.Context(), req.Phone, req.Referer)
	s.Metrics.LoginAttempts.WithLabelValues(string(res.Outcome), string(res.Reason)).Inc()

	switch {
	case res.Outcome == auth.OutcomePending:
		writeJSON(w, http.StatusAccepted, map[string]any{
			"success": false,
			"status":  string(auth.OutcomePending),
		})
	case err != nil && apperr.KindOf(err) == apperr.KindAuthorization:
		e, _ := apperr.As(err)
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"success": false,
			"error":   e.Message,
			"code":    e.Code,
			"reason":  string(res.Reason),
		})
	case err != nil:
		s.writeError(w, r, err)
	default:
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": "Login successful",
			"user":    newUserView(res.User),
		})
	}
}

func (s *Server) logAttempt(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phone   string               `json:"phone"`
		Referer string               `json:"referer"`
		Result  models.AttemptResult `json:"result"`
		Reason  models.AttemptReason `json:"reason"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	id, err := s.Attempts.Record(r.Context(), req.Phone, req.Referer, req.Result, req.Reason)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   "Attempt logged successfully",
		"attemptId": id.Hex(),
	})
}
