package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"payskill/internal/apperr"
	"payskill/internal/levels"
)

func (s *Server) resolveLevels(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resolved := map[string]levels.Override{}
	if s.Levels != nil {
		resolved = s.Levels.Resolve(userID)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"userId": userID,
		"levels": resolved,
	})
}

var errMissingPhone = apperr.Validation(apperr.CodeMissingField, "Phone number is required")

func (s *Server) issueQR(w http.ResponseWriter, r *http.Request) {
	p := strings.TrimSpace(r.URL.Query().Get("phone"))
	if p == "" {
		s.writeError(w, r, errMissingPhone)
		return
	}
	link, err := s.QR.Issue(p, s.now())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, link)
}

// epochParam accepts an epoch sent either as a JSON string or a number.
type epochParam string

func (e *epochParam) UnmarshalJSON(data []byte) error {
	if bytes.HasPrefix(data, []byte(`"`)) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*e = epochParam(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*e = epochParam(n.String())
	return nil
}

func (s *Server) checkQR(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Arg    string     `json:"arg"`
		Ep     epochParam `json:"ep"`
		Code   string     `json:"code"`
		UserID string     `json:"userId"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	verdict := s.QR.Verify(req.Arg, string(req.Ep), req.Code, s.now())
	result := "valid"
	if !verdict.Valid {
		result = verdict.Reason
	}
	s.Metrics.QRChecks.WithLabelValues(result).Inc()
	if verdict.Valid && strings.TrimSpace(req.UserID) != "" {
		if err := s.Ledger.RecordQRPass(r.Context(), req.UserID); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, verdict)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	status, db, code := "healthy", "connected", http.StatusOK
	if s.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.DB.Ping(ctx); err != nil {
			s.logger.Warn("health check ping failed", "error", err)
			status, db, code = "degraded", "disconnected", http.StatusServiceUnavailable
		}
	}
	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": s.now().Unix(),
		"db":        db,
	})
}
