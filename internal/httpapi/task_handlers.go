package httpapi

import (
	"net/http"
	"strings"

	"payskill/internal/apperr"
	"payskill/internal/models"
	"payskill/internal/tasks"

	"github.com/gorilla/mux"
)

var errMissingUserID = apperr.Validation(apperr.CodeMissingField, "User ID is required")

func userIDParam(r *http.Request) (string, error) {
	id := strings.TrimSpace(r.URL.Query().Get("userId"))
	if id == "" {
		return "", errMissingUserID
	}
	return id, nil
}

func (s *Server) availableTasks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Ledger.Catalog().All())
}

func (s *Server) listCompletions(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	list, err := s.Ledger.GetByUser(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) createCompletion(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID        string                  `json:"userId"`
		TaskID        string                  `json:"taskId"`
		TaskTitle     string                  `json:"taskTitle"`
		VideoFileName string                  `json:"videoFileName"`
		VideoPath     string                  `json:"videoPath"`
		Status        models.CompletionStatus `json:"status"`
		PaymentStatus models.PaymentStatus    `json:"paymentStatus"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	c, err := s.Ledger.Create(r.Context(), tasks.CreateInput{
		UserID:        req.UserID,
		TaskID:        req.TaskID,
		TaskTitle:     req.TaskTitle,
		VideoFileName: req.VideoFileName,
		VideoPath:     req.VideoPath,
		Status:        req.Status,
		PaymentStatus: req.PaymentStatus,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.Metrics.Completions.WithLabelValues(string(c.Status)).Inc()
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) welcome(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"userId"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		s.writeError(w, r, errMissingUserID)
		return
	}
	c, created, err := s.Ledger.GrantFirstTask(r.Context(), req.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if created {
		s.Metrics.Completions.WithLabelValues(string(c.Status)).Inc()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"created":    created,
		"completion": c,
	})
}

func (s *Server) progress(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	progress, err := s.Ledger.Progress(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

func (s *Server) evaluateCompletion(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status   models.CompletionStatus `json:"status"`
		Feedback string                  `json:"feedback"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	c, err := s.Ledger.UpdateStatus(r.Context(), mux.Vars(r)["id"], req.Status, req.Feedback)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.Metrics.Evaluations.WithLabelValues(string(c.Status)).Inc()
	writeJSON(w, http.StatusOK, c)
}
