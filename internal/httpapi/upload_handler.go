package httpapi

import (
	"errors"
	"net/http"
	"time"

	"payskill/internal/apperr"
	"payskill/internal/upload"
)

// multipartMemory is how much of a multipart form is buffered in memory;
// the rest spills to temporary files.
const multipartMemory = 32 << 20

var errInvalidForm = apperr.Validation(apperr.CodeInvalidInput, "Invalid multipart form")

func (s *Server) uploadVideo(w http.ResponseWriter, r *http.Request) {
	s.extendDeadlines(w, r, s.opts.UploadTimeout)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		s.Metrics.Uploads.WithLabelValues("rejected").Inc()
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, r, upload.ErrTooLarge)
			return
		}
		s.writeError(w, r, errInvalidForm)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("video")
	if err != nil {
		s.Metrics.Uploads.WithLabelValues("rejected").Inc()
		s.writeError(w, r, upload.ErrMissingFile)
		return
	}
	defer file.Close()

	res, err := s.Intake.Store(r.Context(), upload.Video{
		Body:         file,
		OriginalName: header.Filename,
		MimeType:     header.Header.Get("Content-Type"),
		Size:         header.Size,
	}, r.FormValue("userId"), r.FormValue("taskId"))
	if err != nil {
		outcome := "rejected"
		if !apperr.IsClientError(err) {
			outcome = "failed"
		}
		s.Metrics.Uploads.WithLabelValues(outcome).Inc()
		s.writeError(w, r, err)
		return
	}
	s.Metrics.Uploads.WithLabelValues("stored").Inc()
	s.Metrics.UploadBytes.Add(float64(res.FileSize))

	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		*upload.Result
	}{Success: true, Result: res})
}

// extendDeadlines replaces the server's read and write timeouts for the
// current request. A body that arrives slowly would otherwise be stored
// while its response is dropped on the write deadline.
func (s *Server) extendDeadlines(w http.ResponseWriter, r *http.Request, d time.Duration) {
	rc := http.NewResponseController(w)
	deadline := time.Now().Add(d)
	for _, set := range []func(time.Time) error{rc.SetReadDeadline, rc.SetWriteDeadline} {
		if err := set(deadline); err != nil && !errors.Is(err, http.ErrNotSupported) {
			s.logger.Warn("failed to extend upload deadline",
				"request_id", RequestID(r.Context()),
				"error", err)
		}
	}
}
