// Package httpapi exposes the login, task and upload operations over HTTP.
package httpapi

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"payskill/internal/apperr"
	"payskill/internal/auth"
	"payskill/internal/levels"
	"payskill/internal/metrics"
	"payskill/internal/qrcheck"
	"payskill/internal/tasks"
	"payskill/internal/upload"

	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

// maxJSONBody bounds every non-upload request body.
const maxJSONBody = 1 << 20

// maxUploadBody leaves room for multipart framing around a MaxSize video.
const maxUploadBody = upload.MaxSize + 1<<20

// DefaultUploadTimeout is the read and write deadline given to a video
// upload, replacing the server-wide timeouts for that request.
const DefaultUploadTimeout = 5 * time.Minute

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures the HTTP surface.
type Options struct {
	// AdminToken enables the evaluator route when non-empty.
	AdminToken string
	// CORSOrigins lists allowed origins; "*" allows any.
	CORSOrigins []string
	// UploadsDir is served under PublicUploadsPath when non-empty.
	UploadsDir        string
	PublicUploadsPath string
	// AccessLog receives gorilla combined-format access logs when set.
	AccessLog io.Writer
	// Sentry wraps handlers with the Sentry middleware.
	Sentry bool
	// UploadTimeout bounds a whole video upload, body and response.
	UploadTimeout time.Duration
}

// Deps are the services the handlers call into.
type Deps struct {
	Gate     *auth.Gate
	Attempts *auth.AttemptLog
	Ledger   *tasks.Ledger
	Intake   *upload.Intake
	Levels   *levels.Store
	QR       *qrcheck.Checker
	Metrics  *metrics.Metrics
	DB       Pinger
	Logger   *slog.Logger
}

// Server holds the handler dependencies.
type Server struct {
	Deps
	opts   Options
	logger *slog.Logger
	now    func() time.Time
}

// NewServer creates a server over deps.
func NewServer(deps Deps, opts Options) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}
	if opts.UploadTimeout <= 0 {
		opts.UploadTimeout = DefaultUploadTimeout
	}
	if opts.PublicUploadsPath == "" {
		opts.PublicUploadsPath = "/uploads/videos"
	}
	return &Server{Deps: deps, opts: opts, logger: logger, now: time.Now}
}

// Router builds the mux router with every route registered.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.Metrics.Middleware)

	jsonLimit := maxBody(maxJSONBody)
	handle := func(path string, h http.HandlerFunc, methods ...string) {
		r.Handle(path, jsonLimit(h)).Methods(methods...)
	}

	handle("/auth/login", s.login, http.MethodPost)
	handle("/auth/attempts", s.logAttempt, http.MethodPost)

	handle("/tasks/available", s.availableTasks, http.MethodGet)
	handle("/tasks/completions", s.listCompletions, http.MethodGet)
	handle("/tasks/completions", s.createCompletion, http.MethodPost)
	handle("/tasks/welcome", s.welcome, http.MethodPost)
	handle("/tasks/progress", s.progress, http.MethodGet)
	if s.opts.AdminToken != "" {
		handle("/tasks/completions/{id}", s.adminOnly(s.evaluateCompletion), http.MethodPatch)
	}

	r.Handle("/upload/video", maxBody(maxUploadBody)(http.HandlerFunc(s.uploadVideo))).Methods(http.MethodPost)

	handle("/levels", s.resolveLevels, http.MethodGet)
	handle("/qr/task2", s.issueQR, http.MethodGet)
	handle("/qr/check", s.checkQR, http.MethodPost)

	r.HandleFunc("/health", s.health).Methods(http.MethodGet)
	r.Handle("/metrics", s.Metrics.Handler()).Methods(http.MethodGet)

	if s.opts.UploadsDir != "" {
		prefix := strings.TrimRight(s.opts.PublicUploadsPath, "/") + "/"
		fs := http.StripPrefix(prefix, http.FileServer(noDirFS{http.Dir(s.opts.UploadsDir)}))
		r.PathPrefix(prefix).Handler(fs).Methods(http.MethodGet, http.MethodHead)
	}

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, http.StatusNotFound, apperr.CodeNotFound, "Not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, http.StatusMethodNotAllowed, apperr.CodeMethodNotAllowed, "Method not allowed")
	})
	return r
}

// Handler wraps the router with the global middleware chain.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.Router()
	h = securityHeaders(h)
	h = handlers.CORS(
		handlers.AllowedOrigins(s.corsOrigins()),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "X-Admin-Token", "X-Requested-With", "X-Request-ID"}),
	)(h)
	if s.opts.Sentry {
		h = sentryhttp.New(sentryhttp.Options{Repanic: true}).Handle(h)
	}
	h = s.recovery(h)
	h = requestIDMiddleware(h)
	if s.opts.AccessLog != nil {
		h = handlers.LoggingHandler(s.opts.AccessLog, h)
	}
	return h
}

func (s *Server) corsOrigins() []string {
	if len(s.opts.CORSOrigins) == 0 {
		return []string{"*"}
	}
	return s.opts.CORSOrigins
}

// noDirFS hides directory listings of the uploads directory.
type noDirFS struct {
	fs http.FileSystem
}

func (n noDirFS) Open(name string) (http.File, error) {
	f, err := n.fs.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, os.ErrNotExist
	}
	return f, nil
}
