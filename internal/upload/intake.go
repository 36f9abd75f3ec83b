// Package upload stores task proof videos and returns the public path they
// are served under.
package upload

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"payskill/internal/apperr"
)

// MaxSize is the largest accepted video, in bytes.
const MaxSize int64 = 50 << 20

const defaultExt = "mp4"

// Errors returned for rejected uploads.
var (
	ErrMissingFile = apperr.Validation(apperr.CodeMissingField, "No file uploaded")
	ErrMissingIDs  = apperr.Validation(apperr.CodeMissingField, "User ID and Task ID are required")
	ErrInvalidIDs  = apperr.Validation(apperr.CodeInvalidInput, "User ID and Task ID may only contain letters, digits, '-' and '_'")
	ErrInvalidType = apperr.Validation(apperr.CodeInvalidInput, "Only video files are allowed")
	ErrTooLarge    = apperr.Validation(apperr.CodeInvalidInput, "File size must be less than 50MB")
)

// Video is an uploaded file as declared by the client.
type Video struct {
	Body         io.Reader
	OriginalName string
	MimeType     string
	Size         int64
}

// Result describes a stored video.
type Result struct {
	FileName   string    `json:"fileName"`
	FilePath   string    `json:"filePath"`
	FileSize   int64     `json:"fileSize"`
	FileType   string    `json:"fileType"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// Storage persists named objects and returns the path they are served at.
type Storage interface {
	Save(ctx context.Context, name string, body io.Reader, size int64, contentType string) (string, error)
}

// Intake validates videos and hands them to a Storage backend.
type Intake struct {
	storage Storage
	logger  *slog.Logger
	now     func() time.Time
}

// NewIntake creates an intake writing to storage.
func NewIntake(storage Storage, logger *slog.Logger) *Intake {
	if logger == nil {
		logger = slog.Default()
	}
	return &Intake{storage: storage, logger: logger, now: time.Now}
}

// Store validates v and persists it as {userID}_{taskID}_{epochMillis}.{ext}.
func (in *Intake) Store(ctx context.Context, v Video, userID, taskID string) (*Result, error) {
	if v.Body == nil {
		return nil, ErrMissingFile
	}
	userID = strings.TrimSpace(userID)
	taskID = strings.TrimSpace(taskID)
	if userID == "" || taskID == "" {
		return nil, ErrMissingIDs
	}
	if !safeName(userID) || !safeName(taskID) {
		return nil, ErrInvalidIDs
	}
	if !strings.HasPrefix(v.MimeType, "video/") {
		return nil, ErrInvalidType
	}
	if v.Size > MaxSize {
		return nil, ErrTooLarge
	}

	now := in.now()
	name := FileName(userID, taskID, v.OriginalName, now)
	filePath, err := in.storage.Save(ctx, name, v.Body, v.Size, v.MimeType)
	if err != nil {
		return nil, apperr.Storage("failed to store video", err)
	}
	in.logger.Info("video stored",
		"user_id", userID,
		"task_id", taskID,
		"file_name", name,
		"size", v.Size)

	return &Result{
		FileName:   name,
		FilePath:   filePath,
		FileSize:   v.Size,
		FileType:   v.MimeType,
		UploadedAt: now.UTC(),
	}, nil
}

// FileName builds the stored name of a video. The extension is taken from
// originalName and falls back to mp4.
func FileName(userID, taskID, originalName string, at time.Time) string {
	return fmt.Sprintf("%s_%s_%d.%s", userID, taskID, at.UnixMilli(), extension(originalName))
}

func extension(name string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
	if ext == "" || !safeName(ext) {
		return defaultExt
	}
	return ext
}

func safeName(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return s != ""
}
