// Package config loads process configuration from an optional YAML file
// overlaid by environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Failure modes for the authentication gate.
const (
	FailureModeReveal  = "reveal"
	FailureModePending = "pending"
)

// Storage backends for uploaded videos.
const (
	StorageDisk = "disk"
	StorageS3   = "s3"
)

// AuthRules configures the authentication gate.
type AuthRules struct {
	AllowList       []string `yaml:"allow_list"`
	DesignatedPhone string   `yaml:"designated_phone"`
	DesignatedCode  string   `yaml:"designated_code"`
	CommonCode      string   `yaml:"common_code"`
	FailureMode     string   `yaml:"failure_mode"`
}

// QRConfig configures the task-2 QR check.
type QRConfig struct {
	Arg    string `yaml:"arg"`
	Secret string `yaml:"secret"`
}

// S3Config points video storage at an S3-compatible bucket.
type S3Config struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	PublicBaseURL   string `yaml:"public_base_url"`
}

type Config struct {
	// Database
	MongoURI    string `yaml:"mongodb_uri"`
	MongoDBName string `yaml:"mongodb_dbname"`

	// Server
	Port        string `yaml:"port"`
	CORSOrigins string `yaml:"cors_origins"`
	AdminToken  string `yaml:"admin_token"`

	// Observability
	LogLevel  string `yaml:"log_level"`
	AppEnv    string `yaml:"app_env"`
	SentryDSN string `yaml:"sentry_dsn"`

	// Video storage
	StorageBackend    string        `yaml:"storage_backend"`
	UploadsDir        string        `yaml:"uploads_dir"`
	PublicUploadsPath string        `yaml:"public_uploads_path"`
	UploadTimeout     time.Duration `yaml:"upload_timeout"`
	S3                S3Config      `yaml:"s3"`

	// Tasks
	FirstTaskID string `yaml:"first_task_id"`
	LevelsPath  string `yaml:"levels_path"`

	Auth AuthRules `yaml:"auth"`
	QR   QRConfig  `yaml:"qr"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Port:              "8080",
		CORSOrigins:       "*",
		LogLevel:          "info",
		AppEnv:            "development",
		StorageBackend:    StorageDisk,
		UploadsDir:        "public/uploads/videos",
		PublicUploadsPath: "/uploads/videos",
		UploadTimeout:     5 * time.Minute,
		FirstTaskID:       "cooking-basic-meal",
		LevelsPath:        "levels.json",
		Auth: AuthRules{
			AllowList:       []string{"1234567890", "9842470497", "9998887776"},
			DesignatedPhone: "9842470497",
			DesignatedCode:  "99",
			CommonCode:      "far55",
			FailureMode:     FailureModeReveal,
		},
		QR: QRConfig{
			Arg: "far99-task2",
		},
		S3: S3Config{
			Region: "auto",
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path (when
// non-empty) and the environment, in that order of precedence.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}
	cfg.applyEnv()
	if v := os.Getenv("UPLOAD_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid UPLOAD_TIMEOUT: %w", err)
		}
		cfg.UploadTimeout = d
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	override(&c.MongoURI, "MONGODB_URI")
	override(&c.MongoDBName, "MONGODB_DBNAME")
	override(&c.Port, "PORT")
	override(&c.CORSOrigins, "CORS_ORIGINS")
	override(&c.AdminToken, "ADMIN_TOKEN")
	override(&c.LogLevel, "LOG_LEVEL")
	override(&c.AppEnv, "APP_ENV")
	override(&c.SentryDSN, "SENTRY_DSN")
	override(&c.StorageBackend, "STORAGE_BACKEND")
	override(&c.UploadsDir, "UPLOADS_DIR")
	override(&c.S3.Bucket, "S3_BUCKET")
	override(&c.S3.Region, "S3_REGION")
	override(&c.S3.Endpoint, "S3_ENDPOINT")
	override(&c.S3.AccessKeyID, "S3_ACCESS_KEY_ID")
	override(&c.S3.SecretAccessKey, "S3_SECRET_ACCESS_KEY")
	override(&c.S3.PublicBaseURL, "S3_PUBLIC_BASE_URL")
	override(&c.LevelsPath, "LEVELS_PATH")
	override(&c.Auth.FailureMode, "AUTH_FAILURE_MODE")
	override(&c.QR.Secret, "QR_SECRET")

	if phones := os.Getenv("ALLOWED_PHONES"); phones != "" {
		var list []string
		for _, p := range strings.Split(phones, ",") {
			if p = strings.TrimSpace(p); p != "" {
				list = append(list, p)
			}
		}
		c.Auth.AllowList = list
	}
}

// Validate reports missing required settings and unknown enum values.
func (c *Config) Validate() error {
	var errs []error
	if c.MongoURI == "" {
		errs = append(errs, errors.New("MONGODB_URI is required"))
	}
	if c.MongoDBName == "" {
		errs = append(errs, errors.New("MONGODB_DBNAME is required"))
	}
	if c.UploadTimeout <= 0 {
		errs = append(errs, errors.New("upload timeout must be positive"))
	}
	switch c.Auth.FailureMode {
	case FailureModeReveal, FailureModePending:
	default:
		errs = append(errs, fmt.Errorf("unknown auth failure mode %q", c.Auth.FailureMode))
	}
	switch c.StorageBackend {
	case StorageDisk:
	case StorageS3:
		if c.S3.Bucket == "" {
			errs = append(errs, errors.New("S3_BUCKET is required for the s3 storage backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage backend %q", c.StorageBackend))
	}
	return errors.Join(errs...)
}

// RedactedMongoURI hides credentials embedded in the connection string.
func (c *Config) RedactedMongoURI() string {
	uri := c.MongoURI
	scheme := strings.Index(uri, "://")
	at := strings.LastIndex(uri, "@")
	if scheme < 0 || at < scheme {
		return uri
	}
	return uri[:scheme+3] + "***:***" + uri[at:]
}

func override(dst *string, key string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}
