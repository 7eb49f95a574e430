// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/lockboxapp/lockbox-server/internal/transport"
)

// Config holds the application configuration.
type Config struct {
	App    AppConfig
	Logger LoggerConfig
	Data   DataConfig
	Server ServerConfig
	Remote RemoteConfig
	Backup BackupConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string `validate:"required,oneof=development staging production"`
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level  string `validate:"oneof=debug info warn error"`
	Format string `validate:"omitempty,oneof=json pretty"`
	// File enables a rotating JSON log file in addition to stdout.
	File string
}

// DataConfig locates local state: the record database, the settings
// database, image blobs and temporary workspaces.
type DataConfig struct {
	BasePath string `validate:"required"`
}

// DatabasePath is the SQLite record store.
func (d DataConfig) DatabasePath() string { return filepath.Join(d.BasePath, "lockbox.db") }

// SettingsPath is the Badger settings directory.
func (d DataConfig) SettingsPath() string { return filepath.Join(d.BasePath, "settings") }

// ImagePath holds encrypted image blobs.
func (d DataConfig) ImagePath() string { return filepath.Join(d.BasePath, "images") }

// WorkPath is the parent of per-run workspaces.
func (d DataConfig) WorkPath() string { return filepath.Join(d.BasePath, "tmp") }

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string        `validate:"required,numeric"` // default: 8080
	ReadTimeout  time.Duration // default: 30s
	WriteTimeout time.Duration // default: 10m, restores can be slow
	IdleTimeout  time.Duration // default: 60s
	// APIToken, when set, is required as a bearer token on /api/v1.
	APIToken    string
	CORSOrigins []string
}

// RemoteConfig selects the remote store backups are shipped to.
type RemoteConfig struct {
	Kind      string `validate:"oneof=local webdav s3 sftp"`
	URL       string `validate:"required_if=Kind webdav,required_if=Kind sftp,omitempty,url"`
	Username  string
	Password  string
	Dir       string  `validate:"required"`
	RateLimit float64 `validate:"gte=0"`
	Timeout   time.Duration

	// LocalRoot is the directory used by the local kind (default: {data}/remote).
	LocalRoot string

	S3Bucket   string `validate:"required_if=Kind s3"`
	S3Region   string
	S3Endpoint string `validate:"omitempty,url"`

	SFTPKnownHosts string
}

// BackupConfig holds automatic backup configuration.
type BackupConfig struct {
	// Schedule is the cron expression for due checks (default: @hourly).
	Schedule string `validate:"required"`
}

// TransportConfig maps the remote section onto transport.Config.
func (c *Config) TransportConfig() transport.Config {
	return transport.Config{
		Kind:           c.Remote.Kind,
		URL:            c.Remote.URL,
		Username:       c.Remote.Username,
		Password:       c.Remote.Password,
		Timeout:        c.Remote.Timeout,
		LocalRoot:      c.Remote.LocalRoot,
		S3Bucket:       c.Remote.S3Bucket,
		S3Region:       c.Remote.S3Region,
		S3Endpoint:     c.Remote.S3Endpoint,
		SFTPKnownHosts: c.Remote.SFTPKnownHosts,
		RateLimit:      c.Remote.RateLimit,
	}
}

// Load loads configuration from multiple sources with precedence:
// 1. Command-line flags in args (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
//
// Load returns the arguments left after flag parsing.
func Load(name string, args []string) (*Config, []string, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	logFormat := fs.String("log-format", "", "Log format (json, pretty)")
	logFile := fs.String("log-file", "", "Rotating log file path")
	dataPath := fs.String("data-path", "", "Base path for local data")

	serverPort := fs.String("port", "", "Server port (default: 8080)")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 30s)")
	writeTimeout := fs.String("write-timeout", "", "HTTP write timeout (default: 10m)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")

	remoteKind := fs.String("remote", "", "Remote store kind (local, webdav, s3, sftp)")
	remoteURL := fs.String("remote-url", "", "Remote store URL")
	remoteDir := fs.String("remote-dir", "", "Remote backup directory (default: Lockbox_Backups)")
	remoteRate := fs.String("remote-rate-limit", "", "Remote requests per second, 0 for unlimited")
	remoteTimeout := fs.String("remote-timeout", "", "Remote request timeout (default: 60s)")

	schedule := fs.String("schedule", "", "Auto-backup cron schedule (default: @hourly)")

	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level:  strings.ToLower(getConfigValue(*logLevel, "LOG_LEVEL", "info")),
			Format: getConfigValue(*logFormat, "LOG_FORMAT", ""),
			File:   getConfigValue(*logFile, "LOG_FILE", ""),
		},
		Data: DataConfig{
			BasePath: getConfigValue(*dataPath, "DATA_PATH", ""),
		},
		Server: ServerConfig{
			Port:        getConfigValue(*serverPort, "SERVER_PORT", "8080"),
			APIToken:    getConfigValue("", "API_TOKEN", ""),
			CORSOrigins: splitList(getConfigValue("", "CORS_ORIGINS", "")),
		},
		Remote: RemoteConfig{
			Kind:           strings.ToLower(getConfigValue(*remoteKind, "REMOTE_KIND", transport.RemoteLocal)),
			URL:            getConfigValue(*remoteURL, "REMOTE_URL", ""),
			Username:       getConfigValue("", "REMOTE_USERNAME", ""),
			Password:       getConfigValue("", "REMOTE_PASSWORD", ""),
			Dir:            getConfigValue(*remoteDir, "REMOTE_DIR", "Lockbox_Backups"),
			LocalRoot:      getConfigValue("", "REMOTE_LOCAL_ROOT", ""),
			S3Bucket:       getConfigValue("", "S3_BUCKET", ""),
			S3Region:       getConfigValue("", "S3_REGION", "us-east-1"),
			S3Endpoint:     getConfigValue("", "S3_ENDPOINT", ""),
			SFTPKnownHosts: getConfigValue("", "SFTP_KNOWN_HOSTS", ""),
		},
		Backup: BackupConfig{
			Schedule: getConfigValue(*schedule, "AUTO_BACKUP_SCHEDULE", "@hourly"),
		},
	}

	var err error
	rateStr := getConfigValue(*remoteRate, "REMOTE_RATE_LIMIT", "0")
	if cfg.Remote.RateLimit, err = strconv.ParseFloat(rateStr, 64); err != nil {
		return nil, nil, fmt.Errorf("invalid remote rate limit %q: %w", rateStr, err)
	}

	durations := []struct {
		dst      *time.Duration
		flag     string
		envKey   string
		fallback string
	}{
		{&cfg.Server.ReadTimeout, *readTimeout, "SERVER_READ_TIMEOUT", "30s"},
		{&cfg.Server.WriteTimeout, *writeTimeout, "SERVER_WRITE_TIMEOUT", "10m"},
		{&cfg.Server.IdleTimeout, *idleTimeout, "SERVER_IDLE_TIMEOUT", "60s"},
		{&cfg.Remote.Timeout, *remoteTimeout, "REMOTE_TIMEOUT", "60s"},
	}
	for _, d := range durations {
		s := getConfigValue(d.flag, d.envKey, d.fallback)
		v, err := time.ParseDuration(s)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid %s %q: %w", strings.ToLower(d.envKey), s, err)
		}
		*d.dst = v
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, fs.Args(), nil
}

var validate = validator.New()

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "required_if":
		return field + " is required when " + strings.Replace(fe.Param(), " ", " is ", 1)
	case "oneof":
		return fmt.Sprintf("invalid %s: %v (must be one of: %s)", field, fe.Value(), fe.Param())
	case "url":
		return fmt.Sprintf("invalid %s: %v (must be a URL)", field, fe.Value())
	default:
		return fmt.Sprintf("invalid %s: %v", field, fe.Value())
	}
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandPaths resolves the data path (default ~/Lockbox) and the paths
// derived from it.
func (c *Config) expandPaths() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	if c.Data.BasePath, err = expandPath(c.Data.BasePath, filepath.Join(homeDir, "Lockbox")); err != nil {
		return fmt.Errorf("invalid data path: %w", err)
	}
	if c.Remote.LocalRoot, err = expandPath(c.Remote.LocalRoot, filepath.Join(c.Data.BasePath, "remote")); err != nil {
		return fmt.Errorf("invalid local remote root: %w", err)
	}
	if c.Logger.File != "" {
		if c.Logger.File, err = expandPath(c.Logger.File, ""); err != nil {
			return fmt.Errorf("invalid log file: %w", err)
		}
	}
	if c.Remote.SFTPKnownHosts != "" {
		if c.Remote.SFTPKnownHosts, err = expandPath(c.Remote.SFTPKnownHosts, ""); err != nil {
			return fmt.Errorf("invalid known_hosts path: %w", err)
		}
	}
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// splitList splits a comma separated value, dropping empty items.
func splitList(s string) []string {
	var out []string
	for item := range strings.SplitSeq(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		// Only set if not already set (env vars take precedence over .env file).
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
