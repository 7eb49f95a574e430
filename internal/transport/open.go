package transport

import (
	"fmt"
	"net/url"
	"time"
)

// Kinds of remote store selectable by configuration.
const (
	RemoteLocal  = "local"
	RemoteWebDAV = "webdav"
	RemoteS3     = "s3"
	RemoteSFTP   = "sftp"
)

// Config selects and configures one remote store.
type Config struct {
	Kind     string
	URL      string
	Username string
	Password string
	Timeout  time.Duration

	// LocalRoot is used by the local kind.
	LocalRoot string

	S3Bucket   string
	S3Region   string
	S3Endpoint string

	SFTPKnownHosts string

	RateLimit float64
}

// Open builds the configured transport, wrapped in a rate limiter when
// cfg.RateLimit is positive. SFTP connects immediately; the others connect
// on first use.
func Open(cfg Config) (Transport, error) {
	var t Transport
	switch cfg.Kind {
	case RemoteLocal, "":
		l, err := NewLocal(cfg.LocalRoot)
		if err != nil {
			return nil, err
		}
		t = l
	case RemoteWebDAV:
		t = NewWebDAV(WebDAVConfig{URL: cfg.URL, Username: cfg.Username, Password: cfg.Password, Timeout: cfg.Timeout})
	case RemoteS3:
		s, err := NewS3(S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.Username,
			SecretKey: cfg.Password,
		})
		if err != nil {
			return nil, err
		}
		t = s
	case RemoteSFTP:
		u, err := url.Parse(cfg.URL)
		if err != nil || u.Host == "" {
			return nil, fmt.Errorf("sftp: invalid url %q", cfg.URL)
		}
		addr := u.Host
		if u.Port() == "" {
			addr += ":22"
		}
		s, err := DialSFTP(SFTPConfig{
			Addr:           addr,
			Username:       cfg.Username,
			Password:       cfg.Password,
			KnownHostsPath: cfg.SFTPKnownHosts,
			Root:           u.Path,
			Timeout:        cfg.Timeout,
		})
		if err != nil {
			return nil, err
		}
		t = s
	default:
		return nil, fmt.Errorf("unknown remote kind %q", cfg.Kind)
	}
	return NewLimited(t, cfg.RateLimit, 1), nil
}
