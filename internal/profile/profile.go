package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is the configuration to start main server.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Data is the data directory
	Data string
	// DSN points to where hoarder stores its own data
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of server
	Version string

	// Rate limiting of the HTTP API
	RateLimit float64 // HOARDER_RATE_LIMIT requests per second per client (default: 10, 0 disables)
	RateBurst int     // HOARDER_RATE_BURST (default: 20)
}

const (
	defaultRateLimit = 10
	defaultRateBurst = 20
)

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsRateLimitEnabled returns true if requests to the API should be throttled.
func (p *Profile) IsRateLimitEnabled() bool {
	return p.RateLimit > 0
}

// FromEnv loads the settings that are not exposed as command line flags.
func (p *Profile) FromEnv() {
	p.RateLimit = defaultRateLimit
	if v := os.Getenv("HOARDER_RATE_LIMIT"); v != "" {
		if limit, err := strconv.ParseFloat(v, 64); err == nil && limit >= 0 {
			p.RateLimit = limit
		} else {
			slog.Warn("ignoring invalid rate limit", slog.String("value", v))
		}
	}

	p.RateBurst = defaultRateBurst
	if v := os.Getenv("HOARDER_RATE_BURST"); v != "" {
		if burst, err := strconv.Atoi(v); err == nil && burst > 0 {
			p.RateBurst = burst
		} else {
			slog.Warn("ignoring invalid rate burst", slog.String("value", v))
		}
	}
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Driver != "sqlite" && p.Driver != "postgres" {
		return errors.Errorf("unsupported driver: %q", p.Driver)
	}
	if p.Driver == "postgres" && p.DSN == "" {
		return errors.New("dsn is required for postgres")
	}

	if p.Mode == "prod" && p.Data == "" {
		if runtime.GOOS == "windows" {
			p.Data = filepath.Join(os.Getenv("ProgramData"), "hoarder")
			if _, err := os.Stat(p.Data); os.IsNotExist(err) {
				if err := os.MkdirAll(p.Data, 0770); err != nil {
					slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
					return err
				}
			}
		} else {
			p.Data = "/var/opt/hoarder"
		}
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check dsn", slog.String("data", dataDir), slog.String("error", err.Error()))
		return err
	}

	p.Data = dataDir
	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("hoarder_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}

	return nil
}
