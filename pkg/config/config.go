package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"

	"github.com/flagsmith-community/flagenv/pkg/flagsmith"
)

// RunConfig is the fully resolved configuration for one invocation.
// It is immutable after Resolve returns.
type RunConfig struct {
	APIKey          string
	EnvironmentID   string
	Identity        string
	BaseURL         string
	OutputPath      string
	Command         []string
	Interval        time.Duration
	MaxRetries      int
	RetryBackoff    time.Duration
	RequestTimeout  time.Duration
	IncludeDisabled bool
}

// Watch reports whether the run loop repeats on an interval.
func (c *RunConfig) Watch() bool { return c.Interval > 0 }

// envBindings maps viper keys to the environment variables that may
// supply them when the flag is not set.
var envBindings = map[string]string{
	"api-key": "FLAGSMITH_API_KEY",
	"env-id":  "FLAGSMITH_ENVIRONMENT",
	"api":     "FLAGSMITH_HOST",
}

// Resolve merges CLI flags, process environment variables and an
// optional local .env file into a RunConfig. Precedence: flags >
// environment > .env entries > defaults.
func Resolve(v *viper.Viper, command []string) (*RunConfig, error) {
	for key, envVar := range envBindings {
		if err := v.BindEnv(key, envVar); err != nil {
			return nil, err
		}
	}
	if err := applyEnvFile(v); err != nil {
		return nil, err
	}

	cfg := &RunConfig{
		APIKey:          v.GetString("api-key"),
		EnvironmentID:   v.GetString("env-id"),
		Identity:        v.GetString("identity"),
		BaseURL:         v.GetString("api"),
		OutputPath:      v.GetString("output"),
		Command:         command,
		Interval:        time.Duration(v.GetInt("interval")) * time.Second,
		MaxRetries:      v.GetInt("retries"),
		RetryBackoff:    v.GetDuration("retry-backoff"),
		RequestTimeout:  v.GetDuration("timeout"),
		IncludeDisabled: v.GetBool("include-disabled"),
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = flagsmith.DefaultBaseURL
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = time.Second
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	return cfg, cfg.validate(v.GetInt("interval"))
}

// applyEnvFile loads a local dotenv file as the lowest-precedence
// source: its entries become viper defaults, so flags and real
// environment variables still win.
func applyEnvFile(v *viper.Viper) error {
	path := v.GetString("env-file")
	explicit := path != ""
	if !explicit {
		path = ".env"
	}

	f, err := os.Open(path)
	if err != nil {
		if !explicit && os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading env file %s: %w", path, err)
	}
	defer f.Close()

	entries, err := gotenv.StrictParse(f)
	if err != nil {
		return fmt.Errorf("parsing env file %s: %w", path, err)
	}
	log.Debugf("loaded %d entries from %s", len(entries), path)

	for key, envVar := range envBindings {
		if val, ok := entries[envVar]; ok {
			v.SetDefault(key, val)
		}
	}
	return nil
}

func (c *RunConfig) validate(intervalSeconds int) error {
	if c.APIKey == "" {
		return errors.New("an API key is required: pass --api-key or set FLAGSMITH_API_KEY")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid API URL %q", c.BaseURL)
	}
	if intervalSeconds < 0 {
		return fmt.Errorf("interval must be positive, got %d", intervalSeconds)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("retries must be non-negative, got %d", c.MaxRetries)
	}
	return nil
}
