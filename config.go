package lightdash

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/time/rate"

	"lightdash-go/domain"
)

// Environment variables recognized by ConfigFromEnv.
const (
	EnvInstanceURL = "LIGHTDASH_INSTANCE_URL"
	EnvAccessToken = "LIGHTDASH_ACCESS_TOKEN"
	EnvProjectUUID = "LIGHTDASH_PROJECT_UUID"
)

// Config holds the connection settings for one Lightdash project.
type Config struct {
	// InstanceURL is the base URL of the Lightdash instance, e.g.
	// https://app.lightdash.cloud.
	InstanceURL string

	// AccessToken is a personal access token.
	AccessToken string

	// ProjectUUID identifies the project to query.
	ProjectUUID string

	// PollInterval is the delay between query status polls. Zero
	// means the default (500ms).
	PollInterval time.Duration

	// Timeout bounds how long a query may stay pending before it is
	// abandoned and cancelled. Zero means the default (5m).
	Timeout time.Duration

	// PageSize is the result page size. Zero means the default (500).
	PageSize int

	// InvalidateCache asks the server to bypass its result cache.
	InvalidateCache bool

	// HTTPClient overrides the default HTTP client.
	HTTPClient *http.Client

	// Limiter overrides the default API request throttle.
	Limiter *rate.Limiter

	// Logger receives debug logging. Defaults to slog.Default.
	Logger *slog.Logger
}

// ConfigFromEnv reads the connection settings from LIGHTDASH_*
// environment variables.
func ConfigFromEnv() Config {
	return Config{
		InstanceURL: os.Getenv(EnvInstanceURL),
		AccessToken: os.Getenv(EnvAccessToken),
		ProjectUUID: os.Getenv(EnvProjectUUID),
	}
}

func (c Config) validate() error {
	if c.InstanceURL == "" {
		return domain.ErrValidation("instance URL is required (set %s)", EnvInstanceURL)
	}
	if c.AccessToken == "" {
		return domain.ErrValidation("access token is required (set %s)", EnvAccessToken)
	}
	if c.ProjectUUID == "" {
		return domain.ErrValidation("project UUID is required (set %s)", EnvProjectUUID)
	}
	return nil
}
