package config

import (
	"os"
	"strconv"
	"time"
)

const (
	baseURLVar = "BASE_URL"
	dbPathVar  = "DB_PATH"
	appNameVar = "APP_NAME"
	timeoutVar = "HTTP_TIMEOUT_SECONDS"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

// GetBaseURL returns the root URL of the auth backend under test.
func (EnvVars) GetBaseURL() string {
	return GetEnv(baseURLVar, "http://localhost:8080")
}

// GetDatabasePath returns the path to the backend's SQLite file, which
// the fixture seeder writes into directly.
func (EnvVars) GetDatabasePath() string {
	return GetEnv(dbPathVar, "./jyogi_auth.db")
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Auth Flow Check")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

// GetHTTPTimeout bounds every round trip. Go's zero-value http.Client
// timeout is unbounded, so a hung backend would hang the whole run.
func (EnvVars) GetHTTPTimeout() time.Duration {
	seconds, err := strconv.Atoi(GetEnv(timeoutVar, "10"))
	if err != nil || seconds <= 0 {
		seconds = 10
	}
	return time.Duration(seconds) * time.Second
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
