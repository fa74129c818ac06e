package config

import "time"

type Config interface {
	EnvConfig
}

type EnvConfig interface {
	GetBaseURL() string
	GetDatabasePath() string
	GetAppName() string
	GetEnv() string
	GetHTTPTimeout() time.Duration
}

type mainConfig struct {
	EnvVars
}

func New() Config {
	return mainConfig{}
}
