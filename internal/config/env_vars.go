package config

import (
	"os"
	"strings"
)

type EnvVars struct {
	AppName  string `yaml:"name" env:"APP_NAME" env-default:"DealScope"`
	Env      string `yaml:"env" env:"ENV" env-default:"DEV"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetAppName() string {
	return e.AppName
}

func (e EnvVars) GetEnv() string {
	if e.Env == "" {
		return "DEV"
	}
	return strings.ToUpper(e.Env)
}

func (e EnvVars) GetLogLevel() string {
	return strings.ToLower(e.LogLevel)
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
