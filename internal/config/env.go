package config

import "os"

// Environment variable names for overrides.
const (
	EnvConfig  = "SELCS_CONFIG"
	EnvUser    = "SELCS_USER"
	EnvKey     = "SELCS_KEY"
	EnvAuthURL = "SELCS_AUTH_URL"
)

// EnvOverrides holds values derived from environment variables.
type EnvOverrides struct {
	ConfigPath string // SELCS_CONFIG: override config file path
	User       string // SELCS_USER: account username
	Key        string // SELCS_KEY: account key
	AuthURL    string // SELCS_AUTH_URL: override auth endpoint
}

// ReadEnvOverrides reads environment variables and returns any overrides
// found. This does not modify the Config; callers apply the relevant fields.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath: os.Getenv(EnvConfig),
		User:       os.Getenv(EnvUser),
		Key:        os.Getenv(EnvKey),
		AuthURL:    os.Getenv(EnvAuthURL),
	}
}
