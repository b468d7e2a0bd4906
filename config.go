package main

import (
	"os"
)

var defaultConfigFilePath = "/etc/pam-oidc-auth.conf.json"

// PAM Environment
type PAMEnv struct {
	User    string
	Service string
	RHost   string
	TTY     string
}

func loadPAMEnvironment(getenv func(string) string) *PAMEnv {
	return &PAMEnv{
		User:    getenv("PAM_USER"),
		Service: getenv("PAM_SERVICE"),
		RHost:   getenv("PAM_RHOST"),
		TTY:     getenv("PAM_TTY"),
	}
}

// resolveConfigPath picks the config file: the -config flag, then PAM_OIDC_CONFIG,
// then defaultPath if that file exists. An empty result means arguments only.
func resolveConfigPath(flagValue, defaultPath string, getenv func(string) string) string {
	if flagValue != "" {
		return flagValue
	}

	// try env instead
	if envConfig := getenv("PAM_OIDC_CONFIG"); envConfig != "" {
		return envConfig
	}

	if _, err := os.Stat(defaultPath); err == nil {
		return defaultPath
	}

	return ""
}
