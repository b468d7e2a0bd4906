package config

import "strings"

// Argument keys understood in host supplied key=value pairs and in the config file.
const (
	KeyDeviceAuthorizeURL = "device_authorize_url"
	KeyTokenURL           = "token_url"
	KeyClientID           = "client_id"
	KeyPrompt             = "prompt"
	KeyQRCode             = "qr_code"
	KeyLogFile            = "log_file"
	KeyLogLevel           = "log_level"
	KeyAllowedUsers       = "allowed_users"
	KeyConfig             = "config"
)

// ParseArguments splits key=value pairs. Everything after the first '=' is the value;
// an argument without '=' has an empty value. Later duplicates win.
func ParseArguments(args []string) map[string]string {
	pairs := make(map[string]string, len(args))

	for _, arg := range args {
		key, value, _ := strings.Cut(arg, "=")
		pairs[strings.ToLower(strings.TrimSpace(key))] = value
	}

	return pairs
}

func splitList(value string) []string {
	var list []string

	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}

	return list
}
