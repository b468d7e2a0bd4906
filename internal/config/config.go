package config

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/oauth2"
)

// Configuration structure
type Config struct {
	// OIDC provider endpoints, all three are required
	DeviceAuthorizeURL string `json:"device_authorize_url"`
	TokenURL           string `json:"token_url"`
	ClientID           string `json:"client_id"`

	// Wait for the user to press Enter before polling starts
	Prompt bool `json:"prompt"`
	// Render the verification URL as a QR code
	QRCode bool `json:"qr_code"`
	// List of allowed users (empty = every user the provider vouches for)
	AllowedUsers []string `json:"allowed_users"`
	// Log file path (empty = stderr)
	LogFile string `json:"log_file"`
	// Log level: error, warn, info, debug
	LogLevel string `json:"log_level"`
}

// Endpoint returns the provider endpoints in the form the oauth2 package expects.
func (c *Config) Endpoint() oauth2.Endpoint {
	return oauth2.Endpoint{
		DeviceAuthURL: c.DeviceAuthorizeURL,
		TokenURL:      c.TokenURL,
	}
}

// Validate reports every missing required argument at once.
func (c *Config) Validate() error {
	var missing []string

	for key, value := range map[string]string{
		KeyDeviceAuthorizeURL: c.DeviceAuthorizeURL,
		KeyTokenURL:           c.TokenURL,
		KeyClientID:           c.ClientID,
	} {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, key)
		}
	}

	if len(missing) > 0 {
		slices.Sort(missing)

		return fmt.Errorf("%w: %s", ErrMissingArgument, strings.Join(missing, ", "))
	}

	return nil
}

// UserAllowed checks the allowed users list if one is configured.
func (c *Config) UserAllowed(username string) bool {
	return len(c.AllowedUsers) == 0 || slices.Contains(c.AllowedUsers, username)
}
