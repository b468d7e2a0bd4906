package config

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"

	"github.com/spf13/viper"
)

// settingKeys are the argument keys layered over the config file. Other keys are ignored.
var settingKeys = []string{
	KeyDeviceAuthorizeURL,
	KeyTokenURL,
	KeyClientID,
	KeyPrompt,
	KeyQRCode,
	KeyLogFile,
	KeyLogLevel,
	KeyAllowedUsers,
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyPrompt, true)
	v.SetDefault(KeyQRCode, true)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFile, "")
}

// Option changes the defaults Load starts from.
type Option func(v *viper.Viper)

// WithPromptDefault sets the prompt value used when neither the config file nor an
// argument names one.
func WithPromptDefault(enabled bool) Option {
	return func(v *viper.Viper) {
		v.SetDefault(KeyPrompt, enabled)
	}
}

// Load resolves the configuration of one authentication attempt. Values from the
// JSON config file are overridden by key=value arguments. A config= argument takes
// precedence over configFile.
func Load(configFile string, args []string, opts ...Option) (*Config, error) {
	pairs := ParseArguments(args)

	if path, ok := pairs[KeyConfig]; ok {
		configFile = path
	}

	v := viper.New()
	setDefaults(v)

	for _, opt := range opts {
		opt(v)
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		v.SetConfigType("json")

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	for key, value := range pairs {
		if slices.Contains(settingKeys, key) {
			v.Set(key, value)
		}
	}

	cfg := &Config{
		DeviceAuthorizeURL: v.GetString(KeyDeviceAuthorizeURL),
		TokenURL:           v.GetString(KeyTokenURL),
		ClientID:           v.GetString(KeyClientID),
		Prompt:             v.GetBool(KeyPrompt),
		QRCode:             v.GetBool(KeyQRCode),
		AllowedUsers:       allowedUsers(v),
		LogFile:            v.GetString(KeyLogFile),
		LogLevel:           v.GetString(KeyLogLevel),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// allowedUsers accepts a JSON list as well as a comma separated string.
func allowedUsers(v *viper.Viper) []string {
	if value, ok := v.Get(KeyAllowedUsers).(string); ok {
		return splitList(value)
	}

	return v.GetStringSlice(KeyAllowedUsers)
}

// WriteDefault writes a configuration template to path.
func WriteDefault(path string) error {
	defaultConfig := Config{
		DeviceAuthorizeURL: "https://example.com/realms/example/protocol/openid-connect/auth/device",
		TokenURL:           "https://example.com/realms/example/protocol/openid-connect/token",
		ClientID:           "your-client-id",
		Prompt:             false,
		QRCode:             true,
		AllowedUsers:       []string{},
		LogFile:            "/var/log/pam-oidc.log",
		LogLevel:           "info",
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(defaultConfig); err != nil {
		return err
	}

	return nil
}
