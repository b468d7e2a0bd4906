package config_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/chalharu/ssh-oauth2/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var requiredArgs = []string{
	"device_authorize_url=https://idp.example.com/device",
	"token_url=https://idp.example.com/token",
	"client_id=X",
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "pam-oidc.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestParseArguments(t *testing.T) {
	t.Parallel()

	pairs := config.ParseArguments([]string{
		"client_id=X",
		"token_url=https://idp/token?a=b",
		"DEBUG",
		"prompt=",
		"client_id=Y",
	})

	assert.Equal(t, map[string]string{
		"client_id": "Y",
		"token_url": "https://idp/token?a=b",
		"debug":     "",
		"prompt":    "",
	}, pairs)
}

func TestLoadArgumentsOnly(t *testing.T) {
	t.Parallel()

	cfg, err := config.Load("", append(requiredArgs, "unknown=1"))
	require.NoError(t, err)

	assert.Equal(t, "https://idp.example.com/device", cfg.DeviceAuthorizeURL)
	assert.Equal(t, "https://idp.example.com/token", cfg.TokenURL)
	assert.Equal(t, "X", cfg.ClientID)
	assert.True(t, cfg.Prompt)
	assert.True(t, cfg.QRCode)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.AllowedUsers)

	endpoint := cfg.Endpoint()
	assert.Equal(t, cfg.DeviceAuthorizeURL, endpoint.DeviceAuthURL)
	assert.Equal(t, cfg.TokenURL, endpoint.TokenURL)
}

func TestLoadMissingArguments(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name    string
		args    []string
		missing string
	}{
		{name: "nothing", args: nil, missing: "client_id, device_authorize_url, token_url"},
		{name: "no client id", args: requiredArgs[:2], missing: "client_id"},
		{name: "empty token url", args: []string{requiredArgs[0], "token_url=", requiredArgs[2]}, missing: "token_url"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := config.Load("", tc.args)
			require.ErrorIs(t, err, config.ErrMissingArgument)
			assert.Contains(t, err.Error(), tc.missing)
		})
	}
}

func TestLoadOptionalArguments(t *testing.T) {
	t.Parallel()

	cfg, err := config.Load("", append(requiredArgs,
		"prompt=false",
		"qr_code=0",
		"log_level=debug",
		"log_file=/tmp/pam.log",
		"allowed_users=alice, bob,,",
	))
	require.NoError(t, err)

	assert.False(t, cfg.Prompt)
	assert.False(t, cfg.QRCode)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/tmp/pam.log", cfg.LogFile)
	assert.Equal(t, []string{"alice", "bob"}, cfg.AllowedUsers)
}

func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `{
		"device_authorize_url": "https://file.example.com/device",
		"token_url": "https://file.example.com/token",
		"client_id": "from-file",
		"prompt": false,
		"allowed_users": ["carol"],
		"log_level": "warn"
	}`)

	cfg, err := config.Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.ClientID)
	assert.False(t, cfg.Prompt)
	assert.True(t, cfg.QRCode)
	assert.Equal(t, []string{"carol"}, cfg.AllowedUsers)
	assert.Equal(t, "warn", cfg.LogLevel)

	cfg, err = config.Load(path, []string{"client_id=from-args", "prompt=true"})
	require.NoError(t, err)
	assert.Equal(t, "from-args", cfg.ClientID)
	assert.Equal(t, "https://file.example.com/token", cfg.TokenURL)
	assert.True(t, cfg.Prompt)
}

func TestLoadConfigArgumentWins(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `{"device_authorize_url":"d","token_url":"t","client_id":"c"}`)

	cfg, err := config.Load(filepath.Join(t.TempDir(), "does-not-exist.json"), []string{"config=" + path})
	require.NoError(t, err)
	assert.Equal(t, "c", cfg.ClientID)
}

func TestLoadConfigFileErrors(t *testing.T) {
	t.Parallel()

	_, err := config.Load(filepath.Join(t.TempDir(), "missing.json"), requiredArgs)
	require.Error(t, err)

	_, err = config.Load(writeConfig(t, `{not json`), requiredArgs)
	require.Error(t, err)
}

func TestUserAllowed(t *testing.T) {
	t.Parallel()

	open := &config.Config{}
	assert.True(t, open.UserAllowed("anyone"))

	restricted := &config.Config{AllowedUsers: []string{"alice"}}
	assert.True(t, restricted.UserAllowed("alice"))
	assert.False(t, restricted.UserAllowed("Alice"))
	assert.False(t, restricted.UserAllowed("bob"))
}

func TestWriteDefault(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "pam-oidc.json")
	require.NoError(t, config.WriteDefault(path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)

	var written map[string]any
	require.NoError(t, json.Unmarshal(content, &written))
	assert.Contains(t, written, "device_authorize_url")
	assert.Contains(t, written, "token_url")
	assert.Contains(t, written, "client_id")

	cfg, err := config.Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "your-client-id", cfg.ClientID)
	assert.True(t, cfg.QRCode)
}

func TestLoadAllowedUsersString(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `{"device_authorize_url":"d","token_url":"t","client_id":"c","allowed_users":"alice,bob"}`)

	cfg, err := config.Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, cfg.AllowedUsers)
}

func TestLoadPromptDefault(t *testing.T) {
	t.Parallel()

	cfg, err := config.Load("", requiredArgs, config.WithPromptDefault(false))
	require.NoError(t, err)
	assert.False(t, cfg.Prompt)

	cfg, err = config.Load("", append(requiredArgs, "prompt=true"), config.WithPromptDefault(false))
	require.NoError(t, err)
	assert.True(t, cfg.Prompt)

	path := writeConfig(t, `{"device_authorize_url":"d","token_url":"t","client_id":"c","prompt":true}`)

	cfg, err = config.Load(path, nil, config.WithPromptDefault(false))
	require.NoError(t, err)
	assert.True(t, cfg.Prompt)
}
