package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/chalharu/ssh-oauth2/internal/config"
	"github.com/chalharu/ssh-oauth2/internal/deviceflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHost struct {
	user    string
	userErr error
	setErr  error
	bound   []string
	infos   []string
	prompts []string
	errors  []string
}

func (h *fakeHost) User() (string, error) { return h.user, h.userErr }

func (h *fakeHost) SetUser(name string) error {
	if h.setErr != nil {
		return h.setErr
	}

	h.bound = append(h.bound, name)

	return nil
}

func (h *fakeHost) Info(message string) error {
	h.infos = append(h.infos, message)

	return nil
}

func (h *fakeHost) Prompt(message string) (string, error) {
	h.prompts = append(h.prompts, message)

	return "", nil
}

func (h *fakeHost) Error(message string) error {
	h.errors = append(h.errors, message)

	return nil
}

func newProvider(t *testing.T, username string) []string {
	t.Helper()

	payload := base64.RawURLEncoding.EncodeToString([]byte(`{"preferred_username":"` + username + `"}`))

	mux := http.NewServeMux()
	mux.HandleFunc("/device", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"device_code":"dev","user_code":"U","verification_uri":"https://idp/device","expires_in":30,"interval":5}`))
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"access_token":"at","id_token":"h.` + payload + `.s"}`))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return []string{
		"device_authorize_url=" + server.URL + "/device",
		"token_url=" + server.URL + "/token",
		"client_id=X",
		"log_level=error",
		"qr_code=false",
	}
}

func TestLoginBindsUser(t *testing.T) {
	t.Parallel()

	h := &fakeHost{}

	require.NoError(t, login(context.Background(), newProvider(t, "alice"), h, io.Discard))
	assert.Equal(t, []string{"alice"}, h.bound)
	assert.Len(t, h.infos, 1)
	assert.Equal(t, []string{"Press Enter to continue:"}, h.prompts)
	assert.Empty(t, h.errors)
}

func TestLoginExistingUser(t *testing.T) {
	t.Parallel()

	h := &fakeHost{user: "alice"}

	require.NoError(t, login(context.Background(), append(newProvider(t, "alice"), "prompt=false"), h, io.Discard))
	assert.Empty(t, h.bound)
	assert.Empty(t, h.prompts)
}

func TestLoginFailures(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name    string
		host    *fakeHost
		extra   []string
		wantErr error
	}{
		{name: "mismatch", host: &fakeHost{user: "bob"}, wantErr: deviceflow.ErrIdentityMismatch},
		{name: "not allowed", host: &fakeHost{}, extra: []string{"allowed_users=bob"}},
		{name: "read user", host: &fakeHost{userErr: errors.New("boom")}},
		{name: "set user", host: &fakeHost{setErr: errors.New("boom")}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := login(context.Background(), append(newProvider(t, "alice"), tc.extra...), tc.host, io.Discard)
			require.Error(t, err)

			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
			}

			assert.Empty(t, tc.host.bound)
		})
	}
}

func TestLoginMissingArguments(t *testing.T) {
	t.Parallel()

	h := &fakeHost{}

	var stderr bytes.Buffer

	err := login(context.Background(), []string{"client_id=X"}, h, &stderr)
	require.ErrorIs(t, err, config.ErrMissingArgument)
	assert.Empty(t, h.infos)
	assert.Contains(t, stderr.String(), "[PAM_OIDC:error] Failed to load module configuration")
	assert.Contains(t, stderr.String(), "device_authorize_url")
}

func TestLoginUnwritableLogFile(t *testing.T) {
	t.Parallel()

	h := &fakeHost{}
	logFile := filepath.Join(t.TempDir(), "missing", "pam-oidc.log")

	var stderr bytes.Buffer

	err := login(context.Background(), append(newProvider(t, "alice"), "log_file="+logFile), h, &stderr)
	require.Error(t, err)
	assert.Empty(t, h.infos)
	assert.Contains(t, stderr.String(), "[PAM_OIDC:error] Failed to open log file "+logFile)
}
