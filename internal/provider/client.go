package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/zitadel/oidc/v3/pkg/oidc"
	"golang.org/x/oauth2"
)

// DefaultTimeout bounds every single HTTP round trip. It is independent of the
// polling interval negotiated with the provider.
const DefaultTimeout = 15 * time.Second

const maxResponseSize = 1 << 20

// DefaultScopes are requested during device authorization.
var DefaultScopes = []string{oidc.ScopeOpenID, oidc.ScopeProfile, oidc.ScopeOfflineAccess}

// Client talks to the device authorization and token endpoints of an OIDC provider.
type Client struct {
	endpoint   oauth2.Endpoint
	clientID   string
	scopes     []string
	httpClient *http.Client
	logger     logrus.FieldLogger
}

type Option func(*Client)

// WithHTTPClient replaces the default client, which carries DefaultTimeout.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithScopes(scopes ...string) Option {
	return func(c *Client) {
		c.scopes = scopes
	}
}

func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New returns a client for the given endpoints. Only DeviceAuthURL and TokenURL of
// the endpoint are used.
func New(endpoint oauth2.Endpoint, clientID string, opts ...Option) *Client {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	c := &Client{
		endpoint:   endpoint,
		clientID:   clientID,
		scopes:     DefaultScopes,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     discard,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// DeviceAuthorizationForm builds the body of a device authorization request.
func DeviceAuthorizationForm(clientID string, scopes []string) url.Values {
	form := url.Values{}
	form.Set("client_id", clientID)
	form.Set("scope", strings.Join(scopes, " "))

	return form
}

// TokenPollForm builds the body of a device access token request.
func TokenPollForm(deviceCode, clientID string) url.Values {
	form := url.Values{}
	form.Set("device_code", deviceCode)
	form.Set("grant_type", string(oidc.GrantTypeDeviceCode))
	form.Set("client_id", clientID)

	return form
}

// RequestDeviceAuthorization asks the provider for a device and user code pair.
// A provider error body is returned as *Error.
func (c *Client) RequestDeviceAuthorization(ctx context.Context) (*DeviceAuthorization, error) {
	if c.endpoint.DeviceAuthURL == "" {
		return nil, fmt.Errorf("%w: device authorization url", ErrMissingEndpoint)
	}

	fields, body, err := c.post(ctx, c.endpoint.DeviceAuthURL, DeviceAuthorizationForm(c.clientID, c.scopes))
	if err != nil {
		return nil, err
	}

	if _, ok := fields["device_code"]; !ok {
		if providerErr, err := decodeError(fields, body); err != nil {
			return nil, err
		} else if providerErr != nil {
			return nil, providerErr
		}

		return nil, ErrMissingDeviceCode
	}

	var deviceAuth DeviceAuthorization
	if err := json.Unmarshal(body, &deviceAuth); err != nil {
		return nil, fmt.Errorf("%w: decode device authorization response: %w", ErrTransport, err)
	}

	if deviceAuth.DeviceCode == "" {
		return nil, ErrMissingDeviceCode
	}

	return &deviceAuth, nil
}

// PollToken performs one device access token request.
//
// A nil error means the user approved the login. Otherwise the error is either a
// *Error sent by the provider (see Error.Terminal) or wraps ErrTransport.
func (c *Client) PollToken(ctx context.Context, deviceCode string) (*TokenResponse, error) {
	if c.endpoint.TokenURL == "" {
		return nil, fmt.Errorf("%w: token url", ErrMissingEndpoint)
	}

	fields, body, err := c.post(ctx, c.endpoint.TokenURL, TokenPollForm(deviceCode, c.clientID))
	if err != nil {
		return nil, err
	}

	// The endpoint answers with either shape; the fields present decide which one.
	if hasAny(fields, "access_token", "id_token") {
		var token TokenResponse
		if err := json.Unmarshal(body, &token); err != nil {
			return nil, fmt.Errorf("%w: decode token response: %w", ErrTransport, err)
		}

		return &token, nil
	}

	providerErr, err := decodeError(fields, body)
	if err != nil {
		return nil, err
	}

	if providerErr != nil {
		return nil, providerErr
	}

	return nil, fmt.Errorf("%w: response carries neither a token nor an error", ErrTransport)
}

func (c *Client) post(ctx context.Context, endpoint string, form url.Values) (map[string]json.RawMessage, []byte, error) {
	c.logger.Debugf("POST %s", endpoint)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: read response: %w", ErrTransport, err)
	}

	c.logger.Debugf("Response status %d from %s", resp.StatusCode, endpoint)

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, nil, fmt.Errorf("%w: status %d, body is not a JSON object: %w", ErrTransport, resp.StatusCode, err)
	}

	return fields, body, nil
}

func decodeError(fields map[string]json.RawMessage, body []byte) (*Error, error) {
	if _, ok := fields["error"]; !ok {
		return nil, nil
	}

	var providerErr Error
	if err := json.Unmarshal(body, &providerErr); err != nil {
		return nil, fmt.Errorf("%w: decode error response: %w", ErrTransport, err)
	}

	return &providerErr, nil
}

func hasAny(fields map[string]json.RawMessage, keys ...string) bool {
	for _, key := range keys {
		if _, ok := fields[key]; ok {
			return true
		}
	}

	return false
}
