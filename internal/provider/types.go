package provider

import (
	"time"

	"github.com/zitadel/oidc/v3/pkg/oidc"
	"golang.org/x/oauth2"
)

// DeviceAuthorization is the answer of the device authorization endpoint.
type DeviceAuthorization = oidc.DeviceAuthorizationResponse

// TokenResponse is a successful answer of the token endpoint.
// Only IDToken is interpreted; the other values are passed through to the host.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	IDToken      string `json:"id_token"`
	Scope        string `json:"scope,omitempty"`
	SessionState string `json:"session_state,omitempty"`
}

// OAuth2Token converts the response into an oauth2.Token. The id_token, scope and
// session_state values are available through Token.Extra.
func (t *TokenResponse) OAuth2Token() *oauth2.Token {
	token := &oauth2.Token{
		AccessToken:  t.AccessToken,
		TokenType:    t.TokenType,
		RefreshToken: t.RefreshToken,
	}

	if t.ExpiresIn > 0 {
		token.Expiry = time.Now().Add(time.Duration(t.ExpiresIn) * time.Second)
	}

	return token.WithExtra(map[string]any{
		"id_token":      t.IDToken,
		"scope":         t.Scope,
		"session_state": t.SessionState,
	})
}
