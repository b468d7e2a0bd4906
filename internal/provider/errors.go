package provider

import "errors"

var (
	// ErrTransport marks a request that did not produce a usable provider answer:
	// connection failures, timeouts, unreadable or non-JSON bodies.
	ErrTransport = errors.New("provider transport error")

	ErrMissingDeviceCode = errors.New("device authorization response without device_code")
	ErrMissingEndpoint   = errors.New("provider endpoint not configured")
)

// Error codes a provider may return from the token endpoint while the device flow is pending.
const (
	CodeAuthorizationPending  = "authorization_pending"
	CodeSlowDown              = "slow_down"
	CodeAuthorizationDeclined = "authorization_declined"
	CodeBadVerificationCode   = "bad_verification_code"
	CodeExpiredToken          = "expired_token"
)

// Error is a well-formed OAuth2 error body returned by the provider.
type Error struct {
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

func (e *Error) Error() string {
	if e.Description == "" {
		return e.Code
	}

	return e.Code + ": " + e.Description
}

// Terminal reports whether polling can never succeed after this error.
// Every code outside the terminal set is treated as retry-later.
func (e *Error) Terminal() bool {
	switch e.Code {
	case CodeAuthorizationDeclined, CodeBadVerificationCode, CodeExpiredToken:
		return true
	default:
		return false
	}
}
