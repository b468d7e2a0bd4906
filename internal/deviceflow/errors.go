package deviceflow

import "errors"

var (
	ErrDeviceAuthorization     = errors.New("device authorization failed")
	ErrProtocolViolation       = errors.New("provider violated the device flow protocol")
	ErrPresentation            = errors.New("unable to present login instructions")
	ErrDeclined                = errors.New("device flow terminated by provider")
	ErrTimeout                 = errors.New("device flow timed out")
	ErrInvalidToken            = errors.New("unable to read identity from token")
	ErrIdentityMismatch        = errors.New("token identity does not match requested user")
	ErrUnrepresentableUsername = errors.New("username cannot be represented as a local account name")
)
