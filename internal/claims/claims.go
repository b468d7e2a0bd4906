// Package claims reads the identity asserted by an OIDC id_token.
//
// The payload is decoded without verifying the token signature, issuer, audience or
// expiry. The token is trusted because it was received directly from the provider's
// token endpoint in answer to our own device code. Adding verification against the
// provider JWKS is the recommended hardening point; see UnverifiedPayload.
package claims

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// PreferredUsernameClaim is the claim used as the remote identity.
const PreferredUsernameClaim = "preferred_username"

var (
	ErrMalformedToken = errors.New("malformed id_token")
	ErrMissingClaim   = errors.New("missing claim")
	ErrInvalidClaim   = errors.New("invalid claim")
)

var segmentParser = jwt.NewParser(jwt.WithPaddingAllowed())

// UnverifiedPayload decodes the claim set of idToken. No cryptographic or temporal
// validation takes place.
func UnverifiedPayload(idToken string) (jwt.MapClaims, error) {
	segments := strings.Split(idToken, ".")
	if len(segments) < 2 {
		return nil, fmt.Errorf("%w: no payload segment", ErrMalformedToken)
	}

	payload, err := decodeSegment(segments[1])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedToken, err)
	}

	var claims jwt.MapClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, fmt.Errorf("%w: payload is not a JSON object: %w", ErrMalformedToken, err)
	}

	if claims == nil {
		return nil, fmt.Errorf("%w: payload is null", ErrMalformedToken)
	}

	return claims, nil
}

// PreferredUsername returns the preferred_username claim of idToken.
func PreferredUsername(idToken string) (string, error) {
	claims, err := UnverifiedPayload(idToken)
	if err != nil {
		return "", err
	}

	return StringClaim(claims, PreferredUsernameClaim)
}

// StringClaim returns a non-empty string claim.
func StringClaim(claims jwt.MapClaims, name string) (string, error) {
	value, ok := claims[name]
	if !ok || value == nil {
		return "", fmt.Errorf("%w: %s", ErrMissingClaim, name)
	}

	str, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s is not a string, got %T", ErrInvalidClaim, name, value)
	}

	if str == "" {
		return "", fmt.Errorf("%w: %s is empty", ErrInvalidClaim, name)
	}

	return str, nil
}

// decodeSegment accepts the standard alphabet, padded or not, and falls back to the
// URL-safe alphabet JWTs are normally encoded with.
func decodeSegment(segment string) ([]byte, error) {
	if decoded, err := base64.StdEncoding.DecodeString(segment); err == nil {
		return decoded, nil
	}

	if decoded, err := base64.RawStdEncoding.DecodeString(segment); err == nil {
		return decoded, nil
	}

	decoded, err := segmentParser.DecodeSegment(segment)
	if err != nil {
		return nil, fmt.Errorf("payload is not base64: %w", err)
	}

	return decoded, nil
}
