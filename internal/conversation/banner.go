package conversation

import (
	"fmt"
	"strings"
)

// Login is what the user needs to approve the login on another device.
type Login struct {
	UserCode                string
	VerificationURI         string
	VerificationURIComplete string
}

// URL returns the address the user should open, preferring the one that already
// carries the user code.
func (l Login) URL() string {
	if l.VerificationURIComplete != "" {
		return l.VerificationURIComplete
	}

	return l.VerificationURI
}

// Banner formats the login instructions. qrCode is appended verbatim when not empty.
func Banner(login Login, qrCode string) string {
	var sb strings.Builder

	sb.WriteString("\n\nPlease complete authentication in your web browser:\n\n")
	fmt.Fprintf(&sb, "1. Visit: %s\n", login.VerificationURI)
	fmt.Fprintf(&sb, "2. Enter code: %s\n", login.UserCode)

	if login.VerificationURIComplete != "" {
		fmt.Fprintf(&sb, "\nOr open directly:\n%s\n", login.VerificationURIComplete)
	}

	if qrCode != "" {
		fmt.Fprintf(&sb, "\nOr scan the QR code below:\n\n%s", qrCode)
	}

	return sb.String()
}
