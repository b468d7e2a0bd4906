package deviceflow

import (
	"fmt"
	"strings"

	"golang.org/x/oauth2"
)

// Identity is the local account the host wants to authenticate, if it knows one.
type Identity struct {
	name    string
	present bool
}

// NoIdentity lets the token decide which account is authenticated.
func NoIdentity() Identity {
	return Identity{}
}

// ExistingIdentity requires the token to assert exactly name.
func ExistingIdentity(name string) Identity {
	return Identity{name: name, present: true}
}

// IdentityFromUser treats an empty user name as unknown.
func IdentityFromUser(name string) Identity {
	if name == "" {
		return NoIdentity()
	}

	return ExistingIdentity(name)
}

func (i Identity) Name() (string, bool) {
	return i.name, i.present
}

func (i Identity) String() string {
	if !i.present {
		return "<none>"
	}

	return i.name
}

type Verdict int

const (
	AuthFailure Verdict = iota
	Success
)

func (v Verdict) String() string {
	if v == Success {
		return "SUCCESS"
	}

	return "AUTH-FAILURE"
}

// Result is the outcome of one authentication attempt.
type Result struct {
	Verdict Verdict
	// Username is the authenticated local account.
	Username string
	// Bound is set when no identity was supplied and the host must record Username.
	Bound bool
	// Token carries the provider tokens for the host; it is never inspected here.
	Token *oauth2.Token
}

func failure(err error) (*Result, error) {
	return &Result{Verdict: AuthFailure}, err
}

// Reconcile decides whether username, proven by the provider, may log in as existing.
// A supplied identity is never replaced by the remote one.
func Reconcile(existing Identity, username string) (*Result, error) {
	if name, ok := existing.Name(); ok {
		if name != username {
			return failure(fmt.Errorf("%w: preferred_username %q, requested %q", ErrIdentityMismatch, username, name))
		}

		return &Result{Verdict: Success, Username: name}, nil
	}

	if username == "" || strings.ContainsRune(username, 0) {
		return failure(fmt.Errorf("%w: %q", ErrUnrepresentableUsername, username))
	}

	return &Result{Verdict: Success, Username: username, Bound: true}, nil
}
