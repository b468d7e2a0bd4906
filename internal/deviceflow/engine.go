// Package deviceflow runs the OAuth 2.0 device authorization grant for one login attempt
// and decides which local account the approved login may use.
package deviceflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/chalharu/ssh-oauth2/internal/claims"
	"github.com/chalharu/ssh-oauth2/internal/conversation"
	"github.com/chalharu/ssh-oauth2/internal/provider"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// maxIntervalSeconds is the largest polling interval a time.Duration can hold.
const maxIntervalSeconds = int64(math.MaxInt64 / time.Second)

// Provider is the part of the OIDC provider the flow talks to.
type Provider interface {
	RequestDeviceAuthorization(ctx context.Context) (*provider.DeviceAuthorization, error)
	PollToken(ctx context.Context, deviceCode string) (*provider.TokenResponse, error)
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

type Engine struct {
	provider Provider
	logger   logrus.FieldLogger
	sleep    Sleeper
	prompt   bool
	qrCode   bool
}

type Option func(*Engine)

func WithLogger(logger logrus.FieldLogger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

func WithSleeper(sleep Sleeper) Option {
	return func(e *Engine) {
		e.sleep = sleep
	}
}

// WithPrompt controls whether the user has to acknowledge the instructions before
// polling starts.
func WithPrompt(enabled bool) Option {
	return func(e *Engine) {
		e.prompt = enabled
	}
}

func WithQRCode(enabled bool) Option {
	return func(e *Engine) {
		e.qrCode = enabled
	}
}

// New returns an engine with prompt and QR code enabled.
func New(p Provider, opts ...Option) *Engine {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	e := &Engine{
		provider: p,
		logger:   discard,
		sleep:    sleepContext,
		prompt:   true,
		qrCode:   true,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// MaxAttempts is the number of token polls that fit into the lifetime of a device code.
func MaxAttempts(expiresIn, interval int) int {
	if interval <= 0 || expiresIn <= 0 {
		return 0
	}

	return expiresIn / interval
}

// Authenticate runs one login attempt. The returned error explains an AuthFailure
// verdict and is meant for logs only.
func (e *Engine) Authenticate(ctx context.Context, existing Identity, channel conversation.Channel) (*Result, error) {
	log := e.logger.WithFields(logrus.Fields{
		"session": uuid.NewString(),
		"user":    existing.String(),
	})

	log.Debug("Starting device flow authentication")

	deviceAuth, err := e.provider.RequestDeviceAuthorization(ctx)
	if err != nil {
		log.WithError(err).Error("Device authorization failed")

		return failure(fmt.Errorf("%w: %w", ErrDeviceAuthorization, err))
	}

	log.Debugf("Device code issued - user code: %s, device code: %s", deviceAuth.UserCode, deviceAuth.DeviceCode)

	if deviceAuth.Interval <= 0 || int64(deviceAuth.Interval) > maxIntervalSeconds {
		log.Errorf("Provider returned polling interval %d", deviceAuth.Interval)

		return failure(fmt.Errorf("%w: interval %d", ErrProtocolViolation, deviceAuth.Interval))
	}

	if err := e.present(channel, deviceAuth); err != nil {
		log.WithError(err).Error("Failed to display login instructions")

		return failure(err)
	}

	token, err := e.poll(ctx, log, deviceAuth)
	if err != nil {
		log.WithError(err).Error("Token polling failed")

		return failure(err)
	}

	username, err := claims.PreferredUsername(token.IDToken)
	if err != nil {
		log.WithError(err).Error("Failed to extract username from id_token")

		return failure(fmt.Errorf("%w: %w", ErrInvalidToken, err))
	}

	result, err := Reconcile(existing, username)
	if err != nil {
		log.WithError(err).WithField("preferred_username", username).Error("Identity reconciliation failed")

		return result, err
	}

	result.Token = token.OAuth2Token()

	if result.Bound {
		log.Infof("Bound login to user %s", result.Username)
	}

	log.Info("OAuth2 device flow succeeded")

	return result, nil
}

func (e *Engine) present(channel conversation.Channel, deviceAuth *provider.DeviceAuthorization) error {
	login := conversation.Login{
		UserCode:                deviceAuth.UserCode,
		VerificationURI:         deviceAuth.VerificationURI,
		VerificationURIComplete: deviceAuth.VerificationURIComplete,
	}

	var qrCode string

	if e.qrCode {
		var err error

		qrCode, err = conversation.RenderQRCode(login.URL())
		if err != nil {
			return fmt.Errorf("%w: %w", ErrPresentation, err)
		}
	}

	if err := channel.Info(conversation.Banner(login, qrCode)); err != nil {
		return fmt.Errorf("%w: %w", ErrPresentation, err)
	}

	if e.prompt {
		if _, err := channel.Prompt(conversation.ContinuePrompt); err != nil {
			return fmt.Errorf("%w: %w", ErrPresentation, err)
		}
	}

	return nil
}

// poll asks for the token at a constant cadence. slow_down does not stretch the
// interval; the attempt budget already keeps the total wait within expires_in.
func (e *Engine) poll(ctx context.Context, log logrus.FieldLogger, deviceAuth *provider.DeviceAuthorization) (*provider.TokenResponse, error) {
	interval := time.Duration(deviceAuth.Interval) * time.Second
	maxAttempts := MaxAttempts(deviceAuth.ExpiresIn, deviceAuth.Interval)

	log.Debugf("Polling for token every %s, at most %d times", interval, maxAttempts)

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			if err := e.sleep(ctx, interval); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrTimeout, err)
			}
		}

		entry := log.WithField("attempt", attempt)

		token, err := e.provider.PollToken(ctx, deviceAuth.DeviceCode)
		if err == nil {
			entry.Debug("Token response received")

			return token, nil
		}

		var providerErr *provider.Error

		switch {
		case errors.As(err, &providerErr) && providerErr.Terminal():
			entry.Warnf("Provider ended the device flow: %s", providerErr)

			return nil, fmt.Errorf("%w: %w", ErrDeclined, err)
		case errors.As(err, &providerErr):
			entry.Debugf("Authorization not completed: %s", providerErr)
		default:
			entry.WithError(err).Warn("Token request failed")
		}
	}

	return nil, fmt.Errorf("%w: no token after %d attempts", ErrTimeout, maxAttempts)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
