package main

import (
	"context"
	"fmt"
	"io"

	"github.com/chalharu/ssh-oauth2/internal/config"
	"github.com/chalharu/ssh-oauth2/internal/conversation"
	"github.com/chalharu/ssh-oauth2/internal/deviceflow"
	"github.com/chalharu/ssh-oauth2/internal/logging"
	"github.com/chalharu/ssh-oauth2/internal/provider"
)

// host is the PAM transaction seen from Go.
type host interface {
	conversation.Channel

	User() (string, error)
	SetUser(name string) error
	Error(message string) error
}

// login runs one authentication attempt for the module arguments. A nil error is
// PAM_SUCCESS, anything else PAM_AUTH_ERR. stderr receives the log lines written
// before the configured log file is open.
func login(ctx context.Context, args []string, h host, stderr io.Writer) error {
	fallback, _, _ := logging.New(logging.Options{Output: stderr})

	cfg, err := config.Load("", args)
	if err != nil {
		fallback.WithError(err).Error("Failed to load module configuration")

		return err
	}

	logger, closeLog, err := logging.New(logging.Options{File: cfg.LogFile, Level: cfg.LogLevel, Output: stderr})
	if err != nil {
		fallback.WithError(err).Errorf("Failed to open log file %s", cfg.LogFile)

		return err
	}
	defer closeLog()

	user, err := h.User()
	if err != nil {
		logger.WithError(err).Error("Failed to read PAM_USER")

		return err
	}

	client := provider.New(cfg.Endpoint(), cfg.ClientID, provider.WithLogger(logger))
	engine := deviceflow.New(client,
		deviceflow.WithLogger(logger),
		deviceflow.WithPrompt(cfg.Prompt),
		deviceflow.WithQRCode(cfg.QRCode),
	)

	result, err := engine.Authenticate(ctx, deviceflow.IdentityFromUser(user), h)
	if err != nil {
		_ = h.Error("Authentication failed")

		return err
	}

	if !cfg.UserAllowed(result.Username) {
		logger.Warnf("User %s is not in the allowed users list", result.Username)
		_ = h.Error("Authentication failed - user not allowed")

		return fmt.Errorf("user %s not allowed", result.Username)
	}

	if result.Bound {
		if err := h.SetUser(result.Username); err != nil {
			logger.WithError(err).Errorf("Failed to set PAM_USER to %s", result.Username)

			return err
		}
	}

	logger.Infof("Authentication successful for user: %s", result.Username)

	return nil
}
