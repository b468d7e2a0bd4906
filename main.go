// Command pam-oidc-device authenticates a login through the OAuth 2.0 device
// authorization grant. It is meant to run under pam_exec:
//
//	auth required pam_exec.so stdout /usr/local/bin/pam-oidc-device -config /etc/pam-oidc-auth.conf.json
//
// Trailing key=value arguments override the config file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/chalharu/ssh-oauth2/internal/config"
	"github.com/chalharu/ssh-oauth2/internal/conversation"
	"github.com/chalharu/ssh-oauth2/internal/deviceflow"
	"github.com/chalharu/ssh-oauth2/internal/logging"
	"github.com/chalharu/ssh-oauth2/internal/provider"
	"github.com/sirupsen/logrus"
)

type helper struct {
	stdin    io.Reader
	stdout   io.Writer
	stderr   io.Writer
	getenv   func(string) string
	testMode bool
}

func main() {
	h := &helper{
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
		getenv: os.Getenv,
	}

	os.Exit(h.run(context.Background(), os.Args[1:]))
}

func (h *helper) usage(fs *flag.FlagSet) {
	fmt.Fprintf(h.stdout, "Usage: %s [options] [key=value...]\n", fs.Name())
	fs.SetOutput(h.stdout)
	fs.PrintDefaults()
	fmt.Fprintf(h.stdout, "\nSubcommands: \n\tcreate-config\n\ttest\n\tversion\n\thelp\n")
}

func (h *helper) run(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("pam-oidc-device", flag.ContinueOnError)
	fs.SetOutput(h.stderr)
	configFilePath := fs.String("config", "", "Path to configuration file")
	showVersion := fs.Bool("version", false, "Show version and exit")

	if len(args) > 0 {
		switch args[0] {
		case "create-config":
			return h.createConfig(args[1:])
		case "test":
			h.testMode = true
			args = args[1:]
		case "version":
			fmt.Fprintln(h.stdout, Version)

			return 0
		case "help":
			h.usage(fs)

			return 0
		default:
			if !strings.HasPrefix(args[0], "-") && !strings.Contains(args[0], "=") {
				h.usage(fs)

				return 1
			}
		}
	}

	if err := fs.Parse(args); err != nil {
		return 1
	}

	if *showVersion {
		fmt.Fprintln(h.stdout, Version)

		return 0
	}

	// pam_exec hands the helper /dev/null as stdin, so only test mode can answer a prompt.
	cfg, err := config.Load(
		resolveConfigPath(*configFilePath, defaultConfigFilePath, h.getenv),
		fs.Args(),
		config.WithPromptDefault(h.testMode),
	)
	if err != nil {
		fmt.Fprintf(h.stderr, "Failed to load configuration: %v\n", err)

		return 1
	}

	logger, closeLog, err := logging.New(logging.Options{
		File:   cfg.LogFile,
		Level:  cfg.LogLevel,
		Stdout: h.testMode,
	})
	if err != nil {
		fmt.Fprintln(h.stderr, err)

		return 1
	}
	defer closeLog()

	stopSignals := setupSignalHandling(logger)
	defer stopSignals()

	if err := h.authenticate(ctx, cfg, logger); err != nil {
		logger.Errorf("Authentication failed: %v", err)

		return 1
	}

	return 0
}

func (h *helper) authenticate(ctx context.Context, cfg *config.Config, logger *logrus.Logger) error {
	terminal := conversation.NewTerminal(h.stderr, h.stdin)

	pamEnv := loadPAMEnvironment(h.getenv)
	if h.testMode {
		user, err := terminal.Prompt("Enter PAM_USER:")
		if err != nil {
			return fmt.Errorf("read PAM_USER: %w", err)
		}

		pamEnv.User = strings.TrimSpace(user)
	}

	logger.Debug("=== SCRIPT START ===")
	logger.Debugf("PAM_USER: '%s'", pamEnv.User)
	logger.Debugf("PAM_SERVICE: '%s'", pamEnv.Service)
	logger.Debugf("PAM_RHOST: '%s'", pamEnv.RHost)
	logger.Debugf("PAM_TTY: '%s'", pamEnv.TTY)

	// pam_exec cannot hand a bound user back to PAM, so only test mode may start without one.
	if pamEnv.User == "" && !h.testMode {
		fmt.Fprintln(h.stderr, "Username not provided (PAM_USER not set)")

		return errors.New("username validation failed - PAM_USER is empty")
	}

	logger.Infof("Authentication attempt - User: %s, Service: %s, TTY: %s, RHost: %s",
		pamEnv.User, pamEnv.Service, pamEnv.TTY, pamEnv.RHost)

	client := provider.New(cfg.Endpoint(), cfg.ClientID, provider.WithLogger(logger))
	engine := deviceflow.New(client,
		deviceflow.WithLogger(logger),
		deviceflow.WithPrompt(cfg.Prompt),
		deviceflow.WithQRCode(cfg.QRCode),
	)

	result, err := engine.Authenticate(ctx, deviceflow.IdentityFromUser(pamEnv.User), terminal)
	if err != nil {
		fmt.Fprintln(h.stderr, "Authentication failed")

		return err
	}

	// check allowed users list if configured
	if !cfg.UserAllowed(result.Username) {
		logger.Warnf("User %s is not in the allowed users list", result.Username)
		fmt.Fprintln(h.stderr, "Authentication failed - user not allowed")

		return fmt.Errorf("user %s not allowed", result.Username)
	}

	if result.Bound {
		fmt.Fprintf(h.stdout, "Authenticated as %s\n", result.Username)
	}

	logger.Infof("Authentication successful for user: %s", result.Username)
	fmt.Fprintln(h.stderr, "Authentication successful!")

	return nil
}

func (h *helper) createConfig(args []string) int {
	createConfigFlags := flag.NewFlagSet("create-config", flag.ContinueOnError)
	createConfigFlags.SetOutput(h.stderr)
	pathToConfig := createConfigFlags.String("path", defaultConfigFilePath, "Path to save the configuration file")

	if err := createConfigFlags.Parse(args); err != nil {
		return 1
	}

	if err := config.WriteDefault(*pathToConfig); err != nil {
		fmt.Fprintf(h.stderr, "Failed to create config file: %v\n", err)

		return 1
	}

	fmt.Fprintf(h.stdout, "Configuration file template created at: %s\n", *pathToConfig)

	return 0
}

// setupSignalHandling fails the attempt when the client goes away. The returned
// function stops watching.
func setupSignalHandling(logger logrus.FieldLogger) func() {
	c := make(chan os.Signal, 1)
	done := make(chan struct{})

	signal.Notify(c, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGPIPE)

	go func() {
		select {
		case <-c:
			logger.Info("Authentication cancelled or client disconnected")
			os.Exit(1)
		case <-done:
		}
	}()

	return func() {
		signal.Stop(c)
		close(done)
	}
}
