package tmdb

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/mmcdole/cinelist/internal/domain"
	"golang.org/x/term"
)

// Authentication methods selectable in config
const (
	AuthMethodApprove = "approve"
	AuthMethodLogin   = "login"
)

const defaultApproveTimeout = 5 * time.Minute

// AuthResult contains the result of a successful authentication
type AuthResult struct {
	SessionID string
	Account   domain.Account
}

// AuthFlow runs an interactive authentication against TMDB
type AuthFlow interface {
	Run(ctx context.Context) (*AuthResult, error)
}

// NewAuthFlow creates the flow for the configured method
func NewAuthFlow(method string, client *Client, authURL string, logger *slog.Logger) (AuthFlow, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if authURL == "" {
		authURL = DefaultAuthURL
	}

	switch method {
	case "", AuthMethodApprove:
		return &ApproveFlow{
			client:      client,
			authURL:     strings.TrimRight(authURL, "/"),
			out:         os.Stdout,
			timeout:     defaultApproveTimeout,
			interval:    time.Second,
			maxInterval: 5 * time.Second,
			logger:      logger,
		}, nil

	case AuthMethodLogin:
		return &LoginFlow{
			client:       client,
			in:           bufio.NewReader(os.Stdin),
			out:          os.Stdout,
			readPassword: readTerminalPassword,
			logger:       logger,
		}, nil

	default:
		return nil, fmt.Errorf("unknown auth method: %s", method)
	}
}

// finish exchanges an approved token for a session and loads the account
func finish(ctx context.Context, client *Client, sessionID string) (*AuthResult, error) {
	client.SetSession(sessionID, 0)
	acct, err := client.Account(ctx)
	if err != nil {
		client.SetSession("", 0)
		return nil, fmt.Errorf("loading account: %w", err)
	}
	client.SetSession(sessionID, acct.ID)
	return &AuthResult{SessionID: sessionID, Account: acct}, nil
}

// ApproveFlow asks the user to approve a request token in the browser and
// polls until the token can be exchanged for a session.
type ApproveFlow struct {
	client  *Client
	authURL string
	out     io.Writer
	logger  *slog.Logger

	timeout     time.Duration
	interval    time.Duration
	maxInterval time.Duration
}

// ApproveURL returns the page where the user approves the token
func (f *ApproveFlow) ApproveURL(token string) string {
	return fmt.Sprintf("%s/authenticate/%s", f.authURL, token)
}

// Run executes the browser approval flow
func (f *ApproveFlow) Run(ctx context.Context) (*AuthResult, error) {
	token, err := f.client.CreateRequestToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create request token: %w", err)
	}

	fmt.Fprintln(f.out)
	fmt.Fprintln(f.out, "TMDB Authentication")
	fmt.Fprintln(f.out, "━━━━━━━━━━━━━━━━━━━")
	fmt.Fprintln(f.out, "Open this page and approve access:")
	fmt.Fprintln(f.out)
	fmt.Fprintf(f.out, "  %s\n", f.ApproveURL(token))
	fmt.Fprintln(f.out)
	fmt.Fprintln(f.out, "Waiting for approval...")

	sessionID, err := f.waitForApproval(ctx, token)
	if err != nil {
		return nil, err
	}

	result, err := finish(ctx, f.client, sessionID)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(f.out, "\nAuthenticated as %s\n", result.Account.DisplayName())
	return result, nil
}

// waitForApproval polls for the session with exponential backoff
func (f *ApproveFlow) waitForApproval(ctx context.Context, token string) (string, error) {
	deadline := time.Now().Add(f.timeout)
	interval := f.interval

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(interval):
			sessionID, err := f.client.CreateSession(ctx, token)
			if err == nil {
				return sessionID, nil
			}
			if errors.Is(err, domain.ErrNotFound) {
				// Token expired or unknown
				return "", fmt.Errorf("request token rejected: %w", domain.ErrAuthFailed)
			}
			if !errors.Is(err, domain.ErrAuthFailed) {
				f.logger.Warn("session check error, retrying", "error", err)
			}
			interval = min(interval*2, f.maxInterval)
		}
	}

	return "", fmt.Errorf("approval timed out: %w", domain.ErrAuthFailed)
}

// LoginFlow authenticates with a TMDB username and password
type LoginFlow struct {
	client       *Client
	in           *bufio.Reader
	out          io.Writer
	readPassword func() (string, error)
	logger       *slog.Logger
}

func readTerminalPassword() (string, error) {
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Run prompts for credentials and creates a session
func (f *LoginFlow) Run(ctx context.Context) (*AuthResult, error) {
	fmt.Fprintln(f.out)
	fmt.Fprintln(f.out, "TMDB Login")
	fmt.Fprintln(f.out, "━━━━━━━━━━")

	fmt.Fprint(f.out, "Username: ")
	username, err := f.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && username != "") {
		return nil, fmt.Errorf("failed to read username: %w", err)
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}

	fmt.Fprint(f.out, "Password: ")
	password, err := f.readPassword()
	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}
	fmt.Fprintln(f.out)
	fmt.Fprintln(f.out, "Authenticating...")

	token, err := f.client.CreateRequestToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create request token: %w", err)
	}
	token, err = f.client.ValidateWithLogin(ctx, username, password, token)
	if err != nil {
		f.logger.Error("login rejected", "error", err, "username", username)
		return nil, fmt.Errorf("login failed: %w", err)
	}
	sessionID, err := f.client.CreateSession(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	result, err := finish(ctx, f.client, sessionID)
	if err != nil {
		return nil, err
	}
	fmt.Fprintln(f.out, "Authentication successful!")
	return result, nil
}
