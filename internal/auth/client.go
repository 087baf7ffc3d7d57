package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/pzerone/webvirt-wizard/internal/apperr"
	"github.com/pzerone/webvirt-wizard/internal/flight"
	"github.com/pzerone/webvirt-wizard/internal/session"
)

const (
	loginPath = "/auth/login"
	grantType = "password"

	requiredMessage = "Username and password are required."
	rejectedMessage = "Login failed! Please check your credentials."
)

var ErrBusy = errors.New("login already in progress")

// Credentials are held only for the duration of one login attempt.
type Credentials struct {
	Username string `form:"username"`
	Password string `form:"password"`
}

func (c *Credentials) Clear() {
	c.Username = ""
	c.Password = ""
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Client exchanges operator credentials for a session token.
type Client struct {
	baseURL    string
	httpClient *http.Client
	store      session.Store
	gate       flight.Gate
}

func NewClient(baseURL string, httpClient *http.Client, store session.Store) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		store:      store,
	}
}

func (c *Client) State() flight.State {
	return c.gate.State()
}

// Login authenticates against the remote API and persists the issued
// session. creds is cleared before Login returns, whatever the outcome.
func (c *Client) Login(ctx context.Context, creds *Credentials) (session.Session, error) {
	defer creds.Clear()

	if creds.Username == "" || creds.Password == "" {
		return session.Session{}, apperr.New(apperr.Validation, requiredMessage)
	}

	if !c.gate.TryBegin() {
		return session.Session{}, ErrBusy
	}
	defer c.gate.End()

	form := url.Values{}
	form.Set("grant_type", grantType)
	form.Set("username", creds.Username)
	form.Set("password", creds.Password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+loginPath, strings.NewReader(form.Encode()))
	if err != nil {
		return session.Session{}, fmt.Errorf("failed to create request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Request-ID", requestID)

	slog.Info("Sending login request", "request_id", requestID, "url", req.URL.String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return session.Session{}, apperr.Wrap(apperr.Authentication, rejectedMessage, fmt.Errorf("failed to connect to server: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return session.Session{}, apperr.Wrap(apperr.Authentication, rejectedMessage, fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		slog.Warn("Login rejected", "request_id", requestID, "status_code", resp.StatusCode)
		return session.Session{}, apperr.Wrap(apperr.Authentication, rejectedMessage, fmt.Errorf("login failed (HTTP %d)", resp.StatusCode))
	}

	var token tokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return session.Session{}, apperr.Wrap(apperr.Authentication, rejectedMessage, fmt.Errorf("failed to parse response: %w", err))
	}
	if token.AccessToken == "" {
		return session.Session{}, apperr.Wrap(apperr.Authentication, rejectedMessage, errors.New("response carries no access_token"))
	}

	s := session.Session{Token: token.AccessToken, TokenType: token.TokenType}
	if err := c.store.Set(s); err != nil {
		return session.Session{}, fmt.Errorf("failed to persist session: %w", err)
	}

	slog.Info("Login succeeded", "request_id", requestID, "token_type", s.TokenType)
	return s, nil
}

// Logout forgets the persisted session.
func (c *Client) Logout() error {
	if err := c.store.Clear(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	slog.Info("Logged out")
	return nil
}
