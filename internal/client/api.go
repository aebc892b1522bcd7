// Package client implements the HTTP client for the authkeeper API used by
// the authctl command-line tool.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"authkeeper/internal/common"
)

// ErrUnavailable indicates the server could not be reached at all, as opposed
// to the server rejecting the request.
var ErrUnavailable = errors.New("server unavailable")

// TokenPair mirrors the token pair returned by the auth endpoints.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Identity mirrors the /api/me response.
type Identity struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Session mirrors the /api/session response.
type Session struct {
	ExpiresAt time.Time `json:"expiresAt"`
}

type apiError struct {
	Message string `json:"message"`
}

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Register creates an account and returns the first token pair. The password
// is accepted as a byte slice so the caller can wipe it afterwards.
func (c *Client) Register(ctx context.Context, email string, password []byte) (*TokenPair, error) {
	return c.postForPair(ctx, "/api/auth/register", "",
		map[string]string{"email": email, "password": string(password)})
}

// Login authenticates with email and password and returns a token pair.
func (c *Client) Login(ctx context.Context, email string, password []byte) (*TokenPair, error) {
	return c.postForPair(ctx, "/api/auth/login", "",
		map[string]string{"email": email, "password": string(password)})
}

// Refresh exchanges a refresh token for a new pair. The presented token is
// consumed whether or not the caller stores the replacement.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	return c.postForPair(ctx, "/api/auth/refresh", "",
		map[string]string{"refreshToken": refreshToken})
}

// Logout revokes the given refresh token.
func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	_, err := c.do(ctx, http.MethodPost, "/api/auth/logout", "",
		map[string]string{"refreshToken": refreshToken})
	return err
}

// LogoutAll revokes every refresh token belonging to the authenticated user.
func (c *Client) LogoutAll(ctx context.Context, accessToken string) error {
	_, err := c.do(ctx, http.MethodPost, "/api/auth/logout-all", accessToken, nil)
	return err
}

// Whoami returns the identity embedded in the access token.
func (c *Client) Whoami(ctx context.Context, accessToken string) (*Identity, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/me", accessToken, nil)
	if err != nil {
		return nil, err
	}

	var identity Identity
	if err := json.Unmarshal(body, &identity); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &identity, nil
}

// ActiveSession returns the expiry of the user's most recent live session.
func (c *Client) ActiveSession(ctx context.Context, accessToken string) (*Session, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/session", accessToken, nil)
	if err != nil {
		return nil, err
	}

	var session Session
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &session, nil
}

func (c *Client) postForPair(ctx context.Context, path, accessToken string, payload any) (*TokenPair, error) {
	body, err := c.do(ctx, http.MethodPost, path, accessToken, payload)
	if err != nil {
		return nil, err
	}

	var pair TokenPair
	if err := json.Unmarshal(body, &pair); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &pair, nil
}

func (c *Client) do(ctx context.Context, method, path, accessToken string, payload any) ([]byte, error) {
	var reqBody bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&reqBody).Encode(payload); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if accessToken != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerSchemePrefix+accessToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, err
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, statusError(resp.StatusCode, buf.Bytes())
	}

	return buf.Bytes(), nil
}

func statusError(status int, body []byte) error {
	var apiErr apiError
	msg := http.StatusText(status)
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
		msg = apiErr.Message
	}

	switch status {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", common.ErrorUnauthorized, msg)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", common.ErrorNotFound, msg)
	default:
		return fmt.Errorf("server error (%d): %s", status, msg)
	}
}
