package playground

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const tokenPath = "/ims/token/v1"

// ErrToken is returned when the access token cannot be obtained.
var ErrToken = errors.New("token exchange failed")

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// TokenClient exchanges a stored authorization code for an access token.
type TokenClient struct {
	endpoint     string
	clientID     string
	clientSecret string
	code         string
	client       *http.Client
}

// NewTokenClient returns a client for the token endpoint below baseURL.
func NewTokenClient(baseURL, clientID, clientSecret, code string, client *http.Client) *TokenClient {
	if client == nil {
		client = &http.Client{}
	}

	return &TokenClient{
		endpoint:     strings.TrimRight(baseURL, "/") + tokenPath,
		clientID:     clientID,
		clientSecret: clientSecret,
		code:         code,
		client:       client,
	}
}

// Token performs an authorization_code grant and returns the access token.
// Errors carry the raw response body.
func (c *TokenClient) Token(ctx context.Context) (string, error) {
	data := url.Values{}
	data.Set("client_id", c.clientID)
	data.Set("client_secret", c.clientSecret)
	data.Set("code", c.code)
	data.Set("grant_type", "authorization_code")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return "", err
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrToken, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read response: %w", ErrToken, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("%w: %s: %s", ErrToken, resp.Status, body)
	}

	var token tokenResponse
	if err := json.Unmarshal(body, &token); err != nil || len(token.AccessToken) == 0 {
		return "", fmt.Errorf("%w: no access_token in response: %s", ErrToken, body)
	}

	return token.AccessToken, nil
}
