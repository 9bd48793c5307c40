package shop

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"encoding/json"
)

// tokenResponse is the implicit-grant token payload.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Expires     int64  `json:"expires"` // unix timestamp
}

// token returns a bearer token, refreshing it via the implicit grant when the
// cached one is about to expire. Callers never see auth: every API call goes
// through here first.
func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpires.Add(-30*time.Second)) {
		return c.accessToken, nil
	}

	form := url.Values{
		"client_id":  {c.clientID},
		"grant_type": {"implicit"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/oauth/access_token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &APIError{Op: "authenticate", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &APIError{Op: "authenticate", Status: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &APIError{Op: "authenticate", Status: resp.StatusCode, Body: string(body)}
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", &APIError{Op: "authenticate", Status: resp.StatusCode, Err: err}
	}
	if tok.AccessToken == "" {
		return "", &APIError{Op: "authenticate", Status: resp.StatusCode, Body: "empty access_token"}
	}

	c.accessToken = tok.AccessToken
	c.tokenExpires = time.Unix(tok.Expires, 0)
	return c.accessToken, nil
}
