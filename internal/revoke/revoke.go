// Package revoke tells the video-conferencing provider to invalidate an access token.
package revoke

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// Client posts RFC 7009 style revocations authenticated with the app's
// client credentials.
type Client struct {
	oauth   *oauth2.Config
	url     string
	timeout time.Duration
	http    *http.Client
}

func New(clientID, clientSecret, revokeURL string, timeout time.Duration) *Client {
	return &Client{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
		},
		url:     revokeURL,
		timeout: timeout,
		http:    &http.Client{Timeout: timeout},
	}
}

// ErrMalformed marks a provider answer that is not JSON.
var ErrMalformed = errors.New("malformed revocation response")

// StatusError is a non-2xx answer from the provider.
type StatusError struct {
	Code int
	Body map[string]any
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("revoke: provider answered %d", e.Code)
}

// Revoke returns the decoded provider response. The call is bounded by the
// client timeout even when ctx has no deadline.
func (c *Client) Revoke(ctx context.Context, tok *oauth2.Token) (map[string]any, error) {
	if tok == nil || tok.AccessToken == "" {
		return nil, fmt.Errorf("revoke: no access token")
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	form := url.Values{"token": {tok.AccessToken}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("revoke: %w", err)
	}
	req.SetBasicAuth(url.QueryEscape(c.oauth.ClientID), url.QueryEscape(c.oauth.ClientSecret))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("revoke: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("revoke: read body: %w", err)
	}
	body := map[string]any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &body); err != nil {
			return nil, fmt.Errorf("revoke: %w: %v", ErrMalformed, err)
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return body, &StatusError{Code: resp.StatusCode, Body: body}
	}
	return body, nil
}
