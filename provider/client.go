// Package provider implements the server-to-server half of the authorization
// code flow: exchanging a code for an access token and fetching the user's
// profile with it.
package provider

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

var (
	// ErrNetwork covers transport failures talking to the token endpoint.
	ErrNetwork = errors.New("network_error")
	// ErrResponseParse means the token endpoint returned a non-JSON body.
	ErrResponseParse = errors.New("response_parse_error")
	// ErrMissingToken means the token response was valid JSON without an
	// access_token field.
	ErrMissingToken = errors.New("missing_token")
	// ErrUpstream covers any user-info failure, transport or non-2xx alike.
	ErrUpstream = errors.New("upstream_error")
)

// Client talks to the identity provider's token and user-info endpoints.
// There are no retries: any failure is fatal for the request that caused it.
type Client struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	RedirectURI  string

	// HTTPClient defaults to http.DefaultClient when nil.
	HTTPClient *http.Client
}

func New(baseURL, clientID, clientSecret, redirectURI string) *Client {
	return &Client{
		BaseURL:      strings.TrimRight(baseURL, "/"),
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURI:  redirectURI,
	}
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

// Exchange swaps an authorization code for an access token at the provider's
// token endpoint.
func (c *Client) Exchange(ctx context.Context, code string) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("client_id", c.ClientID)
	form.Set("client_secret", c.ClientSecret)
	form.Set("code", code)
	form.Set("redirect_uri", c.RedirectURI)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("%w: %v", ErrResponseParse, err)
	}
	token, _ := payload["access_token"].(string)
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}

// FetchProfile retrieves the raw user profile for an access token from the
// provider's user-info endpoint. No schema is enforced on the result.
func (c *Client) FetchProfile(ctx context.Context, accessToken string) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/userinfo", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	var profile map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return profile, nil
}
