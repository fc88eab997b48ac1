// Package oauth performs the out-of-band Discord OAuth2 authorization-code
// exchange used to upgrade an IPC session to an authenticated one.
//
// The IPC channel itself never carries OAuth2 traffic — spec.md's engine
// only ever sends the AUTHORIZE command and waits for the short-lived
// authorization code it returns. Turning that code into an access token
// means a separate HTTPS round trip to Discord's token endpoint, which is
// what this package performs. The resulting [Token] is caller-owned: no
// package-level client state is kept beyond the shared HTTP client, and no
// token is ever cached here. Persisting a [Token] across process restarts is
// [tools.zach/dev/discordrpc/internal/tokencache]'s job.
package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

const authorizeEndpoint = "https://discord.com/api/oauth2/authorize"

// tokenEndpoint is a var, not a const, so tests can redirect it at a local
// httptest server.
var tokenEndpoint = "https://discord.com/api/oauth2/token"

// httpClient is a lazily-initialized retryablehttp client shared across all
// exchanges issued by this package.
var (
	httpClient     *retryablehttp.Client
	httpClientOnce sync.Once
)

func getHTTPClient() *retryablehttp.Client {
	httpClientOnce.Do(func() {
		httpClient = retryablehttp.NewClient()
		httpClient.RetryMax = 2
		httpClient.HTTPClient.Timeout = 10 * time.Second
		httpClient.Logger = nil // suppress retryablehttp's default logging
	})
	return httpClient
}

// ///////////////////////////////////////////////
// Token
// ///////////////////////////////////////////////

// Token holds the result of a completed authorization-code exchange.
// It is a plain value; callers own its lifetime and are responsible for
// persisting it (see internal/tokencache) and refreshing it before ExpiresAt.
type Token struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
	Scopes       []string  `json:"scopes"`
}

// Expired reports whether the token's expiry has passed, with a 30-second
// margin to absorb clock skew and in-flight request latency.
func (t Token) Expired() bool {
	return !t.ExpiresAt.After(time.Now().Add(30 * time.Second))
}

// ///////////////////////////////////////////////
// Authorize URL
// ///////////////////////////////////////////////

// AuthorizeURL builds the browser-facing Discord OAuth2 authorize URL for
// clientID and scopes. The caller is responsible for opening it and for
// running a redirect listener to capture the resulting "code" parameter.
func AuthorizeURL(clientID, redirectURI string, scopes []string) string {
	v := url.Values{}
	v.Set("client_id", clientID)
	v.Set("redirect_uri", redirectURI)
	v.Set("response_type", "code")
	v.Set("scope", strings.Join(scopes, " "))
	return authorizeEndpoint + "?" + v.Encode()
}

// ///////////////////////////////////////////////
// Exchange
// ///////////////////////////////////////////////

// tokenResponse is the wire shape of Discord's token endpoint response.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	Scope        string `json:"scope"`
}

// Exchange posts an authorization-code grant to Discord's token endpoint and
// returns the resulting [Token]. clientSecret is required for confidential
// clients; pass "" for a public client using PKCE elsewhere in the flow.
func Exchange(ctx context.Context, clientID, clientSecret, code, redirectURI string) (*Token, error) {
	form := url.Values{}
	form.Set("client_id", clientID)
	if clientSecret != "" {
		form.Set("client_secret", clientSecret)
	}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", redirectURI)

	return doTokenRequest(ctx, form)
}

// Refresh exchanges a refresh token for a new [Token].
func Refresh(ctx context.Context, clientID, clientSecret, refreshToken string) (*Token, error) {
	form := url.Values{}
	form.Set("client_id", clientID)
	if clientSecret != "" {
		form.Set("client_secret", clientSecret)
	}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	return doTokenRequest(ctx, form)
}

// doTokenRequest posts form to the token endpoint and decodes the response.
func doTokenRequest(ctx context.Context, form url.Values) (*Token, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, tokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("building token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := getHTTPClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return nil, fmt.Errorf("reading token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("parsing token response: %w", err)
	}

	var scopes []string
	if tr.Scope != "" {
		scopes = strings.Split(tr.Scope, " ")
	}

	return &Token{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		TokenType:    tr.TokenType,
		ExpiresAt:    time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second),
		Scopes:       scopes,
	}, nil
}
