package oauth

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// tokenResponse is the provider's token endpoint payload.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
}

// expiresAt converts the relative expires_in into an absolute instant.
func (t *tokenResponse) expiresAt(now time.Time) *time.Time {
	if t.ExpiresIn <= 0 {
		return nil
	}
	at := now.Add(time.Duration(t.ExpiresIn) * time.Second)
	return &at
}

// tokenClient performs code and refresh-token exchanges against a provider
// token endpoint. Every call is bounded by the client's timeout.
type tokenClient struct {
	http *http.Client
}

func newTokenClient(timeout time.Duration) *tokenClient {
	return &tokenClient{http: &http.Client{Timeout: timeout}}
}

func (c *tokenClient) exchangeCode(ctx context.Context, tokenURL, clientID, clientSecret, code, redirectURI string) (*tokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", clientID)
	form.Set("client_secret", clientSecret)
	form.Set("redirect_uri", redirectURI)
	return c.post(ctx, tokenURL, form)
}

func (c *tokenClient) exchangeRefreshToken(ctx context.Context, tokenURL, clientID, clientSecret, refreshToken string) (*tokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	form.Set("client_id", clientID)
	form.Set("client_secret", clientSecret)
	return c.post(ctx, tokenURL, form)
}

func (c *tokenClient) post(ctx context.Context, tokenURL string, form url.Values) (*tokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &ProviderError{Reason: "build token request", Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &ProviderError{Reason: "token endpoint unreachable", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &ProviderError{Reason: "read token response", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		reason := "token endpoint returned " + resp.Status
		// Providers return {"error": "..."} on failure; surface the code
		// without echoing the full body.
		var errBody struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &errBody) == nil && errBody.Error != "" {
			reason += ": " + errBody.Error
		}
		return nil, &ProviderError{StatusCode: resp.StatusCode, Reason: reason}
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return nil, &ProviderError{StatusCode: resp.StatusCode, Reason: "malformed token response", Err: err}
	}
	if tok.AccessToken == "" {
		return nil, &ProviderError{StatusCode: resp.StatusCode, Reason: "token response missing access_token"}
	}
	return &tok, nil
}
