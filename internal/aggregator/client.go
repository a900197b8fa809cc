package aggregator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"bankfeed-sync-go/internal/logger"
)

// Client issues authenticated calls against the aggregator API. It holds no
// response state; every call fetches a token from the token manager first.
type Client struct {
	baseURL string
	version string
	tokens  *TokenManager
	client  *http.Client
}

func NewClient(baseURL, version string, tokens *TokenManager) *Client {
	return &Client{
		baseURL: baseURL,
		version: version,
		tokens:  tokens,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set(versionHeader, c.version)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// do runs the request and decodes a success response into out. A non-2xx
// response is logged with its body and returned as a *RemoteError.
func (c *Client) do(ctx context.Context, req *http.Request, endpoint string, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		log := logger.FromContext(ctx)
		log.Error().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Str("body", string(body)).
			Msg("aggregator call failed")
		return &RemoteError{Endpoint: endpoint, Status: resp.StatusCode, Body: string(body)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decoding response: %w", endpoint, err)
	}
	return nil
}

// CreateUser registers a new remote user. Empty email/mobile are omitted
// entirely; the remote API treats empty strings as present but invalid.
func (c *Client) CreateUser(ctx context.Context, email, mobile string) (*User, error) {
	body := map[string]string{}
	if email != "" {
		body["email"] = email
	}
	if mobile != "" {
		body["mobile"] = mobile
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/users", body)
	if err != nil {
		return nil, err
	}

	var u User
	if err := c.do(ctx, req, "POST /users", &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) GetUser(ctx context.Context, userID string) (*User, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/users/"+userID, nil)
	if err != nil {
		return nil, err
	}

	var u User
	if err := c.do(ctx, req, "GET /users/{id}", &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateAuthLink asks the aggregator for a bank-linking URL for the given
// user. A mobile number scopes the link to SMS verification.
func (c *Client) CreateAuthLink(ctx context.Context, userID, mobile string) (string, error) {
	body := map[string]string{}
	if mobile != "" {
		body["mobile"] = mobile
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/users/"+userID+"/auth_link", body)
	if err != nil {
		return "", err
	}

	var out struct {
		Links struct {
			Public string `json:"public"`
		} `json:"links"`
	}
	if err := c.do(ctx, req, "POST /users/{id}/auth_link", &out); err != nil {
		return "", err
	}
	if out.Links.Public == "" {
		return "", fmt.Errorf("auth link response missing links.public")
	}
	return out.Links.Public, nil
}

// ListAccounts returns the user's linked bank accounts. A response without a
// data array is a protocol error, not an empty result.
func (c *Client) ListAccounts(ctx context.Context, userID string) ([]Account, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/users/"+userID+"/accounts", nil)
	if err != nil {
		return nil, err
	}

	var out struct {
		Data *[]Account `json:"data"`
	}
	if err := c.do(ctx, req, "GET /users/{id}/accounts", &out); err != nil {
		return nil, err
	}
	if out.Data == nil {
		return nil, fmt.Errorf("accounts response missing data array")
	}
	return *out.Data, nil
}

// ListTransactions returns all transactions visible for the user.
func (c *Client) ListTransactions(ctx context.Context, userID string) ([]Transaction, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/users/"+userID+"/transactions", nil)
	if err != nil {
		return nil, err
	}

	var out struct {
		Data *[]Transaction `json:"data"`
	}
	if err := c.do(ctx, req, "GET /users/{id}/transactions", &out); err != nil {
		return nil, err
	}
	if out.Data == nil {
		return nil, fmt.Errorf("transactions response missing data array")
	}
	return *out.Data, nil
}
