package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bankfeed-sync-go/internal/logger"
)

// Account is a local ledger asset account, the target side of the account
// mapping.
type Account struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Currency string `json:"currency_code"`
}

// Client talks to the local ledger's API. The pipeline only needs the asset
// account list; everything else about the ledger stays out of scope.
type Client struct {
	baseURL     string
	accessToken string
	client      *http.Client
}

func New(baseURL, accessToken string) *Client {
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		accessToken: accessToken,
		client:      &http.Client{Timeout: 30 * time.Second},
	}
}

// Accounts returns the ledger's asset accounts. Records whose id cannot be
// parsed are dropped with a warning rather than failing the listing.
func (c *Client) Accounts(ctx context.Context) ([]Account, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/accounts?type=asset", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("listing ledger accounts: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ledger accounts request returned status %d: %s", resp.StatusCode, string(body))
	}

	var list struct {
		Data []struct {
			ID         string `json:"id"`
			Attributes struct {
				Name         string `json:"name"`
				Type         string `json:"type"`
				CurrencyCode string `json:"currency_code"`
			} `json:"attributes"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("decoding ledger accounts: %w", err)
	}

	log := logger.FromContext(ctx)
	accounts := make([]Account, 0, len(list.Data))
	for _, item := range list.Data {
		id, err := strconv.ParseInt(item.ID, 10, 64)
		if err != nil {
			log.Warn().Str("id", item.ID).Msg("skipping ledger account with non-numeric id")
			continue
		}
		accounts = append(accounts, Account{
			ID:       id,
			Name:     item.Attributes.Name,
			Type:     item.Attributes.Type,
			Currency: item.Attributes.CurrencyCode,
		})
	}
	return accounts, nil
}
