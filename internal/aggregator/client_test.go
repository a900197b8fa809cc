package aggregator

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient wires a client and token manager against a test mux that
// already answers the token exchange.
func newTestClient(t *testing.T, mux *http.ServeMux) (*Client, *httptest.Server) {
	t.Helper()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"access_token":"tok","expires_in":3600}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	tokens := NewTokenManager(NewCredentials("api-key"), srv.URL+"/token", "3.0")
	return NewClient(srv.URL, "3.0", tokens), srv
}

func TestCreateUser_OmitsEmptyFields(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/users", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "3.0", r.Header.Get("aggregator-version"))

		body, _ := io.ReadAll(r.Body)
		var payload map[string]string
		require.NoError(t, json.Unmarshal(body, &payload))
		assert.Equal(t, map[string]string{"email": "me@example.com"}, payload,
			"empty mobile must be omitted, not sent as an empty string")

		w.Write([]byte(`{"id":"user-1","email":"me@example.com"}`))
	})

	client, _ := newTestClient(t, mux)
	user, err := client.CreateUser(context.Background(), "me@example.com", "")
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.ID)
}

func TestGetUser(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/users/user-1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"user-1","email":"me@example.com"}`))
	})

	client, _ := newTestClient(t, mux)
	user, err := client.GetUser(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "me@example.com", user.Email)
}

func TestCreateAuthLink(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/users/user-1/auth_link", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"links":{"public":"https://connect.example.com/abc"}}`))
	})

	client, _ := newTestClient(t, mux)
	link, err := client.CreateAuthLink(context.Background(), "user-1", "")
	require.NoError(t, err)
	assert.Equal(t, "https://connect.example.com/abc", link)
}

func TestCreateAuthLink_MissingPublicLink(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/users/user-1/auth_link", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"links":{}}`))
	})

	client, _ := newTestClient(t, mux)
	_, err := client.CreateAuthLink(context.Background(), "user-1", "")
	assert.Error(t, err)
}

func TestListAccounts(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/users/user-1/accounts", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"id":"acc-1","name":"Everyday","currency":"AUD","class":{"type":"transaction"}}]}`))
	})

	client, _ := newTestClient(t, mux)
	accounts, err := client.ListAccounts(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "Everyday", accounts[0].Name)
	assert.Equal(t, "transaction", accounts[0].Class.Type)
}

func TestListAccounts_EmptyDataIsValid(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/users/user-1/accounts", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[]}`))
	})

	client, _ := newTestClient(t, mux)
	accounts, err := client.ListAccounts(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Empty(t, accounts)
}

func TestListTransactions_MissingDataKeyIsProtocolError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/users/user-1/transactions", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"links":{}}`))
	})

	client, _ := newTestClient(t, mux)
	_, err := client.ListTransactions(context.Background(), "user-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing data array")
}

func TestDo_NonSuccessIsRemoteError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/users/user-1/transactions", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error":"maintenance"}`))
	})

	client, _ := newTestClient(t, mux)
	_, err := client.ListTransactions(context.Background(), "user-1")

	var remoteErr *RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, http.StatusServiceUnavailable, remoteErr.Status)
	assert.Equal(t, "GET /users/{id}/transactions", remoteErr.Endpoint)
	assert.Contains(t, remoteErr.Body, "maintenance")
}

func TestClient_TokenFailurePropagatesAsAuthError(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	})

	tokens := NewTokenManager(NewCredentials("bad-key"), srv.URL+"/token", "3.0")
	client := NewClient(srv.URL, "3.0", tokens)

	_, err := client.ListAccounts(context.Background(), "user-1")
	var authErr *AuthError
	assert.ErrorAs(t, err, &authErr)
}
