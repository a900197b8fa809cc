package http

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"bankfeed-sync-go/internal/config"
	"bankfeed-sync-go/internal/logger"
)

func newTestServer(t *testing.T, cfg *config.Config) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	if cfg.JobsDir == "" {
		cfg.JobsDir = t.TempDir()
	}
	return NewServer(cfg, nil, logger.NewWithWriter(io.Discard))
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func sessionToken(t *testing.T, r *gin.Engine, password string) string {
	t.Helper()
	body := "{}"
	if password != "" {
		body = `{"password":"` + password + `"}`
	}
	w := doJSON(t, r, "POST", "/v1/session", "", body)
	require.Equal(t, 201, w.Code)
	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Token
}

func TestHealth(t *testing.T) {
	r := newTestServer(t, &config.Config{})
	w := doJSON(t, r, "GET", "/health", "", "")
	assert.Equal(t, 200, w.Code)
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	r := newTestServer(t, &config.Config{})

	w := doJSON(t, r, "POST", "/v1/credentials", "", `{"api_key":"k"}`)
	assert.Equal(t, 401, w.Code)

	w = doJSON(t, r, "POST", "/v1/credentials", "not-a-session", `{"api_key":"k"}`)
	assert.Equal(t, 401, w.Code)
}

func TestCreateSession_WithAccessPassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("letmein"), bcrypt.MinCost)
	require.NoError(t, err)
	r := newTestServer(t, &config.Config{AccessPasswordHash: string(hash)})

	w := doJSON(t, r, "POST", "/v1/session", "", `{"password":"wrong"}`)
	assert.Equal(t, 401, w.Code)

	token := sessionToken(t, r, "letmein")
	assert.NotEmpty(t, token)
}

func TestValidateCredentials_NoData(t *testing.T) {
	r := newTestServer(t, &config.Config{})
	token := sessionToken(t, r, "")

	w := doJSON(t, r, "GET", "/v1/credentials/validate", token, "")
	require.Equal(t, 200, w.Code)
	assert.Contains(t, w.Body.String(), `"nodata"`)
}

func TestValidateCredentials_Authenticated(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"access_token":"tok","expires_in":3600}`))
	}))
	defer tokenSrv.Close()

	r := newTestServer(t, &config.Config{AggregatorAuthURL: tokenSrv.URL})
	token := sessionToken(t, r, "")

	w := doJSON(t, r, "POST", "/v1/credentials", token, `{"api_key":"k"}`)
	require.Equal(t, 200, w.Code)

	w = doJSON(t, r, "GET", "/v1/credentials/validate", token, "")
	require.Equal(t, 200, w.Code)
	assert.Contains(t, w.Body.String(), `"authenticated"`)
}

func TestValidateCredentials_TokenExchangeFails(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusForbidden)
	}))
	defer tokenSrv.Close()

	r := newTestServer(t, &config.Config{AggregatorAuthURL: tokenSrv.URL})
	token := sessionToken(t, r, "")

	w := doJSON(t, r, "POST", "/v1/credentials", token, `{"api_key":"k"}`)
	require.Equal(t, 200, w.Code)

	w = doJSON(t, r, "GET", "/v1/credentials/validate", token, "")
	require.Equal(t, 200, w.Code)
	assert.Contains(t, w.Body.String(), `"error"`)
}

func TestCreateJob_ValidatesConfiguration(t *testing.T) {
	r := newTestServer(t, &config.Config{InstallIdentity: "https://ledger.local"})
	token := sessionToken(t, r, "")

	w := doJSON(t, r, "POST", "/v1/jobs", token, `{"accounts":{"acc-1":"twelve"}}`)
	assert.Equal(t, 422, w.Code)

	w = doJSON(t, r, "POST", "/v1/jobs", token, `{"accounts":{"acc-1":12}}`)
	require.Equal(t, 201, w.Code)

	var job struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &job))
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, "new", job.Status)

	w = doJSON(t, r, "GET", "/v1/jobs/"+job.ID, token, "")
	assert.Equal(t, 200, w.Code)

	w = doJSON(t, r, "GET", "/v1/jobs/unknown", token, "")
	assert.Equal(t, 404, w.Code)
}
