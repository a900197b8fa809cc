package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"bankfeed-sync-go/internal/aggregator"
	"bankfeed-sync-go/internal/config"
	"bankfeed-sync-go/internal/jobs"
	"bankfeed-sync-go/internal/ledger"
	"bankfeed-sync-go/internal/link"
	"bankfeed-sync-go/internal/session"
	syncpkg "bankfeed-sync-go/internal/sync"
)

type Server struct {
	cfg      *config.Config
	db       *gorm.DB
	sessions *session.Registry
	jobs     *jobs.Repository
	log      zerolog.Logger
}

func NewServer(cfg *config.Config, db *gorm.DB, log zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors(cfg))
	r.Use(logging(log))

	sessions := session.NewRegistry(func() (*aggregator.Credentials, *aggregator.TokenManager) {
		creds := aggregator.NewCredentials(cfg.AggregatorAPIKey)
		tokens := aggregator.NewTokenManager(creds, cfg.AggregatorAuthURL, cfg.AggregatorVersion)
		return creds, tokens
	})

	s := &Server{
		cfg:      cfg,
		db:       db,
		sessions: sessions,
		jobs:     jobs.NewRepository(cfg.JobsDir),
		log:      log,
	}

	r.POST("/v1/session", s.createSession)

	authorized := r.Group("/v1")
	authorized.Use(SessionMiddleware(sessions))
	{
		authorized.POST("/credentials", s.saveCredentials)
		authorized.GET("/credentials/validate", s.validateCredentials)
		authorized.POST("/connect", s.connect)
		authorized.GET("/accounts", s.listAccounts)
		authorized.POST("/jobs", s.createJob)
		authorized.GET("/jobs/:id", s.getJob)
		authorized.POST("/jobs/:id/sync", s.runSync)
	}

	r.GET("/health", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })
	return r
}

// feedClient builds the per-session aggregator client; tokens are scoped to
// the session, the client itself is stateless.
func (s *Server) feedClient(sess *session.Session) *aggregator.Client {
	return aggregator.NewClient(s.cfg.AggregatorAPIURL, s.cfg.AggregatorVersion, sess.Tokens)
}

func (s *Server) linkManager(sess *session.Session) *link.Manager {
	return link.NewManager(link.NewGormStore(s.db), s.feedClient(sess))
}

// respondError maps the error taxonomy onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	var authErr *aggregator.AuthError
	var remoteErr *aggregator.RemoteError

	switch {
	case errors.As(err, &authErr):
		c.JSON(401, gin.H{"error": "authentication_failed", "detail": authErr.Error()})
	case errors.As(err, &remoteErr):
		c.JSON(502, gin.H{"error": "aggregator_error", "detail": remoteErr.Error()})
	case errors.Is(err, link.ErrNoLinkedUser):
		c.JSON(409, gin.H{"error": "no_linked_user", "detail": "connect your account first"})
	default:
		c.JSON(500, gin.H{"error": err.Error()})
	}
}

// POST /v1/session
func (s *Server) createSession(c *gin.Context) {
	var input struct {
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&input); err != nil && err != io.EOF {
		c.JSON(400, gin.H{"error": "invalid_request"})
		return
	}

	if s.cfg.AccessPasswordHash != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(s.cfg.AccessPasswordHash), []byte(input.Password)); err != nil {
			c.JSON(401, gin.H{"error": "invalid_password"})
			return
		}
	}

	sess := s.sessions.Create()
	c.JSON(201, gin.H{"token": sess.ID})
}

// POST /v1/credentials
func (s *Server) saveCredentials(c *gin.Context) {
	var input struct {
		APIKey string `json:"api_key" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	currentSession(c).Credentials.SetAPIKey(input.APIKey)
	c.JSON(200, gin.H{"message": "credentials_saved"})
}

// GET /v1/credentials/validate
func (s *Server) validateCredentials(c *gin.Context) {
	sess := currentSession(c)

	if !sess.Credentials.HasAPIKey() {
		c.JSON(200, gin.H{"status": "nodata"})
		return
	}
	if sess.Tokens.HasValidAccessToken() {
		c.JSON(200, gin.H{"status": "authenticated"})
		return
	}
	if err := sess.Tokens.Refresh(c.Request.Context()); err != nil {
		c.JSON(200, gin.H{"status": "error", "detail": err.Error()})
		return
	}
	c.JSON(200, gin.H{"status": "authenticated"})
}

// POST /v1/connect
func (s *Server) connect(c *gin.Context) {
	var input struct {
		Email  string `json:"email"`
		Mobile string `json:"mobile"`
	}
	if err := c.ShouldBindJSON(&input); err != nil && err != io.EOF {
		c.JSON(400, gin.H{"error": "invalid_request"})
		return
	}

	ctx := c.Request.Context()
	sess := currentSession(c)
	client := s.feedClient(sess)
	manager := s.linkManager(sess)

	userID, err := manager.LinkedUserID(ctx, s.cfg.InstallIdentity)
	if err != nil {
		respondError(c, err)
		return
	}
	if userID == "" {
		userID, err = manager.CreateLinkedUser(ctx, s.cfg.InstallIdentity, input.Email, input.Mobile)
		if err != nil {
			respondError(c, err)
			return
		}
	}

	authLink, err := client.CreateAuthLink(ctx, userID, input.Mobile)
	if err != nil {
		respondError(c, err)
		return
	}

	clientToken, err := sess.Tokens.ClientToken(ctx, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(200, gin.H{
		"user_id":      userID,
		"auth_link":    authLink,
		"client_token": clientToken,
	})
}

// GET /v1/accounts
func (s *Server) listAccounts(c *gin.Context) {
	ctx := c.Request.Context()
	sess := currentSession(c)

	userID, err := s.linkManager(sess).LinkedUserID(ctx, s.cfg.InstallIdentity)
	if err != nil {
		respondError(c, err)
		return
	}
	if userID == "" {
		respondError(c, link.ErrNoLinkedUser)
		return
	}

	accounts, err := s.feedClient(sess).ListAccounts(ctx, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]gin.H, 0, len(accounts))
	for _, acc := range accounts {
		name := acc.Name
		if name == "" {
			name = acc.AccountNo
		}
		if name == "" {
			name = "Unknown account"
		}
		accountType := acc.Class.Type
		if accountType == "" {
			accountType = "asset"
		}
		identifier := acc.AccountNo
		if identifier == "" {
			identifier = acc.ID
		}
		currency := acc.Currency
		if currency == "" {
			currency = "AUD"
		}
		out = append(out, gin.H{
			"id":         acc.ID,
			"name":       name,
			"currency":   currency,
			"balance":    acc.Balance,
			"type":       accountType,
			"identifier": identifier,
		})
	}
	c.JSON(200, gin.H{"data": out})
}

// POST /v1/jobs
func (s *Server) createJob(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(400, gin.H{"error": "invalid_request"})
		return
	}

	details, err := jobs.ValidateConfiguration(raw)
	if err != nil {
		c.JSON(500, gin.H{"error": "validation_failed"})
		return
	}
	if len(details) > 0 {
		c.JSON(422, gin.H{"error": "configuration_invalid", "details": details})
		return
	}

	var cfg jobs.Configuration
	if err := json.Unmarshal(raw, &cfg); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	job := jobs.New(s.cfg.InstallIdentity, cfg)
	if err := s.jobs.Save(job); err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}
	c.JSON(201, job)
}

// GET /v1/jobs/:id
func (s *Server) getJob(c *gin.Context) {
	job, err := s.jobs.Load(c.Param("id"))
	if err != nil {
		c.JSON(404, gin.H{"error": "job_not_found"})
		return
	}
	c.JSON(200, job)
}

// POST /v1/jobs/:id/sync
func (s *Server) runSync(c *gin.Context) {
	job, err := s.jobs.Load(c.Param("id"))
	if err != nil {
		c.JSON(404, gin.H{"error": "job_not_found"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), time.Duration(s.cfg.ReqTimeoutSec)*time.Second)
	defer cancel()

	sess := currentSession(c)
	client := s.feedClient(sess)

	processor := syncpkg.NewTransactionProcessor(s.linkManager(sess), client, job.InstallIdentity)
	generator := syncpkg.NewTransactionGenerator(
		job.Configuration,
		ledger.New(s.cfg.LedgerURL, s.cfg.LedgerAccessToken),
	)
	routine := syncpkg.NewRoutineManager(job, s.jobs, processor, generator)

	job.SetStatus(jobs.StatusRunning)
	transactions, err := routine.Start(ctx)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(200, gin.H{
		"job_id":       job.ID,
		"count":        len(transactions),
		"transactions": transactions,
	})
}
