package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/UsamaUmmsi/portfolio/backend/internal/auth"
	"github.com/UsamaUmmsi/portfolio/backend/internal/intake"
	"github.com/UsamaUmmsi/portfolio/backend/internal/metrics"
	"github.com/UsamaUmmsi/portfolio/backend/internal/portfolio"
	"github.com/UsamaUmmsi/portfolio/backend/internal/submissions"
	"github.com/UsamaUmmsi/portfolio/backend/internal/view"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	adminSubjectContextKey = "portfolio_admin_subject"
	requestIDContextKey    = "portfolio_request_id"

	requestIDHeader          = "X-Request-ID"
	maxRequestIDLength       = 128
	defaultHeartbeatInterval = 15 * time.Second
)

var (
	errMissingIntake        = errors.New("intake dependency required")
	errMissingSubmissions   = errors.New("submission source dependency required")
	errMissingTokenManager  = errors.New("token manager dependency required")
	errMissingPasswords     = errors.New("password verifier dependency required")
	errInvalidAuthorization = errors.New("authorization header missing or invalid")
)

// ContactIntake accepts contact form drafts.
type ContactIntake interface {
	Submit(ctx context.Context, draft intake.Draft) (submissions.Submission, error)
}

// AdminTokenManager issues and validates admin session tokens.
type AdminTokenManager interface {
	IssueAdminToken() (string, int64, error)
	ValidateToken(token string) (string, error)
}

// PasswordChecker verifies the admin password.
type PasswordChecker interface {
	Verify(password string) error
}

// Dependencies wires the HTTP surface.
type Dependencies struct {
	Intake       ContactIntake
	Submissions  view.Source
	Events       view.Subscriber
	Topic        string
	TokenManager AdminTokenManager
	Passwords    PasswordChecker
	Catalog      *portfolio.Catalog
	Logger       *zap.Logger

	PollInterval      time.Duration
	HeartbeatInterval time.Duration
	SuccessDisplay    time.Duration
	Location          *time.Location
	AllowedOrigins    []string
}

// NewHTTPHandler builds the gin engine serving the public and admin routes.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Intake == nil {
		return nil, errMissingIntake
	}
	if deps.Submissions == nil {
		return nil, errMissingSubmissions
	}
	if deps.TokenManager == nil {
		return nil, errMissingTokenManager
	}
	if deps.Passwords == nil {
		return nil, errMissingPasswords
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	heartbeat := deps.HeartbeatInterval
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeatInterval
	}
	successDisplay := deps.SuccessDisplay
	if successDisplay <= 0 {
		successDisplay = intake.DefaultSuccessDisplay
	}
	location := deps.Location
	if location == nil {
		location = time.Local
	}
	topic := deps.Topic
	if topic == "" {
		topic = submissions.DefaultKey
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestIDMiddleware())
	router.Use(accessLogMiddleware(logger))
	router.Use(metrics.GinMiddleware())
	router.Use(corsMiddleware(deps.AllowedOrigins))

	handler := &httpHandler{
		intake:       deps.Intake,
		source:       deps.Submissions,
		events:       deps.Events,
		topic:        topic,
		tokens:       deps.TokenManager,
		passwords:    deps.Passwords,
		catalog:      deps.Catalog,
		logger:       logger,
		pollInterval: deps.PollInterval,
		heartbeat:    heartbeat,
		location:     location,

		successDisplay: successDisplay,
	}

	router.GET("/healthz", handleHealth)
	router.GET("/metrics", metrics.Handler())
	router.POST("/contact", handler.handleContact)
	router.POST("/admin/session", handler.handleAdminSession)
	if handler.catalog != nil {
		router.GET("/projects", handler.handleProjects)
		router.GET("/skills", handler.handleSkills)
	}

	admin := router.Group("/admin")
	admin.Use(handler.authorizeRequest)
	admin.GET("/submissions", handler.handleListSubmissions)
	admin.GET("/submissions/stream", handler.handleSubmissionStream)
	admin.DELETE("/submissions/:id", handler.handleDeleteSubmission)

	return router, nil
}

type httpHandler struct {
	intake    ContactIntake
	source    view.Source
	events    view.Subscriber
	topic     string
	tokens    AdminTokenManager
	passwords PasswordChecker
	catalog   *portfolio.Catalog
	logger    *zap.Logger

	pollInterval time.Duration
	heartbeat    time.Duration
	location     *time.Location

	successDisplay time.Duration
}

func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type sessionRequestPayload struct {
	Password string `json:"password"`
}

type sessionResponsePayload struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

func (h *httpHandler) handleAdminSession(c *gin.Context) {
	var request sessionRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || request.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	if err := h.passwords.Verify(request.Password); err != nil {
		if errors.Is(err, auth.ErrInvalidPassword) {
			h.logger.Info("admin password rejected", zap.String("request_id", c.GetString(requestIDContextKey)))
		} else {
			h.logger.Error("admin password verification failed", zap.Error(err))
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	token, expiresIn, err := h.tokens.IssueAdminToken()
	if err != nil {
		h.logger.Error("failed to issue admin token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token_issue_failed"})
		return
	}

	c.JSON(http.StatusOK, sessionResponsePayload{
		AccessToken: token,
		ExpiresIn:   expiresIn,
		TokenType:   "Bearer",
	})
}

// authorizeRequest accepts a Bearer header, or an access_token query
// parameter for EventSource clients that cannot set headers.
func (h *httpHandler) authorizeRequest(c *gin.Context) {
	token, ok := bearerToken(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	subject, err := h.tokens.ValidateToken(token)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			h.logger.Info("token validation failed", zap.Error(err))
		} else {
			h.logger.Warn("token validation failed", zap.Error(err))
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Set(adminSubjectContextKey, subject)
	c.Next()
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header != "" {
		if !strings.HasPrefix(header, "Bearer ") {
			return "", false
		}
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		return token, token != ""
	}
	token := strings.TrimSpace(c.Query("access_token"))
	return token, token != ""
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Authorization", "Content-Type", requestIDHeader},
		ExposeHeaders: []string{requestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	allowAll := len(allowedOrigins) == 0
	for _, origin := range allowedOrigins {
		if origin == "*" {
			allowAll = true
		}
	}
	if allowAll {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = allowedOrigins
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}

// requestIDMiddleware propagates a caller supplied X-Request-ID or assigns a
// UUIDv7.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if requestID == "" || len(requestID) > maxRequestIDLength {
			generated, err := uuid.NewV7()
			if err != nil {
				generated = uuid.New()
			}
			requestID = generated.String()
		}
		c.Set(requestIDContextKey, requestID)
		c.Header(requestIDHeader, requestID)
		c.Next()
	}
}

func accessLogMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("request_id", c.GetString(requestIDContextKey)),
		}
		switch {
		case route == "/healthz" || route == "/metrics":
			logger.Debug("http request", fields...)
		case c.Writer.Status() >= http.StatusInternalServerError:
			logger.Warn("http request", fields...)
		default:
			logger.Info("http request", fields...)
		}
	}
}
