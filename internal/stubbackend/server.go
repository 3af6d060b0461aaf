// Package stubbackend is an in-memory stand-in for the Neos backend. It
// serves every route of connector.DefaultRoutes with the same JSON payloads,
// HTML fragments and status codes as the real backend, which makes it usable
// for integration tests and local demos of the CLI.
package stubbackend

import (
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/jmerrifield20/neosconnect/internal/metrics"
	"github.com/jmerrifield20/neosconnect/pkg/connector"
)

// SessionCookie names the cookie that carries the login session.
const SessionCookie = "Neos_Session"

// Config configures a Server.
type Config struct {
	// BaseURL is where the stub is reachable; it prefixes resource URIs.
	BaseURL string
	// Users maps usernames to plain text passwords.
	Users map[string]string
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost  int
	CORSOrigins []string
	// RateLimitRPS enables per-client rate limiting when positive.
	RateLimitRPS int
	Logger       *zap.Logger
}

// Server is the stub backend.
type Server struct {
	store    *store
	sessions *sessions
	users    map[string][]byte
	routes   connector.Routes
	logger   *zap.Logger
	engine   *gin.Engine
}

// New builds a stub backend seeded with the demo site.
func New(cfg Config) (*Server, error) {
	if len(cfg.Users) == 0 {
		return nil, errors.New("stub backend needs at least one user")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	cost := cfg.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}

	users := make(map[string][]byte, len(cfg.Users))
	for name, password := range cfg.Users {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
		if err != nil {
			return nil, err
		}
		users[name] = hash
	}

	s := &Server{
		store:    newStore(cfg.BaseURL),
		sessions: newSessions(),
		users:    users,
		routes:   connector.DefaultRoutes(),
		logger:   cfg.Logger,
	}
	seed(s.store)

	tmpl, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.SetHTMLTemplate(tmpl)

	if len(cfg.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", connector.CSRFHeader, "X-Request-Id"},
			ExposeHeaders:    []string{"Content-Length", connector.HeaderExistsInOtherDimensions, connector.HeaderNodesMissingOnRootline},
			AllowCredentials: !containsWildcard(cfg.CORSOrigins),
			MaxAge:           12 * time.Hour,
		}))
	}
	router.Use(metrics.PrometheusMiddleware())
	if cfg.RateLimitRPS > 0 {
		router.Use(rateLimiter(cfg.RateLimitRPS, cfg.RateLimitRPS*2))
	}
	router.Use(requestLogger(cfg.Logger))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", metrics.GinHandler())

	s.register(router)
	s.engine = router
	return s, nil
}

// Handler returns the HTTP handler of the stub.
func (s *Server) Handler() http.Handler { return s.engine }

// Preference returns a stored user preference.
func (s *Server) Preference(username, key string) (string, bool) {
	return s.store.preference(username, key)
}

// register mounts every backend route. Everything but login requires a
// session; mutating routes also require the session's anti-forgery token.
func (s *Server) register(r *gin.Engine) {
	ui := s.routes.UI.Service
	content := s.routes.Core.Content
	svc := s.routes.Core.Service

	r.POST(s.routes.Core.Login, s.login)

	authed := r.Group("", s.requireSession)
	authed.POST(s.routes.Core.Logout, s.logout)

	authed.GET(ui.GetWorkspaceInfo, s.getWorkspaceInfo)
	authed.GET(content.ImageWithMetadata, s.imageWithMetadata)
	authed.GET(content.LoadMasterPlugins, s.masterPlugins)
	authed.GET(content.LoadPluginViews, s.pluginViews)
	authed.GET(svc.AssetProxies, s.searchAssetProxies)
	authed.GET(svc.AssetProxies+"/:source/:id", s.showAssetProxy)
	authed.GET(svc.Assets, s.searchAssets)
	authed.GET(svc.Assets+"/:id", s.showAsset)
	authed.GET(svc.Nodes, s.searchNodes)
	authed.GET(svc.Nodes+"/:id", s.showNode)
	authed.GET(svc.ContentDimensions+"/:file", s.contentDimensions)
	authed.GET(svc.DataSource+"/:id", s.dataSource)

	guarded := authed.Group("", s.requireCSRF)
	guarded.POST(ui.Change, s.change)
	guarded.POST(ui.Publish, s.publish)
	guarded.POST(ui.Discard, s.discard)
	guarded.POST(ui.ChangeBaseWorkspace, s.changeBaseWorkspace)
	guarded.POST(ui.CopyNode, s.clipboard("copy"))
	guarded.POST(ui.CutNode, s.clipboard("move"))
	guarded.POST(ui.ClearClipboard, s.clearClipboard)
	guarded.POST(ui.GetPolicyInfo, s.policyInfo)
	guarded.POST(content.CreateImageVariant, s.createImageVariant)
	guarded.POST(content.UploadAsset, s.uploadAsset)
	guarded.POST(svc.AssetProxies+"/:source/:id", s.importAssetProxy)
	guarded.POST(svc.Nodes, s.adoptNode)
	guarded.PUT(svc.UserPreferences, s.setUserPreference)
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", c.GetHeader("X-Request-Id")),
		)
	}
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}

func abortJSON(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
