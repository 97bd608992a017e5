package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/arisehq/arise/api"
	"github.com/arisehq/arise/internal/auth"
	"github.com/arisehq/arise/internal/model"
	"github.com/arisehq/arise/internal/ratelimit"
	"github.com/arisehq/arise/internal/service/character"
	"github.com/arisehq/arise/internal/service/reconcile"
	"github.com/arisehq/arise/internal/service/rewards"
	"github.com/arisehq/arise/internal/service/territory"
	"github.com/arisehq/arise/internal/storage"
)

// Server is the Arise HTTP server.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	handlers   *Handlers
	logger     *slog.Logger
}

// Handler returns the root HTTP handler for use in tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ServerConfig holds all dependencies and configuration for creating a Server.
// Optional fields (nil-safe): Limiter, Broker, MCPServer.
type ServerConfig struct {
	// Required dependencies.
	DB           *storage.DB
	JWTMgr       *auth.JWTManager
	RewardSvc    *rewards.Service
	ReconcileSvc *reconcile.Service
	TerritorySvc *territory.Service
	CharacterSvc *character.Service
	Logger       *slog.Logger

	// Optional dependencies (nil = disabled).
	Limiter   ratelimit.Limiter
	Broker    *Broker
	MCPServer *mcpserver.MCPServer

	// HTTP server settings.
	Port                int
	ReadTimeout         time.Duration
	WriteTimeout        time.Duration
	Version             string
	MaxRequestBodyBytes int64
	DefaultDailyGoal    int
	DefaultPenaltyXP    int
}

// New creates a new HTTP server with all routes configured.
func New(cfg ServerConfig) *Server {
	h := NewHandlers(HandlersDeps{
		DB:                  cfg.DB,
		JWTMgr:              cfg.JWTMgr,
		RewardSvc:           cfg.RewardSvc,
		ReconcileSvc:        cfg.ReconcileSvc,
		TerritorySvc:        cfg.TerritorySvc,
		CharacterSvc:        cfg.CharacterSvc,
		Broker:              cfg.Broker,
		Logger:              cfg.Logger,
		Version:             cfg.Version,
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
		DefaultDailyGoal:    cfg.DefaultDailyGoal,
		DefaultPenaltyXP:    cfg.DefaultPenaltyXP,
	})

	// Request ID extractor for rate limit error responses.
	reqIDFunc := func(r *http.Request) string {
		return RequestIDFromContext(r.Context())
	}

	userRL := ratelimit.Middleware(cfg.Limiter, userKeyFunc, reqIDFunc)
	authRL := ratelimit.Middleware(cfg.Limiter, ratelimit.IPKeyFunc, reqIDFunc)

	mux := http.NewServeMux()

	// Auth endpoint (no auth required, rate limited by IP).
	mux.Handle("POST /auth/token", authRL(http.HandlerFunc(h.HandleAuthToken)))

	// User management (admin-only; admins are exempt from rate limits).
	adminOnly := requireRole(model.RoleAdmin)
	mux.Handle("POST /v1/users", adminOnly(http.HandlerFunc(h.HandleCreateUser)))

	// Session and actions.
	mux.Handle("POST /v1/session/start", userRL(http.HandlerFunc(h.HandleSessionStart)))
	mux.Handle("POST /v1/actions", userRL(http.HandlerFunc(h.HandleRecordAction)))

	// Character state.
	mux.Handle("GET /v1/character", userRL(http.HandlerFunc(h.HandleGetCharacter)))
	mux.Handle("GET /v1/ledger", userRL(http.HandlerFunc(h.HandleLedger)))

	// Skill tree.
	mux.Handle("GET /v1/skills", userRL(http.HandlerFunc(h.HandleListSkills)))
	mux.Handle("POST /v1/skills/allocate", userRL(http.HandlerFunc(h.HandleAllocateSkill)))

	// Territories.
	mux.Handle("GET /v1/territories", userRL(http.HandlerFunc(h.HandleListTerritories)))
	mux.Handle("POST /v1/territories/{territory_id}/activate", userRL(http.HandlerFunc(h.HandleActivateTerritory)))

	// Subscription endpoint (no rate limit, long-lived connection).
	mux.Handle("GET /v1/events", http.HandlerFunc(h.HandleSubscribe))

	// MCP StreamableHTTP transport (auth required).
	if cfg.MCPServer != nil {
		mcpHTTP := mcpserver.NewStreamableHTTPServer(cfg.MCPServer)
		mux.Handle("/mcp", mcpHTTP)
	}

	// Health and API docs (no auth, no rate limit).
	mux.HandleFunc("GET /healthz", h.HandleHealth)
	mux.HandleFunc("GET /openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(api.OpenAPISpec)
	})

	// Middleware chain (outermost executes first):
	// request ID → security headers → tracing → logging → auth → recovery → handler.
	var handler http.Handler = mux
	handler = recoveryMiddleware(cfg.Logger, handler)
	handler = authMiddleware(cfg.JWTMgr, handler)
	handler = loggingMiddleware(cfg.Logger, handler)
	handler = tracingMiddleware(handler)
	handler = securityHeadersMiddleware(handler)
	handler = requestIDMiddleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		handler:  handler,
		handlers: h,
		logger:   cfg.Logger,
	}
}

// userKeyFunc extracts the user ID from the request context for rate limiting.
// Returns empty string for admins (exempt from rate limits).
func userKeyFunc(r *http.Request) string {
	claims := ClaimsFromContext(r.Context())
	if claims == nil {
		return ""
	}
	if claims.Role == model.RoleAdmin {
		return ""
	}
	return "user:" + claims.UserID.String()
}

// Handlers returns the underlying Handlers for access to SeedAdmin etc.
func (s *Server) Handlers() *Handlers {
	return s.handlers
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}
