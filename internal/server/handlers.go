package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/arisehq/arise/internal/auth"
	"github.com/arisehq/arise/internal/model"
	"github.com/arisehq/arise/internal/service/character"
	"github.com/arisehq/arise/internal/service/reconcile"
	"github.com/arisehq/arise/internal/service/rewards"
	"github.com/arisehq/arise/internal/service/territory"
	"github.com/arisehq/arise/internal/storage"
)

// Handlers holds HTTP handler dependencies.
type Handlers struct {
	db           *storage.DB
	jwtMgr       *auth.JWTManager
	rewardSvc    *rewards.Service
	reconcileSvc *reconcile.Service
	territorySvc *territory.Service
	characterSvc *character.Service
	broker       *Broker
	logger       *slog.Logger

	startedAt           time.Time
	version             string
	maxRequestBodyBytes int64
	defaultDailyGoal    int
	defaultPenaltyXP    int
}

// HandlersDeps holds all dependencies for constructing Handlers.
// Optional (nil-safe): Broker.
type HandlersDeps struct {
	DB           *storage.DB
	JWTMgr       *auth.JWTManager
	RewardSvc    *rewards.Service
	ReconcileSvc *reconcile.Service
	TerritorySvc *territory.Service
	CharacterSvc *character.Service
	Broker       *Broker
	Logger       *slog.Logger

	Version             string
	MaxRequestBodyBytes int64
	DefaultDailyGoal    int
	DefaultPenaltyXP    int
}

// NewHandlers creates a new Handlers with all dependencies.
func NewHandlers(d HandlersDeps) *Handlers {
	return &Handlers{
		db:                  d.DB,
		jwtMgr:              d.JWTMgr,
		rewardSvc:           d.RewardSvc,
		reconcileSvc:        d.ReconcileSvc,
		territorySvc:        d.TerritorySvc,
		characterSvc:        d.CharacterSvc,
		broker:              d.Broker,
		logger:              d.Logger,
		startedAt:           time.Now(),
		version:             d.Version,
		maxRequestBodyBytes: d.MaxRequestBodyBytes,
		defaultDailyGoal:    d.DefaultDailyGoal,
		defaultPenaltyXP:    d.DefaultPenaltyXP,
	}
}

// HandleAuthToken handles POST /auth/token.
// Exchanges user_id + api_key for a short-lived JWT.
func (h *Handlers) HandleAuthToken(w http.ResponseWriter, r *http.Request) {
	var req model.AuthTokenRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		auth.DummyVerify()
		writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorized, "invalid credentials")
		return
	}

	user, err := h.db.GetUser(r.Context(), userID)
	if err != nil {
		auth.DummyVerify()
		writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorized, "invalid credentials")
		return
	}

	valid, err := auth.VerifyAPIKey(req.APIKey, user.APIKeyHash)
	if err != nil || !valid {
		writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorized, "invalid credentials")
		return
	}

	token, expiresAt, err := h.jwtMgr.IssueToken(user)
	if err != nil {
		h.writeInternalError(w, r, "failed to issue token", err)
		return
	}

	writeJSON(w, r, http.StatusOK, model.AuthTokenResponse{
		Token:     token,
		ExpiresIn: int(time.Until(expiresAt).Seconds()),
	})
}

// HandleSessionStart handles POST /v1/session/start.
// Runs the daily reconciler, then returns the full progression snapshot.
func (h *Handlers) HandleSessionStart(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())

	outcome, err := h.reconcileSvc.Run(r.Context(), userID, time.Now())
	if err != nil {
		h.writeInternalError(w, r, "reconciliation failed", err)
		return
	}

	snap, err := h.characterSvc.Snapshot(r.Context(), userID)
	if err != nil {
		h.writeInternalError(w, r, "failed to load snapshot", err)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]any{
		"reconciliation": outcome,
		"snapshot":       snap,
	})
}

// HandleRecordAction handles POST /v1/actions.
func (h *Handlers) HandleRecordAction(w http.ResponseWriter, r *http.Request) {
	var req model.RecordActionRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	result, err := h.rewardSvc.RecordAction(r.Context(), UserIDFromContext(r.Context()), req, time.Now())
	if err != nil {
		h.writeInternalError(w, r, "failed to record action", err)
		return
	}

	writeJSON(w, r, http.StatusCreated, result)
}

// HandleGetCharacter handles GET /v1/character.
func (h *Handlers) HandleGetCharacter(w http.ResponseWriter, r *http.Request) {
	snap, err := h.characterSvc.Snapshot(r.Context(), UserIDFromContext(r.Context()))
	if err != nil {
		h.writeInternalError(w, r, "failed to load snapshot", err)
		return
	}
	writeJSON(w, r, http.StatusOK, snap)
}

// HandleListSkills handles GET /v1/skills.
func (h *Handlers) HandleListSkills(w http.ResponseWriter, r *http.Request) {
	resp, err := h.characterSvc.Skills(r.Context(), UserIDFromContext(r.Context()))
	if err != nil {
		h.writeInternalError(w, r, "failed to list skills", err)
		return
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// HandleAllocateSkill handles POST /v1/skills/allocate.
// A refused allocation is a 422 with the deny reason, not an error.
func (h *Handlers) HandleAllocateSkill(w http.ResponseWriter, r *http.Request) {
	var req model.AllocateSkillRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if req.SkillID == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "skill_id is required")
		return
	}

	result, check, err := h.characterSvc.Allocate(r.Context(), UserIDFromContext(r.Context()), req.SkillID)
	if err != nil {
		h.writeInternalError(w, r, "failed to allocate skill", err)
		return
	}
	if !check.Allowed {
		writeJSON(w, r, http.StatusUnprocessableEntity, check)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

// HandleListTerritories handles GET /v1/territories.
func (h *Handlers) HandleListTerritories(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())

	territories, err := h.db.ListTerritories(r.Context())
	if err != nil {
		h.writeInternalError(w, r, "failed to list territories", err)
		return
	}
	progress, err := h.db.ListTerritoryProgress(r.Context(), userID)
	if err != nil {
		h.writeInternalError(w, r, "failed to list territory progress", err)
		return
	}
	activeID, err := h.db.ActiveTerritoryID(r.Context(), userID)
	if err != nil {
		h.writeInternalError(w, r, "failed to read active territory", err)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]any{
		"territories":      territories,
		"progress":         progress,
		"active_territory": activeID,
	})
}

// HandleActivateTerritory handles POST /v1/territories/{territory_id}/activate.
func (h *Handlers) HandleActivateTerritory(w http.ResponseWriter, r *http.Request) {
	territoryID, err := uuid.Parse(r.PathValue("territory_id"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid territory_id")
		return
	}

	progress, err := h.territorySvc.Activate(r.Context(), UserIDFromContext(r.Context()), territoryID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "territory not found")
		return
	case errors.Is(err, territory.ErrCaptured):
		writeError(w, r, http.StatusConflict, model.ErrCodeConflict, "territory already captured")
		return
	case err != nil:
		h.writeInternalError(w, r, "failed to activate territory", err)
		return
	}

	writeJSON(w, r, http.StatusOK, model.ActivateTerritoryResponse{Progress: progress})
}

// HandleLedger handles GET /v1/ledger.
// Cursor pagination: pass next_cursor from the previous page.
func (h *Handlers) HandleLedger(w http.ResponseWriter, r *http.Request) {
	var cursor *uuid.UUID
	if c := r.URL.Query().Get("cursor"); c != "" {
		id, err := uuid.Parse(c)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid cursor")
			return
		}
		cursor = &id
	}
	limit := queryLimit(r, 50)

	events, err := h.db.ListLedgerEvents(r.Context(), UserIDFromContext(r.Context()), cursor, limit)
	if err != nil {
		h.writeInternalError(w, r, "failed to list ledger events", err)
		return
	}

	page := model.LedgerPage{Events: events}
	if len(events) == limit {
		last := events[len(events)-1].ID
		page.NextCursor = &last
	}
	writeJSON(w, r, http.StatusOK, page)
}

// HandleCreateUser handles POST /v1/users (admin only).
func (h *Handlers) HandleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req model.CreateUserRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	hash, err := auth.HashAPIKey(req.APIKey)
	if err != nil {
		h.writeInternalError(w, r, "failed to hash api key", err)
		return
	}

	role := model.UserRole(req.Role)
	if role == "" {
		role = model.RoleUser
	}
	user := model.User{
		ID:         uuid.New(),
		Name:       req.Name,
		Role:       role,
		APIKeyHash: hash,
		CreatedAt:  time.Now().UTC(),
	}
	if err := h.db.CreateUser(r.Context(), user, h.defaultDailyGoal, h.defaultPenaltyXP); err != nil {
		h.writeInternalError(w, r, "failed to create user", err)
		return
	}

	writeJSON(w, r, http.StatusCreated, user)
}

// HandleSubscribe handles GET /v1/events (SSE).
func (h *Handlers) HandleSubscribe(w http.ResponseWriter, r *http.Request) {
	if h.broker == nil {
		writeError(w, r, http.StatusServiceUnavailable, model.ErrCodeInternalError,
			"SSE not available (LISTEN/NOTIFY not configured)")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// Disable the server's WriteTimeout for this long-lived connection.
	// Without this, idle SSE connections are killed after WriteTimeout (default 30s).
	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})

	ch := h.broker.Subscribe()
	defer h.broker.Unsubscribe(ch)

	keepalive := time.NewTicker(15 * time.Second)
	defer keepalive.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-keepalive.C:
			if _, err := w.Write([]byte(":keepalive\n\n")); err != nil {
				return
			}
			flusher.Flush()
		case event, ok := <-ch:
			if !ok {
				return
			}
			if _, err := w.Write(event); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// HandleHealth handles GET /healthz.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	pgStatus := "connected"
	status := "healthy"
	httpStatus := http.StatusOK

	if err := h.db.Ping(r.Context()); err != nil {
		pgStatus = "disconnected"
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	resp := model.HealthResponse{
		Status:   status,
		Version:  h.version,
		Postgres: pgStatus,
		Uptime:   int64(time.Since(h.startedAt).Seconds()),
	}
	if h.broker != nil {
		resp.SSEBroker = "running"
	}

	writeJSON(w, r, httpStatus, resp)
}

// SeedAdmin creates the initial admin user if the users table is empty.
func (h *Handlers) SeedAdmin(ctx context.Context, adminAPIKey string) error {
	count, err := h.db.CountUsers(ctx)
	if err != nil {
		return fmt.Errorf("seed admin: count users: %w", err)
	}
	if count > 0 {
		h.logger.Info("users table not empty, skipping admin seed")
		return nil
	}
	if adminAPIKey == "" {
		return fmt.Errorf("seed admin: ARISE_ADMIN_API_KEY is empty and no users exist; set ARISE_ADMIN_API_KEY to bootstrap initial access")
	}

	hash, err := auth.HashAPIKey(adminAPIKey)
	if err != nil {
		return fmt.Errorf("seed admin: hash key: %w", err)
	}

	admin := model.User{
		ID:         uuid.New(),
		Name:       "System Admin",
		Role:       model.RoleAdmin,
		APIKeyHash: hash,
		CreatedAt:  time.Now().UTC(),
	}
	if err := h.db.CreateUser(ctx, admin, h.defaultDailyGoal, h.defaultPenaltyXP); err != nil {
		return fmt.Errorf("seed admin: create user: %w", err)
	}

	h.logger.Info("seeded initial admin user", "user_id", admin.ID)
	return nil
}

// writeInternalError logs the underlying error and returns an opaque 500.
func (h *Handlers) writeInternalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.logger.Error(msg, "error", err, "request_id", RequestIDFromContext(r.Context()))
	writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, msg)
}

// maxQueryLimit is the maximum allowed value for limit query parameters.
const maxQueryLimit = 200

func queryInt(r *http.Request, key string, defaultVal int) int {
	if v := r.URL.Query().Get(key); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			return n
		}
	}
	return defaultVal
}

// queryLimit returns a bounded limit value from query params.
// Values are clamped to [1, maxQueryLimit].
func queryLimit(r *http.Request, defaultVal int) int {
	limit := queryInt(r, "limit", defaultVal)
	if limit < 1 {
		return 1
	}
	if limit > maxQueryLimit {
		return maxQueryLimit
	}
	return limit
}
