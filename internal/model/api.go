package model

import (
	"fmt"

	"github.com/google/uuid"
)

// Error codes returned in API error responses.
const (
	ErrCodeUnauthorized  = "unauthorized"
	ErrCodeForbidden     = "forbidden"
	ErrCodeNotFound      = "not_found"
	ErrCodeInvalidInput  = "invalid_input"
	ErrCodeConflict      = "conflict"
	ErrCodeRateLimited   = "rate_limited"
	ErrCodeInternalError = "internal_error"
)

// ErrorResponse is the standard API error body.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// AuthTokenRequest is the body of POST /auth/token.
type AuthTokenRequest struct {
	UserID string `json:"user_id"`
	APIKey string `json:"api_key"`
}

// AuthTokenResponse is the response of POST /auth/token.
type AuthTokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"` // Seconds.
}

// MaxDescriptionLen bounds the free-text description on recorded actions.
// Prevents caller-controlled garbage from filling Postgres TEXT columns.
const MaxDescriptionLen = 2000

// RecordActionRequest is the body of POST /v1/actions.
type RecordActionRequest struct {
	ActionType  string `json:"action_type"`
	BaseXP      int    `json:"base_xp"`
	BaseGold    int    `json:"base_gold"`
	Description string `json:"description,omitempty"`
}

// Validate checks field constraints before any state is touched.
func (r RecordActionRequest) Validate() error {
	switch EventType(r.ActionType) {
	case EventAction, EventTask, EventHardTask, EventSale, EventBossKilled:
	default:
		return fmt.Errorf("unknown action_type %q", r.ActionType)
	}
	if r.BaseXP < 0 || r.BaseGold < 0 {
		return fmt.Errorf("base_xp and base_gold must be non-negative")
	}
	if len(r.Description) > MaxDescriptionLen {
		return fmt.Errorf("description exceeds maximum length of %d characters", MaxDescriptionLen)
	}
	return nil
}

// AllocateSkillRequest is the body of POST /v1/skills/allocate.
type AllocateSkillRequest struct {
	SkillID string `json:"skill_id"`
}

// ActivateTerritoryResponse is the response of POST /v1/territories/{id}/activate.
type ActivateTerritoryResponse struct {
	Progress TerritoryProgress `json:"progress"`
}

// LedgerPage is a page of ledger history.
type LedgerPage struct {
	Events     []LedgerEvent `json:"events"`
	NextCursor *uuid.UUID    `json:"next_cursor,omitempty"`
}

// CreateUserRequest is the body of POST /v1/users (admin only).
type CreateUserRequest struct {
	Name   string `json:"name"`
	Role   string `json:"role,omitempty"`
	APIKey string `json:"api_key"`
}

// Validate checks field constraints.
func (r CreateUserRequest) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("name is required")
	}
	if r.APIKey == "" {
		return fmt.Errorf("api_key is required")
	}
	switch UserRole(r.Role) {
	case "", RoleUser, RoleAdmin:
	default:
		return fmt.Errorf("unknown role %q", r.Role)
	}
	return nil
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Postgres  string `json:"postgres"`
	SSEBroker string `json:"sse_broker,omitempty"`
	Uptime    int64  `json:"uptime_seconds"`
}
