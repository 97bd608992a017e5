package arise

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Config holds the settings needed to construct a Client.
type Config struct {
	// BaseURL is the root URL of the Arise server (e.g. "http://localhost:8080").
	BaseURL string

	// UserID identifies the user the client acts as.
	UserID string

	// APIKey is the secret used to obtain a JWT token.
	APIKey string

	// HTTPClient is an optional custom HTTP client. If nil, a default client
	// with a 30-second timeout is used.
	HTTPClient *http.Client

	// Timeout applies to individual API requests. Defaults to 30 seconds.
	Timeout time.Duration
}

// Client is an HTTP client for the Arise progression API.
// All methods are safe for concurrent use.
type Client struct {
	baseURL  string
	client   *http.Client
	tokenMgr *tokenManager
}

// NewClient creates a Client from the given configuration.
func NewClient(cfg Config) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:  baseURL,
		client:   httpClient,
		tokenMgr: newTokenManager(baseURL, cfg.UserID, cfg.APIKey, httpClient),
	}
}

// StartSession runs the daily reconciliation and returns the resulting
// state snapshot. Call it once when a session begins; repeated calls on
// the same day are harmless.
func (c *Client) StartSession(ctx context.Context) (*SessionStart, error) {
	var resp SessionStart
	if err := c.post(ctx, "/v1/session/start", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RecordAction logs a completed action and returns the computed reward.
func (c *Client) RecordAction(ctx context.Context, req RecordActionRequest) (*ActionResult, error) {
	var resp ActionResult
	if err := c.post(ctx, "/v1/actions", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Character returns the caller's current progression snapshot without
// running reconciliation.
func (c *Client) Character(ctx context.Context) (*Snapshot, error) {
	var resp Snapshot
	if err := c.get(ctx, "/v1/character", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Skills lists the skill tree annotated with the caller's allocations.
func (c *Client) Skills(ctx context.Context) (*SkillsResponse, error) {
	var resp SkillsResponse
	if err := c.get(ctx, "/v1/skills", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AllocateSkill spends one skill point on the given skill. A refused
// allocation returns an *AllocationError naming the reason.
func (c *Client) AllocateSkill(ctx context.Context, skillID string) (*AllocateResult, error) {
	body := map[string]string{"skill_id": skillID}
	var resp AllocateResult
	if err := c.post(ctx, "/v1/skills/allocate", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Territories lists all territories with the caller's progress.
func (c *Client) Territories(ctx context.Context) (*TerritoriesView, error) {
	var resp TerritoriesView
	if err := c.get(ctx, "/v1/territories", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ActivateTerritory makes the given territory the active XP sink.
func (c *Client) ActivateTerritory(ctx context.Context, territoryID uuid.UUID) (*TerritoryProgress, error) {
	var resp struct {
		Progress TerritoryProgress `json:"progress"`
	}
	path := "/v1/territories/" + territoryID.String() + "/activate"
	if err := c.post(ctx, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Progress, nil
}

// Ledger returns a page of the caller's ledger history, newest first.
// Pass the previous page's NextCursor to continue; nil starts from the
// top. limit <= 0 uses the server default.
func (c *Client) Ledger(ctx context.Context, cursor *uuid.UUID, limit int) (*LedgerPage, error) {
	params := url.Values{}
	if cursor != nil {
		params.Set("cursor", cursor.String())
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	path := "/v1/ledger"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var resp LedgerPage
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health checks server and database health. No authentication required.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return nil, fmt.Errorf("arise: create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("arise: GET /healthz: %w", err)
	}
	defer resp.Body.Close()

	var health Health
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return nil, fmt.Errorf("arise: decode health response: %w", err)
	}
	return &health, nil
}

// ---------------------------------------------------------------------------
// HTTP transport
// ---------------------------------------------------------------------------

func (c *Client) post(ctx context.Context, path string, body any, dest any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("arise: marshal request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		// The server rejects bodies it cannot decode, so send an empty
		// object rather than nothing.
		reader = strings.NewReader("{}")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("arise: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.doRequest(req, dest)
}

func (c *Client) get(ctx context.Context, path string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("arise: create request: %w", err)
	}

	return c.doRequest(req, dest)
}

func (c *Client) doRequest(req *http.Request, dest any) error {
	token, err := c.tokenMgr.getToken(req.Context())
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("arise: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	return handleResponse(resp, dest)
}

func handleResponse(resp *http.Response, dest any) error {
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("arise: read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return parseErrorResponse(resp.StatusCode, bodyBytes)
	}

	if dest == nil {
		return nil
	}
	if err := json.Unmarshal(bodyBytes, dest); err != nil {
		return fmt.Errorf("arise: decode response: %w", err)
	}
	return nil
}

// errorBody is the server's standard error response.
type errorBody struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id"`
}

func parseErrorResponse(statusCode int, body []byte) error {
	// A 422 on skill allocation carries the structured refusal instead
	// of the standard error body.
	if statusCode == http.StatusUnprocessableEntity {
		var refusal AllocationStatus
		if err := json.Unmarshal(body, &refusal); err == nil && refusal.Reason != "" {
			return &AllocationError{Reason: refusal.Reason, Prerequisite: refusal.Prerequisite}
		}
	}

	apiErr := &Error{StatusCode: statusCode}

	var decoded errorBody
	if err := json.Unmarshal(body, &decoded); err == nil && decoded.Error != "" {
		apiErr.Code = decoded.Code
		apiErr.Message = decoded.Error
		apiErr.RequestID = decoded.RequestID
	} else {
		apiErr.Code = http.StatusText(statusCode)
		apiErr.Message = string(body)
	}

	return apiErr
}
