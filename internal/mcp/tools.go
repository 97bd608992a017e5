package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/arisehq/arise/internal/ctxutil"
	"github.com/arisehq/arise/internal/model"
)

func (s *Server) registerTools() {
	// arise_start_session: reconcile pending days and load the current state.
	s.mcpServer.AddTool(
		mcplib.NewTool("arise_start_session",
			mcplib.WithDescription(`Start a work session: settle any pending daily reconciliation and return the current character state.

WHEN TO USE: Once, at the start of a session, BEFORE recording any actions.
Reconciliation applies missed-day penalties or streak shields for days that
passed while the user was away; recording actions first would mix today's
progress into yesterday's accounting.

WHAT YOU GET BACK:
- reconciliation: what happened to the missed days (shielded, penalized, passive gold)
- snapshot: level, XP, gold, streak, skill effects, territories`),
			mcplib.WithDestructiveHintAnnotation(false),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
		),
		s.handleStartSession,
	)

	// arise_record_action: record a completed real-world action.
	s.mcpServer.AddTool(
		mcplib.NewTool("arise_record_action",
			mcplib.WithDescription(`Record a completed real-world action and earn XP and gold for it.

WHEN TO USE: Immediately after the user finishes something worth crediting.
Call arise_start_session first if this is the first call of the session.

WHAT YOU GET BACK:
- the final XP/gold after skill effects, streak bonus, and crit roll
- new level and levels gained, if the action caused a level up
- territory progress, if a territory is active`),
			mcplib.WithDestructiveHintAnnotation(false),
			mcplib.WithIdempotentHintAnnotation(false),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithString("action_type",
				mcplib.Description("Kind of action: action (small win), task (normal unit of work), hard_task (difficult work), sale (income event, earns gold), boss_killed (major milestone)"),
				mcplib.Required(),
			),
			mcplib.WithNumber("base_xp",
				mcplib.Description("Base XP value of the action before modifiers"),
				mcplib.Required(),
				mcplib.Min(0),
			),
			mcplib.WithNumber("base_gold",
				mcplib.Description("Base gold value of the action (sales and milestones)"),
				mcplib.Min(0),
			),
			mcplib.WithString("description",
				mcplib.Description("Short free-text description of what was done"),
			),
		),
		s.handleRecordAction,
	)

	// arise_get_character: current character state.
	s.mcpServer.AddTool(
		mcplib.NewTool("arise_get_character",
			mcplib.WithDescription(`Get the user's current character state: level, XP, gold, streak, aggregated skill effects, and territory progress.`),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
		),
		s.handleGetCharacter,
	)

	// arise_list_skills: skill tree with allocation status.
	s.mcpServer.AddTool(
		mcplib.NewTool("arise_list_skills",
			mcplib.WithDescription(`List the skill tree: every skill, the user's current level in it, and whether another point can be allocated right now (with the deny reason if not).`),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
		),
		s.handleListSkills,
	)

	// arise_allocate_skill: spend a skill point.
	s.mcpServer.AddTool(
		mcplib.NewTool("arise_allocate_skill",
			mcplib.WithDescription(`Spend one available skill point on a skill.

Call arise_list_skills first to see which skills are allocatable and why
others are locked. Allocation is refused (not an error) when the skill is
maxed, its prerequisite is unmet, or no points are available.`),
			mcplib.WithDestructiveHintAnnotation(false),
			mcplib.WithIdempotentHintAnnotation(false),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithString("skill_id",
				mcplib.Description("Skill identifier from arise_list_skills"),
				mcplib.Required(),
			),
		),
		s.handleAllocateSkill,
	)
}

func (s *Server) handleStartSession(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	userID := ctxutil.UserIDFromContext(ctx)

	outcome, err := s.reconcileSvc.Run(ctx, userID, time.Now())
	if err != nil {
		return errorResult(fmt.Sprintf("reconciliation failed: %v", err)), nil
	}
	snap, err := s.characterSvc.Snapshot(ctx, userID)
	if err != nil {
		return errorResult(fmt.Sprintf("failed to load snapshot: %v", err)), nil
	}

	resultData, _ := json.MarshalIndent(map[string]any{
		"reconciliation": outcome,
		"snapshot":       compactSnapshot(snap),
	}, "", "  ")

	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: string(resultData)},
		},
	}, nil
}

func (s *Server) handleRecordAction(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	userID := ctxutil.UserIDFromContext(ctx)

	req := model.RecordActionRequest{
		ActionType:  request.GetString("action_type", ""),
		BaseXP:      request.GetInt("base_xp", 0),
		BaseGold:    request.GetInt("base_gold", 0),
		Description: request.GetString("description", ""),
	}
	if err := req.Validate(); err != nil {
		return errorResult(err.Error()), nil
	}

	result, err := s.rewardSvc.RecordAction(ctx, userID, req, time.Now())
	if err != nil {
		return errorResult(fmt.Sprintf("failed to record action: %v", err)), nil
	}

	resultData, _ := json.MarshalIndent(compactReward(result), "", "  ")
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: string(resultData)},
		},
	}, nil
}

func (s *Server) handleGetCharacter(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	snap, err := s.characterSvc.Snapshot(ctx, ctxutil.UserIDFromContext(ctx))
	if err != nil {
		return errorResult(fmt.Sprintf("failed to load snapshot: %v", err)), nil
	}

	resultData, _ := json.MarshalIndent(compactSnapshot(snap), "", "  ")
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: string(resultData)},
		},
	}, nil
}

func (s *Server) handleListSkills(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	resp, err := s.characterSvc.Skills(ctx, ctxutil.UserIDFromContext(ctx))
	if err != nil {
		return errorResult(fmt.Sprintf("failed to list skills: %v", err)), nil
	}

	resultData, _ := json.MarshalIndent(compactSkills(resp), "", "  ")
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: string(resultData)},
		},
	}, nil
}

func (s *Server) handleAllocateSkill(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	skillID := request.GetString("skill_id", "")
	if skillID == "" {
		return errorResult("skill_id is required"), nil
	}

	result, check, err := s.characterSvc.Allocate(ctx, ctxutil.UserIDFromContext(ctx), skillID)
	if err != nil {
		return errorResult(fmt.Sprintf("failed to allocate skill: %v", err)), nil
	}
	if !check.Allowed {
		resultData, _ := json.Marshal(map[string]any{
			"allocated": false,
			"reason":    check.Reason,
		})
		return &mcplib.CallToolResult{
			Content: []mcplib.Content{
				mcplib.TextContent{Type: "text", Text: string(resultData)},
			},
		}, nil
	}

	resultData, _ := json.MarshalIndent(map[string]any{
		"allocated":        true,
		"skill_id":         result.SkillID,
		"new_level":        result.NewLevel,
		"available_points": result.AvailablePoints,
		"effects":          result.Effects,
	}, "", "  ")
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: string(resultData)},
		},
	}, nil
}
