package mcp

import (
	"context"
	"fmt"

	mcplib "github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	// session-kickoff: guides the agent through starting a day correctly.
	s.mcpServer.AddPrompt(
		mcplib.NewPrompt("session-kickoff",
			mcplib.WithPromptDescription("Start a work session: reconcile pending days, review state, plan today's actions"),
		),
		s.handleSessionKickoffPrompt,
	)

	// log-action: reminds the agent to record a finished piece of work.
	s.mcpServer.AddPrompt(
		mcplib.NewPrompt("log-action",
			mcplib.WithPromptDescription("Record a finished piece of work to earn XP"),
			mcplib.WithArgument("what",
				mcplib.ArgumentDescription("What was just completed"),
				mcplib.RequiredArgument(),
			),
		),
		s.handleLogActionPrompt,
	)

	// agent-setup: full system prompt snippet explaining the Arise workflow.
	s.mcpServer.AddPrompt(
		mcplib.NewPrompt("agent-setup",
			mcplib.WithPromptDescription("System prompt snippet explaining the Arise progression workflow (start session, record actions, spend points)"),
		),
		s.handleAgentSetupPrompt,
	)
}

func (s *Server) handleSessionKickoffPrompt(ctx context.Context, request mcplib.GetPromptRequest) (*mcplib.GetPromptResult, error) {
	return &mcplib.GetPromptResult{
		Description: "Start the session and plan today",
		Messages: []mcplib.PromptMessage{
			{
				Role: mcplib.RoleUser,
				Content: mcplib.TextContent{
					Type: "text",
					Text: `Start the work session by following these steps:

1. CALL arise_start_session. This settles any missed days (penalties or
   streak shields) and returns the current character state. Always do this
   before recording anything.

2. REVIEW the snapshot:
   - If consecutive_misses is 2, warn the user: one more missed day costs a level.
   - If available_points > 0, call arise_list_skills and suggest where to spend them.
   - Note the daily_target; that many actions today keeps the streak alive.

3. PLAN the day with the user: which tasks map to which action types
   (action, task, hard_task, sale, boss_killed) and roughly what base XP
   each is worth.`,
				},
			},
		},
	}, nil
}

func (s *Server) handleLogActionPrompt(ctx context.Context, request mcplib.GetPromptRequest) (*mcplib.GetPromptResult, error) {
	what := request.Params.Arguments["what"]
	if what == "" {
		return nil, fmt.Errorf("what argument is required")
	}

	return &mcplib.GetPromptResult{
		Description: fmt.Sprintf("Record: %s", what),
		Messages: []mcplib.PromptMessage{
			{
				Role: mcplib.RoleUser,
				Content: mcplib.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`The user just completed: "%s"

CALL arise_record_action with:
- action_type: pick the honest category.
  action = small win, task = normal unit of work, hard_task = genuinely
  difficult work, sale = income event, boss_killed = major milestone.
- base_xp: proportional to the effort. Don't inflate it; the skill and
  streak bonuses exist to do the inflating.
- base_gold: only for sales and milestones with real monetary outcomes.
- description: one short line echoing what was done.

Then report the result back: XP and gold earned, any crit, any level up,
and territory progress if one is active.`, what),
				},
			},
		},
	}, nil
}

func (s *Server) handleAgentSetupPrompt(ctx context.Context, request mcplib.GetPromptRequest) (*mcplib.GetPromptResult, error) {
	return &mcplib.GetPromptResult{
		Description: "Arise progression workflow for AI agents",
		Messages: []mcplib.PromptMessage{
			{
				Role: mcplib.RoleUser,
				Content: mcplib.TextContent{
					Type: "text",
					Text: `You have access to Arise, a progression engine that turns the user's real
work into RPG progress: XP, levels, gold, a skill tree, streaks, and
territories. Your job is to keep the game state honest and current.

## The Pattern: Start Once, Record Often

### At the start of a session:
Call arise_start_session exactly once. It settles days that passed while
the user was away (missed-day penalties, streak shields, passive gold)
and returns the current snapshot. Recording an action first would mix
today's work into yesterday's accounting.

### During the session:
Call arise_record_action whenever the user finishes something worth
crediting. Be honest with action types and base XP; the engine applies
skill effects, streak bonuses, and crit rolls on top.

### When points are available:
Call arise_list_skills, discuss the options with the user, then
arise_allocate_skill. Allocation can be refused (maxed skill, unmet
prerequisite, no points); relay the reason instead of retrying.

## Available Tools

- arise_start_session: Settle pending days and load state (use FIRST, once)
- arise_record_action: Credit a finished piece of work
- arise_get_character: Re-read the current snapshot
- arise_list_skills: See the skill tree and what is allocatable
- arise_allocate_skill: Spend one skill point

## Action Types

- action: small win (quick errand, short review)
- task: normal unit of work
- hard_task: genuinely difficult work
- sale: income event, earns gold
- boss_killed: major milestone (launch, signed contract)

## Things Worth Warning About

- consecutive_misses at 2: the next missed day costs a whole level.
- A streak about to hit a personal best: worth mentioning.
- Unspent skill points: they compound; spending early beats hoarding.`,
				},
			},
		},
	}, nil
}
