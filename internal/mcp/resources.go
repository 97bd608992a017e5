package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/arisehq/arise/internal/ctxutil"
)

func (s *Server) registerResources() {
	// arise://character: the requesting user's current progression state.
	s.mcpServer.AddResource(
		mcplib.NewResource(
			"arise://character",
			"Character",
			mcplib.WithResourceDescription("Current character state for the requesting user"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleCharacterResource,
	)

	// arise://skills: the skill tree with the user's allocations.
	s.mcpServer.AddResource(
		mcplib.NewResource(
			"arise://skills",
			"Skill Tree",
			mcplib.WithResourceDescription("Skill tree with the requesting user's allocations"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleSkillsResource,
	)

	// arise://ledger/recent: the most recent ledger events.
	s.mcpServer.AddResource(
		mcplib.NewResource(
			"arise://ledger/recent",
			"Recent Ledger",
			mcplib.WithResourceDescription("Most recent XP and gold ledger events for the requesting user"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleLedgerRecent,
	)
}

func (s *Server) handleCharacterResource(ctx context.Context, request mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	snap, err := s.characterSvc.Snapshot(ctx, ctxutil.UserIDFromContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("mcp: character resource: %w", err)
	}

	data, err := json.MarshalIndent(compactSnapshot(snap), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mcp: marshal character: %w", err)
	}

	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      "arise://character",
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleSkillsResource(ctx context.Context, request mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	resp, err := s.characterSvc.Skills(ctx, ctxutil.UserIDFromContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("mcp: skills resource: %w", err)
	}

	data, err := json.MarshalIndent(compactSkills(resp), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mcp: marshal skills: %w", err)
	}

	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      "arise://skills",
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleLedgerRecent(ctx context.Context, request mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	events, err := s.db.ListLedgerEvents(ctx, ctxutil.UserIDFromContext(ctx), nil, 20)
	if err != nil {
		return nil, fmt.Errorf("mcp: recent ledger: %w", err)
	}

	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mcp: marshal ledger: %w", err)
	}

	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      "arise://ledger/recent",
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
