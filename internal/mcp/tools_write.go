package mcp

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/moolen/magma/internal/facades"
)

func (s *Server) handleRemember(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := argumentsOf(request)
	var errs argErrors
	content := requireString(args, "content", &errs)
	if !errs.ok() {
		return validationResult(errs), nil
	}
	extra := optionalString(args, "context", "")

	description := content
	if extra != "" {
		description = content + "\n\n" + extra
	}
	name := content
	if len(name) > 80 {
		name = name[:80]
	}

	concept, err := s.semantic.AddConcept(ctx, name, description)
	if err != nil {
		return errResult("remember", err), nil
	}
	return jsonResult("remember", concept)
}

func (s *Server) handleAddConcept(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := argumentsOf(request)
	var errs argErrors
	name := requireString(args, "name", &errs)
	if !errs.ok() {
		return validationResult(errs), nil
	}
	description := optionalString(args, "description", "")

	concept, err := s.semantic.AddConcept(ctx, name, description)
	if err != nil {
		return errResult("add_concept", err), nil
	}
	return jsonResult("add_concept", concept)
}

func (s *Server) handleAddEntity(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := argumentsOf(request)
	var errs argErrors
	name := requireString(args, "name", &errs)
	entityType := requireString(args, "entity_type", &errs)
	if !errs.ok() {
		return validationResult(errs), nil
	}
	properties := optionalStringMap(args, "properties")

	entity, err := s.entity.AddEntity(ctx, name, entityType, properties)
	if err != nil {
		return errResult("add_entity", err), nil
	}
	return jsonResult("add_entity", entity)
}

func (s *Server) handleLinkEntities(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := argumentsOf(request)
	var errs argErrors
	source := requireString(args, "source", &errs)
	target := requireString(args, "target", &errs)
	relationship := requireString(args, "relationship", &errs)
	if !errs.ok() {
		return validationResult(errs), nil
	}

	if err := s.entity.LinkEntities(ctx, source, target, relationship); err != nil {
		return errResult("link_entities", err), nil
	}
	return textResult(`{"linked":true}`), nil
}

func (s *Server) handleAddEvent(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := argumentsOf(request)
	var errs argErrors
	description := requireString(args, "description", &errs)
	occurredAtRaw := requireString(args, "occurred_at", &errs)
	if !errs.ok() {
		return validationResult(errs), nil
	}
	occurredAt, err := facades.ParseInstant(occurredAtRaw)
	if err != nil {
		errs.add("occurred_at", "must be a parseable date/time: %v", err)
		return validationResult(errs), nil
	}

	event, err := s.temporal.AddEvent(ctx, description, occurredAt, 0)
	if err != nil {
		return errResult("add_event", err), nil
	}

	for _, id := range optionalStringSlice(args, "entity_ids") {
		if err := s.temporal.LinkEventToEntity(ctx, event.UUID, id); err != nil {
			return errResult("add_event", err), nil
		}
	}

	return jsonResult("add_event", event)
}

func (s *Server) handleAddFact(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := argumentsOf(request)
	var errs argErrors
	subject := requireString(args, "subject", &errs)
	predicate := requireString(args, "predicate", &errs)
	object := requireString(args, "object", &errs)
	validFromRaw := requireString(args, "valid_from", &errs)
	if !errs.ok() {
		return validationResult(errs), nil
	}
	validFrom, err := facades.ParseInstant(validFromRaw)
	if err != nil {
		errs.add("valid_from", "must be a parseable date/time: %v", err)
		return validationResult(errs), nil
	}

	var validTo *time.Time
	if raw := optionalString(args, "valid_to", ""); raw != "" {
		t, err := facades.ParseInstant(raw)
		if err != nil {
			errs.add("valid_to", "must be a parseable date/time: %v", err)
			return validationResult(errs), nil
		}
		validTo = &t
	}

	fact, err := s.temporal.AddFact(ctx, subject, predicate, object, validFrom, validTo)
	if err != nil {
		return errResult("add_fact", err), nil
	}
	return jsonResult("add_fact", fact)
}

func (s *Server) handleAddCausalLink(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := argumentsOf(request)
	var errs argErrors
	cause := requireString(args, "cause", &errs)
	effect := requireString(args, "effect", &errs)
	if !errs.ok() {
		return validationResult(errs), nil
	}
	confidence := optionalFloat(args, "confidence", 1.0)
	evidence := optionalString(args, "evidence", "")
	entityIDs := optionalStringSlice(args, "entities")
	eventIDs := optionalStringSlice(args, "events")

	causeNode, err := s.causal.FindOrCreate(ctx, cause, "cause")
	if err != nil {
		return errResult("add_causal_link", err), nil
	}
	effectNode, err := s.causal.FindOrCreate(ctx, effect, "effect")
	if err != nil {
		return errResult("add_causal_link", err), nil
	}
	if err := s.causal.AddLink(ctx, causeNode.UUID, effectNode.UUID, confidence, evidence); err != nil {
		return errResult("add_causal_link", err), nil
	}

	for _, id := range entityIDs {
		if err := s.causal.LinkToEntity(ctx, causeNode.UUID, id); err != nil {
			return errResult("add_causal_link", err), nil
		}
	}
	for _, id := range eventIDs {
		if err := s.causal.LinkToEvent(ctx, causeNode.UUID, id); err != nil {
			return errResult("add_causal_link", err), nil
		}
	}

	return jsonResult("add_causal_link", map[string]interface{}{
		"cause":  causeNode,
		"effect": effectNode,
	})
}

func jsonResult(op string, v interface{}) (*mcp.CallToolResult, error) {
	body, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errResult(op, err), nil
	}
	return textResult(string(body)), nil
}
