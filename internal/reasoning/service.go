// Package reasoning is the client for the remote reasoning service: a cheap
// intent classifier, a full action-generating responder, and a roadmap
// generator, all routed to configured model providers.
package reasoning

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ascendhq/ascend/internal/config"
	ascendErrors "github.com/ascendhq/ascend/internal/errors"
	"github.com/ascendhq/ascend/internal/reasoning/contract"
)

type ClassifyRequest struct {
	Message  string
	History  []contract.Message
	HasGoals bool
}

type RespondRequest struct {
	Message       string
	SystemContext string
	History       []contract.Message
	Mode          contract.Mode
}

type RoadmapRequest struct {
	GoalContexts []contract.GoalContext
	ProfileNote  string
}

type Service interface {
	Classify(ctx context.Context, req ClassifyRequest) (*contract.Classification, error)
	Respond(ctx context.Context, req RespondRequest) (*contract.AssistantTurn, error)
	GenerateRoadmap(ctx context.Context, req RoadmapRequest) (*contract.GeneratedGoal, error)
}

type Client struct {
	router  *Router
	models  config.ModelsConfig
	prompts config.PromptsConfig
}

func NewClient(router *Router, models config.ModelsConfig, prompts config.PromptsConfig) *Client {
	if strings.TrimSpace(prompts.Classifier.System) == "" {
		prompts.Classifier.System = config.DefaultClassifierSystemPrompt
	}
	if strings.TrimSpace(prompts.Classifier.Output) == "" {
		prompts.Classifier.Output = config.DefaultClassifierOutputPrompt
	}
	if strings.TrimSpace(prompts.Responder.System) == "" {
		prompts.Responder.System = config.DefaultResponderSystemPrompt
	}
	if strings.TrimSpace(prompts.Responder.Output) == "" {
		prompts.Responder.Output = config.DefaultResponderOutputPrompt
	}
	if strings.TrimSpace(prompts.Roadmap.System) == "" {
		prompts.Roadmap.System = config.DefaultRoadmapSystemPrompt
	}
	if strings.TrimSpace(prompts.Roadmap.Output) == "" {
		prompts.Roadmap.Output = config.DefaultRoadmapOutputPrompt
	}

	return &Client{
		router:  router,
		models:  models,
		prompts: prompts,
	}
}

func (c *Client) Classify(ctx context.Context, req ClassifyRequest) (*contract.Classification, error) {
	messages := []contract.Message{
		{Role: "system", Content: c.prompts.Classifier.System + "\n\n" + c.prompts.Classifier.Output},
	}
	messages = append(messages, req.History...)
	messages = append(messages, contract.Message{
		Role:    "user",
		Content: fmt.Sprintf("HAS_GOALS: %t\nMESSAGE: %s", req.HasGoals, req.Message),
	})

	resp, err := c.router.Route(ctx, c.models.Classifier, contract.CompletionRequest{Messages: messages})
	if err != nil {
		return nil, ascendErrors.Wrap(err, "classification call")
	}

	classification, mode := parseClassification(resp.Content)
	if mode != parseModeJSON {
		slog.Debug("Classifier fallback parser used", "mode", mode, "intent", classification.Intent)
	}
	return classification, nil
}

func (c *Client) Respond(ctx context.Context, req RespondRequest) (*contract.AssistantTurn, error) {
	system := c.prompts.Responder.System + "\n\nMODE: " + string(req.Mode) + "\n\n" + c.prompts.Responder.Output
	if strings.TrimSpace(req.SystemContext) != "" {
		system += "\n\n" + req.SystemContext
	}

	messages := []contract.Message{{Role: "system", Content: system}}
	messages = append(messages, req.History...)
	messages = append(messages, contract.Message{Role: "user", Content: req.Message})

	resp, err := c.router.Route(ctx, c.models.Responder, contract.CompletionRequest{Messages: messages})
	if err != nil {
		return nil, ascendErrors.Wrap(err, "responder call")
	}

	turn, mode := parseAssistantTurn(resp.Content)
	if mode != parseModeJSON {
		slog.Debug("Responder fallback parser used", "mode", mode, "actions", len(turn.Actions))
	}
	return turn, nil
}

func (c *Client) GenerateRoadmap(ctx context.Context, req RoadmapRequest) (*contract.GeneratedGoal, error) {
	payload, err := json.Marshal(req.GoalContexts)
	if err != nil {
		return nil, ascendErrors.Internal(fmt.Sprintf("marshal goal contexts: %v", err))
	}

	user := "GOAL CONTEXTS:\n" + string(payload)
	if strings.TrimSpace(req.ProfileNote) != "" {
		user += "\n\nUSER PROFILE:\n" + req.ProfileNote
	}

	model := c.models.Roadmap
	if strings.TrimSpace(model) == "" {
		model = c.models.Responder
	}

	resp, err := c.router.Route(ctx, model, contract.CompletionRequest{
		Messages: []contract.Message{
			{Role: "system", Content: c.prompts.Roadmap.System + "\n\n" + c.prompts.Roadmap.Output},
			{Role: "user", Content: user},
		},
	})
	if err != nil {
		return nil, ascendErrors.Wrap(err, "roadmap call")
	}

	roadmap, ok := parseRoadmap(resp.Content)
	if !ok {
		return nil, ascendErrors.InvalidModelOutput("roadmap response did not contain a usable goal tree")
	}
	return roadmap, nil
}
