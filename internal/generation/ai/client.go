package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/canopus-software/aoede-backend/config"
	"github.com/canopus-software/aoede-backend/internal/generation/domain"
	openai "github.com/sashabaranov/go-openai"
)

const (
	maxAttempts = 3
	retryDelay  = time.Second
)

var systemPrompts = map[domain.Component]string{
	domain.ComponentFrontend: "You are a professional frontend developer expert in HTML, Tailwind CSS, and vanilla JavaScript.",
	domain.ComponentBackend:  "You are a professional Python backend developer expert in FastAPI/Flask and SQLAlchemy.",
	domain.ComponentDatabase: "You are a professional database engineer expert in relational schema design and SQL migrations.",
	domain.ComponentAPI:      "You are a professional API developer expert in REST design and OpenAPI.",
}

// Client implements code generation and fixing over a chat-completions API.
// Each component uses its own model; responses are JSON objects mapping file
// paths to file contents.
type Client struct {
	api    *openai.Client
	models map[domain.Component]string
}

// NewClient creates a new Client from AI configuration
func NewClient(cfg config.AIConfig) *Client {
	apiCfg := openai.DefaultConfig(cfg.Token)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}

	return &Client{
		api: openai.NewClientWithConfig(apiCfg),
		models: map[domain.Component]string{
			domain.ComponentFrontend: cfg.FrontendModel,
			domain.ComponentBackend:  cfg.BackendModel,
			domain.ComponentDatabase: cfg.DatabaseModel,
			domain.ComponentAPI:      cfg.APIModel,
		},
	}
}

// Generate produces the file set for one component of the project.
func (c *Client) Generate(ctx context.Context, component domain.Component, spec *domain.ProjectSpec) (map[string]string, error) {
	prompt := generationPrompt(component, spec)

	content, err := c.complete(ctx, c.models[component], systemPrompts[component], prompt)
	if err != nil {
		return nil, err
	}

	var files map[string]string
	if err := json.Unmarshal([]byte(content), &files); err != nil {
		return nil, fmt.Errorf("parse %s generation response: %w", component, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%s generation returned no files", component)
	}

	return files, nil
}

// Fix produces a full replacement artifact given the current artifact and the
// validation errors from the last check round.
func (c *Client) Fix(ctx context.Context, artifact domain.CodeArtifact, errs []domain.ValidationError) (domain.CodeArtifact, error) {
	prompt, err := fixPrompt(artifact, errs)
	if err != nil {
		return nil, err
	}

	// The fixer reuses the backend model; it sees the whole artifact and must
	// return the whole artifact back.
	content, err := c.complete(ctx, c.models[domain.ComponentBackend],
		"You are an expert system debugger. You fix code so that its test and lint commands pass.", prompt)
	if err != nil {
		return nil, err
	}

	var fixed domain.CodeArtifact
	if err := json.Unmarshal([]byte(content), &fixed); err != nil {
		return nil, fmt.Errorf("parse fix response: %w", err)
	}
	for _, component := range domain.Components() {
		if _, ok := fixed[component]; !ok {
			return nil, fmt.Errorf("fix response missing %s component", component)
		}
	}

	return fixed, nil
}

// complete runs one chat completion with bounded retry on transient API
// errors, linear backoff between attempts.
func (c *Client) complete(ctx context.Context, model, system, user string) (string, error) {
	var lastErr error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(attempt) * retryDelay):
			}
		}

		resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: system},
				{Role: openai.ChatMessageRoleUser, Content: user},
			},
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
		})
		if err != nil {
			lastErr = err
			log.Printf("ai: completion attempt %d/%d failed for model %s: %v", attempt+1, maxAttempts, model, err)
			continue
		}

		if len(resp.Choices) == 0 {
			lastErr = fmt.Errorf("model %s returned no choices", model)
			continue
		}

		return resp.Choices[0].Message.Content, nil
	}

	return "", fmt.Errorf("completion failed after %d attempts: %w", maxAttempts, lastErr)
}

func generationPrompt(component domain.Component, spec *domain.ProjectSpec) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Generate the %s component for the following project.\n\n", component)
	fmt.Fprintf(&b, "Project name: %s\n", spec.Name)
	fmt.Fprintf(&b, "Description: %s\n", spec.Description)

	if len(spec.Settings) > 0 {
		b.WriteString("Settings:\n")
		for k, v := range spec.Settings {
			fmt.Fprintf(&b, "- %s: %s\n", k, v)
		}
	}

	b.WriteString("\nRespond with a single JSON object mapping file paths to complete file contents. ")
	b.WriteString("Follow best practices and modern standards; the code must pass its test and lint commands.")

	return b.String()
}

func fixPrompt(artifact domain.CodeArtifact, errs []domain.ValidationError) (string, error) {
	artifactB, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal artifact: %w", err)
	}
	errsB, err := json.MarshalIndent(errs, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal validation errors: %w", err)
	}

	var b strings.Builder
	b.WriteString("The following project artifact failed validation.\n\nArtifact:\n")
	b.Write(artifactB)
	b.WriteString("\n\nValidation errors:\n")
	b.Write(errsB)
	b.WriteString("\n\nFix the code and respond with the complete corrected artifact as a single JSON object ")
	b.WriteString("with the same shape: component name -> file path -> file contents. ")
	b.WriteString("Include every component, including ones without errors.")

	return b.String(), nil
}
