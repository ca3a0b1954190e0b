// Package summarizer provides Nautilus's Summarizer capability (spec §6):
// a single truncate-then-summarize call used only by Chambers' promotion
// and crystallization passes, never by search. Modeled on the teacher's
// internal/embedding/genai.go GenAIEngine — same client lifecycle, same
// logging/timer discipline — pointed at GenerateContent instead of
// EmbedContent.
package summarizer

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"nautilus/internal/config"
	"nautilus/internal/logging"
)

// Mode selects the prompt and truncation budget for one summarization call.
type Mode string

const (
	ModeCorridor Mode = "corridor"
	ModeVault    Mode = "vault"
)

// byteBudget returns the mode-dependent input truncation limit (spec §6).
func (m Mode) byteBudget() int {
	switch m {
	case ModeCorridor:
		return 8 * 1024
	case ModeVault:
		return 6 * 1024
	default:
		return 8 * 1024
	}
}

// Summarizer is Chambers' dependency-injected capability for turning a raw
// memory file into a shorter one. Returning ("", nil) means "skip this file
// silently"; a non-nil error means the call itself failed.
type Summarizer interface {
	Summarize(ctx context.Context, text string, mode Mode) (string, error)
}

// Disabled is a Summarizer that always skips, used when summarizer.enabled
// is false so Chambers' promotion step has a capability to call without a
// nil check at every call site.
type Disabled struct{}

func (Disabled) Summarize(context.Context, string, Mode) (string, error) {
	return "", nil
}

// GenAISummarizer calls Google's Gemini API via google.golang.org/genai.
type GenAISummarizer struct {
	client      *genai.Client
	model       string
	temperature float64
	maxTokens   int
}

// New builds a Summarizer from cfg.Summarizer: Disabled if summarizer.enabled
// is false or no API key is configured, otherwise a GenAISummarizer.
func New(ctx context.Context, cfg config.SummarizerConfig) (Summarizer, error) {
	if !cfg.Enabled {
		logging.Get(logging.CategorySummarize).Info("summarizer disabled by config")
		return Disabled{}, nil
	}
	if cfg.APIKey == "" {
		logging.Get(logging.CategorySummarize).Warn("summarizer enabled but no API key configured; promotion/crystallization will skip")
		return Disabled{}, nil
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &GenAISummarizer{
		client:      client,
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

// Summarize truncates text to mode's byte budget and asks the model for a
// summary. A nil result (no candidates) is treated as "skip", not an error.
func (g *GenAISummarizer) Summarize(ctx context.Context, text string, mode Mode) (string, error) {
	timer := logging.StartTimer(logging.CategorySummarize, "GenAISummarizer.Summarize")
	defer timer.Stop()

	budget := mode.byteBudget()
	if len(text) > budget {
		text = text[:budget]
	}

	prompt := fmt.Sprintf("Summarize the following %s-tier memory content concisely, preserving concrete facts and decisions:\n\n%s", mode, text)
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}

	maxTokens := int32(g.maxTokens)
	result, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		Temperature:     float32Ptr(float32(g.temperature)),
		MaxOutputTokens: maxTokens,
	})
	if err != nil {
		logging.Get(logging.CategorySummarize).Error("GenerateContent failed: %v", err)
		return "", fmt.Errorf("summarizer call failed: %w", err)
	}

	if result == nil || len(result.Candidates) == 0 {
		logging.Get(logging.CategorySummarize).Warn("summarizer returned no candidates, skipping")
		return "", nil
	}

	text = result.Text()
	if text == "" {
		return "", nil
	}
	return text, nil
}

func float32Ptr(f float32) *float32 { return &f }
