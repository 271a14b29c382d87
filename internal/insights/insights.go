// Package insights generates portfolio narrative text from allocation
// data.
package insights

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"portfolio-tracker/internal/allocation"
	"portfolio-tracker/internal/models"
)

// Generator produces a narrative insight for a set of holdings.
type Generator interface {
	Generate(ctx context.Context, holdings []models.Holding) (string, error)
}

// CannedGenerator derives insight text from the allocation breakdown
// with fixed rules. It is deterministic and never fails, which makes
// it the fallback for every other generator.
type CannedGenerator struct{}

// NewCannedGenerator creates a rule-based generator.
func NewCannedGenerator() *CannedGenerator {
	return &CannedGenerator{}
}

// Generate builds bullet-point observations about concentration,
// diversification, and asset mix.
func (g *CannedGenerator) Generate(_ context.Context, holdings []models.Holding) (string, error) {
	holdings = allocation.NormalizeAll(holdings)
	industries := allocation.IndustryAllocation(holdings)
	classes := allocation.AssetClassAllocation(holdings)
	summary := allocation.Summarize(holdings)

	if len(industries) == 0 {
		return "- Your portfolio is empty. Add holdings to see allocation insights.", nil
	}

	var lines []string

	top := industries[0]
	for _, slice := range industries[1:] {
		if slice.Value > top.Value {
			top = slice
		}
	}
	lines = append(lines, fmt.Sprintf("- %s is your largest sector at %.2f%% of the portfolio.", top.Name, top.Percentage))

	if top.Percentage > 50 {
		lines = append(lines, fmt.Sprintf("- Over half of your portfolio sits in %s. Consider diversifying into other sectors.", top.Name))
	} else if len(industries) >= 5 {
		lines = append(lines, fmt.Sprintf("- Your portfolio spans %d sectors, which spreads sector-specific risk.", len(industries)))
	}

	if len(classes) == 1 {
		lines = append(lines, fmt.Sprintf("- All holdings are %s. Mixing asset classes can reduce volatility.", classes[0].Name))
	} else {
		parts := make([]string, 0, len(classes))
		for _, slice := range classes {
			parts = append(parts, fmt.Sprintf("%s %.2f%%", slice.Name, slice.Percentage))
		}
		lines = append(lines, "- Asset mix: "+strings.Join(parts, ", ")+".")
	}

	if summary.TotalValue > 0 {
		lines = append(lines, fmt.Sprintf("- Total portfolio value is $%.2f across %d holdings.", summary.TotalValue, len(holdings)))
	}

	return strings.Join(lines, "\n"), nil
}

// OpenAIGenerator asks an LLM for insight text and falls back to the
// canned generator on any error, so callers always get a result.
type OpenAIGenerator struct {
	client   *openai.Client
	model    string
	fallback *CannedGenerator
	logger   zerolog.Logger
}

// NewOpenAIGenerator creates an LLM-backed generator.
func NewOpenAIGenerator(apiKey, model string, logger zerolog.Logger) *OpenAIGenerator {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIGenerator{
		client:   openai.NewClient(apiKey),
		model:    model,
		fallback: NewCannedGenerator(),
		logger:   logger,
	}
}

const systemPrompt = `You are a portfolio analyst. Given a portfolio allocation breakdown,
write 3-5 short bullet-point insights about diversification, concentration,
and asset mix. Be factual and concise. Do not give buy or sell advice.`

// Generate asks the LLM for insights. On any failure the canned
// generator's answer is returned instead, with a nil error.
func (g *OpenAIGenerator) Generate(ctx context.Context, holdings []models.Holding) (string, error) {
	prompt := buildPrompt(holdings)

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		g.logger.Warn().Err(err).Msg("LLM insight generation failed, using canned fallback")
		return g.fallback.Generate(ctx, holdings)
	}
	if len(resp.Choices) == 0 {
		g.logger.Warn().Msg("LLM returned no choices, using canned fallback")
		return g.fallback.Generate(ctx, holdings)
	}
	return resp.Choices[0].Message.Content, nil
}

func buildPrompt(holdings []models.Holding) string {
	holdings = allocation.NormalizeAll(holdings)
	industries := allocation.IndustryAllocation(holdings)
	classes := allocation.AssetClassAllocation(holdings)
	summary := allocation.Summarize(holdings)

	var b strings.Builder
	fmt.Fprintf(&b, "Total value: $%.2f\n\nSector allocation:\n", summary.TotalValue)
	for _, slice := range industries {
		fmt.Fprintf(&b, "- %s: %.2f%% ($%.2f)\n", slice.Name, slice.Percentage, slice.Value)
	}
	b.WriteString("\nAsset class allocation:\n")
	for _, slice := range classes {
		fmt.Fprintf(&b, "- %s: %.2f%% ($%.2f)\n", slice.Name, slice.Percentage, slice.Value)
	}
	return b.String()
}
