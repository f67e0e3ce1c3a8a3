package summary

import (
	"context"
	"fmt"
	"strings"

	"tickerpulse/internal/domain"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	systemPrompt  = "You summarize retail investor discussion about a stock in one short paragraph. Mention the prevailing mood and the recurring topics. Do not give investment advice."
	maxTitleChars = 200
)

// LLMClient abstracts the OpenAI chat completions API for testability.
type LLMClient interface {
	CreateChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error)
}

type Summarizer struct {
	tracer trace.Tracer
	llm    LLMClient
	model  string
}

func New(tracer trace.Tracer, llm LLMClient, model string) *Summarizer {
	if strings.TrimSpace(model) == "" {
		model = "gpt-4o-mini"
	}
	return &Summarizer{tracer: tracer, llm: llm, model: model}
}

// Summarize asks the model for a paragraph covering items. Callers pass
// the most recent posts first.
func (s *Summarizer) Summarize(ctx context.Context, symbol string, items []domain.ContentItem) (string, error) {
	ctx, span := s.tracer.Start(ctx, "summary.summarize")
	defer span.End()
	span.SetAttributes(
		attribute.String("symbol", symbol),
		attribute.String("llm.model", s.model),
		attribute.Int("posts", len(items)),
	)

	if len(items) == 0 {
		return "", nil
	}

	completion, err := s.llm.CreateChatCompletion(ctx, openai.ChatCompletionNewParams{
		Model: s.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(BuildPrompt(symbol, items)),
		},
	})
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("summarize %s: %w", symbol, err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("no choices in LLM response")
	}

	reply := strings.TrimSpace(completion.Choices[0].Message.Content)
	span.SetAttributes(attribute.Int("llm.reply_length", len(reply)))
	return reply, nil
}

// BuildPrompt lists each post as its title followed by its compound score.
func BuildPrompt(symbol string, items []domain.ContentItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Summarize these posts about %s. Each line is a title and its sentiment score in [-1, 1].\n", symbol)
	for _, item := range items {
		title := strings.TrimSpace(item.Title)
		if runes := []rune(title); len(runes) > maxTitleChars {
			title = string(runes[:maxTitleChars])
		}
		fmt.Fprintf(&b, "- %s (%.2f)\n", title, item.Score)
	}
	return b.String()
}

type openaiClient struct {
	client openai.Client
}

func NewOpenAIClient(apiKey string) LLMClient {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &openaiClient{client: client}
}

func (c *openaiClient) CreateChatCompletion(
	ctx context.Context,
	params openai.ChatCompletionNewParams,
) (*openai.ChatCompletion, error) {
	return c.client.Chat.Completions.New(ctx, params)
}
