package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/ssestream"
	"github.com/openai/openai-go/shared"

	"debateai/internal/apperrors"
	"debateai/pkg/config"
)

const shortTitleTool = "generate_short_debate_name"

// OpenAIProvider 透過官方 SDK 呼叫 OpenAI 相容的 chat completions API
type OpenAIProvider struct {
	client openai.Client
	logger *slog.Logger
}

func NewOpenAIProvider(cfg config.OpenAIConfig, logger *slog.Logger, extra ...option.RequestOption) *OpenAIProvider {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	for key, value := range cfg.Headers {
		opts = append(opts, option.WithHeader(key, value))
	}
	opts = append(opts, extra...)

	return &OpenAIProvider{
		client: openai.NewClient(opts...),
		logger: logger,
	}
}

// StreamCompletion 開啟串流並先讀取第一段輸出，
// 讓審查拒絕或連線錯誤在寫出任何內容前就能回報
func (p *OpenAIProvider) StreamCompletion(ctx context.Context, req CompletionRequest) (Stream, error) {
	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(req.Model),
		Messages: toOpenAIMessages(req.Messages),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	p.logger.Debug("opening completion stream",
		"model", req.Model, "messages", len(req.Messages), "max_tokens", req.MaxTokens)

	stream := p.client.Chat.Completions.NewStreaming(ctx, params, metadataOptions(req.Metadata)...)

	s := &openAIStream{stream: stream}
	if !s.advance() {
		err := stream.Err()
		if err == nil && s.filtered {
			_ = stream.Close()
			return nil, fmt.Errorf("%w: response blocked by content filter", apperrors.ErrProviderRejected)
		}
		if err == nil {
			// 沒有任何輸出就結束，視為空回覆
			s.done = true
			return s, nil
		}
		_ = stream.Close()
		return nil, classifyError(ctx, err)
	}
	return s, nil
}

// ShortTitle 以 function calling 產生約三個字的辯論標題
func (p *OpenAIProvider) ShortTitle(ctx context.Context, model, topic string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(fmt.Sprintf(`Please provide a short debate name for the topic: """%s"""`, topic)),
		},
		Tools: []openai.ChatCompletionToolParam{{
			Function: shared.FunctionDefinitionParam{
				Name:        shortTitleTool,
				Description: openai.String("Generate a short debate name based on a topic."),
				Parameters: shared.FunctionParameters{
					"type": "object",
					"properties": map[string]any{
						"topic": map[string]any{
							"type":        "string",
							"description": "The debate topic. Try to keep it around 3 words. Remove unnecessary words.",
						},
					},
					"required": []string{"topic"},
				},
			},
		}},
		ToolChoice: openai.ChatCompletionToolChoiceOptionUnionParam{
			OfChatCompletionNamedToolChoice: &openai.ChatCompletionNamedToolChoiceParam{
				Function: openai.ChatCompletionNamedToolChoiceFunctionParam{Name: shortTitleTool},
			},
		},
		MaxTokens: openai.Int(100),
	}

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", classifyError(ctx, err)
	}
	if len(completion.Choices) == 0 || len(completion.Choices[0].Message.ToolCalls) == 0 {
		return "", errors.New("model returned no debate name")
	}

	var result struct {
		Topic string `json:"topic"`
	}
	if err := json.Unmarshal([]byte(completion.Choices[0].Message.ToolCalls[0].Function.Arguments), &result); err != nil {
		return "", fmt.Errorf("parse debate name: %w", err)
	}
	return CleanTitle(result.Topic), nil
}

var (
	surroundingQuotes = regexp.MustCompile(`^["']|["']$`)
	debateNamePrefix  = regexp.MustCompile(`^Debate Name: `)
)

// CleanTitle 移除模型常加上的引號與 "Debate Name: " 前綴
func CleanTitle(title string) string {
	title = surroundingQuotes.ReplaceAllString(title, "")
	title = debateNamePrefix.ReplaceAllString(title, "")
	return strings.TrimSpace(title)
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

func metadataOptions(metadata map[string]string) []option.RequestOption {
	opts := make([]option.RequestOption, 0, len(metadata))
	for key, value := range metadata {
		if value != "" {
			opts = append(opts, option.WithHeader(key, value))
		}
	}
	return opts
}

// classifyError 將 SDK 錯誤轉為 apperrors 分類
func classifyError(ctx context.Context, err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("%w: %w: %v", apperrors.ErrProviderRejected, apperrors.ErrRateLimited, err)
		case apiErr.StatusCode >= 500:
			return fmt.Errorf("%w: %v", apperrors.ErrProviderUnavailable, err)
		default:
			return fmt.Errorf("%w: %v", apperrors.ErrProviderRejected, err)
		}
	}
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrProviderUnavailable, ctx.Err())
	}
	return fmt.Errorf("%w: %v", apperrors.ErrProviderUnavailable, err)
}

const finishContentFilter = "content_filter"

type openAIStream struct {
	stream  *ssestream.Stream[openai.ChatCompletionChunk]
	pending string
	primed  bool
	done    bool
	// filtered 表示供應商以 content_filter 結束這次輸出
	filtered bool
}

// advance 讀到下一段非空內容為止
func (s *openAIStream) advance() bool {
	for s.stream.Next() {
		chunk := s.stream.Current()
		if len(chunk.Choices) > 0 && chunk.Choices[0].FinishReason == finishContentFilter {
			s.filtered = true
		}
		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
			continue
		}
		s.pending = chunk.Choices[0].Delta.Content
		s.primed = true
		return true
	}
	return false
}

func (s *openAIStream) Recv() (string, error) {
	if s.done {
		return "", io.EOF
	}
	if s.primed {
		s.primed = false
		return s.pending, nil
	}
	if s.advance() {
		s.primed = false
		return s.pending, nil
	}
	s.done = true
	if err := s.stream.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func (s *openAIStream) Close() error {
	s.done = true
	return s.stream.Close()
}
