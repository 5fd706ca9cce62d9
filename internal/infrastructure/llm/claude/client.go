package claude

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"golang.org/x/time/rate"

	"github.com/graymont/bidpipe/internal/core/domain"
	"github.com/graymont/bidpipe/internal/core/ports"
)

const DefaultModel = "claude-sonnet-4-5-20250929"

// Client adapts the Anthropic Messages API to the DocumentModel port.
// It owns page encoding and the per-call wall-clock limit; it does
// NOT retry. A failed call propagates to the orchestrator, which
// decides whether the unit is skippable.
type Client struct {
	client      anthropic.Client
	model       string
	maxTokens   int64
	callTimeout time.Duration
	limiter     *rate.Limiter
}

type Config struct {
	APIKey      string
	Model       string
	MaxTokens   int64
	CallTimeout time.Duration
	// CallsPerMinute paces outbound requests client-side; zero
	// disables pacing.
	CallsPerMinute int
}

func New(cfg Config) *Client {
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 8192
	}
	callTimeout := cfg.CallTimeout
	if callTimeout <= 0 {
		callTimeout = 120 * time.Second
	}

	var limiter *rate.Limiter
	if cfg.CallsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.CallsPerMinute)/60.0), cfg.CallsPerMinute)
	}

	return &Client{
		client:      anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:       model,
		maxTokens:   maxTokens,
		callTimeout: callTimeout,
		limiter:     limiter,
	}
}

func (c *Client) Extract(ctx context.Context, req ports.ModelRequest) (*ports.ModelResponse, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	blocks, err := encodeDocuments(req.Documents)
	if err != nil {
		return nil, err
	}
	blocks = append(blocks, anthropic.NewTextBlock(req.Instructions))

	message, err := c.client.Messages.New(callCtx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt(req.Kind), CacheControl: anthropic.NewCacheControlEphemeralParam()},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(blocks...),
		},
	})
	if err != nil {
		return nil, wrapCallError(req.Kind, err)
	}

	usage := domain.TokenUsage{
		InputTokens:         message.Usage.InputTokens,
		OutputTokens:        message.Usage.OutputTokens,
		CacheReadTokens:     message.Usage.CacheReadInputTokens,
		CacheCreationTokens: message.Usage.CacheCreationInputTokens,
	}

	for _, block := range message.Content {
		if block.Type == "text" {
			return &ports.ModelResponse{Text: block.Text, Model: c.model, Usage: usage}, nil
		}
	}
	return nil, fmt.Errorf("claude %s: no text content in response", req.Kind)
}

// encodeDocuments turns prepared documents into message blocks: images
// travel base64-encoded, everything else as per-page extracted text.
func encodeDocuments(docs []ports.ModelDocument) ([]anthropic.ContentBlockParamUnion, error) {
	var blocks []anthropic.ContentBlockParamUnion
	for _, doc := range docs {
		if len(doc.ImageData) > 0 {
			mediaType := doc.MimeType
			if !strings.HasPrefix(mediaType, "image/") {
				return nil, fmt.Errorf("document %s: cannot send %q as image", doc.Name, doc.MimeType)
			}
			encoded := base64.StdEncoding.EncodeToString(doc.ImageData)
			blocks = append(blocks, anthropic.NewImageBlockBase64(mediaType, encoded))
			continue
		}

		var b strings.Builder
		fmt.Fprintf(&b, "Document: %s\n", doc.Name)
		for i, page := range doc.PageTexts {
			fmt.Fprintf(&b, "\n--- Page %d ---\n%s\n", i+1, page)
		}
		blocks = append(blocks, anthropic.NewTextBlock(b.String()))
	}
	return blocks, nil
}

func systemPrompt(kind domain.ResponseKind) string {
	switch kind {
	case domain.KindReview:
		return "You are a senior construction estimator reviewing an automated bid extraction for completeness and consistency. Respond only with the requested JSON."
	case domain.KindCorrelation:
		return "You are a senior construction estimator correlating bid scope across multiple construction documents. Respond only with the requested JSON."
	default:
		return "You are a construction preconstruction analyst extracting structured bid data from drawings, specifications and addenda. Respond only with the requested JSON."
	}
}
