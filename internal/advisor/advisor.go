// Package advisor integrates an external LLM strategist as a second opinion
// on top of the local decision pipeline. The advisor is strictly optional:
// every failure mode (timeout, transport error, malformed output) degrades to
// "no opinion" and the caller proceeds with the local decision alone.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	json "github.com/bytedance/sonic"
	"github.com/kaptinlin/jsonrepair"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"
	"github.com/samber/lo"

	"trading-enginev1/internal/model"
)

// Advisor produces an independent trading decision for the given market
// context. A nil decision with nil error means the advisor has no opinion.
type Advisor interface {
	Name() string
	Decide(ctx context.Context, mc model.MarketContext, local model.Decision) (*model.Decision, error)
}

// ErrNoOpinion is returned when the advisor explicitly declines to weigh in.
var ErrNoOpinion = errors.New("advisor: no opinion")

// Config holds the LLM client settings. BaseURL may point at any
// OpenAI-compatible endpoint.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

func (c Config) withDefaults() Config {
	if c.Model == "" {
		c.Model = "gpt-4o-mini"
	}
	if c.Temperature == 0 {
		c.Temperature = 0.2
	}
	if c.Timeout == 0 {
		c.Timeout = 10 * time.Second
	}
	return c
}

// LLMAdvisor asks a chat-completion model for a structured trading decision.
type LLMAdvisor struct {
	client       openai.Client
	cfg          Config
	lastAnalysis string
}

func NewLLM(cfg Config) (*LLMAdvisor, error) {
	cfg = cfg.withDefaults()
	if cfg.APIKey == "" {
		return nil, errors.New("advisor: api key required")
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &LLMAdvisor{
		client: openai.NewClient(opts...),
		cfg:    cfg,
	}, nil
}

func (a *LLMAdvisor) Name() string { return "llm:" + a.cfg.Model }

// Decide sends the market snapshot to the model and parses its JSON verdict.
// The request is bounded by the configured timeout regardless of the parent
// context's deadline.
func (a *LLMAdvisor) Decide(ctx context.Context, mc model.MarketContext, local model.Decision) (*model.Decision, error) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	userPrompt, err := buildUserPrompt(mc, local, a.lastAnalysis)
	if err != nil {
		return nil, fmt.Errorf("advisor: build prompt: %w", err)
	}

	param := openai.ChatCompletionNewParams{
		Model: a.cfg.Model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
		Temperature: openai.Float(a.cfg.Temperature),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: lo.ToPtr(shared.NewResponseFormatJSONObjectParam()),
		},
	}

	completion, err := a.client.Chat.Completions.New(ctx, param)
	if err != nil {
		return nil, fmt.Errorf("advisor: completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, errors.New("advisor: empty completion")
	}

	verdict, err := parseVerdict(completion.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	a.lastAnalysis = verdict.Analysis

	return verdict.decision(a.Name())
}

// verdict is the wire shape the model is instructed to return.
type verdict struct {
	Action     string  `json:"action"`
	Confidence float64 `json:"confidence"`
	SizePct    float64 `json:"size_pct"`
	Reason     string  `json:"reason"`
	Analysis   string  `json:"analysis"`
}

func parseVerdict(content string) (verdict, error) {
	repaired, err := jsonrepair.JSONRepair(content)
	if err != nil {
		return lo.Empty[verdict](), fmt.Errorf("advisor: repair json: %w", err)
	}
	var v verdict
	if err := json.UnmarshalString(repaired, &v); err != nil {
		return lo.Empty[verdict](), fmt.Errorf("advisor: parse verdict: %w", err)
	}
	return v, nil
}

func (v verdict) decision(source string) (*model.Decision, error) {
	action := model.Action(strings.ToLower(strings.TrimSpace(v.Action)))
	if action == "skip" || action == "" {
		return nil, ErrNoOpinion
	}
	if !model.ValidAction(action) {
		return nil, fmt.Errorf("advisor: unknown action %q", v.Action)
	}
	if v.Confidence < 0 || v.Confidence > 1 {
		return nil, fmt.Errorf("advisor: confidence %v out of range", v.Confidence)
	}
	if v.SizePct < 0 {
		return nil, fmt.Errorf("advisor: negative size %v", v.SizePct)
	}
	return &model.Decision{
		Action:     action,
		Confidence: v.Confidence,
		SizePct:    v.SizePct,
		Source:     source,
		Reason:     strings.TrimSpace(v.Reason),
	}, nil
}
