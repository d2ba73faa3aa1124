package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/sitescope/sitescope/config"
	"github.com/sitescope/sitescope/internal/agent/telemetry"
)

// NewAgent constructs the agent for one type. Dispatch is a closed
// mapping from tag to pipeline; unknown tags are a programming error.
func NewAgent(t AgentType, cfg *config.Config, llm LLMProvider, tele *telemetry.Telemetry, business BusinessContext, baseline BaselineMetrics, sink ProgressSink) (Agent, error) {
	a := &analysisAgent{
		agentType: t,
		cfg:       cfg,
		llm:       llm,
		telemetry: tele,
		logger:    log.New(log.Writer(), fmt.Sprintf("[%s-AGENT] ", t), log.LstdFlags),
		extractor: NewInsightExtractor(minInsightLength(cfg)),
		business:  business,
		baseline:  baseline,
		sink:      sink,
	}

	switch t {
	case AgentTechnical:
		a.stages = technicalStages()
		a.fallbackOnLLMError = true
		a.fallbackInsights = []string{
			"Run a full crawl to surface broken links and redirect chains",
			"Review robots.txt and canonical tags for indexing conflicts",
		}
	case AgentContent:
		a.stages = contentStages()
	case AgentCompetitor:
		a.stages = competitorStages()
	case AgentKeyword:
		a.stages = keywordStages()
		a.fallbackOnLLMError = true
		a.fallbackInsights = []string{
			"Expand long-tail coverage around the highest-volume ranking terms",
		}
	case AgentSERP:
		a.stages = serpStages()
		a.fallbackOnLLMError = true
		a.fallbackInsights = []string{
			"Target the missing SERP features with structured data and a business profile",
		}
	case AgentUX:
		a.stages = uxStages()
	default:
		return nil, fmt.Errorf("unknown agent type: %s", t)
	}
	return a, nil
}

func minInsightLength(cfg *config.Config) int {
	if cfg != nil && cfg.Agents.MinInsightLength > 0 {
		return cfg.Agents.MinInsightLength
	}
	return 10
}

// NewLLMProvider creates the generative provider from configuration.
func NewLLMProvider(cfg config.LLMConfig, tele *telemetry.Telemetry) (LLMProvider, error) {
	switch cfg.Provider {
	case "", "openai":
		return NewOpenAIProvider(cfg, tele), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider type: %s", cfg.Provider)
	}
}

// OpenAIProvider implements LLMProvider against an OpenAI-compatible
// chat completions endpoint.
type OpenAIProvider struct {
	config    config.LLMConfig
	telemetry *telemetry.Telemetry
	client    *http.Client
}

// NewOpenAIProvider creates a new OpenAI provider.
func NewOpenAIProvider(cfg config.LLMConfig, tele *telemetry.Telemetry) *OpenAIProvider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OpenAIProvider{
		config:    cfg,
		telemetry: tele,
		client:    &http.Client{Timeout: timeout},
	}
}

// Generate issues one chat completion bounded by maxTokens.
func (p *OpenAIProvider) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	start := time.Now()
	text, tokens, err := p.generate(ctx, prompt, maxTokens)
	if p.telemetry != nil {
		p.telemetry.RecordLLMEvent(telemetry.LLMEvent{
			Model:      p.config.Model,
			Success:    err == nil,
			TokensUsed: tokens,
			Duration:   time.Since(start),
		})
	}
	return text, err
}

func (p *OpenAIProvider) generate(ctx context.Context, prompt string, maxTokens int) (string, int64, error) {
	apiKey := p.config.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return "", 0, fmt.Errorf("OpenAI API key not configured")
	}

	type chatMsg struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	type chatReq struct {
		Model       string    `json:"model"`
		Messages    []chatMsg `json:"messages"`
		Temperature float64   `json:"temperature,omitempty"`
		MaxTokens   int       `json:"max_tokens,omitempty"`
	}

	body, err := json.Marshal(chatReq{
		Model:       p.config.Model,
		Messages:    []chatMsg{{Role: "user", Content: prompt}},
		Temperature: p.config.Temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", 0, fmt.Errorf("marshal: %w", err)
	}

	baseURL := p.config.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	req, err := http.NewRequestWithContext(ctx, "POST", baseURL+"/chat/completions", bytes.NewBuffer(body))
	if err != nil {
		return "", 0, fmt.Errorf("request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("do: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("OpenAI status %d", resp.StatusCode)
	}

	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			TotalTokens int `json:"total_tokens"`
		} `json:"usage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", 0, fmt.Errorf("decode: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", 0, fmt.Errorf("no choices")
	}
	return out.Choices[0].Message.Content, int64(out.Usage.TotalTokens), nil
}

// extractFirstJSON finds the first top-level JSON object in a string.
func extractFirstJSON(s string) string {
	return extractBalanced(s, '{', '}')
}

// extractFirstJSONArray finds the first top-level JSON array in a string.
func extractFirstJSONArray(s string) string {
	return extractBalanced(s, '[', ']')
}

func extractBalanced(s string, open, close rune) string {
	start := -1
	depth := 0
	inString := false
	escaped := false
	for i, ch := range s {
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			if depth > 0 {
				inString = true
			}
		case open:
			if depth == 0 {
				start = i
			}
			depth++
		case close:
			if depth > 0 {
				depth--
			}
			if depth == 0 && start != -1 {
				return s[start : i+1]
			}
		}
	}
	return s
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
