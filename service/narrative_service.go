package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"sort"
	"strings"
	"time"

	"credit-risk/domain"

	"go.uber.org/zap"
)

type NarrativeConfig struct {
	Enabled bool
	APIURL  string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// NarrativeService writes a short plain-English explanation of an assessment.
// It calls an OpenAI-compatible chat completion endpoint when enabled and
// falls back to a fixed template otherwise.
type NarrativeService struct {
	cfg        NarrativeConfig
	httpClient *http.Client
	logger     *zap.Logger
}

type ChatRequest struct {
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens,omitempty"`
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

const narrativeSystemPrompt = "You are a credit analyst at a retail bank. You explain model-based credit risk assessments to loan officers in clear, neutral English. You never invent figures that are not in the prompt and you do not give legal advice."

func NewNarrativeService(cfg NarrativeConfig, logger *zap.Logger) *NarrativeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &NarrativeService{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

func (s *NarrativeService) Enabled() bool {
	return s.cfg.Enabled && s.cfg.APIKey != ""
}

// Narrate returns the explanation text; it never fails.
func (s *NarrativeService) Narrate(ctx context.Context, a domain.Assessment) string {
	if !s.Enabled() {
		return FallbackNarrative(a)
	}

	text, err := s.callLLM(ctx, buildNarrativePrompt(a))
	if err != nil {
		s.logger.Warn("narrative request failed, using template", zap.Error(err))
		return FallbackNarrative(a)
	}
	return text
}

func buildNarrativePrompt(a domain.Assessment) string {
	var inputs strings.Builder
	for _, r := range a.Inputs {
		fmt.Fprintf(&inputs, "- %s: %s\n", r.Title, r.Value)
	}
	var factors strings.Builder
	for _, c := range a.Explanation.Contributions {
		fmt.Fprintf(&factors, "- %s: %+.3f\n", contributionLabel(c), c.Shap)
	}

	return fmt.Sprintf(`A gradient-boosted model assessed a bank client.

RESULT: %s
Model base value (log-odds): %.3f
Model output (log-odds): %.3f

CLIENT DATA:
%s
FEATURE CONTRIBUTIONS (log-odds, positive raises risk):
%s
INSTRUCTIONS:
1. State the result and the probability.
2. Name the two or three factors that moved the score the most and in which direction.
3. Keep it to 3 sentences.`,
		a.Summary, a.Explanation.BaseValue, a.Explanation.OutputValue,
		inputs.String(), factors.String())
}

func (s *NarrativeService) callLLM(ctx context.Context, prompt string) (string, error) {
	reqBody := ChatRequest{
		Model: s.cfg.Model,
		Messages: []Message{
			{Role: "system", Content: narrativeSystemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens: NarrativeMaxTokens,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.APIURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	var chatResp ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", err
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no response from model")
	}

	text := strings.TrimSpace(chatResp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("empty response from model")
	}
	return text, nil
}

func contributionLabel(c domain.Contribution) string {
	if c.Value == "" {
		return c.Feature
	}
	return c.Feature + " = " + c.Value
}

// FallbackNarrative summarizes the assessment from its strongest attributions.
func FallbackNarrative(a domain.Assessment) string {
	type factor struct {
		label string
		shap  float64
	}
	var factors []factor
	for _, c := range a.Explanation.Contributions {
		// aggregated rows carry no value
		if c.Value == "" {
			continue
		}
		factors = append(factors, factor{contributionLabel(c), c.Shap})
	}
	sort.SliceStable(factors, func(i, j int) bool {
		return math.Abs(factors[i].shap) > math.Abs(factors[j].shap)
	})
	if len(factors) > NarrativeTopFeatures {
		factors = factors[:NarrativeTopFeatures]
	}

	var raising, lowering []string
	for _, f := range factors {
		switch {
		case f.shap > 0:
			raising = append(raising, f.label)
		case f.shap < 0:
			lowering = append(lowering, f.label)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "The client was assessed as a %s with a probability of %s.",
		strings.ToLower(a.RiskClass.Headline()), FormatPercent(a.Confidence))
	if len(raising) > 0 {
		fmt.Fprintf(&b, " Factors raising the risk: %s.", strings.Join(raising, ", "))
	}
	if len(lowering) > 0 {
		fmt.Fprintf(&b, " Factors lowering the risk: %s.", strings.Join(lowering, ", "))
	}
	return b.String()
}
