// Package judge validates transcribed answers with an OpenAI-compatible
// chat-completions model.
package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Pratham-Aggarwal22/NTHSPipeline/internal/survey"
)

const defaultEndpoint = "https://api.openai.com/v1/chat/completions"

const systemPrompt = "You are validating answers in a phone survey. " +
	"You are given the survey question and the caller's transcribed answer. " +
	"If the answer clearly addresses the question, reply with exactly one line: " +
	"VALID: <the answer, normalized for storage>. " +
	"If the answer is unclear, off-topic, or missing details, reply with exactly one line: " +
	"FOLLOWUP: <one short clarifying question to ask the caller>. " +
	"Never reply with anything else."

// Client calls a chat-completions endpoint and maps the reply onto the
// survey's tagged judgment result.
type Client struct {
	HTTPClient *http.Client
	APIKey     string
	Model      string
	Endpoint   string
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionsRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	FinishReason string      `json:"finish_reason"`
	Message      chatMessage `json:"message"`
}

type chatCompletionsResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
}

// NewClient builds a judge against the given model. An empty endpoint uses
// the OpenAI API.
func NewClient(apiKey, model, endpoint string) *Client {
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	return &Client{
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
		APIKey:     apiKey,
		Model:      model,
		Endpoint:   endpoint,
	}
}

// Evaluate judges one answer against its question.
func (c *Client) Evaluate(ctx context.Context, prompt, answer string) (survey.Evaluation, error) {
	reply, err := c.complete(ctx, fmt.Sprintf("Question: %s\nAnswer: %s", prompt, answer))
	if err != nil {
		return survey.Evaluation{}, err
	}
	return parseVerdict(reply, answer)
}

func (c *Client) complete(ctx context.Context, userContent string) (string, error) {
	if c.APIKey == "" {
		return "", fmt.Errorf("judge: api key missing")
	}

	messages := []chatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: userContent},
	}
	reqBody, _ := json.Marshal(chatCompletionsRequest{
		Model:     c.Model,
		Messages:  messages,
		MaxTokens: 100,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("judge: status=%d body=%s", resp.StatusCode, string(b))
	}
	var cr chatCompletionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", err
	}
	if len(cr.Choices) == 0 {
		return "", fmt.Errorf("judge: empty choices")
	}
	return strings.TrimSpace(cr.Choices[0].Message.Content), nil
}

// parseVerdict maps the model's reply onto the tagged result. Models
// occasionally ignore the output contract; a bare reply ending in a question
// mark still reads as a follow-up, anything else is the error outcome.
func parseVerdict(reply, originalAnswer string) (survey.Evaluation, error) {
	trimmed := strings.TrimSpace(reply)
	upper := strings.ToUpper(trimmed)
	switch {
	case strings.HasPrefix(upper, "VALID:"):
		value := strings.TrimSpace(trimmed[len("VALID:"):])
		if value == "" {
			value = originalAnswer
		}
		return survey.Evaluation{Outcome: survey.OutcomeAccepted, Value: value}, nil
	case strings.HasPrefix(upper, "FOLLOWUP:"):
		followUp := strings.TrimSpace(trimmed[len("FOLLOWUP:"):])
		if followUp == "" {
			return survey.Evaluation{}, fmt.Errorf("judge: empty follow-up in %q", reply)
		}
		return survey.Evaluation{Outcome: survey.OutcomeFollowUp, FollowUp: followUp}, nil
	case strings.HasSuffix(trimmed, "?"):
		return survey.Evaluation{Outcome: survey.OutcomeFollowUp, FollowUp: trimmed}, nil
	default:
		return survey.Evaluation{}, fmt.Errorf("judge: unparseable verdict %q", reply)
	}
}
