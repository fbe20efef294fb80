package summary

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

const (
	anthropicMessagesURL = "https://api.anthropic.com/v1/messages"
	anthropicVersion     = "2023-06-01"
	openAIChatURL        = "https://api.openai.com/v1/chat/completions"

	hostedMinMaxTokens = 64
	hostedTemperature  = 0.2
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (g *Generator) callAnthropic(ctx context.Context, prompt, model string) (string, error) {
	body := map[string]any{
		"model":       model,
		"max_tokens":  max(hostedMinMaxTokens, g.cfg.MaxTokens),
		"temperature": hostedTemperature,
		"messages":    []chatMessage{{Role: "user", Content: prompt}},
	}
	headers := map[string]string{
		"x-api-key":         g.cfg.AnthropicKey,
		"anthropic-version": anthropicVersion,
	}
	var resp struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := g.postJSON(ctx, g.anthropicURL, headers, body, &resp); err != nil {
		return "", err
	}
	if len(resp.Content) == 0 {
		return "", errors.New("anthropic: empty content")
	}
	return resp.Content[0].Text, nil
}

func (g *Generator) callOpenAI(ctx context.Context, prompt, model string) (string, error) {
	body := map[string]any{
		"model":       model,
		"messages":    []chatMessage{{Role: "user", Content: prompt}},
		"max_tokens":  max(hostedMinMaxTokens, g.cfg.MaxTokens),
		"temperature": hostedTemperature,
	}
	headers := map[string]string{
		"Authorization": "Bearer " + g.cfg.OpenAIKey,
	}
	var resp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := g.postJSON(ctx, g.openAIURL, headers, body, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: empty choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func (g *Generator) postJSON(ctx context.Context, url string, headers map[string]string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("summary api: %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
