package ai

import (
	"strings"
)

const defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

type openrouterConfig struct {
	APIKey      string `json:"api_key"`
	BaseURL     string `json:"base_url"`
	HTTPReferer string `json:"http_referer"`
	XTitle      string `json:"x_title"`
}

// OpenRouter speaks the OpenAI wire protocol, so the provider reuses the
// openai transport with a different base URL and attribution headers.
func createOpenRouterFactory(args interface{}) (IProvider, error) {
	cfg := &openrouterConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultOpenRouterBaseURL
	}
	headers := make(map[string]string)
	if referer := strings.TrimSpace(cfg.HTTPReferer); referer != "" {
		headers["HTTP-Referer"] = referer
	}
	if title := strings.TrimSpace(cfg.XTitle); title != "" {
		headers["X-Title"] = title
	}
	return &openAIProvider{
		name:    "openrouter",
		apiKey:  strings.TrimSpace(cfg.APIKey),
		baseURL: baseURL,
		headers: headers,
	}, nil
}

func init() {
	Register("openrouter", createOpenRouterFactory)
}
