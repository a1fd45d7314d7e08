// Package gemini implements the llm.Generator interface using the Gemini
// generateContent REST API.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nadzzz/echoline/internal/config"
	"github.com/nadzzz/echoline/internal/llm"
	"github.com/nadzzz/echoline/internal/provider"
)

const (
	name           = "gemini"
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel   = "gemini-2.5-flash"
	defaultStyle   = "You are a concise, helpful assistant."
	timeout        = 60 * time.Second
)

// Client calls models/{model}:generateContent.
type Client struct {
	apiKey  string
	baseURL string
	model   string
	style   string
	client  *http.Client
}

// New creates a Gemini client from config.
func New(cfg config.GeminiConfig) *Client {
	c := &Client{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		style:   cfg.SystemStyle,
		client:  &http.Client{Timeout: timeout},
	}
	if c.baseURL == "" {
		c.baseURL = defaultBaseURL
	}
	if c.model == "" {
		c.model = defaultModel
	}
	if c.style == "" {
		c.style = defaultStyle
	}
	return c
}

// Name returns the backend identifier.
func (c *Client) Name() string { return name }

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type request struct {
	Contents []content `json:"contents"`
}

type response struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Generate sends a single user turn whose text is the style line followed by
// "User: <text>". All text parts of all candidates are joined.
func (c *Client) Generate(ctx context.Context, userText, systemStyle string) (llm.Reply, error) {
	if c.apiKey == "" {
		return llm.Fallback, provider.MissingKey(name, "GEMINI_API_KEY")
	}
	if systemStyle == "" {
		systemStyle = c.style
	}

	reqBody := request{
		Contents: []content{{
			Role:  "user",
			Parts: []part{{Text: systemStyle + "\nUser: " + userText}},
		}},
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return llm.Fallback, fmt.Errorf("marshalling request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, url.PathEscape(c.model), url.QueryEscape(c.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return llm.Fallback, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		// The URL carries the key; report the failure without it.
		return llm.Fallback, fmt.Errorf("generate request: %w", redact(err))
	}
	defer resp.Body.Close()

	if !provider.OK(resp.StatusCode) {
		return llm.Fallback, provider.FromResponse(name, resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return llm.Fallback, fmt.Errorf("reading response: %w", err)
	}

	text := joinText(body)
	if text == "" {
		slog.Warn("model returned no text, using fallback reply", "backend", name, "model", c.model)
		return llm.Fallback, nil
	}
	slog.Debug("reply generated", "backend", name, "text_length", len(text))
	return llm.Reply{Text: text}, nil
}

// joinText concatenates every candidate part's text. Undecodable bodies
// yield "".
func joinText(body []byte) string {
	var r response
	if err := json.Unmarshal(body, &r); err != nil {
		return ""
	}
	var sb strings.Builder
	for _, cand := range r.Candidates {
		for _, p := range cand.Content.Parts {
			sb.WriteString(p.Text)
		}
	}
	return strings.TrimSpace(sb.String())
}

// redact strips the request URL from a *url.Error.
func redact(err error) error {
	if uerr, ok := err.(*url.Error); ok {
		return fmt.Errorf("%s: %w", uerr.Op, uerr.Err)
	}
	return err
}
