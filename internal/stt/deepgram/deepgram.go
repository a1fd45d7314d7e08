// Package deepgram implements the stt.Transcriber interface using Deepgram's
// pre-recorded audio endpoint.
package deepgram

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
	"github.com/nadzzz/echoline/internal/provider"
	"github.com/nadzzz/echoline/internal/stt"
)

const (
	name           = "deepgram"
	defaultBaseURL = "https://api.deepgram.com"
	defaultModel   = "nova-3"
	timeout        = 60 * time.Second
)

// Client calls the Deepgram /v1/listen API.
type Client struct {
	apiKey       string
	baseURL      string
	model        string
	sendLanguage bool
	client       *http.Client
}

// New creates a Deepgram client from config.
func New(cfg config.DeepgramConfig) *Client {
	c := &Client{
		apiKey:       cfg.APIKey,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		model:        cfg.Model,
		sendLanguage: cfg.SendLanguage,
		client:       &http.Client{Timeout: timeout},
	}
	if c.baseURL == "" {
		c.baseURL = defaultBaseURL
	}
	if c.model == "" {
		c.model = defaultModel
	}
	return c
}

// Name returns the backend identifier.
func (c *Client) Name() string { return name }

// Transcribe posts the raw audio bytes and returns the first alternative of
// the first channel. A response without that shape yields stt.NoSpeech.
func (c *Client) Transcribe(ctx context.Context, audio []byte, contentType string, opts stt.TranscribeOpts) (stt.Transcript, error) {
	if c.apiKey == "" {
		return stt.NoSpeech, provider.MissingKey(name, "DEEPGRAM_API_KEY")
	}
	if contentType == "" {
		contentType = "audio/wav"
	}

	q := url.Values{}
	q.Set("model", c.model)
	q.Set("smart_format", "true")
	q.Set("punctuate", "true")
	if c.sendLanguage && opts.Language != "" {
		q.Set("language", opts.Language)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/listen?"+q.Encode(), bytes.NewReader(audio))
	if err != nil {
		return stt.NoSpeech, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+c.apiKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.client.Do(req)
	if err != nil {
		return stt.NoSpeech, fmt.Errorf("transcription request: %w", err)
	}
	defer resp.Body.Close()

	if !provider.OK(resp.StatusCode) {
		return stt.NoSpeech, provider.FromResponse(name, resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return stt.NoSpeech, fmt.Errorf("reading transcription: %w", err)
	}

	text := parseTranscript(body)
	slog.Debug("transcription complete", "backend", name, "text_length", len(text))
	if text == "" {
		return stt.NoSpeech, nil
	}
	return stt.Transcript{Text: text, Outcome: stt.OutcomeSpeech}, nil
}

type listenResponse struct {
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string `json:"transcript"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

// parseTranscript extracts results.channels[0].alternatives[0].transcript,
// returning "" when any part of the path is absent.
func parseTranscript(body []byte) string {
	var r listenResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return ""
	}
	if len(r.Results.Channels) == 0 || len(r.Results.Channels[0].Alternatives) == 0 {
		return ""
	}
	return strings.TrimSpace(r.Results.Channels[0].Alternatives[0].Transcript)
}
