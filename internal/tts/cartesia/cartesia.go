// Package cartesia implements tts.Synthesizer and tts.VoiceLister using the
// Cartesia REST API.
//
// Synthesis uses the /tts/bytes endpoint, which returns a complete MP3 file
// in the response body. The voice listing is fetched one page at a time.
package cartesia

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
	"github.com/nadzzz/echoline/internal/tts"
)

const (
	name           = "cartesia"
	defaultBaseURL = "https://api.cartesia.ai"
	defaultVersion = "2025-04-16"
	defaultModel   = "sonic-2"
	defaultLang    = "en"

	synthTimeout = 120 * time.Second
	listTimeout  = 30 * time.Second
)

// ContentType is the MIME type of synthesized audio.
const ContentType = "audio/mpeg"

// Client talks to the Cartesia API.
type Client struct {
	apiKey     string
	baseURL    string
	version    string
	modelID    string
	voiceID    string
	language   string
	bitRate    int
	sampleRate int

	synthClient *http.Client
	listClient  *http.Client
}

// New creates a Cartesia client from config.
func New(cfg config.CartesiaConfig) *Client {
	c := &Client{
		apiKey:      cfg.APIKey,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		version:     cfg.Version,
		modelID:     cfg.ModelID,
		voiceID:     cfg.VoiceID,
		language:    cfg.Language,
		bitRate:     cfg.BitRate,
		sampleRate:  cfg.SampleRate,
		synthClient: &http.Client{Timeout: synthTimeout},
		listClient:  &http.Client{Timeout: listTimeout},
	}
	if c.baseURL == "" {
		c.baseURL = defaultBaseURL
	}
	if c.version == "" {
		c.version = defaultVersion
	}
	if c.modelID == "" {
		c.modelID = defaultModel
	}
	if c.language == "" {
		c.language = defaultLang
	}
	if c.bitRate <= 0 {
		c.bitRate = 128000
	}
	if c.sampleRate <= 0 {
		c.sampleRate = 44100
	}
	return c
}

// APIKey returns the configured credential.
func (c *Client) APIKey() string { return c.apiKey }

// Version returns the Cartesia-Version sent with every request.
func (c *Client) Version() string { return c.version }

// DefaultVoiceID returns the configured default voice, possibly empty.
func (c *Client) DefaultVoiceID() string { return c.voiceID }

type synthRequest struct {
	ModelID      string       `json:"model_id"`
	Transcript   string       `json:"transcript"`
	Voice        voiceRef     `json:"voice"`
	Language     string       `json:"language"`
	OutputFormat outputFormat `json:"output_format"`
}

type voiceRef struct {
	Mode string `json:"mode"`
	ID   string `json:"id"`
}

type outputFormat struct {
	Container  string `json:"container"`
	BitRate    int    `json:"bit_rate"`
	SampleRate int    `json:"sample_rate"`
}

// Synthesize speaks text with the requested (or default) voice and returns
// the MP3 bytes unchanged.
func (c *Client) Synthesize(ctx context.Context, text string, opts tts.SynthesizeOpts) (*tts.Audio, error) {
	if c.apiKey == "" {
		return nil, provider.MissingKey(name, "CARTESIA_API_KEY")
	}

	voiceID := firstNonEmpty(opts.VoiceID, c.voiceID)
	if voiceID == "" {
		return nil, &provider.ConfigError{
			Provider: name,
			Field:    "voice_id",
			Msg:      "missing voice id (choose a voice or set CARTESIA_VOICE_ID)",
		}
	}

	reqBody := synthRequest{
		ModelID:    firstNonEmpty(opts.ModelID, c.modelID),
		Transcript: text,
		Voice:      voiceRef{Mode: "id", ID: voiceID},
		Language:   firstNonEmpty(opts.Language, c.language),
		OutputFormat: outputFormat{
			Container:  "mp3",
			BitRate:    firstPositive(opts.BitRate, c.bitRate),
			SampleRate: firstPositive(opts.SampleRate, c.sampleRate),
		},
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshalling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/tts/bytes", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(req, c.apiKey, c.version)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.synthClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("synthesis request: %w", err)
	}
	defer resp.Body.Close()

	if !provider.OK(resp.StatusCode) {
		return nil, provider.FromResponse(name, resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading audio: %w", err)
	}

	slog.Debug("synthesis complete", "backend", name, "voice_id", voiceID, "audio_bytes", len(data))
	return &tts.Audio{Data: data, ContentType: ContentType}, nil
}

type listResponse struct {
	Data     []tts.Voice `json:"data"`
	NextPage *string     `json:"next_page"`
	HasMore  bool        `json:"has_more"`
}

// ListVoices fetches a single page of voices. The credential and version are
// passed explicitly so that callers can key caches on them.
func (c *Client) ListVoices(ctx context.Context, apiKey, version, pageToken string) (*tts.VoicePage, error) {
	if apiKey == "" {
		return nil, provider.MissingKey(name, "CARTESIA_API_KEY")
	}
	if version == "" {
		version = c.version
	}

	endpoint := c.baseURL + "/voices"
	if pageToken != "" {
		endpoint += "?" + url.Values{"page": {pageToken}}.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(req, apiKey, version)

	resp, err := c.listClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list voices request: %w", err)
	}
	defer resp.Body.Close()

	if !provider.OK(resp.StatusCode) {
		return nil, provider.FromResponse(name, resp)
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return nil, fmt.Errorf("decoding voices: %w", err)
	}

	page := &tts.VoicePage{Voices: lr.Data, HasMore: lr.HasMore}
	if lr.NextPage != nil {
		page.NextPage = *lr.NextPage
	}
	return page, nil
}

func (c *Client) setHeaders(req *http.Request, apiKey, version string) {
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Cartesia-Version", version)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstPositive(vals ...int) int {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}
