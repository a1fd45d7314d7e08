// Package tts defines the interface for text-to-speech synthesis and the
// voice catalog.
//
// Echoline speaks its reply with a provider voice chosen by the caller or,
// failing that, the configured default. The same provider lists the voices
// available to choose from.
package tts

import "context"

// Voice describes one selectable provider voice.
type Voice struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	Language string `json:"language,omitempty"`
}

// VoicePage is a single page of the provider's voice listing.
type VoicePage struct {
	Voices   []Voice
	NextPage string
	HasMore  bool
}

// SynthesizeOpts controls synthesis. Zero values select the configured defaults.
type SynthesizeOpts struct {
	// VoiceID selects the voice. Required unless a default is configured.
	VoiceID string

	// Language is the ISO-639-1 code (e.g., "en", "fr", "es").
	Language string

	// ModelID overrides the synthesis model (e.g., "sonic-2").
	ModelID string

	BitRate    int
	SampleRate int
}

// Audio holds the output of TTS synthesis.
type Audio struct {
	// Data is the encoded audio file, as returned by the provider.
	Data []byte

	// ContentType is the MIME type of Data (e.g., "audio/mpeg").
	ContentType string
}

// Synthesizer converts text to audio.
type Synthesizer interface {
	// Synthesize generates speech for text.
	Synthesize(ctx context.Context, text string, opts SynthesizeOpts) (*Audio, error)
}

// VoiceLister fetches one page of the provider's voice catalog.
type VoiceLister interface {
	ListVoices(ctx context.Context, apiKey, version, pageToken string) (*VoicePage, error)
}
