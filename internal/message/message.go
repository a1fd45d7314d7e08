// Package message defines the wire types returned to echoline callers.
package message

import (
	"encoding/base64"
	"errors"
	"time"

	"github.com/nadzzz/echoline/internal/pipeline"
)

// TurnResult is the JSON outcome of one turn.
type TurnResult struct {
	// TurnID is the unique identifier of the turn (UUID).
	TurnID string `json:"turn_id"`

	// State is the final pipeline state: "done" or "failed".
	State string `json:"state"`

	// Language is the ISO-639-1 code the turn ran with.
	Language string `json:"language"`

	// VoiceID is the resolved synthesis voice (empty if none was available).
	VoiceID string `json:"voice_id,omitempty"`

	// Transcript is what the caller said. Empty when no speech was recognised.
	Transcript string `json:"transcript"`

	// NoSpeech is true when transcription produced no text.
	NoSpeech bool `json:"no_speech"`

	// Reply is the assistant's answer. Empty only if the turn failed before it.
	Reply string `json:"reply,omitempty"`

	// ReplyFallback is true when Reply is the fixed fallback sentence.
	ReplyFallback bool `json:"reply_fallback,omitempty"`

	// Audio is the synthesized reply as a base64-encoded string.
	Audio string `json:"audio,omitempty"`

	// AudioContentType is the MIME type of Audio ("audio/mpeg").
	AudioContentType string `json:"audio_content_type,omitempty"`

	// FailedStage is "stt", "llm", or "tts" when the turn failed.
	FailedStage string `json:"failed_stage,omitempty"`

	// Error is the stage-tagged failure message, e.g. "TTS failed: ...".
	Error string `json:"error,omitempty"`

	// DurationMS is the wall time of the turn in milliseconds.
	DurationMS int64 `json:"duration_ms"`
}

// FromTurn builds the wire result for a finished turn. err is the error
// returned alongside the turn by pipeline.Run.
func FromTurn(turn *pipeline.Turn, err error) *TurnResult {
	r := &TurnResult{
		TurnID:        turn.ID,
		State:         turn.State.String(),
		Language:      turn.Language,
		VoiceID:       turn.VoiceID,
		Transcript:    turn.Transcript,
		NoSpeech:      turn.NoSpeech,
		Reply:         turn.Reply,
		ReplyFallback: turn.ReplyFallback,
		DurationMS:    turn.Duration.Round(time.Millisecond).Milliseconds(),
	}
	if turn.Audio != nil {
		r.SetAudioBytes(turn.Audio.Data)
		r.AudioContentType = turn.Audio.ContentType
	}

	var serr *pipeline.StageError
	if errors.As(err, &serr) {
		r.FailedStage = string(serr.Stage)
	}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}

// SetAudioBytes base64-encodes raw audio bytes into Audio.
func (r *TurnResult) SetAudioBytes(audio []byte) {
	if len(audio) > 0 {
		r.Audio = base64.StdEncoding.EncodeToString(audio)
	}
}

// AudioBytes decodes Audio.
func (r *TurnResult) AudioBytes() ([]byte, error) {
	return base64.StdEncoding.DecodeString(r.Audio)
}

// VoiceOption is one entry in the voice picker.
type VoiceOption struct {
	Label string `json:"label"`
	ID    string `json:"id"`
}

// VoiceList is the voice picker data.
type VoiceList struct {
	Voices       []VoiceOption `json:"voices"`
	DefaultLabel string        `json:"default_label,omitempty"`
	DefaultID    string        `json:"default_id,omitempty"`
}

// Status reports which credentials are configured. It never carries secrets.
type Status struct {
	Deepgram       bool     `json:"deepgram_key_set"`
	Gemini         bool     `json:"gemini_key_set"`
	Cartesia       bool     `json:"cartesia_key_set"`
	DefaultVoiceID string   `json:"default_voice_id,omitempty"`
	Languages      []string `json:"languages"`
}

// SessionOptions are sent as JSON text frames on the WebSocket to set the
// language, voice, and style used for subsequent captures.
type SessionOptions struct {
	Language    string `json:"language,omitempty"`
	VoiceID     string `json:"voice_id,omitempty"`
	Style       string `json:"style,omitempty"`
	ContentType string `json:"content_type,omitempty"`
}
