// Package stt defines the interface for speech-to-text transcription.
//
// A transcriber takes a recorded audio capture and returns the spoken text.
// "No speech" is a normal outcome, not an error: the pipeline continues with
// an empty transcript.
package stt

import "context"

// Outcome distinguishes a usable transcript from a soft failure.
type Outcome int

const (
	// OutcomeSpeech means the provider returned non-empty text.
	OutcomeSpeech Outcome = iota

	// OutcomeNoSpeech means the text is empty, or the provider's response
	// was missing the expected shape.
	OutcomeNoSpeech
)

func (o Outcome) String() string {
	if o == OutcomeSpeech {
		return "speech"
	}
	return "no_speech"
}

// Transcript is the result of one transcription call.
type Transcript struct {
	Text    string
	Outcome Outcome
}

// NoSpeech is the empty transcript.
var NoSpeech = Transcript{Outcome: OutcomeNoSpeech}

// TranscribeOpts controls transcription behavior.
type TranscribeOpts struct {
	// Language is an ISO-639-1 hint (e.g., "en", "fr"). Backends may ignore it.
	Language string
}

// Transcriber converts audio bytes to text.
type Transcriber interface {
	// Name returns the backend identifier (e.g., "deepgram").
	Name() string

	// Transcribe sends audio, labelled with its MIME type, for recognition.
	Transcribe(ctx context.Context, audio []byte, contentType string, opts TranscribeOpts) (Transcript, error)
}
