// Package pipeline implements one conversational turn: transcribe the
// caller's audio, generate a reply, and speak it.
//
// A turn is a small state machine:
//
//	Idle → Transcribing → Replying → Synthesizing → Done
//
// Any stage error moves the turn to Failed and stops it. Stages run strictly
// in order, each feeding the next; nothing is retried. Whatever a turn has
// produced before failing (transcript, reply) stays on it for display.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nadzzz/echoline/internal/llm"
	"github.com/nadzzz/echoline/internal/stt"
	"github.com/nadzzz/echoline/internal/tts"
)

// DefaultPreviewText is the phrase spoken when auditioning a voice.
const DefaultPreviewText = "Hi! This is a quick voice check."

// ErrNoAudio is returned by Run when the request carries no audio.
var ErrNoAudio = errors.New("no audio captured")

// State is the position of a turn in the pipeline.
type State int

const (
	Idle State = iota
	Transcribing
	Replying
	Synthesizing
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Transcribing:
		return "transcribing"
	case Replying:
		return "replying"
	case Synthesizing:
		return "synthesizing"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Stage names the external call a failure came from.
type Stage string

const (
	StageSTT Stage = "stt"
	StageLLM Stage = "llm"
	StageTTS Stage = "tts"
)

// StageError records which stage ended a turn.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return strings.ToUpper(string(e.Stage)) + " failed: " + e.Err.Error()
}

func (e *StageError) Unwrap() error { return e.Err }

// Request is the input to one turn.
type Request struct {
	Audio       []byte
	ContentType string // MIME type of Audio; empty means audio/wav
	Language    string // ISO-639-1; empty selects the default language
	VoiceID     string // empty selects the default voice
	Style       string // system style line; empty selects the model default
}

// Turn is the record of one pipeline run. It is never persisted.
type Turn struct {
	ID          string
	ContentType string
	Language    string
	VoiceID     string
	Style       string

	Transcript    string
	NoSpeech      bool
	Reply         string
	ReplyFallback bool
	Audio         *tts.Audio

	State     State
	Err       *StageError
	StartedAt time.Time
	Duration  time.Duration
}

// Observer is called on every state transition of a turn.
type Observer func(turn *Turn, from, to State)

// Pipeline wires the three stages together.
type Pipeline struct {
	transcriber stt.Transcriber
	generator   llm.Generator
	synthesizer tts.Synthesizer

	defaultVoice    string
	defaultLanguage string
	previewText     string
	observer        Observer
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithDefaultVoice sets the voice used when a request names none.
func WithDefaultVoice(id string) Option {
	return func(p *Pipeline) { p.defaultVoice = id }
}

// WithDefaultLanguage sets the language used when a request names none.
func WithDefaultLanguage(lang string) Option {
	return func(p *Pipeline) {
		if lang != "" {
			p.defaultLanguage = lang
		}
	}
}

// WithPreviewText overrides the audition phrase.
func WithPreviewText(text string) Option {
	return func(p *Pipeline) {
		if text != "" {
			p.previewText = text
		}
	}
}

// WithObserver registers a transition callback.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) { p.observer = o }
}

// New creates a pipeline from its three stages.
func New(transcriber stt.Transcriber, generator llm.Generator, synthesizer tts.Synthesizer, opts ...Option) *Pipeline {
	p := &Pipeline{
		transcriber:     transcriber,
		generator:       generator,
		synthesizer:     synthesizer,
		defaultLanguage: "en",
		previewText:     DefaultPreviewText,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// DefaultVoice returns the voice used when a request names none.
func (p *Pipeline) DefaultVoice() string { return p.defaultVoice }

// Run executes one turn. On a stage failure it returns the turn (in state
// Failed, with any earlier outputs) together with a *StageError.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Turn, error) {
	turn := &Turn{
		ID:          uuid.NewString(),
		ContentType: req.ContentType,
		Language:    firstNonEmpty(req.Language, p.defaultLanguage),
		VoiceID:     firstNonEmpty(req.VoiceID, p.defaultVoice),
		Style:       req.Style,
		State:       Idle,
		StartedAt:   time.Now(),
	}
	logger := slog.With("turn_id", turn.ID)

	if len(req.Audio) == 0 {
		logger.Info("turn rejected", "reason", ErrNoAudio.Error())
		return turn, ErrNoAudio
	}
	logger.Info("turn started", "content_type", req.ContentType, "audio_bytes", len(req.Audio), "language", turn.Language)

	// Step 1: Transcribe.
	p.transition(turn, Transcribing)
	tr, err := p.transcriber.Transcribe(ctx, req.Audio, req.ContentType, stt.TranscribeOpts{Language: turn.Language})
	if err != nil {
		return p.fail(turn, logger, StageSTT, err)
	}
	turn.Transcript = tr.Text
	turn.NoSpeech = tr.Outcome == stt.OutcomeNoSpeech
	logger.Info("transcription complete", "text_length", len(tr.Text), "outcome", tr.Outcome)

	// Step 2: Reply. An empty transcript is still sent.
	p.transition(turn, Replying)
	reply, err := p.generator.Generate(ctx, turn.Transcript, turn.Style)
	if err != nil {
		return p.fail(turn, logger, StageLLM, err)
	}
	turn.Reply = reply.Text
	turn.ReplyFallback = reply.Fallback
	logger.Info("reply generated", "text_length", len(reply.Text), "fallback", reply.Fallback)

	// Step 3: Speak.
	p.transition(turn, Synthesizing)
	audio, err := p.synthesizer.Synthesize(ctx, turn.Reply, tts.SynthesizeOpts{
		VoiceID:  turn.VoiceID,
		Language: turn.Language,
	})
	if err != nil {
		return p.fail(turn, logger, StageTTS, err)
	}
	turn.Audio = audio

	p.transition(turn, Done)
	turn.Duration = time.Since(turn.StartedAt)
	logger.Info("turn complete", "duration", turn.Duration, "audio_bytes", len(audio.Data))
	return turn, nil
}

// Preview speaks the audition phrase with voiceID. An empty voiceID selects
// the default voice.
func (p *Pipeline) Preview(ctx context.Context, voiceID, language string) (*tts.Audio, error) {
	audio, err := p.synthesizer.Synthesize(ctx, p.previewText, tts.SynthesizeOpts{
		VoiceID:  firstNonEmpty(voiceID, p.defaultVoice),
		Language: firstNonEmpty(language, p.defaultLanguage),
	})
	if err != nil {
		return nil, &StageError{Stage: StageTTS, Err: err}
	}
	return audio, nil
}

func (p *Pipeline) transition(turn *Turn, to State) {
	from := turn.State
	turn.State = to
	if p.observer != nil {
		p.observer(turn, from, to)
	}
}

func (p *Pipeline) fail(turn *Turn, logger *slog.Logger, stage Stage, err error) (*Turn, error) {
	serr := &StageError{Stage: stage, Err: err}
	turn.Err = serr
	p.transition(turn, Failed)
	turn.Duration = time.Since(turn.StartedAt)
	logger.Error("turn failed", "stage", stage, "error", err)
	return turn, serr
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
