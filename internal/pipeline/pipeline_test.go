package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadzzz/echoline/internal/config"
	"github.com/nadzzz/echoline/internal/llm"
	"github.com/nadzzz/echoline/internal/llm/gemini"
	"github.com/nadzzz/echoline/internal/pipeline"
	"github.com/nadzzz/echoline/internal/provider"
	"github.com/nadzzz/echoline/internal/stt"
	"github.com/nadzzz/echoline/internal/stt/deepgram"
	"github.com/nadzzz/echoline/internal/tts"
	"github.com/nadzzz/echoline/internal/tts/cartesia"
)

// fakeProviders serves all three provider APIs from one httptest server.
type fakeProviders struct {
	mu sync.Mutex

	transcript string
	reply      string
	ttsStatus  int
	ttsBody    []byte

	listenBody        []byte
	listenContentType string
	promptText        string
	synthVoice        string
	synthTranscript   string
	calls             []string
}

func newFakeProviders(t *testing.T) (*fakeProviders, *httptest.Server) {
	f := &fakeProviders{
		transcript: "what's the weather",
		reply:      "Sunny and warm.",
		ttsStatus:  http.StatusOK,
		ttsBody:    []byte("ID3-fake-mp3"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/listen", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.calls = append(f.calls, "stt")
		f.listenBody = body
		f.listenContentType = r.Header.Get("Content-Type")
		transcript := f.transcript
		f.mu.Unlock()

		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": map[string]any{
				"channels": []any{map[string]any{
					"alternatives": []any{map[string]any{"transcript": transcript}},
				}},
			},
		})
	})
	mux.HandleFunc("POST /models/{model}", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Contents []struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"contents"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		f.calls = append(f.calls, "llm")
		if len(req.Contents) > 0 && len(req.Contents[0].Parts) > 0 {
			f.promptText = req.Contents[0].Parts[0].Text
		}
		reply := f.reply
		f.mu.Unlock()

		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{map[string]any{
				"content": map[string]any{"parts": []any{map[string]any{"text": reply}}},
			}},
		})
	})
	mux.HandleFunc("POST /tts/bytes", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Transcript string `json:"transcript"`
			Voice      struct {
				ID string `json:"id"`
			} `json:"voice"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		f.calls = append(f.calls, "tts")
		f.synthVoice = req.Voice.ID
		f.synthTranscript = req.Transcript
		status, body := f.ttsStatus, f.ttsBody
		f.mu.Unlock()

		w.WriteHeader(status)
		_, _ = w.Write(body)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return f, srv
}

func newPipeline(url, defaultVoice string, opts ...pipeline.Option) *pipeline.Pipeline {
	transcriber := deepgram.New(config.DeepgramConfig{APIKey: "dg", BaseURL: url})
	generator := gemini.New(config.GeminiConfig{APIKey: "gm", BaseURL: url})
	synthesizer := cartesia.New(config.CartesiaConfig{APIKey: "ct", BaseURL: url})
	opts = append([]pipeline.Option{pipeline.WithDefaultVoice(defaultVoice)}, opts...)
	return pipeline.New(transcriber, generator, synthesizer, opts...)
}

func TestRunHappyPath(t *testing.T) {
	f, srv := newFakeProviders(t)

	var transitions []pipeline.State
	p := newPipeline(srv.URL, "voice-default", pipeline.WithObserver(func(_ *pipeline.Turn, _, to pipeline.State) {
		transitions = append(transitions, to)
	}))

	turn, err := p.Run(context.Background(), pipeline.Request{
		Audio:       []byte("RIFF...wav-silence"),
		ContentType: "audio/wav",
		Style:       "Be terse.",
	})
	require.NoError(t, err)

	assert.Equal(t, pipeline.Done, turn.State)
	assert.NotEmpty(t, turn.ID)
	assert.Equal(t, "what's the weather", turn.Transcript)
	assert.False(t, turn.NoSpeech)
	assert.Equal(t, "Sunny and warm.", turn.Reply)
	require.NotNil(t, turn.Audio)
	assert.Equal(t, "audio/mpeg", turn.Audio.ContentType)
	assert.NotEmpty(t, turn.Audio.Data)
	assert.Nil(t, turn.Err)

	assert.Equal(t, []pipeline.State{pipeline.Transcribing, pipeline.Replying, pipeline.Synthesizing, pipeline.Done}, transitions)
	assert.Equal(t, []string{"stt", "llm", "tts"}, f.calls)
	assert.Equal(t, "Be terse.\nUser: what's the weather", f.promptText)
	assert.Equal(t, "voice-default", f.synthVoice)
	assert.Equal(t, "Sunny and warm.", f.synthTranscript)
}

func TestRunForwardsExactAudio(t *testing.T) {
	f, srv := newFakeProviders(t)
	audio := []byte("RIFF...wav-silence")

	_, err := newPipeline(srv.URL, "v").Run(context.Background(), pipeline.Request{Audio: audio, ContentType: "audio/wav"})
	require.NoError(t, err)

	assert.Equal(t, "audio/wav", f.listenContentType)
	assert.Equal(t, audio, f.listenBody)
}

func TestRunEmptyTranscriptStillReplies(t *testing.T) {
	f, srv := newFakeProviders(t)
	f.transcript = ""
	f.reply = ""

	turn, err := newPipeline(srv.URL, "v").Run(context.Background(), pipeline.Request{Audio: []byte("a")})
	require.NoError(t, err)

	assert.True(t, turn.NoSpeech)
	assert.Equal(t, "", turn.Transcript)
	assert.Equal(t, llm.FallbackReply, turn.Reply)
	assert.True(t, turn.ReplyFallback)
	assert.Equal(t, "You are a concise, helpful assistant.\nUser: ", f.promptText)
	assert.Equal(t, llm.FallbackReply, f.synthTranscript)
}

func TestRunMissingVoiceFailsAtTTS(t *testing.T) {
	f, srv := newFakeProviders(t)

	turn, err := newPipeline(srv.URL, "").Run(context.Background(), pipeline.Request{Audio: []byte("a")})

	var serr *pipeline.StageError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, pipeline.StageTTS, serr.Stage)

	var cerr *provider.ConfigError
	require.True(t, errors.As(err, &cerr))
	assert.Contains(t, cerr.Error(), "voice id")

	assert.Equal(t, pipeline.Failed, turn.State)
	assert.Same(t, serr, turn.Err)
	assert.Equal(t, "what's the weather", turn.Transcript)
	assert.Equal(t, "Sunny and warm.", turn.Reply)
	assert.Nil(t, turn.Audio)
	assert.Equal(t, []string{"stt", "llm"}, f.calls)
}

func TestRunRateLimitedSynthesis(t *testing.T) {
	f, srv := newFakeProviders(t)
	f.ttsStatus = http.StatusTooManyRequests
	f.ttsBody = []byte(`{"error":"rate limited"}`)

	turn, err := newPipeline(srv.URL, "v").Run(context.Background(), pipeline.Request{Audio: []byte("a")})

	var perr *provider.ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, 429, perr.StatusCode)
	assert.Contains(t, perr.Body, "rate limited")
	assert.Equal(t, pipeline.Failed, turn.State)
	assert.Equal(t, pipeline.StageTTS, turn.Err.Stage)
	assert.Contains(t, err.Error(), "TTS failed: ")
}

func TestRunRequestVoiceOverridesDefault(t *testing.T) {
	f, srv := newFakeProviders(t)

	_, err := newPipeline(srv.URL, "voice-default").Run(context.Background(), pipeline.Request{Audio: []byte("a"), VoiceID: "voice-picked"})
	require.NoError(t, err)
	assert.Equal(t, "voice-picked", f.synthVoice)
}

func TestRunNoAudio(t *testing.T) {
	f, srv := newFakeProviders(t)

	called := false
	p := newPipeline(srv.URL, "v", pipeline.WithObserver(func(*pipeline.Turn, pipeline.State, pipeline.State) {
		called = true
	}))

	turn, err := p.Run(context.Background(), pipeline.Request{ContentType: "audio/wav"})
	require.ErrorIs(t, err, pipeline.ErrNoAudio)
	assert.Equal(t, pipeline.Idle, turn.State)
	assert.False(t, called)
	assert.Empty(t, f.calls)
}

// Stub stages for failures that cannot be provoked through HTTP alone.

type stubTranscriber struct{ err error }

func (s stubTranscriber) Name() string { return "stub" }
func (s stubTranscriber) Transcribe(context.Context, []byte, string, stt.TranscribeOpts) (stt.Transcript, error) {
	if s.err != nil {
		return stt.NoSpeech, s.err
	}
	return stt.Transcript{Text: "hi", Outcome: stt.OutcomeSpeech}, nil
}

type stubGenerator struct{ err error }

func (s stubGenerator) Name() string { return "stub" }
func (s stubGenerator) Generate(context.Context, string, string) (llm.Reply, error) {
	if s.err != nil {
		return llm.Fallback, s.err
	}
	return llm.Reply{Text: "hello"}, nil
}

type stubSynthesizer struct {
	got tts.SynthesizeOpts
	txt string
}

func (s *stubSynthesizer) Synthesize(_ context.Context, text string, opts tts.SynthesizeOpts) (*tts.Audio, error) {
	s.got, s.txt = opts, text
	return &tts.Audio{Data: []byte("mp3"), ContentType: "audio/mpeg"}, nil
}

func TestRunStageFailures(t *testing.T) {
	boom := errors.New("boom")

	cases := []struct {
		name      string
		stt       stubTranscriber
		llm       stubGenerator
		wantStage pipeline.Stage
		wantMsg   string
		wantTrans []pipeline.State
	}{
		{
			name:      "stt",
			stt:       stubTranscriber{err: boom},
			wantStage: pipeline.StageSTT,
			wantMsg:   "STT failed: boom",
			wantTrans: []pipeline.State{pipeline.Transcribing, pipeline.Failed},
		},
		{
			name:      "llm",
			llm:       stubGenerator{err: boom},
			wantStage: pipeline.StageLLM,
			wantMsg:   "LLM failed: boom",
			wantTrans: []pipeline.State{pipeline.Transcribing, pipeline.Replying, pipeline.Failed},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got []pipeline.State
			synth := &stubSynthesizer{}
			p := pipeline.New(tc.stt, tc.llm, synth, pipeline.WithDefaultVoice("v"),
				pipeline.WithObserver(func(_ *pipeline.Turn, _, to pipeline.State) { got = append(got, to) }))

			turn, err := p.Run(context.Background(), pipeline.Request{Audio: []byte("a")})
			require.ErrorIs(t, err, boom)
			assert.Equal(t, tc.wantMsg, err.Error())
			assert.Equal(t, tc.wantStage, turn.Err.Stage)
			assert.Equal(t, tc.wantTrans, got)
			assert.Empty(t, synth.txt)
		})
	}
}

func TestRunDefaultLanguage(t *testing.T) {
	synth := &stubSynthesizer{}
	p := pipeline.New(stubTranscriber{}, stubGenerator{}, synth,
		pipeline.WithDefaultVoice("v"), pipeline.WithDefaultLanguage("de"))

	turn, err := p.Run(context.Background(), pipeline.Request{Audio: []byte("a")})
	require.NoError(t, err)
	assert.Equal(t, "de", turn.Language)
	assert.Equal(t, "de", synth.got.Language)
}

func TestPreview(t *testing.T) {
	synth := &stubSynthesizer{}
	p := pipeline.New(stubTranscriber{}, stubGenerator{}, synth, pipeline.WithDefaultVoice("v-default"))

	audio, err := p.Preview(context.Background(), "v-picked", "es")
	require.NoError(t, err)
	assert.Equal(t, "audio/mpeg", audio.ContentType)
	assert.Equal(t, pipeline.DefaultPreviewText, synth.txt)
	assert.Equal(t, "v-picked", synth.got.VoiceID)
	assert.Equal(t, "es", synth.got.Language)

	_, err = p.Preview(context.Background(), "", "")
	require.NoError(t, err)
	assert.Equal(t, "v-default", synth.got.VoiceID)
	assert.Equal(t, "en", synth.got.Language)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "synthesizing", pipeline.Synthesizing.String())
	assert.Equal(t, "failed", pipeline.Failed.String())
}
