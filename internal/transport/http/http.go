// Package http implements the HTTP/WebSocket transport for echoline.
//
// This transport exposes a REST API for running turns and browsing voices,
// and a WebSocket endpoint for clients that hold a session open and send
// one binary frame per recorded capture.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/nadzzz/echoline/internal/message"
	"github.com/nadzzz/echoline/internal/pipeline"
	"github.com/nadzzz/echoline/internal/provider"
	"github.com/nadzzz/echoline/internal/transport"
	"github.com/nadzzz/echoline/internal/voices"
)

// MaxAudioBytes bounds a single uploaded capture.
const MaxAudioBytes = 25 << 20 // 25 MB

// errAudioTooLarge rejects captures over MaxAudioBytes.
var errAudioTooLarge = fmt.Errorf("audio capture exceeds %d bytes", MaxAudioBytes)

// Header names for raw audio uploads.
const (
	HeaderLanguage = "X-Echoline-Language"
	HeaderVoice    = "X-Echoline-Voice"
	HeaderStyle    = "X-Echoline-Style"
)

// Transport implements transport.Transport over HTTP and WebSocket.
type Transport struct {
	port     int
	pipeline transport.Pipeline
	catalog  transport.VoiceCatalog
	status   message.Status

	upgrader websocket.Upgrader

	mu     sync.Mutex
	server *http.Server
}

// New creates a new HTTP transport on the given port.
func New(port int, p transport.Pipeline, catalog transport.VoiceCatalog, status message.Status) *Transport {
	return &Transport{
		port:     port,
		pipeline: p,
		catalog:  catalog,
		status:   status,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Browser clients are served from arbitrary local origins.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "http" }

// Handler returns the routed mux. Exposed for tests.
func (t *Transport) Handler() http.Handler {
	mux := http.NewServeMux()

	// POST /turn: accepts one audio capture, returns the turn result.
	mux.HandleFunc("POST /turn", t.handleTurn)

	// GET /voices: voice picker data.
	mux.HandleFunc("GET /voices", t.handleVoices)

	// POST /voices/preview: speak the audition phrase with one voice.
	mux.HandleFunc("POST /voices/preview", t.handlePreview)

	// GET /status: which credentials are configured.
	mux.HandleFunc("GET /status", t.handleStatus)

	// GET /ws: WebSocket session, one turn per binary frame.
	mux.HandleFunc("GET /ws", t.handleWebSocket)

	// Swagger UI: serves the generated OpenAPI docs.
	mux.Handle("GET /swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	return mux
}

// Listen starts the HTTP server.
func (t *Transport) Listen(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", t.port),
		Handler:           t.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	t.mu.Lock()
	t.server = srv
	t.mu.Unlock()

	slog.Info("http transport listening", "port", t.port)

	go func() {
		<-ctx.Done()
		slog.Info("http transport shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("http listen: %w", err)
	}
	return nil
}

// Close gracefully shuts down the HTTP server.
func (t *Transport) Close() error {
	t.mu.Lock()
	srv := t.server
	t.mu.Unlock()
	if srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
	return nil
}

// handleTurn processes a POST /turn request.
//
// @Summary     Run one voice turn
// @Description Accepts a recorded audio capture, either as a multipart form (field "audio") or as the raw
// @Description request body. The capture is transcribed, answered, and the answer is spoken.
// @Description With ?download=1 a successful turn returns the MP3 itself as an attachment named reply.mp3.
// @Tags        turn
// @Accept      multipart/form-data
// @Accept      audio/wav
// @Accept      audio/webm
// @Produce     json
// @Produce     audio/mpeg
// @Param       audio     formData  file    false  "Audio capture (multipart uploads)"
// @Param       language  formData  string  false  "ISO-639-1 language code"
// @Param       voice     formData  string  false  "Voice id"
// @Param       style     formData  string  false  "System style line for the reply"
// @Param       X-Echoline-Language  header  string  false  "Language (raw uploads)"
// @Param       X-Echoline-Voice     header  string  false  "Voice id (raw uploads)"
// @Param       X-Echoline-Style     header  string  false  "Style line (raw uploads)"
// @Param       download  query     bool    false  "Return audio/mpeg instead of JSON"
// @Success     200  {object}  message.TurnResult  "Completed turn"
// @Failure     400  {object}  message.TurnResult  "No audio captured"
// @Failure     413  {object}  message.TurnResult  "Audio capture too large"
// @Failure     500  {object}  message.TurnResult  "Missing credential or voice"
// @Failure     502  {object}  message.TurnResult  "Provider call failed"
// @Router      /turn [post]
func (t *Transport) handleTurn(w http.ResponseWriter, r *http.Request) {
	req, err := readTurnRequest(r)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, errAudioTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		writeJSON(w, status, &message.TurnResult{State: pipeline.Idle.String(), Error: err.Error()})
		return
	}

	turn, err := t.pipeline.Run(r.Context(), req)
	result := message.FromTurn(turn, err)
	status := statusFor(err)

	download, _ := strconv.ParseBool(r.URL.Query().Get("download"))
	if err == nil && download && turn.Audio != nil {
		writeAudio(w, turn.Audio.ContentType, turn.Audio.Data, "reply.mp3")
		return
	}
	writeJSON(w, status, result)
}

// readTurnRequest extracts audio and options from either a multipart form
// or a raw body.
func readTurnRequest(r *http.Request) (pipeline.Request, error) {
	var req pipeline.Request

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		r.Body = http.MaxBytesReader(nil, r.Body, MaxAudioBytes+1<<20)
		if err := r.ParseMultipartForm(MaxAudioBytes); err != nil {
			var mbe *http.MaxBytesError
			if errors.As(err, &mbe) {
				return req, errAudioTooLarge
			}
			return req, fmt.Errorf("invalid multipart form: %w", err)
		}
		req.Language = r.FormValue("language")
		req.VoiceID = r.FormValue("voice")
		req.Style = r.FormValue("style")

		file, header, err := r.FormFile("audio")
		if errors.Is(err, http.ErrMissingFile) {
			return req, nil
		}
		if err != nil {
			return req, fmt.Errorf("reading audio field: %w", err)
		}
		defer file.Close()

		req.Audio, err = readCapture(file)
		if err != nil {
			return req, err
		}
		req.ContentType = header.Header.Get("Content-Type")
		return req, nil
	}

	// Treat body as raw audio; read options from headers.
	audio, err := readCapture(r.Body)
	if err != nil {
		return req, err
	}
	req.Audio = audio
	req.ContentType = r.Header.Get("Content-Type")
	req.Language = r.Header.Get(HeaderLanguage)
	req.VoiceID = r.Header.Get(HeaderVoice)
	req.Style = r.Header.Get(HeaderStyle)
	return req, nil
}

// readCapture reads at most MaxAudioBytes, failing with errAudioTooLarge
// rather than truncating.
func readCapture(r io.Reader) ([]byte, error) {
	audio, err := io.ReadAll(io.LimitReader(r, MaxAudioBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading audio: %w", err)
	}
	if len(audio) > MaxAudioBytes {
		return nil, errAudioTooLarge
	}
	return audio, nil
}

// handleVoices processes a GET /voices request.
//
// @Summary     List voices
// @Description Returns the voice picker entries (label and id), sorted by label, and the label of the
// @Description configured default voice when it appears in the listing. Listing failures yield an empty list.
// @Tags        voices
// @Produce     json
// @Success     200  {object}  message.VoiceList
// @Router      /voices [get]
func (t *Transport) handleVoices(w http.ResponseWriter, r *http.Request) {
	labels := t.catalog.Labels(r.Context())

	list := message.VoiceList{
		Voices:    make([]message.VoiceOption, 0, len(labels)),
		DefaultID: t.pipeline.DefaultVoice(),
	}
	for _, label := range voices.SortedLabels(labels) {
		list.Voices = append(list.Voices, message.VoiceOption{Label: label, ID: labels[label]})
	}
	if label, ok := voices.DefaultLabel(labels, list.DefaultID); ok {
		list.DefaultLabel = label
	}
	writeJSON(w, http.StatusOK, list)
}

// handlePreview processes a POST /voices/preview request.
//
// @Summary     Audition a voice
// @Description Speaks a fixed short phrase with the given voice (or the default voice).
// @Tags        voices
// @Produce     audio/mpeg
// @Param       voice     query  string  false  "Voice id"
// @Param       language  query  string  false  "ISO-639-1 language code"
// @Success     200  {file}    binary  "MP3 audio"
// @Failure     500  {string}  string  "Missing credential or voice"
// @Failure     502  {string}  string  "Provider call failed"
// @Router      /voices/preview [post]
func (t *Transport) handlePreview(w http.ResponseWriter, r *http.Request) {
	audio, err := t.pipeline.Preview(r.Context(), r.FormValue("voice"), r.FormValue("language"))
	if err != nil {
		slog.Warn("voice preview failed", "error", err)
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	writeAudio(w, audio.ContentType, audio.Data, "")
}

// handleStatus processes a GET /status request.
//
// @Summary     Configuration status
// @Description Reports which provider credentials are configured (never their values), the default voice, and the offered languages.
// @Tags        status
// @Produce     json
// @Success     200  {object}  message.Status
// @Router      /status [get]
func (t *Transport) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, t.status)
}

// handleWebSocket upgrades GET /ws. Text frames carry message.SessionOptions;
// binary frames are captures. Each capture is answered with a JSON
// TurnResult frame followed, on success, by a binary MP3 frame.
func (t *Transport) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	conn.SetReadLimit(MaxAudioBytes)
	logger := slog.With("remote", r.RemoteAddr)
	logger.Info("websocket session opened")

	opts := message.SessionOptions{}
	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("websocket read ended", "error", err)
			}
			logger.Info("websocket session closed")
			return
		}

		switch kind {
		case websocket.TextMessage:
			var next message.SessionOptions
			if err := json.Unmarshal(data, &next); err != nil {
				_ = conn.WriteJSON(map[string]string{"error": "invalid session options: " + err.Error()})
				continue
			}
			opts = next
		case websocket.BinaryMessage:
			turn, err := t.pipeline.Run(r.Context(), pipeline.Request{
				Audio:       data,
				ContentType: opts.ContentType,
				Language:    opts.Language,
				VoiceID:     opts.VoiceID,
				Style:       opts.Style,
			})
			if err := conn.WriteJSON(message.FromTurn(turn, err)); err != nil {
				logger.Warn("websocket write failed", "error", err)
				return
			}
			if err == nil && turn.Audio != nil {
				if err := conn.WriteMessage(websocket.BinaryMessage, turn.Audio.Data); err != nil {
					logger.Warn("websocket write failed", "error", err)
					return
				}
			}
		}
	}
}

// statusFor maps a turn error to an HTTP status code.
func statusFor(err error) int {
	var cerr *provider.ConfigError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, pipeline.ErrNoAudio):
		return http.StatusBadRequest
	case errors.As(err, &cerr):
		return http.StatusInternalServerError
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeAudio(w http.ResponseWriter, contentType string, data []byte, filename string) {
	w.Header().Set("Content-Type", contentType)
	if filename != "" {
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
