// Package transport defines the contract shared by echoline's inbound
// surfaces and the services they expose.
//
// Each transport (HTTP/WebSocket, gRPC health) implements Transport and is
// started by main. Transports never call providers directly: turns go
// through a Pipeline, and voice listings through a VoiceCatalog.
package transport

import (
	"context"

	"github.com/nadzzz/echoline/internal/pipeline"
	"github.com/nadzzz/echoline/internal/tts"
)

// Pipeline runs turns and voice auditions. *pipeline.Pipeline satisfies it.
type Pipeline interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Turn, error)
	Preview(ctx context.Context, voiceID, language string) (*tts.Audio, error)
	DefaultVoice() string
}

// VoiceCatalog returns the label → voice id map. *voices.Catalog satisfies it.
type VoiceCatalog interface {
	Labels(ctx context.Context) map[string]string
}

// Transport is the interface that every transport adapter must implement.
type Transport interface {
	// Name returns the transport identifier (e.g., "grpc", "http").
	Name() string

	// Listen starts accepting requests. It blocks until the context is
	// cancelled or the listener fails.
	Listen(ctx context.Context) error

	// Close gracefully shuts down the transport, draining in-flight work.
	Close() error
}
