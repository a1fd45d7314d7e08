// Package voices builds the label → voice id map offered to callers when they
// pick a synthesis voice, and caches it per credential.
//
// A fetched catalog is kept for a fixed TTL (10 minutes by default). Within
// that window no network calls are made; after it, exactly one re-fetch
// happens on the next request. Concurrent requests that both find the entry
// expired both fetch, and the last write wins. A failed fetch is logged and
// yields an empty map, and nothing is cached, so the next request retries.
package voices

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sort"
	"time"

	"github.com/nadzzz/echoline/internal/tts"
)

// DefaultTTL is how long a fetched catalog is reused.
const DefaultTTL = 10 * time.Minute

// Label renders a voice as "<name> (<language>)", with "(unnamed)" and "?"
// standing in for missing fields.
func Label(v tts.Voice) string {
	name := v.Name
	if name == "" {
		name = "(unnamed)"
	}
	lang := v.Language
	if lang == "" {
		lang = "?"
	}
	return name + " (" + lang + ")"
}

// Catalog fetches and caches voice label maps.
type Catalog struct {
	lister  tts.VoiceLister
	store   Store
	ttl     time.Duration
	apiKey  string
	version string
}

// NewCatalog creates a catalog that lists voices with lister and caches them
// in store. apiKey and version are the defaults used by Labels.
func NewCatalog(lister tts.VoiceLister, store Store, ttl time.Duration, apiKey, version string) *Catalog {
	if store == nil {
		store = NewMemoryStore(nil)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Catalog{lister: lister, store: store, ttl: ttl, apiKey: apiKey, version: version}
}

// Labels returns the catalog for the configured credential.
func (c *Catalog) Labels(ctx context.Context) map[string]string {
	return c.LabelsFor(ctx, c.apiKey, c.version)
}

// LabelsFor returns the label → id map for the given credential and API
// version. It never returns an error: failures produce an empty map.
func (c *Catalog) LabelsFor(ctx context.Context, apiKey, version string) map[string]string {
	key := cacheKey(apiKey, version)
	logger := slog.With("component", "voices", "cache_key", key)

	if labels, ok, err := c.store.Get(ctx, key); err != nil {
		logger.Warn("voice cache read failed", "error", err)
	} else if ok {
		return labels
	}

	page, err := c.lister.ListVoices(ctx, apiKey, version, "")
	if err != nil {
		logger.Error("listing voices failed", "error", err)
		return map[string]string{}
	}

	labels := make(map[string]string, len(page.Voices))
	for _, v := range page.Voices {
		labels[Label(v)] = v.ID
	}

	if err := c.store.Set(ctx, key, labels, c.ttl); err != nil {
		logger.Warn("voice cache write failed", "error", err)
	}
	logger.Info("voice catalog fetched", "voices", len(labels), "has_more", page.HasMore)
	return labels
}

// cacheKey identifies a catalog by a digest of the credential, never the
// credential itself.
func cacheKey(apiKey, version string) string {
	sum := sha256.Sum256([]byte(apiKey))
	return "voices:" + hex.EncodeToString(sum[:8]) + ":" + version
}

// DefaultLabel returns the label whose id is defaultID, if any.
func DefaultLabel(labels map[string]string, defaultID string) (string, bool) {
	if defaultID == "" {
		return "", false
	}
	for _, label := range SortedLabels(labels) {
		if labels[label] == defaultID {
			return label, true
		}
	}
	return "", false
}

// SortedLabels returns the labels in lexical order.
func SortedLabels(labels map[string]string) []string {
	out := make([]string, 0, len(labels))
	for l := range labels {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}
