package voices_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadzzz/echoline/internal/config"
	"github.com/nadzzz/echoline/internal/tts"
	"github.com/nadzzz/echoline/internal/voices"
)

type fakeLister struct {
	mu     sync.Mutex
	calls  int
	keys   []string
	voices []tts.Voice
	err    error
}

func (f *fakeLister) ListVoices(_ context.Context, apiKey, version, pageToken string) (*tts.VoicePage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.keys = append(f.keys, apiKey+"|"+version)
	if f.err != nil {
		return nil, f.err
	}
	return &tts.VoicePage{Voices: f.voices}, nil
}

func (f *fakeLister) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func sampleVoices() []tts.Voice {
	return []tts.Voice{
		{ID: "id-ava", Name: "Ava", Language: "en"},
		{ID: "id-bruno", Name: "Bruno", Language: "es"},
		{ID: "id-anon"},
	}
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "Ava (en)", voices.Label(tts.Voice{ID: "x", Name: "Ava", Language: "en"}))
	assert.Equal(t, "(unnamed) (?)", voices.Label(tts.Voice{ID: "x"}))
	assert.Equal(t, "Kai (?)", voices.Label(tts.Voice{ID: "x", Name: "Kai"}))
}

func TestLabelsBuildsMap(t *testing.T) {
	lister := &fakeLister{voices: sampleVoices()}
	cat := voices.NewCatalog(lister, voices.NewMemoryStore(nil), 0, "k", "2025-04-16")

	labels := cat.Labels(context.Background())

	assert.Equal(t, map[string]string{
		"Ava (en)":      "id-ava",
		"Bruno (es)":    "id-bruno",
		"(unnamed) (?)": "id-anon",
	}, labels)
	assert.Equal(t, []string{"k|2025-04-16"}, lister.keys)
}

func TestLabelsCachedWithinTTL(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	lister := &fakeLister{voices: sampleVoices()}
	cat := voices.NewCatalog(lister, voices.NewMemoryStore(clock.Now), voices.DefaultTTL, "k", "v1")
	ctx := context.Background()

	first := cat.Labels(ctx)
	clock.Advance(9 * time.Minute)
	second := cat.Labels(ctx)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, lister.callCount())

	clock.Advance(2 * time.Minute)
	_ = cat.Labels(ctx)
	assert.Equal(t, 2, lister.callCount())

	_ = cat.Labels(ctx)
	assert.Equal(t, 2, lister.callCount())
}

func TestLabelsKeyedByCredentialAndVersion(t *testing.T) {
	lister := &fakeLister{voices: sampleVoices()}
	cat := voices.NewCatalog(lister, voices.NewMemoryStore(nil), time.Hour, "", "")
	ctx := context.Background()

	_ = cat.LabelsFor(ctx, "key-a", "v1")
	_ = cat.LabelsFor(ctx, "key-a", "v1")
	_ = cat.LabelsFor(ctx, "key-b", "v1")
	_ = cat.LabelsFor(ctx, "key-a", "v2")

	assert.Equal(t, 3, lister.callCount())
}

func TestLabelsFetchFailureNotCached(t *testing.T) {
	lister := &fakeLister{err: errors.New("boom")}
	cat := voices.NewCatalog(lister, voices.NewMemoryStore(nil), time.Hour, "k", "v1")
	ctx := context.Background()

	labels := cat.Labels(ctx)
	require.NotNil(t, labels)
	assert.Empty(t, labels)

	lister.mu.Lock()
	lister.err = nil
	lister.voices = sampleVoices()
	lister.mu.Unlock()

	labels = cat.Labels(ctx)
	assert.Len(t, labels, 3)
	assert.Equal(t, 2, lister.callCount())
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	s := voices.NewMemoryStore(nil)
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "k", map[string]string{"a": "1"}, time.Minute))

	got, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	got["b"] = "2"

	again, _, _ := s.Get(ctx, "k")
	assert.Equal(t, map[string]string{"a": "1"}, again)
}

func TestDefaultLabel(t *testing.T) {
	labels := map[string]string{"Ava (en)": "id-ava", "Bruno (es)": "id-bruno"}

	label, ok := voices.DefaultLabel(labels, "id-bruno")
	assert.True(t, ok)
	assert.Equal(t, "Bruno (es)", label)

	_, ok = voices.DefaultLabel(labels, "id-missing")
	assert.False(t, ok)

	_, ok = voices.DefaultLabel(labels, "")
	assert.False(t, ok)
}

func TestSortedLabels(t *testing.T) {
	labels := map[string]string{"b": "2", "a": "1", "c": "3"}
	assert.Equal(t, []string{"a", "b", "c"}, voices.SortedLabels(labels))
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("ECHOLINE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("ECHOLINE_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()

	store, err := voices.NewRedisStore(ctx, config.RedisConfig{Addr: addr})
	require.NoError(t, err)
	defer store.Close()

	key := "test:" + time.Now().Format(time.RFC3339Nano)
	_, ok, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	want := map[string]string{"Ava (en)": "id-ava"}
	require.NoError(t, store.Set(ctx, key, want, time.Minute))

	got, ok, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, want, got)
}
