package core

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kairo/internal/config"
	"kairo/internal/types"
)

func memoryConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Feedback.Backend = "memory"
	cfg.Tuner.Enabled = false
	return cfg
}

func TestEngine_EndToEnd(t *testing.T) {
	ctx := context.Background()
	e, err := NewEngine(ctx, memoryConfig())
	require.NoError(t, err)

	first, err := e.Orchestrator.Orchestrate(ctx, types.Request{Text: "research graphene batteries"})
	require.NoError(t, err)
	assert.False(t, first.Response.Partial)

	second, err := e.Orchestrator.Orchestrate(ctx, types.Request{Text: "latest news on graphene batteries"})
	require.NoError(t, err)
	_, recalled := second.Response.Section(types.SectionMemoryContext)
	assert.True(t, recalled, "second request recalls the first")

	require.NoError(t, e.Close())
	require.NoError(t, e.Close())

	n, err := e.Store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "close flushes queued feedback")
}

func TestEngine_SQLiteAndTuning(t *testing.T) {
	ctx := context.Background()
	cfg := memoryConfig()
	cfg.Feedback.Backend = "sqlite"
	cfg.Feedback.DatabasePath = filepath.Join(t.TempDir(), "kairo.db")
	cfg.Tuner.MinSamples = 2

	// search is switched off, so every search request records a failure
	cfg.Domains[string(types.DomainSearch)] = config.DomainProfile{Enabled: false}

	e, err := NewEngine(ctx, cfg)
	require.NoError(t, err)
	defer e.Close()

	before := e.Weights.Weights()
	for i := 0; i < 3; i++ {
		_, err := e.Orchestrator.Orchestrate(ctx, types.Request{Text: "search for hiking trails"})
		require.NoError(t, err)
	}
	require.Eventually(t, func() bool {
		n, _ := e.Store.Count(ctx)
		return n == 3
	}, 2*time.Second, 10*time.Millisecond)

	report, err := e.Tuner.RunCycle(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, report.Adjustments)

	after := e.Weights.Weights()
	assert.Less(t, after["search.01"], before["search.01"])

	persisted, err := e.Store.LoadWeights(ctx)
	require.NoError(t, err)
	assert.Equal(t, after["search.01"], persisted["search.01"])
}

func TestEngine_StartWatchesRules(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
patterns:
  - id: custom.01
    domain: automation
    pattern: {kind: keyword, expr: zap}
    weight: 90
`), 0644))

	cfg := memoryConfig()
	cfg.Rules.Path = path
	cfg.Rules.Watch = true
	cfg.Rules.Debounce = "20ms"
	cfg.Tuner.Enabled = true
	cfg.Tuner.Interval = "1h"

	e, err := NewEngine(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, e.Start(ctx))
	require.NoError(t, e.Start(ctx))
	assert.True(t, e.Tuner.Running())

	assert.Equal(t, types.DomainAutomation, e.Orchestrator.Classify(types.Request{Text: "zap it"}).Primary)

	require.NoError(t, os.WriteFile(path, []byte(`
patterns:
  - id: custom.01
    domain: shopping
    pattern: {kind: keyword, expr: zap}
    weight: 90
`), 0644))
	require.Eventually(t, func() bool {
		return e.Orchestrator.Classify(types.Request{Text: "zap it"}).Primary == types.DomainShopping
	}, 3*time.Second, 20*time.Millisecond)

	require.NoError(t, e.Close())
	assert.False(t, e.Tuner.Running())
	assert.Error(t, e.Start(ctx))
}

func TestNewEngine_InvalidConfig(t *testing.T) {
	cfg := memoryConfig()
	cfg.Orchestrator.MaxConcurrency = -1
	_, err := NewEngine(context.Background(), cfg)
	assert.Error(t, err)

	cfg = memoryConfig()
	cfg.Rules.Path = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = NewEngine(context.Background(), cfg)
	assert.Error(t, err)
}
