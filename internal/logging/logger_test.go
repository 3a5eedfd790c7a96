package logging

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// observe installs an observer core for the duration of the test.
func observe(t *testing.T, lvl zapcore.Level, cats map[string]bool) *observer.ObservedLogs {
	t.Helper()
	atom := zap.NewAtomicLevelAt(lvl)
	core, logs := observer.New(atom)
	Install(zap.New(core), atom, cats)
	t.Cleanup(func() {
		require.NoError(t, Configure(Config{Enabled: false}))
	})
	return logs
}

func TestDisabledByDefaultIsSilent(t *testing.T) {
	require.NoError(t, Configure(Config{Enabled: false}))
	assert.False(t, IsCategoryEnabled(CategoryShards))

	// must not panic on a no-op logger
	Shards("dispatch %d", 1)
	Get(CategoryPerception).Error("boom")
	Sync()
}

func TestAllCategoriesLog(t *testing.T) {
	logs := observe(t, zapcore.DebugLevel, nil)

	for _, cat := range Categories {
		Get(cat).Info("hello from %s", cat)
	}

	entries := logs.All()
	require.Len(t, entries, len(Categories))
	for i, cat := range Categories {
		assert.Equal(t, string(cat), entries[i].LoggerName)
		assert.Equal(t, "hello from "+string(cat), entries[i].Message)
	}
}

func TestCategoryFilter(t *testing.T) {
	logs := observe(t, zapcore.DebugLevel, map[string]bool{"shards": false, "routing": true})

	Shards("hidden")
	Routing("visible")
	Perception("visible by default")

	assert.False(t, IsCategoryEnabled(CategoryShards))
	assert.Equal(t, 0, logs.FilterLoggerName("shards").Len())
	assert.Equal(t, 1, logs.FilterLoggerName("routing").Len())
	assert.Equal(t, 1, logs.FilterLoggerName("perception").Len())
}

func TestLevelFiltering(t *testing.T) {
	logs := observe(t, zapcore.WarnLevel, nil)

	ShardsDebug("debug")
	Shards("info")
	ShardsWarn("warn")
	ShardsError("error")
	assert.Equal(t, 2, logs.Len())

	SetLevel("debug")
	ShardsDebug("debug again")
	assert.Equal(t, 3, logs.Len())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("nonsense"))
}

func TestWithRequestID(t *testing.T) {
	logs := observe(t, zapcore.DebugLevel, nil)

	WithRequestID(CategoryShards, "req-1").Info("dispatching")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "req-1", entries[0].ContextMap()["req"])
}

func TestTimerStopWithThreshold(t *testing.T) {
	logs := observe(t, zapcore.DebugLevel, nil)

	timer := StartTimer(CategoryShards, "dispatch")
	time.Sleep(2 * time.Millisecond)
	elapsed := timer.StopWithThreshold(time.Nanosecond)

	assert.GreaterOrEqual(t, elapsed, 2*time.Millisecond)
	require.Equal(t, 1, logs.FilterLevelExact(zapcore.WarnLevel).Len())
}

func TestAuditEvents(t *testing.T) {
	logs := observe(t, zapcore.InfoLevel, nil)

	a := AuditWithRequest("req-7")
	a.Classified("shopping", 92, false)
	a.DomainComplete("search", "error", 12, "search backend down")
	a.RulesReloaded("rules.yaml", 3, errors.New("bad regex"))

	entries := logs.FilterLoggerName("audit").All()
	require.Len(t, entries, 3)

	ctx := entries[0].ContextMap()
	assert.Equal(t, "request_classified", ctx["event"])
	assert.Equal(t, "req-7", ctx["req"])
	assert.Equal(t, "shopping", ctx["domain"])

	ctx = entries[1].ContextMap()
	assert.Equal(t, false, ctx["success"])
	assert.Equal(t, "search backend down", entries[1].Message)

	assert.Equal(t, "bad regex", entries[2].Message)
}

func TestAuditDisabledCategory(t *testing.T) {
	logs := observe(t, zapcore.InfoLevel, map[string]bool{"audit": false})
	Audit().Synthesized(4, true)
	assert.Equal(t, 0, logs.Len())
}
