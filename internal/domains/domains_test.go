package domains

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kairo/internal/config"
	"kairo/internal/store"
	"kairo/internal/types"
)

func enabled() config.DomainProfile {
	return config.DomainProfile{Enabled: true, Timeout: "1s"}
}

func TestNewRegistry_AllDomains(t *testing.T) {
	cfg := config.DefaultConfig()
	reg, err := NewRegistry(cfg, store.NewMemoryStore())
	require.NoError(t, err)
	assert.Equal(t, types.AllDomains(), reg.Domains())

	for _, d := range types.AllDomains() {
		h, ok := reg.Get(d)
		require.True(t, ok)
		assert.True(t, h.Available(), d)
		res, err := h.Invoke(context.Background(), types.Request{ID: "r1", Text: "research graphene batteries"})
		require.NoError(t, err, d)
		assert.Equal(t, types.StatusSuccess, res.Status)
		assert.Equal(t, d, res.Domain)
		assert.NotEmpty(t, res.Payload)
	}
}

func TestHandler_DisabledProfile(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Domains[string(types.DomainShopping)] = config.DomainProfile{Enabled: false}
	delete(cfg.Domains, string(types.DomainAnalysis))

	reg, err := NewRegistry(cfg, store.NewMemoryStore())
	require.NoError(t, err)

	h, _ := reg.Get(types.DomainShopping)
	assert.False(t, h.Available())
	h, _ = reg.Get(types.DomainAnalysis)
	assert.False(t, h.Available(), "domains missing from config are disabled")
}

func TestHandler_LatencyHonoursDeadline(t *testing.T) {
	h := NewHandler(types.DomainSearch,
		config.DomainProfile{Enabled: true, Latency: "1s", Timeout: "20ms"}, buildSearch)

	start := time.Now()
	_, err := h.Invoke(context.Background(), types.Request{Text: "x"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestHandler_Latency(t *testing.T) {
	h := NewHandler(types.DomainPerformance,
		config.DomainProfile{Enabled: true, Latency: "15ms", Timeout: "1s"}, buildPerformance)
	start := time.Now()
	res, err := h.Invoke(context.Background(), types.Request{})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)
	assert.Equal(t, 98.5, res.Payload["system_health"])
}

func TestMemory_RecallsSharedKeywords(t *testing.T) {
	log := store.NewMemoryStore()
	m := NewMemory(enabled(), log)
	ctx := context.Background()

	for i, text := range []string{
		"best graphene battery startups",
		"weather in lisbon",
		"graphene battery startups",
		"solid-state battery news",
	} {
		_, err := m.Invoke(ctx, types.Request{ID: string(rune('a' + i)), Text: text})
		require.NoError(t, err)
	}

	res, err := m.Invoke(ctx, types.Request{ID: "z", Text: "latest news on graphene batteries"})
	require.NoError(t, err)
	assert.Equal(t, []string{"solid-state battery news", "graphene battery startups", "best graphene battery startups"},
		res.Payload["recalled"])
	assert.Equal(t, 3, res.Payload["relevant_memories"])

	n, err := log.Recent(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, n, 5, "every invocation is remembered")
}

func TestMemory_NothingToRecall(t *testing.T) {
	m := NewMemory(enabled(), store.NewMemoryStore())
	res, err := m.Invoke(context.Background(), types.Request{ID: "a", Text: "hello there"})
	require.NoError(t, err)
	_, has := res.Payload["recalled"]
	assert.False(t, has)
	assert.Equal(t, 0, res.Payload["relevant_memories"])
}

func TestMemory_UnavailableWithoutLog(t *testing.T) {
	assert.False(t, NewMemory(enabled(), nil).Available())
}

func TestSecurityPayload(t *testing.T) {
	ctx := context.Background()

	p, err := buildSecurity(ctx, types.Request{Context: types.RequestContext{URL: "https://example.com/a"}})
	require.NoError(t, err)
	assert.Equal(t, "low", p["risk_level"])
	assert.Equal(t, "example.com", p["target"])

	p, err = buildSecurity(ctx, types.Request{Context: types.RequestContext{URL: "http://shop.example"}})
	require.NoError(t, err)
	assert.Equal(t, "medium", p["risk_level"])
	assert.Equal(t, 1, p["findings"])
}

func TestShoppingPayload(t *testing.T) {
	p, err := buildShopping(context.Background(), types.Request{Text: "buy a laptop under $800"})
	require.NoError(t, err)
	assert.Equal(t, "laptop", p["product"])
	assert.Equal(t, "$800", p["budget"])
	assert.Equal(t, "$720", p["best_price"])
}

func TestAutomationSchedule(t *testing.T) {
	p, err := buildAutomation(context.Background(), types.Request{Text: "Back up my notes every day"})
	require.NoError(t, err)
	assert.Equal(t, "daily", p["schedule"])

	p, err = buildAutomation(context.Background(), types.Request{Text: "automate invoices"})
	require.NoError(t, err)
	assert.Equal(t, "on demand", p["schedule"])
	assert.Equal(t, "invoices", p["task"])
}

func TestTopicAndKeywords(t *testing.T) {
	assert.Equal(t, "graphene batteries", topic("Research the graphene batteries?"))
	assert.Equal(t, "latest news on graphene batteries", topic("what is the latest news on graphene batteries"))
	assert.Equal(t, []string{"graphene", "battery", "news"}, keywords("the graphene battery news and graphene"))
	assert.Equal(t, []string{"graphene", "battery"}, topKeywords("graphene graphene battery the", 2))
}

func TestPlanningPayload(t *testing.T) {
	book := NewGoalBook()
	p, err := book.build(context.Background(), types.Request{Text: " organize my week "})
	require.NoError(t, err)
	assert.Equal(t, 2, p["active_goals"])
	assert.Equal(t, "Autonomous goal for: organize my week", p["suggested_goal"])
	assert.Len(t, book.Active(), 2)
}
