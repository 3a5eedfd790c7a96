package articulation

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kairo/internal/types"
)

func sampleEnvelope(t *testing.T) Envelope {
	t.Helper()
	results := sampleResults()
	cls := searchClassification()
	resp := NewSynthesizer().Synthesize(results, cls)
	return NewEnvelope("req-1", cls, results, resp, 42*time.Millisecond)
}

func TestNewEnvelope(t *testing.T) {
	env := sampleEnvelope(t)

	assert.True(t, env.Success)
	assert.Equal(t, "req-1", env.Data.RequestID)
	assert.Equal(t, types.DomainSearch, env.Data.Primary)
	assert.EqualValues(t, 42, env.Data.ElapsedMs)
	assert.Equal(t, types.DomainMemory, env.Data.ActivatedDomains[0], "memory ranks first")
	assert.Len(t, env.Data.DomainResults, len(env.Data.ActivatedDomains))
	assert.Contains(t, env.Result, "## Summary")
	assert.Equal(t, string(types.SectionSummary), env.Data.Sections[0])
}

func TestNewEnvelope_AllFailed(t *testing.T) {
	results := map[types.DomainID]types.DomainResult{
		types.DomainMemory: failed(types.DomainMemory, "boom"),
		types.DomainSearch: failed(types.DomainSearch, "down"),
	}
	cls := searchClassification()
	env := NewEnvelope("req-2", cls, results, NewSynthesizer().Synthesize(results, cls), 0)

	assert.False(t, env.Success)
	assert.True(t, env.Data.Partial)
	assert.Equal(t, "boom", env.Data.DomainResults[0].Message)
}

func TestEmitter_NDJSON(t *testing.T) {
	var buf bytes.Buffer
	e := NewEmitter(&buf, false)
	env := sampleEnvelope(t)

	require.NoError(t, e.Emit(env))
	require.NoError(t, e.Emit(env))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	var back Envelope
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &back))
	assert.Equal(t, env.Result, back.Result)
	assert.Equal(t, env.Data.ActivatedDomains, back.Data.ActivatedDomains)
}

func TestParseEnvelope(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewEmitter(&buf, true).Emit(sampleEnvelope(t)))
	body := strings.TrimSpace(buf.String())

	tests := []struct {
		name   string
		raw    string
		method ParseMethod
	}{
		{"bare", body, ParseDirect},
		{"fenced", "```json\n" + body + "\n```", ParseFenced},
		{"embedded", "2026-01-01 INFO answered\n" + body + "\ntrailing text {not json}", ParseEmbedded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, method, err := ParseEnvelope(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.method, method)
			assert.Equal(t, "req-1", env.Data.RequestID)
		})
	}
}

func TestParseEnvelope_LastEmbeddedWins(t *testing.T) {
	raw := `{"result":"first","data":{"request_id":"a"}} noise {"result":"second","data":{"request_id":"b"}}`
	env, method, err := ParseEnvelope(raw)
	require.NoError(t, err)
	assert.Equal(t, ParseEmbedded, method)
	assert.Equal(t, "b", env.Data.RequestID)
}

func TestParseEnvelope_NotFound(t *testing.T) {
	for _, raw := range []string{"", "plain text", `{"unrelated": true}`, "```json\n{}\n```"} {
		_, _, err := ParseEnvelope(raw)
		assert.ErrorIs(t, err, ErrNoEnvelope, raw)
	}
}

func TestJSONObjects(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"simple", `prefix {"key": "value"} suffix`, []string{`{"key": "value"}`}},
		{"nested", `start {"a": {"b": "c"}} end`, []string{`{"a": {"b": "c"}}`}},
		{"multiple", `obj1 {"id": 1} obj2 {"id": 2}`, []string{`{"id": 1}`, `{"id": 2}`}},
		{"brace in string", `{"key": "value with } inside"}`, []string{`{"key": "value with } inside"}`}},
		{"escaped quote", `{"key": "a \" b"}`, []string{`{"key": "a \" b"}`}},
		{"escaped backslash", `{"key": "a \\ b"}`, []string{`{"key": "a \\ b"}`}},
		{"incomplete", `prefix { incomplete`, nil},
		{"stray close", `} { valid } {`, []string{`{ valid }`}},
		{"empty", `{}`, []string{`{}`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, jsonObjects(tt.input))
		})
	}
}
