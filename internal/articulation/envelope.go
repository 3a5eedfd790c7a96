package articulation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"kairo/internal/logging"
	"kairo/internal/types"
)

// Envelope is the JSON wire form of one answered request: the rendered
// markdown plus a machine-readable account of what ran.
type Envelope struct {
	Success bool         `json:"success"`
	Result  string       `json:"result"`
	Data    EnvelopeData `json:"data"`
}

// EnvelopeData carries the orchestration details of an Envelope.
type EnvelopeData struct {
	RequestID        string           `json:"request_id"`
	Primary          types.DomainID   `json:"primary"`
	Confidence       int              `json:"confidence"`
	Partial          bool             `json:"partial"`
	ActivatedDomains []types.DomainID `json:"activated_domains"`
	DomainResults    []DomainReport   `json:"domain_results"`
	Sections         []string         `json:"sections"`
	ElapsedMs        int64            `json:"elapsed_ms"`
}

// DomainReport is one domain's entry in an Envelope.
type DomainReport struct {
	Domain     types.DomainID     `json:"domain"`
	Status     types.DomainStatus `json:"status"`
	Message    string             `json:"message,omitempty"`
	Payload    types.Payload      `json:"payload,omitempty"`
	DurationMs int64              `json:"duration_ms"`
}

// NewEnvelope packages a synthesized response. Success is false only when
// every planned domain failed.
func NewEnvelope(requestID string, cls types.ClassificationResult, results map[types.DomainID]types.DomainResult, resp types.SynthesizedResponse, elapsed time.Duration) Envelope {
	env := Envelope{
		Result: resp.Markdown(),
		Data: EnvelopeData{
			RequestID:  requestID,
			Primary:    cls.Primary,
			Confidence: cls.Confidence,
			Partial:    resp.Partial,
			ElapsedMs:  elapsed.Milliseconds(),
		},
	}
	for _, r := range orderedResults(results) {
		env.Data.ActivatedDomains = append(env.Data.ActivatedDomains, r.Domain)
		env.Data.DomainResults = append(env.Data.DomainResults, DomainReport{
			Domain:     r.Domain,
			Status:     r.Status,
			Message:    r.Message,
			Payload:    r.Payload,
			DurationMs: r.Duration.Milliseconds(),
		})
		if !r.Failed() {
			env.Success = true
		}
	}
	for _, tag := range resp.Tags() {
		env.Data.Sections = append(env.Data.Sections, string(tag))
	}
	return env
}

// Emitter writes envelopes as newline-delimited JSON. It is safe for
// concurrent use.
type Emitter struct {
	mu     sync.Mutex
	w      io.Writer
	indent bool
}

// NewEmitter creates an emitter writing to w. With indent set every
// envelope is pretty-printed.
func NewEmitter(w io.Writer, indent bool) *Emitter {
	return &Emitter{w: w, indent: indent}
}

// Emit writes one envelope.
func (e *Emitter) Emit(env Envelope) error {
	var (
		data []byte
		err  error
	)
	if e.indent {
		data, err = json.MarshalIndent(env, "", "  ")
	} else {
		data, err = json.Marshal(env)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write envelope: %w", err)
	}
	logging.ArticulationDebug("Emitted envelope %s (%d bytes)", env.Data.RequestID, len(data))
	return nil
}

// ParseMethod reports how ParseEnvelope found the envelope.
type ParseMethod string

const (
	ParseDirect   ParseMethod = "json"
	ParseFenced   ParseMethod = "json_fenced"
	ParseEmbedded ParseMethod = "json_embedded"
)

// ErrNoEnvelope is returned when the input holds no envelope.
var ErrNoEnvelope = errors.New("no envelope found")

// ParseEnvelope reads an envelope from raw, which may be bare JSON, a
// fenced ```json block, or JSON embedded in surrounding text such as a
// captured log. When several objects are embedded the last valid one wins.
func ParseEnvelope(raw string) (Envelope, ParseMethod, error) {
	s := strings.TrimSpace(raw)
	if env, err := decodeEnvelope(s); err == nil {
		return env, ParseDirect, nil
	}

	if fenced, ok := unfence(s); ok {
		if env, err := decodeEnvelope(fenced); err == nil {
			return env, ParseFenced, nil
		}
	}

	candidates := jsonObjects(s)
	for i := len(candidates) - 1; i >= 0; i-- {
		if env, err := decodeEnvelope(candidates[i]); err == nil {
			return env, ParseEmbedded, nil
		}
	}
	return Envelope{}, "", ErrNoEnvelope
}

func decodeEnvelope(s string) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal([]byte(s), &env); err != nil {
		return Envelope{}, err
	}
	if env.Result == "" && env.Data.RequestID == "" {
		return Envelope{}, ErrNoEnvelope
	}
	return env, nil
}

func unfence(s string) (string, bool) {
	if !strings.HasPrefix(s, "```") {
		return "", false
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(strings.TrimPrefix(s, "json"), "JSON")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s), true
}
