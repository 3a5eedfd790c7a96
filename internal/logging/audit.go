package logging

import (
	"time"

	"go.uber.org/zap"
)

// =============================================================================
// AUDIT EVENT TYPES
// =============================================================================

// AuditEventType names one orchestration milestone.
type AuditEventType string

const (
	AuditClassified      AuditEventType = "request_classified"
	AuditPlanned         AuditEventType = "plan_built"
	AuditDomainComplete  AuditEventType = "domain_complete"
	AuditSynthesized     AuditEventType = "response_synthesized"
	AuditFeedbackDropped AuditEventType = "feedback_dropped"
	AuditWeightsCommit   AuditEventType = "weights_committed"
	AuditRulesReloaded   AuditEventType = "rules_reloaded"
)

// AuditEvent is one structured audit entry.
type AuditEvent struct {
	EventType  AuditEventType
	RequestID  string
	Domain     string
	Status     string
	Success    bool
	DurationMs int64
	Message    string
	Fields     map[string]interface{}
}

// AuditLogger writes audit events to the audit category with typed fields.
type AuditLogger struct {
	requestID string
}

// Audit returns an audit logger with no request correlation.
func Audit() *AuditLogger {
	return &AuditLogger{}
}

// AuditWithRequest returns an audit logger bound to a request ID.
func AuditWithRequest(requestID string) *AuditLogger {
	return &AuditLogger{requestID: requestID}
}

// Log writes an audit event
func (a *AuditLogger) Log(event AuditEvent) {
	if !IsCategoryEnabled(CategoryAudit) {
		return
	}
	if event.RequestID == "" {
		event.RequestID = a.requestID
	}

	fields := make([]zap.Field, 0, 8+len(event.Fields))
	fields = append(fields,
		zap.String("event", string(event.EventType)),
		zap.Int64("ts", time.Now().UnixMilli()),
	)
	if event.RequestID != "" {
		fields = append(fields, zap.String("req", event.RequestID))
	}
	if event.Domain != "" {
		fields = append(fields, zap.String("domain", event.Domain))
	}
	if event.Status != "" {
		fields = append(fields, zap.String("status", event.Status))
	}
	fields = append(fields, zap.Bool("success", event.Success))
	if event.DurationMs > 0 {
		fields = append(fields, zap.Int64("dur_ms", event.DurationMs))
	}
	for k, v := range event.Fields {
		fields = append(fields, zap.Any(k, v))
	}

	msg := event.Message
	if msg == "" {
		msg = string(event.EventType)
	}
	Get(CategoryAudit).Zap().Info(msg, fields...)
}

// =============================================================================
// CONVENIENCE METHODS
// =============================================================================

// Classified records a classification outcome.
func (a *AuditLogger) Classified(primary string, confidence int, multi bool) {
	a.Log(AuditEvent{
		EventType: AuditClassified,
		Domain:    primary,
		Success:   true,
		Fields: map[string]interface{}{
			"confidence": confidence,
			"multi":      multi,
		},
	})
}

// Planned records the activation plan size and priority.
func (a *AuditLogger) Planned(domains []string, priority string) {
	a.Log(AuditEvent{
		EventType: AuditPlanned,
		Success:   true,
		Fields: map[string]interface{}{
			"domains":  domains,
			"priority": priority,
		},
	})
}

// DomainComplete records one settled domain invocation.
func (a *AuditLogger) DomainComplete(domain, status string, durationMs int64, message string) {
	a.Log(AuditEvent{
		EventType:  AuditDomainComplete,
		Domain:     domain,
		Status:     status,
		Success:    status == "success",
		DurationMs: durationMs,
		Message:    message,
	})
}

// Synthesized records the section count and partial flag of a response.
func (a *AuditLogger) Synthesized(sections int, partial bool) {
	a.Log(AuditEvent{
		EventType: AuditSynthesized,
		Success:   !partial,
		Fields:    map[string]interface{}{"sections": sections, "partial": partial},
	})
}

// FeedbackDropped records a feedback record lost to a full buffer.
func (a *AuditLogger) FeedbackDropped(total int64) {
	a.Log(AuditEvent{
		EventType: AuditFeedbackDropped,
		Fields:    map[string]interface{}{"dropped_total": total},
	})
}

// WeightsCommitted records one tuner commit for a domain.
func (a *AuditLogger) WeightsCommitted(domain string, delta int, samples int) {
	a.Log(AuditEvent{
		EventType: AuditWeightsCommit,
		Domain:    domain,
		Success:   true,
		Fields:    map[string]interface{}{"delta": delta, "samples": samples},
	})
}

// RulesReloaded records a hot reload of the rule table.
func (a *AuditLogger) RulesReloaded(path string, rules int, err error) {
	ev := AuditEvent{
		EventType: AuditRulesReloaded,
		Success:   err == nil,
		Fields:    map[string]interface{}{"path": path, "rules": rules},
	}
	if err != nil {
		ev.Message = err.Error()
	}
	a.Log(ev)
}
