package audit

import (
	"context"
	"time"
)

// EventCategory classifies audit events by their primary purpose so sinks can
// apply different retention.
type EventCategory string

const (
	// CategoryCompliance covers events with regulatory significance, such as a
	// verification case reaching an outcome.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers authentication outcomes.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine progress such as stage changes.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory `json:"category"`
	Timestamp time.Time     `json:"timestamp"`
	SubjectID string        `json:"subject_id,omitempty"`
	Action    string        `json:"action"`
	Method    string        `json:"method,omitempty"`
	CaseID    string        `json:"case_id,omitempty"`
	Stage     string        `json:"stage,omitempty"`
	Reason    string        `json:"reason,omitempty"`
	RequestID string        `json:"request_id,omitempty"`
	ClientIP  string        `json:"client_ip,omitempty"`
}

type AuditEvent string

const (
	// Session events
	EventLoginSucceeded AuditEvent = "login_succeeded"
	EventLoginFailed    AuditEvent = "login_failed"
	EventLoggedOut      AuditEvent = "logged_out"

	// Verification events
	EventCaseStarted      AuditEvent = "case_started"
	EventCaseStageChanged AuditEvent = "case_stage_changed"
	EventCaseCompleted    AuditEvent = "case_completed"
	EventCaseFailed       AuditEvent = "case_failed"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventLoginSucceeded: CategorySecurity,
	EventLoginFailed:    CategorySecurity,
	EventLoggedOut:      CategorySecurity,

	EventCaseStarted:   CategoryCompliance,
	EventCaseCompleted: CategoryCompliance,
	EventCaseFailed:    CategoryCompliance,

	EventCaseStageChanged: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// NewEvent builds an event with its category filled in.
func NewEvent(action AuditEvent, subjectID string) Event {
	return Event{
		Category:  action.Category(),
		SubjectID: subjectID,
		Action:    string(action),
	}
}

// Sink accepts audit events for durable handling.
type Sink interface {
	Append(ctx context.Context, event Event) error
}

// Emitter is what domain services depend on.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}

// MultiSink appends to every sink in order and returns the first error.
type MultiSink []Sink

func (m MultiSink) Append(ctx context.Context, event Event) error {
	var first error
	for _, s := range m {
		if err := s.Append(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Discard drops every event.
var Discard Emitter = discard{}

type discard struct{}

func (discard) Emit(context.Context, Event) error { return nil }
