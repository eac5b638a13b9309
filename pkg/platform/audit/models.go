package audit

import (
	"context"
	"time"

	id "sessiongate/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose so sinks can
// apply different retention.
type EventCategory string

const (
	// CategoryCompliance covers identity lifecycle events.
	CategoryCompliance EventCategory = "compliance"
	// CategorySecurity covers authentication failures and revocations.
	CategorySecurity EventCategory = "security"
	// CategoryOperations covers routine session activity.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from the auth service to capture key actions. Keep it
// transport-agnostic so stores can fan out.
type Event struct {
	Category   EventCategory `bson:"category"`
	Timestamp  time.Time     `bson:"timestamp"`
	IdentityID id.IdentityID `bson:"identity_id,omitempty"`
	Email      string        `bson:"email,omitempty"`
	Action     string        `bson:"action"`
	Reason     string        `bson:"reason,omitempty"`
	RequestID  string        `bson:"request_id,omitempty"`
	ClientIP   string        `bson:"client_ip,omitempty"`
}

type AuditEvent string

const (
	EventIdentityRegistered AuditEvent = "identity_registered"
	EventSessionCreated     AuditEvent = "session_created"
	EventSessionRevoked     AuditEvent = "session_revoked"
	EventAuthFailed         AuditEvent = "auth_failed"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventIdentityRegistered: CategoryCompliance,
	EventAuthFailed:         CategorySecurity,
	EventSessionRevoked:     CategorySecurity,
	EventSessionCreated:     CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByIdentity(ctx context.Context, identityID id.IdentityID) ([]Event, error)
}
