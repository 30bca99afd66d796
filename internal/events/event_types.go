package events

import (
	"time"

	"github.com/ticketops/triage-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketTriaged       EventType = "ticket_triaged"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventTicketStatusChanged EventType = "ticket_status_changed"
)

// Event represents a domain event emitted by services and the triage
// pipeline.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	ActorID   string      `json:"actor_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Title     string `json:"title"`
	CreatedBy string `json:"created_by"`
}

// TicketTriagedPayload payload. Fallback marks runs where the
// analysis engine failed and defaults were persisted instead.
type TicketTriagedPayload struct {
	Priority      domain.TicketPriority `json:"priority"`
	Level         domain.TicketLevel    `json:"level"`
	RelatedSkills []string              `json:"related_skills,omitempty"`
	Fallback      bool                  `json:"fallback"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	AssigneeID string `json:"assignee_id"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}
