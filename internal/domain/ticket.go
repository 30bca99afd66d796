package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets. The triage
// pipeline only ever moves a ticket forward: PENDING -> IN_PROGRESS;
// RESOLVED is reached through the staff update surface.
type TicketStatus string

const (
	TicketStatusPending    TicketStatus = "PENDING"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusResolved   TicketStatus = "RESOLVED"
)

// OpenStatuses are the states that count toward a handler's workload.
func OpenStatuses() []TicketStatus {
	return []TicketStatus{TicketStatusPending, TicketStatusInProgress}
}

// ValidStatus reports whether s is a known lifecycle state.
func ValidStatus(s TicketStatus) bool {
	switch s {
	case TicketStatusPending, TicketStatusInProgress, TicketStatusResolved:
		return true
	}
	return false
}

// TicketPriority enumerates urgency as produced by triage.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
)

// NormalizePriority coerces unknown priority values to medium.
func NormalizePriority(raw string) TicketPriority {
	switch TicketPriority(raw) {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh:
		return TicketPriority(raw)
	}
	return TicketPriorityMedium
}

// TicketLevel is the escalation tier indicating required expertise depth.
type TicketLevel string

const (
	TicketLevelL1 TicketLevel = "L1"
	TicketLevelL2 TicketLevel = "L2"
	TicketLevelL3 TicketLevel = "L3"
)

// NormalizeLevel coerces unknown level values to L1.
func NormalizeLevel(raw string) TicketLevel {
	switch TicketLevel(raw) {
	case TicketLevelL1, TicketLevelL2, TicketLevelL3:
		return TicketLevel(raw)
	}
	return TicketLevelL1
}

// Ticket is the aggregate for support requests. Title, Description and
// CreatedBy are immutable after creation; the remaining fields are
// written by the triage pipeline and the staff update surface.
type Ticket struct {
	ID            string
	Title         string
	Description   string
	CreatedBy     string
	Status        TicketStatus
	Priority      TicketPriority
	Level         TicketLevel
	HelpfulNotes  string
	RelatedSkills []string
	AssigneeID    *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
