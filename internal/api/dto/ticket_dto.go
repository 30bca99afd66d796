package dto

import (
	"time"

	"github.com/ticketops/triage-service/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status domain.TicketStatus `json:"status"`
}

// TicketSummary response.
type TicketSummary struct {
	ID         string                `json:"id"`
	Title      string                `json:"title"`
	Status     domain.TicketStatus   `json:"status"`
	Priority   domain.TicketPriority `json:"priority"`
	Level      domain.TicketLevel    `json:"level"`
	AssigneeID *string               `json:"assignee_id,omitempty"`
	CreatedAt  time.Time             `json:"created_at"`
	UpdatedAt  time.Time             `json:"updated_at"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	ID            string                `json:"id"`
	Title         string                `json:"title"`
	Description   string                `json:"description"`
	CreatedBy     string                `json:"created_by"`
	Status        domain.TicketStatus   `json:"status"`
	Priority      domain.TicketPriority `json:"priority"`
	Level         domain.TicketLevel    `json:"level"`
	HelpfulNotes  string                `json:"helpful_notes,omitempty"`
	RelatedSkills []string              `json:"related_skills"`
	AssigneeID    *string               `json:"assignee_id,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

// UserStatsResponse summarizes a handler's workload.
type UserStatsResponse struct {
	TotalTickets     int `json:"total_tickets"`
	ActiveTickets    int `json:"active_tickets"`
	CompletedTickets int `json:"completed_tickets"`
}

// EngineConfigResponse reports whether the analysis engine is usable.
type EngineConfigResponse struct {
	EngineConfigured bool   `json:"engine_configured"`
	Model            string `json:"model,omitempty"`
}
