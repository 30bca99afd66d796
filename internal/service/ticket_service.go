package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/ticketops/triage-service/internal/domain"
	"github.com/ticketops/triage-service/internal/events"
	"github.com/ticketops/triage-service/internal/pipeline"
	"github.com/ticketops/triage-service/internal/queue"
	"github.com/ticketops/triage-service/internal/repository"
	apperrors "github.com/ticketops/triage-service/pkg/util"
)

// TicketService coordinates ticket intake and the staff update
// surface. Triage itself runs in the pipeline; intake only creates the
// ticket and emits the trigger event.
type TicketService struct {
	tickets      repository.TicketRepository
	queue        *queue.TriageQueue
	orchestrator *pipeline.Orchestrator
	dispatcher   events.Dispatcher
	logger       *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo   repository.TicketRepository
	Queue        *queue.TriageQueue
	Orchestrator *pipeline.Orchestrator
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:      deps.TicketRepo,
		queue:        deps.Queue,
		orchestrator: deps.Orchestrator,
		dispatcher:   deps.Dispatcher,
		logger:       deps.Logger,
	}
}

// UserStats summarizes a handler's ticket load.
type UserStats struct {
	TotalTickets     int
	ActiveTickets    int
	CompletedTickets int
}

// CreateTicket creates a ticket and triggers its triage run. Creation
// always succeeds from the caller's perspective even when every
// downstream step fails; the pipeline degrades the ticket in place
// rather than surfacing errors here.
func (s *TicketService) CreateTicket(ctx context.Context, userID, title, description string) (*domain.Ticket, error) {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	if title == "" || description == "" {
		return nil, apperrors.NewValidationError("title and description are required", nil)
	}

	ticket := &domain.Ticket{
		Title:         title,
		Description:   description,
		CreatedBy:     userID,
		Status:        domain.TicketStatusPending,
		Priority:      domain.TicketPriorityMedium,
		Level:         domain.TicketLevelL1,
		RelatedSkills: []string{},
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		ActorID:  userID,
		Payload: events.TicketCreatedPayload{
			Title:     ticket.Title,
			CreatedBy: userID,
		},
	})

	if err := s.queue.Enqueue(ctx, ticket.ID); err != nil {
		// The queue is a convenience, not a gatekeeper: run the
		// pipeline inline so the ticket still gets triaged.
		s.logger.Warn("triage enqueue failed; running pipeline inline",
			zap.String("ticket_id", ticket.ID),
			zap.Error(err))
		go s.orchestrator.RunWithRetry(context.WithoutCancel(ctx), ticket.ID)
	}

	return ticket, nil
}

// ListTickets returns tickets visible to the actor: handlers and
// admins see everything, end users see the tickets they created.
func (s *TicketService) ListTickets(ctx context.Context, actor *domain.User, limit, offset int) ([]domain.Ticket, error) {
	filter := repository.TicketFilter{Limit: limit, Offset: offset}
	if actor.Role == domain.RoleUser {
		filter.CreatedBy = &actor.ID
	}
	tickets, err := s.tickets.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// GetTicket fetches a ticket, enforcing the same visibility rule as
// ListTickets.
func (s *TicketService) GetTicket(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	if actor.Role == domain.RoleUser && ticket.CreatedBy != actor.ID {
		return nil, apperrors.NewForbidden("access denied")
	}
	return ticket, nil
}

// UpdateStatus changes a ticket's status through the staff update
// surface. Unlike the pipeline, this surface may move status in any
// direction between valid states.
func (s *TicketService) UpdateStatus(ctx context.Context, actor *domain.User, ticketID string, newStatus domain.TicketStatus) (*domain.Ticket, error) {
	if !domain.ValidStatus(newStatus) {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": newStatus})
	}

	ticket, err := s.GetTicket(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status == newStatus {
		return ticket, nil
	}

	oldStatus := ticket.Status
	if err := s.tickets.Patch(ctx, ticketID, repository.TicketPatch{Status: &newStatus}); err != nil {
		return nil, apperrors.MapError(err)
	}
	ticket.Status = newStatus

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticketID,
		ActorID:  actor.ID,
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: newStatus,
		},
	})
	return ticket, nil
}

// StatsForUser returns a handler's total, active and completed ticket
// counts.
func (s *TicketService) StatsForUser(ctx context.Context, userID string) (*UserStats, error) {
	total, err := s.tickets.CountWithFilter(ctx, repository.TicketFilter{AssigneeID: &userID})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	active, err := s.tickets.CountWithFilter(ctx, repository.TicketFilter{
		AssigneeID: &userID,
		Statuses:   domain.OpenStatuses(),
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	completed, err := s.tickets.CountWithFilter(ctx, repository.TicketFilter{
		AssigneeID: &userID,
		Statuses:   []domain.TicketStatus{domain.TicketStatusResolved},
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return &UserStats{
		TotalTickets:     total,
		ActiveTickets:    active,
		CompletedTickets: completed,
	}, nil
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
