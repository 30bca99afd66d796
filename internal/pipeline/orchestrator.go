package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/ticketops/triage-service/internal/analysis"
	"github.com/ticketops/triage-service/internal/assign"
	"github.com/ticketops/triage-service/internal/domain"
	"github.com/ticketops/triage-service/internal/events"
	"github.com/ticketops/triage-service/internal/observability"
	"github.com/ticketops/triage-service/internal/repository"
)

// ErrTicketNotFound aborts a run without retry: a missing ticket is a
// logic error upstream, not a transient condition.
var ErrTicketNotFound = errors.New("ticket not found")

// extraAttempts is the whole-run retry budget applied on top of the
// first attempt. Steps are idempotent against persisted state, so
// re-running from the top is safe; at worst a notification is re-sent.
const extraAttempts = 2

// Storage is the persistence surface the pipeline needs.
type Storage interface {
	GetTicket(ctx context.Context, id string) (*domain.Ticket, error)
	PatchTicket(ctx context.Context, id string, patch repository.TicketPatch) error
}

// Directory lists the current eligible handler pool.
type Directory interface {
	ListAssignable(ctx context.Context) ([]domain.User, error)
}

// Selector picks a handler for a ticket.
type Selector interface {
	Select(ctx context.Context, requiredSkills []string, level domain.TicketLevel, candidates []domain.User) (*domain.User, []assign.ScoreEntry, error)
}

// Notifier is the external notification sink. Failures are never
// fatal to the pipeline.
type Notifier interface {
	Notify(ctx context.Context, address, subject, body string) error
}

// Orchestrator sequences the ticket lifecycle: fetch, mark pending,
// analyze, assign, notify. Every failure except a missing ticket is
// absorbed at the step boundary and converted into a degraded but
// valid ticket state.
type Orchestrator struct {
	storage    Storage
	directory  Directory
	analyzer   analysis.Client
	selector   Selector
	notifier   Notifier
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// Dependencies bundles orchestrator collaborators.
type Dependencies struct {
	Storage    Storage
	Directory  Directory
	Analyzer   analysis.Client
	Selector   Selector
	Notifier   Notifier
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// NewOrchestrator creates the orchestrator.
func NewOrchestrator(deps Dependencies) *Orchestrator {
	return &Orchestrator{
		storage:    deps.Storage,
		directory:  deps.Directory,
		analyzer:   deps.Analyzer,
		selector:   deps.Selector,
		notifier:   deps.Notifier,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
	}
}

// RunWithRetry executes the full run, re-executing the whole run up to
// the retry budget when it reports failure. The result is a plain
// success flag; nothing propagates past this boundary.
func (o *Orchestrator) RunWithRetry(ctx context.Context, ticketID string) bool {
	for attempt := 1; attempt <= 1+extraAttempts; attempt++ {
		err := o.Run(ctx, ticketID)
		if err == nil {
			return true
		}
		if errors.Is(err, ErrTicketNotFound) {
			o.logger.Error("triage run aborted", zap.String("ticket_id", ticketID), zap.Error(err))
			return false
		}
		o.logger.Warn("triage run failed",
			zap.String("ticket_id", ticketID),
			zap.Int("attempt", attempt),
			zap.Error(err))
	}
	return false
}

// Run executes one pass over the pipeline. Only a missing ticket (or a
// storage write failure, which the harness retries) surfaces as an
// error; engine, extraction, selection and notification failures all
// degrade in place.
func (o *Orchestrator) Run(ctx context.Context, ticketID string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("triage run panicked", zap.String("ticket_id", ticketID), zap.Any("panic", r))
			err = fmt.Errorf("triage run panicked: %v", r)
		}
	}()

	ticket, err := o.fetchTicket(ctx, ticketID)
	if err != nil {
		return err
	}
	if err := o.markPending(ctx, ticket); err != nil {
		return fmt.Errorf("mark pending: %w", err)
	}
	if err := o.analyzeTicket(ctx, ticket); err != nil {
		return fmt.Errorf("analyze: %w", err)
	}
	assignee, err := o.assignTicket(ctx, ticketID)
	if err != nil {
		return fmt.Errorf("assign: %w", err)
	}
	o.notifyAssignee(ctx, ticketID, assignee)
	return nil
}

func (o *Orchestrator) fetchTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := o.storage.GetTicket(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrTicketNotFound, ticketID)
		}
		return nil, fmt.Errorf("fetch ticket: %w", err)
	}
	return ticket, nil
}

func (o *Orchestrator) markPending(ctx context.Context, ticket *domain.Ticket) error {
	if ticket.Status == domain.TicketStatusPending {
		return nil
	}
	status := domain.TicketStatusPending
	return o.storage.PatchTicket(ctx, ticket.ID, repository.TicketPatch{Status: &status})
}

// analyzeTicket calls the engine and extractor, then persists either
// the full triage record or the defaults. Engine unavailability,
// engine errors and extraction failures all take the default path;
// blocking ticket intake on a flaky external dependency is worse than
// handing a human an untriaged ticket.
func (o *Orchestrator) analyzeTicket(ctx context.Context, ticket *domain.Ticket) error {
	record := domain.DefaultTriage()
	fallback := true

	raw, err := o.analyzer.Analyze(ctx, ticket.Title, ticket.Description)
	if err != nil {
		o.logger.Warn("engine analysis failed; using default triage",
			zap.String("ticket_id", ticket.ID),
			zap.Error(err))
	} else if extracted, err := analysis.Extract(raw); err != nil {
		o.logger.Warn("extraction failed; using default triage",
			zap.String("ticket_id", ticket.ID),
			zap.Error(err))
	} else {
		record = *extracted
		fallback = false
	}

	status := domain.TicketStatusInProgress
	patch := repository.TicketPatch{
		Status:   &status,
		Priority: &record.Priority,
		Level:    &record.Level,
	}
	if !fallback {
		patch.HelpfulNotes = &record.HelpfulNotes
		patch.RelatedSkills = &record.RelatedSkills
	}
	if err := o.storage.PatchTicket(ctx, ticket.ID, patch); err != nil {
		return err
	}

	if fallback {
		o.metrics.RecordStep("analyze", "fallback")
	} else {
		o.metrics.RecordStep("analyze", "ok")
	}
	o.publish(ctx, events.Event{
		Type:     events.EventTicketTriaged,
		TicketID: ticket.ID,
		Payload: events.TicketTriagedPayload{
			Priority:      record.Priority,
			Level:         record.Level,
			RelatedSkills: record.RelatedSkills,
			Fallback:      fallback,
		},
	})
	return nil
}

// assignTicket re-reads the ticket so the level reflects whatever the
// analyze step persisted, then runs the scorer over the current
// handler pool. An empty pool is reportable but non-fatal.
func (o *Orchestrator) assignTicket(ctx context.Context, ticketID string) (*domain.User, error) {
	ticket, err := o.fetchTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	pool, err := o.directory.ListAssignable(ctx)
	if err != nil {
		return nil, fmt.Errorf("list handlers: %w", err)
	}

	assignee, _, err := o.selector.Select(ctx, ticket.RelatedSkills, ticket.Level, pool)
	if err != nil {
		if errors.Is(err, assign.ErrNoCandidate) {
			o.metrics.RecordStep("assign", "no_candidate")
			o.logger.Info("no suitable handler found; leaving ticket unassigned",
				zap.String("ticket_id", ticketID))
			return nil, nil
		}
		return nil, err
	}

	if err := o.storage.PatchTicket(ctx, ticketID, repository.TicketPatch{AssigneeID: &assignee.ID}); err != nil {
		return nil, err
	}

	o.metrics.RecordStep("assign", "ok")
	o.logger.Info("ticket assigned",
		zap.String("ticket_id", ticketID),
		zap.String("assignee_id", assignee.ID),
		zap.String("assignee_role", string(assignee.Role)))
	o.publish(ctx, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: ticketID,
		Payload:  events.TicketAssignedPayload{AssigneeID: assignee.ID},
	})
	return assignee, nil
}

// notifyAssignee dispatches the assignment email. Failures are logged
// and swallowed; they never revert status or assignment, and a re-run
// may re-send (at-most-a-few-times delivery, not exactly-once).
func (o *Orchestrator) notifyAssignee(ctx context.Context, ticketID string, assignee *domain.User) {
	if assignee == nil {
		return
	}
	ticket, err := o.fetchTicket(ctx, ticketID)
	if err != nil {
		o.logger.Warn("notify skipped; ticket re-read failed", zap.String("ticket_id", ticketID), zap.Error(err))
		return
	}
	body := fmt.Sprintf("A new ticket is assigned to you: %s", ticket.Title)
	if err := o.notifier.Notify(ctx, assignee.Email, "Ticket Assigned", body); err != nil {
		o.metrics.RecordStep("notify", "failed")
		o.logger.Warn("assignment notification failed",
			zap.String("ticket_id", ticketID),
			zap.String("assignee_id", assignee.ID),
			zap.Error(err))
		return
	}
	o.metrics.RecordStep("notify", "ok")
}

func (o *Orchestrator) publish(ctx context.Context, event events.Event) {
	if o.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = o.dispatcher.Publish(ctx, event)
}
