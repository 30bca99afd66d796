package assign

import (
	"context"

	"github.com/ticketops/triage-service/internal/domain"
	"github.com/ticketops/triage-service/internal/repository"
)

// OpenTicketCounter derives a handler's workload from the ticket
// store: tickets assigned to the handler in PENDING or IN_PROGRESS.
type OpenTicketCounter struct {
	Tickets repository.TicketRepository
}

func (c OpenTicketCounter) OpenTicketCount(ctx context.Context, userID string) (int, error) {
	return c.Tickets.CountWithFilter(ctx, repository.TicketFilter{
		AssigneeID: &userID,
		Statuses:   domain.OpenStatuses(),
	})
}
