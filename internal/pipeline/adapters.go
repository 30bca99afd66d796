package pipeline

import (
	"context"

	"github.com/ticketops/triage-service/internal/domain"
	"github.com/ticketops/triage-service/internal/repository"
)

// RepoStorage adapts the ticket repository to the pipeline's storage
// surface.
type RepoStorage struct {
	Tickets repository.TicketRepository
}

func (s RepoStorage) GetTicket(ctx context.Context, id string) (*domain.Ticket, error) {
	return s.Tickets.GetByID(ctx, id)
}

func (s RepoStorage) PatchTicket(ctx context.Context, id string, patch repository.TicketPatch) error {
	return s.Tickets.Patch(ctx, id, patch)
}

// RepoDirectory adapts the user repository to the handler directory.
type RepoDirectory struct {
	Users repository.UserRepository
}

func (d RepoDirectory) ListAssignable(ctx context.Context) ([]domain.User, error) {
	return d.Users.ListByRoles(ctx, domain.AssignableRoles())
}
