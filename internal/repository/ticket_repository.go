package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ticketops/triage-service/internal/domain"
)

// TicketPatch describes a partial ticket update. Nil fields are left
// untouched, which keeps pipeline steps idempotent against whatever
// state a previous attempt already persisted.
type TicketPatch struct {
	Status        *domain.TicketStatus
	Priority      *domain.TicketPriority
	Level         *domain.TicketLevel
	HelpfulNotes  *string
	RelatedSkills *[]string
	AssigneeID    *string
}

// TicketFilter captures list and count parameters.
type TicketFilter struct {
	CreatedBy  *string
	AssigneeID *string
	Statuses   []domain.TicketStatus
	Limit      int
	Offset     int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	Patch(ctx context.Context, id string, patch TicketPatch) error
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	CountWithFilter(ctx context.Context, filter TicketFilter) (int, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, title, description, created_by, status, priority, level,
               helpful_notes, related_skills, assignee_id, created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (title, description, created_by, status, priority, level, helpful_notes, related_skills, assignee_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.CreatedBy,
		ticket.Status,
		ticket.Priority,
		ticket.Level,
		ticket.HelpfulNotes,
		ticket.RelatedSkills,
		ticket.AssigneeID,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&ticket.ID,
		&ticket.Title,
		&ticket.Description,
		&ticket.CreatedBy,
		&ticket.Status,
		&ticket.Priority,
		&ticket.Level,
		&ticket.HelpfulNotes,
		&ticket.RelatedSkills,
		&ticket.AssigneeID,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) Patch(ctx context.Context, id string, patch TicketPatch) error {
	sets := []string{}
	args := []any{}

	if patch.Status != nil {
		args = append(args, *patch.Status)
		sets = append(sets, fmt.Sprintf("status=$%d", len(args)))
	}
	if patch.Priority != nil {
		args = append(args, *patch.Priority)
		sets = append(sets, fmt.Sprintf("priority=$%d", len(args)))
	}
	if patch.Level != nil {
		args = append(args, *patch.Level)
		sets = append(sets, fmt.Sprintf("level=$%d", len(args)))
	}
	if patch.HelpfulNotes != nil {
		args = append(args, *patch.HelpfulNotes)
		sets = append(sets, fmt.Sprintf("helpful_notes=$%d", len(args)))
	}
	if patch.RelatedSkills != nil {
		args = append(args, *patch.RelatedSkills)
		sets = append(sets, fmt.Sprintf("related_skills=$%d", len(args)))
	}
	if patch.AssigneeID != nil {
		args = append(args, *patch.AssigneeID)
		sets = append(sets, fmt.Sprintf("assignee_id=$%d", len(args)))
	}
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at=NOW()")

	args = append(args, id)
	query := fmt.Sprintf("UPDATE tickets SET %s WHERE id=$%d", strings.Join(sets, ", "), len(args))

	cmd, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses, args := filterClauses(filter)

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		ticketColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) CountWithFilter(ctx context.Context, filter TicketFilter) (int, error) {
	clauses, args := filterClauses(filter)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM tickets WHERE %s`, strings.Join(clauses, " AND "))

	var count int
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func filterClauses(filter TicketFilter) ([]string, []any) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.CreatedBy != nil {
		args = append(args, *filter.CreatedBy)
		clauses = append(clauses, fmt.Sprintf("created_by=$%d", len(args)))
	}
	if filter.AssigneeID != nil {
		args = append(args, *filter.AssigneeID)
		clauses = append(clauses, fmt.Sprintf("assignee_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	return clauses, args
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.Title,
			&ticket.Description,
			&ticket.CreatedBy,
			&ticket.Status,
			&ticket.Priority,
			&ticket.Level,
			&ticket.HelpfulNotes,
			&ticket.RelatedSkills,
			&ticket.AssigneeID,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
