package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/ticketops/triage-service/internal/api/dto"
	"github.com/ticketops/triage-service/internal/auth"
	"github.com/ticketops/triage-service/internal/config"
	"github.com/ticketops/triage-service/internal/domain"
	"github.com/ticketops/triage-service/internal/service"
	apperrors "github.com/ticketops/triage-service/pkg/util"
)

// TicketsHandler manages ticket endpoints.
type TicketsHandler struct {
	service   *service.TicketService
	engineCfg config.EngineConfig
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService, engineCfg config.EngineConfig) *TicketsHandler {
	return &TicketsHandler{service: ticketService, engineCfg: engineCfg}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.CreateTicket(c.Context(), actor.ID, req.Title, req.Description)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	tickets, err := h.service.ListTickets(c.Context(), actor, pageSize, (page-1)*pageSize)
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	ticket, err := h.service.GetTicket(c.Context(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// UpdateStatus PATCH /tickets/:id/status.
func (h *TicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.UpdateStatus(c.Context(), actor, c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// UserStats GET /users/:id/stats.
func (h *TicketsHandler) UserStats(c *fiber.Ctx) error {
	stats, err := h.service.StatsForUser(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.UserStatsResponse{
		TotalTickets:     stats.TotalTickets,
		ActiveTickets:    stats.ActiveTickets,
		CompletedTickets: stats.CompletedTickets,
	}})
}

// EngineConfig GET /tickets/engine-config.
func (h *TicketsHandler) EngineConfig(c *fiber.Ctx) error {
	resp := dto.EngineConfigResponse{EngineConfigured: h.engineCfg.Configured()}
	if resp.EngineConfigured {
		resp.Model = h.engineCfg.Model
	}
	return c.JSON(fiber.Map{"data": resp})
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func ticketSummary(ticket *domain.Ticket) dto.TicketSummary {
	return dto.TicketSummary{
		ID:         ticket.ID,
		Title:      ticket.Title,
		Status:     ticket.Status,
		Priority:   ticket.Priority,
		Level:      ticket.Level,
		AssigneeID: ticket.AssigneeID,
		CreatedAt:  ticket.CreatedAt,
		UpdatedAt:  ticket.UpdatedAt,
	}
}

func ticketDetail(ticket *domain.Ticket) dto.TicketDetailResponse {
	return dto.TicketDetailResponse{
		ID:            ticket.ID,
		Title:         ticket.Title,
		Description:   ticket.Description,
		CreatedBy:     ticket.CreatedBy,
		Status:        ticket.Status,
		Priority:      ticket.Priority,
		Level:         ticket.Level,
		HelpfulNotes:  ticket.HelpfulNotes,
		RelatedSkills: ticket.RelatedSkills,
		AssigneeID:    ticket.AssigneeID,
		CreatedAt:     ticket.CreatedAt,
		UpdatedAt:     ticket.UpdatedAt,
	}
}
