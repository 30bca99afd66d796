package service

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"github.com/ticketops/triage-service/internal/config"
	"github.com/ticketops/triage-service/internal/events"
	"github.com/ticketops/triage-service/internal/repository"
)

// Mailer delivers plain-text email over SMTP. It is the pipeline's
// notification sink; callers treat failures as non-fatal.
type Mailer struct {
	cfg    config.NotificationConfig
	logger *zap.Logger
}

// NewMailer constructs the mailer.
func NewMailer(cfg config.NotificationConfig, logger *zap.Logger) *Mailer {
	return &Mailer{cfg: cfg, logger: logger}
}

// Notify sends a message to the given address. When SMTP is not
// configured the message is logged and dropped.
func (m *Mailer) Notify(ctx context.Context, address, subject, body string) error {
	if !m.cfg.Enabled() {
		m.logger.Info("smtp not configured; dropping notification",
			zap.String("to", address),
			zap.String("subject", subject))
		return nil
	}

	msg := strings.Join([]string{
		"From: " + m.cfg.From,
		"To: " + address,
		"Subject: " + subject,
		"",
		body,
	}, "\r\n")

	var auth smtp.Auth
	if m.cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", m.cfg.SMTPUser, m.cfg.SMTPPass, m.cfg.SMTPHost)
	}
	addr := fmt.Sprintf("%s:%s", m.cfg.SMTPHost, m.cfg.SMTPPort)
	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{address}, []byte(msg)); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	m.logger.Info("notification sent", zap.String("to", address), zap.String("subject", subject))
	return nil
}

// NotificationService logs domain events as they are dispatched and
// sends the creation acknowledgement email. The assignment email is
// sent by the pipeline's notify step.
type NotificationService struct {
	dispatcher events.Dispatcher
	mailer     *Mailer
	users      repository.UserRepository
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, mailer *Mailer, users repository.UserRepository, logger *zap.Logger) *NotificationService {
	return &NotificationService{dispatcher: dispatcher, mailer: mailer, users: users, logger: logger}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.onTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketCreated, n.logEvent("TicketCreated"))
	n.dispatcher.Subscribe(events.EventTicketTriaged, n.logEvent("TicketTriaged"))
	n.dispatcher.Subscribe(events.EventTicketAssigned, n.logEvent("TicketAssigned"))
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.logEvent("TicketStatusChanged"))
}

// onTicketCreated mails the requester an acknowledgement. Delivery
// failures are logged and swallowed; the ticket already exists.
func (n *NotificationService) onTicketCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCreatedPayload)
	if !ok || payload.CreatedBy == "" {
		return nil
	}
	creator, err := n.users.GetByID(ctx, payload.CreatedBy)
	if err != nil {
		n.logger.Warn("creation acknowledgement skipped; creator lookup failed",
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
		return nil
	}
	body := fmt.Sprintf("We received your ticket: %s", payload.Title)
	if err := n.mailer.Notify(ctx, creator.Email, "Ticket Received", body); err != nil {
		n.logger.Warn("creation acknowledgement failed",
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
	}
	return nil
}

func (n *NotificationService) logEvent(name string) events.EventHandler {
	return func(ctx context.Context, event events.Event) error {
		n.logger.Info(name,
			zap.String("ticket_id", event.TicketID),
			zap.Any("payload", event.Payload))
		return nil
	}
}
