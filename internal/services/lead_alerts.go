package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/charlesng35/leadflow/internal/events"
	"github.com/charlesng35/leadflow/internal/models"
	"github.com/charlesng35/leadflow/pkg/logger"
	"github.com/charlesng35/leadflow/pkg/mail"
)

const leadAlertTimeout = 15 * time.Second

// LeadAlertMailer emails the configured recipients when a lead is created.
type LeadAlertMailer struct {
	mailer     mail.Mailer
	recipients []string
	log        *zap.Logger
}

// NewLeadAlertMailer returns nil when there is nobody to notify.
func NewLeadAlertMailer(mailer mail.Mailer, recipients []string) *LeadAlertMailer {
	if mailer == nil || len(recipients) == 0 {
		return nil
	}
	return &LeadAlertMailer{
		mailer:     mailer,
		recipients: recipients,
		log:        logger.WithModule("lead-alerts"),
	}
}

// Subscribe registers the mailer for lead.created events.
func (m *LeadAlertMailer) Subscribe(bus *events.Bus) func() {
	if m == nil {
		return func() {}
	}
	return bus.Subscribe(m.Handle, events.LeadCreated)
}

// Handle sends the alert for a lead.created event. Send failures are logged.
func (m *LeadAlertMailer) Handle(ctx context.Context, evt events.Event) {
	lead, ok := evt.Payload.(models.Lead)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(ensureContext(ctx), leadAlertTimeout)
	defer cancel()

	if err := m.mailer.Send(ctx, leadAlertMessage(lead, m.recipients)); err != nil {
		m.log.Warn("send lead alert failed", zap.String("lead_id", lead.ID), zap.Error(err))
	}
}

func leadAlertMessage(lead models.Lead, recipients []string) mail.Message {
	var body strings.Builder
	fmt.Fprintf(&body, "A new lead was captured.\n\n")
	fmt.Fprintf(&body, "Name: %s\n", lead.Name)
	fmt.Fprintf(&body, "Email: %s\n", lead.Email)
	if lead.Phone != "" {
		fmt.Fprintf(&body, "Phone: %s\n", lead.Phone)
	}
	if lead.Company != "" {
		fmt.Fprintf(&body, "Company: %s\n", lead.Company)
	}
	if lead.InstagramHandle != "" {
		fmt.Fprintf(&body, "Instagram: @%s\n", lead.InstagramHandle)
	}
	if lead.ServiceInterest != "" {
		fmt.Fprintf(&body, "Interested in: %s\n", lead.ServiceInterest)
	}
	if lead.BookingTime != nil {
		fmt.Fprintf(&body, "Booked call: %s\n", lead.BookingTime.UTC().Format(time.RFC1123))
	}
	if lead.Source != "" {
		fmt.Fprintf(&body, "Source: %s\n", lead.Source)
	}
	if lead.Notes != "" {
		fmt.Fprintf(&body, "\n%s\n", lead.Notes)
	}

	return mail.Message{
		To:      recipients,
		Subject: "New lead: " + lead.Name,
		Body:    body.String(),
	}
}
