package mailer

import (
	"context"
	"fmt"
	"strings"

	gomail "gopkg.in/gomail.v2"

	"github.com/jwalitptl/clinic-console/internal/config"
	"github.com/jwalitptl/clinic-console/internal/model"
	"github.com/jwalitptl/clinic-console/pkg/errors"
	"github.com/jwalitptl/clinic-console/pkg/logger"
)

// Service delivers doctor-portal emails to patients.
type Service interface {
	SendPrescription(ctx context.Context, p *model.Prescription) error
}

// Sender is the transport seam; gomail's Dialer satisfies it.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type service struct {
	sender Sender
	from   string
	log    *logger.Logger
}

// NewService builds the SMTP-backed mailer from configuration.
func NewService(cfg config.SMTPConfig, log *logger.Logger) Service {
	return &service{
		sender: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
		log:    log,
	}
}

// NewServiceWithSender builds a mailer over a custom transport, for tests.
func NewServiceWithSender(sender Sender, from string, log *logger.Logger) Service {
	return &service{sender: sender, from: from, log: log}
}

func (s *service) SendPrescription(ctx context.Context, p *model.Prescription) error {
	if errs := model.Validate(p); len(errs) > 0 {
		return errors.Validation(errs)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", p.PatientEmail)
	m.SetHeader("Subject", fmt.Sprintf("Your prescription for booking %s", p.BookingID))
	m.SetBody("text/plain", renderPrescription(p))

	if err := s.sender.DialAndSend(m); err != nil {
		s.log.Error(err, "failed to send prescription email", "booking_id", p.BookingID)
		return errors.Network(err)
	}
	s.log.Info("prescription email sent", "booking_id", p.BookingID)
	return nil
}

func renderPrescription(p *model.Prescription) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Prescription for %s\n", p.PatientName)
	fmt.Fprintf(&b, "Booking: %s\n\n", p.BookingID)
	for i, item := range p.Items {
		fmt.Fprintf(&b, "%d. %s - %s", i+1, item.Name, item.Dosage)
		if item.Duration != "" {
			fmt.Fprintf(&b, " for %s", item.Duration)
		}
		b.WriteString("\n")
	}
	if p.Notes != "" {
		fmt.Fprintf(&b, "\nNotes: %s\n", p.Notes)
	}
	return b.String()
}
