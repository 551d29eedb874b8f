package mailer

import (
	"bytes"
	"fmt"
	"html/template"

	"gopkg.in/gomail.v2"

	"github.com/Pyrogramic/test-event-website/internal/models"
	"github.com/Pyrogramic/test-event-website/pkg/config"
)

const approvalTemplate = `<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #2563EB;">Registration Approved!</h2>
  <p>Dear {{.StudentName}},</p>
  <p>Your registration for <strong>{{.EventTitle}}</strong> has been approved.</p>
  <div style="background-color: #f8fafc; padding: 20px; border-radius: 8px; margin: 20px 0;">
    <h3 style="color: #1e293b; margin-top: 0;">Event Details:</h3>
    <p><strong>Event:</strong> {{.EventTitle}}</p>
    <p><strong>Date:</strong> {{.EventDate}}</p>
    <p><strong>Time:</strong> {{.EventTime}}</p>
    <p><strong>Venue:</strong> {{.Venue}}</p>
  </div>
  <p>Please make sure to attend the event on time. If you have any questions, feel free to contact us.</p>
  <p>Best regards,<br>Event Management Team</p>
</div>`

// Mailer delivers approval notifications over SMTP.
type Mailer struct {
	dialer *gomail.Dialer
	from   string
	tmpl   *template.Template
}

// New builds a Mailer from SMTP configuration.
func New(cfg config.SMTPConfig) (*Mailer, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("smtp host not configured")
	}
	tmpl, err := template.New("approval").Parse(approvalTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse approval template: %w", err)
	}
	from := cfg.From
	if from == "" {
		from = cfg.Username
	}
	return &Mailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   from,
		tmpl:   tmpl,
	}, nil
}

// NotifyApproval emails the student that their registration was approved.
// Failures are reported to the caller, which treats delivery as best-effort.
func (m *Mailer) NotifyApproval(reg *models.RegistrationDetail) error {
	body := &bytes.Buffer{}
	data := struct {
		StudentName string
		EventTitle  string
		EventDate   string
		EventTime   string
		Venue       string
	}{
		StudentName: reg.StudentName,
		EventTitle:  reg.EventTitle,
		EventDate:   reg.EventDate.Format("January 2, 2006"),
		EventTime:   reg.EventDate.Format("3:04 PM"),
		Venue:       venueOrTBD(reg.EventVenue),
	}
	if err := m.tmpl.Execute(body, data); err != nil {
		return fmt.Errorf("render approval email: %w", err)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", reg.StudentEmail)
	msg.SetHeader("Subject", fmt.Sprintf("Registration Approved: %s", reg.EventTitle))
	msg.SetBody("text/html", body.String())

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send approval email: %w", err)
	}
	return nil
}

func venueOrTBD(venue string) string {
	if venue == "" {
		return "TBD"
	}
	return venue
}
