package services

import (
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/HSouheill/affiliate_backend/models"
)

// Mailer emails notifications to the admin mailbox.
type Mailer interface {
	SendNotification(n models.Notification) error
}

type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
	to     string
}

func NewSMTPMailer(host string, port int, user, pass, to string) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(host, port, user, pass),
		from:   user,
		to:     to,
	}
}

func (m *SMTPMailer) SendNotification(n models.Notification) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", m.to)
	msg.SetHeader("Subject", n.Title)
	msg.SetBody("text/plain", fmt.Sprintf("%s\n\nNotification ID: %s\nCreated: %s\n",
		n.Message, n.ID.Hex(), n.CreatedAt.Format("2006-01-02 15:04:05 MST")))

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
