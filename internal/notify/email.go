package notify

import (
	"context"
	"fmt"
	"net"
	"net/smtp"

	"github.com/domodwyer/mailyak/v3"
)

// SMTPSender sends plain-text email over SMTP. A mailyak instance is not
// safe for concurrent use, so one is built per send.
type SMTPSender struct {
	addr string
	from string
	auth smtp.Auth
}

func NewSMTPSender(addr, from, user, password string) *SMTPSender {
	var auth smtp.Auth
	if user != "" {
		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			host = addr
		}
		auth = smtp.PlainAuth("", user, password, host)
	}
	return &SMTPSender{addr: addr, from: from, auth: auth}
}

func (s *SMTPSender) Send(_ context.Context, to, subject, body string) error {
	mail := mailyak.New(s.addr, s.auth)
	mail.From(s.from)
	mail.To(to)
	mail.Subject(subject)
	mail.Plain().Set(body)

	if err := mail.Send(); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
