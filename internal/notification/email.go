package notification

import (
	"context"
	"fmt"
	"html"

	"github.com/rs/zerolog/log"
	"gopkg.in/gomail.v2"
)

// EmailSender delivers login links over SMTP
type EmailSender struct {
	dialer   *gomail.Dialer
	from     string
	fromName string
}

// NewEmailSender creates an SMTP sender
func NewEmailSender(host string, port int, username, password, from, fromName string) *EmailSender {
	return &EmailSender{
		dialer:   gomail.NewDialer(host, port, username, password),
		from:     from,
		fromName: fromName,
	}
}

// SendLoginLink mails the magic link to email
func (s *EmailSender) SendLoginLink(ctx context.Context, email, link string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.from, s.fromName)
	m.SetHeader("To", email)
	m.SetHeader("Subject", "Your sign-in link")
	m.SetBody("text/plain", loginText(link))
	m.AddAlternative("text/html", loginHTML(link))

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	log.Debug().Str("email", email).Msg("Login email sent")
	return nil
}

func loginText(link string) string {
	return fmt.Sprintf("Open this link to sign in:\n\n%s\n\nIf you did not ask for it, ignore this email.\n", link)
}

func loginHTML(link string) string {
	return fmt.Sprintf(`<p>Open this link to sign in:</p><p><a href="%s">Sign in</a></p>`+
		`<p>If you did not ask for it, ignore this email.</p>`, html.EscapeString(link))
}
