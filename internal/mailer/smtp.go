// internal/mailer/smtp.go
package mailer

import (
	"context"

	gomail "gopkg.in/gomail.v2"
)

// SMTPTransport sends email through a plain SMTP relay, for self-hosted
// deployments without a Resend account.
type SMTPTransport struct {
	dialer *gomail.Dialer
}

func NewSMTP(host string, port int, user, password string) *SMTPTransport {
	return &SMTPTransport{dialer: gomail.NewDialer(host, port, user, password)}
}

// Send delivers the message, honoring ctx cancellation. gomail has no context
// support, so the dial-and-send runs in a goroutine and a cancelled context
// abandons it; the dispatcher treats that as a transport failure.
func (t *SMTPTransport) Send(ctx context.Context, msg Message) (Result, error) {
	m := gomail.NewMessage()
	m.SetHeader("From", msg.From)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTML)

	errc := make(chan error, 1)
	go func() {
		errc <- t.dialer.DialAndSend(m)
	}()

	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case err := <-errc:
		if err != nil {
			return Result{}, err
		}
		return Result{}, nil
	}
}

var _ Transport = (*SMTPTransport)(nil)
