// internal/mailer/mailer.go
package mailer

import (
	"context"
	"fmt"
)

// Message is one outgoing email. The engine never retries a Send; any retry
// policy belongs inside the transport adapter.
type Message struct {
	From    string
	To      string
	Subject string
	HTML    string
}

// Result reports a successful transport attempt.
type Result struct {
	ProviderID string
}

// Transport performs the actual network delivery of an email.
type Transport interface {
	Send(ctx context.Context, msg Message) (Result, error)
}

// Config carries the settings needed to construct a transport.
type Config struct {
	Provider     string
	ResendAPIKey string
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
}

// New builds the configured transport.
func New(cfg Config) (Transport, error) {
	switch cfg.Provider {
	case "resend":
		if cfg.ResendAPIKey == "" {
			return nil, fmt.Errorf("resend transport requires RESEND_API_KEY")
		}
		return NewResend(cfg.ResendAPIKey), nil
	case "smtp":
		if cfg.SMTPHost == "" {
			return nil, fmt.Errorf("smtp transport requires SMTP_HOST")
		}
		return NewSMTP(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword), nil
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.Provider)
	}
}
