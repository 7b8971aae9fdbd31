// internal/mailer/resend.go
package mailer

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"
)

// ResendTransport sends email through the Resend API.
type ResendTransport struct {
	client *resend.Client
}

func NewResend(apiKey string) *ResendTransport {
	return &ResendTransport{client: resend.NewClient(apiKey)}
}

func (t *ResendTransport) Send(ctx context.Context, msg Message) (Result, error) {
	params := &resend.SendEmailRequest{
		From:    msg.From,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
	}

	sent, err := t.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return Result{}, fmt.Errorf("resend send failed: %w", err)
	}
	return Result{ProviderID: sent.Id}, nil
}

var _ Transport = (*ResendTransport)(nil)
