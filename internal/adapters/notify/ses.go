// Package notify delivers outcome notifications. The engine only needs a
// best-effort channel: delivery failures are logged, never retried.
package notify

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// SESNotifier sends notifications through Amazon SES.
type SESNotifier struct {
	client *ses.Client
	sender string
	to     string
}

func NewSESNotifier(client *ses.Client, sender, to string) *SESNotifier {
	return &SESNotifier{client: client, sender: sender, to: to}
}

func (n *SESNotifier) Notify(ctx context.Context, subject, body string) error {
	tracer := otel.Tracer("ses-notifier")
	ctx, span := tracer.Start(ctx, "send_notification", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.String("app.subject", subject))

	input := &ses.SendEmailInput{
		Source: aws.String(n.sender),
		Destination: &types.Destination{
			ToAddresses: []string{n.to},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String(subject),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data: aws.String(body),
				},
			},
		},
	}

	_, err := n.client.SendEmail(ctx, input)
	return err
}

// Noop discards notifications. Used when no notification channel is
// configured.
type Noop struct{}

func (Noop) Notify(ctx context.Context, subject, body string) error { return nil }
