package email

import (
	"context"
	"fmt"
	"html"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/communehq/commune/internal/i18n"
)

// Sender delivers transactional email.
type Sender interface {
	SendComplaintReceived(ctx context.Context, n ComplaintNotice) error
}

// ComplaintNotice is the acknowledgement sent to a reporter.
type ComplaintNotice struct {
	To          string
	Locale      string
	ComplaintID string
	TargetType  string
	Reason      string
}

// SendAPI is the subset of the SES client used here.
type SendAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// EmailService handles sending emails via AWS SES
type EmailService struct {
	client     SendAPI
	fromEmail  string
	fromName   string
	translator i18n.Translator
}

// NewEmailService creates a new email service using AWS SES
func NewEmailService(ctx context.Context, region, fromEmail, fromName string, tr i18n.Translator) (*EmailService, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewWithClient(ses.NewFromConfig(cfg), fromEmail, fromName, tr), nil
}

// NewWithClient wraps an existing SES client.
func NewWithClient(client SendAPI, fromEmail, fromName string, tr i18n.Translator) *EmailService {
	if tr == nil {
		tr = i18n.Nop{}
	}
	return &EmailService{client: client, fromEmail: fromEmail, fromName: fromName, translator: tr}
}

// SendComplaintReceived tells a reporter their complaint was filed
func (e *EmailService) SendComplaintReceived(ctx context.Context, n ComplaintNotice) error {
	tag := e.translator.Match(n.Locale)

	subject := e.translator.Translate(tag, "We received your report")
	text := e.translator.Translate(tag,
		"Thanks for reporting a %s. Our moderators will review it (reason: %s, reference %s).",
		n.TargetType, n.Reason, n.ComplaintID)

	htmlBody := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333;">
	<div style="max-width: 600px; margin: 0 auto; padding: 20px;">
		<h1>%s</h1>
		<p>%s</p>
		<hr>
		<p style="color: #999; font-size: 12px;">%s</p>
	</div>
</body>
</html>`, html.EscapeString(subject), html.EscapeString(text), html.EscapeString(e.fromName))

	if err := e.send(ctx, n.To, subject, htmlBody, text); err != nil {
		return fmt.Errorf("failed to send complaint acknowledgement: %w", err)
	}
	return nil
}

func (e *EmailService) send(ctx context.Context, to, subject, htmlBody, textBody string) error {
	from := e.fromEmail
	if e.fromName != "" {
		from = fmt.Sprintf("%s <%s>", e.fromName, e.fromEmail)
	}

	input := &ses.SendEmailInput{
		Source: aws.String(from),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String(subject),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{
				Html: &types.Content{
					Data:    aws.String(htmlBody),
					Charset: aws.String("UTF-8"),
				},
				Text: &types.Content{
					Data:    aws.String(textBody),
					Charset: aws.String("UTF-8"),
				},
			},
		},
	}

	_, err := e.client.SendEmail(ctx, input)
	return err
}
