// Package ses delivers delegate escalations as email through Amazon SES.
package ses

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"wellness-check-service/internal/domain"
)

// SendEmailAPI is the subset of the SES v2 client used by the notifier.
type SendEmailAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// Config describes the sender identity.
type Config struct {
	Region     string
	FromEmail  string
	FromName   string
	AppBaseURL string
}

// Notifier emails every delegate of a user when an escalation fires.
type Notifier struct {
	client  SendEmailAPI
	cfg     Config
	enabled bool
	logger  *zap.Logger
}

// NewNotifier loads the default AWS configuration. An empty FromEmail yields a disabled notifier
// that only logs.
func NewNotifier(ctx context.Context, cfg Config, logger *zap.Logger) (*Notifier, error) {
	if cfg.FromEmail == "" {
		logger.Info("delegate email disabled: ses from_email not configured")
		return &Notifier{cfg: cfg, logger: logger}, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	logger.Info("delegate email enabled", zap.String("from", cfg.FromEmail), zap.String("region", cfg.Region))
	return NewNotifierWithClient(sesv2.NewFromConfig(awsCfg), cfg, logger), nil
}

// NewNotifierWithClient wires an existing SES client.
func NewNotifierWithClient(client SendEmailAPI, cfg Config, logger *zap.Logger) *Notifier {
	return &Notifier{client: client, cfg: cfg, enabled: true, logger: logger}
}

// IsEnabled reports whether emails are actually sent.
func (n *Notifier) IsEnabled() bool {
	return n.enabled
}

// NotifyDelegates sends one email per delegate. Failed recipients do not stop the others; their
// errors are returned together.
func (n *Notifier) NotifyDelegates(ctx context.Context, event domain.EscalationEvent) error {
	if !n.enabled {
		n.logger.Warn("skipping delegate email (notifier disabled)",
			zap.String("user_id", event.UserID),
			zap.Strings("delegates", event.Delegates.Emails),
		)
		return nil
	}

	subject, textBody, htmlBody := n.render(event)

	var result *multierror.Error
	for _, to := range event.Delegates.Emails {
		if err := n.send(ctx, to, subject, textBody, htmlBody); err != nil {
			result = multierror.Append(result, err)
			continue
		}
		n.logger.Info("delegate email sent", zap.String("user_id", event.UserID), zap.String("to", to))
	}
	return result.ErrorOrNil()
}

func (n *Notifier) send(ctx context.Context, to, subject, textBody, htmlBody string) error {
	from := n.cfg.FromEmail
	if n.cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", n.cfg.FromName, n.cfg.FromEmail)
	}

	_, err := n.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(textBody), Charset: aws.String("UTF-8")},
					Html: &types.Content{Data: aws.String(htmlBody), Charset: aws.String("UTF-8")},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("send email to %s: %w", to, err)
	}
	return nil
}

func (n *Notifier) render(event domain.EscalationEvent) (subject, textBody, htmlBody string) {
	d := event.UserDetails
	selected := d.SelectedAnswer
	if selected == "" {
		selected = "no answer (time ran out)"
	}
	when := d.TestTime.UTC().Format(time.RFC1123)
	words := strings.Join(d.Words, ", ")
	seconds := float64(d.ResponseTimeMs) / 1000

	subject = "Wellness check missed: please check in"
	textBody = fmt.Sprintf(`Hello,

You are listed as a delegate. The person you support has missed several wellness checks in a row.

Latest check: %s
Words shown: %s
Their answer: %s
Correct answer: %s
Response time: %.1fs

Please reach out to them as soon as you can.
%s
---
This is an automated message. Please do not reply.
`, when, words, selected, d.CorrectAnswer, seconds, n.cfg.AppBaseURL)

	htmlBody = fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
	<p>Hello,</p>
	<p>You are listed as a delegate. The person you support has missed several wellness checks in a row.</p>
	<table>
		<tr><td><strong>Latest check</strong></td><td>%s</td></tr>
		<tr><td><strong>Words shown</strong></td><td>%s</td></tr>
		<tr><td><strong>Their answer</strong></td><td>%s</td></tr>
		<tr><td><strong>Correct answer</strong></td><td>%s</td></tr>
		<tr><td><strong>Response time</strong></td><td>%.1fs</td></tr>
	</table>
	<p>Please reach out to them as soon as you can.</p>
	<p style="font-size: 12px; color: #666;">This is an automated message. Please do not reply.</p>
</body>
</html>
`, html.EscapeString(when), html.EscapeString(words), html.EscapeString(selected), html.EscapeString(d.CorrectAnswer), seconds)
	return subject, textBody, htmlBody
}
