// internal/engine/fanout/notifier.go
package fanout

import (
	"context"
	"fmt"

	"admission-engine/internal/common/logger"
	"admission-engine/internal/models"
	"admission-engine/pkg/registry"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// SESService and SNSService exist so delivery can be mocked in tests.
type SESService interface {
	SendEmail(ctx context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error)
}

// Notifier renders notification content and delivers it over the enabled
// channels. Delivery is best-effort: the notification record is the durable
// artifact, channels only carry it outward.
type Notifier struct {
	templates    *registry.TemplateRegistry
	sesClient    SESService
	snsClient    SNSService
	emailEnabled bool
	smsEnabled   bool
	fromEmail    string
	logger       logger.Logger
}

type NotifierConfig struct {
	EmailEnabled bool
	SMSEnabled   bool
	FromEmail    string
}

func NewNotifier(templates *registry.TemplateRegistry, sesClient SESService, snsClient SNSService, cfg NotifierConfig, log logger.Logger) *Notifier {
	return &Notifier{
		templates:    templates,
		sesClient:    sesClient,
		snsClient:    snsClient,
		emailEnabled: cfg.EmailEnabled,
		smsEnabled:   cfg.SMSEnabled,
		fromEmail:    cfg.FromEmail,
		logger:       log.WithFields(map[string]interface{}{"component": "notifier"}),
	}
}

// Render fills the subject and body for a match notification.
func (n *Notifier) Render(posting *models.Posting, score int) (subject, body string) {
	templateID := registry.TemplateJobMatch
	if posting.IsCourse() {
		templateID = registry.TemplateCourseMatch
	}

	tmpl, ok := n.templates.Lookup(templateID)
	if !ok {
		return "New matching posting", fmt.Sprintf("%s at %s matches your profile.", posting.Title, posting.OrganizationName)
	}

	data := map[string]interface{}{
		"postingTitle":     posting.Title,
		"organizationName": posting.OrganizationName,
		"score":            score,
	}
	return registry.Render(tmpl.Subject, data), registry.Render(tmpl.Body, data)
}

// Deliver sends the notification over email and, for high priority, SMS.
// A channel failure is returned so the fanout can count it; the stored
// notification is unaffected.
func (n *Notifier) Deliver(ctx context.Context, candidate *models.CandidateProfile, notif *models.Notification) error {
	if n.emailEnabled && n.sesClient != nil && candidate.Email != "" {
		if err := n.sendEmail(ctx, candidate.Email, notif.Subject, notif.Body); err != nil {
			n.logger.Error("email send failed", map[string]interface{}{
				"error":       err,
				"candidateId": candidate.ID,
			})
			return err
		}
	}

	if n.smsEnabled && n.snsClient != nil && candidate.Phone != "" && notif.Priority == models.PriorityHigh {
		if err := n.sendSMS(ctx, candidate.Phone, notif.Body); err != nil {
			n.logger.Error("SMS send failed", map[string]interface{}{
				"error":       err,
				"candidateId": candidate.ID,
			})
			return err
		}
	}

	return nil
}

func (n *Notifier) sendEmail(ctx context.Context, to, subject, body string) error {
	_, err := n.sesClient.SendEmail(ctx, &ses.SendEmailInput{
		Source: aws.String(n.fromEmail),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
	})
	return err
}

func (n *Notifier) sendSMS(ctx context.Context, phone, body string) error {
	_, err := n.snsClient.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(phone),
		Message:     aws.String(body),
	})
	return err
}
