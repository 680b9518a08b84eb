// Package outbound delivers external messages by email through SES and by
// SMS through SNS.
package outbound

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/google/uuid"
	"github.com/sourcegraph/conc/iter"
	"golang.org/x/time/rate"

	"dataset-notifier/internal/common/logger"
	"dataset-notifier/internal/models"
)

// SESService is the subset of the SES client used here.
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SNSService is the subset of the SNS client used here.
type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type Config struct {
	EmailEnabled   bool
	SMSEnabled     bool
	FromEmail      string
	SMSSenderID    string
	MaxConcurrency int
	EmailRate      float64 // sends per second; zero or less is unlimited
	SMSRate        float64
}

// Transport sends each endpoint of each message individually and reports
// the outcome per endpoint. It never retries.
type Transport struct {
	config   Config
	ses      SESService
	sns      SNSService
	limiters map[models.DeliveryChannel]*rate.Limiter
	logger   logger.Logger
}

func New(config Config, sesClient SESService, snsClient SNSService, log logger.Logger) *Transport {
	limiters := make(map[models.DeliveryChannel]*rate.Limiter)
	if config.EmailEnabled && config.EmailRate > 0 {
		limiters[models.ChannelEmail] = newLimiter(config.EmailRate)
	}
	if config.SMSEnabled && config.SMSRate > 0 {
		limiters[models.ChannelSMS] = newLimiter(config.SMSRate)
	}
	return &Transport{
		config:   config,
		ses:      sesClient,
		sns:      snsClient,
		limiters: limiters,
		logger:   logger.ForComponent(log, "outbound-transport"),
	}
}

func newLimiter(perSecond float64) *rate.Limiter {
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

// throttle blocks until the channel's limiter admits one more send.
func (t *Transport) throttle(ctx context.Context, ch models.DeliveryChannel) error {
	if l, ok := t.limiters[ch]; ok {
		return l.Wait(ctx)
	}
	return nil
}

type delivery struct {
	index     int
	channel   models.DeliveryChannel
	recipient string
	message   *models.ExternalMessage
}

// SendBatch delivers messages and returns one result per endpoint in
// message order. Failed endpoints are reported in the status, not as an
// error; the error is set only when ctx ends before delivery.
func (t *Transport) SendBatch(ctx context.Context, messages []models.ExternalMessage) (*models.BatchResponseStatus, error) {
	status := &models.BatchResponseStatus{BatchID: uuid.New().String()}

	var deliveries []delivery
	for i := range messages {
		m := &messages[i]
		for _, ch := range m.DeliveryChannels {
			var endpoints []string
			switch ch {
			case models.ChannelEmail:
				endpoints = m.Recipients.EmailAddresses
			case models.ChannelSMS:
				endpoints = m.Recipients.PhoneNumbers
			default:
				status.Record(models.DeliveryResult{MessageIndex: i, Channel: ch, Status: models.DeliverySkipped, Error: "unsupported channel"})
				continue
			}
			for _, ep := range endpoints {
				deliveries = append(deliveries, delivery{index: i, channel: ch, recipient: ep, message: m})
			}
		}
	}

	mapper := iter.Mapper[delivery, models.DeliveryResult]{MaxGoroutines: t.config.MaxConcurrency}
	results := mapper.Map(deliveries, func(d *delivery) models.DeliveryResult {
		return t.deliver(ctx, d)
	})
	for _, r := range results {
		status.Record(r)
	}

	t.logger.Info("external batch delivered", map[string]interface{}{
		"batchId":  status.BatchID,
		"messages": len(messages),
		"sent":     status.Sent,
		"failed":   status.Failed,
		"skipped":  status.Skipped,
	})

	if err := ctx.Err(); err != nil {
		return status, err
	}
	return status, nil
}

func (t *Transport) deliver(ctx context.Context, d *delivery) models.DeliveryResult {
	res := models.DeliveryResult{MessageIndex: d.index, Channel: d.channel, Recipient: d.recipient}
	if err := ctx.Err(); err != nil {
		res.Status = models.DeliveryFailed
		res.Error = err.Error()
		return res
	}

	var (
		providerID string
		err        error
	)
	if err := t.throttle(ctx, d.channel); err != nil {
		res.Status = models.DeliveryFailed
		res.Error = err.Error()
		return res
	}
	switch d.channel {
	case models.ChannelEmail:
		if !t.config.EmailEnabled {
			res.Status = models.DeliverySkipped
			res.Error = "email disabled"
			return res
		}
		providerID, err = t.sendEmail(ctx, d.recipient, d.message.Subject, d.message.Body)
	case models.ChannelSMS:
		if !t.config.SMSEnabled {
			res.Status = models.DeliverySkipped
			res.Error = "sms disabled"
			return res
		}
		providerID, err = t.sendSMS(ctx, d.recipient, d.message.Body)
	}

	if err != nil {
		t.logger.Warn("delivery failed", map[string]interface{}{
			"channel":    string(d.channel),
			"templateId": d.message.TemplateID,
			"error":      err,
		})
		res.Status = models.DeliveryFailed
		res.Error = err.Error()
		return res
	}
	res.Status = models.DeliverySent
	res.ProviderID = providerID
	return res
}

func (t *Transport) sendEmail(ctx context.Context, to, subject, body string) (string, error) {
	out, err := t.ses.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &sestypes.Destination{
			ToAddresses: []string{to},
		},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: aws.String(subject)},
			Body: &sestypes.Body{
				Text: &sestypes.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(t.config.FromEmail),
	})
	if err != nil {
		return "", fmt.Errorf("ses send: %w", err)
	}
	return aws.ToString(out.MessageId), nil
}

func (t *Transport) sendSMS(ctx context.Context, to, message string) (string, error) {
	input := &sns.PublishInput{
		PhoneNumber: aws.String(to),
		Message:     aws.String(message),
	}
	if t.config.SMSSenderID != "" {
		input.MessageAttributes = map[string]snstypes.MessageAttributeValue{
			"AWS.SNS.SMS.SenderID": {
				DataType:    aws.String("String"),
				StringValue: aws.String(t.config.SMSSenderID),
			},
		}
	}
	out, err := t.sns.Publish(ctx, input)
	if err != nil {
		return "", fmt.Errorf("sns publish: %w", err)
	}
	return aws.ToString(out.MessageId), nil
}
