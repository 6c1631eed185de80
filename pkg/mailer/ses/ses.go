// Package ses delivers mail through AWS SES v2.
//
// Messages without attachments use the SES simple content type. Messages with
// attachments are sent as raw multipart/mixed MIME.
package ses

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/dmitrymomot/postoffice/pkg/mailer"
)

// Config holds SES settings. Without static keys the default AWS credential
// chain is used.
type Config struct {
	Region           string `env:"SES_REGION" envDefault:"us-east-1"`
	AccessKeyID      string `env:"SES_ACCESS_KEY_ID"`
	SecretAccessKey  string `env:"SES_SECRET_ACCESS_KEY"`
	ConfigurationSet string `env:"SES_CONFIGURATION_SET"`
}

// SendEmailAPI is the SES operation the sender calls.
type SendEmailAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// Sender implements mailer.Sender.
type Sender struct {
	client    SendEmailAPI
	configSet string
}

// New loads AWS configuration and creates a Sender.
func New(ctx context.Context, cfg Config) (*Sender, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("ses: load aws config: %w", err)
	}

	return &Sender{client: sesv2.NewFromConfig(awsCfg), configSet: cfg.ConfigurationSet}, nil
}

// NewWithClient creates a Sender around a custom client.
func NewWithClient(client SendEmailAPI) *Sender {
	return &Sender{client: client}
}

func (s *Sender) Send(ctx context.Context, email *mailer.Email) error {
	if len(email.To) == 0 {
		return mailer.ErrNoRecipient
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(email.From),
		Destination:      &types.Destination{ToAddresses: email.To},
	}
	if s.configSet != "" {
		input.ConfigurationSetName = aws.String(s.configSet)
	}
	for name, value := range email.Tags {
		input.EmailTags = append(input.EmailTags, types.MessageTag{
			Name:  aws.String(name),
			Value: aws.String(value),
		})
	}

	if len(email.Attachments) > 0 {
		raw, err := buildRawMessage(email)
		if err != nil {
			return fmt.Errorf("ses: build raw message: %w", err)
		}
		input.Content = &types.EmailContent{Raw: &types.RawMessage{Data: raw}}
	} else {
		input.Content = &types.EmailContent{Simple: simpleMessage(email)}
	}

	if _, err := s.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("ses: %w: %w", mailer.ErrSendFailed, err)
	}
	return nil
}

func simpleMessage(email *mailer.Email) *types.Message {
	body := &types.Body{}
	if email.HTML != "" {
		body.Html = &types.Content{Data: aws.String(email.HTML), Charset: aws.String("UTF-8")}
	}
	if email.Text != "" {
		body.Text = &types.Content{Data: aws.String(email.Text), Charset: aws.String("UTF-8")}
	}
	return &types.Message{
		Subject: &types.Content{Data: aws.String(email.Subject), Charset: aws.String("UTF-8")},
		Body:    body,
	}
}
