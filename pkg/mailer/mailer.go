// Package mailer delivers the daily report over an authenticated mail
// submission channel.
package mailer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	mail "github.com/wneessen/go-mail"
)

// Config holds mail submission settings. The password is expected to come
// from the environment, not the config file.
type Config struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port" default:"587"`
	Username   string `yaml:"username"`
	Password   string `yaml:"-"`
	From       string `yaml:"from"`
	Recipients string `yaml:"recipients"`
}

// Config validation errors.
var (
	ErrHostRequired       = errors.New("mail host is required")
	ErrFromRequired       = errors.New("mail from address is required")
	ErrRecipientsRequired = errors.New("mail recipients are required")
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Host == "" {
		return ErrHostRequired
	}
	if c.From == "" {
		return ErrFromRequired
	}
	if len(c.RecipientList()) == 0 {
		return ErrRecipientsRequired
	}

	return nil
}

// RecipientList splits the comma-separated recipients value.
func (c *Config) RecipientList() []string {
	parts := strings.Split(c.Recipients, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if addr := strings.TrimSpace(p); addr != "" {
			out = append(out, addr)
		}
	}

	return out
}

// Message is one outbound mail with a single attachment.
type Message struct {
	Subject        string
	Body           string
	AttachmentName string
	Attachment     []byte
}

// Sender delivers messages. A transport failure is fatal for the run; the
// core never retries.
type Sender interface {
	Send(ctx context.Context, msg *Message) error
}

// SMTPSender sends mail over SMTP with STARTTLS and PLAIN auth.
type SMTPSender struct {
	cfg *Config
}

// NewSMTPSender creates a sender from validated config.
func NewSMTPSender(cfg *Config) (*SMTPSender, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &SMTPSender{cfg: cfg}, nil
}

// Send submits the message to every configured recipient.
func (s *SMTPSender) Send(ctx context.Context, msg *Message) error {
	m := mail.NewMsg()
	if err := m.From(s.cfg.From); err != nil {
		return fmt.Errorf("invalid from address: %w", err)
	}
	if err := m.To(s.cfg.RecipientList()...); err != nil {
		return fmt.Errorf("invalid recipient address: %w", err)
	}

	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Body)
	if len(msg.Attachment) > 0 {
		if err := m.AttachReader(msg.AttachmentName, bytes.NewReader(msg.Attachment)); err != nil {
			return fmt.Errorf("failed to attach %s: %w", msg.AttachmentName, err)
		}
	}

	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithTLSPortPolicy(mail.TLSMandatory),
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}

	client, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("failed to create mail client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("mail transport failed: %w", err)
	}

	return nil
}

var _ Sender = (*SMTPSender)(nil)
