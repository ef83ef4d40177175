// Package mailer renders and delivers the service's notification emails.
package mailer

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/cortexa-ai/apiserver/config"
	"github.com/rs/zerolog"
)

// Message is one outbound email with an HTML body.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Sender delivers a message. Implementations may deliver inline (SMTP) or
// hand the message to a queue for a worker to deliver.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// NewSender returns an SMTP sender when the transport is configured and a
// no-op sender otherwise, so missing mail credentials never crash a request.
func NewSender(cfg config.SMTPConfig, log zerolog.Logger) Sender {
	if cfg.Host == "" || cfg.Username == "" {
		log.Info().Msg("mail transport not configured, emails will be skipped")
		return &NoopSender{log: log}
	}
	return &SMTPSender{cfg: cfg}
}

// SMTPSender delivers messages over plain-auth SMTP.
type SMTPSender struct {
	cfg config.SMTPConfig
}

func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)

	from := s.cfg.FromEmail
	if from == "" {
		from = s.cfg.Username
	}
	fromHeader := fmt.Sprintf("%s <%s>", s.cfg.FromName, from)

	payload := []byte(fmt.Sprintf("From: %s\r\n", fromHeader) +
		fmt.Sprintf("To: %s\r\n", msg.To) +
		fmt.Sprintf("Subject: %s\r\n", msg.Subject) +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/html; charset=UTF-8\r\n" +
		"\r\n" +
		msg.Body + "\r\n")

	if err := smtp.SendMail(addr, auth, from, []string{msg.To}, payload); err != nil {
		return fmt.Errorf("failed to send email via SMTP: %w", err)
	}
	return nil
}

// NoopSender drops messages. Used when no SMTP credentials are configured.
type NoopSender struct {
	log zerolog.Logger
}

func (s *NoopSender) Send(ctx context.Context, msg Message) error {
	s.log.Debug().Str("to", msg.To).Str("subject", msg.Subject).Msg("mail transport not configured, skipping email")
	return nil
}
