package notification

import (
	"context"
	"fmt"
	"strings"

	"github.com/straye-as/status-api/internal/config"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// Message is one outbound plain-text mail
type Message struct {
	From    string
	To      []string
	Subject string
	Body    string
}

// Mailer delivers a message to its recipients
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// NewMailer returns the SMTP mailer when email is enabled and the log-only
// mailer otherwise.
func NewMailer(cfg *config.EmailConfig, logger *zap.Logger) Mailer {
	if !cfg.Enabled {
		logger.Info("email delivery disabled, notifications are logged only")
		return NewLogMailer(logger)
	}
	return NewSMTPMailer(cfg)
}

// SMTPMailer sends mail through an SMTP relay
type SMTPMailer struct {
	cfg *config.EmailConfig
}

// NewSMTPMailer creates a mailer for the configured relay
func NewSMTPMailer(cfg *config.EmailConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

// Send builds the message and delivers it over a fresh connection
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	from := msg.From
	if from == "" {
		from = m.cfg.From
	}

	mm := mail.NewMsg()
	if err := mm.From(from); err != nil {
		return fmt.Errorf("invalid sender %q: %w", from, err)
	}
	if err := mm.To(msg.To...); err != nil {
		return fmt.Errorf("invalid recipients: %w", err)
	}
	mm.Subject(msg.Subject)
	mm.SetBodyString(mail.TypeTextPlain, msg.Body)

	client, err := mail.NewClient(m.cfg.Host, m.clientOptions()...)
	if err != nil {
		return fmt.Errorf("failed to create smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, mm); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	return nil
}

func (m *SMTPMailer) clientOptions() []mail.Option {
	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
		mail.WithTimeout(m.cfg.TimeoutDuration()),
	}
	if m.cfg.UseTLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}
	if m.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password),
		)
	}
	return opts
}

// LogMailer writes messages to the log instead of sending them
type LogMailer struct {
	logger *zap.Logger
}

func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.logger.Info("mail not sent, delivery disabled",
		zap.String("to", strings.Join(msg.To, ",")),
		zap.String("subject", msg.Subject),
	)
	return nil
}
