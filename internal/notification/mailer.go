// Package notification turns domain events into outgoing email
package notification

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/peoplehub/peoplehub-backend/pkg/config"
	"github.com/peoplehub/peoplehub-backend/pkg/logger"
	"github.com/wneessen/go-mail"
)

// Message is one email. When HTML is set it is sent as an alternative to
// the plain Body.
type Message struct {
	To          []string
	Subject     string
	Body        string
	HTML        string
	Attachments []Attachment
}

// Attachment is a file sent alongside the body
type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

// Sender delivers messages
type Sender interface {
	Send(ctx context.Context, msg *Message) error
}

type deliverFunc func(ctx context.Context, msg *mail.Msg) error

// SMTPMailer sends mail through a relay. When SMTP is disabled every
// message is logged and dropped.
type SMTPMailer struct {
	cfg     config.SMTPConfig
	deliver deliverFunc
	now     func() time.Time
	logger  *logger.Logger
}

// NewSMTPMailer creates a mailer for cfg
func NewSMTPMailer(cfg config.SMTPConfig, log *logger.Logger) *SMTPMailer {
	m := &SMTPMailer{
		cfg:    cfg,
		now:    time.Now,
		logger: log.WithComponent("mailer"),
	}
	m.deliver = m.dialAndSend
	return m
}

// Send delivers msg to every recipient in one transaction
func (m *SMTPMailer) Send(ctx context.Context, msg *Message) error {
	if len(msg.To) == 0 {
		return fmt.Errorf("mail %q has no recipients", msg.Subject)
	}
	if !m.cfg.Enabled {
		m.logger.Debug().
			Strs("to", msg.To).
			Str("subject", msg.Subject).
			Msg("smtp disabled, dropping mail")
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	out, err := m.compose(msg)
	if err != nil {
		return fmt.Errorf("compose mail: %w", err)
	}
	if err := m.deliver(ctx, out); err != nil {
		return fmt.Errorf("send mail to %s: %w", strings.Join(msg.To, ","), err)
	}

	m.logger.Info().
		Strs("to", msg.To).
		Str("subject", msg.Subject).
		Int("attachments", len(msg.Attachments)).
		Msg("mail sent")
	return nil
}

func (m *SMTPMailer) compose(msg *Message) (*mail.Msg, error) {
	out := mail.NewMsg()
	if err := out.FromFormat(m.cfg.FromName, m.cfg.From); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", m.cfg.From, err)
	}
	if err := out.To(msg.To...); err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}
	out.Subject(msg.Subject)
	out.SetDateWithValue(m.now())
	out.SetMessageID()

	out.SetBodyString(mail.TypeTextPlain, msg.Body)
	if msg.HTML != "" {
		out.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	}

	for _, a := range msg.Attachments {
		ct := a.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		if err := out.AttachReader(a.Name, bytes.NewReader(a.Data), mail.WithFileContentType(mail.ContentType(ct))); err != nil {
			return nil, fmt.Errorf("attach %s: %w", a.Name, err)
		}
	}
	return out, nil
}

func (m *SMTPMailer) dialAndSend(ctx context.Context, msg *mail.Msg) error {
	client, err := m.newClient()
	if err != nil {
		return err
	}
	return client.DialAndSendWithContext(ctx, msg)
}

// newClient builds a client for the relay. PLAIN auth is used only when a
// username is configured.
func (m *SMTPMailer) newClient() (*mail.Client, error) {
	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
		mail.WithTLSPolicy(tlsPolicy(m.cfg.TLSPolicy)),
	}
	if m.cfg.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(m.cfg.Timeout))
	}
	if m.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password),
		)
	}

	client, err := mail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client for %s: %w", m.cfg.Host, err)
	}
	return client, nil
}

// tlsPolicy maps smtp.tls_policy; anything unknown means opportunistic STARTTLS
func tlsPolicy(name string) mail.TLSPolicy {
	switch strings.ToLower(name) {
	case "mandatory":
		return mail.TLSMandatory
	case "none":
		return mail.NoTLS
	default:
		return mail.TLSOpportunistic
	}
}
