package mailer

import (
	"context"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/ludotheque/ludo-api/internal/config"
)

type Message struct {
	To      []string `json:"to"`
	CC      []string `json:"cc,omitempty"`
	Subject string   `json:"title"`
	Body    string   `json:"body"`
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

type SMTP struct {
	addr   string
	auth   smtp.Auth
	sender string
}

func NewSMTP(conf *config.MailConfig) *SMTP {
	var auth smtp.Auth
	if conf.Username != "" {
		auth = smtp.PlainAuth("", conf.Username, conf.Password, conf.Host)
	}

	return &SMTP{
		addr:   net.JoinHostPort(conf.Host, strconv.Itoa(conf.Port)),
		auth:   auth,
		sender: conf.Sender,
	}
}

// compose renders msg as a plain text RFC 5322 message. Non-ASCII subjects
// are Q-encoded.
func (m *SMTP) compose(msg Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.sender)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(msg.To, ", "))
	if len(msg.CC) > 0 {
		fmt.Fprintf(&b, "Cc: %s\r\n", strings.Join(msg.CC, ", "))
	}
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=\"utf-8\"\r\n\r\n")
	b.WriteString(msg.Body)

	return []byte(b.String())
}

func (m *SMTP) Send(_ context.Context, msg Message) error {
	rcpt := append(append([]string{}, msg.To...), msg.CC...)
	if err := smtp.SendMail(m.addr, m.auth, m.sender, rcpt, m.compose(msg)); err != nil {
		return fmt.Errorf("smtp.SendMail -> %w", err)
	}

	return nil
}

// Log pretends to send. Used when no SMTP host is configured.
type Log struct{}

func (Log) Send(_ context.Context, msg Message) error {
	zap.L().Info("mail not sent, no smtp host configured",
		zap.Strings("to", msg.To),
		zap.String("subject", msg.Subject),
	)

	return nil
}

func New(conf *config.MailConfig) Mailer {
	if conf == nil || conf.Host == "" {
		return Log{}
	}

	return NewSMTP(conf)
}
