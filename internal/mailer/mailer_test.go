package mailer

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ludotheque/ludo-api/internal/config"
)

func TestNew(t *testing.T) {
	assert.IsType(t, Log{}, New(&config.MailConfig{}))
	assert.IsType(t, &SMTP{}, New(&config.MailConfig{Host: "smtp.example.org", Port: 587}))
}

func TestSMTP_SendUnreachable(t *testing.T) {
	m := NewSMTP(&config.MailConfig{Host: "127.0.0.1", Port: 1, Sender: "ludo@example.org"})

	err := m.Send(context.Background(), Message{To: []string{"a@example.org"}, Subject: "s", Body: "b"})
	assert.Error(t, err)
}

func TestSMTP_Compose(t *testing.T) {
	m := NewSMTP(&config.MailConfig{Host: "smtp.example.org", Port: 587, Sender: "ludo@example.org"})

	raw := string(m.compose(Message{
		To:      []string{"a@example.org"},
		CC:      []string{"desk@example.org"},
		Subject: "Ludothèque : jeux en retard",
		Body:    "Bonjour",
	}))

	assert.Contains(t, raw, "Subject: =?utf-8?q?Ludoth=C3=A8que_:_jeux_en_retard?=\r\n")
	assert.Contains(t, raw, "Cc: desk@example.org\r\n")
	assert.NotContains(t, raw, "Ludothèque")
	assert.True(t, strings.HasSuffix(raw, "\r\n\r\nBonjour"))

	plain := string(m.compose(Message{To: []string{"a@example.org"}, Subject: "Late games", Body: "x"}))
	assert.Contains(t, plain, "Subject: Late games\r\n")
	assert.NotContains(t, plain, "Cc:")
}
