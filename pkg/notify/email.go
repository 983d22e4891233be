package notify

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"
	"github.com/lineupwatch/lineupwatch/pkg/polling"
)

type SmtpConfig struct {
	Server   string
	Port     int
	Username string
	Password string
}

type EmailConfig struct {
	Smtp SmtpConfig
	From string
	To   []string
	Days int
}

// EmailNotifier sends each message as a multipart text/HTML email.
type EmailNotifier struct {
	config EmailConfig
	// sendMail is swapped in tests.
	sendMail func(m *email.Email, addr string, a smtp.Auth) error
}

func NewEmailNotifier(config EmailConfig) (*EmailNotifier, error) {
	if config.Smtp.Server == "" {
		return nil, errors.New("email: smtp server is required")
	}
	if config.From == "" || len(config.To) == 0 {
		return nil, errors.New("email: from and to addresses are required")
	}
	if config.Smtp.Port == 0 {
		config.Smtp.Port = 587
	}
	if config.Days <= 0 {
		config.Days = polling.DefaultWindowDays
	}
	return &EmailNotifier{
		config:   config,
		sendMail: func(m *email.Email, addr string, a smtp.Auth) error { return m.Send(addr, a) },
	}, nil
}

func (n *EmailNotifier) Notify(ctx context.Context, result polling.Result) error {
	return deliver(ctx, n, result, n.config.Days)
}

func (n *EmailNotifier) send(_ context.Context, m Message) error {
	mail := email.NewEmail()
	mail.From = fmt.Sprintf("Comedy Alerts <%s>", n.config.From)
	mail.To = n.config.To
	mail.Subject = m.Subject
	mail.Text = []byte(m.Text)
	mail.HTML = []byte(m.HTML)

	addr := fmt.Sprintf("%s:%d", n.config.Smtp.Server, n.config.Smtp.Port)

	var auth smtp.Auth
	if n.config.Smtp.Username != "" {
		auth = smtp.PlainAuth("", n.config.Smtp.Username, n.config.Smtp.Password, n.config.Smtp.Server)
	}

	err := n.sendMail(mail, addr, auth)
	if err != nil && auth != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = n.sendMail(mail, addr, nil)
	}
	return err
}
