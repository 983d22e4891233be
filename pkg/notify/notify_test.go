package notify

import (
	"bytes"
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/jordan-wright/email"
	"github.com/lineupwatch/lineupwatch/pkg/polling"
	"github.com/stretchr/testify/require"
)

func sampleResult() polling.Result {
	return polling.Result{
		"The Stand NYC": {"2025-11-04": {"7:00 PM - The Stand NYC (Upstairs)": {"Sam Morril"}}},
		"Comedy Cellar": {
			"2025-11-05": {"8:00 PM - MacDougal St": {"Chris Rock"}},
			"2025-11-03": {"9:00 PM - Olive Tree Room": {"Mark Normand", "<script>"}},
		},
	}
}

func TestBuildMessages(t *testing.T) {
	msgs := BuildMessages(sampleResult(), 21)
	require.Len(t, msgs, 2)

	cellar := msgs[0]
	require.Equal(t, "Comedy Cellar", cellar.Venue)
	require.Equal(t, "Comedy Cellar Comedy Alert - Your Favorite Comedians!", cellar.Subject)
	require.Contains(t, cellar.Text, "Monday, November 03, 2025")
	require.Contains(t, cellar.Text, "  * Mark Normand\n")
	require.Less(t, strings.Index(cellar.Text, "November 03"), strings.Index(cellar.Text, "November 05"))
	require.Contains(t, cellar.HTML, "<li>Mark Normand</li>")
	require.Contains(t, cellar.HTML, "&lt;script&gt;")
	require.NotContains(t, cellar.HTML, "<script>")
	require.Contains(t, cellar.HTML, "<strong>9:00 PM - Olive Tree Room</strong>")

	require.Equal(t, "The Stand NYC Comedy Alert - Your Favorite Comedians!", msgs[1].Subject)
}

func TestBuildMessagesNoShows(t *testing.T) {
	msgs := BuildMessages(polling.Result{}, 21)
	require.Len(t, msgs, 1)
	require.Equal(t, "Comedy Alert - No Shows This Week", msgs[0].Subject)
	require.Contains(t, msgs[0].Text, "next 21 days")
	require.Contains(t, msgs[0].HTML, "next 21 days")
}

func TestDryRunNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := &DryRunNotifier{W: &buf}
	require.NoError(t, n.Notify(context.Background(), sampleResult()))

	out := buf.String()
	require.Equal(t, 2, strings.Count(out, "Subject: "))
	require.Less(t, strings.Index(out, "Subject: Comedy Cellar"), strings.Index(out, "Subject: The Stand NYC"))

	buf.Reset()
	require.NoError(t, n.Notify(context.Background(), nil))
	require.Contains(t, buf.String(), "next 21 days")
}

func TestEmailNotifierConfig(t *testing.T) {
	_, err := NewEmailNotifier(EmailConfig{From: "a@b.c", To: []string{"d@e.f"}})
	require.Error(t, err)

	_, err = NewEmailNotifier(EmailConfig{Smtp: SmtpConfig{Server: "smtp.example.com"}})
	require.Error(t, err)

	n, err := NewEmailNotifier(EmailConfig{Smtp: SmtpConfig{Server: "smtp.example.com"}, From: "a@b.c", To: []string{"d@e.f"}})
	require.NoError(t, err)
	require.Equal(t, 587, n.config.Smtp.Port)
	require.Equal(t, polling.DefaultWindowDays, n.config.Days)
}

type sentMail struct {
	mail *email.Email
	addr string
	auth smtp.Auth
}

func TestEmailNotifierSends(t *testing.T) {
	n, err := NewEmailNotifier(EmailConfig{
		Smtp: SmtpConfig{Server: "smtp.example.com", Port: 2525, Username: "user", Password: "pw"},
		From: "alerts@example.com",
		To:   []string{"me@example.com"},
	})
	require.NoError(t, err)

	var sent []sentMail
	n.sendMail = func(m *email.Email, addr string, a smtp.Auth) error {
		sent = append(sent, sentMail{m, addr, a})
		return nil
	}

	require.NoError(t, n.Notify(context.Background(), sampleResult()))
	require.Len(t, sent, 2)
	require.Equal(t, "smtp.example.com:2525", sent[0].addr)
	require.NotNil(t, sent[0].auth)
	require.Equal(t, []string{"me@example.com"}, sent[0].mail.To)
	require.Equal(t, "Comedy Alerts <alerts@example.com>", sent[0].mail.From)
	require.Contains(t, string(sent[0].mail.HTML), "Olive Tree Room")
	require.Contains(t, string(sent[0].mail.Text), "Olive Tree Room")
}

func TestEmailNotifierFallsBackWithoutAuth(t *testing.T) {
	n, err := NewEmailNotifier(EmailConfig{
		Smtp: SmtpConfig{Server: "localhost", Port: 25, Username: "user"},
		From: "alerts@example.com",
		To:   []string{"me@example.com"},
	})
	require.NoError(t, err)

	var auths []smtp.Auth
	n.sendMail = func(m *email.Email, addr string, a smtp.Auth) error {
		auths = append(auths, a)
		if a != nil {
			return errors.New("smtp: server doesn't support AUTH")
		}
		return nil
	}

	require.NoError(t, n.Notify(context.Background(), polling.Result{}))
	require.Len(t, auths, 2)
	require.Nil(t, auths[1])
}

func TestEmailNotifierContinuesAfterFailure(t *testing.T) {
	n, err := NewEmailNotifier(EmailConfig{
		Smtp: SmtpConfig{Server: "localhost"},
		From: "alerts@example.com",
		To:   []string{"me@example.com"},
	})
	require.NoError(t, err)

	var subjects []string
	n.sendMail = func(m *email.Email, addr string, a smtp.Auth) error {
		subjects = append(subjects, m.Subject)
		if strings.HasPrefix(m.Subject, "Comedy Cellar") {
			return errors.New("connection refused")
		}
		return nil
	}

	err = n.Notify(context.Background(), sampleResult())
	require.Error(t, err)
	require.Contains(t, err.Error(), "connection refused")
	require.Len(t, subjects, 2)
}
