package mailer

import (
	"context"
	"errors"
	"time"

	mg "github.com/mailgun/mailgun-go/v4"

	tpl "github.com/oksasatya/go-ddd-auth-scaffold/pkg/mailer/templates"
)

// Mailgun delivers jobs synchronously through the Mailgun API.
type Mailgun struct {
	Domain string
	APIKey string
	Sender string
}

func NewMailgun(domain, apiKey, sender string) *Mailgun {
	return &Mailgun{Domain: domain, APIKey: apiKey, Sender: sender}
}

// Send renders job.Template when set, then delivers the message.
func (m *Mailgun) Send(ctx context.Context, job EmailJob) error {
	subject, text, html, err := Compose(job)
	if err != nil {
		return err
	}
	client := mg.NewMailgun(m.Domain, m.APIKey)
	msg := client.NewMessage(m.Sender, subject, text, job.To)
	if html != "" {
		msg.SetHtml(html)
	}
	c, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, _, err = client.Send(c, msg)
	return err
}

// Compose resolves the subject and bodies of a job. Explicit fields win over rendered ones.
func Compose(job EmailJob) (subject, text, html string, err error) {
	if job.To == "" {
		return "", "", "", errors.New("mailer: job has no recipient")
	}
	subject, text, html = job.Subject, job.Text, job.HTML
	if job.Template != "" {
		s, t, h, rErr := tpl.Render(job.Template, job.Data)
		if rErr != nil {
			return "", "", "", rErr
		}
		if subject == "" {
			subject = s
		}
		if text == "" {
			text = t
		}
		if html == "" {
			html = h
		}
	}
	if subject == "" {
		return "", "", "", errors.New("mailer: job has no subject")
	}
	return subject, text, html, nil
}

var _ Sender = (*Mailgun)(nil)
