package mailer

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tpl "github.com/oksasatya/go-ddd-auth-scaffold/pkg/mailer/templates"
)

type fakePublisher struct {
	bodies []any
	err    error
}

func (p *fakePublisher) PublishJSON(_ context.Context, body any) error {
	if p.err != nil {
		return p.err
	}
	p.bodies = append(p.bodies, body)
	return nil
}

func TestQueueSender(t *testing.T) {
	pub := &fakePublisher{}
	s := NewQueueSender(pub)

	job := EmailJob{To: "jane@example.com", Template: tpl.ConfirmEmail}
	require.NoError(t, s.Send(context.Background(), job))
	assert.Equal(t, []any{job}, pub.bodies)

	assert.Error(t, s.Send(context.Background(), EmailJob{}))
	assert.Len(t, pub.bodies, 1)

	pub.err = errors.New("channel closed")
	assert.ErrorContains(t, s.Send(context.Background(), job), "channel closed")
}

func TestNoOpSender(t *testing.T) {
	logger, hook := test.NewNullLogger()
	require.NoError(t, NoOpSender{Logger: logger}.Send(context.Background(), EmailJob{To: "a@example.com", Template: tpl.ResetPassword}))

	require.Len(t, hook.AllEntries(), 1)
	assert.Equal(t, tpl.ResetPassword, hook.LastEntry().Data["template"])
	assert.NoError(t, NoOpSender{}.Send(context.Background(), EmailJob{}))
}

func TestCompose(t *testing.T) {
	data := tpl.NewConfirmEmailData(tpl.Brand{AppName: "Scaffold", CompanyName: "Acme"}, "Jane", "jane@example.com", "https://app.test/confirm?token=abc")
	subject, text, html, err := Compose(EmailJob{To: "jane@example.com", Template: tpl.ConfirmEmail, Data: data})
	require.NoError(t, err)
	assert.Equal(t, "Confirm your Scaffold email", subject)
	assert.Contains(t, text, "https://app.test/confirm?token=abc")
	assert.Contains(t, html, "Hi Jane,")

	subject, _, _, err = Compose(EmailJob{To: "jane@example.com", Subject: "Custom", Template: tpl.ConfirmEmail, Data: data})
	require.NoError(t, err)
	assert.Equal(t, "Custom", subject)

	subject, text, html, err = Compose(EmailJob{To: "jane@example.com", Subject: "Plain", Text: "body"})
	require.NoError(t, err)
	assert.Equal(t, "Plain", subject)
	assert.Equal(t, "body", text)
	assert.Empty(t, html)
}

func TestCompose_Rejects(t *testing.T) {
	_, _, _, err := Compose(EmailJob{Subject: "x"})
	assert.ErrorContains(t, err, "no recipient")

	_, _, _, err = Compose(EmailJob{To: "a@example.com", Text: "body"})
	assert.ErrorContains(t, err, "no subject")

	_, _, _, err = Compose(EmailJob{To: "a@example.com", Template: "welcome"})
	assert.Error(t, err)
}
