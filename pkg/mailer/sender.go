package mailer

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
)

// Sender hands an email job to whatever delivers it.
type Sender interface {
	Send(ctx context.Context, job EmailJob) error
}

// Publisher is satisfied by helpers.RabbitPublisher.
type Publisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// QueueSender enqueues jobs for cmd/email_worker.
type QueueSender struct {
	Pub Publisher
}

func NewQueueSender(pub Publisher) *QueueSender {
	return &QueueSender{Pub: pub}
}

func (s *QueueSender) Send(ctx context.Context, job EmailJob) error {
	if job.To == "" {
		return errors.New("mailer: job has no recipient")
	}
	return s.Pub.PublishJSON(ctx, job)
}

// NoOpSender drops jobs after logging them. Used when mail sending is disabled.
type NoOpSender struct {
	Logger *logrus.Logger
}

func (s NoOpSender) Send(_ context.Context, job EmailJob) error {
	if s.Logger != nil {
		s.Logger.WithFields(logrus.Fields{"to": job.To, "template": job.Template}).Info("email sending disabled; job dropped")
	}
	return nil
}
