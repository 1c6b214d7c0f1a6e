package notify

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"

	"microcredit-backend/internal/domain/request"
)

// SMTPConfig carries the mail relay settings plus the reviewer inbox list.
type SMTPConfig struct {
	Host      string
	Port      string
	Username  string
	Password  string
	Sender    string
	Reviewers []string
}

// EmailNotifier mails the review team when a request is submitted. Delivery
// is best effort; callers log and continue on error.
type EmailNotifier struct {
	cfg SMTPConfig
	log *logrus.Logger
}

func NewEmailNotifier(cfg SMTPConfig, log *logrus.Logger) *EmailNotifier {
	return &EmailNotifier{cfg: cfg, log: log}
}

func (n *EmailNotifier) NotifyReviewers(ctx context.Context, r *request.CreditRequest) error {
	if len(n.cfg.Reviewers) == 0 {
		n.log.WithField("request_number", r.RequestNumber).Debug("no reviewer inboxes configured, skipping notification")
		return nil
	}

	e := email.NewEmail()
	e.From = n.cfg.Sender
	e.To = n.cfg.Reviewers
	e.Subject = fmt.Sprintf("New credit request %s awaiting review", r.RequestNumber)

	body := fmt.Sprintf(
		"A new credit request has been submitted.\n\n"+
			"Request number: %s\n"+
			"Applicant: %s\n"+
			"Requested amount: %.2f\n"+
			"Duration: %d months\n"+
			"Purpose: %s\n",
		r.RequestNumber,
		r.PersonalInfo.FullName,
		r.CreditDetails.RequestedAmount,
		r.CreditDetails.DurationMonths,
		r.CreditDetails.Purpose,
	)
	e.Text = []byte(body)

	addr := fmt.Sprintf("%s:%s", n.cfg.Host, n.cfg.Port)
	auth := smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	if err := e.Send(addr, auth); err != nil {
		return fmt.Errorf("send reviewer notification: %w", err)
	}

	n.log.WithField("request_number", r.RequestNumber).Info("reviewer notification sent")
	return nil
}
