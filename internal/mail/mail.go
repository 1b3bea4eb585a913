package mail

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Message is a plain-text email
type Message struct {
	To      []string
	Subject string
	Body    string
}

// Mailer delivers messages. Failures are reported but never block the
// operation that triggered the message.
type Mailer interface {
	Send(ctx context.Context, message Message) error
}

// LogMailer writes messages to the structured log instead of delivering them
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(ctx context.Context, message Message) error {
	if len(message.To) == 0 {
		return fmt.Errorf("message %q has no recipients", message.Subject)
	}
	m.logger.InfoContext(ctx, "email dispatched",
		"to", strings.Join(message.To, ","),
		"subject", message.Subject,
		"body_length", len(message.Body))
	return nil
}

func NewUserForAdmins(admins []string, userName, userEmail string) Message {
	return Message{
		To:      admins,
		Subject: "New User Registration - Age Restore",
		Body: fmt.Sprintf("A new user has registered and is waiting for approval.\n\nName: %s\nEmail: %s\n",
			userName, userEmail),
	}
}

func Welcome(userEmail, userName string) Message {
	return Message{
		To:      []string{userEmail},
		Subject: "Welcome to Age Restore!",
		Body: fmt.Sprintf("Hi %s,\n\nThanks for signing up. Your account is pending approval; "+
			"we will email you as soon as your 30-day journey can begin.\n", userName),
	}
}

// AccountStatus announces an approval or disapproval to the user
func AccountStatus(userEmail, userName string, approved bool) Message {
	verdict, body := "Disapproved", "Unfortunately your account was not approved."
	if approved {
		verdict, body = "Approved", "Your account was approved. Your 30-day journey starts today!"
	}
	return Message{
		To:      []string{userEmail},
		Subject: fmt.Sprintf("Your Age Restore Account Has Been %s", verdict),
		Body:    fmt.Sprintf("Hi %s,\n\n%s\n", userName, body),
	}
}

func RefundRequestForAdmins(admins []string, userName, userEmail, reason string) Message {
	return Message{
		To:      admins,
		Subject: "New Refund Request - Age Restore",
		Body: fmt.Sprintf("A refund was requested.\n\nName: %s\nEmail: %s\nReason: %s\n",
			userName, userEmail, reason),
	}
}

// RefundDecision tells the user how their refund request was decided
func RefundDecision(userEmail, userName string, accepted bool, adminMessage string) Message {
	verdict := "Rejected"
	if accepted {
		verdict = "Approved"
	}
	body := fmt.Sprintf("Hi %s,\n\nYour refund request has been %s.\n", userName, strings.ToLower(verdict))
	if adminMessage != "" {
		body += fmt.Sprintf("\nMessage from our team: %s\n", adminMessage)
	}
	return Message{
		To:      []string{userEmail},
		Subject: fmt.Sprintf("Your Age Restore Refund Request Has Been %s", verdict),
		Body:    body,
	}
}
