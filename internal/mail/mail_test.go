package mail

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestLogMailer_Send(t *testing.T) {
	var buf bytes.Buffer
	mailer := NewLogMailer(slog.New(slog.NewTextHandler(&buf, nil)))

	if err := mailer.Send(context.Background(), Welcome("ana@example.com", "Ana")); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "ana@example.com") || !strings.Contains(out, "Welcome to Age Restore!") {
		t.Errorf("log output missing recipient or subject: %s", out)
	}

	if err := mailer.Send(context.Background(), Message{Subject: "nobody"}); err == nil {
		t.Error("expected error for message without recipients")
	}
}

func TestMessages(t *testing.T) {
	tests := []struct {
		name        string
		message     Message
		wantTo      string
		wantSubject string
		wantBody    string
	}{
		{
			name:        "approved",
			message:     AccountStatus("u@example.com", "U", true),
			wantTo:      "u@example.com",
			wantSubject: "Approved",
			wantBody:    "journey starts today",
		},
		{
			name:        "disapproved",
			message:     AccountStatus("u@example.com", "U", false),
			wantTo:      "u@example.com",
			wantSubject: "Disapproved",
			wantBody:    "not approved",
		},
		{
			name:        "refund accepted with message",
			message:     RefundDecision("u@example.com", "U", true, "processed within 5 days"),
			wantTo:      "u@example.com",
			wantSubject: "Approved",
			wantBody:    "processed within 5 days",
		},
		{
			name:        "refund request for admins",
			message:     RefundRequestForAdmins([]string{"admin@example.com"}, "U", "u@example.com", "changed my mind"),
			wantTo:      "admin@example.com",
			wantSubject: "Refund Request",
			wantBody:    "changed my mind",
		},
		{
			name:        "new user for admins",
			message:     NewUserForAdmins([]string{"admin@example.com"}, "U", "u@example.com"),
			wantTo:      "admin@example.com",
			wantSubject: "New User Registration",
			wantBody:    "u@example.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if len(tt.message.To) != 1 || tt.message.To[0] != tt.wantTo {
				t.Errorf("To = %v, want %s", tt.message.To, tt.wantTo)
			}
			if !strings.Contains(tt.message.Subject, tt.wantSubject) {
				t.Errorf("Subject = %q, want it to contain %q", tt.message.Subject, tt.wantSubject)
			}
			if !strings.Contains(tt.message.Body, tt.wantBody) {
				t.Errorf("Body = %q, want it to contain %q", tt.message.Body, tt.wantBody)
			}
		})
	}
}
