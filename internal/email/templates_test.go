package email_test

import (
	"context"
	"strings"
	"testing"

	"github.com/cleanyhq/cleany/assets"
	"github.com/cleanyhq/cleany/internal/email"
	"github.com/cleanyhq/cleany/internal/email/view"
)

// Test_EmbeddedTemplates sends the embedded email templates through the
// service to catch template errors before they show up at runtime.
func Test_EmbeddedTemplates(t *testing.T) {
	tests := map[string]struct {
		wantSubject string
	}{
		"account-activation":     {wantSubject: "Activate your account"},
		"password-reset-request": {wantSubject: "Reset your password"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			sender := email.NewMemorySender()
			svc := email.NewService(view.NewFSRenderer(assets.EmailFS), sender, "noreply@cleany.example")

			data := struct {
				Name string
				URL  string
			}{
				Name: "Alice",
				URL:  "http://localhost:8888/tokens?token=abc",
			}

			err := svc.Send(context.Background(), name, "alice@example.com", data)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if len(sender.Emails) != 1 {
				t.Fatalf("got %d emails, want 1", len(sender.Emails))
			}

			got := sender.Emails[0]
			if got.Recipient != "alice@example.com" {
				t.Errorf("got recipient %q, want %q", got.Recipient, "alice@example.com")
			}

			if got.Subject != tc.wantSubject {
				t.Errorf("got subject %q, want %q", got.Subject, tc.wantSubject)
			}

			for _, want := range []string{data.Name, data.URL} {
				if !strings.Contains(got.Body, want) {
					t.Errorf("body does not contain %q:\n%s", want, got.Body)
				}
			}
		})
	}
}
