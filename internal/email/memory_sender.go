package email

import "context"

// MemorySender collects emails in memory instead of delivering them.
// Meant for tests that want to inspect what would have been sent.
type MemorySender struct {
	Emails []Email
}

// Email is a captured message.
type Email struct {
	From      Address
	Recipient Address
	Subject   string
	Body      string
}

func NewMemorySender() *MemorySender {
	return &MemorySender{}
}

func (s *MemorySender) Send(_ context.Context, from, recipient Address, subject, body string) error {
	s.Emails = append(s.Emails, Email{
		From:      from,
		Recipient: recipient,
		Subject:   subject,
		Body:      body,
	})
	return nil
}
