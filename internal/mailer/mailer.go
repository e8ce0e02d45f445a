package mailer

import (
	"context"
	"fmt"
	"html"
)

const (
	verifySubject   = "Verify Hcast Your Email"
	passwordSubject = "Your Hcast New Password"
)

// Message is a single outgoing HTML email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Discard drops every message. It is used when SMTP is not configured.
type Discard struct{}

// Send implements Sender.
func (Discard) Send(context.Context, Message) error { return nil }

// VerificationEmail builds the email carrying an account verification code.
func VerificationEmail(to, code string) Message {
	return Message{
		To:      to,
		Subject: verifySubject,
		HTML: fmt.Sprintf(
			"<p>Hello %s,</p><p>Please verify your email with this code:</p><p><strong>%s</strong></p>",
			html.EscapeString(to), html.EscapeString(code),
		),
	}
}

// PasswordEmail builds the email carrying a freshly generated password.
func PasswordEmail(to, password string) Message {
	return Message{
		To:      to,
		Subject: passwordSubject,
		HTML: fmt.Sprintf(
			"<p>Hello %s,</p><p>Your new password is:</p><p><strong>%s</strong></p>",
			html.EscapeString(to), html.EscapeString(password),
		),
	}
}
