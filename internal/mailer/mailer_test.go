package mailer

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"sync"
	"testing"

	"github.com/hsu0403/hcast-backend/internal/config"
)

func TestSMTPSendRendersHTMLMessage(t *testing.T) {
	s := NewSMTP(config.MailConfig{Host: "smtp.example.com", Port: 587, Username: "bot", Password: "pw", From: "no-reply@hcast.io"})

	var (
		gotAddr string
		gotTo   []string
		gotMsg  string
	)
	s.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, string(msg)
		return nil
	}

	if err := s.Send(context.Background(), VerificationEmail("user@hcast.io", "abc-123")); err != nil {
		t.Fatalf("Send error: %v", err)
	}
	if gotAddr != "smtp.example.com:587" {
		t.Fatalf("unexpected addr %q", gotAddr)
	}
	if len(gotTo) != 1 || gotTo[0] != "user@hcast.io" {
		t.Fatalf("unexpected recipients %v", gotTo)
	}
	for _, want := range []string{
		"Content-Type: text/html; charset=\"UTF-8\"",
		"From: no-reply@hcast.io",
		"Subject: Verify Hcast Your Email",
		"abc-123",
	} {
		if !strings.Contains(gotMsg, want) {
			t.Fatalf("message missing %q:\n%s", want, gotMsg)
		}
	}
}

func TestSMTPSendWrapsError(t *testing.T) {
	s := NewSMTP(config.MailConfig{Host: "smtp.example.com", Port: 25, From: "no-reply@hcast.io"})
	relayErr := errors.New("relay refused")
	s.send = func(string, smtp.Auth, string, []string, []byte) error { return relayErr }

	err := s.Send(context.Background(), PasswordEmail("user@hcast.io", "secret"))
	if !errors.Is(err, relayErr) {
		t.Fatalf("expected wrapped relay error, got %v", err)
	}
}

type recordingSender struct {
	mu   sync.Mutex
	sent []Message
	err  error
}

func (r *recordingSender) Send(ctx context.Context, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
	return r.err
}

func TestDispatcherOutlivesRequestContext(t *testing.T) {
	sender := &recordingSender{err: errors.New("boom")}
	d := NewDispatcher(sender, 0)

	ctx, cancel := context.WithCancel(context.Background())
	d.Dispatch(ctx, PasswordEmail("user@hcast.io", "pw"))
	cancel()
	d.Wait()

	if len(sender.sent) != 1 || sender.sent[0].Subject != "Your Hcast New Password" {
		t.Fatalf("unexpected sent messages %#v", sender.sent)
	}
}
