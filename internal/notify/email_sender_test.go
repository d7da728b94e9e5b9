package notify

import (
	"context"
	"net/smtp"
	"strings"
	"testing"
	"time"
)

func TestEmailSender_BuildsMessage(t *testing.T) {
	s, err := NewEmailSender(EmailConfig{Host: "smtp.example.com", Port: 587, Username: "u", Password: "p", From: "shop@example.com"})
	if err != nil {
		t.Fatalf("NewEmailSender() error = %v", err)
	}
	s.now = func() time.Time { return time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC) }

	var (
		gotAddr string
		gotTo   []string
		gotMsg  string
	)
	s.send = func(addr string, _ smtp.Auth, _ string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, string(msg)
		return nil
	}

	err = s.Send(context.Background(), Message{To: "minsu@example.com", Subject: "입금 확인", Body: "line1\nline2"})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if gotAddr != "smtp.example.com:587" || len(gotTo) != 1 || gotTo[0] != "minsu@example.com" {
		t.Errorf("unexpected envelope: %s %v", gotAddr, gotTo)
	}
	if !strings.Contains(gotMsg, "Subject: =?UTF-8?b?") {
		t.Errorf("subject should be RFC 2047 encoded: %s", gotMsg)
	}
	if !strings.Contains(gotMsg, "line1\r\nline2") {
		t.Errorf("body should use CRLF: %q", gotMsg)
	}
}

func TestFormatWon(t *testing.T) {
	tests := map[int64]string{
		0:       "0원",
		999:     "999원",
		1000:    "1,000원",
		73000:   "73,000원",
		1234567: "1,234,567원",
		-6000:   "-6,000원",
	}
	for in, want := range tests {
		if got := formatWon(in); got != want {
			t.Errorf("formatWon(%d) = %s, want %s", in, got, want)
		}
	}
}
