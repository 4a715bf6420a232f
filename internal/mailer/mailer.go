// Package mailer delivers exported reports over SMTP.
package mailer

import (
	"crypto/tls"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/gomail.v2"

	"timepay.uz/crm/internal/obs"
)

var ErrNoRecipients = errors.New("mailer: no recipients")

// Sender abstracts the SMTP dialer for tests.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type Mailer struct {
	from   string
	sender Sender
}

// New builds a Mailer on a gomail dialer.
func New(host string, port int, user, pass, from string) *Mailer {
	d := gomail.NewDialer(host, port, user, pass)
	d.TLSConfig = &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}
	return NewWithSender(from, d)
}

func NewWithSender(from string, s Sender) *Mailer {
	return &Mailer{from: from, sender: s}
}

// Report is one message with attached files.
type Report struct {
	To      []string
	Cc      []string
	Subject string
	Body    string
	Files   []string
}

// BuildMessage renders r into a gomail message.
func (m *Mailer) BuildMessage(r Report) (*gomail.Message, error) {
	to := clean(r.To)
	if len(to) == 0 {
		return nil, ErrNoRecipients
	}
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to...)
	if cc := clean(r.Cc); len(cc) > 0 {
		msg.SetHeader("Cc", cc...)
	}
	subject := r.Subject
	if subject == "" {
		subject = "TimePay hisobot"
	}
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", r.Body)
	for _, f := range r.Files {
		msg.Attach(f, gomail.Rename(filepath.Base(f)))
	}
	return msg, nil
}

// Send delivers r.
func (m *Mailer) Send(r Report) error {
	msg, err := m.BuildMessage(r)
	if err != nil {
		return err
	}
	if err := m.sender.DialAndSend(msg); err != nil {
		obs.Error("report_mail_failed", map[string]any{"to": r.To, "error": err.Error()})
		return fmt.Errorf("send report: %w", err)
	}
	obs.Info("report_mailed", map[string]any{"to": r.To, "files": len(r.Files)})
	return nil
}

func clean(in []string) []string {
	out := make([]string, 0, len(in))
	for _, addr := range in {
		for _, part := range strings.Split(addr, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
