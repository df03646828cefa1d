package notify

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"assistanthub/internal/assistanthub/reminder"
)

type MailerOptions struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer sends fired reminders to the reminder's contact address.
type Mailer struct {
	opts MailerOptions
	send sendFunc
	now  func() time.Time
}

func NewMailer(opts MailerOptions) *Mailer {
	return &Mailer{opts: opts, send: smtp.SendMail, now: time.Now}
}

func (m *Mailer) Notify(ctx context.Context, r reminder.Reminder) error {
	to := strings.TrimSpace(r.Contact)
	if to == "" {
		return nil
	}
	if strings.TrimSpace(m.opts.Host) == "" || strings.TrimSpace(m.opts.From) == "" {
		return fmt.Errorf("smtp host and from are required")
	}
	if strings.ContainsAny(to, "\r\n") {
		return fmt.Errorf("invalid recipient %q", to)
	}
	addr := net.JoinHostPort(m.opts.Host, strconv.Itoa(m.opts.Port))
	var auth smtp.Auth
	if m.opts.Username != "" {
		auth = smtp.PlainAuth("", m.opts.Username, m.opts.Password, m.opts.Host)
	}
	msg := buildMessage(m.opts.From, to, "Reminder: "+r.Task,
		fmt.Sprintf("This is your reminder to %s.\n\nScheduled for %s.\n", r.Task, r.FireAt.Format("15:04 on 02-01-2006")),
		m.now())

	errc := make(chan error, 1)
	go func() { errc <- m.send(addr, auth, m.opts.From, []string{to}, msg) }()
	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("send mail to %s: %w", to, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func buildMessage(from, to, subject, body string, at time.Time) []byte {
	subject = strings.NewReplacer("\r", " ", "\n", " ").Replace(subject)
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("Date: " + at.Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(b.String())
}
