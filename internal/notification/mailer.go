package notification

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"vulx/internal/config"
	vxerrors "vulx/pkg/errors"
)

// Mailer sends one plain-text email.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

type SMTPMailer struct {
	addr string
	from string
	auth smtp.Auth
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPMailer returns nil when SMTP is not configured.
func NewSMTPMailer(cfg config.SMTPConfig) *SMTPMailer {
	if !cfg.Enabled() {
		return nil
	}
	port := cfg.Port
	if port == 0 {
		port = 587
	}
	m := &SMTPMailer{
		addr: net.JoinHostPort(cfg.Host, strconv.Itoa(port)),
		from: cfg.From,
		send: smtp.SendMail,
	}
	if cfg.Username != "" {
		m.auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return m
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := strings.Join([]string{
		"From: " + m.from,
		"To: " + to,
		"Subject: " + subject,
		"Date: " + time.Now().UTC().Format(time.RFC1123Z),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=UTF-8",
		"",
		body,
	}, "\r\n")
	if err := m.send(m.addr, m.auth, m.from, []string{to}, []byte(msg)); err != nil {
		return vxerrors.NewUpstreamError("smtp", 0, err)
	}
	return nil
}

// EmailBody renders the plain-text scan report sent to members.
func EmailBody(s *ScanSummary) (subject, body string) {
	subject = fmt.Sprintf("[VULX] %s: %s", s.ProjectName, s.CountsLine())

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", s.Title())
	fmt.Fprintf(&b, "Risk score:  %d/100\n", s.RiskScore)
	fmt.Fprintf(&b, "Environment: %s\n", s.Environment)
	fmt.Fprintf(&b, "Findings:    %d (%s)\n", s.Total, s.CountsLine())
	if len(s.TopFindings) > 0 {
		b.WriteString("\nTop findings:\n")
		for _, f := range s.TopFindings {
			fmt.Fprintf(&b, "  - %s\n", s.FindingLine(f))
		}
	}
	if url := s.ScanURL(); url != "" {
		fmt.Fprintf(&b, "\nFull report: %s\n", url)
	}
	return subject, b.String()
}
