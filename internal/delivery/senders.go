package delivery

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/lazypower/prospector/internal/config"
)

// DryRun prints messages instead of sending them.
type DryRun struct {
	W io.Writer
}

func (DryRun) Name() string { return "dryrun" }

func (d DryRun) Send(_ context.Context, msg Message) error {
	_, err := fmt.Fprintf(d.W, "---- DRY RUN EMAIL ----\nTO: %s\nSUBJECT: %s\n%s\n-----------------------\n",
		msg.To, msg.Subject, msg.Body)
	return err
}

// SMTP sends through a mail server with PLAIN auth.
type SMTP struct {
	cfg      config.SMTPConfig
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTP creates an SMTP sender. Host and From are required.
func NewSMTP(cfg config.SMTPConfig) (*SMTP, error) {
	if cfg.Host == "" || cfg.From == "" {
		return nil, fmt.Errorf("smtp sender requires SMTP_HOST and SMTP_FROM")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &SMTP{cfg: cfg, sendMail: smtp.SendMail}, nil
}

func (s *SMTP) Name() string { return "smtp" }

func (s *SMTP) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	to := msg.To
	if s.cfg.To != "" {
		to = s.cfg.To
	}

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	return s.sendMail(addr, auth, s.cfg.From, []string{to}, formatMessage(s.cfg.From, to, msg))
}

func formatMessage(from, to string, msg Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	fmt.Fprintf(&b, "X-Prospector-Draft: %s\r\n\r\n", msg.DraftID)
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	b.WriteString("\r\n")
	return []byte(b.String())
}

// NewSender returns the sender named by provider.
func NewSender(provider string, cfg config.SMTPConfig, w io.Writer) (Sender, error) {
	switch provider {
	case "", "dryrun":
		return DryRun{W: w}, nil
	case "smtp":
		return NewSMTP(cfg)
	default:
		return nil, fmt.Errorf("unknown send provider: %q", provider)
	}
}
