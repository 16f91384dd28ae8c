package notification

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"sort"
	"strings"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPProvider delivers notifications as plain-text email. Recipients are
// expected to be email addresses when this provider is configured.
type SMTPProvider struct {
	cfg SMTPConfig
}

func NewSMTP(cfg SMTPConfig) *SMTPProvider {
	return &SMTPProvider{cfg: cfg}
}

// Send delivers one message over SMTP. The context bounds the whole exchange:
// the dial honors cancellation and the connection deadline covers every
// subsequent read and write, so a stalled server cannot hold the caller past
// the dispatcher's timeout.
func (p *SMTPProvider) Send(ctx context.Context, msg Message) Result {
	if strings.TrimSpace(msg.Recipient) == "" {
		return Result{Err: fmt.Errorf("empty recipient")}
	}

	addr := fmt.Sprintf("%s:%d", p.cfg.Host, p.cfg.Port)
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return Result{Err: fmt.Errorf("dial %s: %w", addr, err)}
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return Result{Err: err}
		}
	}

	client, err := smtp.NewClient(conn, p.cfg.Host)
	if err != nil {
		return Result{Err: err}
	}
	defer client.Close()

	if p.cfg.Username != "" {
		auth := smtp.PlainAuth("", p.cfg.Username, p.cfg.Password, p.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return Result{Err: err}
		}
	}
	if err := client.Mail(p.cfg.From); err != nil {
		return Result{Err: err}
	}
	if err := client.Rcpt(msg.Recipient); err != nil {
		return Result{Err: err}
	}

	w, err := client.Data()
	if err != nil {
		return Result{Err: err}
	}
	body := renderBody(msg)
	subject := subjectFor(msg.TemplateType)
	if _, err := fmt.Fprintf(w, "To: %s\r\nSubject: %s\r\n\r\n%s", msg.Recipient, subject, body); err != nil {
		return Result{Err: err}
	}
	if err := w.Close(); err != nil {
		return Result{Err: err}
	}
	_ = client.Quit()
	return Result{Success: true}
}

func subjectFor(templateType string) string {
	switch templateType {
	case TemplateBillGenerated:
		return "Your monthly bill is ready"
	case TemplateContributionDue:
		return "Monthly contribution due"
	case TemplateFineApplied:
		return "Late payment fine applied"
	case TemplatePaymentConfirmation:
		return "Payment received"
	default:
		return "Notification"
	}
}

func renderBody(msg Message) string {
	keys := make([]string, 0, len(msg.Variables))
	for key := range msg.Variables {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, key := range keys {
		fmt.Fprintf(&b, "%s: %v\n", key, msg.Variables[key])
	}
	return b.String()
}
