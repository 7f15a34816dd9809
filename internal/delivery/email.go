package delivery

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/wneessen/go-mail"

	"github.com/brieflyhq/briefly/internal/errdefs"
	"github.com/brieflyhq/briefly/internal/settings"
)

// SMTPConfig holds the SMTP relay credentials for the email channel.
type SMTPConfig struct {
	// Host is the SMTP server hostname.
	Host string
	// Port is the SMTP server port (587 for STARTTLS).
	Port int
	// Username is the auth username and sender address.
	Username string
	// Password is the auth password.
	Password string
}

// EmailChannel delivers the bundle as a single HTML email with charts
// embedded inline (referenced by Content-ID) and reports attached.
type EmailChannel struct {
	// cfg holds the SMTP relay settings.
	cfg SMTPConfig

	// store supplies the user's email preferences, read fresh per delivery.
	store *settings.Store

	// send dials the relay and sends the message. Replaceable in tests.
	send func(ctx context.Context, cfg SMTPConfig, msg *mail.Msg) error
}

// NewEmailChannel constructs the email channel.
func NewEmailChannel(cfg SMTPConfig, store *settings.Store) *EmailChannel {
	return &EmailChannel{
		cfg:   cfg,
		store: store,
		send:  smtpSend,
	}
}

// Name implements Channel.
func (c *EmailChannel) Name() string { return "email" }

// Precheck implements Channel. Settings are read fresh so a toggle through
// the API takes effect at the next delivery.
func (c *EmailChannel) Precheck(_ context.Context) error {
	prefs := c.store.Email()
	if !prefs.NotificationsEnabled {
		return ErrDisabled
	}
	if prefs.RecipientEmail == "" || prefs.RecipientEmail == settings.PlaceholderRecipient {
		return errdefs.InvalidArgumentf("email: no recipient configured")
	}
	if c.cfg.Host == "" || c.cfg.Username == "" || c.cfg.Password == "" {
		return errdefs.InvalidArgumentf("email: SMTP credentials not configured, set SMTP_HOST, SMTP_USERNAME, SMTP_PASSWORD")
	}
	return nil
}

// Send implements Channel.
func (c *EmailChannel) Send(ctx context.Context, bundle Bundle) error {
	prefs := c.store.Email()

	charts := existingFiles(bundle.Charts)
	reports := existingFiles(bundle.Reports)
	if len(charts) == 0 && len(reports) == 0 {
		return errdefs.Deliveryf("email: nothing to send")
	}

	day := bundle.GeneratedAt.Format("January 2, 2006")

	msg := mail.NewMsg()
	if err := msg.From(c.cfg.Username); err != nil {
		return errdefs.Deliveryf("email: invalid sender %q: %v", c.cfg.Username, err)
	}
	if err := msg.To(prefs.RecipientEmail); err != nil {
		return errdefs.Deliveryf("email: invalid recipient %q: %v", prefs.RecipientEmail, err)
	}
	msg.Subject(fmt.Sprintf("Sales & Marketing Report - %s", day))

	msg.SetBodyString(mail.TypeTextPlain, plainBody(day, reports))
	msg.AddAlternativeString(mail.TypeTextHTML, htmlBody(day, prefs.UserName, charts))

	// Charts are embedded so the HTML can reference them by Content-ID;
	// reports travel as regular attachments.
	for _, chart := range charts {
		msg.EmbedFile(chart)
	}
	for _, rep := range reports {
		msg.AttachFile(rep)
	}

	if err := c.send(ctx, c.cfg, msg); err != nil {
		return errdefs.Deliveryf("email: send to %s: %v", prefs.RecipientEmail, err)
	}
	return nil
}

// smtpSend dials the relay with STARTTLS and plain auth and sends the message.
func smtpSend(ctx context.Context, cfg SMTPConfig, msg *mail.Msg) error {
	client, err := mail.NewClient(cfg.Host,
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	return client.DialAndSendWithContext(ctx, msg)
}

// plainBody renders the text/plain fallback part.
func plainBody(day string, reports []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Daily Sales & Marketing Report - %s\n\n", day)
	sb.WriteString("Hello,\n\n")
	sb.WriteString("Please find attached your daily sales and marketing reports with comprehensive visualizations.\n\n")
	sb.WriteString("Reports included:\n")
	for _, r := range reports {
		fmt.Fprintf(&sb, "- %s\n", filepath.Base(r))
	}
	sb.WriteString("\nBest regards,\nAutomated Report System\n")
	return sb.String()
}

// htmlBody renders the HTML part. Each chart is shown inline via a cid:
// reference matching the embedded file's name.
func htmlBody(day, userName string, charts []string) string {
	if userName == "" {
		userName = "there"
	}

	var sb strings.Builder
	sb.WriteString(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="UTF-8"><title>Daily Sales &amp; Marketing Report</title></head>
<body style="margin:0;padding:0;font-family:'Segoe UI',Arial,sans-serif;background-color:#f4f4f4;">
<table width="100%" cellpadding="0" cellspacing="0" style="background-color:#f4f4f4;padding:20px 0;"><tr><td align="center">
<table width="700" cellpadding="0" cellspacing="0" style="background-color:white;border-radius:10px;overflow:hidden;">
`)
	fmt.Fprintf(&sb, `<tr><td style="background:linear-gradient(135deg,#667eea 0%%,#764ba2 100%%);padding:40px 30px;text-align:center;">
<h1 style="color:white;margin:0;font-size:32px;">Daily Sales &amp; Marketing Report</h1>
<p style="color:#e0e0e0;margin:10px 0 0 0;font-size:18px;">%s</p>
</td></tr>
`, day)
	fmt.Fprintf(&sb, `<tr><td style="padding:40px 30px 30px 30px;">
<h2 style="color:#2C3E50;margin:0 0 15px 0;font-size:24px;">Hello %s!</h2>
<p style="color:#555;font-size:16px;line-height:1.6;margin:0;">Here's your daily report with AI-powered insights and visualizations of your sales and marketing performance.</p>
</td></tr>
`, userName)

	for _, chart := range charts {
		cid := filepath.Base(chart)
		fmt.Fprintf(&sb, `<tr><td style="padding:0 30px 30px 30px;">
<div style="background:#f8f9fa;padding:20px;border-radius:10px;border:2px solid #e9ecef;">
<img src="cid:%s" alt="%s" style="width:100%%;height:auto;display:block;border-radius:5px;">
</div>
</td></tr>
`, cid, displayName(chart))
	}

	sb.WriteString(`<tr><td style="padding:0 30px 30px 30px;">
<div style="background:#FFF3CD;border-left:4px solid #FFC107;padding:20px;border-radius:5px;">
<p style="margin:0;color:#856404;font-size:15px;"><strong>Detailed reports attached</strong> - see the text files on this message for the full analysis.</p>
</div>
</td></tr>
<tr><td style="background:#2C3E50;padding:30px;text-align:center;">
<p style="color:#ecf0f1;margin:0;font-size:14px;"><strong>Briefly - automated business reporting</strong></p>
</td></tr>
</table>
</td></tr></table>
</body>
</html>
`)
	return sb.String()
}
