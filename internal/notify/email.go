package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"html/template"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/abrezinsky/chanceraffle/internal/logger"
)

// SMTPConfig holds outbound mail settings
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// Complete reports whether every field needed to send mail is set
func (c SMTPConfig) Complete() bool {
	return c.Host != "" && c.Port > 0 && c.User != "" && c.Password != "" && c.From != ""
}

func (c SMTPConfig) addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// sendFunc matches smtp.SendMail so tests can capture messages
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer sends confirmation and winner emails over SMTP
type Mailer struct {
	cfg  SMTPConfig
	log  logger.Logger
	send sendFunc
}

// NewMailer creates a Mailer. With an incomplete config every send is
// skipped with a log line.
func NewMailer(log logger.Logger, cfg SMTPConfig) *Mailer {
	m := &Mailer{cfg: cfg, log: log}
	if cfg.Port == 465 {
		m.send = m.sendImplicitTLS
	} else {
		m.send = smtp.SendMail
	}
	if !cfg.Complete() {
		log.Warn("Email configuration is incomplete, emails will not be sent")
	}
	return m
}

var confirmationTemplate = template.Must(template.New("confirmation").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="font-family: -apple-system, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
  <div style="background: #1b365d; color: white; padding: 30px; text-align: center; border-radius: 10px 10px 0 0;">
    <h1>{{.CampaignName}}</h1>
    <p>Entry Confirmation</p>
  </div>
  <div style="background: #f9f9f9; padding: 30px; border-radius: 0 0 10px 10px;">
    <p>Hi {{.Name}},</p>
    <p>Thank you for supporting our cause! Your entry has been confirmed.</p>
    <p style="text-align: center;"><strong>Your Entry Number:</strong></p>
    <p style="text-align: center; font-size: 48px; font-weight: bold;">#{{.Number}}</p>
    <p><strong>Amount Charged:</strong> {{.Amount}}</p>
    <p><strong>Prize:</strong> {{.PrizeDescription}}</p>
    <p>Good luck! We'll notify you if you're selected as the winner.</p>
  </div>
  <p style="text-align: center; color: #666; font-size: 12px;">This is an automated confirmation email. Please do not reply.</p>
</body>
</html>`))

var winnerTemplate = template.Must(template.New("winner").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="font-family: -apple-system, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
  <div style="background: #36bbae; color: white; padding: 30px; text-align: center; border-radius: 10px 10px 0 0;">
    <h1>Congratulations, {{.Name}}!</h1>
    <p>{{.CampaignName}}</p>
  </div>
  <div style="background: #f9f9f9; padding: 30px; border-radius: 0 0 10px 10px;">
    <p>Your entry <strong>#{{.Number}}</strong> was drawn as the winner.</p>
    <p><strong>Prize:</strong> {{.PrizeDescription}}</p>
    {{if .CashValue}}<p><strong>Cash value:</strong> {{.CashValue}}</p>{{end}}
    <p>We will contact you shortly to arrange delivery of your prize.</p>
  </div>
</body>
</html>`))

type confirmationData struct {
	Name             string
	Number           int
	Amount           string
	CampaignName     string
	PrizeDescription string
}

type winnerData struct {
	Name             string
	Number           int
	CampaignName     string
	PrizeDescription string
	CashValue        string
}

// NotifyEntryConfirmed emails the participant their entry number
func (m *Mailer) NotifyEntryConfirmed(ctx context.Context, n EntryNotice) error {
	if !m.cfg.Complete() {
		m.log.Debug("Email not configured, skipping confirmation", "entry_id", n.EntryID)
		return nil
	}
	var body bytes.Buffer
	err := confirmationTemplate.Execute(&body, confirmationData{
		Name:             n.Contact.Name,
		Number:           n.Number,
		Amount:           formatDollars(n.Amount),
		CampaignName:     n.CampaignName,
		PrizeDescription: n.PrizeDescription,
	})
	if err != nil {
		return fmt.Errorf("render confirmation email: %w", err)
	}
	subject := fmt.Sprintf("%s - Entry #%d Confirmed", n.CampaignName, n.Number)
	return m.deliver(n.Contact.Email, subject, body.Bytes())
}

// NotifyWinner emails the winning participant
func (m *Mailer) NotifyWinner(ctx context.Context, n WinnerNotice) error {
	if !m.cfg.Complete() {
		m.log.Debug("Email not configured, skipping winner notification", "entry_id", n.EntryID)
		return nil
	}
	data := winnerData{
		Name:             n.Contact.Name,
		Number:           n.Number,
		CampaignName:     n.CampaignName,
		PrizeDescription: n.PrizeDescription,
	}
	if n.CashValue > 0 {
		data.CashValue = formatDollars(n.CashValue)
	}
	var body bytes.Buffer
	if err := winnerTemplate.Execute(&body, data); err != nil {
		return fmt.Errorf("render winner email: %w", err)
	}
	subject := fmt.Sprintf("%s - You Won!", n.CampaignName)
	return m.deliver(n.Contact.Email, subject, body.Bytes())
}

func (m *Mailer) deliver(to, subject string, html []byte) error {
	if to == "" {
		return fmt.Errorf("no recipient address")
	}
	msg := buildMessage(m.cfg.From, to, subject, html, time.Now())
	auth := smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)
	if err := m.send(m.cfg.addr(), auth, m.cfg.From, []string{to}, msg); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	m.log.Info("Email sent", "to", to, "subject", subject)
	return nil
}

// buildMessage assembles a single-part HTML message
func buildMessage(from, to, subject string, html []byte, date time.Time) []byte {
	var b bytes.Buffer
	header := func(k, v string) {
		b.WriteString(k + ": " + v + "\r\n")
	}
	header("From", from)
	header("To", to)
	header("Subject", sanitizeHeader(subject))
	header("Date", date.Format(time.RFC1123Z))
	header("MIME-Version", "1.0")
	header("Content-Type", `text/html; charset="utf-8"`)
	b.WriteString("\r\n")
	b.Write(html)
	return b.Bytes()
}

func sanitizeHeader(v string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(v)
}

// sendImplicitTLS delivers over SMTPS (port 465), which smtp.SendMail does not speak
func (m *Mailer) sendImplicitTLS(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: m.cfg.Host})
	if err != nil {
		return err
	}
	c, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		conn.Close()
		return err
	}
	defer c.Close()

	if err := c.Auth(a); err != nil {
		return err
	}
	if err := c.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

var _ Notifier = (*Mailer)(nil)
