package notificationinfra

import (
	"context"
	"fmt"
	"strings"

	"github.com/Abraxas-365/relay-match/pkg/logx"
	"github.com/Abraxas-365/relay-match/recruitment/notification"
	"github.com/google/uuid"
	"gopkg.in/gomail.v2"
)

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	FromName string `mapstructure:"from_name"`
}

// dialer is satisfied by *gomail.Dialer
type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPSender delivers notification emails over SMTP
type SMTPSender struct {
	dialer dialer
	from   string
	domain string
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return newSMTPSender(gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password), cfg)
}

func newSMTPSender(d dialer, cfg SMTPConfig) *SMTPSender {
	from := cfg.From
	if cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", cfg.FromName, cfg.From)
	}
	domain := "localhost"
	if at := strings.LastIndex(cfg.From, "@"); at >= 0 && at < len(cfg.From)-1 {
		domain = cfg.From[at+1:]
	}
	return &SMTPSender{dialer: d, from: from, domain: domain}
}

var _ notification.EmailSender = (*SMTPSender)(nil)

// Send delivers msg as multipart plain text and HTML. The returned message id
// is the Message-ID header set on the email.
func (s *SMTPSender) Send(ctx context.Context, msg notification.EmailMessage) (notification.SendResult, error) {
	if err := ctx.Err(); err != nil {
		return notification.SendResult{}, err
	}
	if msg.To == "" {
		return notification.SendResult{}, fmt.Errorf("email has no recipient")
	}

	messageID := fmt.Sprintf("<%s@%s>", uuid.NewString(), s.domain)

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", string(msg.To))
	m.SetHeader("Subject", msg.Subject)
	m.SetHeader("Message-ID", messageID)
	if msg.Text != "" {
		m.SetBody("text/plain", msg.Text)
		if msg.HTML != "" {
			m.AddAlternative("text/html", msg.HTML)
		}
	} else {
		m.SetBody("text/html", msg.HTML)
	}

	if err := s.dialer.DialAndSend(m); err != nil {
		return notification.SendResult{}, fmt.Errorf("send email to %s: %w", msg.To, err)
	}

	logx.Debugf("Sent email %s to %s", messageID, msg.To)
	return notification.SendResult{MessageID: messageID}, nil
}

// LogSender writes emails to the log instead of sending them, for local runs
// without an SMTP server
type LogSender struct{}

func (LogSender) Send(_ context.Context, msg notification.EmailMessage) (notification.SendResult, error) {
	id := uuid.NewString()
	logx.Infow("email not sent, no SMTP host configured", "to", msg.To, "subject", msg.Subject, "message_id", id)
	return notification.SendResult{MessageID: id}, nil
}
