package mailservice

import (
	"fmt"
	"time"

	"github.com/go-mail/mail/v2"
)

const smtpTimeout = 5 * time.Second

// NewMailer returns a Mail that renders messages from the embedded templates and
// hands them to an SMTP dialer. Each send opens its own connection.
func NewMailer(host string, port int, username, password, sender string, tp *Template) *Mail {
	d := mail.NewDialer(host, port, username, password)
	d.Timeout = smtpTimeout

	return &Mail{
		dialer: d,
		sender: sender,
		parser: tp,
		now:    time.Now,
	}
}

// compose renders templateFile into a plain text message with an HTML alternative.
func (m *Mail) compose(recipient string, data any, templateFile string) (*mail.Message, error) {
	subject, plainBody, htmlBody, err := m.parser.ParseTemplate(templateFile, data)
	if err != nil {
		return nil, fmt.Errorf("could not render %s: %w", templateFile, err)
	}

	now := time.Now
	if m.now != nil {
		now = m.now
	}

	msg := mail.NewMessage()
	msg.SetHeaders(map[string][]string{
		"From":    {m.sender},
		"To":      {recipient},
		"Subject": {subject.String()},
	})
	msg.SetDateHeader("Date", now())
	msg.SetBody("text/plain", plainBody.String())
	msg.AddAlternative("text/html", htmlBody.String())

	return msg, nil
}

func (m *Mail) send(recipient string, data any, templateFile string) error {
	msg, err := m.compose(recipient, data, templateFile)
	if err != nil {
		return err
	}

	m.mu.Lock()
	err = m.dialer.DialAndSend(msg)
	m.mu.Unlock()
	if err != nil {
		return fmt.Errorf("could not send mail to %s: %w", recipient, err)
	}

	return nil
}
