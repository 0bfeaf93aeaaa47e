package main

import (
	"bytes"
	"embed"
	"html/template"
	"net/url"
	"strings"
	"time"

	"github.com/go-mail/mail/v2"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// notifier delivers the account verification message.
type notifier interface {
	sendVerificationEmail(to, username, token string) error
}

type mailer struct {
	dialer       *mail.Dialer
	sender       string
	baseURL      string
	verification *template.Template
}

func newMailer(cfg smtpConfig, baseURL string) (*mailer, error) {
	tmpl, err := template.New("").ParseFS(templateFS, "templates/user_verification.tmpl")
	if err != nil {
		return nil, err
	}
	dialer := mail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	dialer.Timeout = 10 * time.Second
	if cfg.Username != "" {
		dialer.StartTLSPolicy = mail.MandatoryStartTLS
	}
	return &mailer{
		dialer:       dialer,
		sender:       cfg.Sender,
		baseURL:      strings.TrimRight(baseURL, "/"),
		verification: tmpl,
	}, nil
}

func verificationLink(baseURL, token string) string {
	return baseURL + "/auth/verify?" + url.Values{"token": {token}}.Encode()
}

func (m *mailer) sendVerificationEmail(to, username, token string) error {
	data := struct {
		Username string
		Link     string
	}{
		Username: username,
		Link:     verificationLink(m.baseURL, token),
	}
	return m.send(to, m.verification, data)
}

type emailContent struct {
	subject   string
	plainBody string
	htmlBody  string
}

func render(tmpl *template.Template, data any) (emailContent, error) {
	var subject bytes.Buffer
	err := tmpl.ExecuteTemplate(&subject, "subject", data)
	if err != nil {
		return emailContent{}, err
	}
	var plainBody bytes.Buffer
	err = tmpl.ExecuteTemplate(&plainBody, "plainBody", data)
	if err != nil {
		return emailContent{}, err
	}
	var htmlBody bytes.Buffer
	err = tmpl.ExecuteTemplate(&htmlBody, "htmlBody", data)
	if err != nil {
		return emailContent{}, err
	}
	return emailContent{
		subject:   subject.String(),
		plainBody: plainBody.String(),
		htmlBody:  htmlBody.String(),
	}, nil
}

func (m *mailer) send(to string, tmpl *template.Template, data any) error {
	content, err := render(tmpl, data)
	if err != nil {
		return err
	}

	msg := mail.NewMessage()
	msg.SetHeader("To", to)
	msg.SetHeader("From", m.sender)
	msg.SetHeader("Subject", content.subject)
	msg.SetBody("text/plain", content.plainBody)
	msg.AddAlternative("text/html", content.htmlBody)

	for i := 0; i < 3; i++ {
		err = m.dialer.DialAndSend(msg)
		if err == nil {
			return nil
		}
		time.Sleep(500 * time.Millisecond)
	}
	return err
}
