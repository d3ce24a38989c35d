package mail

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"

	"communityhub/pkg/types"

	gomail "github.com/wneessen/go-mail"
)

//go:embed templates
var templatesFS embed.FS

// Mailer renders embedded HTML templates and sends them over SMTP.
type Mailer struct {
	client    *gomail.Client
	from      string
	templates *template.Template
}

func NewMailer(config *types.Config) (*Mailer, error) {
	client, err := gomail.NewClient(config.MailHost,
		gomail.WithPort(config.MailPort),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(config.MailUsername),
		gomail.WithPassword(config.MailPassword),
	)
	if err != nil {
		return nil, fmt.Errorf("create mail client: %w", err)
	}

	templates, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse mail templates: %w", err)
	}

	return &Mailer{
		client:    client,
		from:      config.MailFrom,
		templates: templates,
	}, nil
}

// Send renders templateName with values and mails it.
func (m *Mailer) Send(ctx context.Context, to, subject, templateName string, values any) error {
	var body bytes.Buffer
	if err := m.templates.ExecuteTemplate(&body, templateName, values); err != nil {
		return fmt.Errorf("render mail template %s: %w", templateName, err)
	}

	msg := gomail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("set mail from: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("set mail recipient: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, body.String())

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}

	return nil
}

// ForgotPasswordValues feeds the forgot-password template.
type ForgotPasswordValues struct {
	Name        string
	Email       string
	FrontEndURL string
	Token       string
}

func (m *Mailer) SendForgotPassword(ctx context.Context, to string, values ForgotPasswordValues) error {
	return m.Send(ctx, to, "Forgot Password", "forgot-password.html", values)
}
