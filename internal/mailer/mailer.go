// Package mailer sends transactional e-mail over SMTP.
package mailer

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"

	"github.com/rs/zerolog"
	"github.com/wneessen/go-mail"

	"storefront/internal/config"
	"storefront/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type SMTP struct {
	cfg     config.SMTPConfig
	app     string
	baseURL string
	log     zerolog.Logger
}

func New(cfg config.SMTPConfig, app config.AppConfig, log zerolog.Logger) *SMTP {
	return &SMTP{cfg: cfg, app: app.Name, baseURL: app.BaseURL, log: log}
}

// Welcome greets a freshly created account.
func (s *SMTP) Welcome(ctx context.Context, id models.Identity) error {
	msg, err := s.welcomeMessage(id)
	if err != nil {
		return err
	}
	client, err := s.client()
	if err != nil {
		return err
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("mailer: send to %s: %w", id.Email, err)
	}
	s.log.Info().Str("uid", id.UID).Msg("welcome mail sent")
	return nil
}

func (s *SMTP) welcomeMessage(id models.Identity) (*mail.Msg, error) {
	var body bytes.Buffer
	err := templates.ExecuteTemplate(&body, "welcome.html", map[string]string{
		"Name":     id.Greeting(),
		"Email":    id.Email,
		"App":      s.app,
		"LoginURL": s.baseURL + "/login",
	})
	if err != nil {
		return nil, fmt.Errorf("mailer: render welcome: %w", err)
	}

	msg := mail.NewMsg()
	if err := msg.From(s.cfg.From); err != nil {
		return nil, fmt.Errorf("mailer: from: %w", err)
	}
	if err := msg.To(id.Email); err != nil {
		return nil, fmt.Errorf("mailer: to: %w", err)
	}
	msg.Subject("Welcome to " + s.app)
	msg.SetBodyString(mail.TypeTextHTML, body.String())
	return msg, nil
}

func (s *SMTP) client() (*mail.Client, error) {
	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthLogin),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}
	client, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("mailer: client: %w", err)
	}
	return client, nil
}
