package services

import (
	"context"
	"fmt"
	"html/template"
	"strings"

	"github.com/resend/resend-go/v3"
	"gopkg.in/gomail.v2"

	"natours/internal/config"
	"natours/internal/models"
)

// Mailer delivers one HTML message.
type Mailer interface {
	Send(ctx context.Context, to, subject, html string) error
}

type smtpMailer struct {
	dialer *gomail.Dialer
	from   string
}

func (m *smtpMailer) Send(_ context.Context, to, subject, html string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", html)
	return m.dialer.DialAndSend(msg)
}

type resendMailer struct {
	client *resend.Client
	from   string
}

func (m *resendMailer) Send(ctx context.Context, to, subject, html string) error {
	_, err := m.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{to},
		Subject: subject,
		Html:    html,
	})
	return err
}

// NewMailer picks the transport configured for the environment: Resend in
// production, SMTP (usually a local catcher) otherwise.
func NewMailer(cfg config.EmailConfig) Mailer {
	from := fmt.Sprintf("%s <%s>", cfg.FromName, cfg.FromEmail)
	if cfg.Driver == "resend" {
		return &resendMailer{client: resend.NewClient(cfg.ResendAPIKey), from: from}
	}
	return &smtpMailer{
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword),
		from:   from,
	}
}

type EmailService interface {
	SendWelcomeEmail(ctx context.Context, user *models.User, url string) error
	SendPasswordResetEmail(ctx context.Context, user *models.User, url string) error
}

type emailService struct {
	mailer Mailer
}

func NewEmailService(mailer Mailer) EmailService {
	return &emailService{mailer: mailer}
}

func firstName(name string) string {
	if f := strings.Fields(name); len(f) > 0 {
		return f[0]
	}
	return name
}

func (s *emailService) SendWelcomeEmail(ctx context.Context, user *models.User, url string) error {
	body := fmt.Sprintf(`
		<h2>Welcome to the Natours Family, %s!</h2>
		<p>We're all a big family here, so make sure to upload your user photo so we get to know you a bit better!</p>
		<p><a href="%s">Upload user photo</a></p>
		<p>If you need any help with booking your next tour, please don't hesitate to contact us!</p>
		<p>- The Natours team</p>
	`, template.HTMLEscapeString(firstName(user.Name)), template.HTMLEscapeString(url))

	if err := s.mailer.Send(ctx, user.Email, "Welcome to the Natours Family!", body); err != nil {
		return fmt.Errorf("failed to send welcome email: %w", err)
	}
	return nil
}

func (s *emailService) SendPasswordResetEmail(ctx context.Context, user *models.User, url string) error {
	body := fmt.Sprintf(`
		<h3>Hi %s,</h3>
		<p>Forgot your password? Submit a PATCH request with your new password and passwordConfirm to: <a href="%[2]s">%[2]s</a></p>
		<p>If you didn't forget your password, please ignore this email!</p>
	`, template.HTMLEscapeString(firstName(user.Name)), template.HTMLEscapeString(url))

	if err := s.mailer.Send(ctx, user.Email, "Your password reset token (valid for only 10 minutes)", body); err != nil {
		return fmt.Errorf("failed to send password reset email: %w", err)
	}
	return nil
}
