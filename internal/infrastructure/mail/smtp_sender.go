// Package mail envía el digest de alertas por SMTP usando gomail.
package mail

import (
	"context"
	"fmt"

	gomail "gopkg.in/gomail.v2"

	"github.com/jhoicas/LabStock-api/internal/application/alerts"
)

var _ alerts.DigestSender = (*SMTPSender)(nil)

// SMTPConfig parámetros del servidor de correo saliente.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPSender implementa alerts.DigestSender sobre un servidor SMTP.
type SMTPSender struct {
	cfg    SMTPConfig
	dialer *gomail.Dialer
}

// NewSMTPSender construye el sender con la configuración dada.
func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

// Send envía el correo en texto plano a los destinatarios.
func (s *SMTPSender) Send(ctx context.Context, subject, body string, to []string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", s.cfg.From)
	msg.SetHeader("To", to...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	// gomail no acepta context; respetar cancelación antes de dialar
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("enviar correo: %w", err)
	}
	return nil
}
