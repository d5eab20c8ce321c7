package alerts

import "context"

// DigestSender envía el digest de alertas renderizado a los destinatarios.
// Implementación SMTP en infrastructure/mail.
type DigestSender interface {
	Send(ctx context.Context, subject, body string, to []string) error
}
