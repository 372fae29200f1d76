package notify

import (
	"context"

	"go.uber.org/zap"
)

// LogTransport is the development transport: it records every outbound
// message through the logger instead of reaching a mail or SMS gateway.
// Production deployments swap in a gateway-backed implementation behind
// the same method set.
type LogTransport struct {
	logger *zap.Logger
}

// NewLogTransport constructs the transport.
func NewLogTransport(logger *zap.Logger) *LogTransport {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogTransport{logger: logger}
}

// SendEmail logs the outbound email and reports success.
func (t *LogTransport) SendEmail(ctx context.Context, recipients []string, subject, htmlBody, textBody string) error {
	t.logger.Sugar().Infow("outbound email",
		"recipients", recipients,
		"subject", subject,
		"bytes", len(htmlBody)+len(textBody),
	)
	return nil
}

// SendSMS logs the outbound SMS and reports success.
func (t *LogTransport) SendSMS(ctx context.Context, recipients []string, body string, viaWhatsApp bool) error {
	t.logger.Sugar().Infow("outbound sms",
		"recipients", recipients,
		"whatsapp", viaWhatsApp,
		"bytes", len(body),
	)
	return nil
}
