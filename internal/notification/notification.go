package notification

import (
	"context"
	"log/slog"
)

// Channel selects the delivery medium for a message.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// Template identifiers understood by the delivery layer.
const (
	TemplateLoginOTP          = "login-otp"
	TemplateResetPassword     = "reset-password"
	TemplateResetConfirmation = "reset-confirmation"
)

// Message describes a notification payload.
type Message struct {
	Channel  Channel
	To       string
	Subject  string
	Template string
	Data     map[string]string
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier is a stub implementation that writes notifications to the logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier stub.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification",
		"channel", string(message.Channel),
		"to", message.To,
		"subject", message.Subject,
		"template", message.Template,
	)
	return nil
}
