package sms

import (
	"github.com/sirupsen/logrus"
)

// ConsoleGateway logs messages instead of sending them. Used in development
// and when no provider is configured.
type ConsoleGateway struct {
	logger *logrus.Logger
}

// NewConsoleGateway creates a new ConsoleGateway
func NewConsoleGateway(logger *logrus.Logger) *ConsoleGateway {
	return &ConsoleGateway{logger: logger}
}

// Send logs the message at info level.
func (g *ConsoleGateway) Send(phone string, message string) error {
	g.logger.WithFields(logrus.Fields{
		"phone":   phone,
		"message": message,
	}).Info("SMS (console mode)")
	return nil
}

// GetName returns the name of this SMS gateway
func (g *ConsoleGateway) GetName() string {
	return "Console Gateway"
}
