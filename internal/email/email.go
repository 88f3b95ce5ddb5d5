// Package email holds the invitation mailer. Delivery is stubbed: the
// interface is the contract, the default implementation only logs.
package email

import (
	"context"

	"go.uber.org/zap"
)

type Invitation struct {
	ToEmail          string
	OrganizationName string
	Role             string
	InviterName      string
	Link             string
}

type Mailer interface {
	SendInvitation(ctx context.Context, inv Invitation) error
}

type logMailer struct {
	logger *zap.Logger
}

func NewLogMailer(logger *zap.Logger) Mailer {
	return &logMailer{logger: logger}
}

func (m *logMailer) SendInvitation(ctx context.Context, inv Invitation) error {
	m.logger.Info("invitation email (stub, not delivered)",
		zap.String("to", inv.ToEmail),
		zap.String("organization", inv.OrganizationName),
		zap.String("role", inv.Role),
	)
	return nil
}
