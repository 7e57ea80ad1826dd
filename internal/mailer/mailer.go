package mailer

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// Mailer is the opaque notification capability. Sends are fire-and-forget
// from the caller's perspective: a failed send never aborts the operation
// that triggered it.
type Mailer interface {
	SendInvite(ctx context.Context, email, orgName, token string) error
}

// New selects a provider by name. Unknown names fall back to the log provider.
func New(provider, from string, log *zap.Logger) Mailer {
	switch provider {
	case "noop":
		return noopMailer{}
	case "fail":
		return failMailer{}
	default:
		return logMailer{from: from, log: log}
	}
}

type logMailer struct {
	from string
	log  *zap.Logger
}

func (m logMailer) SendInvite(ctx context.Context, email, orgName, token string) error {
	m.log.Info("sending organization invite",
		zap.String("from", m.from),
		zap.String("to", email),
		zap.String("organization", orgName),
		zap.String("token", token))
	return nil
}

type noopMailer struct{}

func (noopMailer) SendInvite(ctx context.Context, email, orgName, token string) error {
	return nil
}

// failMailer exists for exercising the fire-and-forget path in tests
type failMailer struct{}

func (failMailer) SendInvite(ctx context.Context, email, orgName, token string) error {
	return errors.New("mailer failure")
}
