// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package email

import (
	"context"

	"github.com/wneessen/go-mail"
)

func (s *Service) PasswordResetMessage(ctx context.Context, to, token string) (*mail.Msg, error) {
	return s.passwordResetMessage(ctx, to, token)
}

func (s *Service) ClientOptionCount() int {
	return len(s.clientOptions())
}
