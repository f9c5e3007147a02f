// Package audit emite eventos de auditoría como líneas estructuradas en el
// logger "audit" (zap). Un sink externo puede filtrar por logger name.
package audit

import (
	"context"

	"go.uber.org/zap"

	"github.com/dropDatabas3/socialgate/internal/observability/logger"
)

// Eventos.
const (
	EventLoginSucceeded = "social_login_succeeded"
	EventLoginFailed    = "social_login_failed"
	EventLogout         = "session_logout"
)

// Log registra event con los campos del logger del request (request_id, etc.).
func Log(ctx context.Context, event string, fields ...zap.Field) {
	logger.From(ctx).Named("audit").Info(event, append(fields, zap.String("event", event))...)
}
