// Package audit records scheduling actions to the structured log.
package audit

import (
	"context"
	"log/slog"

	"admissionscheduling/internal/domain"
)

type slogAuditLog struct {
	logger *slog.Logger
}

// NewSlogAuditLog returns an AuditLog that writes one structured log
// record per entry.
func NewSlogAuditLog(logger *slog.Logger) domain.AuditLog {
	return &slogAuditLog{logger: logger}
}

func (a *slogAuditLog) Record(ctx context.Context, entry domain.AuditEntry) {
	attrs := []any{
		"actor_id", entry.ActorID,
		"action", entry.Action,
		"entity", entry.Entity,
		"entity_id", entry.EntityID,
	}
	if entry.Detail != "" {
		attrs = append(attrs, "detail", entry.Detail)
	}
	a.logger.InfoContext(ctx, "audit", attrs...)
}
