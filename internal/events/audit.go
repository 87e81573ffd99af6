package events

import (
	"context"
	"log/slog"

	"github.com/nerrad567/authgate/internal/audit"
	"github.com/nerrad567/authgate/internal/auth"
)

// entityTypeSession is the audit_logs entity type for every auth event.
const entityTypeSession = "session"

// AuditSink stores events in the audit trail. It writes to SQLite
// synchronously, so wrap it with Async.
type AuditSink struct {
	repo   audit.Repository
	logger *slog.Logger
}

// NewAuditSink returns an AuditSink writing to repo.
func NewAuditSink(repo audit.Repository, logger *slog.Logger) *AuditSink {
	return &AuditSink{repo: repo, logger: logger}
}

// Emit implements auth.EventSink.
func (s *AuditSink) Emit(ctx context.Context, e auth.Event) {
	entry := AuditEntry(e)
	if err := s.repo.Create(ctx, entry); err != nil {
		s.logger.Warn("writing audit log failed", "type", e.Type, "sid", e.SessionID, "error", err)
	}
}

// AuditEntry maps an auth event onto an audit_logs row.
func AuditEntry(e auth.Event) *audit.AuditLog {
	details := map[string]any{}
	if e.Role != "" {
		details["role"] = string(e.Role)
	}
	if e.Email != "" {
		details["email"] = e.Email
	}
	if e.ActorID != "" {
		details["actor_id"] = e.ActorID
	}

	source := audit.SourceAPI
	if e.Origin != "" {
		source = audit.SourceBus
	}

	return &audit.AuditLog{
		Action:     string(e.Type),
		EntityType: entityTypeSession,
		EntityID:   e.SessionID,
		UserID:     e.UserID,
		Source:     source,
		Details:    details,
		CreatedAt:  e.At,
	}
}
