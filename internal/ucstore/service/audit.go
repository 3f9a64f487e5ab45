package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/25x8/uc-store/internal/ucstore/logger"
	"github.com/25x8/uc-store/internal/ucstore/middleware"
	"github.com/25x8/uc-store/internal/ucstore/models"
	"github.com/25x8/uc-store/internal/ucstore/repository"
	"github.com/google/uuid"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 200
)

// Auditor logs audit events and, when a store is set, persists them for the
// admin console
type Auditor struct {
	store repository.AuditStore
	now   func() time.Time
}

// NewAuditor creates an auditor. A nil store only logs.
func NewAuditor(store repository.AuditStore) *Auditor {
	return &Auditor{store: store, now: time.Now}
}

// Record emits an audit event. args are key/value pairs stored as details.
func (a *Auditor) Record(ctx context.Context, action, entityType, entityID string, args ...any) {
	logger.Audit(ctx, action, entityType, entityID, args...)
	if a == nil || a.store == nil {
		return
	}

	entry := &models.AuditLog{
		ID:         uuid.New().String(),
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Actor:      auditActor(ctx, entityType, entityID),
		Details:    detailsFromArgs(args),
		CreatedAt:  a.now().UTC(),
	}
	if err := a.store.CreateAuditLog(ctx, entry); err != nil {
		slog.WarnContext(ctx, "persist audit log", "action", action, "error", err)
	}
}

// List returns persisted audit events, newest first
func (a *Auditor) List(ctx context.Context, filter models.AuditFilter) ([]models.AuditLog, error) {
	if a.store == nil {
		return []models.AuditLog{}, nil
	}
	if filter.Limit < 0 || filter.Limit > maxAuditLimit {
		return nil, fmt.Errorf("limit must be between 1 and %d: %w", maxAuditLimit, models.ErrValidation)
	}
	if filter.Limit == 0 {
		filter.Limit = defaultAuditLimit
	}
	return a.store.ListAuditLogs(ctx, filter)
}

func auditActor(ctx context.Context, entityType, entityID string) string {
	if admin, ok := middleware.GetAdmin(ctx); ok {
		return admin.Username
	}
	if entityType == "admin" {
		return entityID
	}
	return ""
}

func detailsFromArgs(args []any) map[string]any {
	if len(args) < 2 {
		return nil
	}
	details := make(map[string]any, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			continue
		}
		details[key] = args[i+1]
	}
	return details
}
